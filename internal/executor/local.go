package executor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/command"
	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/logging"
)

// DefaultMaxOutputBytes is the default cap on captured child output.
const DefaultMaxOutputBytes = 100000

// waitDelay bounds how long Wait blocks on a killed child's inherited pipes.
const waitDelay = 5 * time.Second

// Local executes specs on the host.
type Local struct {
	maxOutput int
	logger    *logging.Logger
}

// LocalOption configures a Local executor.
type LocalOption func(*Local)

// WithMaxOutputBytes caps the captured output kept per exec step. Zero or
// less disables the cap.
func WithMaxOutputBytes(n int) LocalOption {
	return func(l *Local) {
		l.maxOutput = n
	}
}

// WithLogger sets the logger used for step tracing.
func WithLogger(logger *logging.Logger) LocalOption {
	return func(l *Local) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocal creates an executor that runs specs on the host.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		maxOutput: DefaultMaxOutputBytes,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Execute runs spec and blocks until it finishes or ctx is canceled.
func (l *Local) Execute(ctx context.Context, spec command.CommandSpec) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	start := time.Now()
	l.logger.Debug("executing step",
		"step", spec.Name,
		"kind", spec.Kind.String(),
		"command", spec.String(),
	)

	var (
		res Result
		err error
	)
	switch spec.Kind {
	case command.KindExec:
		res, err = l.run(ctx, spec)
	case command.KindWriteFile:
		err = writeFile(resolve(spec, spec.Path), spec.Content)
	case command.KindArchive:
		err = writeArchive(spec)
	case command.KindRemove:
		err = removeAll(spec)
	case command.KindMkdir:
		err = os.MkdirAll(resolve(spec, spec.Path), 0755)
	default:
		err = fmt.Errorf("unsupported command kind %s", spec.Kind)
	}

	res.Duration = time.Since(start)
	if err != nil && res.ExitCode == 0 && spec.Kind == command.KindExec {
		res.ExitCode = -1
	}

	l.logger.Debug("step finished",
		"step", spec.Name,
		"exit_code", res.ExitCode,
		"duration_ms", res.Duration.Milliseconds(),
		"error", errString(err),
	)
	return res, err
}

func (l *Local) run(ctx context.Context, spec command.CommandSpec) (Result, error) {
	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	out := newTailBuffer(l.maxOutput)
	cmd.Stdout = out
	cmd.Stderr = out

	runErr := cmd.Run()
	res := Result{Output: spec.Redacted(out.String())}
	if runErr == nil {
		return res, nil
	}

	res.ExitCode = -1
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		return res, ctx.Err()
	case runCtx.Err() == context.DeadlineExceeded:
		return res, &TimeoutError{Timeout: spec.Timeout}
	case res.ExitCode != -1:
		return res, &ExitError{Code: res.ExitCode}
	default:
		return res, runErr
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// writeArchive zips the existing members of spec.Paths into spec.Path,
// storing each under its base name. The archive is written to a temporary
// file and renamed into place, so a failed run never leaves a truncated
// bundle behind.
func writeArchive(spec command.CommandSpec) error {
	target := resolve(spec, spec.Path)

	var members []string
	for _, p := range spec.Paths {
		path := resolve(spec, p)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			members = append(members, path)
		}
	}
	if len(members) == 0 {
		return fmt.Errorf("no artifacts to archive into %s", spec.Path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".ssbatch-*.zip")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	zw := zip.NewWriter(tmp)
	for _, path := range members {
		if err := addToZip(zw, path); err != nil {
			_ = zw.Close()
			_ = tmp.Close()
			return fmt.Errorf("failed to add %s: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}

func addToZip(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// removeAll deletes every path, ignoring ones already gone, and reports all
// failures together.
func removeAll(spec command.CommandSpec) error {
	var errs []error
	for _, p := range spec.Paths {
		if err := os.Remove(resolve(spec, p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu        sync.Mutex
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if b.max > 0 && len(b.buf) > b.max {
		b.buf = append(b.buf[:0], b.buf[len(b.buf)-b.max:]...)
		b.truncated = true
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return "[output truncated]\n" + string(b.buf)
	}
	return string(b.buf)
}
