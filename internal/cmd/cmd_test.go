package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/logging"
	"github.com/Iron-Ham/ssbatch/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `
cloneA:
  P01: {call: pass, display: "0.97"}
cloneB:
  P02: {call: fail, score: "0.12"}
`

// executeCommand runs the root command with args and returns captured output.
// Flags are reset first since cobra keeps their values between executions.
func executeCommand(t *testing.T, args ...string) (output string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points the config search path at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
}

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// pairRoot creates a batch root holding the pool directories of sampleIndex.
func pairRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, pool := range []string{"P01", "P02"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, pool), 0755))
	}
	return root
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "ssbatch" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "ssbatch")
	}

	expectedCmds := []string{"run", "pair", "mount", "upload", "list", "logs", "config"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestRun_DryRun(t *testing.T) {
	isolate(t)
	idx := writeIndex(t, sampleIndex)

	out, err := executeCommand(t, "run", "--index", idx, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "python ../MiSeqValPipeline/svelt.py MS P01 cloneA P01 P01/analysis")
	assert.Contains(t, out, "echo pass > P01/call")
	assert.Contains(t, out, "echo 0.97 > P01/score")
	assert.Contains(t, out, "python ../MiSeqValPipeline/svelt.py MS P02 cloneB P02 P02/analysis")
	assert.Contains(t, out, "dry run: 2 pairs, 6 steps")
}

func TestRun_DryRunWithArchiveAndLayout(t *testing.T) {
	isolate(t)
	idx := writeIndex(t, sampleIndex)

	out, err := executeCommand(t, "run", "--index", idx, "--dry-run", "--archive", "--layout", "clone/pool", "--root", "/data/run42")
	require.NoError(t, err)

	assert.Contains(t, out, "(cd /data/run42 && python ../MiSeqValPipeline/svelt.py MS cloneA/P01 cloneA P01 cloneA/P01/analysis)")
	assert.Contains(t, out, "zip -j cloneA/P01/cloneA.ss.zip")
	assert.Contains(t, out, "rm -f cloneA/P01/analysis.bam")
}

func TestRun_IndexErrorsAreFatal(t *testing.T) {
	isolate(t)

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	malformed := writeIndex(t, "cloneA: [not, a, mapping]\n")
	tests := []struct {
		name    string
		index   string
		wantMsg string
	}{
		{"missing file", missing, missing + ": cannot read index: "},
		{"malformed", malformed, malformed + `:1:9: clone "cloneA" must map pool IDs to records`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, "run", "--index", tt.index, "--dry-run")
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMalformedIndex)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantMsg), err.Error())
			var ie *errors.IndexError
			assert.True(t, errors.As(err, &ie))
			assert.Equal(t, ExitFatal, ExitCode(err))
			assert.True(t, ShouldPrint(err))
		})
	}
}

func TestRun_RequiresIndex(t *testing.T) {
	isolate(t)

	_, err := executeCommand(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index")
}

func TestRun_Success(t *testing.T) {
	requireBinary(t, "true")
	isolate(t)
	t.Setenv("SSBATCH_PIPELINE_PROGRAM", "true")
	idx := writeIndex(t, sampleIndex)
	root := pairRoot(t)
	summary := filepath.Join(t.TempDir(), "summary.json")

	out, err := executeCommand(t, "run", "--index", idx, "--root", root, "--quiet", "--summary", summary)
	require.NoError(t, err)
	assert.Contains(t, out, "2 pairs: 2 succeeded, 0 failed")

	call, err := os.ReadFile(filepath.Join(root, "P01", "call"))
	require.NoError(t, err)
	assert.Equal(t, "pass\n", string(call))
	score, err := os.ReadFile(filepath.Join(root, "P02", "score"))
	require.NoError(t, err)
	assert.Equal(t, "0.12\n", string(score))

	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	var s report.Summary
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, 2, s.Counts.Succeeded)
	require.Len(t, s.Pairs, 2)
	assert.Equal(t, "cloneA", s.Pairs[0].Clone)
}

func TestRun_PairFailuresExitOne(t *testing.T) {
	requireBinary(t, "false")
	isolate(t)
	t.Setenv("SSBATCH_PIPELINE_PROGRAM", "false")
	idx := writeIndex(t, sampleIndex)

	out, err := executeCommand(t, "run", "--index", idx, "--root", pairRoot(t), "--json", "--quiet")
	require.Error(t, err)
	assert.Equal(t, ExitFailures, ExitCode(err))
	assert.False(t, ShouldPrint(err), "the report already describes the failures")

	var s report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 2, s.Counts.Failed)
	assert.Equal(t, "PipelineExecutionError", s.Pairs[0].Kind)
}

func TestRun_HaltOnError(t *testing.T) {
	requireBinary(t, "false")
	isolate(t)
	t.Setenv("SSBATCH_PIPELINE_PROGRAM", "false")
	idx := writeIndex(t, sampleIndex)

	out, err := executeCommand(t, "run", "--index", idx, "--root", pairRoot(t), "--halt-on-error", "--json", "--quiet")
	require.Error(t, err)
	assert.Equal(t, ExitFailures, ExitCode(err))

	var s report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1, s.Counts.Failed)
	assert.Equal(t, 1, s.Counts.Skipped)
}

func TestPair_DryRun(t *testing.T) {
	isolate(t)

	out, err := executeCommand(t, "pair", "run42/P01", "cloneA", "P01", "--call", "pass", "--score", "0.97", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "python ../MiSeqValPipeline/svelt.py MS run42/P01 cloneA P01 run42/P01/analysis")
	assert.Contains(t, out, "echo pass > run42/P01/call")
	assert.Contains(t, out, "echo 0.97 > run42/P01/score")
}

func TestPair_IncompleteRecordFails(t *testing.T) {
	isolate(t)

	out, err := executeCommand(t, "pair", "P01", "cloneA", "P01", "--call", "pass", "--json")
	require.Error(t, err)
	assert.Equal(t, ExitFailures, ExitCode(err))

	var s report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	require.Len(t, s.Pairs, 1)
	assert.Equal(t, "IncompletePairRecord", s.Pairs[0].Kind)
	assert.Empty(t, s.Pairs[0].Steps, "nothing runs for an incomplete record")
}

func TestPair_FlagsAreIndependentOfRun(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	require.NoError(t, runCmd.Flags().Set("dry-run", "true"))
	require.NoError(t, runCmd.Flags().Set("json", "true"))

	assert.False(t, pairDryRun)
	assert.False(t, pairJSON)
	assert.False(t, mountDryRun)
	assert.Equal(t, "false", pairCmd.Flags().Lookup("dry-run").Value.String())
	assert.Equal(t, "false", pairCmd.Flags().Lookup("json").Value.String())
	assert.Equal(t, "false", mountCmd.Flags().Lookup("dry-run").Value.String())

	require.NoError(t, pairCmd.Flags().Set("dry-run", "true"))
	assert.True(t, runDryRun)
	assert.True(t, pairDryRun)
	assert.False(t, mountDryRun)
}

func TestMount_DryRunRedactsPassword(t *testing.T) {
	isolate(t)
	t.Setenv("SSBATCH_MOUNT_PASSWORD", "hunter2")

	out, err := executeCommand(t, "mount", "--dir", "/mnt/seq", "--username", "bob", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "mkdir -p /mnt/seq")
	assert.Contains(t, out, "mount -t cifs -o username=bob,password=**** //smb.jbei.org/miseq /mnt/seq")
	assert.NotContains(t, out, "hunter2")
}

func TestMount_MissingDirIsFatal(t *testing.T) {
	isolate(t)

	_, err := executeCommand(t, "mount", "--dry-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMount)
	assert.Equal(t, ExitFatal, ExitCode(err))
}

func TestLogs(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("SSBATCH_LOGGING_DIR", dir)

	logger, err := logging.NewLogger(dir, logging.LevelDebug, logging.DefaultRotationConfig())
	require.NoError(t, err)
	run := logger.WithRun("run-1")
	run.Info("batch started", "pairs", 2)
	run.WithPair("cloneA", "P01").Warn("archive incomplete")
	logger.WithRun("run-2").Error("pair failed")
	require.NoError(t, logger.Close())

	out, err := executeCommand(t, "logs", "--level", "warn", "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[cloneA/P01]")
	assert.Contains(t, out, "archive incomplete")
	assert.NotContains(t, out, "batch started")
	assert.NotContains(t, out, "pair failed")

	out, err = executeCommand(t, "logs", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "pair failed")
	assert.NotContains(t, out, "archive incomplete")
}

func TestLogs_Errors(t *testing.T) {
	isolate(t)

	_, err := executeCommand(t, "logs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.dir")

	t.Setenv("SSBATCH_LOGGING_DIR", t.TempDir())
	_, err = executeCommand(t, "logs", "--level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid level")
}

// iceServer accepts uploads and listings for entry 42.
func iceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/parts/42/shotgunsequences" || r.Header.Get("X-ICE-Authentication-SessionId") != "s3" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `[{"filename":"cloneA.ss.zip"}]`)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUpload(t *testing.T) {
	isolate(t)
	t.Setenv("SSBATCH_ICE_SESSION_ID", "s3")
	srv := iceServer(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "cloneA.ss.zip")
	require.NoError(t, os.WriteFile(good, []byte("zip"), 0644))
	missing := filepath.Join(dir, "cloneB.ss.zip")

	out, err := executeCommand(t, "upload", "--host", srv.URL, "--entry", "42", good)
	require.NoError(t, err)
	assert.Contains(t, out, "+ "+good)
	assert.Contains(t, out, "1 uploaded, 0 failed")

	out, err = executeCommand(t, "upload", "--host", srv.URL, "--entry", "42", good, missing)
	require.Error(t, err)
	assert.Equal(t, ExitFailures, ExitCode(err))
	assert.Contains(t, out, "x "+missing)
	assert.Contains(t, out, "1 uploaded, 1 failed")
}

func TestUpload_RequiresSession(t *testing.T) {
	isolate(t)

	_, err := executeCommand(t, "upload", "--host", "https://ice.example.org", "--entry", "42", "a.ab1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestList(t *testing.T) {
	isolate(t)
	t.Setenv("SSBATCH_ICE_SESSION_ID", "s3")
	srv := iceServer(t)

	out, err := executeCommand(t, "list", "--host", srv.URL, "--entry", "42")
	require.NoError(t, err)
	assert.Contains(t, out, `"filename": "cloneA.ss.zip"`)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"exit error", &ExitError{Code: 7}, 7},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: ExitFailures}), ExitFailures},
		{"index error", errors.NewIndexError("bad", nil), ExitFatal},
		{"mount error", errors.NewMountError("bad", nil), ExitFatal},
		{"other", errors.New("boom"), ExitFailures},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
