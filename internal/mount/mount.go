// Package mount attaches the remote sample volume before a batch starts.
//
// Mounting is a one-shot OS call: create the mount point, then run
// mount(8) with the share credentials. Any failure is fatal to the batch
// since no sample would be reachable.
package mount

import (
	"context"
	"strings"

	"github.com/Iron-Ham/ssbatch/internal/command"
	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/executor"
	"github.com/Iron-Ham/ssbatch/internal/logging"
)

// DefaultFSType is used when Options.FSType is empty.
const DefaultFSType = "cifs"

// Step names.
const (
	StepMkdir = "mkdir"
	StepMount = "mount"
)

// Options describes the share to mount.
type Options struct {
	Share    string
	Dir      string
	FSType   string
	Username string
	Password string
}

// Validate checks that a share and a mount point are set.
func (o Options) Validate() error {
	var missing []string
	if strings.TrimSpace(o.Share) == "" {
		missing = append(missing, "share")
	}
	if strings.TrimSpace(o.Dir) == "" {
		missing = append(missing, "dir")
	}
	if len(missing) > 0 {
		return errors.NewMountError("missing "+strings.Join(missing, " and "), errors.ErrInvalidInput).
			WithShare(o.Share).
			WithDir(o.Dir)
	}
	return nil
}

// Commands returns the mkdir and mount steps in order. The password is
// listed in Redact so it never reaches logs or dry-run output.
func Commands(o Options) []command.CommandSpec {
	fstype := o.FSType
	if fstype == "" {
		fstype = DefaultFSType
	}

	args := []string{"-t", fstype}
	var opts []string
	if o.Username != "" {
		opts = append(opts, "username="+o.Username)
	}
	if o.Password != "" {
		opts = append(opts, "password="+o.Password)
	}
	if len(opts) > 0 {
		args = append(args, "-o", strings.Join(opts, ","))
	}
	args = append(args, o.Share, o.Dir)

	var redact []string
	if o.Password != "" {
		redact = []string{o.Password}
	}

	return []command.CommandSpec{
		{
			Kind: command.KindMkdir,
			Name: StepMkdir,
			Path: o.Dir,
		},
		{
			Kind:    command.KindExec,
			Name:    StepMount,
			Program: "mount",
			Args:    args,
			Redact:  redact,
		},
	}
}

// Mount creates the mount point and mounts the share. Errors are
// *errors.MountError and therefore batch-fatal.
func Mount(ctx context.Context, exec executor.Executor, o Options, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := o.Validate(); err != nil {
		return err
	}

	for _, spec := range Commands(o) {
		res, err := exec.Execute(ctx, spec)
		if err != nil {
			logger.Error("mount failed", "step", spec.Name, "share", o.Share, "dir", o.Dir, "error", spec.Redacted(err.Error()))
			return errors.NewMountError(spec.Name+" failed", err).
				WithShare(o.Share).
				WithDir(o.Dir).
				WithOutput(spec.Redacted(res.Output))
		}
	}

	logger.Info("share mounted", "share", o.Share, "dir", o.Dir)
	return nil
}
