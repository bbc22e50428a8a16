//go:build unix

package executor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shSpec(t *testing.T, script string) command.CommandSpec {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return command.CommandSpec{
		Kind:    command.KindExec,
		Name:    command.StepPipeline,
		Program: "sh",
		Args:    []string{"-c", script},
	}
}

func TestLocal_ExecSuccess(t *testing.T) {
	dir := t.TempDir()
	spec := shSpec(t, "echo out; echo err >&2; pwd > where")
	spec.Dir = dir

	res, err := NewLocal().Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")

	where, err := os.ReadFile(filepath.Join(dir, "where"))
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(where)))
	assert.Equal(t, resolved, got, "child must run in spec.Dir")
}

func TestLocal_ExecNonZeroExit(t *testing.T) {
	res, err := NewLocal().Execute(context.Background(), shSpec(t, "echo failing; exit 3"))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "failing\n", res.Output)
}

func TestLocal_ExecMissingProgram(t *testing.T) {
	res, err := NewLocal().Execute(context.Background(), command.CommandSpec{
		Kind:    command.KindExec,
		Program: "ssbatch-definitely-not-a-binary",
	})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestLocal_ExecTimeout(t *testing.T) {
	spec := shSpec(t, "sleep 10")
	spec.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := NewLocal().Execute(context.Background(), spec)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, spec.Timeout, timeoutErr.Timeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLocal_ExecCanceledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// The grandchild sleep shares the process group and is killed with it.
	_, err := NewLocal().Execute(ctx, shSpec(t, "sleep 10 & wait"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocal_ExecOutputCapAndRedaction(t *testing.T) {
	spec := shSpec(t, "printf 'aaaaaaaaaa'; printf 'password=hunter2'")
	spec.Redact = []string{"hunter2"}

	res, err := NewLocal(WithMaxOutputBytes(16)).Execute(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Output, "[output truncated]\n"))
	assert.True(t, strings.HasSuffix(res.Output, "password=****"), "output = %q", res.Output)
	assert.NotContains(t, res.Output, "hunter2")
}
