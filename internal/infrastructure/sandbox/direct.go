//go:build unix

package sandbox

import (
	"context"
	"os"
	"os/exec"
	"syscall"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// DirectBackend spawns the command directly on the host shell. It is the
// weakest isolation mode and is only selected for safe/low severities under
// explicit configuration.
type DirectBackend struct {
	shell     string
	outputCap int
}

// NewDirectBackend builds the backend; shell defaults to $SHELL then /bin/sh.
func NewDirectBackend(shell string, outputCap int) *DirectBackend {
	return &DirectBackend{shell: resolveShell(shell), outputCap: outputCap}
}

func (b *DirectBackend) Mode() domain.IsolationMode { return domain.IsolationNone }

func (b *DirectBackend) Available() bool { return true }

// Run executes the request on the host with no containment beyond the
// process group needed for reliable termination.
func (b *DirectBackend) Run(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	cmd := exec.Command(b.shell, "-c", req.Command)
	cmd.Dir = req.WorkingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return runCommand(ctx, b.Mode(), req, cmd, b.outputCap, nil, nil)
}

func resolveShell(shell string) string {
	if shell != "" {
		return shell
	}
	if env := os.Getenv("SHELL"); env != "" {
		return env
	}
	return "/bin/sh"
}

var _ ports.ExecutionBackend = (*DirectBackend)(nil)
