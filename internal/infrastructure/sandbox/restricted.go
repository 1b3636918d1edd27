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

// nobodyUID is the conventional unprivileged uid/gid commands are dropped to
// when the process runs as root.
const nobodyUID = 65534

// RestrictedBackend spawns the command with reduced privileges: its own
// process group, a scrubbed environment, a scoped working directory, and
// CPU/memory rlimits applied after spawn.
type RestrictedBackend struct {
	shell     string
	outputCap int
}

// NewRestrictedBackend builds the backend; shell defaults like DirectBackend.
func NewRestrictedBackend(shell string, outputCap int) *RestrictedBackend {
	return &RestrictedBackend{shell: resolveShell(shell), outputCap: outputCap}
}

func (b *RestrictedBackend) Mode() domain.IsolationMode { return domain.IsolationRestricted }

func (b *RestrictedBackend) Available() bool { return true }

// Run executes the request under process restrictions. The working directory
// is always scoped: when the request names none, an isolated temp dir is
// created for the lifetime of the run.
func (b *RestrictedBackend) Run(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	workDir := req.WorkingDir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "cmdgate-run-")
		if err != nil {
			return domain.ExecutionResult{ExitCode: -1, Isolation: b.Mode(), Termination: domain.TerminationUnavailable},
				&domain.SandboxUnavailableError{Mode: b.Mode(), Detail: err.Error()}
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	}

	cmd := exec.Command(b.shell, "-c", req.Command)
	cmd.Dir = workDir
	cmd.Env = scrubbedEnv(workDir)
	attr := &syscall.SysProcAttr{Setpgid: true}
	if os.Geteuid() == 0 {
		attr.Credential = &syscall.Credential{Uid: nobodyUID, Gid: nobodyUID}
	}
	cmd.SysProcAttr = attr

	postStart := func(c *exec.Cmd) error {
		return applyLimits(c.Process.Pid, req.Limits)
	}
	return runCommand(ctx, b.Mode(), req, cmd, b.outputCap, postStart, nil)
}

// scrubbedEnv is the minimal environment handed to restricted commands.
func scrubbedEnv(workDir string) []string {
	return []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + workDir,
		"TMPDIR=" + workDir,
		"LANG=C",
	}
}

var _ ports.ExecutionBackend = (*RestrictedBackend)(nil)
