//go:build unix

package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// ContainerOptions configures the containerized backend.
type ContainerOptions struct {
	// Runtime is the container CLI binary ("docker" or "podman").
	Runtime string
	// Image runs the command; it must carry /bin/sh.
	Image     string
	OutputCap int
}

// ContainerBackend runs the command inside a disposable container with full
// namespace/cgroup isolation. On timeout or cancellation the whole container
// is forcibly removed, not just the client process.
type ContainerBackend struct {
	opts ContainerOptions
}

// NewContainerBackend builds the backend with docker/alpine defaults.
func NewContainerBackend(opts ContainerOptions) *ContainerBackend {
	if opts.Runtime == "" {
		opts.Runtime = "docker"
	}
	if opts.Image == "" {
		opts.Image = "alpine:3.20"
	}
	if opts.OutputCap <= 0 {
		opts.OutputCap = DefaultOutputCap
	}
	return &ContainerBackend{opts: opts}
}

func (b *ContainerBackend) Mode() domain.IsolationMode { return domain.IsolationContainer }

// Available reports whether the configured container runtime is reachable.
func (b *ContainerBackend) Available() bool {
	_, err := exec.LookPath(b.opts.Runtime)
	return err == nil
}

// Run executes the request in a one-shot container. Network is disabled when
// the request asks for it; CPU and memory ceilings map onto runtime flags.
func (b *ContainerBackend) Run(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	if !b.Available() {
		return domain.ExecutionResult{ExitCode: -1, Isolation: b.Mode(), Termination: domain.TerminationUnavailable},
			&domain.SandboxUnavailableError{Mode: b.Mode(), Detail: b.opts.Runtime + " not found in PATH"}
	}

	name := "cmdgate-" + uuid.NewString()
	args := []string{"run", "--rm", "--name", name, "--init"}
	if req.DisableNetwork {
		args = append(args, "--network", "none")
	}
	if req.Limits.MemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", req.Limits.MemoryMB))
	}
	if req.Limits.CPUSeconds > 0 {
		// No direct cpu-seconds flag; a single-core cap bounds the burn rate
		// and the wall-clock timeout bounds the total.
		args = append(args, "--cpus", "1")
	}
	if req.WorkingDir != "" {
		args = append(args, "-v", req.WorkingDir+":/work", "-w", "/work")
	}
	args = append(args, b.opts.Image, "/bin/sh", "-c", req.Command)

	cmd := exec.Command(b.opts.Runtime, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	onKill := func() { b.removeContainer(name) }
	return runCommand(ctx, b.Mode(), req, cmd, b.opts.OutputCap, nil, onKill)
}

// removeContainer force-removes the named container after the client has
// been killed, so the workload does not outlive the request.
func (b *ContainerBackend) removeContainer(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, b.opts.Runtime, "rm", "-f", name).Run()
}

var _ ports.ExecutionBackend = (*ContainerBackend)(nil)
