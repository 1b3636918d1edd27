//go:build linux

package sandbox

import (
	"golang.org/x/sys/unix"

	"github.com/doeshing/cmdgate/internal/domain"
)

// applyLimits attaches CPU and address-space rlimits to an already-started
// process. Zero values leave the inherited limits untouched.
func applyLimits(pid int, limits domain.ResourceLimits) error {
	if limits.CPUSeconds > 0 {
		lim := unix.Rlimit{Cur: uint64(limits.CPUSeconds), Max: uint64(limits.CPUSeconds)}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &lim, nil); err != nil {
			return err
		}
	}
	if limits.MemoryMB > 0 {
		bytes := uint64(limits.MemoryMB) * 1024 * 1024
		lim := unix.Rlimit{Cur: bytes, Max: bytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &lim, nil); err != nil {
			return err
		}
	}
	return nil
}
