//go:build unix && !linux

package sandbox

import "github.com/doeshing/cmdgate/internal/domain"

// applyLimits is a no-op outside Linux: prlimit cannot adjust another
// process's rlimits there. The wall-clock timeout still applies.
func applyLimits(pid int, limits domain.ResourceLimits) error {
	return nil
}
