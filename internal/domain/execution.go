package domain

import "time"

// IsolationMode is the execution containment strategy, weakest to strongest.
type IsolationMode string

const (
	IsolationNone       IsolationMode = "none"
	IsolationRestricted IsolationMode = "restricted"
	IsolationContainer  IsolationMode = "container"
)

// ParseIsolationMode maps a string onto an IsolationMode, defaulting to
// restricted (the safe middle ground).
func ParseIsolationMode(value string) IsolationMode {
	switch value {
	case "none":
		return IsolationNone
	case "container":
		return IsolationContainer
	default:
		return IsolationRestricted
	}
}

// ResourceLimits constrains the spawned process. Zero values mean no limit.
type ResourceLimits struct {
	CPUSeconds int `yaml:"cpu_seconds" json:"cpu_seconds,omitempty"`
	MemoryMB   int `yaml:"memory_mb" json:"memory_mb,omitempty"`
}

// ExecutionRequest defines what to run and under what constraints.
type ExecutionRequest struct {
	Command        string         `json:"command"`
	Isolation      IsolationMode  `json:"isolation"`
	Timeout        time.Duration  `json:"timeout"`
	Limits         ResourceLimits `json:"limits"`
	WorkingDir     string         `json:"working_dir,omitempty"`
	DisableNetwork bool           `json:"disable_network,omitempty"`
}

// TerminationReason states how an execution ended.
type TerminationReason string

const (
	TerminationCompleted   TerminationReason = "completed"
	TerminationTimeout     TerminationReason = "timeout"
	TerminationKilled      TerminationReason = "killed"
	TerminationUnavailable TerminationReason = "sandbox-unavailable"
)

// ExecutionResult captures the outcome of one sandboxed execution.
// Timeout and kill are result values here, not errors: callers detect them
// via Termination, never via error handling.
type ExecutionResult struct {
	// ExitCode is the process exit code; -1 when the process was killed
	// before exiting on its own.
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Truncated is set when either output stream hit the capture cap.
	Truncated bool `json:"truncated,omitempty"`

	Duration    time.Duration     `json:"duration"`
	Termination TerminationReason `json:"termination"`
	Isolation   IsolationMode     `json:"isolation"`
}
