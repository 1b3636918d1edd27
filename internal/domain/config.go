package domain

// Config mirrors ~/.cmdgate/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Policy              PolicySettings    `yaml:"policy"`
	Rules               RulesSettings     `yaml:"rules"`
	Execution           ExecutionSettings `yaml:"execution"`
	Limits              LimitSettings     `yaml:"limits"`
	Audit               AuditSettings     `yaml:"audit"`
	Session             SessionSettings   `yaml:"session"`
	Server              ServerSettings    `yaml:"server"`
}

// PolicySettings controls the gate posture.
type PolicySettings struct {
	// Mode is "strict" or "permissive". Strict forces confirmation even for
	// safe and low severities; permissive opens the elevation path for
	// critical commands.
	Mode string `yaml:"mode"`

	// AdminOverride lets critical denials be overridden; every use of the
	// override is marked in the audit trail.
	AdminOverride bool `yaml:"admin_override"`
}

// RulesSettings locates the rule table.
type RulesSettings struct {
	// File is the YAML rule table path; when unset the embedded defaults
	// are used.
	File string `yaml:"file"`
}

// ExecutionSettings controls how commands are run.
type ExecutionSettings struct {
	Shell string `yaml:"shell"`

	// DefaultIsolation is "none", "restricted" or "container".
	DefaultIsolation string `yaml:"default_isolation"`

	// AllowDirect permits the "none" isolation mode for safe/low commands.
	// Without this explicit opt-in everything runs at least restricted.
	AllowDirect bool `yaml:"allow_direct"`

	// ContainerRuntime is the container CLI to drive ("docker" or "podman").
	ContainerRuntime string `yaml:"container_runtime"`

	// ContainerImage is the image used for containerized execution.
	ContainerImage string `yaml:"container_image"`

	WorkingDir string `yaml:"working_dir"`
}

// SeverityLimits bundles the per-severity execution constraints.
type SeverityLimits struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	CPUSeconds     int `yaml:"cpu_seconds"`
	MemoryMB       int `yaml:"memory_mb"`
}

// LimitSettings holds per-severity timeouts and resource ceilings.
type LimitSettings struct {
	Safe     SeverityLimits `yaml:"safe"`
	Low      SeverityLimits `yaml:"low"`
	Medium   SeverityLimits `yaml:"medium"`
	High     SeverityLimits `yaml:"high"`
	Critical SeverityLimits `yaml:"critical"`
}

// For returns the limits configured for a severity.
func (l LimitSettings) For(level RiskLevel) SeverityLimits {
	switch level {
	case RiskLow:
		return l.Low
	case RiskMedium:
		return l.Medium
	case RiskHigh:
		return l.High
	case RiskCritical:
		return l.Critical
	default:
		return l.Safe
	}
}

// AuditSettings selects the audit log backend.
type AuditSettings struct {
	// Backend is "sqlite" or "file".
	Backend string `yaml:"backend"`

	// Path overrides the default store location under ~/.cmdgate/audit.
	Path string `yaml:"path"`

	// OutputCapBytes caps stdout/stderr retained per record.
	OutputCapBytes int `yaml:"output_cap_bytes"`
}

// SessionSettings bounds per-session state.
type SessionSettings struct {
	HistoryLimit        int `yaml:"history_limit"`
	ElevationTTLSeconds int `yaml:"elevation_ttl_seconds"`
	TokenTTLSeconds     int `yaml:"token_ttl_seconds"`
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Addr string `yaml:"addr"`
}
