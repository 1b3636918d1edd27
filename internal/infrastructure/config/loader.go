package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/cmdgate/assets"
	appconfig "github.com/doeshing/cmdgate/internal/application/config"
	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/pkg/filesystem"
	"github.com/doeshing/cmdgate/internal/ports"
)

// FileLoader loads YAML configuration from ~/.cmdgate/config.yaml
// (overridable via CMDGATE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is seeded with the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, assets.DefaultConfigYAML, 0o600); err != nil {
				return domain.Config{}, err
			}
			data = assets.DefaultConfigYAML
		} else {
			return domain.Config{}, err
		}
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	cfg = hydrateDefaults(cfg)
	if err := appconfig.Validate(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Path returns the effective config file location.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("CMDGATE_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".cmdgate", "config.yaml")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = string(domain.ModeStrict)
	}
	if cfg.Execution.Shell == "" {
		cfg.Execution.Shell = "/bin/sh"
	}
	if cfg.Execution.DefaultIsolation == "" {
		cfg.Execution.DefaultIsolation = string(domain.IsolationRestricted)
	}
	if cfg.Execution.ContainerRuntime == "" {
		cfg.Execution.ContainerRuntime = "docker"
	}
	if cfg.Execution.ContainerImage == "" {
		cfg.Execution.ContainerImage = "alpine:3.20"
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.OutputCapBytes == 0 {
		cfg.Audit.OutputCapBytes = 64 * 1024
	}
	if cfg.Session.HistoryLimit == 0 {
		cfg.Session.HistoryLimit = 50
	}
	if cfg.Session.ElevationTTLSeconds == 0 {
		cfg.Session.ElevationTTLSeconds = 300
	}
	if cfg.Session.TokenTTLSeconds == 0 {
		cfg.Session.TokenTTLSeconds = 120
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8787"
	}
	cfg.Limits = hydrateLimits(cfg.Limits)
	return cfg
}

func hydrateLimits(l domain.LimitSettings) domain.LimitSettings {
	def := func(s domain.SeverityLimits, timeout int) domain.SeverityLimits {
		if s.TimeoutSeconds == 0 {
			s.TimeoutSeconds = timeout
		}
		return s
	}
	l.Safe = def(l.Safe, 30)
	l.Low = def(l.Low, 30)
	l.Medium = def(l.Medium, 60)
	l.High = def(l.High, 120)
	l.Critical = def(l.Critical, 120)
	return l
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
