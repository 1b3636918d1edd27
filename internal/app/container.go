package app

import (
	"context"
	"fmt"

	"github.com/doeshing/cmdgate/internal/application/doctor"
	"github.com/doeshing/cmdgate/internal/application/pipeline"
	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/infrastructure/audit"
	"github.com/doeshing/cmdgate/internal/infrastructure/classify"
	"github.com/doeshing/cmdgate/internal/infrastructure/config"
	"github.com/doeshing/cmdgate/internal/infrastructure/normalize"
	"github.com/doeshing/cmdgate/internal/infrastructure/policy"
	"github.com/doeshing/cmdgate/internal/infrastructure/sandbox"
	"github.com/doeshing/cmdgate/internal/infrastructure/session"
	"github.com/doeshing/cmdgate/internal/pkg/logger"
	"github.com/doeshing/cmdgate/internal/ports"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Pipeline       *pipeline.Service
	DoctorService  *doctor.Service
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Classifier     ports.Classifier
	AuditLog       ports.AuditLog
	Config         domain.Config
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewZap(verbose)

	classifier, err := classify.NewClassifier(cfg.Rules.File)
	if err != nil {
		return nil, fmt.Errorf("load rule table: %w", err)
	}

	auditLog, err := buildAuditLog(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	last, err := auditLog.LastSequence()
	if err != nil {
		return nil, fmt.Errorf("recover audit sequence: %w", err)
	}

	backends := sandbox.NewRegistry(cfg.Execution, cfg.Audit.OutputCapBytes)
	sessions := session.NewManager(cfg.Session.HistoryLimit)

	pipelineService := &pipeline.Service{
		Config:     cfgLoader,
		Normalizer: normalize.New(),
		Classifier: classifier,
		Gate:       policy.NewGate(cfg.Policy),
		Backends:   backends,
		Audit:      auditLog,
		Sequence:   audit.NewCounter(last),
		Sessions:   sessions,
		Logger:     log,
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Classifier:     classifier,
		Backends:       backends,
		Audit:          auditLog,
	}

	return &Container{
		Pipeline:       pipelineService,
		DoctorService:  doctorService,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Classifier:     classifier,
		AuditLog:       auditLog,
		Config:         cfg,
	}, nil
}

func buildAuditLog(settings domain.AuditSettings) (ports.AuditLog, error) {
	if settings.Backend == "file" {
		return audit.NewFileStore(settings.Path), nil
	}
	return audit.NewSQLiteStore(settings.Path)
}

// Close releases held resources.
func (c *Container) Close() error {
	if c.AuditLog != nil {
		return c.AuditLog.Close()
	}
	return nil
}
