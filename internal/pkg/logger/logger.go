package logger

import (
	"go.uber.org/zap"
)

// ZapLogger routes the structured logging port onto zap.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZap creates a ZapLogger. Verbose enables the development config with
// debug output; otherwise only warnings and errors reach stderr.
func NewZap(verbose bool) *ZapLogger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return &ZapLogger{s: l.Sugar()}
}

// NewNop creates a logger that discards everything. Used in tests.
func NewNop() *ZapLogger {
	return &ZapLogger{s: zap.NewNop().Sugar()}
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.s.Debugw(msg, flatten(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.s.Infow(msg, flatten(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.s.Warnw(msg, flatten(fields)...)
}

func (l *ZapLogger) Error(msg string, err error, fields map[string]interface{}) {
	kv := flatten(fields)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	l.s.Errorw(msg, kv...)
}

func flatten(fields map[string]interface{}) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
