package logging

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// otelScope is the instrumentation scope of bridged log records.
const otelScope = "github.com/fyrsmithlabs/repopackd"

// redactingCore applies the redaction rules before entries reach a core
// that has no encoder of its own.
type redactingCore struct {
	zapcore.Core
	level    zapcore.LevelEnabler
	redactor *RedactingEncoder
}

func (c *redactingCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	_, fields = c.redactor.filter(zapcore.Entry{}, fields)
	return &redactingCore{Core: c.Core.With(fields), level: c.level, redactor: c.redactor}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent, fields = c.redactor.filter(ent, fields)
	return c.Core.Write(ent, fields)
}

// newOTELCore bridges entries at or above the configured level to
// provider.
func newOTELCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, error) {
	redactor, err := NewRedactingEncoder(nil, cfg.Redaction)
	if err != nil {
		return nil, err
	}
	return &redactingCore{
		Core:     otelzap.NewCore(otelScope, otelzap.WithLoggerProvider(provider)),
		level:    cfg.ZapLevel(),
		redactor: redactor,
	}, nil
}

// WithOTEL returns a logger that also emits every entry to provider.
// A nil provider returns l unchanged.
func (l *Logger) WithOTEL(provider log.LoggerProvider) (*Logger, error) {
	if provider == nil {
		return l, nil
	}
	otelCore, err := newOTELCore(l.config, provider)
	if err != nil {
		return nil, err
	}
	tee := zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, otelCore)
	})
	return &Logger{zap: l.zap.WithOptions(tee), config: l.config}, nil
}
