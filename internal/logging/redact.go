package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/repopackd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Secret creates a Zap field for config.Secret that only reveals whether it is set.
func Secret(key string, val config.Secret) zap.Field {
	if !val.IsSet() {
		return zap.String(key, "")
	}
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val.Value())))
}

// RedactedString creates a Zap field with redacted value and length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactingEncoder wraps a zapcore.Encoder to redact sensitive fields.
//
// Fields attached with With() pass through AddString; per-entry fields pass
// through EncodeEntry. Both paths are filtered.
type RedactingEncoder struct {
	zapcore.Encoder
	redactFields map[string]bool
	redactRegex  []*regexp.Regexp
}

// NewRedactingEncoder wraps an encoder with redaction rules.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}, nil
	}

	fields := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		fields[strings.ToLower(f)] = true
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &RedactingEncoder{
		Encoder:      base,
		redactFields: fields,
		redactRegex:  patterns,
	}, nil
}

func (e *RedactingEncoder) shouldRedactKey(key string) bool {
	return e.redactFields[strings.ToLower(key)]
}

func (e *RedactingEncoder) redactValue(key, val string) (string, bool) {
	if e.shouldRedactKey(key) {
		return redacted, true
	}
	for _, re := range e.redactRegex {
		if re.MatchString(val) {
			return "[REDACTED:pattern]", true
		}
	}
	return val, false
}

// AddString redacts sensitive field names and value patterns.
func (e *RedactingEncoder) AddString(key, val string) {
	v, _ := e.redactValue(key, val)
	e.Encoder.AddString(key, v)
}

// AddReflected redacts the whole value when the key is sensitive.
func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// EncodeEntry filters per-entry fields before delegating.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ent, fields = e.filter(ent, fields)
	return e.Encoder.EncodeEntry(ent, fields)
}

// filter applies the redaction rules to an entry's message and fields.
func (e *RedactingEncoder) filter(ent zapcore.Entry, fields []zapcore.Field) (zapcore.Entry, []zapcore.Field) {
	if len(e.redactFields) == 0 && len(e.redactRegex) == 0 {
		return ent, fields
	}
	for _, re := range e.redactRegex {
		ent.Message = re.ReplaceAllString(ent.Message, redacted)
	}

	filtered := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		filtered[i] = f
		switch f.Type {
		case zapcore.StringType:
			if v, changed := e.redactValue(f.Key, f.String); changed {
				filtered[i] = zap.String(f.Key, v)
			}
		case zapcore.ReflectType, zapcore.ByteStringType, zapcore.BinaryType, zapcore.StringerType:
			if e.shouldRedactKey(f.Key) {
				filtered[i] = zap.String(f.Key, redacted)
			}
		}
	}
	return ent, filtered
}

// Clone creates a copy of the encoder.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:      e.Encoder.Clone(),
		redactFields: e.redactFields,
		redactRegex:  e.redactRegex,
	}
}
