// Package audit turns the engine's generic security-event hook into a
// structured zerolog line, masking anything that looks like an email
// address before it reaches the sink.
package audit

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Logger adapts a zerolog.Logger into the shape auth.Audit expects:
// func(action string, fields map[string]string).
type Logger struct {
	log zerolog.Logger
}

// New tags every line this Logger emits with audit=true so audit
// events are easy to filter out of general application logs.
func New(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Bool("audit", true).Logger()}
}

// Log is the auth.Audit-shaped hook: call it as Audit(l.Log) when
// wiring the engine.
func (l *Logger) Log(action string, fields map[string]string) {
	evt := l.log.Info().Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := fields[k]
		if looksLikeEmailField(k) {
			v = maskEmail(v)
		}
		evt = evt.Str(k, v)
	}
	evt.Msg("audit")
}

func looksLikeEmailField(key string) bool {
	key = strings.ToLower(key)
	return key == "email" || strings.HasSuffix(key, "_email")
}

// maskEmail keeps the first one or two characters of the local part
// and the full domain, masking the rest, so audit logs stay readable
// without printing full addresses.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]

	keep := 1
	if len(local) > 4 {
		keep = 2
	}
	if keep >= len(local) {
		return "***" + domain
	}
	return local[:keep] + strings.Repeat("*", len(local)-keep) + domain
}
