// Package audit records admin operations as structured log entries.
package audit

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one audited admin operation.
type Entry struct {
	Timestamp   time.Time         `json:"timestamp"`
	Action      string            `json:"action"`
	AdminID     string            `json:"admin_id"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	Status      string            `json:"status"`
	Details     map[string]string `json:"details,omitempty"`
}

// Logger writes audit entries under the "audit" key of a zerolog event.
type Logger struct {
	logger zerolog.Logger
}

func NewLoggerWithZerolog(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.AdminID == "" {
		entry.AdminID = "anonymous"
	}

	event := l.logger.Info()
	if entry.Status == StatusFailure {
		event = l.logger.Warn()
	}
	event.Interface("audit", entry).Msg("admin action")
}

func (l *Logger) LogSuccess(action, adminID, fingerprint, requestID string) {
	l.Log(Entry{
		Action:      action,
		AdminID:     adminID,
		Fingerprint: fingerprint,
		RequestID:   requestID,
		Status:      StatusSuccess,
	})
}

// LogFailure records a rejected operation; reason is usually the error code.
func (l *Logger) LogFailure(action, adminID, fingerprint, requestID, reason string) {
	l.Log(Entry{
		Action:      action,
		AdminID:     adminID,
		Fingerprint: fingerprint,
		RequestID:   requestID,
		Status:      StatusFailure,
		Details:     map[string]string{"reason": reason},
	})
}
