package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType string
	Actor     string
	Identity  string
	IPAddress string
	Success   bool
	Detail    string
	Metadata  map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log writes one audit record. Identities are masked before they reach the log.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Actor != "" {
		attrs = append(attrs, slog.String("actor", event.Actor))
	}
	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", SanitizedEmail(event.Identity)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLockout records a lock being placed on an identity
func (al *AuditLogger) LogLockout(ctx context.Context, identity, origin, ipAddress string, failedAttempts int, unlockAt time.Time) {
	al.Log(ctx, AuditEvent{
		EventType: "account_locked",
		Actor:     origin,
		Identity:  identity,
		IPAddress: ipAddress,
		Success:   true,
		Metadata: map[string]string{
			"unlock_at":       unlockAt.UTC().Format(time.RFC3339),
			"failed_attempts": strconv.Itoa(failedAttempts),
		},
	})
}

// LogUnlock records an administrator unlock
func (al *AuditLogger) LogUnlock(ctx context.Context, identity, actor string, existed bool) {
	al.Log(ctx, AuditEvent{
		EventType: "manual_unlock",
		Actor:     actor,
		Identity:  identity,
		Success:   true,
		Metadata:  map[string]string{"row_existed": strconv.FormatBool(existed)},
	})
}

// LogConfigChange records a security settings save
func (al *AuditLogger) LogConfigChange(ctx context.Context, actor string, success bool, detail string) {
	al.Log(ctx, AuditEvent{
		EventType: "security_config_saved",
		Actor:     actor,
		Success:   success,
		Detail:    detail,
	})
}

// LogRetentionPurge records a login attempt cleanup
func (al *AuditLogger) LogRetentionPurge(ctx context.Context, actor string, days int, deleted int64, err error) {
	event := AuditEvent{
		EventType: "login_attempts_purged",
		Actor:     actor,
		Success:   err == nil,
		Metadata: map[string]string{
			"older_than_days": strconv.Itoa(days),
			"deleted":         strconv.FormatInt(deleted, 10),
		},
	}
	if err != nil {
		event.Detail = err.Error()
	}
	al.Log(ctx, event)
}
