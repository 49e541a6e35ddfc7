package models

import "time"

// Bounds for admin-supplied security settings
const (
	MinMaxFailedAttempts = 3
	MaxMaxFailedAttempts = 10

	MinLockoutDurationMinutes = 15
	MaxLockoutDurationMinutes = 1440

	MinSessionTimeoutMinutes = 15
	MaxSessionTimeoutMinutes = 1440

	MinLogRetentionDays = 7
	MaxLogRetentionDays = 365
)

// FailureWindow is the trailing span over which failed attempts are counted.
// It is fixed and independent of the configurable lockout duration.
const FailureWindow = time.Hour

// SecurityConfig is the singleton set of tunable thresholds
type SecurityConfig struct {
	ID                     int       `db:"id" json:"-"`
	TelegramBotToken       *string   `db:"telegram_bot_token" json:"telegram_bot_token,omitempty"`
	TelegramChatID         *string   `db:"telegram_chat_id" json:"telegram_chat_id,omitempty"`
	MaxFailedAttempts      int       `db:"max_failed_attempts" json:"max_failed_attempts"`
	LockoutDurationMinutes int       `db:"lockout_duration_minutes" json:"lockout_duration_minutes"`
	SessionTimeoutMinutes  int       `db:"session_timeout_minutes" json:"session_timeout_minutes"`
	LogRetentionDays       int       `db:"log_retention_days" json:"log_retention_days"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSecurityConfig is used when no row has been saved yet
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		ID:                     1,
		MaxFailedAttempts:      5,
		LockoutDurationMinutes: 60,
		SessionTimeoutMinutes:  30,
		LogRetentionDays:       90,
	}
}

// LockoutDuration returns the configured lock span
func (c *SecurityConfig) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationMinutes) * time.Minute
}

// HasTelegram reports whether both channel credentials are present
func (c *SecurityConfig) HasTelegram() bool {
	return c.TelegramBotToken != nil && *c.TelegramBotToken != "" &&
		c.TelegramChatID != nil && *c.TelegramChatID != ""
}

// Masked returns a copy safe to hand to the admin API: the bot token is reduced to its last four characters.
func (c *SecurityConfig) Masked() *SecurityConfig {
	out := *c
	if c.TelegramBotToken != nil && *c.TelegramBotToken != "" {
		tok := *c.TelegramBotToken
		masked := "****"
		if len(tok) > 8 {
			masked += tok[len(tok)-4:]
		}
		out.TelegramBotToken = &masked
	}
	return &out
}
