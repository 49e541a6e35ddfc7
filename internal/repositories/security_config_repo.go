package repositories

import (
	"context"

	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/models"
)

// SecurityConfigRepository reads and writes the singleton security_config row
type SecurityConfigRepository struct {
	db *database.DB
}

// NewSecurityConfigRepository creates a new SecurityConfigRepository
func NewSecurityConfigRepository(db *database.DB) *SecurityConfigRepository {
	return &SecurityConfigRepository{db: db}
}

// Get returns the stored config, or models.ErrNotFound when none has been saved
func (r *SecurityConfigRepository) Get(ctx context.Context) (*models.SecurityConfig, error) {
	query := `
		SELECT id, telegram_bot_token, telegram_chat_id, max_failed_attempts,
		       lockout_duration_minutes, session_timeout_minutes, log_retention_days, updated_at
		FROM security_config
		WHERE id = 1
	`

	c := &models.SecurityConfig{}
	err := r.db.Querier(ctx).QueryRow(ctx, query).Scan(
		&c.ID, &c.TelegramBotToken, &c.TelegramChatID, &c.MaxFailedAttempts,
		&c.LockoutDurationMinutes, &c.SessionTimeoutMinutes, &c.LogRetentionDays, &c.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return c, nil
}

// Save writes cfg as the singleton row and returns the stored values
func (r *SecurityConfigRepository) Save(ctx context.Context, cfg *models.SecurityConfig) (*models.SecurityConfig, error) {
	query := `
		INSERT INTO security_config (id, telegram_bot_token, telegram_chat_id, max_failed_attempts,
		                             lockout_duration_minutes, session_timeout_minutes, log_retention_days, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			telegram_bot_token = EXCLUDED.telegram_bot_token,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			max_failed_attempts = EXCLUDED.max_failed_attempts,
			lockout_duration_minutes = EXCLUDED.lockout_duration_minutes,
			session_timeout_minutes = EXCLUDED.session_timeout_minutes,
			log_retention_days = EXCLUDED.log_retention_days,
			updated_at = NOW()
		RETURNING id, telegram_bot_token, telegram_chat_id, max_failed_attempts,
		          lockout_duration_minutes, session_timeout_minutes, log_retention_days, updated_at
	`

	out := &models.SecurityConfig{}
	err := r.db.Querier(ctx).QueryRow(ctx, query,
		cfg.TelegramBotToken, cfg.TelegramChatID, cfg.MaxFailedAttempts,
		cfg.LockoutDurationMinutes, cfg.SessionTimeoutMinutes, cfg.LogRetentionDays,
	).Scan(
		&out.ID, &out.TelegramBotToken, &out.TelegramChatID, &out.MaxFailedAttempts,
		&out.LockoutDurationMinutes, &out.SessionTimeoutMinutes, &out.LogRetentionDays, &out.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return out, nil
}
