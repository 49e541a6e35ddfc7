package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

// LockoutAdmin defines the lock operations available to administrators
type LockoutAdmin interface {
	ListActive(ctx context.Context) ([]*models.AccountLockout, error)
	Unlock(ctx context.Context, email, actor string) error
	Lock(ctx context.Context, email string, duration time.Duration, actor string) (*models.AccountLockout, error)
}

// ConfigAdmin defines the settings operations available to administrators
type ConfigAdmin interface {
	Get(ctx context.Context) (*models.SecurityConfig, error)
	Save(ctx context.Context, actor string, update services.SecurityConfigUpdate) (*models.SecurityConfig, error)
}

// RetentionAdmin defines the on-demand purge operations
type RetentionAdmin interface {
	PurgeOlderThan(ctx context.Context, actor string, days int) (int64, error)
	PurgeConfigured(ctx context.Context, actor string) (int64, error)
}

// OverviewReader defines the read-only admin views
type OverviewReader interface {
	Overview(ctx context.Context) (*services.SecurityOverview, error)
	ListAttempts(ctx context.Context, page, perPage int) (*services.AttemptPage, error)
}

// TestNotifier sends a synchronous test notification
type TestNotifier interface {
	SendTest(ctx context.Context, actor string) error
}

// LockRequest is the body of a manual lock
type LockRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

// CleanupRequest is the body of an on-demand purge. Zero days uses the configured retention.
type CleanupRequest struct {
	Days int `json:"days"`
}

// CleanupResponse reports how many attempts a purge removed
type CleanupResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// AdminHandler handles the administrator security surface
type AdminHandler struct {
	lockouts  LockoutAdmin
	config    ConfigAdmin
	retention RetentionAdmin
	overview  OverviewReader
	notifier  TestNotifier
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	lockouts LockoutAdmin,
	config ConfigAdmin,
	retention RetentionAdmin,
	overview OverviewReader,
	notifier TestNotifier,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		lockouts:  lockouts,
		config:    config,
		retention: retention,
		overview:  overview,
		notifier:  notifier,
		logger:    logger,
	}
}

// ListLockouts handles GET /v1/admin/lockouts
func (h *AdminHandler) ListLockouts(w http.ResponseWriter, r *http.Request) {
	locks, err := h.lockouts.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list lockouts", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to list lockouts")
		return
	}
	if locks == nil {
		locks = []*models.AccountLockout{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"lockouts": locks})
}

// UnlockAccount handles POST /v1/admin/lockouts/{identity}/unlock
func (h *AdminHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	email, ok := identityParam(w, r)
	if !ok {
		return
	}

	if err := h.lockouts.Unlock(r.Context(), email, auth.Actor(r)); err != nil {
		h.logger.Error("failed to unlock account",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to unlock account")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"email": email, "unlocked": true})
}

// LockAccount handles POST /v1/admin/lockouts/{identity}/lock
func (h *AdminHandler) LockAccount(w http.ResponseWriter, r *http.Request) {
	email, ok := identityParam(w, r)
	if !ok {
		return
	}

	var req LockRequest
	if r.ContentLength != 0 {
		if err := pkghttp.DecodeJSON(r, &req); err != nil {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
	}

	lock, err := h.lockouts.Lock(r.Context(), email, time.Duration(req.DurationMinutes)*time.Minute, auth.Actor(r))
	if err != nil {
		h.writeServiceError(w, "failed to lock account", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, lock)
}

// GetConfig handles GET /v1/admin/config. The bot token is always masked.
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Get(r.Context())
	if cfg == nil {
		h.logger.Error("failed to load security config", slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "security config unavailable")
		return
	}
	if err != nil {
		h.logger.Warn("serving default security config", slog.Any("error", err))
	}
	pkghttp.WriteJSON(w, http.StatusOK, cfg.Masked())
}

// UpdateConfig handles PUT /v1/admin/config
func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req services.SecurityConfigUpdate
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cfg, err := h.config.Save(r.Context(), auth.Actor(r), req)
	if err != nil {
		h.writeServiceError(w, "failed to save security config", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, cfg.Masked())
}

// CleanupAttempts handles POST /v1/admin/attempts/cleanup
func (h *AdminHandler) CleanupAttempts(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if r.ContentLength != 0 {
		if err := pkghttp.DecodeJSON(r, &req); err != nil {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
	}

	actor := auth.Actor(r)
	var deleted int64
	var err error
	if req.Days == 0 {
		deleted, err = h.retention.PurgeConfigured(r.Context(), actor)
	} else {
		deleted, err = h.retention.PurgeOlderThan(r.Context(), actor, req.Days)
	}
	if err != nil {
		h.writeServiceError(w, "failed to clean up login attempts", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CleanupResponse{DeletedCount: deleted})
}

// ListAttempts handles GET /v1/admin/attempts?page=&per_page=
func (h *AdminHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		pkghttp.WriteBadRequest(w, "page must be a positive integer")
		return
	}
	perPage, err := queryInt(r, "per_page", services.DefaultAttemptsPerPage)
	if err != nil {
		pkghttp.WriteBadRequest(w, "per_page must be a positive integer")
		return
	}

	out, err := h.overview.ListAttempts(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("failed to list login attempts", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to list login attempts")
		return
	}
	if out.Attempts == nil {
		out.Attempts = []*models.LoginAttempt{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, out)
}

// Overview handles GET /v1/admin/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.overview.Overview(r.Context())
	if err != nil {
		h.logger.Error("failed to build security overview", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "failed to build security overview")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, out)
}

// TestNotification handles POST /v1/admin/notifications/test
func (h *AdminHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	err := h.notifier.SendTest(r.Context(), auth.Actor(r))
	switch {
	case err == nil:
		pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"sent": true})
	case errors.Is(err, models.ErrNotificationNotConfigured):
		pkghttp.WriteError(w, http.StatusConflict, "not_configured", "no notification channel is configured")
	default:
		h.logger.Warn("test notification failed", slog.Any("error", err))
		pkghttp.WriteBadGateway(w, err.Error())
	}
}

// writeServiceError maps service errors to responses
func (h *AdminHandler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		pkghttp.WriteUnprocessable(w, ve.Error())
		return
	}
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteNotFound(w, "resource not found")
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	pkghttp.WriteInternalError(w, message)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}
