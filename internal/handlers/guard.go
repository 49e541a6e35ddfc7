package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// GuardService is what the identity provider surface needs from the guard
type GuardService interface {
	Submit(ctx context.Context, sub services.Submission) (models.LockDecision, error)
	Status(ctx context.Context, email string) (models.LockDecision, error)
}

// AttemptRequest is one login submission reported by the identity provider.
// ip_address and user_agent describe the end user, not the caller.
type AttemptRequest struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Success       *bool  `json:"success" validate:"required"`
	FailureReason string `json:"failure_reason" validate:"omitempty,max=128"`
	IPAddress     string `json:"ip_address" validate:"omitempty,ip"`
	UserAgent     string `json:"user_agent" validate:"omitempty,max=512"`
}

// GuardHandler serves the identity provider surface
type GuardHandler struct {
	guard  GuardService
	logger *slog.Logger
}

// NewGuardHandler creates a new GuardHandler
func NewGuardHandler(guard GuardService, logger *slog.Logger) *GuardHandler {
	return &GuardHandler{guard: guard, logger: logger}
}

// SubmitAttempt handles POST /v1/attempts
func (h *GuardHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req AttemptRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	sub := services.Submission{
		Email:     req.Email,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Success:   *req.Success,
	}
	if !sub.Success && req.FailureReason != "" {
		sub.FailureReason = &req.FailureReason
	}

	decision, err := h.guard.Submit(r.Context(), sub)
	if err != nil {
		h.logger.Error("guard evaluation failed",
			slog.String("email", pkglogger.SanitizedEmail(req.Email)),
			slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, models.LockDecision{Allowed: false})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, decision)
}

// LockStatus handles GET /v1/lockouts/{identity}/status
func (h *GuardHandler) LockStatus(w http.ResponseWriter, r *http.Request) {
	email, ok := identityParam(w, r)
	if !ok {
		return
	}

	decision, err := h.guard.Status(r.Context(), email)
	if err != nil {
		h.logger.Error("lock status lookup failed",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, models.LockDecision{Allowed: false})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, decision)
}

// identityParam reads and validates the {identity} path segment
func identityParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "identity")
	email, err := url.PathUnescape(raw)
	if err != nil || validate.Var(email, "required,email,max=254") != nil {
		pkghttp.WriteBadRequest(w, "identity must be a valid email address")
		return "", false
	}
	return services.NormalizeIdentity(email), true
}

// GuardIdentity returns the normalized identity a guard request concerns, taken from
// the {identity} path segment or the email field of the body. The body is left
// readable for the handler. Unreadable requests yield "".
func GuardIdentity(r *http.Request) string {
	if raw := chi.URLParam(r, "identity"); raw != "" {
		email, err := url.PathUnescape(raw)
		if err != nil {
			return ""
		}
		return services.NormalizeIdentity(email)
	}
	if r.Body == nil {
		return ""
	}

	peeked, err := io.ReadAll(io.LimitReader(r.Body, pkghttp.MaxBodyBytes))
	r.Body = readCloser{io.MultiReader(bytes.NewReader(peeked), r.Body), r.Body}
	if err != nil {
		return ""
	}

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(peeked, &body) != nil {
		return ""
	}
	return services.NormalizeIdentity(body.Email)
}

type readCloser struct {
	io.Reader
	io.Closer
}
