package services

import (
	"context"
	"strings"

	"github.com/BradenHooton/loginguard/internal/models"
)

// Delayer pads a response so denials are not distinguishable by latency
type Delayer interface {
	Wait(success bool)
}

// Submission is one login attempt as reported by the identity provider
type Submission struct {
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason *string
}

// LoginGuard is the entry point for the identity provider: every submission is
// recorded and then evaluated against the lock state.
type LoginGuard struct {
	recorder *AttemptRecorder
	lockouts *LockoutService
	delay    Delayer
}

// NewLoginGuard creates a new LoginGuard. delay may be nil.
func NewLoginGuard(recorder *AttemptRecorder, lockouts *LockoutService, delay Delayer) *LoginGuard {
	return &LoginGuard{
		recorder: recorder,
		lockouts: lockouts,
		delay:    delay,
	}
}

// NormalizeIdentity lowercases and trims an email so one person maps to one lock row
func NormalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Submit records the attempt and returns the lock decision for it
func (g *LoginGuard) Submit(ctx context.Context, sub Submission) (models.LockDecision, error) {
	email := NormalizeIdentity(sub.Email)
	g.recorder.Record(ctx, email, sub.IPAddress, sub.UserAgent, sub.Success, sub.FailureReason)

	decision, err := g.lockouts.CheckAndRecord(ctx, email, sub.IPAddress, sub.Success)
	if !decision.Allowed && g.delay != nil {
		g.delay.Wait(false)
	}
	return decision, err
}

// Status reports the current lock state of an identity
func (g *LoginGuard) Status(ctx context.Context, email string) (models.LockDecision, error) {
	return g.lockouts.Status(ctx, NormalizeIdentity(email))
}
