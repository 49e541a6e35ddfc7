// Package notify renders security events and delivers them to outbound channels.
package notify

import (
	"context"

	"github.com/BradenHooton/loginguard/internal/models"
)

// Message is a rendered notification
type Message struct {
	Subject string
	Text    string
}

// Channel is one outbound delivery path. Enabled is consulted before every
// delivery since credentials may live in the mutable security config.
type Channel interface {
	Name() string
	Enabled(cfg *models.SecurityConfig) bool
	Deliver(ctx context.Context, cfg *models.SecurityConfig, msg Message) error
}
