package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/loginguard/internal/models"
)

func TestRender_AllEventTypes(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	unlockAt := at.Add(time.Hour)

	tests := []struct {
		name     string
		event    models.SecurityEvent
		contains []string
	}{
		{
			name:     "failed login",
			event:    models.SecurityEvent{Type: models.EventFailedLogin, Email: "a@x.com", IPAddress: "10.0.0.1", OccurredAt: at},
			contains: []string{"*Failed Login Attempt*", "a@x.com", "10.0.0.1", "2026-03-01 10:00:00 UTC"},
		},
		{
			name:     "account locked",
			event:    models.SecurityEvent{Type: models.EventAccountLocked, Email: "a@x.com", FailedAttempts: 3, UnlockAt: &unlockAt, OccurredAt: at},
			contains: []string{"*Account Locked*", "Failed Attempts: 3", "IP: Unknown", "2026-03-01 11:00:00 UTC"},
		},
		{
			name:     "manual unlock",
			event:    models.SecurityEvent{Type: models.EventManualUnlock, Email: "a@x.com", Details: "unlocked by admin", OccurredAt: at},
			contains: []string{"*Account Manually Unlocked*", "Details: unlocked by admin"},
		},
		{
			name:     "test",
			event:    models.SecurityEvent{Type: models.EventTest, Email: "admin@x.com", OccurredAt: at},
			contains: []string{"*Test Notification*", "Admin: admin@x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Render(tt.event, time.UTC)
			require.NoError(t, err)
			assert.NotEmpty(t, msg.Subject)
			for _, want := range tt.contains {
				assert.Contains(t, msg.Text, want)
			}
		})
	}
}

func TestRender_EscapesMarkdownInUserInput(t *testing.T) {
	msg, err := Render(models.SecurityEvent{Type: models.EventFailedLogin, Email: "first_last*@x.com"}, time.UTC)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, `first\_last\*@x.com`)
}

func TestRender_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	msg, err := Render(models.SecurityEvent{
		Type:       models.EventManualUnlock,
		Email:      "a@x.com",
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}, loc)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "2026-03-01 17:00:00 WIB")
}

func TestRender_UnknownType(t *testing.T) {
	_, err := Render(models.SecurityEvent{Type: "suspicious"}, time.UTC)
	assert.Error(t, err)
}

func TestPlainText_StripsEmphasis(t *testing.T) {
	got := plainText(`🔒 *Account Locked*` + "\n" + `📧 Email: first\_last@x.com`)
	assert.False(t, strings.Contains(got, "*"))
	assert.Contains(t, got, "first_last@x.com")
}
