package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// Render builds the message for event. Times are shown in loc.
func Render(event models.SecurityEvent, loc *time.Location) (Message, error) {
	if loc == nil {
		loc = time.UTC
	}
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	email := escape(event.Email)
	ip := escape(orUnknown(event.IPAddress))
	ts := at.In(loc).Format(timeLayout)

	var b strings.Builder
	var subject string

	switch event.Type {
	case models.EventFailedLogin:
		subject = "Failed login attempt"
		fmt.Fprintf(&b, "🚨 *Failed Login Attempt*\n\n")
		fmt.Fprintf(&b, "📧 Email: %s\n", email)
		fmt.Fprintf(&b, "🌐 IP: %s\n", ip)
		fmt.Fprintf(&b, "⏰ Time: %s\n", ts)

	case models.EventAccountLocked:
		subject = "Account locked"
		fmt.Fprintf(&b, "🔒 *Account Locked*\n\n")
		fmt.Fprintf(&b, "📧 Email: %s\n", email)
		fmt.Fprintf(&b, "🌐 IP: %s\n", ip)
		fmt.Fprintf(&b, "❌ Failed Attempts: %d\n", event.FailedAttempts)
		fmt.Fprintf(&b, "⏰ Time: %s\n", ts)
		if event.UnlockAt != nil {
			fmt.Fprintf(&b, "\n⚠️ Account unlocks automatically at %s or can be manually unlocked from the admin dashboard.\n",
				event.UnlockAt.In(loc).Format(timeLayout))
		}

	case models.EventManualUnlock:
		subject = "Account manually unlocked"
		fmt.Fprintf(&b, "🔓 *Account Manually Unlocked*\n\n")
		fmt.Fprintf(&b, "📧 Email: %s\n", email)
		fmt.Fprintf(&b, "⏰ Time: %s\n", ts)

	case models.EventTest:
		subject = "Test notification"
		fmt.Fprintf(&b, "✅ *Test Notification*\n\n")
		fmt.Fprintf(&b, "Your security notifications are working correctly!\n\n")
		fmt.Fprintf(&b, "⏰ Time: %s\n", ts)
		fmt.Fprintf(&b, "📧 Admin: %s\n", email)

	default:
		return Message{}, fmt.Errorf("unknown event type %q", event.Type)
	}

	if event.Details != "" && event.Type != models.EventTest {
		fmt.Fprintf(&b, "\n📝 Details: %s\n", escape(event.Details))
	}

	return Message{Subject: "[loginguard] " + subject, Text: b.String()}, nil
}

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
