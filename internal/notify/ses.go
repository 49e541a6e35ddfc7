package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/loginguard/internal/models"
)

// SESAPI is the part of the SES client used for alert mail
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESChannel mails security events to a fixed operator list
type SESChannel struct {
	client SESAPI
	from   string
	to     []string
}

// NewSESChannel loads the default AWS config for region and returns a channel
func NewSESChannel(ctx context.Context, region, from string, to []string) (*SESChannel, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESChannelWithClient(ses.NewFromConfig(cfg), from, to), nil
}

// NewSESChannelWithClient builds a channel around an existing client
func NewSESChannelWithClient(client SESAPI, from string, to []string) *SESChannel {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &SESChannel{client: client, from: from, to: recipients}
}

func (c *SESChannel) Name() string { return "email" }

// Enabled depends only on the deployment's ALERT_EMAIL_* settings, never on the security config
func (c *SESChannel) Enabled(_ *models.SecurityConfig) bool {
	return c.from != "" && len(c.to) > 0
}

func (c *SESChannel) Deliver(ctx context.Context, _ *models.SecurityConfig, msg Message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(c.from),
		Destination: &types.Destination{
			ToAddresses: c.to,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(msg.Subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(plainText(msg.Text)),
				},
			},
		},
	}

	if _, err := c.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("%w: SES send failed: %v", models.ErrDispatchFailure, err)
	}
	return nil
}

var markdownStripper = strings.NewReplacer(`\_`, "_", `\*`, "*", "\\`", "`", `\[`, "[", "*", "")

// plainText drops the Markdown emphasis meant for chat clients
func plainText(s string) string {
	return markdownStripper.Replace(s)
}
