package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// slackTextLimit is Slack's maximum length for a section text object.
const slackTextLimit = 3000

// SlackHandler delivers notifications to a Slack channel through an incoming
// webhook, formatted as Block Kit blocks.
type SlackHandler struct {
	settings SlackSettings
	logger   *slog.Logger
}

// NewSlackHandler creates a SlackHandler. A nil logger falls back to
// slog.Default().
func NewSlackHandler(settings SlackSettings, logger *slog.Logger) *SlackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackHandler{settings: settings, logger: logger}
}

// SendMessage posts the notification to the configured webhook. An empty
// webhook URL aborts with a warning; transport failures are returned.
func (h *SlackHandler) SendMessage(ctx context.Context, details *MessageDetails) error {
	if h.settings.WebhookURL == "" {
		h.logger.Warn("slack webhook URL missing; no message sent")
		return nil
	}

	subject := h.settings.Prefix + details.Subject

	text := details.Message
	if len(text) > slackTextLimit {
		text = text[:slackTextLimit-3] + "..."
	}
	if text == "" {
		// Slack rejects empty text objects.
		text = " "
	}

	var blocks []slack.Block
	if subject != "" {
		blocks = append(blocks,
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, subject, false, false)))
	}
	blocks = append(blocks,
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, versionFooter(h.settings.Client), false, false)),
	)

	msg := &slack.WebhookMessage{
		Text:   subject,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
	if err := slack.PostWebhookContext(ctx, h.settings.WebhookURL, msg); err != nil {
		return fmt.Errorf("posting slack webhook: %w", err)
	}
	return nil
}
