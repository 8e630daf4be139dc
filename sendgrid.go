package supervisor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/shaharia-lab/supervisor/internal/archive"
)

const bannerWidth = 60

// sendGridAPI is the slice of the vendor client the handler needs.
type sendGridAPI interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridHandler delivers notifications through the SendGrid HTTP API. File
// and directory attachments are zipped in memory and attached base64-encoded;
// attachment problems are surfaced to the recipient in a banner prepended to
// the body rather than aborting delivery.
type SendGridHandler struct {
	settings SendGridSettings
	logger   *slog.Logger
	api      sendGridAPI
}

// NewSendGridHandler creates a SendGridHandler. A nil logger falls back to
// slog.Default().
func NewSendGridHandler(settings SendGridSettings, logger *slog.Logger) *SendGridHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridHandler{
		settings: settings,
		logger:   logger,
		api:      sendgrid.NewSendClient(settings.APIKey),
	}
}

// SendMessage builds and posts the API payload. Missing from/to settings
// abort with a warning before the client is touched. A 400 or 401 response
// is downgraded to a warning; any other non-success status or transport
// error is returned.
func (h *SendGridHandler) SendMessage(ctx context.Context, details *MessageDetails) error {
	s := h.settings
	if s.FromAddress == "" || len(s.ToAddresses) == 0 {
		h.logger.Warn("required sendgrid settings missing or empty; no email sent")
		return nil
	}

	valid, warnings := verifyAttachments(details.Attachments())

	body := details.Message
	if len(warnings) > 0 {
		body = warningBanner(warnings) + body
	}
	body += "\n\n" + versionFooter(s.Client)

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", s.FromAddress))
	m.Subject = s.Prefix + details.Subject

	p := sgmail.NewPersonalization()
	for _, to := range s.ToAddresses {
		p.AddTos(sgmail.NewEmail("", to))
	}
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))

	for _, path := range valid {
		data, err := archive.ZipPath(path)
		if err != nil {
			h.logger.Warn("could not package attachment", "path", path, "error", err)
			continue
		}
		a := sgmail.NewAttachment()
		a.SetFilename(filepath.Base(filepath.Clean(path)) + ".zip")
		a.SetType("application/zip")
		a.SetDisposition("attachment")
		a.SetContent(base64.StdEncoding.EncodeToString(data))
		m.AddAttachment(a)
	}

	resp, err := h.api.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		h.logger.Warn("sendgrid rejected the request; might be missing a required Mail component; no e-mail sent",
			"status", resp.StatusCode)
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		h.logger.Warn("sendgrid authorization failed; check API key", "status", resp.StatusCode)
		return nil
	case resp.StatusCode >= http.StatusBadRequest:
		return &StatusError{Service: "sendgrid", StatusCode: resp.StatusCode, Body: resp.Body}
	}

	h.logger.Debug("sendgrid accepted the message", "status", resp.StatusCode, "id", details.ID)
	return nil
}

// verifyAttachments splits candidates into packageable paths and
// human-readable warning lines for everything else. Blank entries are
// dropped outright.
func verifyAttachments(candidates []string) (valid, warnings []string) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		_, err := os.Stat(c)
		switch {
		case err == nil:
			valid = append(valid, c)
		case errors.Is(err, fs.ErrNotExist):
			warnings = append(warnings, fmt.Sprintf("* Attachment %q does not exist", c))
		default:
			warnings = append(warnings, fmt.Sprintf("* Cannot read attachment %q", c))
		}
	}
	return valid, warnings
}

// warningBanner formats attachment warnings so the recipient sees them
// in-band, ahead of the message body.
func warningBanner(warnings []string) string {
	rule := strings.Repeat("=", bannerWidth)
	return rule + "\n" + strings.Join(warnings, "\n") + "\n" + rule + "\n\n"
}
