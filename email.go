package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wneessen/go-mail"

	"github.com/shaharia-lab/supervisor/internal/archive"
)

// EmailHandler delivers notifications as multipart email over SMTP using the
// go-mail library. The body is sent as HTML; file attachments are
// gzip-compressed in memory and attached as "<name>.gz".
type EmailHandler struct {
	settings EmailSettings
	logger   *slog.Logger

	// send is swappable in tests; the default dials the configured server
	// for exactly one delivery and closes the connection on all paths.
	send func(ctx context.Context, m *mail.Msg) error
}

// NewEmailHandler creates an EmailHandler. A nil logger falls back to
// slog.Default().
func NewEmailHandler(settings EmailSettings, logger *slog.Logger) *EmailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &EmailHandler{settings: settings, logger: logger}
	h.send = h.dialAndSend
	return h
}

// SendMessage builds and delivers the email. Missing required settings abort
// with a warning before any message is built; transport failures are
// returned.
func (h *EmailHandler) SendMessage(ctx context.Context, details *MessageDetails) error {
	s := h.settings
	if s.SMTPServer == "" || s.SMTPPort == 0 || s.FromAddress == "" || len(s.ToAddresses) == 0 {
		h.logger.Warn("required email settings missing or empty; no email sent")
		return nil
	}

	m, err := h.buildMessage(details)
	if err != nil {
		return fmt.Errorf("building email: %w", err)
	}
	return h.send(ctx, m)
}

func (h *EmailHandler) buildMessage(details *MessageDetails) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(h.settings.FromAddress); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(h.settings.ToAddresses...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(h.settings.Prefix + details.Subject)

	body := details.Message + "\n\n<p>" + versionFooter(h.settings.Client) + "</p>"
	m.SetBodyString(mail.TypeTextHTML, body)

	for _, p := range details.Attachments() {
		if p == "" {
			continue
		}
		gz, err := archive.Gzip(p)
		if err != nil {
			// Missing or unreadable attachments are skipped; the
			// notification still goes out.
			continue
		}
		if err := m.AttachReader(filepath.Base(p)+".gz", bytes.NewReader(gz)); err != nil {
			return nil, fmt.Errorf("attaching %q: %w", p, err)
		}
	}
	return m, nil
}

// dialAndSend opens a client, delivers the single message, and closes the
// connection. There is no pooling or retry.
func (h *EmailHandler) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(h.settings.SMTPPort),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(h.settings.Encryption)),
	}
	if h.settings.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(h.settings.Username),
			mail.WithPassword(h.settings.Password),
		)
	}

	c, err := mail.NewClient(h.settings.SMTPServer, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, m)
}

// tlsPolicyFromEncryption converts the encryption setting to a go-mail
// TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
