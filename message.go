package supervisor

import "github.com/google/uuid"

// MessageDetails carries the content of a single notification: a body, a
// subject, and an ordered list of attachment paths. One is created per
// notification event and handed to every handler; handlers must treat it as
// read-only.
type MessageDetails struct {
	// ID identifies this notification in diagnostic logs.
	ID string

	// Subject is the notification subject. Handlers may prepend a
	// configured prefix.
	Subject string

	// Message is the body text. The SMTP handler sends it as HTML, the
	// other handlers as plain text.
	Message string

	attachments []string
}

// NewMessageDetails creates an empty MessageDetails with a fresh ID.
func NewMessageDetails() *MessageDetails {
	return &MessageDetails{ID: uuid.NewString()}
}

// AddAttachments appends paths to the attachment list. Repeated calls
// accumulate; earlier entries are never replaced. Blank entries are tolerated
// here and filtered out by handlers at consumption time.
func (d *MessageDetails) AddAttachments(paths ...string) {
	d.attachments = append(d.attachments, paths...)
}

// Attachments returns a copy of the accumulated attachment paths in the
// order they were added.
func (d *MessageDetails) Attachments() []string {
	out := make([]string, len(d.attachments))
	copy(out, d.attachments)
	return out
}
