package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
)

// MessageHandler is the contract for notification delivery backends. A
// handler that cannot deliver because of missing configuration logs a warning
// and returns nil; transport failures are returned to the caller.
type MessageHandler interface {
	SendMessage(ctx context.Context, details *MessageDetails) error
}

// ConsoleHandler writes the message body to an output stream. It is the
// handler every Supervisor starts with so a crash is always at least printed.
type ConsoleHandler struct {
	// Out receives the message. Defaults to os.Stdout.
	Out io.Writer
}

// NewConsoleHandler creates a ConsoleHandler writing to stdout.
func NewConsoleHandler() *ConsoleHandler {
	return &ConsoleHandler{}
}

// SendMessage writes the message body followed by a newline.
func (h *ConsoleHandler) SendMessage(_ context.Context, details *MessageDetails) error {
	out := h.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintln(out, details.Message)
	return err
}
