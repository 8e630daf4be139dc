// Package supervisor installs a last-resort panic hook for a host program
// and fans crash notifications out to pluggable message handlers (console,
// SMTP email, SendGrid, Slack).
//
// Typical use:
//
//	logger, rotator := supervisor.NewReportLog(logPath, slog.LevelDebug)
//	_ = rotator.Rotate() // fresh log per run
//
//	sup := supervisor.New(
//		supervisor.WithLogger(logger),
//		supervisor.WithLogPath(logPath),
//	)
//	sup.AddHandler(supervisor.NewEmailHandler(settings.Email, logger))
//	defer sup.Catch()
//
//	// application work; any panic is formatted, delivered through every
//	// handler, and then re-raised so the process still crashes.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
)

// Supervisor coordinates notification fan-out and hosts the panic hook.
// Handlers are registered during single-threaded setup; AddHandler is not
// synchronized.
type Supervisor struct {
	handlers []MessageHandler
	logger   *slog.Logger
	logPath  string
	timeout  time.Duration
}

// New creates a Supervisor. Unless WithoutConsoleHandler is given, a
// ConsoleHandler is pre-registered so a crash is always at least printed.
func New(opts ...Option) *Supervisor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Supervisor{logger: o.logger, logPath: o.logPath, timeout: o.timeout}
	if !o.noConsole {
		s.handlers = append(s.handlers, NewConsoleHandler())
	}
	return s
}

// AddHandler appends a handler. Delivery order is registration order;
// duplicates are allowed.
func (s *Supervisor) AddHandler(h MessageHandler) {
	s.handlers = append(s.handlers, h)
}

// Handlers returns a copy of the registered handlers in delivery order.
func (s *Supervisor) Handlers() []MessageHandler {
	out := make([]MessageHandler, len(s.handlers))
	copy(out, s.handlers)
	return out
}

// Notify sends details through every registered handler in order. Each
// handler is isolated: an error or panic in one is collected and the
// remaining handlers still run. The returned error joins all per-handler
// failures; nil means every handler succeeded.
func (s *Supervisor) Notify(ctx context.Context, details *MessageDetails) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var errs []error
	for i, h := range s.handlers {
		if err := sendOne(ctx, h, details); err != nil {
			errs = append(errs, fmt.Errorf("handler %d (%T): %w", i, h, err))
		}
	}
	return errors.Join(errs...)
}

// sendOne invokes a single handler with panic recovery so one bad handler
// cannot stop the fan-out.
func sendOne(ctx context.Context, h MessageHandler, details *MessageDetails) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.SendMessage(ctx, details)
}

// Catch is the process-wide last-resort error hook. Defer it at the top of
// main (or of the goroutine being supervised):
//
//	defer sup.Catch()
//
// On a panic it formats the value and stack, logs the origin frame and the
// full trace, builds an ERROR notification (attaching the configured log
// path, if any), fans it out to every handler, and re-panics with the
// original value so the process still terminates as it would have. Only one
// Catch should be active per process.
func (s *Supervisor) Catch() {
	r := recover()
	if r == nil {
		return
	}

	stack := debug.Stack()
	trace := fmt.Sprintf("%v\n\n%s", r, stack)

	if s.logger != nil {
		if frame := innermostFrame(stack); frame != "" {
			s.logger.Error("uncaught panic", "origin", frame)
		}
		s.logger.Error(trace)
	}

	details := NewMessageDetails()
	details.Subject = "ERROR"
	details.Message = trace
	if s.logPath != "" {
		details.AddAttachments(s.logPath)
	}

	// The hook must never mask the original panic, whatever delivery does.
	func() {
		defer func() {
			if nr := recover(); nr != nil && s.logger != nil {
				s.logger.Error("notification fan-out panicked", "value", nr)
			}
		}()
		if err := s.Notify(context.Background(), details); err != nil && s.logger != nil {
			s.logger.Error("notification fan-out failed", "error", err)
		}
	}()

	panic(r)
}

// innermostFrame extracts the file:line of the frame that panicked from a
// runtime stack trace: the location of the first frame after the runtime's
// panic entry.
func innermostFrame(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "panic(") && i+3 < len(lines) {
			loc := strings.TrimSpace(lines[i+3])
			if j := strings.LastIndex(loc, " +0x"); j > 0 {
				loc = loc[:j]
			}
			return loc
		}
	}
	return ""
}
