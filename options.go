package supervisor

import (
	"log/slog"
	"time"
)

type options struct {
	logger    *slog.Logger
	logPath   string
	timeout   time.Duration
	noConsole bool
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// Option configures a Supervisor.
type Option func(*options)

// WithLogger sets the diagnostic logger used by the Supervisor and its panic
// hook. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogPath attaches the report log at path to every crash notification.
func WithLogPath(path string) Option {
	return func(o *options) { o.logPath = path }
}

// WithTimeout bounds the whole notification fan-out. Zero (the default)
// means no limit.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithoutConsoleHandler suppresses the ConsoleHandler that New would
// otherwise pre-register.
func WithoutConsoleHandler() Option {
	return func(o *options) { o.noConsole = true }
}
