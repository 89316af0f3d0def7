package port

import (
	"context"
	"time"
)

// LogLevel is the severity attached to a shipped log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is one structured log record mirrored out of the process.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher ships log entries to an external log store. Implementations
// may buffer; Flush is called on shutdown.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error
	PublishBatch(ctx context.Context, entries []LogEntry) error
	Flush(ctx context.Context) error
}
