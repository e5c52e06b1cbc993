package events

import (
	"log/slog"
)

// SlogSink writes an audit line per event using structured logging.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over the given logger; nil selects the default
// logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Notify implements Sink.
func (s *SlogSink) Notify(event Event) {
	attrs := []any{"kind", string(event.Kind)}

	if event.Object != nil {
		attrs = append(attrs, "dn", event.Object.DN)
	}
	if event.User != nil {
		attrs = append(attrs, "username", event.User.Username, "userId", event.User.ID)
	}
	if len(event.Deleted) > 0 {
		attrs = append(attrs, "deleted", len(event.Deleted))
	}
	if event.Summary != nil {
		attrs = append(attrs,
			"candidates", event.Summary.Candidates,
			"created", event.Summary.Created,
			"updated", event.Summary.Updated,
			"restored", event.Summary.Restored,
			"softDeleted", event.Summary.SoftDeleted,
			"deletedMissing", event.Summary.DeletedMissing,
			"failed", event.Summary.Failed)
	}

	if event.Err != nil {
		attrs = append(attrs, "err", event.Err)
		s.logger.Error("directory import event", attrs...)
		return
	}

	s.logger.Info("directory import event", attrs...)
}
