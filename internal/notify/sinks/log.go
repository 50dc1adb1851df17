// Package sinks contains the delivery backends registered with the
// notification hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/notify"
)

// LogSink writes every event to the structured log. It doubles as the audit
// trail for detected transitions.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Deliver logs the event with structured fields.
func (s *LogSink) Deliver(_ context.Context, evt notify.Event) error {
	s.logger.Info("transition detected",
		zap.String("event_id", evt.ID.String()),
		zap.String("type", string(evt.Type)),
		zap.String("entity_kind", string(evt.EntityKind)),
		zap.String("entity_id", evt.EntityID),
		zap.String("title", evt.Title),
		zap.String("url", evt.URL),
	)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error { return nil }
