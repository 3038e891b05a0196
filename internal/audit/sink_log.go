package audit

import (
	"context"
	"log/slog"
)

// LogSink writes audit events to the structured log. Used when Kafka is not
// configured, and as the sink of last resort in tests.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"session_id", event.SessionID,
		"resident_id", event.ResidentID,
		"ballot_item_id", event.BallotItemID,
		"record_id", event.RecordID,
		"detail", event.Detail,
	)
	return nil
}
