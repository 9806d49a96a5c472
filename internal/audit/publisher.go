package audit

import (
	"context"
	"log/slog"
)

// AsyncSink decouples sealing from delivery: Publish enqueues and returns,
// a single worker drains the queue into the wrapped sink. Entries are
// dropped, with a log line, when the queue is full — the durable record is
// the store, the sink is a best-effort feed.
type AsyncSink struct {
	next   Sink
	queue  chan *Entry
	logger *slog.Logger
}

func NewAsyncSink(next Sink, buffer int, logger *slog.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncSink{next: next, queue: make(chan *Entry, buffer), logger: logger}
}

func (s *AsyncSink) Publish(_ context.Context, entry *Entry) error {
	select {
	case s.queue <- entry:
	default:
		s.logger.Warn("audit sink queue full, dropping entry", "entry_id", entry.ID.String())
	}
	return nil
}

// Run drains the queue until the context is cancelled. Call it from its own
// goroutine.
func (s *AsyncSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-s.queue:
			if err := s.next.Publish(ctx, entry); err != nil {
				s.logger.ErrorContext(ctx, "failed to deliver audit entry",
					"error", err, "entry_id", entry.ID.String())
			}
		}
	}
}
