package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// OutboxWorker drains the notification outbox: it claims a batch of pending
// notification events, pushes each to the broker and records the outcome.
// Posting a message only ever writes the outbox row, so a broker outage delays
// delivery instead of failing the post.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run polls the notification outbox until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.drainOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "notification outbox drain failed",
				"module", "events",
				"layer", "adapter",
				"operation", "drain_outbox",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drainOnce claims one batch under a fresh claim token. The token fences
// concurrent workers: state transitions only apply while the claim holds.
func (w *OutboxWorker) drainOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	published := 0
	failed := 0
	deadLettered := 0
	for _, record := range records {
		if record.RetryCount >= w.maxRetries {
			deadLettered++
			_ = w.outbox.MarkDeadLettered(ctx, record.OutboxID, claimToken, "retry threshold reached before publish", now)
			continue
		}

		if err := w.publisher.Publish(ctx, record.EventType, record.PartitionKey, record.Payload); err != nil {
			failed++
			retriesAfterFailure := record.RetryCount + 1
			if retriesAfterFailure >= w.maxRetries {
				deadLettered++
				w.logger.ErrorContext(ctx, "notification dead-lettered",
					"module", "events",
					"layer", "adapter",
					"operation", "publish_notification",
					"outcome", "failure",
					"outbox_id", record.OutboxID,
					"event_type", record.EventType,
					"thread_id", record.PartitionKey,
					"retry_count", retriesAfterFailure,
					"error", err,
				)
				_ = w.outbox.MarkDeadLettered(ctx, record.OutboxID, claimToken, err.Error(), now)
				continue
			}

			w.logger.WarnContext(ctx, "notification publish failed, will retry",
				"module", "events",
				"layer", "adapter",
				"operation", "publish_notification",
				"outcome", "failure",
				"outbox_id", record.OutboxID,
				"event_type", record.EventType,
				"thread_id", record.PartitionKey,
				"retry_count", retriesAfterFailure,
				"error", err,
			)
			_ = w.outbox.MarkFailed(ctx, record.OutboxID, claimToken, err.Error(), now)
			continue
		}
		published++
		_ = w.outbox.MarkPublished(ctx, record.OutboxID, claimToken, now)
	}
	if len(records) > 0 {
		w.logger.InfoContext(ctx, "notification batch drained",
			"module", "events",
			"layer", "adapter",
			"operation", "drain_outbox",
			"outcome", "success",
			"batch_size", len(records),
			"published_count", published,
			"failed_count", failed,
			"dead_lettered_count", deadLettered,
		)
	}
	return nil
}
