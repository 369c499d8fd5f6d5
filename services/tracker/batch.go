package tracker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"tribunal-tracker/lib/records"
	"tribunal-tracker/lib/timezone"
	"tribunal-tracker/services/notify"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// BatchSummary aggregates one scheduled run over every active
// subscription.
type BatchSummary struct {
	// Recorded, Skipped and Failed count finished reconciliations by
	// outcome.
	Recorded int64
	Skipped  int64
	Failed   int64
	// Deferred counts subscriptions the deadline cut off before their
	// check started; they are picked up by the next run.
	Deferred int64
}

// RunBatch reconciles every active subscription once. Work is spread
// over a bounded worker pool, every fetch is paced by the shared rate
// limiter, and the whole run is cut off at the configured deadline so
// one run can never bleed into the next.
func (s *Service) RunBatch(ctx context.Context) (BatchSummary, error) {
	ctx, span := tracer.Start(ctx, "RunBatch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.config.BatchDeadline)
	defer cancel()

	subs, err := s.store.ListActiveSubscriptions(ctx, timezone.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return BatchSummary{}, err
	}
	span.SetAttributes(attribute.Int("subscriptions", len(subs)))

	var summary BatchSummary
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.Workers)

	for _, sub := range subs {
		if ctx.Err() != nil {
			atomic.AddInt64(&summary.Deferred, 1)
			continue
		}
		group.Go(func() error {
			err := s.limiter.Wait(ctx)
			if err != nil {
				// deadline hit while queued for the rate limiter
				atomic.AddInt64(&summary.Deferred, 1)
				return nil
			}
			s.runBatchCase(ctx, sub, &summary)
			return nil
		})
	}
	_ = group.Wait()

	span.SetAttributes(
		attribute.Int64("recorded", summary.Recorded),
		attribute.Int64("skipped", summary.Skipped),
		attribute.Int64("failed", summary.Failed),
		attribute.Int64("deferred", summary.Deferred),
	)
	slog.InfoContext(
		ctx, "batch finished",
		"subscriptions", len(subs),
		"recorded", summary.Recorded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"deferred", summary.Deferred,
	)
	return summary, nil
}

func (s *Service) runBatchCase(ctx context.Context, sub Subscription, summary *BatchSummary) {
	result := s.Reconcile(ctx, sub)

	switch result.Outcome {
	case OutcomeRecorded:
		atomic.AddInt64(&summary.Recorded, 1)
		s.notifyChange(ctx, sub, result.Records)
	case OutcomeSkipped:
		atomic.AddInt64(&summary.Skipped, 1)
	default:
		atomic.AddInt64(&summary.Failed, 1)
		slog.WarnContext(
			ctx, "reconciliation failed",
			"subscription", sub.ID,
			"case", sub.Locator.String(),
			"reason", result.Reason,
			"err", result.Err,
		)
	}
}

// notifyChange delivers a change notification. Delivery failures are
// logged and dropped: the history append already happened and must not
// be rolled back or retried into duplicates.
func (s *Service) notifyChange(ctx context.Context, sub Subscription, rs records.RecordSet) {
	err := s.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindCaseChanged,
		UserID:    sub.UserID,
		CaseLabel: sub.Label,
		Records:   rs.Tail(s.config.NotifyTail),
	})
	if err != nil {
		slog.WarnContext(
			ctx, "notification delivery failed",
			"user", sub.UserID,
			"label", sub.Label,
			"err", err,
		)
	}
}
