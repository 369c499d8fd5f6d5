package tracker

import (
	"context"
	"log/slog"
	"time"
	"tribunal-tracker/lib/timezone"
	"tribunal-tracker/services/notify"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StartDaemons launches the recurring work: the batch reconciliation
// loop and the daily trial expiration sweep. Both stop when ctx is
// cancelled.
func (s *Service) StartDaemons(ctx context.Context) {
	go s.batchDaemon(ctx)
	go s.expirationDaemon(ctx)
}

func (s *Service) batchDaemon(ctx context.Context) {
	ticker := time.NewTicker(s.config.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, err := s.RunBatch(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "batch run failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// expirationDaemon sweeps expired trials once a day at noon, court
// local time, matching when users are most likely to react to the
// message.
func (s *Service) expirationDaemon(ctx context.Context) {
	scheduler := cron.New(cron.WithLocation(timezone.Location))
	_, err := scheduler.AddFunc("0 12 * * *", func() {
		err := s.SweepExpiredUsers(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "expiration sweep failed", "err", err)
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "could not schedule expiration sweep", "err", err)
		return
	}
	scheduler.Start()
	<-ctx.Done()
	scheduler.Stop()
}

// SweepExpiredUsers deactivates every active user whose trial has run
// out and tells them. Deactivation excludes their cases from future
// batches but deletes nothing; an operator can still reactivate the
// row and the history picks up where it left off.
func (s *Service) SweepExpiredUsers(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "SweepExpiredUsers")
	defer span.End()

	expired, err := s.store.ListExpiredActiveUsers(ctx, timezone.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("expired", len(expired)))

	for _, user := range expired {
		err := s.store.DeactivateUser(ctx, user.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		slog.InfoContext(ctx, "deactivated expired user", "user", user.ID)

		err = s.notifier.Notify(ctx, notify.Notification{
			Kind:   notify.KindSubscriptionExpired,
			UserID: user.ID,
		})
		if err != nil {
			slog.WarnContext(
				ctx, "expiration notification failed",
				"user", user.ID,
				"err", err,
			)
		}
	}
	return nil
}
