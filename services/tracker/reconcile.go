package tracker

import (
	"context"
	"errors"
	"tribunal-tracker/lib/records"
	"tribunal-tracker/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Outcome int

const (
	// OutcomeRecorded means new docket activity was appended to the
	// history.
	OutcomeRecorded Outcome = iota
	// OutcomeSkipped means the check completed but there was nothing
	// to record.
	OutcomeSkipped
	// OutcomeFailed means the check could not complete; the stored
	// state was not modified and the case is retried on the next
	// scheduled batch.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

const (
	ReasonChanged      = "changed"
	ReasonNoChange     = "no_change"
	ReasonNoData       = "no_data"
	ReasonCaseNotFound = "case_not_found"
	ReasonFetchError   = "fetch_error"
	ReasonStoreError   = "store_error"
)

// ReconcileResult is the complete account of one check of one
// expediente.
type ReconcileResult struct {
	Outcome Outcome
	Reason  string
	// Records holds the fetched docket when Outcome is
	// OutcomeRecorded.
	Records records.RecordSet
	// Err is set when Outcome is OutcomeFailed.
	Err error
}

// Reconcile fetches the expediente's current docket and brings the
// stored history up to date with it. Every path returns a result;
// failures are captured in it rather than escaping, because one bad
// case must never abort a batch.
func (s *Service) Reconcile(ctx context.Context, sub Subscription) ReconcileResult {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("subscription", sub.ID),
		attribute.String("case", sub.Locator.String()),
	)

	result := s.reconcile(ctx, sub)

	span.SetAttributes(
		attribute.String("outcome", result.Outcome.String()),
		attribute.String("reason", result.Reason),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}
	return result
}

func (s *Service) reconcile(ctx context.Context, sub Subscription) ReconcileResult {
	s.caseLocks.Lock(sub.ID)
	defer s.caseLocks.Unlock(sub.ID)

	rs, err := s.fetcher.FetchCaseRecords(ctx, sub.Locator)
	if errors.Is(err, ErrCaseNotFound) {
		// the site says the expediente does not exist, which can be a
		// site-side hiccup as easily as a real removal; the
		// subscription and its history stay untouched
		return ReconcileResult{Outcome: OutcomeFailed, Reason: ReasonCaseNotFound, Err: err}
	}
	if err != nil {
		return ReconcileResult{Outcome: OutcomeFailed, Reason: ReasonFetchError, Err: err}
	}

	// re-read under the lock; sub may carry a signature that another
	// check updated since the caller loaded it
	fresh, err := s.store.GetSubscriptionById(ctx, sub.ID)
	if err != nil {
		return ReconcileResult{Outcome: OutcomeFailed, Reason: ReasonStoreError, Err: err}
	}

	now := timezone.Now()
	detection, _ := records.Detect(fresh.LastSignature, rs)

	switch detection {
	case records.Empty:
		err = s.store.TouchChecked(ctx, sub.ID, now)
		if err != nil {
			return ReconcileResult{Outcome: OutcomeFailed, Reason: ReasonStoreError, Err: err}
		}
		return ReconcileResult{Outcome: OutcomeSkipped, Reason: ReasonNoData}

	case records.Unchanged:
		err = s.store.TouchChecked(ctx, sub.ID, now)
		if err != nil {
			return ReconcileResult{Outcome: OutcomeFailed, Reason: ReasonStoreError, Err: err}
		}
		return ReconcileResult{Outcome: OutcomeSkipped, Reason: ReasonNoChange}

	default:
		err = s.store.AppendHistory(ctx, sub.ID, now, rs)
		if err != nil {
			return ReconcileResult{Outcome: OutcomeFailed, Reason: ReasonStoreError, Err: err}
		}
		return ReconcileResult{Outcome: OutcomeRecorded, Reason: ReasonChanged, Records: rs}
	}
}
