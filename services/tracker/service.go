package tracker

import (
	"context"
	"errors"
	"time"
	"tribunal-tracker/lib/telemetry"
	"tribunal-tracker/lib/timezone"
	"tribunal-tracker/services/notify"

	"github.com/antzucaro/matchr"
	"github.com/im7mortal/kmutex"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("tribunal-tracker.services.tracker")

type Config struct {
	// Workers bounds concurrent reconciliations within a batch.
	Workers int
	// MinFetchSpacing is the minimum interval between any two
	// requests issued against the court site, its implicit rate
	// limit.
	MinFetchSpacing time.Duration
	// BatchInterval is how often the batch daemon runs.
	BatchInterval time.Duration
	// BatchDeadline bounds one batch run; cases not started in time
	// wait for the next run.
	BatchDeadline time.Duration
	// TrialLength is the free trial granted on registration.
	TrialLength time.Duration
	// StatsWindow is the trailing window for the "recently checked"
	// statistic.
	StatsWindow time.Duration
	// NotifyTail is how many of the newest records a change
	// notification carries.
	NotifyTail int
}

func DefaultConfig() Config {
	return Config{
		Workers:         4,
		MinFetchSpacing: time.Second,
		BatchInterval:   time.Minute * 30,
		BatchDeadline:   time.Minute * 20,
		TrialLength:     time.Hour * 24 * 10,
		StatsWindow:     time.Hour * 24,
		NotifyTail:      3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MinFetchSpacing <= 0 {
		c.MinFetchSpacing = def.MinFetchSpacing
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = def.BatchInterval
	}
	if c.BatchDeadline <= 0 {
		c.BatchDeadline = def.BatchDeadline
	}
	if c.TrialLength <= 0 {
		c.TrialLength = def.TrialLength
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = def.StatsWindow
	}
	if c.NotifyTail <= 0 {
		c.NotifyTail = def.NotifyTail
	}
	return c
}

type Service struct {
	store    Store
	fetcher  Fetcher
	notifier notify.Notifier
	config   Config

	// caseLocks serializes reconciliation per subscription so two
	// concurrent checks of the same expediente cannot race to append.
	caseLocks *kmutex.Kmutex
	// limiter paces every fetch against the court site.
	limiter *rate.Limiter
}

func NewService(store Store, fetcher Fetcher, notifier notify.Notifier, config Config) *Service {
	config = config.withDefaults()
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{
		store:     store,
		fetcher:   fetcher,
		notifier:  notifier,
		config:    config,
		caseLocks: kmutex.New(),
		limiter:   rate.NewLimiter(rate.Every(config.MinFetchSpacing), 1),
	}
}

// RegisterUser creates the user with a free trial, or reports the
// existing registration. Registration is idempotent.
func (s *Service) RegisterUser(ctx context.Context, u NewUser) (User, bool, error) {
	ctx, span := tracer.Start(ctx, "RegisterUser")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", u.ID))

	now := timezone.Now()
	created, err := s.store.RegisterUser(ctx, u, now, now.Add(s.config.TrialLength))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return User{}, false, err
	}
	user, err := s.store.GetUser(ctx, u.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return User{}, false, err
	}
	return user, created, nil
}

// SubscriptionActive reports whether a user may receive scheduled
// checks: registered, not deactivated and not past expiry.
func (s *Service) SubscriptionActive(ctx context.Context, userID int64) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.Active && !timezone.Now().After(user.ExpiresAt), nil
}

// TrackCase registers an expediente for tracking after verifying it
// against the court site. The three failure modes are distinguishable
// so the user knows whether to fix their inputs (ErrCaseNotFound),
// retry later (connection error) or double-check manually
// (ErrCaseIndeterminate).
func (s *Service) TrackCase(ctx context.Context, sub NewSubscription) (Subscription, error) {
	ctx, span := tracer.Start(ctx, "TrackCase")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user", sub.UserID),
		attribute.String("label", sub.Label),
		attribute.String("case", sub.Locator.String()),
	)

	err := s.fetcher.ProbeCase(ctx, sub.Locator)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Subscription{}, err
	}

	created, err := s.store.CreateSubscription(ctx, sub, timezone.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Subscription{}, err
	}
	return created, nil
}

// suggestLabel returns the user's closest existing label when it is
// near enough to look like a typo.
func (s *Service) suggestLabel(ctx context.Context, userID int64, label string) string {
	subs, err := s.store.ListUserSubscriptions(ctx, userID)
	if err != nil {
		return ""
	}
	best := ""
	bestDistance := 4 // anything further is not a typo
	for _, sub := range subs {
		d := matchr.Levenshtein(label, sub.Label)
		if d < bestDistance {
			best = sub.Label
			bestDistance = d
		}
	}
	return best
}

func (s *Service) lookupByLabel(ctx context.Context, userID int64, label string) (Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID, label)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return Subscription{}, UnknownLabelError{
			Label:      label,
			Suggestion: s.suggestLabel(ctx, userID, label),
		}
	}
	return sub, err
}

// UntrackCase deletes a subscription and its entire history. This is
// the only way history is ever removed.
func (s *Service) UntrackCase(ctx context.Context, userID int64, label string) error {
	ctx, span := tracer.Start(ctx, "UntrackCase")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userID), attribute.String("label", label))

	sub, err := s.lookupByLabel(ctx, userID, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// hold the case lock so an in-flight reconciliation finishes
	// before the rows disappear under it
	s.caseLocks.Lock(sub.ID)
	defer s.caseLocks.Unlock(sub.ID)

	err = s.store.DeleteSubscription(ctx, userID, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Service) ListCases(ctx context.Context, userID int64) ([]Subscription, error) {
	return s.store.ListUserSubscriptions(ctx, userID)
}

// CaseHistory returns every stored observation for one expediente,
// oldest first. Empty history is an empty slice, not an error.
func (s *Service) CaseHistory(ctx context.Context, userID int64, label string) ([]HistoryEntry, error) {
	sub, err := s.lookupByLabel(ctx, userID, label)
	if err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, sub.ID)
}

// CheckCase runs one user-triggered reconciliation and returns its
// result directly; the user is already looking at the answer so no
// notification is sent.
func (s *Service) CheckCase(ctx context.Context, userID int64, label string) (ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "CheckCase")
	defer span.End()
	span.SetAttributes(attribute.Int64("user", userID), attribute.String("label", label))

	sub, err := s.lookupByLabel(ctx, userID, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReconcileResult{}, err
	}
	return s.Reconcile(ctx, sub), nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ctx, span := tracer.Start(ctx, "Stats")
	defer span.End()

	now := timezone.Now()
	stats, err := s.store.Stats(ctx, now.Add(-s.config.StatsWindow))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Stats{}, err
	}
	stats.Window = s.config.StatsWindow
	stats.GeneratedAt = now
	return stats, nil
}
