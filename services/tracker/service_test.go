package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"tribunal-tracker/lib/records"
	"tribunal-tracker/lib/testutil"
	"tribunal-tracker/services/notify"
	"tribunal-tracker/services/tracker"
	"tribunal-tracker/services/tracker/db"

	"github.com/stretchr/testify/require"
)

// fakeFetcher serves scripted responses keyed by locator string.
type fakeFetcher struct {
	mu      sync.Mutex
	dockets map[string]records.RecordSet
	errs    map[string]error
	delays  map[string]time.Duration
	fetches int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		dockets: map[string]records.RecordSet{},
		errs:    map[string]error{},
		delays:  map[string]time.Duration{},
	}
}

func (f *fakeFetcher) set(loc tracker.CaseLocator, rs records.RecordSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dockets[loc.String()] = rs
	delete(f.errs, loc.String())
}

func (f *fakeFetcher) fail(loc tracker.CaseLocator, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[loc.String()] = err
}

func (f *fakeFetcher) slow(loc tracker.CaseLocator, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[loc.String()] = d
}

func (f *fakeFetcher) FetchCaseRecords(ctx context.Context, loc tracker.CaseLocator) (records.RecordSet, error) {
	f.mu.Lock()
	f.fetches++
	rs := f.dockets[loc.String()]
	err := f.errs[loc.String()]
	delay := f.delays[loc.String()]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (f *fakeFetcher) ProbeCase(ctx context.Context, loc tracker.CaseLocator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[loc.String()]; ok {
		return err
	}
	if _, ok := f.dockets[loc.String()]; !ok {
		return tracker.ErrCaseNotFound
	}
	return nil
}

// fakeNotifier records every delivered notification.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) all() []notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Notification{}, f.sent...)
}

func docket(rows ...string) records.RecordSet {
	var rs records.RecordSet
	for _, row := range rows {
		rs = append(rs, records.Record{
			{Name: "fecha", Value: "2024-01-01"},
			{Name: "detalle", Value: row},
		})
	}
	return rs
}

func setup(t *testing.T) (*tracker.Service, tracker.Store, *fakeFetcher, *fakeNotifier, func()) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "tracker",
		DbSchema: db.Schema,
	})
	store := tracker.NewSqliteStore(result.DB)
	fetcher := newFakeFetcher()
	notifier := &fakeNotifier{}
	service := tracker.NewService(store, fetcher, notifier, tracker.Config{
		MinFetchSpacing: time.Millisecond,
		BatchDeadline:   time.Second * 10,
	})
	return service, store, fetcher, notifier, cleanup
}

func register(t *testing.T, service *tracker.Service, id int64) tracker.User {
	user, created, err := service.RegisterUser(context.Background(), tracker.NewUser{
		ID:        id,
		Username:  "usuario",
		FirstName: "Ana",
	})
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func track(t *testing.T, service *tracker.Service, fetcher *fakeFetcher, userID int64, label string, rows ...string) tracker.Subscription {
	loc := tracker.CaseLocator{District: "01", Court: "02", Number: label, Year: "2024"}
	fetcher.set(loc, docket(rows...))
	sub, err := service.TrackCase(context.Background(), tracker.NewSubscription{
		UserID:  userID,
		Label:   label,
		Locator: loc,
	})
	require.NoError(t, err)
	return sub
}

func TestRegisterUserIdempotent(t *testing.T) {
	service, _, _, _, cleanup := setup(t)
	defer cleanup()

	user := register(t, service, 1)
	require.True(t, user.Active)
	require.True(t, user.ExpiresAt.After(user.RegisteredAt))

	again, created, err := service.RegisterUser(context.Background(), tracker.NewUser{ID: 1})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, user.ExpiresAt, again.ExpiresAt)
}

func TestTrackCaseVerifiesExistence(t *testing.T) {
	service, _, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)

	_, err := service.TrackCase(context.Background(), tracker.NewSubscription{
		UserID:  1,
		Label:   "fantasma",
		Locator: tracker.CaseLocator{District: "01", Court: "02", Number: "999", Year: "2024"},
	})
	require.ErrorIs(t, err, tracker.ErrCaseNotFound)

	loc := tracker.CaseLocator{District: "01", Court: "02", Number: "10", Year: "2024"}
	fetcher.fail(loc, tracker.ErrCaseIndeterminate)
	_, err = service.TrackCase(context.Background(), tracker.NewSubscription{
		UserID: 1, Label: "dudoso", Locator: loc,
	})
	require.ErrorIs(t, err, tracker.ErrCaseIndeterminate)

	subs, err := service.ListCases(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestTrackCaseRequiresRegistration(t *testing.T) {
	service, _, fetcher, _, cleanup := setup(t)
	defer cleanup()

	loc := tracker.CaseLocator{District: "01", Court: "02", Number: "10", Year: "2024"}
	fetcher.set(loc, docket("Admisión"))
	_, err := service.TrackCase(context.Background(), tracker.NewSubscription{
		UserID: 77, Label: "divorcio", Locator: loc,
	})
	require.ErrorIs(t, err, tracker.ErrUserNotFound)
}

func TestTrackCaseDuplicateLabel(t *testing.T) {
	service, _, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	track(t, service, fetcher, 1, "divorcio", "Admisión")

	loc := tracker.CaseLocator{District: "03", Court: "04", Number: "77", Year: "2023"}
	fetcher.set(loc, docket("Admisión"))
	_, err := service.TrackCase(context.Background(), tracker.NewSubscription{
		UserID: 1, Label: "divorcio", Locator: loc,
	})
	require.ErrorIs(t, err, tracker.ErrDuplicateLabel)
}

func TestCheckCaseFirstObservation(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión", "Acuerdo")

	result, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeRecorded, result.Outcome)
	require.Equal(t, tracker.ReasonChanged, result.Reason)
	require.Len(t, result.Records, 2)

	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, result.Records, history[0].Records)
}

func TestCheckCaseUnchangedSkips(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")

	first, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeRecorded, first.Outcome)

	second, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeSkipped, second.Outcome)
	require.Equal(t, tracker.ReasonNoChange, second.Reason)

	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestCheckCaseNewActivityAppends(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")

	_, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)

	fetcher.set(sub.Locator, docket("Admisión", "Sentencia"))
	result, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeRecorded, result.Outcome)

	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.False(t, history[1].CheckedAt.Before(history[0].CheckedAt))
}

func TestCheckCaseEmptyDocket(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "nuevo", "Admisión")

	fetcher.set(sub.Locator, records.RecordSet{})
	result, err := service.CheckCase(context.Background(), 1, "nuevo")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeSkipped, result.Outcome)
	require.Equal(t, tracker.ReasonNoData, result.Reason)

	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	// the check still counts as a successful contact with the site
	fresh, err := store.GetSubscriptionById(context.Background(), sub.ID)
	require.NoError(t, err)
	require.False(t, fresh.LastCheckedAt.IsZero())
	require.Empty(t, fresh.LastSignature)
}

func TestCheckCaseNotFoundKeepsSubscription(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")
	_, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)

	fetcher.fail(sub.Locator, tracker.ErrCaseNotFound)
	result, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeFailed, result.Outcome)
	require.Equal(t, tracker.ReasonCaseNotFound, result.Reason)
	require.ErrorIs(t, result.Err, tracker.ErrCaseNotFound)

	// failure mutates nothing
	subs, err := service.ListCases(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestCheckCaseFetchErrorLeavesStateAlone(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")
	_, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	before, err := store.GetSubscriptionById(context.Background(), sub.ID)
	require.NoError(t, err)

	fetcher.fail(sub.Locator, errors.New("connection reset"))
	result, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeFailed, result.Outcome)
	require.Equal(t, tracker.ReasonFetchError, result.Reason)

	after, err := store.GetSubscriptionById(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, before.LastCheckedAt, after.LastCheckedAt)
	require.Equal(t, before.LastSignature, after.LastSignature)
}

func TestUnknownLabelSuggestion(t *testing.T) {
	service, _, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	track(t, service, fetcher, 1, "divorcio", "Admisión")

	_, err := service.CheckCase(context.Background(), 1, "divorcios")
	require.ErrorIs(t, err, tracker.ErrSubscriptionNotFound)

	var unknown tracker.UnknownLabelError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "divorcio", unknown.Suggestion)
}

func TestUntrackCaseDeletesHistory(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")
	_, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)

	err = service.UntrackCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)

	subs, err := service.ListCases(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, subs)

	// cascade removed the history rows too
	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Empty(t, history)
	_, ok, err := store.LastHistoryEntry(context.Background(), sub.ID)
	require.NoError(t, err)
	require.False(t, ok)

	err = service.UntrackCase(context.Background(), 1, "divorcio")
	require.ErrorIs(t, err, tracker.ErrSubscriptionNotFound)
}

func TestCaseHistoryOrderedOldestFirst(t *testing.T) {
	service, _, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")

	for _, extra := range []string{"Acuerdo", "Audiencia", "Sentencia"} {
		_, err := service.CheckCase(context.Background(), 1, "divorcio")
		require.NoError(t, err)
		prev := fetcher.dockets[sub.Locator.String()]
		fetcher.set(sub.Locator, append(append(records.RecordSet{}, prev...), docket(extra)...))
	}
	_, err := service.CheckCase(context.Background(), 1, "divorcio")
	require.NoError(t, err)

	history, err := service.CaseHistory(context.Background(), 1, "divorcio")
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i := range history {
		require.Len(t, history[i].Records, i+1)
	}
}

func TestConcurrentChecksAppendOnce(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	sub := track(t, service, fetcher, 1, "divorcio", "Admisión")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CheckCase(context.Background(), 1, "divorcio")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := store.ListHistory(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestStats(t *testing.T) {
	service, _, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	_, created, err := service.RegisterUser(context.Background(), tracker.NewUser{ID: 2})
	require.NoError(t, err)
	require.True(t, created)

	track(t, service, fetcher, 1, "uno", "Admisión")
	track(t, service, fetcher, 1, "dos", "Admisión")
	track(t, service, fetcher, 2, "tres", "Admisión")
	_, err = service.CheckCase(context.Background(), 1, "uno")
	require.NoError(t, err)

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Subscriptions)
	require.EqualValues(t, 2, stats.SubscribedUsers)
	require.EqualValues(t, 1, stats.CheckedInWindow)
	require.EqualValues(t, 1, stats.WithHistory)
}
