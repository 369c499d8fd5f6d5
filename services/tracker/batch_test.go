package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"
	"tribunal-tracker/services/notify"
	"tribunal-tracker/services/tracker"

	"github.com/stretchr/testify/require"
)

func TestRunBatchMixedOutcomes(t *testing.T) {
	service, _, fetcher, notifier, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)

	changed := track(t, service, fetcher, 1, "cambia", "Admisión")
	track(t, service, fetcher, 1, "quieto", "Admisión")
	broken := track(t, service, fetcher, 1, "roto", "Admisión")

	// seed history so "quieto" has something to be unchanged against
	_, err := service.CheckCase(context.Background(), 1, "quieto")
	require.NoError(t, err)

	fetcher.set(changed.Locator, docket("Admisión", "Sentencia"))
	fetcher.fail(broken.Locator, errors.New("timeout"))

	summary, err := service.RunBatch(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Recorded)
	require.EqualValues(t, 1, summary.Skipped)
	require.EqualValues(t, 1, summary.Failed)
	require.EqualValues(t, 0, summary.Deferred)

	// only the recorded change produced a notification
	sent := notifier.all()
	require.Len(t, sent, 1)
	require.Equal(t, notify.KindCaseChanged, sent[0].Kind)
	require.Equal(t, "cambia", sent[0].CaseLabel)
	require.EqualValues(t, 1, sent[0].UserID)
}

func TestRunBatchOneFailureDoesNotAbort(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)

	broken := track(t, service, fetcher, 1, "roto", "Admisión")
	healthy := track(t, service, fetcher, 1, "sano", "Admisión")
	fetcher.fail(broken.Locator, errors.New("connection refused"))

	summary, err := service.RunBatch(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Failed)
	require.EqualValues(t, 1, summary.Recorded)

	history, err := store.ListHistory(context.Background(), healthy.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestRunBatchSkipsInactiveUsers(t *testing.T) {
	service, store, fetcher, notifier, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	track(t, service, fetcher, 1, "divorcio", "Admisión")

	err := store.DeactivateUser(context.Background(), 1)
	require.NoError(t, err)

	summary, err := service.RunBatch(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, summary.Recorded+summary.Skipped+summary.Failed)
	require.Empty(t, notifier.all())
}

func TestRunBatchSkipsExpiredUsers(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()

	// registered directly with an expiry in the past
	past := time.Now().Add(-time.Hour)
	_, err := store.RegisterUser(context.Background(), tracker.NewUser{ID: 9}, past.Add(-time.Hour), past)
	require.NoError(t, err)
	track(t, service, fetcher, 9, "viejo", "Admisión")

	summary, err := service.RunBatch(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, summary.Recorded+summary.Skipped+summary.Failed)
}

func TestNotificationCarriesNewestRecords(t *testing.T) {
	service, _, fetcher, notifier, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)
	track(t, service, fetcher, 1, "largo",
		"Admisión", "Acuerdo", "Audiencia", "Pruebas", "Sentencia")

	_, err := service.RunBatch(context.Background())
	require.NoError(t, err)

	sent := notifier.all()
	require.Len(t, sent, 1)
	// trimmed to the newest rows, newest last
	require.Len(t, sent[0].Records, 3)
	detail, ok := sent[0].Records.Last().Get("detalle")
	require.True(t, ok)
	require.Equal(t, "Sentencia", detail)
}

func TestRunBatchDeadlineDefersRemainingCases(t *testing.T) {
	service, store, fetcher, _, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)

	track(t, service, fetcher, 1, "rapido", "Admisión")
	lento := track(t, service, fetcher, 1, "lento", "Admisión")
	track(t, service, fetcher, 1, "tercero", "Admisión")
	track(t, service, fetcher, 1, "cuarto", "Admisión")
	fetcher.slow(lento.Locator, time.Millisecond*500)

	// one worker so the slow case holds the pool past the deadline
	slowService := tracker.NewService(store, fetcher, &fakeNotifier{}, tracker.Config{
		Workers:         1,
		BatchDeadline:   time.Millisecond * 100,
		MinFetchSpacing: time.Millisecond,
	})
	summary, err := slowService.RunBatch(context.Background())
	require.NoError(t, err)

	// first case completes, the slow one is cut off mid-fetch, the
	// rest never start and wait for the next run
	require.EqualValues(t, 1, summary.Recorded)
	require.EqualValues(t, 1, summary.Failed)
	require.EqualValues(t, 0, summary.Skipped)
	require.EqualValues(t, 2, summary.Deferred)

	// nothing but the completed case was mutated
	for _, label := range []string{"lento", "tercero", "cuarto"} {
		sub, err := store.GetSubscription(context.Background(), 1, label)
		require.NoError(t, err)
		require.True(t, sub.LastCheckedAt.IsZero(), label)
		require.Empty(t, sub.LastSignature, label)
		history, err := store.ListHistory(context.Background(), sub.ID)
		require.NoError(t, err)
		require.Empty(t, history, label)
	}
}

func TestSweepExpiredUsers(t *testing.T) {
	service, store, fetcher, notifier, cleanup := setup(t)
	defer cleanup()
	register(t, service, 1)

	past := time.Now().Add(-time.Minute)
	_, err := store.RegisterUser(context.Background(), tracker.NewUser{ID: 9}, past.Add(-time.Hour), past)
	require.NoError(t, err)
	track(t, service, fetcher, 9, "viejo", "Admisión")

	err = service.SweepExpiredUsers(context.Background())
	require.NoError(t, err)

	// the expired user is deactivated and told; the fresh trial is not
	expired, err := store.GetUser(context.Background(), 9)
	require.NoError(t, err)
	require.False(t, expired.Active)
	fresh, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, fresh.Active)

	sent := notifier.all()
	require.Len(t, sent, 1)
	require.Equal(t, notify.KindSubscriptionExpired, sent[0].Kind)
	require.EqualValues(t, 9, sent[0].UserID)

	// the sweep is idempotent
	err = service.SweepExpiredUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.all(), 1)

	// deactivated cases drop out of batches without being deleted
	subs, err := service.ListCases(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, subs, 1)
}
