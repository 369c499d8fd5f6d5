package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"tribunal-tracker/lib/records"
	"tribunal-tracker/services/tracker/db"
)

// Store is the persistence handle for subscriptions and their check
// history. It is passed in explicitly; nothing in this package
// reaches for a global database.
//
// History is append-only: entries are only ever added, and only
// removed as a side effect of deleting the whole subscription.
type Store interface {
	RegisterUser(ctx context.Context, u NewUser, registeredAt, expiresAt time.Time) (created bool, err error)
	GetUser(ctx context.Context, id int64) (User, error)
	DeactivateUser(ctx context.Context, id int64) error
	ListExpiredActiveUsers(ctx context.Context, now time.Time) ([]User, error)

	CreateSubscription(ctx context.Context, sub NewSubscription, createdAt time.Time) (Subscription, error)
	GetSubscription(ctx context.Context, userID int64, label string) (Subscription, error)
	GetSubscriptionById(ctx context.Context, id int64) (Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID int64) ([]Subscription, error)
	ListActiveSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error)
	DeleteSubscription(ctx context.Context, userID int64, label string) error

	// AppendHistory atomically appends an entry and updates the
	// subscription's lastCheckedAt/lastSignature. On error nothing is
	// written.
	AppendHistory(ctx context.Context, subscriptionID int64, checkedAt time.Time, rs records.RecordSet) error
	// TouchChecked records a check that produced no new entry.
	TouchChecked(ctx context.Context, subscriptionID int64, checkedAt time.Time) error
	LastHistoryEntry(ctx context.Context, subscriptionID int64) (entry HistoryEntry, ok bool, err error)
	ListHistory(ctx context.Context, subscriptionID int64) ([]HistoryEntry, error)

	Stats(ctx context.Context, checkedSince time.Time) (Stats, error)
}

// SqliteStore implements Store on the sqlite schema in
// services/tracker/db.
type SqliteStore struct {
	db  *sql.DB
	qry *db.Queries
}

var _ Store = SqliteStore{}

func NewSqliteStore(database *sql.DB) SqliteStore {
	return SqliteStore{
		db:  database,
		qry: db.New(database),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func userFromRow(row db.User) User {
	return User{
		ID:           row.ID,
		Username:     row.Username,
		FirstName:    row.FirstName,
		RegisteredAt: time.Unix(row.RegisteredAt, 0),
		ExpiresAt:    time.Unix(row.ExpiresAt, 0),
		Active:       row.Active != 0,
	}
}

func subscriptionFromRow(row db.Subscription) Subscription {
	return Subscription{
		ID:     row.ID,
		UserID: row.UserID,
		Label:  row.Label,
		Locator: CaseLocator{
			District: row.District,
			Court:    row.Court,
			Number:   row.CaseNumber,
			Year:     row.CaseYear,
		},
		CreatedAt:     time.Unix(row.CreatedAt, 0),
		LastCheckedAt: timeOrZero(row.LastCheckedAt),
		LastSignature: row.LastSignature,
	}
}

func historyEntryFromRow(row db.HistoryEntry) (HistoryEntry, error) {
	rs, err := records.DecodeJSON(row.RecordSet)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("decode history entry %d: %w", row.ID, err)
	}
	return HistoryEntry{
		CheckedAt: time.Unix(row.CheckedAt, 0),
		Records:   rs,
	}, nil
}

func (s SqliteStore) RegisterUser(ctx context.Context, u NewUser, registeredAt, expiresAt time.Time) (bool, error) {
	inserted, err := s.qry.CreateUser(ctx, db.CreateUserParams{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		RegisteredAt: registeredAt.Unix(),
		ExpiresAt:    expiresAt.Unix(),
	})
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

func (s SqliteStore) GetUser(ctx context.Context, id int64) (User, error) {
	row, err := s.qry.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return userFromRow(row), nil
}

func (s SqliteStore) DeactivateUser(ctx context.Context, id int64) error {
	return s.qry.DeactivateUser(ctx, id)
}

func (s SqliteStore) ListExpiredActiveUsers(ctx context.Context, now time.Time) ([]User, error) {
	rows, err := s.qry.ListExpiredActiveUsers(ctx, now.Unix())
	if err != nil {
		return nil, err
	}
	users := make([]User, len(rows))
	for i, row := range rows {
		users[i] = userFromRow(row)
	}
	return users, nil
}

func (s SqliteStore) CreateSubscription(ctx context.Context, sub NewSubscription, createdAt time.Time) (Subscription, error) {
	row, err := s.qry.CreateSubscription(ctx, db.CreateSubscriptionParams{
		UserID:     sub.UserID,
		Label:      sub.Label,
		District:   sub.Locator.District,
		Court:      sub.Locator.Court,
		CaseNumber: sub.Locator.Number,
		CaseYear:   sub.Locator.Year,
		CreatedAt:  createdAt.Unix(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Subscription{}, fmt.Errorf("%w: %q", ErrDuplicateLabel, sub.Label)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return Subscription{}, fmt.Errorf("%w: %d", ErrUserNotFound, sub.UserID)
		}
		return Subscription{}, err
	}
	return subscriptionFromRow(row), nil
}

func (s SqliteStore) GetSubscription(ctx context.Context, userID int64, label string) (Subscription, error) {
	row, err := s.qry.GetSubscription(ctx, db.GetSubscriptionParams{
		UserID: userID,
		Label:  label,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return Subscription{}, err
	}
	return subscriptionFromRow(row), nil
}

func (s SqliteStore) GetSubscriptionById(ctx context.Context, id int64) (Subscription, error) {
	row, err := s.qry.GetSubscriptionById(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if err != nil {
		return Subscription{}, err
	}
	return subscriptionFromRow(row), nil
}

func (s SqliteStore) ListUserSubscriptions(ctx context.Context, userID int64) ([]Subscription, error) {
	rows, err := s.qry.ListUserSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	subs := make([]Subscription, len(rows))
	for i, row := range rows {
		subs[i] = subscriptionFromRow(row)
	}
	return subs, nil
}

func (s SqliteStore) ListActiveSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error) {
	rows, err := s.qry.ListActiveSubscriptions(ctx, now.Unix())
	if err != nil {
		return nil, err
	}
	subs := make([]Subscription, len(rows))
	for i, row := range rows {
		subs[i] = subscriptionFromRow(row)
	}
	return subs, nil
}

func (s SqliteStore) DeleteSubscription(ctx context.Context, userID int64, label string) error {
	// history rows go with the subscription through the FK cascade,
	// so from the caller's point of view both disappear or neither
	deleted, err := s.qry.DeleteSubscription(ctx, db.DeleteSubscriptionParams{
		UserID: userID,
		Label:  label,
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s SqliteStore) AppendHistory(ctx context.Context, subscriptionID int64, checkedAt time.Time, rs records.RecordSet) error {
	encoded, err := rs.EncodeJSON()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.CreateHistoryEntry(ctx, db.CreateHistoryEntryParams{
		SubscriptionID: subscriptionID,
		CheckedAt:      checkedAt.Unix(),
		RecordSet:      encoded,
	})
	if err != nil {
		return err
	}
	err = txqry.SetLastObserved(ctx, db.SetLastObservedParams{
		LastCheckedAt: checkedAt.Unix(),
		LastSignature: rs.Signature(),
		ID:            subscriptionID,
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s SqliteStore) TouchChecked(ctx context.Context, subscriptionID int64, checkedAt time.Time) error {
	return s.qry.TouchLastChecked(ctx, db.TouchLastCheckedParams{
		LastCheckedAt: checkedAt.Unix(),
		ID:            subscriptionID,
	})
}

func (s SqliteStore) LastHistoryEntry(ctx context.Context, subscriptionID int64) (HistoryEntry, bool, error) {
	row, err := s.qry.GetLastHistoryEntry(ctx, subscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryEntry{}, false, nil
	}
	if err != nil {
		return HistoryEntry{}, false, err
	}
	entry, err := historyEntryFromRow(row)
	if err != nil {
		return HistoryEntry{}, false, err
	}
	return entry, true, nil
}

func (s SqliteStore) ListHistory(ctx context.Context, subscriptionID int64) ([]HistoryEntry, error) {
	rows, err := s.qry.ListHistoryEntries(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := historyEntryFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s SqliteStore) Stats(ctx context.Context, checkedSince time.Time) (Stats, error) {
	subscriptions, err := s.qry.CountSubscriptions(ctx)
	if err != nil {
		return Stats{}, err
	}
	users, err := s.qry.CountSubscribedUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	checked, err := s.qry.CountCheckedSince(ctx, checkedSince.Unix())
	if err != nil {
		return Stats{}, err
	}
	withHistory, err := s.qry.CountWithHistory(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Subscriptions:   subscriptions,
		SubscribedUsers: users,
		CheckedInWindow: checked,
		WithHistory:     withHistory,
	}, nil
}
