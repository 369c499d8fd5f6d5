// Package tracker implements expediente tracking: subscriptions,
// append-only check history, change reconciliation against the court
// site and the scheduled batch runs that drive notifications.
package tracker

import (
	"errors"
	"fmt"
	"time"
	"tribunal-tracker/lib/records"
)

var (
	// ErrDuplicateLabel is returned when a user already tracks an
	// expediente under the requested label.
	ErrDuplicateLabel = errors.New("label already in use")
	// ErrSubscriptionNotFound is returned when a (user, label) pair
	// does not match a tracked expediente.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrUserNotFound is returned for lookups of unregistered users.
	ErrUserNotFound = errors.New("user not registered")
	// ErrCaseNotFound is the fetcher's explicit "expediente is not in
	// the court database" signal. It never triggers deletion of a
	// subscription; removal is always an explicit user action.
	ErrCaseNotFound = errors.New("expediente not found on the court site")
	// ErrCaseIndeterminate is returned when the court site's reply
	// allows no verdict either way, so the user can retry instead of
	// second-guessing their inputs.
	ErrCaseIndeterminate = errors.New("could not determine whether the expediente exists")
)

// UnknownLabelError decorates ErrSubscriptionNotFound with the
// closest existing label, when one is close enough to look like a
// typo.
type UnknownLabelError struct {
	Label      string
	Suggestion string
}

func (e UnknownLabelError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("no expediente labeled %q", e.Label)
	}
	return fmt.Sprintf("no expediente labeled %q (did you mean %q?)", e.Label, e.Suggestion)
}

func (e UnknownLabelError) Is(target error) bool {
	return target == ErrSubscriptionNotFound
}

// CaseLocator identifies an expediente on the court site. All fields
// are passed through as strings because that is what the site's
// search form takes.
type CaseLocator struct {
	District string
	Court    string
	Number   string
	Year     string
}

func (l CaseLocator) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", l.District, l.Court, l.Number, l.Year)
}

type User struct {
	ID           int64
	Username     string
	FirstName    string
	RegisteredAt time.Time
	ExpiresAt    time.Time
	Active       bool
}

type NewUser struct {
	ID        int64
	Username  string
	FirstName string
}

type Subscription struct {
	ID      int64
	UserID  int64
	Label   string
	Locator CaseLocator
	// CreatedAt is when the user registered the expediente.
	CreatedAt time.Time
	// LastCheckedAt is the time of the most recent successful check,
	// zero if the expediente has never been checked.
	LastCheckedAt time.Time
	// LastSignature is the canonical signature of the last record of
	// the last appended history entry, "" while history is empty.
	LastSignature string
}

type NewSubscription struct {
	UserID  int64
	Label   string
	Locator CaseLocator
}

// HistoryEntry is one observation of an expediente's docket.
// Immutable once written.
type HistoryEntry struct {
	CheckedAt time.Time
	Records   records.RecordSet
}

type Stats struct {
	Subscriptions   int64
	SubscribedUsers int64
	CheckedInWindow int64
	WithHistory     int64
	Window          time.Duration
	GeneratedAt     time.Time
}
