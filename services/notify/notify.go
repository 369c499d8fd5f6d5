// Package notify delivers tracking events to users. Delivery is best
// effort everywhere: a change that was persisted stays persisted even
// when every channel fails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"tribunal-tracker/lib/records"
)

type Kind int

const (
	// KindCaseChanged announces newly appended docket activity.
	KindCaseChanged Kind = iota
	// KindSubscriptionExpired tells a user their trial ran out.
	KindSubscriptionExpired
)

type Notification struct {
	Kind      Kind
	UserID    int64
	CaseLabel string
	// Records carries the newest docket rows for KindCaseChanged,
	// newest last, already trimmed by the caller.
	Records records.RecordSet
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RenderText produces the user-facing message body. User-visible copy
// is Spanish, matching the audience of the court site.
func RenderText(n Notification) string {
	switch n.Kind {
	case KindSubscriptionExpired:
		return "⚠️ Tu suscripción ha expirado.\n" +
			"Para seguir recibiendo notificaciones, por favor renueva tu plan."
	case KindCaseChanged:
		var b strings.Builder
		fmt.Fprintf(&b, "📢 Cambio detectado en expediente '%s'\n", n.CaseLabel)
		for _, record := range n.Records {
			b.WriteString("\n• ")
			for i, field := range record {
				if i > 0 {
					b.WriteString(" — ")
				}
				fmt.Fprintf(&b, "%s: %s", field.Name, field.Value)
			}
		}
		return b.String()
	}
	return ""
}

// LogNotifier writes notifications to the log instead of delivering
// them anywhere. Used in development and as a last-resort default.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	slog.InfoContext(
		ctx, "notification",
		"user", n.UserID,
		"label", n.CaseLabel,
		"text", RenderText(n),
	)
	return nil
}

// Multi fans a notification out to every channel and joins the
// failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errlist []error
	for _, notifier := range m {
		err := notifier.Notify(ctx, n)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}
