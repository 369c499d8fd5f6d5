package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// OperatorAddress receives a copy of every event. The chat
	// channel reaches the user; this one exists so operators can
	// audit what went out.
	OperatorAddress string `json:"operator_address"`
}

// EmailNotifier mails each event to the operator address.
type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	return EmailNotifier{config: config}
}

func (e EmailNotifier) Notify(ctx context.Context, n Notification) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Tribunal Tracker <%s>", e.config.EmailAddress)
	mail.To = []string{e.config.OperatorAddress}

	switch n.Kind {
	case KindSubscriptionExpired:
		mail.Subject = fmt.Sprintf("Suscripción expirada: usuario %d", n.UserID)
	default:
		mail.Subject = fmt.Sprintf("Cambio en expediente '%s' (usuario %d)", n.CaseLabel, n.UserID)
	}
	mail.Text = []byte(RenderText(n))

	return mail.Send(
		fmt.Sprintf("%s:%d", e.config.Server, e.config.Port),
		smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server),
	)
}
