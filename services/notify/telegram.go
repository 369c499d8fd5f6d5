package notify

import (
	"context"
	"fmt"
	"time"
	"tribunal-tracker/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

type TelegramConfig struct {
	Token string `json:"token"`
	// BaseUrl overrides the Bot API host, used by tests.
	BaseUrl string `json:"base_url"`
}

// TelegramNotifier delivers through the Telegram Bot API. User IDs
// double as chat IDs, which is how the bot that fronts this service
// addresses its users.
type TelegramNotifier struct {
	http  *resty.Client
	token string
	base  string
}

func NewTelegramNotifier(config TelegramConfig) TelegramNotifier {
	client := resty.New()
	client.SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "tribunal-tracker.services.notify.telegram")

	base := config.BaseUrl
	if base == "" {
		base = "https://api.telegram.org"
	}
	return TelegramNotifier{
		http:  client,
		token: config.Token,
		base:  base,
	}
}

func (t TelegramNotifier) Notify(ctx context.Context, n Notification) error {
	res, err := t.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": fmt.Sprintf("%d", n.UserID),
			"text":    RenderText(n),
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token))
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("telegram sendMessage: %s", res.Status())
	}
	return nil
}
