package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends alerts through the Telegram bot API. Sends are
// bounded by a client timeout so a slow Telegram cannot stall a caller.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// levelEmoji maps alert levels raised by the trading loop to a prefix.
func levelEmoji(level string) string {
	switch level {
	case "warning":
		return "⚠️"
	case "error":
		return "🚨"
	case "success":
		return "✅"
	case "trade":
		return "💹"
	case "regime":
		return "🔀"
	default:
		return "ℹ️"
	}
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	text := fmt.Sprintf("%s *Regime Bot*\n\n%s", levelEmoji(level), message)

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := t.client.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
