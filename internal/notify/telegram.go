// Package notify sends a short run summary to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/service"
)

type Config struct {
	Token  string
	ChatID int64
	// Endpoint переопределяет адрес Bot API, формат как у tgbotapi.APIEndpoint.
	Endpoint string
}

type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegram(cfg Config, logger *zap.Logger) (*Telegram, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("telegram notifier authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("chat_id", cfg.ChatID),
	)

	return &Telegram{api: api, chatID: cfg.ChatID, logger: logger}, nil
}

func (t *Telegram) NotifyRun(ctx context.Context, summary *service.Summary) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(summary))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	t.logger.Debug("run summary sent", zap.String("run_id", summary.RunID.String()))
	return nil
}

func FormatSummary(s *service.Summary) string {
	var sb strings.Builder

	if s.OK() {
		sb.WriteString("✅ <b>Sweep finished</b>\n")
	} else {
		sb.WriteString("❌ <b>Sweep aborted</b>\n")
	}

	sb.WriteString(fmt.Sprintf("Term: <code>%s</code>\n", html.EscapeString(s.Term)))
	sb.WriteString(fmt.Sprintf("Regions: %d/%d\n", s.Completed, s.Regions))
	sb.WriteString(fmt.Sprintf("Rows: %d (skipped %d)\n", s.Stats.Rows, s.Stats.Skipped))
	sb.WriteString(fmt.Sprintf("API calls: %d, subdivisions: %d, max depth: %d\n",
		s.Stats.Calls, s.Stats.Subdivisions, s.Stats.MaxDepth))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", s.Duration.Round(time.Second)))
	sb.WriteString(fmt.Sprintf("Run: <code>%s</code>", s.RunID))

	if s.Err != nil {
		sb.WriteString(fmt.Sprintf("\n\nFailed at region <code>%s</code>:\n%s",
			html.EscapeString(s.FailedRegion),
			html.EscapeString(s.Err.Error()),
		))
	}

	return sb.String()
}
