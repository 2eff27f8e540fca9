package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/config"
	"github.com/hassanrz/psx-analytics/internal/models"
)

// TelegramNotifier pushes run summaries to a Telegram chat. With no token
// configured it stays disabled and every notify is a no-op.
type TelegramNotifier struct {
	cfg    config.TelegramConfig
	logger *logrus.Logger
	bot    *bot.Bot
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *TelegramNotifier {
	n := &TelegramNotifier{cfg: cfg, logger: logger}
	if cfg.BotToken == "" {
		logger.Info("Telegram notifications disabled, no bot token configured")
		return n
	}
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize Telegram bot, notifications disabled")
		return n
	}
	n.bot = b
	return n
}

// NotifyRunSummary sends a compact per-run report. Delivery failures are
// logged, never propagated; notification is best effort.
func (n *TelegramNotifier) NotifyRunSummary(ctx context.Context, summary *models.RunSummary) {
	if n.bot == nil {
		return
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.cfg.ChatID,
		Text:   formatRunSummary(summary),
	})
	if err != nil {
		n.logger.WithError(err).WithField("run_id", summary.RunID).Warn("Failed to send run summary")
	}
}

func formatRunSummary(summary *models.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline run %s finished in %s\n", summary.RunID, summary.FinishedAt.Sub(summary.StartedAt).Round(10*time.Millisecond))
	fmt.Fprintf(&b, "Articles scored: %d\n", summary.Articles)
	for _, r := range summary.Results {
		switch r.Status {
		case models.StatusOK:
			fmt.Fprintf(&b, "%s: %d indicators, %d predictions, %d reconciled\n",
				r.Symbol, r.IndicatorRows, r.PredictionRows, r.Reconciled)
		case models.StatusFailed:
			fmt.Fprintf(&b, "%s: FAILED (%s)\n", r.Symbol, r.Error)
		default:
			fmt.Fprintf(&b, "%s: %s\n", r.Symbol, r.Status)
		}
	}
	return b.String()
}
