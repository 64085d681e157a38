package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/config"
	"github.com/selivandex/etf-signals/pkg/logger"
)

// Notifier sends run summaries to the operations chat
type Notifier struct {
	api *tgbotapi.BotAPI
	cfg *config.TelegramConfig
}

// RunSummary is what the pipeline reports after a batch completes
type RunSummary struct {
	Mode        string
	Start       time.Time
	End         time.Time
	Duration    time.Duration
	AssetsOK    []string
	AssetsFail  map[string]string
	FeatureRows int
	LabelRows   int
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{api: bot, cfg: cfg}, nil
}

// SendRunSummary reports the outcome of a batch run. Delivery failures are
// logged, not propagated: notifications never fail the pipeline.
func (n *Notifier) SendRunSummary(s RunSummary) {
	if !n.cfg.NotifyOnRun {
		return
	}

	msg := tgbotapi.NewMessage(n.cfg.ChatID, formatRunSummary(s))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		logger.Warn("failed to send run summary", zap.Error(err))
	}
}

func formatRunSummary(s RunSummary) string {
	var b strings.Builder

	status := "completed"
	if len(s.AssetsFail) > 0 {
		status = "completed with failures"
	}

	fmt.Fprintf(&b, "*ETL %s run %s*\n", s.Mode, status)
	fmt.Fprintf(&b, "Window: %s .. %s\n", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Features: %d rows, Labels: %d rows\n", s.FeatureRows, s.LabelRows)
	fmt.Fprintf(&b, "OK: %s\n", strings.Join(s.AssetsOK, ", "))

	if len(s.AssetsFail) > 0 {
		b.WriteString("Failed:\n")
		for symbol, reason := range s.AssetsFail {
			fmt.Fprintf(&b, "  %s: %s\n", symbol, reason)
		}
	}

	return b.String()
}
