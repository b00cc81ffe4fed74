package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Notifier sends high-impact article alerts to a Telegram channel
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	cfg    *config.TelegramConfig
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

	return &Notifier{
		api:    bot,
		chatID: cfg.ChatID,
		cfg:    cfg,
	}, nil
}

// NotifyArticle sends an alert for a high-confidence scored article.
// Articles below the alert threshold or with unreliable scores are
// silently skipped.
func (n *Notifier) NotifyArticle(article *models.ScoredArticle) error {
	if !n.cfg.AlertOnNews {
		return nil
	}
	if article.Sentiment == nil || !article.Sentiment.Reliable {
		return nil
	}
	if article.Sentiment.Confidence < n.cfg.AlertConfidence {
		return nil
	}

	text := n.formatAlert(article)

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}

	return nil
}

func (n *Notifier) formatAlert(article *models.ScoredArticle) string {
	var sb strings.Builder

	sb.WriteString(labelEmoji(article.Sentiment.Label))
	sb.WriteString(" <b>")
	sb.WriteString(escapeHTML(article.Title))
	sb.WriteString("</b>\n\n")

	sb.WriteString(fmt.Sprintf("Sentiment: %s (%.0f%%)\n",
		article.Sentiment.Label, article.Sentiment.Confidence*100))

	if len(article.RelatedSymbols) > 0 {
		sb.WriteString("Symbols: ")
		sb.WriteString(strings.Join(article.RelatedSymbols, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString("Source: ")
	sb.WriteString(article.SourceID)
	if article.URL != "" {
		sb.WriteString(fmt.Sprintf("\n<a href=\"%s\">Read more</a>", article.URL))
	}

	return sb.String()
}

func labelEmoji(label models.Label) string {
	switch label {
	case models.LabelPositive:
		return "📈"
	case models.LabelNegative:
		return "📉"
	default:
		return "📰"
	}
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}
