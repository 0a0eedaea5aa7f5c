package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"canaro-bot/internal/commands"
	"canaro-bot/internal/metrics"
	"canaro-bot/internal/moderation"
	"canaro-bot/internal/news"
	"canaro-bot/internal/quota"
)

const (
	parseModeMarkdown = "MarkdownV2"
	parseModeHTML     = "HTML"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token           string
	Debug           bool
	UpdatesTimeout  int
	GroupName       string
	DefaultCurrency string
	NewsFeeds       []string
	NewsMaxItems    int
	PriceCooldown   time.Duration
}

// Services are the components the dispatcher routes updates to.
type Services struct {
	Tracker *quota.Tracker
	Filter  *moderation.Filter
	Prices  *commands.PriceCommand
	News    *news.Aggregator
	Metrics *metrics.BotMetrics
}

// botAPI is the part of the Telegram client the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Message a telegram message struct
type Message struct {
	ChatID         int64
	ReplyTo        int
	Text           string
	ParseMode      string
	DisablePreview bool
}
