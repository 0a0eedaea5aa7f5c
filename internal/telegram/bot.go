package telegram

import (
	"bytes"
	"context"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"canaro-bot/internal/commands"
	"canaro-bot/internal/moderation"
	"canaro-bot/lib/helpers"
	"canaro-bot/lib/translation"
)

// Bot telegram interaction client
type Bot struct {
	api      botAPI
	Config   BotConfig
	svc      Services
	cooldown *cooldown
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewBot creates new telegram bot
func NewBot(c BotConfig, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}
	api.Debug = c.Debug
	log.Infof("Authorized on account %s", api.Self.UserName)

	return newBot(api, c, svc), nil
}

func newBot(api botAPI, c BotConfig, svc Services) *Bot {
	return &Bot{
		api:      api,
		Config:   c,
		svc:      svc,
		cooldown: newCooldown(c.PriceCooldown),
		now:      time.Now,
	}
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.api.GetUpdatesChan(updatesConfig)
}

// Run long-polls for updates and handles each one on its own goroutine until
// ctx is cancelled. It waits for in-flight handlers before returning.
func (b *Bot) Run(ctx context.Context) {
	updates := b.GetUpdatesChannel()
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}()
		}
	}
}

// HandleUpdate routes one update: new members are welcomed, commands
// answered, media counted against the daily quota and text moderated.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	msg := u.Message
	if msg == nil || msg.Chat == nil {
		log.Debug("Received non-message update")
		return
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("Received update:\n%s", spew.Sdump(u))
	}

	b.svc.Metrics.ObserveMessage(msg.Chat.ID, msg.Chat.Title)

	switch {
	case len(msg.NewChatMembers) > 0:
		b.welcome(msg)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case isMedia(msg):
		b.handleMedia(ctx, msg)
	case msg.Text != "":
		b.handleText(msg)
	}
}

func isMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Document != nil || msg.Video != nil || msg.Audio != nil
}

func senderName(u *tgbotapi.User) string {
	if u == nil {
		return translation.Get("User")
	}
	return helpers.DisplayName(u.FirstName, u.UserName, translation.Get("User"))
}

func (b *Bot) chatAdmins(chatID int64) ([]tgbotapi.ChatMember, error) {
	return b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
}

func (b *Bot) isAdmin(chatID, userID int64) (bool, error) {
	admins, err := b.chatAdmins(chatID)
	if err != nil {
		return false, errors.Wrapf(err, "could not get administrators of chat %d", chatID)
	}
	for _, admin := range admins {
		if admin.User != nil && admin.User.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// exempt reports whether rules should be skipped for the sender: admins are
// exempt, and so is everyone when the admin list cannot be fetched.
func (b *Bot) exempt(msg *tgbotapi.Message) bool {
	if msg.From == nil {
		return true
	}
	admin, err := b.isAdmin(msg.Chat.ID, msg.From.ID)
	if err != nil {
		log.Warnf("Skipping enforcement: %v", err)
		return true
	}
	return admin
}

func (b *Bot) deleteMessage(msg *tgbotapi.Message) bool {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		log.Warnf("Could not delete message %d in chat %d: %v", msg.MessageID, msg.Chat.ID, err)
		return false
	}
	return true
}

func (b *Bot) handleText(msg *tgbotapi.Message) {
	if b.exempt(msg) {
		return
	}

	verdict := b.svc.Filter.Evaluate(msg.Text)
	switch verdict {
	case moderation.Blocklisted:
		if !b.deleteMessage(msg) {
			return
		}
		b.svc.Metrics.ObserveDeletion(verdict.String())
		b.send(Message{ChatID: msg.Chat.ID, Text: commands.BlockedWarning(senderName(msg.From))})
	case moderation.SpamPattern:
		if b.deleteMessage(msg) {
			b.svc.Metrics.ObserveDeletion(verdict.String())
		}
	}
}

func (b *Bot) handleMedia(ctx context.Context, msg *tgbotapi.Message) {
	if b.exempt(msg) {
		return
	}

	accepted, count, err := b.svc.Tracker.CheckAndIncrement(ctx, msg.Chat.ID, msg.From.ID, b.now())
	if err != nil {
		log.Warnf("Media quota unavailable, message kept: %v", err)
		return
	}
	if accepted {
		log.Debugf("media %d/%d from user %d in chat %d", count, b.svc.Tracker.Limit(), msg.From.ID, msg.Chat.ID)
		return
	}

	b.deleteMessage(msg)
	b.svc.Metrics.MediaRejected.Inc()
	b.send(Message{ChatID: msg.Chat.ID, Text: commands.MediaLimitReached(senderName(msg.From), b.svc.Tracker.Limit())})
}

func (b *Bot) welcome(msg *tgbotapi.Message) {
	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		b.send(Message{
			ChatID:  msg.Chat.ID,
			ReplyTo: msg.MessageID,
			Text:    commands.Welcome(senderName(member), b.Config.GroupName, b.svc.Tracker.Limit()),
		})
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := strings.ToLower(msg.Command())
	log.Debugf("received command: %s", command)

	var err error
	switch command {
	case "start":
		err = b.reply(msg, commands.Start(senderName(msg.From), b.Config.GroupName))
	case "ayuda", "help":
		err = b.reply(msg, commands.Help())
	case "reportar", "report":
		err = b.reply(msg, commands.Report(senderName(msg.From), msg.CommandArguments(), b.adminMentions(msg.Chat.ID)))
	case "multimedia", "media":
		err = b.handleMediaStatus(ctx, msg)
	case "precio", "price":
		err = b.handlePrice(ctx, msg)
	case "noticias", "news":
		err = b.handleNews(ctx, msg)
	default:
		return
	}

	if err != nil {
		log.Errorf("Failed to answer /%s: %v", command, err)
		return
	}
	b.svc.Metrics.CommandsProcessed.Inc()
}

func (b *Bot) adminMentions(chatID int64) []string {
	admins, err := b.chatAdmins(chatID)
	if err != nil {
		log.Warnf("Could not list administrators of chat %d: %v", chatID, err)
		return nil
	}

	var mentions []string
	for _, admin := range admins {
		if admin.User == nil || admin.User.IsBot {
			continue
		}
		mentions = append(mentions, commands.Mention(senderName(admin.User), admin.User.ID))
	}
	return mentions
}

func (b *Bot) handleMediaStatus(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	count, limit, err := b.svc.Tracker.Status(ctx, msg.Chat.ID, msg.From.ID, b.now())
	if err != nil {
		log.Warnf("Media quota unavailable: %v", err)
		return b.reply(msg, commands.LookupFailed())
	}
	return b.reply(msg, commands.MediaStatus(count, limit))
}

func (b *Bot) handlePrice(ctx context.Context, msg *tgbotapi.Message) error {
	args := commands.ParsePriceArgs(strings.Fields(msg.CommandArguments()), b.Config.DefaultCurrency)
	if args.Coin == "" {
		return b.reply(msg, commands.PriceUsage())
	}

	key := cooldownKey(msg.Chat.ID, args.Coin)
	if b.Config.PriceCooldown > 0 && !b.exempt(msg) {
		if previous, ok := b.cooldown.recent(key, b.now()); ok {
			minutes := int(math.Ceil(b.Config.PriceCooldown.Minutes()))
			_, err := b.SendMessage(Message{
				ChatID:  msg.Chat.ID,
				ReplyTo: previous,
				Text:    commands.PriceCooldown(args.Coin, minutes),
			})
			return err
		}
	}

	res, err := b.svc.Prices.Run(ctx, args)
	if err != nil {
		log.Warnf("Price lookup failed: %v", err)
		return b.reply(msg, commands.LookupFailed())
	}

	sent, err := b.sendPrice(msg, res)
	if err != nil {
		return err
	}
	b.cooldown.record(key, sent.MessageID, b.now())
	return nil
}

func (b *Bot) sendPrice(msg *tgbotapi.Message, res *commands.PriceResult) (tgbotapi.Message, error) {
	if res.Chart != nil {
		photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{
			Name:  "chart.png",
			Bytes: res.Chart,
		})
		photo.Caption = res.Caption
		photo.ParseMode = parseModeMarkdown
		photo.ReplyToMessageID = msg.MessageID

		sent, err := b.api.Send(photo)
		if err == nil {
			return sent, nil
		}
		log.Error("error sending chart: ", err)
	}

	return b.SendMessage(Message{ChatID: msg.Chat.ID, ReplyTo: msg.MessageID, Text: res.Caption})
}

func (b *Bot) handleNews(ctx context.Context, msg *tgbotapi.Message) error {
	keyword := strings.TrimSpace(msg.CommandArguments())
	items := b.svc.News.Aggregate(ctx, b.Config.NewsFeeds, keyword, b.Config.NewsMaxItems)
	if len(items) == 0 {
		return b.reply(msg, commands.NoHeadlines(keyword))
	}

	_, err := b.SendMessage(Message{
		ChatID:    msg.Chat.ID,
		ReplyTo:   msg.MessageID,
		Text:      commands.NewsHTML(items, keyword),
		ParseMode: parseModeHTML,
	})
	return err
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) error {
	_, err := b.SendMessage(Message{ChatID: msg.Chat.ID, ReplyTo: msg.MessageID, Text: text, DisablePreview: true})
	return err
}

func (b *Bot) send(m Message) {
	if _, err := b.SendMessage(m); err != nil {
		log.Error(err)
	}
}

// SendMessage sends a telegram message. ParseMode defaults to MarkdownV2.
func (b *Bot) SendMessage(m Message) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.ReplyTo
	msg.DisableWebPagePreview = m.DisablePreview
	msg.ParseMode = m.ParseMode
	if msg.ParseMode == "" {
		msg.ParseMode = parseModeMarkdown
	}

	sent, err := b.api.Send(msg)
	return sent, errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}
