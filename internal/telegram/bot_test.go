package telegram

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"canaro-bot/internal/commands"
	"canaro-bot/internal/metrics"
	"canaro-bot/internal/moderation"
	"canaro-bot/internal/news"
	"canaro-bot/internal/price"
	"canaro-bot/internal/quota"
)

const (
	groupID  int64 = -1001
	adminID  int64 = 1
	memberID int64 = 2
)

type mockAPI struct {
	mu        sync.Mutex
	admins    []tgbotapi.ChatMember
	adminsErr error
	deleteErr error
	nextID    int

	sent    []tgbotapi.Chattable
	deleted []int
	updates chan tgbotapi.Update
	stopped bool
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		admins: []tgbotapi.ChatMember{
			{User: &tgbotapi.User{ID: adminID, FirstName: "Boss"}},
			{User: &tgbotapi.User{ID: 99, FirstName: "Helper", IsBot: true}},
		},
		nextID:  1000,
		updates: make(chan tgbotapi.Update),
	}
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	m.nextID++
	return tgbotapi.Message{MessageID: m.nextID}, nil
}

func (m *mockAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if del, ok := c.(tgbotapi.DeleteMessageConfig); ok {
		if m.deleteErr != nil {
			return nil, m.deleteErr
		}
		m.deleted = append(m.deleted, del.MessageID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockAPI) GetChatAdministrators(tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	return m.admins, m.adminsErr
}

func (m *mockAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockAPI) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *mockAPI) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, v.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, v.Caption)
		}
	}
	return out
}

type failingHTTPClient struct{}

func (failingHTTPClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("offline")
}

type stubProvider struct {
	calls int
	err   error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Lookup(_ context.Context, query, currency string) (*price.Quote, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &price.Quote{ID: query, Symbol: query, Name: "Coin " + query, Currency: currency, Price: 2}, nil
}

func newTestBot(t *testing.T, api *mockAPI, provider price.Provider) *Bot {
	t.Helper()
	filter, err := moderation.Default(nil, nil)
	if err != nil {
		t.Fatalf("moderation.Default: %v", err)
	}

	b := newBot(api, BotConfig{
		GroupName:       "Crypto",
		DefaultCurrency: "eur",
		PriceCooldown:   time.Hour,
		NewsMaxItems:    10,
	}, Services{
		Tracker: quota.NewTracker(quota.NewMemoryStore(), 2),
		Filter:  filter,
		Prices:  commands.NewPriceCommand(provider, nil),
		News:    news.New(failingHTTPClient{}, "test"),
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	b.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return b
}

func textMessage(id int, from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: from, FirstName: "Ana"},
		Chat:      &tgbotapi.Chat{ID: groupID, Title: "Crypto"},
		Text:      text,
	}}
}

func commandMessage(id int, from int64, text string, commandLength int) tgbotapi.Update {
	u := textMessage(id, from, text)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: commandLength}}
	return u
}

func photoMessage(id int, from int64) tgbotapi.Update {
	u := textMessage(id, from, "")
	u.Message.Photo = []tgbotapi.PhotoSize{{FileID: "photo"}}
	return u
}

func TestModeration(t *testing.T) {
	tests := []struct {
		name        string
		from        int64
		text        string
		adminsErr   error
		wantDeleted []int
		wantSent    int
	}{
		{name: "blocklisted is deleted with a warning", from: memberID, text: "eres un IDIOTA", wantDeleted: []int{10}, wantSent: 1},
		{name: "spam is deleted silently", from: memberID, text: "Gana dinero rápido hoy", wantDeleted: []int{10}},
		{name: "clean text is kept", from: memberID, text: "what do you think about eth?"},
		{name: "admins are exempt", from: adminID, text: "eres un idiota"},
		{name: "admin lookup failure fails open", from: memberID, text: "eres un idiota", adminsErr: errors.New("telegram down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newMockAPI()
			api.adminsErr = tt.adminsErr
			b := newTestBot(t, api, &stubProvider{})

			b.HandleUpdate(context.Background(), textMessage(10, tt.from, tt.text))

			if len(api.deleted) != len(tt.wantDeleted) {
				t.Errorf("deleted = %v, want %v", api.deleted, tt.wantDeleted)
			}
			if got := len(api.texts()); got != tt.wantSent {
				t.Errorf("sent %d messages, want %d: %v", got, tt.wantSent, api.texts())
			}
		})
	}
}

func TestBlocklistedDeleteFailureSkipsWarning(t *testing.T) {
	api := newMockAPI()
	api.deleteErr = errors.New("not enough rights")
	b := newTestBot(t, api, &stubProvider{})

	b.HandleUpdate(context.Background(), textMessage(10, memberID, "idiota"))

	if got := api.texts(); len(got) != 0 {
		t.Errorf("sent %v, want nothing", got)
	}
}

func TestMediaQuota(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{})

	for id := 1; id <= 3; id++ {
		b.HandleUpdate(context.Background(), photoMessage(id, memberID))
	}

	if len(api.deleted) != 1 || api.deleted[0] != 3 {
		t.Errorf("deleted = %v, want [3]", api.deleted)
	}
	texts := api.texts()
	if len(texts) != 1 || texts[0] != commands.MediaLimitReached("Ana", 2) {
		t.Errorf("sent %v", texts)
	}
	if got := metrics.GetMetricValue(b.svc.Metrics.MediaRejected); got != 1 {
		t.Errorf("media_rejected = %v, want 1", got)
	}

	// Admins are never counted.
	for id := 4; id <= 6; id++ {
		b.HandleUpdate(context.Background(), photoMessage(id, adminID))
	}
	if len(api.deleted) != 1 {
		t.Errorf("admin media deleted: %v", api.deleted)
	}
}

func TestMediaQuotaAdminLookupFailure(t *testing.T) {
	api := newMockAPI()
	api.adminsErr = errors.New("telegram down")
	b := newTestBot(t, api, &stubProvider{})

	for id := 1; id <= 5; id++ {
		b.HandleUpdate(context.Background(), photoMessage(id, memberID))
	}
	if len(api.deleted) != 0 {
		t.Errorf("deleted = %v, want none", api.deleted)
	}
	count, _, _ := b.svc.Tracker.Status(context.Background(), groupID, memberID, b.now())
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestMediaStatusCommand(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{})

	b.HandleUpdate(context.Background(), photoMessage(1, memberID))
	b.HandleUpdate(context.Background(), commandMessage(2, memberID, "/multimedia", len("/multimedia")))
	b.HandleUpdate(context.Background(), commandMessage(3, memberID, "/media", len("/media")))

	want := commands.MediaStatus(1, 2)
	texts := api.texts()
	if len(texts) != 2 || texts[0] != want || texts[1] != want {
		t.Errorf("sent %v, want twice %q", texts, want)
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		cmdLen    int
		adminsErr error
		want      string
	}{
		{name: "start", text: "/start", cmdLen: 6, want: commands.Start("Ana", "Crypto")},
		{name: "help", text: "/ayuda", cmdLen: 6, want: commands.Help()},
		{name: "help alias", text: "/help@canaro_bot", cmdLen: 16, want: commands.Help()},
		{
			name:   "report mentions human admins",
			text:   "/reportar spam bot",
			cmdLen: 9,
			want:   commands.Report("Ana", "spam bot", []string{commands.Mention("Boss", adminID)}),
		},
		{
			name:      "report falls back when admins are unknown",
			text:      "/report",
			cmdLen:    7,
			adminsErr: errors.New("telegram down"),
			want:      commands.Report("Ana", "", nil),
		},
		{name: "price usage", text: "/precio", cmdLen: 7, want: commands.PriceUsage()},
		{name: "news without feeds", text: "/noticias btc", cmdLen: 9, want: commands.NoHeadlines("btc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newMockAPI()
			api.adminsErr = tt.adminsErr
			b := newTestBot(t, api, &stubProvider{})

			b.HandleUpdate(context.Background(), commandMessage(5, memberID, tt.text, tt.cmdLen))

			texts := api.texts()
			if len(texts) != 1 || texts[0] != tt.want {
				t.Errorf("sent %q, want %q", texts, tt.want)
			}
		})
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{})

	b.HandleUpdate(context.Background(), commandMessage(5, memberID, "/kick everyone", 5))

	if texts := api.texts(); len(texts) != 0 {
		t.Errorf("sent %v", texts)
	}
	if len(api.deleted) != 0 {
		t.Error("commands must not be moderated")
	}
}

func TestPriceCooldown(t *testing.T) {
	api := newMockAPI()
	provider := &stubProvider{}
	b := newTestBot(t, api, provider)

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.HandleUpdate(context.Background(), commandMessage(1, memberID, "/precio btc", 7))
	b.HandleUpdate(context.Background(), commandMessage(2, memberID, "/precio BTC usd", 7))
	b.HandleUpdate(context.Background(), commandMessage(3, adminID, "/precio btc", 7))
	b.HandleUpdate(context.Background(), commandMessage(4, memberID, "/precio eth", 7))

	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}

	api.mu.Lock()
	cooldownReply, ok := api.sent[1].(tgbotapi.MessageConfig)
	api.mu.Unlock()
	if !ok || cooldownReply.Text != commands.PriceCooldown("btc", 60) {
		t.Fatalf("second reply = %+v", api.sent[1])
	}
	if cooldownReply.ReplyToMessageID != 1001 {
		t.Errorf("cooldown reply points at %d, want the first answer 1001", cooldownReply.ReplyToMessageID)
	}

	now = now.Add(time.Hour)
	b.HandleUpdate(context.Background(), commandMessage(5, memberID, "/precio btc", 7))
	if provider.calls != 4 {
		t.Errorf("provider calls after cooldown = %d, want 4", provider.calls)
	}
}

func TestPriceLookupFailure(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{err: &price.ProviderError{Provider: "stub", Op: "lookup", Err: errors.New("timeout")}})

	b.HandleUpdate(context.Background(), commandMessage(1, memberID, "/price btc", 6))

	texts := api.texts()
	if len(texts) != 1 || texts[0] != commands.LookupFailed() {
		t.Errorf("sent %v", texts)
	}
}

func TestWelcome(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{})

	u := textMessage(7, memberID, "")
	u.Message.NewChatMembers = []tgbotapi.User{{ID: 3, FirstName: "Eva"}, {ID: 4, UserName: "leo"}}
	b.HandleUpdate(context.Background(), u)

	want := []string{commands.Welcome("Eva", "Crypto", 2), commands.Welcome("@leo", "Crypto", 2)}
	texts := api.texts()
	if len(texts) != 2 || texts[0] != want[0] || texts[1] != want[1] {
		t.Errorf("sent %v, want %v", texts, want)
	}
}

func TestHandleUpdateRecoversFromPanic(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{})
	b.svc.Filter = nil

	b.HandleUpdate(context.Background(), textMessage(1, memberID, "hello"))
}

func TestRunStopsOnCancel(t *testing.T) {
	api := newMockAPI()
	b := newTestBot(t, api, &stubProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	api.updates <- commandMessage(1, memberID, "/ayuda", 6)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	api.mu.Lock()
	stopped := api.stopped
	api.mu.Unlock()
	if !stopped {
		t.Error("updates were not stopped")
	}
	if texts := api.texts(); len(texts) != 1 {
		t.Errorf("sent %v, want the help reply", texts)
	}
}
