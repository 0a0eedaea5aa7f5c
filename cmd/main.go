package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"canaro-bot/config"
	"canaro-bot/internal/chart"
	"canaro-bot/internal/commands"
	"canaro-bot/internal/database"
	"canaro-bot/internal/metrics"
	"canaro-bot/internal/moderation"
	"canaro-bot/internal/news"
	"canaro-bot/internal/price"
	"canaro-bot/internal/quota"
	"canaro-bot/internal/server"
	"canaro-bot/internal/telegram"
	"canaro-bot/lib/httpclient"
	"canaro-bot/lib/translation"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	translation.Configure("locales", settings.Lang)
	httpClient := httpclient.New(settings.RequestTimeout, settings.UserAgent)

	db, err := database.InitDB(settings.DatabasePath)
	if err != nil {
		if settings.QuotaStore == config.QuotaStoreSQLite {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		log.Warnf("Database unavailable, metrics will not be persisted: %v", err)
		db = nil
	}
	defer db.Close()

	botMetrics := metrics.New(prometheus.DefaultRegisterer)
	if db != nil {
		botMetrics.Load(db)
	}

	filter, err := moderation.Default(settings.ExtraBlockedWords, settings.ExtraSpamPatterns)
	if err != nil {
		log.Fatalf("Failed to compile moderation rules: %v", err)
	}

	aggregator := news.New(httpClient, settings.UserAgent)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:           settings.Token,
		Debug:           settings.Debug,
		UpdatesTimeout:  60,
		GroupName:       settings.GroupName,
		DefaultCurrency: settings.DefaultCurrency,
		NewsFeeds:       settings.NewsFeeds,
		NewsMaxItems:    settings.NewsMaxItems,
		PriceCooldown:   settings.PriceCooldown,
	}, telegram.Services{
		Tracker: quota.NewTracker(newQuotaStore(settings, db), settings.DailyMediaLimit),
		Filter:  filter,
		Prices:  commands.NewPriceCommand(newPriceProvider(settings, httpClient), chart.NewRenderer(loadFont(settings.ChartFontPath))),
		News:    aggregator,
		Metrics: botMetrics,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := startScheduler(settings, db, botMetrics)
	defer scheduler.Stop()

	headlines := func(ctx context.Context) []news.Item {
		return aggregator.Aggregate(ctx, settings.NewsFeeds, "", settings.NewsMaxItems)
	}
	srv := server.New(settings.MetricsPort, server.NewRouter(prometheus.DefaultGatherer, headlines, settings.GroupName))
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	log.Infof("Bot started for group %q with the %s price provider, language %s",
		settings.GroupName, settings.PriceProvider, translation.GetLanguage())
	bot.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Server shutdown: %v", err)
	}

	if db != nil {
		botMetrics.Save(db)
		log.Info("Metrics saved, shutting down...")
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func newQuotaStore(settings *config.Settings, db *database.DB) quota.Store {
	switch settings.QuotaStore {
	case config.QuotaStoreSQLite:
		return db.QuotaStore()
	case config.QuotaStoreRedis:
		log.Infof("Using redis quota store at %s", settings.RedisAddress)
		return quota.NewRedisStore(settings.RedisAddress)
	default:
		return quota.NewMemoryStore()
	}
}

func newPriceProvider(settings *config.Settings, client *http.Client) price.Provider {
	switch settings.PriceProvider {
	case config.ProviderCoinMarketCap:
		return price.NewCoinMarketCap(client, price.WithAPIKey(settings.CMCAPIKey))
	case config.ProviderCoinPaprika:
		return price.NewCoinPaprika(client, settings.PaprikaAPIKey)
	default:
		return price.NewCoinGecko(client, price.WithAPIKey(settings.GeckoAPIKey))
	}
}

func loadFont(path string) *truetype.Font {
	if path == "" {
		return nil
	}
	font, err := chart.LoadFont(path)
	if err != nil {
		log.Warnf("Using the default chart font: %v", err)
		return nil
	}
	return font
}

// startScheduler flushes metrics every five minutes and drops stale quota
// rows once a day.
func startScheduler(settings *config.Settings, db *database.DB, botMetrics *metrics.BotMetrics) *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))

	if db != nil {
		if _, err := c.AddFunc("@every 5m", func() { botMetrics.Save(db) }); err != nil {
			log.Errorf("Failed to schedule metrics flush: %v", err)
		}
	}

	if db != nil && settings.QuotaStore == config.QuotaStoreSQLite {
		_, err := c.AddFunc("@daily", func() {
			n, err := db.PurgeQuotasBefore(context.Background(), quota.DateOf(time.Now()))
			if err != nil {
				log.Errorf("Quota purge failed: %v", err)
				return
			}
			log.Infof("Purged %d stale quota records", n)
		})
		if err != nil {
			log.Errorf("Failed to schedule quota purge: %v", err)
		}
	}

	c.Start()
	return c
}
