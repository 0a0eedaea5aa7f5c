package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var once sync.Once

var currencyPattern = regexp.MustCompile(`^[a-z]{3,5}$`)

const (
	defaultFeeds = "https://www.coindesk.com/arc/outboundfeeds/rss/?outputType=xml,https://cointelegraph.com/rss"

	QuotaStoreMemory = "memory"
	QuotaStoreSQLite = "sqlite"
	QuotaStoreRedis  = "redis"

	ProviderCoinGecko     = "coingecko"
	ProviderCoinMarketCap = "coinmarketcap"
	ProviderCoinPaprika   = "coinpaprika"
)

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("cmc_api_key", "CMC_API_KEY")
		viper.BindEnv("coingecko_api_key", "COINGECKO_API_KEY")
		viper.BindEnv("chart_font_path", "CHART_FONT_PATH")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("bot_lang", "BOT_LANG")
		viper.BindEnv("group_name", "GROUP_NAME")
		viper.BindEnv("vs_currency_default", "VS_CURRENCY_DEFAULT")
		viper.BindEnv("daily_media_limit", "DAILY_MEDIA_LIMIT", "LIMITE_DIARIO")
		viper.BindEnv("price_rate_limit_minutes", "PRICE_RATE_LIMIT_MINUTES")
		viper.BindEnv("news_rss_feeds", "NEWS_RSS_FEEDS")
		viper.BindEnv("news_max_items", "NEWS_MAX_ITEMS")
		viper.BindEnv("request_timeout_seconds", "REQUEST_TIMEOUT_SECONDS")
		viper.BindEnv("user_agent", "USER_AGENT")
		viper.BindEnv("price_provider", "PRICE_PROVIDER")
		viper.BindEnv("quota_store", "QUOTA_STORE")
		viper.BindEnv("database_path", "DATABASE_PATH")
		viper.BindEnv("redis_address", "REDIS_ADDRESS")
		viper.BindEnv("extra_blocked_words", "EXTRA_BLOCKED_WORDS")
		viper.BindEnv("extra_spam_patterns", "EXTRA_SPAM_PATTERNS")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("bot_lang", "es")
		viper.SetDefault("group_name", "Nuevas criptomonedas e IA")
		viper.SetDefault("vs_currency_default", "eur")
		viper.SetDefault("daily_media_limit", 5)
		viper.SetDefault("price_rate_limit_minutes", 60)
		viper.SetDefault("news_rss_feeds", defaultFeeds)
		viper.SetDefault("news_max_items", 10)
		viper.SetDefault("request_timeout_seconds", 15)
		viper.SetDefault("user_agent", "TelegramBot/1.0 (+canaro-bot)")
		viper.SetDefault("price_provider", ProviderCoinGecko)
		viper.SetDefault("quota_store", QuotaStoreMemory)
		viper.SetDefault("database_path", "/app/data/bot.db")
		viper.SetDefault("redis_address", "localhost:6379")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

// ConfigError reports a missing or invalid setting. It is only produced at
// startup and is always fatal.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// Settings is the validated, read-once view of the configuration.
type Settings struct {
	Token             string
	GroupName         string
	DefaultCurrency   string
	DailyMediaLimit   int
	PriceCooldown     time.Duration
	NewsFeeds         []string
	NewsMaxItems      int
	RequestTimeout    time.Duration
	UserAgent         string
	PriceProvider     string
	CMCAPIKey         string
	PaprikaAPIKey     string
	GeckoAPIKey       string
	ChartFontPath     string
	QuotaStore        string
	DatabasePath      string
	RedisAddress      string
	MetricsPort       int
	Debug             bool
	Lang              string
	ExtraBlockedWords []string
	ExtraSpamPatterns []string
}

// Load reads and validates every setting the bot needs.
func Load() (*Settings, error) {
	InitConfig()

	token := strings.TrimSpace(GetString("telegram_bot_token"))
	if token == "" || !strings.Contains(token, ":") || len(token) < 30 {
		return nil, &ConfigError{Key: "telegram_bot_token", Reason: "missing or malformed bot token"}
	}

	s := &Settings{
		Token:             token,
		GroupName:         GetString("group_name"),
		DefaultCurrency:   strings.ToLower(strings.TrimSpace(GetString("vs_currency_default"))),
		DailyMediaLimit:   GetInt("daily_media_limit"),
		PriceCooldown:     time.Duration(GetInt("price_rate_limit_minutes")) * time.Minute,
		NewsFeeds:         SplitList(GetString("news_rss_feeds")),
		NewsMaxItems:      GetInt("news_max_items"),
		RequestTimeout:    time.Duration(GetInt("request_timeout_seconds")) * time.Second,
		UserAgent:         GetString("user_agent"),
		PriceProvider:     strings.ToLower(GetString("price_provider")),
		CMCAPIKey:         GetString("cmc_api_key"),
		PaprikaAPIKey:     GetString("api_pro_key"),
		GeckoAPIKey:       GetString("coingecko_api_key"),
		ChartFontPath:     GetString("chart_font_path"),
		QuotaStore:        strings.ToLower(GetString("quota_store")),
		DatabasePath:      GetString("database_path"),
		RedisAddress:      GetString("redis_address"),
		MetricsPort:       GetInt("metrics_port"),
		Debug:             GetBool("debug"),
		Lang:              strings.ToLower(GetString("bot_lang")),
		ExtraBlockedWords: SplitList(GetString("extra_blocked_words")),
		ExtraSpamPatterns: SplitPatterns(GetString("extra_spam_patterns")),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if !currencyPattern.MatchString(s.DefaultCurrency) {
		return &ConfigError{Key: "vs_currency_default", Reason: fmt.Sprintf("%q is not a currency code", s.DefaultCurrency)}
	}
	if s.DailyMediaLimit <= 0 {
		return &ConfigError{Key: "daily_media_limit", Reason: "must be a positive integer"}
	}
	if s.PriceCooldown < 0 {
		return &ConfigError{Key: "price_rate_limit_minutes", Reason: "must not be negative"}
	}
	if s.NewsMaxItems <= 0 {
		return &ConfigError{Key: "news_max_items", Reason: "must be a positive integer"}
	}
	if s.RequestTimeout <= 0 {
		return &ConfigError{Key: "request_timeout_seconds", Reason: "must be a positive integer"}
	}

	switch s.PriceProvider {
	case ProviderCoinGecko, ProviderCoinPaprika:
	case ProviderCoinMarketCap:
		if s.CMCAPIKey == "" {
			return &ConfigError{Key: "cmc_api_key", Reason: "required by the coinmarketcap provider"}
		}
	default:
		return &ConfigError{Key: "price_provider", Reason: fmt.Sprintf("unknown provider %q", s.PriceProvider)}
	}

	switch s.QuotaStore {
	case QuotaStoreMemory, QuotaStoreSQLite, QuotaStoreRedis:
	default:
		return &ConfigError{Key: "quota_store", Reason: fmt.Sprintf("unknown store %q", s.QuotaStore)}
	}
	return nil
}

// SplitList splits a comma separated value, trimming blanks and the single
// quotes some hosting dashboards force around values.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), "'\"")
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitPatterns splits regular expressions separated by ';' or newlines.
// Commas are left alone since quantifiers such as {3,5} need them.
func SplitPatterns(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '\n' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
