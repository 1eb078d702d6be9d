package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/costanews/internal/news"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	// Telegram settings
	TelegramToken string

	// Regions
	RegionsPath string
	Regions     []news.Region

	// Published set
	StoreBackend string // file | postgres | redis
	StorePath    string
	DatabaseURL  string
	RedisURL     string

	// Translation
	TargetLanguage      string
	GeminiAPIKey        string
	OpenAIAPIKey        string
	MaxGeminiRequests   int // per day, 0 = unlimited
	MaxOpenAIRequests   int // per day, 0 = unlimited
	TranslationCacheTTL time.Duration
	TranslateMaxChars   int

	// Pipeline policy
	MaxItemsPerFeed    int
	MaxPostsPerRegion  int
	MaxSentences       int
	MinSummaryRunes    int
	FeedTimeout        time.Duration
	ArticleTimeout     time.Duration
	ImageFallbackFetch bool
	ItemPause          time.Duration
	RegionPause        time.Duration
	Schedule           string

	// Formatting
	CountryHashtag string
	ReadMoreLabel  string

	// App settings
	Debug             bool
	LogFormat         string
	MonitoringEnabled bool
	MonitoringPort    string
}

// Load reads configuration from the environment (and .env, if present),
// validates it and loads the regions YAML file.
func Load() (*Config, error) {
	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	regions, err := LoadRegions(cfg.RegionsPath)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	cfg.Regions = regions

	return cfg, nil
}

// FromEnv applies defaults and environment overrides without validating.
// Diagnostic commands that need only part of the configuration use it.
func FromEnv() *Config {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	cfg := &Config{
		// Default values
		RegionsPath:         "configs/regions.yaml",
		StoreBackend:        BackendFile,
		StorePath:           "published_news.json",
		TargetLanguage:      "ru",
		MaxGeminiRequests:   50,
		MaxOpenAIRequests:   50,
		TranslationCacheTTL: 6 * time.Hour,
		TranslateMaxChars:   5000,
		MaxItemsPerFeed:     10,
		MaxPostsPerRegion:   5,
		MaxSentences:        3,
		MinSummaryRunes:     20,
		FeedTimeout:         20 * time.Second,
		ArticleTimeout:      5 * time.Second,
		ImageFallbackFetch:  true,
		ItemPause:           5 * time.Second,
		RegionPause:         10 * time.Second,
		Schedule:            "@every 1h",
		CountryHashtag:      "#Испания",
		ReadMoreLabel:       "Читать полностью",
		LogFormat:           "text",
		MonitoringPort:      "8080",
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.RegionsPath = getEnvOrDefault("REGIONS_CONFIG", cfg.RegionsPath)
	cfg.StoreBackend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", cfg.StoreBackend))
	cfg.StorePath = getEnvOrDefault("STORE_PATH", cfg.StorePath)
	cfg.TargetLanguage = getEnvOrDefault("TARGET_LANGUAGE", cfg.TargetLanguage)
	cfg.Schedule = getEnvOrDefault("SCHEDULE", cfg.Schedule)
	cfg.CountryHashtag = getEnvOrDefault("COUNTRY_HASHTAG", cfg.CountryHashtag)
	cfg.ReadMoreLabel = getEnvOrDefault("READ_MORE_LABEL", cfg.ReadMoreLabel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.MaxOpenAIRequests = getEnvIntOrDefault("MAX_OPENAI_REQUESTS", cfg.MaxOpenAIRequests)
	cfg.TranslateMaxChars = getEnvIntOrDefault("TRANSLATE_MAX_CHARS", cfg.TranslateMaxChars)
	cfg.MaxItemsPerFeed = getEnvIntOrDefault("MAX_ITEMS_PER_FEED", cfg.MaxItemsPerFeed)
	cfg.MaxPostsPerRegion = getEnvIntOrDefault("MAX_POSTS_PER_REGION", cfg.MaxPostsPerRegion)
	cfg.MaxSentences = getEnvIntOrDefault("MAX_SENTENCES", cfg.MaxSentences)
	cfg.MinSummaryRunes = getEnvIntOrDefault("MIN_SUMMARY_RUNES", cfg.MinSummaryRunes)

	cfg.TranslationCacheTTL = getEnvDurationOrDefault("TRANSLATION_CACHE_TTL", cfg.TranslationCacheTTL)
	cfg.FeedTimeout = getEnvDurationOrDefault("FEED_TIMEOUT", cfg.FeedTimeout)
	cfg.ArticleTimeout = getEnvDurationOrDefault("ARTICLE_TIMEOUT", cfg.ArticleTimeout)
	cfg.ItemPause = getEnvDurationOrDefault("ITEM_PAUSE", cfg.ItemPause)
	cfg.RegionPause = getEnvDurationOrDefault("REGION_PAUSE", cfg.RegionPause)

	cfg.ImageFallbackFetch = getEnvBoolOrDefault("IMAGE_FALLBACK_FETCH", cfg.ImageFallbackFetch)
	cfg.Debug = getEnvBoolOrDefault("DEBUG", false)
	cfg.MonitoringEnabled = getEnvBoolOrDefault("ENABLE_HTTP_MONITORING", false)

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue >= 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.MaxPostsPerRegion == 0 {
		return errors.New("MAX_POSTS_PER_REGION must be positive")
	}
	if c.MaxSentences == 0 {
		return errors.New("MAX_SENTENCES must be positive")
	}
	return nil
}

// ValidateStore checks only the published-set backend settings.
func (c *Config) ValidateStore() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.StorePath == "" {
			return errors.New("STORE_PATH must not be empty")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for STORE_BACKEND=postgres")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of file, postgres, redis (got %q)", c.StoreBackend)
	}
	return nil
}

// regionsFile is the YAML layout:
//
//	regions:
//	  - name: Аликанте
//	    channel: "@ALCTODAY"
//	    sources: [...]
//	    keywords: [...]
type regionsFile struct {
	Regions []news.Region `yaml:"regions"`
}

// LoadRegions reads and validates the region list from a YAML file.
func LoadRegions(path string) ([]news.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rf regionsFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if len(rf.Regions) == 0 {
		return nil, fmt.Errorf("%s: no regions configured", path)
	}
	for i, r := range rf.Regions {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("%s: region #%d has no name", path, i+1)
		}
		if strings.TrimSpace(r.Channel) == "" {
			return nil, fmt.Errorf("%s: region %q has no channel", path, r.Name)
		}
		if len(r.Sources) == 0 {
			return nil, fmt.Errorf("%s: region %q has no sources", path, r.Name)
		}
	}
	return rf.Regions, nil
}
