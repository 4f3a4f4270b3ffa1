package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultHTTPAddr           = ":8080"
	DefaultWebhookPath        = "/callback"
	DefaultGeminiBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel        = "gemini-2.5-flash"
	DefaultTemperature        = 0.7
	DefaultRegistryBackend    = "sqlite"
	DefaultSQLitePath         = "data/linerag.db"
	DefaultKnowledgeBaseStore = "chatbot_knowledge_base"
	DefaultKnowledgeBaseDir   = "documents"
	DefaultPGHost             = "127.0.0.1"
	DefaultPGPort             = 5432
	DefaultPGUser             = "postgres"
	DefaultPGDatabase         = "linerag"
	DefaultPGSSLMode          = "disable"

	ModePersonal  = "personal"
	ModeKnowledge = "knowledge"

	LockerLocal = "local"
	LockerRedis = "redis"
)

type Config struct {
	Log           LogConfig           `toml:"log"`
	Server        ServerConfig        `toml:"server"`
	Line          LineConfig          `toml:"line"`
	Gemini        GeminiConfig        `toml:"gemini"`
	Registry      RegistryConfig      `toml:"registry"`
	Postgres      PostgresConfig      `toml:"postgres"`
	Redis         RedisConfig         `toml:"redis"`
	KnowledgeBase KnowledgeBaseConfig `toml:"knowledge_base"`
	Limits        LimitsConfig        `toml:"limits"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LINERAG_LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" env:"LINERAG_LOG_FORMAT" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr        string `toml:"addr" env:"LINERAG_SERVER_ADDR" validate:"required"`
	WebhookPath string `toml:"webhook_path" env:"LINERAG_WEBHOOK_PATH" validate:"required,startswith=/"`
}

// LineConfig holds the messaging channel credentials. The environment names
// match the ones the bot has always been deployed with.
type LineConfig struct {
	ChannelSecret      string `toml:"channel_secret" env:"ChannelSecret" validate:"required"`
	ChannelAccessToken string `toml:"channel_access_token" env:"ChannelAccessToken" validate:"required"`
	APIEndpoint        string `toml:"api_endpoint" env:"LINERAG_LINE_API_ENDPOINT" validate:"omitempty,url"`
	DataEndpoint       string `toml:"data_endpoint" env:"LINERAG_LINE_DATA_ENDPOINT" validate:"omitempty,url"`
	TimeoutSeconds     int    `toml:"timeout_seconds" validate:"gt=0"`
}

type GeminiConfig struct {
	APIKey               string  `toml:"api_key" env:"GOOGLE_API_KEY" validate:"required"`
	BaseURL              string  `toml:"base_url" env:"LINERAG_GEMINI_BASE_URL" validate:"required,url"`
	Model                string  `toml:"model" env:"LINERAG_GEMINI_MODEL" validate:"required"`
	Temperature          float64 `toml:"temperature" env:"LINERAG_GEMINI_TEMPERATURE" validate:"gte=0,lte=2"`
	TimeoutSeconds       int     `toml:"timeout_seconds" validate:"gt=0"`
	UploadTimeoutSeconds int     `toml:"upload_timeout_seconds" validate:"gt=0"`
	PollIntervalMillis   int     `toml:"poll_interval_millis" validate:"gt=0"`
	// SystemPrompt is sent with every grounded question. Empty sends none.
	SystemPrompt string `toml:"system_prompt" env:"LINERAG_GEMINI_SYSTEM_PROMPT"`
}

type RegistryConfig struct {
	Backend    string `toml:"backend" env:"LINERAG_REGISTRY_BACKEND" validate:"oneof=memory sqlite postgres"`
	SQLitePath string `toml:"sqlite_path" env:"LINERAG_SQLITE_PATH"`
	CacheSize  int    `toml:"cache_size" validate:"gte=0"`
	Locker     string `toml:"locker" env:"LINERAG_REGISTRY_LOCKER" validate:"oneof=local redis"`
}

type PostgresConfig struct {
	Host     string `toml:"host" env:"LINERAG_PG_HOST"`
	Port     int    `toml:"port" env:"LINERAG_PG_PORT"`
	User     string `toml:"user" env:"LINERAG_PG_USER"`
	Password string `toml:"password" env:"LINERAG_PG_PASSWORD"`
	Database string `toml:"database" env:"LINERAG_PG_DATABASE"`
	SSLMode  string `toml:"sslmode" env:"LINERAG_PG_SSLMODE"`
}

// DSN renders a postgres connection URL.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type RedisConfig struct {
	URL            string `toml:"url" env:"LINERAG_REDIS_URL"`
	LockTTLSeconds int    `toml:"lock_ttl_seconds" validate:"gte=0"`
}

type KnowledgeBaseConfig struct {
	Enabled     bool   `toml:"enabled" env:"USE_KNOWLEDGE_BASE"`
	StoreName   string `toml:"store_name" env:"LINERAG_KB_STORE_NAME" validate:"required"`
	DefaultMode string `toml:"default_mode" env:"LINERAG_DEFAULT_MODE" validate:"oneof=personal knowledge"`
	Dir         string `toml:"dir" env:"LINERAG_KB_DIR"`
}

type LimitsConfig struct {
	MaxFileBytes        int64 `toml:"max_file_bytes" validate:"gt=0"`
	MaxImageBytes       int64 `toml:"max_image_bytes" validate:"gt=0"`
	EventTimeoutSeconds int   `toml:"event_timeout_seconds" validate:"gt=0"`
	DedupeTTLSeconds    int   `toml:"dedupe_ttl_seconds" validate:"gte=0"`
	DedupeSize          int   `toml:"dedupe_size" validate:"gte=0"`
}

func (c LineConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c GeminiConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c GeminiConfig) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

func (c GeminiConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func (c RedisConfig) LockTTL() time.Duration {
	if c.LockTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c LimitsConfig) EventTimeout() time.Duration {
	return time.Duration(c.EventTimeoutSeconds) * time.Second
}

func (c LimitsConfig) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:        DefaultHTTPAddr,
			WebhookPath: DefaultWebhookPath,
		},
		Line: LineConfig{
			TimeoutSeconds: 30,
		},
		Gemini: GeminiConfig{
			BaseURL:              DefaultGeminiBaseURL,
			Model:                DefaultGeminiModel,
			Temperature:          DefaultTemperature,
			TimeoutSeconds:       60,
			UploadTimeoutSeconds: 120,
			PollIntervalMillis:   2000,
		},
		Registry: RegistryConfig{
			Backend:    DefaultRegistryBackend,
			SQLitePath: DefaultSQLitePath,
			CacheSize:  1024,
			Locker:     LockerLocal,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Redis: RedisConfig{
			LockTTLSeconds: 30,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			Enabled:     true,
			StoreName:   DefaultKnowledgeBaseStore,
			DefaultMode: ModePersonal,
			Dir:         DefaultKnowledgeBaseDir,
		},
		Limits: LimitsConfig{
			MaxFileBytes:        100 * 1024 * 1024,
			MaxImageBytes:       20 * 1024 * 1024,
			EventTimeoutSeconds: 180,
			DedupeTTLSeconds:    600,
			DedupeSize:          4096,
		},
	}
}

// Load reads defaults, then the TOML file at path (a missing file is not an
// error), then environment overrides. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LineCredentialFields are the settings only the webhook server needs.
// Commands that never talk to LINE pass them to ValidateExcept.
var LineCredentialFields = []string{"Line.ChannelSecret", "Line.ChannelAccessToken"}

// Validate reports every missing or malformed setting.
func (c Config) Validate() error {
	return c.ValidateExcept()
}

// ValidateExcept is Validate without the rules of the named fields, given
// relative to Config (for example "Line.ChannelSecret").
func (c Config) ValidateExcept(fields ...string) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	var errs []error
	var err error
	if len(fields) == 0 {
		err = validate.Struct(c)
	} else {
		err = validate.StructExcept(c, fields...)
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	if c.Registry.Locker == LockerRedis && strings.TrimSpace(c.Redis.URL) == "" {
		errs = append(errs, errors.New("Config.Redis.URL: required when registry locker is redis"))
	}
	if c.Registry.Backend == "sqlite" && strings.TrimSpace(c.Registry.SQLitePath) == "" {
		errs = append(errs, errors.New("Config.Registry.SQLitePath: required for sqlite backend"))
	}
	if c.KnowledgeBase.DefaultMode == ModeKnowledge && !c.KnowledgeBase.Enabled {
		errs = append(errs, errors.New("Config.KnowledgeBase.DefaultMode: knowledge mode requires the knowledge base to be enabled"))
	}
	return errors.Join(errs...)
}
