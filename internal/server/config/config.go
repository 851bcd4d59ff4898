// Package config assembles the bot configuration from built-in defaults, an
// optional JSON file, the process environment (with .env support) and
// command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BlobLocal = "local"
	BlobS3    = "s3"
)

// Config holds runtime settings for the bot process.
type Config struct {
	BotToken         string
	VoiceAPIKey      string
	FishAudioBaseURL string
	FishAudioBackend string
	MP3Bitrate       int
	SynthesisTimeout time.Duration

	AdminContact string
	WebsiteURL   string
	AdminIDs     []int64

	DBDriver    string
	DatabaseDSN string

	VoicesDir   string
	CatalogFile string

	MaxTTSChars           int
	CostPerVoice          int
	RequireValidityForTTS bool

	ReaperInterval time.Duration

	UseWebhook     bool
	WebhookBaseURL string
	HTTPAddr       string
	GRPCAddr       string

	RedisAddr  string
	SessionTTL time.Duration

	BlobDriver     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	BroadcastConcurrency int
	BroadcastDelay       time.Duration
	BroadcastBackoff     time.Duration

	LogBackend string
	LogLevel   string
	LogFormat  string
}

// LoadDefaults populates Config with development defaults. BotToken and
// VoiceAPIKey have no usable default.
func (c *Config) LoadDefaults() {
	c.FishAudioBaseURL = "https://api.fish.audio"
	c.FishAudioBackend = "s1"
	c.MP3Bitrate = 128
	c.SynthesisTimeout = 60 * time.Second

	c.AdminContact = "t.me/sellmodel"
	c.WebsiteURL = "modelboxbd.com"

	c.DBDriver = DriverSQLite
	c.DatabaseDSN = "file.db"

	c.VoicesDir = "voices"

	c.MaxTTSChars = 200
	c.CostPerVoice = 1
	c.RequireValidityForTTS = false

	c.ReaperInterval = time.Hour

	c.HTTPAddr = ":8000"
	c.GRPCAddr = ":50051"

	c.SessionTTL = 10 * time.Minute

	c.BlobDriver = BlobLocal
	c.S3Bucket = "voices"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"

	c.BroadcastConcurrency = 4
	c.BroadcastDelay = 50 * time.Millisecond
	c.BroadcastBackoff = 200 * time.Millisecond

	c.LogBackend = "slog"
	c.LogLevel = "info"
	c.LogFormat = "auto"
}

// Validate reports settings the process cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	switch c.BlobDriver {
	case BlobLocal, BlobS3:
	default:
		return fmt.Errorf("unsupported blob driver %q", c.BlobDriver)
	}
	if c.MaxTTSChars <= 0 {
		return fmt.Errorf("max tts chars must be positive, got %d", c.MaxTTSChars)
	}
	if c.CostPerVoice <= 0 {
		return fmt.Errorf("cost per voice must be positive, got %d", c.CostPerVoice)
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("reaper interval must be positive, got %s", c.ReaperInterval)
	}
	if c.UseWebhook && c.WebhookBaseURL == "" {
		return fmt.Errorf("webhook mode requires a webhook base url")
	}
	return nil
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// the environment (a .env file, or the one named by -env-file, fills gaps
// the real environment leaves), then command-line flags.
func LoadConfig(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}

	lookup, err := envLookup(args, lookupEnv)
	if err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
