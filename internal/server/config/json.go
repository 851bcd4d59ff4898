package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/dmitrijs2005/voxbot/internal/flagx"
	"github.com/dmitrijs2005/voxbot/internal/timex"
)

// JsonConfig mirrors Config for file loading. Every field is optional:
// pointers stay nil when the key is absent so defaults survive. Durations
// accept "1h" or integer nanoseconds. Comments and trailing commas are
// allowed in the file.
type JsonConfig struct {
	BotToken         *string         `json:"bot_token"`
	VoiceAPIKey      *string         `json:"voice_api_key"`
	FishAudioBaseURL *string         `json:"fish_audio_base_url"`
	FishAudioBackend *string         `json:"fish_audio_backend"`
	MP3Bitrate       *int            `json:"mp3_bitrate"`
	SynthesisTimeout *timex.Duration `json:"synthesis_timeout"`

	AdminContact *string `json:"admin_contact"`
	WebsiteURL   *string `json:"website_url"`
	AdminIDs     []int64 `json:"admin_ids"`

	DBDriver    *string `json:"db_driver"`
	DatabaseDSN *string `json:"database_dsn"`

	VoicesDir   *string `json:"voices_dir"`
	CatalogFile *string `json:"catalog_file"`

	MaxTTSChars           *int  `json:"max_tts_chars"`
	CostPerVoice          *int  `json:"cost_per_voice"`
	RequireValidityForTTS *bool `json:"require_validity_for_tts"`

	ReaperInterval *timex.Duration `json:"reaper_interval"`

	UseWebhook     *bool   `json:"use_webhook"`
	WebhookBaseURL *string `json:"webhook_base_url"`
	HTTPAddr       *string `json:"http_addr"`
	GRPCAddr       *string `json:"grpc_addr"`

	RedisAddr  *string         `json:"redis_addr"`
	SessionTTL *timex.Duration `json:"session_ttl"`

	BlobDriver     *string `json:"blob_driver"`
	S3AccessKey    *string `json:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`

	BroadcastConcurrency *int            `json:"broadcast_concurrency"`
	BroadcastDelay       *timex.Duration `json:"broadcast_delay"`
	BroadcastBackoff     *timex.Duration `json:"broadcast_backoff"`

	LogBackend *string `json:"log_backend"`
	LogLevel   *string `json:"log_level"`
	LogFormat  *string `json:"log_format"`
}

func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var c JsonConfig
	if err := json.Unmarshal(jsonc.ToJSON(raw), &c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (c *JsonConfig) apply(config *Config) {
	setIf(&config.BotToken, c.BotToken)
	setIf(&config.VoiceAPIKey, c.VoiceAPIKey)
	setIf(&config.FishAudioBaseURL, c.FishAudioBaseURL)
	setIf(&config.FishAudioBackend, c.FishAudioBackend)
	setIf(&config.MP3Bitrate, c.MP3Bitrate)
	if c.SynthesisTimeout != nil {
		config.SynthesisTimeout = c.SynthesisTimeout.Duration
	}

	setIf(&config.AdminContact, c.AdminContact)
	setIf(&config.WebsiteURL, c.WebsiteURL)
	if c.AdminIDs != nil {
		config.AdminIDs = c.AdminIDs
	}

	setIf(&config.DBDriver, c.DBDriver)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.VoicesDir, c.VoicesDir)
	setIf(&config.CatalogFile, c.CatalogFile)

	setIf(&config.MaxTTSChars, c.MaxTTSChars)
	setIf(&config.CostPerVoice, c.CostPerVoice)
	setIf(&config.RequireValidityForTTS, c.RequireValidityForTTS)

	if c.ReaperInterval != nil {
		config.ReaperInterval = c.ReaperInterval.Duration
	}

	setIf(&config.UseWebhook, c.UseWebhook)
	setIf(&config.WebhookBaseURL, c.WebhookBaseURL)
	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.GRPCAddr, c.GRPCAddr)

	setIf(&config.RedisAddr, c.RedisAddr)
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}

	setIf(&config.BlobDriver, c.BlobDriver)
	setIf(&config.S3AccessKey, c.S3AccessKey)
	setIf(&config.S3SecretKey, c.S3SecretKey)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setIf(&config.BroadcastConcurrency, c.BroadcastConcurrency)
	if c.BroadcastDelay != nil {
		config.BroadcastDelay = c.BroadcastDelay.Duration
	}
	if c.BroadcastBackoff != nil {
		config.BroadcastBackoff = c.BroadcastBackoff.Duration
	}

	setIf(&config.LogBackend, c.LogBackend)
	setIf(&config.LogLevel, c.LogLevel)
	setIf(&config.LogFormat, c.LogFormat)
}
