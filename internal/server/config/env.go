package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/flagx"
)

const defaultEnvFile = ".env"

// envLookup layers a dotenv file under the real environment. A missing
// default .env is fine; a missing file named with -env-file is not.
func envLookup(args []string, lookupEnv func(string) (string, bool)) (func(string) (string, bool), error) {
	path := flagx.EnvFile(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	file, err := godotenv.Read(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
		file = map[string]string{}
	}

	return func(key string) (string, bool) {
		if lookupEnv != nil {
			if v, ok := lookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := file[key]
		return v, ok
	}, nil
}

func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.EqualFold(strings.TrimSpace(v), "true")
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("BOT_TOKEN", &config.BotToken)
	str("VOICE_API_KEY", &config.VoiceAPIKey)
	str("FISH_AUDIO_BASE_URL", &config.FishAudioBaseURL)
	str("FISH_AUDIO_BACKEND", &config.FishAudioBackend)
	num("FISH_AUDIO_MP3_BITRATE", &config.MP3Bitrate)
	dur("SYNTHESIS_TIMEOUT", &config.SynthesisTimeout)

	str("ADMIN_CONTACT", &config.AdminContact)
	str("WEBSITE_URL", &config.WebsiteURL)
	if v, ok := lookup("ADMIN_IDS"); ok && v != "" {
		config.AdminIDs = common.ParseUserIDs(v)
	}

	str("DB_DRIVER", &config.DBDriver)
	str("DB_PATH", &config.DatabaseDSN)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("VOICES_DIR", &config.VoicesDir)
	str("CATALOG_FILE", &config.CatalogFile)

	num("MAX_TTS_CHARS", &config.MaxTTSChars)
	num("COST_PER_VOICE", &config.CostPerVoice)
	boolean("REQUIRE_VALIDITY_FOR_TTS", &config.RequireValidityForTTS)
	dur("REAPER_INTERVAL", &config.ReaperInterval)

	boolean("USE_WEBHOOK", &config.UseWebhook)
	str("WEBHOOK_BASE_URL", &config.WebhookBaseURL)
	if v, ok := lookup("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			config.HTTPAddr = ":" + v
		}
	}
	str("GRPC_ADDR", &config.GRPCAddr)

	str("REDIS_ADDR", &config.RedisAddr)
	dur("SESSION_TTL", &config.SessionTTL)

	str("BLOB_DRIVER", &config.BlobDriver)
	str("S3_ACCESS_KEY", &config.S3AccessKey)
	str("S3_SECRET_KEY", &config.S3SecretKey)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	str("LOG_BACKEND", &config.LogBackend)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)

	return errors.Join(errs...)
}
