package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/voxbot/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-d", "-driver", "-t", "-v", "-i", "-l", "-webhook"}

// parseFlags overlays command-line flags:
//
//	-a string     HTTP listen address (health, metrics, webhook)
//	-g string     gRPC health listen address
//	-d string     database DSN (sqlite path or postgres URL)
//	-driver       database driver: sqlite | postgres
//	-t string     Telegram bot token
//	-v string     directory for locally stored voice files
//	-i duration   expiry reaper interval
//	-l string     log level
//	-webhook url  switch to webhook mode with this public base URL
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("voxbot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health listen address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DBDriver, "driver", config.DBDriver, "database driver")
	fs.StringVar(&config.BotToken, "t", config.BotToken, "Telegram bot token")
	fs.StringVar(&config.VoicesDir, "v", config.VoicesDir, "voices directory")
	fs.DurationVar(&config.ReaperInterval, "i", config.ReaperInterval, "expiry reaper interval")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	webhook := fs.String("webhook", "", "webhook base URL")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	if *webhook != "" {
		config.UseWebhook = true
		config.WebhookBaseURL = *webhook
	}
	return nil
}
