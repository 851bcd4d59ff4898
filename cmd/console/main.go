package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/voxbot/internal/console"
	"github.com/dmitrijs2005/voxbot/internal/server/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	c, closeFn, err := console.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeFn()

	c.Run(ctx)
}
