// Package main (in dlqctl-subfolder) is an operator tool for the dead-letter topic of the worker
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnendingLoop/ImageEvents/internal/settings"
	"github.com/wb-go/wbf/config"
)

func main() {
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Printf("No .env file loaded (%v), using process environment", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(settings.FromConfig(appConfig))
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Printf("dlqctl: %v", err)
		os.Exit(1)
	}
}
