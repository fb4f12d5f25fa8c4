package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/config"
	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/web"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port to listen on")
	difficulty := flag.String("difficulty", "", "default puzzle difficulty: easy, medium or hard")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	d := cfg.Difficulty
	if *difficulty != "" {
		if d, err = game.ParseDifficulty(*difficulty); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	guard, err := cfg.NewGuard(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := web.NewServer(guard, d, logger.Named("web"))
	addr := fmt.Sprintf(":%d", *port)
	logger.Info("web UI listening", zap.String("url", fmt.Sprintf("http://localhost:%d", *port)))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
