package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/powercountdown/internal/config"
	"github.com/peterkuimelis/powercountdown/internal/game"
	pcdmcp "github.com/peterkuimelis/powercountdown/internal/mcp"
)

func main() {
	difficulty := flag.String("difficulty", "", "default puzzle difficulty: easy, medium or hard")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol; NewLogger writes to stderr.
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

	sess := pcdmcp.NewGameSession(guard, d, logger)
	defer sess.Close()

	s := server.NewMCPServer("powercountdown", "1.0.0")
	pcdmcp.RegisterTools(s, sess)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
