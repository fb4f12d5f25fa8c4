package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peterkuimelis/powercountdown/internal/config"
	"github.com/peterkuimelis/powercountdown/internal/game"
	pcdnet "github.com/peterkuimelis/powercountdown/internal/net"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "play":
		runPlay(os.Args[2:])
	case "host":
		runHost(os.Args[2:])
	case "join":
		runJoin(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  pcd play [--difficulty LEVEL]")
	fmt.Println("  pcd host [--difficulty LEVEL] [--port P]")
	fmt.Println("  pcd join [--addr ADDR]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  play    Play a puzzle in this terminal")
	fmt.Println("  host    Start a puzzle server; every connection plays its own game")
	fmt.Println("  join    Connect to a puzzle server")
	fmt.Println()
	fmt.Println("Environment: PCD_LLM_API_KEY enables generated puzzles and hints;")
	fmt.Println("PCD_PUZZLES_FILE replaces the built-in puzzle catalog.")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// setup loads the environment config and builds the logger and puzzle
// provider. A non-empty difficulty flag overrides PCD_DIFFICULTY.
func setup(difficulty string) (game.Difficulty, *zap.Logger, *puzzle.Guard) {
	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fatal(err)
	}
	d := cfg.Difficulty
	if difficulty != "" {
		if d, err = game.ParseDifficulty(difficulty); err != nil {
			fatal(err)
		}
	}
	guard, err := cfg.NewGuard(logger)
	if err != nil {
		fatal(err)
	}
	return d, logger, guard
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	difficulty := fs.String("difficulty", "", "puzzle difficulty: easy, medium or hard")
	fs.Parse(args)

	d, logger, guard := setup(*difficulty)
	defer logger.Sync()
	// Keep the terminal for the game; only warnings reach stderr.
	logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))

	ctx, cancel := signalContext()
	defer cancel()

	serverSide, clientSide := net.Pipe()
	srv := &pcdnet.Server{Puzzles: guard, Difficulty: d, Logger: logger}
	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(ctx, serverSide) }()

	err := pcdnet.NewClient(clientSide, os.Stdin, os.Stdout).RunREPL(ctx)
	clientSide.Close()
	if serveErr := <-done; err == nil {
		err = serveErr
	}
	if err != nil {
		fatal(err)
	}
}

func runHost(args []string) {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	difficulty := fs.String("difficulty", "", "puzzle difficulty: easy, medium or hard")
	port := fs.String("port", "9000", "TCP port to listen on")
	fs.Parse(args)

	d, logger, guard := setup(*difficulty)
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	srv := &pcdnet.Server{
		Addr:       ":" + *port,
		Puzzles:    guard,
		Difficulty: d,
		Logger:     logger,
	}
	if err := srv.Run(ctx); err != nil {
		fatal(err)
	}
}

func runJoin(args []string) {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	addr := fs.String("addr", "localhost:9000", "server address to connect to")
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	if err := pcdnet.Connect(ctx, *addr, os.Stdin, os.Stdout); err != nil {
		fatal(err)
	}
}
