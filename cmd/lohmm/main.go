// lohmm normalizes Greenberg Unix traces into LOHMM facts and serves past runs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ashureev/lohmm-traces/internal/config"
	"github.com/joho/godotenv"
)

const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
)

// version is stamped at release time via ldflags.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitInvalidInput
	}

	switch arguments[1] {
	case "version", "--version", "-v":
		fmt.Println("lohmm", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	case "normalize", "serve":
	default:
		printUsage()
		return exitInvalidInput
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalidInput
	}
	slog.SetDefault(newLogger(cfg.LogLevel))

	if arguments[1] == "serve" {
		return runServe(cfg, arguments[2:])
	}
	return runNormalize(cfg, arguments[2:])
}

// newLogger writes JSON to stderr; stdout is left for command output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  lohmm normalize [-corpus DIR] [-prefix P] [-first N] [-last N] [-out DIR] [-window W] [-workers N] [-no-store]")
	fmt.Println("  lohmm serve [-port P]")
	fmt.Println("  lohmm version")
}
