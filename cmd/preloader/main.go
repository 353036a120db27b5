// Command preloader generates an opcache preload script from the files the
// running cache reports as most used.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/preloadkit/preloader/internal/preloader"
)

func main() {
	// .env is optional; webhook URLs and auth secrets are usually set there.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCommand(newApp())
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for precondition failures the user can fix in config, 1 for
// everything else.
func exitCode(err error) int {
	var pe *preloader.PreconditionError
	if errors.As(err, &pe) {
		slog.Error("preloader: cannot generate", "err", err)
		return 2
	}
	slog.Error("preloader: failed", "err", err)
	return 1
}
