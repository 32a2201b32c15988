package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/synoplay/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	err := app.Run(ctx, os.Args)
	if err == nil {
		return
	}

	msg, code := describeError(err)
	if code == 0 {
		logger.Warn(msg)
		os.Exit(0)
	}
	logger.Debug("application error", "error", err)
	fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
	os.Exit(code)
}
