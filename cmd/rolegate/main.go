// Command rolegate is a terminal client for the role-based account API.
//
// Each invocation restores the stored session, runs one command and exits,
// the way a page load would. "rolegate serve" instead keeps the session in
// a long-running loopback JSON server for a thin front end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/infrastructure/config"
	"github.com/rolegate/portal-client/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", domain.Message(err))
		cancel()
		os.Exit(1)
	}
}

func start(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Env:    cfg.Env,
		Output: os.Stderr,
	})
	if err := run(ctx, cfg, log, os.Args[1:], os.Stdout); err != nil {
		mainLog := logger.Component("main")
		mainLog.Debug().Err(err).Str("kind", domain.KindOf(err).String()).Msg("command failed")
		return err
	}
	return nil
}
