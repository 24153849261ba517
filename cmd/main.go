package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"offer-relay/cmd/bootstrap"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Debug information stays hidden even when GIN_MODE is misconfigured.
	gin.SetMode(gin.ReleaseMode)

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe() error {
	app := fx.New(
		bootstrap.Module,
		fx.WithLogger(bootstrap.NewFxLogger),
	)

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	<-app.Done()

	if err := app.Stop(context.Background()); err != nil {
		slog.Error("shutdown incomplete", "error", err)
	}

	slog.Info("offer-relay stopped")
	return nil
}
