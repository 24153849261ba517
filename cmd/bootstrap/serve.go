package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"offer-relay/internal/handler/bot"
	"offer-relay/internal/pkg/config"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/scheduler"
	"offer-relay/internal/usecase/commands"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var ServeModule = fx.Module("serve",
	fx.Provide(
		func() *gin.Engine {
			return gin.New()
		},
		NewScheduler,
	),
	fx.Invoke(
		startServer,
		startBot,
		startScheduler,
	),
)

// @title           offer-relay
// @version         1.0
// @description     Admin API for the best-offer relay.

// @BasePath  /
// @schemes http https
func startServer(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: engine}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			gin.EnableJsonDecoderDisallowUnknownFields()
			logger.Info("🚀 starting admin server", "address", srv.Addr, "mode", gin.Mode())
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("admin server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("🛑 stopping admin server")
			return srv.Shutdown(ctx)
		},
	})
}

func startBot(lc fx.Lifecycle, s *discordgo.Session, h *bot.InteractionHandler, cfg config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.AddHandler(h.OnInteractionCreate)
			if err := s.Open(); err != nil {
				return errs.Wrap(err, "open discord gateway")
			}
			appID := cfg.Discord.ApplicationID
			if appID == "" && s.State != nil && s.State.User != nil {
				appID = s.State.User.ID
			}
			if err := bot.RegisterCommands(s, appID, cfg.Discord.GuildID); err != nil {
				logger.Error("slash commands not registered", "error", err)
			}
			logger.Info("discord bot connected", "application_id", appID, "guild_id", cfg.Discord.GuildID)
			return nil
		},
		OnStop: func(_ context.Context) error {
			return s.Close()
		},
	})
}

func NewScheduler(
	cfg config.Config,
	ingestion commands.IngestionPipeline,
	notification commands.NotificationDispatcher,
	logger *slog.Logger,
) *scheduler.Scheduler {
	return scheduler.New(logger,
		scheduler.Job{
			Name:     "ingestion",
			Interval: cfg.Ingest.Interval,
			Run: func(ctx context.Context) error {
				summary, err := ingestion.RunCycle(ctx)
				if errors.Is(err, errs.ErrCycleInProgress) {
					logger.Info("ingestion skipped, another cycle is running")
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("ingestion cycle finished", "cycle_id", summary.CycleID, "inserted", summary.Inserted, "deferred", summary.Deferred)
				return nil
			},
		},
		scheduler.Job{
			Name:     "notification",
			Interval: cfg.Notify.Interval,
			Run: func(ctx context.Context) error {
				summary, err := notification.RunCycle(ctx)
				if errors.Is(err, errs.ErrCycleInProgress) {
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("notification cycle finished", "cycle_id", summary.CycleID, "alerted", summary.Alerted, "skipped", summary.Skipped)
				return nil
			},
		},
	)
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			s.Stop()
			return nil
		},
	})
}
