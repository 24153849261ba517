package bootstrap

import (
	"log/slog"
	"time"

	"offer-relay/internal/pkg/config"

	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
		NewDisplayLocation,
	),
)

// NewDisplayLocation is the zone offer expirations are rendered in.
func NewDisplayLocation(cfg config.Config, logger *slog.Logger) *time.Location {
	loc := cfg.Display.Location()
	if loc.String() != cfg.Display.TimeZone {
		logger.Warn("unknown display time zone, using UTC", "time_zone", cfg.Display.TimeZone)
	}
	return loc
}
