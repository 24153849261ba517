package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (tokens, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, intervals, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server  ServerConfig
	CORS    CORSConfig
	Log     LogConfig
	Store   StoreConfig
	DB      DBConfig
	Trading TradingConfig
	Discord DiscordConfig
	Ingest  IngestConfig
	Notify  NotifyConfig
	Display DisplayConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"false"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"PST"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"-28800"` // -8*60*60
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type StoreConfig struct {
	Driver     string `envconfig:"STORE_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"STORE_SQLITE_PATH" default:"offers.db"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"offers"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME" default:"offers"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"4"`
}

type TradingConfig struct {
	Endpoint           string        `envconfig:"EBAY_ENDPOINT" default:"https://api.ebay.com/ws/api.dll"`
	AppID              string        `envconfig:"EBAY_APP_ID" required:"true"`
	DevID              string        `envconfig:"EBAY_DEV_ID" required:"true"`
	CertID             string        `envconfig:"EBAY_CERT_ID" required:"true"`
	AuthToken          string        `envconfig:"EBAY_AUTH_TOKEN" required:"true"`
	SiteID             string        `envconfig:"EBAY_SITE_ID" default:"0"`
	CompatibilityLevel string        `envconfig:"EBAY_COMPATIBILITY_LEVEL" default:"1349"`
	CounterCurrency    string        `envconfig:"EBAY_COUNTER_CURRENCY" default:"USD"`
	Timeout            time.Duration `envconfig:"EBAY_TIMEOUT" default:"30s"`
}

type DiscordConfig struct {
	Token         string `envconfig:"DISCORD_TOKEN" required:"true"`
	GuildID       string `envconfig:"DISCORD_GUILD_ID"`
	ApplicationID string `envconfig:"DISCORD_APPLICATION_ID"`
}

type IngestConfig struct {
	Interval               time.Duration `envconfig:"INGEST_INTERVAL" default:"1h"`
	PageSize               int           `envconfig:"INGEST_PAGE_SIZE" default:"200"`
	MaxPages               int           `envconfig:"INGEST_MAX_PAGES" default:"600"`
	SKUWorkers             int           `envconfig:"INGEST_SKU_WORKERS" default:"4"`
	MaxConsecutiveFailures int           `envconfig:"INGEST_MAX_CONSECUTIVE_FAILURES" default:"3"`
	LockTTL                time.Duration `envconfig:"INGEST_LOCK_TTL" default:"2h"`
}

type NotifyConfig struct {
	Interval       time.Duration `envconfig:"NOTIFY_INTERVAL" default:"1h"`
	ChannelMapPath string        `envconfig:"NOTIFY_CHANNEL_MAP" default:"channel_map.yaml"`
}

type DisplayConfig struct {
	TimeZone string `envconfig:"DISPLAY_TIMEZONE" default:"America/Los_Angeles"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// Location falls back to UTC when the zone database has no entry for the configured name.
func (c DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.Store.Driver != StoreDriverPostgres && cfg.Store.Driver != StoreDriverSQLite {
		return Config{}, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       time.Hour,
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		Store: StoreConfig{
			Driver:     StoreDriverSQLite,
			SQLitePath: ":memory:",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 2,
		},
		Trading: TradingConfig{
			Endpoint:           "http://127.0.0.1:0/ws/api.dll",
			AppID:              "test-app",
			DevID:              "test-dev",
			CertID:             "test-cert",
			AuthToken:          "test-token",
			SiteID:             "0",
			CompatibilityLevel: "1349",
			CounterCurrency:    "USD",
			Timeout:            5 * time.Second,
		},
		Discord: DiscordConfig{
			Token: "test-token",
		},
		Ingest: IngestConfig{
			Interval:               time.Hour,
			PageSize:               200,
			MaxPages:               600,
			SKUWorkers:             2,
			MaxConsecutiveFailures: 3,
			LockTTL:                time.Hour,
		},
		Notify: NotifyConfig{
			Interval:       time.Hour,
			ChannelMapPath: "channel_map.yaml",
		},
		Display: DisplayConfig{
			TimeZone: "America/Los_Angeles",
		},
	}
}
