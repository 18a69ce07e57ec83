package config

import (
	"log/slog"

	"github.com/activefrequency/tranquilo-shopify/pkg/logger"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the environment-sourced configuration, read once at startup and
// passed to the components that need it.
type Config struct {
	ShopifyAPISecret   string   `env:"SHOPIFY_API_SECRET,required"`
	MDSEndpoint        string   `env:"MDS_WS_ENDPOINT,required"`
	MDSClientCode      string   `env:"MDS_CLIENT_CODE,required"`
	MDSClientSignature string   `env:"MDS_CLIENT_SIGNATURE,required"`
	MDSTest            string   `env:"MDS_TEST" envDefault:"Y"`
	SentryDSN          string   `env:"SENTRY_DSN"`
	SendgridUsername   string   `env:"SENDGRID_USERNAME"`
	SendgridPassword   string   `env:"SENDGRID_PASSWORD"`
	AlertFrom          string   `env:"ALERT_FROM" envDefault:"kevin@activefrequency.com"`
	AlertRecipients    []string `env:"ALERT_RECIPIENTS" envSeparator:"," envDefault:"kevin@activefrequency.com"`
}

// TestMode reports whether outbound documents should carry the Test flag.
func (c *Config) TestMode() bool {
	return c.MDSTest == "Y"
}

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/tranquilo-shopify")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

// MustNewConfig parses the environment into a Config.
func MustNewConfig() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic("error while parsing environment: " + err.Error())
	}

	return cfg
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}
