package sentry

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// MustInit wires error tracking when a DSN is configured. With an empty DSN the
// default hub stays unbound and every capture call is a no-op.
func MustInit(dsn string) {
	if dsn == "" {
		slog.Info("Sentry disabled, no DSN configured")

		return
	}

	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		panic("error while initializing sentry: " + err.Error())
	}
}

// Flush drains buffered events before shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}
