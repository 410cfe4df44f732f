package logging

import (
	"log/slog"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards server errors to an external tracker.
type Reporter interface {
	Report(err error, userID string, extras map[string]interface{})
	Close()
}

// NopReporter discards every report.
type NopReporter struct{}

func (NopReporter) Report(error, string, map[string]interface{}) {}
func (NopReporter) Close()                                        {}

// RollbarReporter sends errors to Rollbar.
type RollbarReporter struct{}

var _ Reporter = RollbarReporter{}

// NewReporter returns a Rollbar reporter when token is set, otherwise a no-op.
func NewReporter(token, env, host string) Reporter {
	if token == "" {
		return NopReporter{}
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetServerHost(host)
	rollbar.SetEnabled(true)
	slog.Info("rollbar error reporting enabled", "env", env)
	return RollbarReporter{}
}

// Report sends err with the acting user attached, if any.
func (RollbarReporter) Report(err error, userID string, extras map[string]interface{}) {
	if userID != "" {
		rollbar.SetPerson(userID, "", "")
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Error(err, extras)
}

// Close flushes queued items.
func (RollbarReporter) Close() {
	rollbar.Close()
}
