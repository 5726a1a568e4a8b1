package importer

import (
	"log/slog"
	"time"

	"apigateway-importer/internal/gateway"
	"apigateway-importer/internal/journal"
	"apigateway-importer/internal/reconcile"
	"apigateway-importer/internal/retry"
)

// Client is the control-plane surface an Importer drives.
// *apigateway.Client satisfies it.
type Client = gateway.API

// Recorder receives one entry per remote call.
type Recorder = journal.Recorder

// Options configures an import session
type Options struct {
	// AWS client settings, used when Client is nil
	Region   string
	Profile  string
	Endpoint string

	// Logging, used when Logger is nil
	LogLevel  string
	LogFormat string

	// RetryDelay is the linear backoff unit for rate-limited calls.
	RetryDelay time.Duration

	// PageSize bounds API and resource listings.
	PageSize int32

	// Substitutions replace {{KEY}} placeholders when loading a file.
	Substitutions map[string]string

	Client  Client
	Logger  *slog.Logger
	Journal Recorder
}

// DefaultOptions returns default session options
func DefaultOptions() Options {
	return Options{
		LogLevel:   "info",
		LogFormat:  "json",
		RetryDelay: retry.DefaultBaseDelay,
		PageSize:   reconcile.DefaultPageSize,
	}
}
