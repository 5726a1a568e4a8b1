// apigw-import - Swagger to API Gateway importer
//
// Usage:
//
//	apigw-import plan   --file api.json
//	apigw-import create --file api.json --deploy [--cleanup-on-failure]
//	apigw-import update --file api.json --deploy
//	apigw-import delete --file api.json
//	apigw-import history --run <uuid> --journal postgres
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"apigateway-importer/db/clickhouse"
	"apigateway-importer/internal/retry"
	"apigateway-importer/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		platform.LogFatal(slog.Default(), "command failed", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "apigw-import",
		Usage:   "Import Swagger 2.0 documents into Amazon API Gateway",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region",
				EnvVars: []string{"AWS_REGION", "AWS_DEFAULT_REGION"},
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "Shared AWS config profile",
				EnvVars: []string{"AWS_PROFILE"},
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "API Gateway endpoint override (e.g. a local emulator)",
				EnvVars: []string{"APIGW_IMPORT_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error, silent)",
				EnvVars: []string{"APIGW_IMPORT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (text, json)",
				EnvVars: []string{"APIGW_IMPORT_LOG_FORMAT"},
			},
			&cli.DurationFlag{
				Name:    "retry-delay",
				Value:   retry.DefaultBaseDelay,
				Usage:   "Backoff unit for rate-limited calls; attempt n waits n times this",
				EnvVars: []string{"APIGW_IMPORT_RETRY_DELAY"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Abort the whole command after this long (0 waits indefinitely)",
				EnvVars: []string{"APIGW_IMPORT_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "journal",
				Value:   journalNone,
				Usage:   "Operation journal backend (none, clickhouse, postgres)",
				EnvVars: []string{"APIGW_IMPORT_JOURNAL"},
			},
			&cli.StringFlag{
				Name:    "journal-table",
				Value:   clickhouse.DefaultTable,
				Usage:   "Journal table name",
				EnvVars: []string{"APIGW_IMPORT_JOURNAL_TABLE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "default",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "PostgreSQL DSN for the journal",
				EnvVars: []string{"APIGW_IMPORT_POSTGRES_DSN", "DATABASE_URL"},
			},
		},

		Commands: []*cli.Command{
			planCommand(),
			createCommand(),
			deployCommand(),
			updateCommand(),
			deleteCommand(),
			resourcesCommand(),
			idCommand(),
			historyCommand(),
		},
	}
}

// commandContext applies the global --timeout to the command's context.
func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	if timeout := c.Duration("timeout"); timeout > 0 {
		return context.WithTimeout(c.Context, timeout)
	}
	return context.WithCancel(c.Context)
}
