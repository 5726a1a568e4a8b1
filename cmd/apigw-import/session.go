package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"apigateway-importer/db/clickhouse"
	"apigateway-importer/db/postgres"
	"apigateway-importer/internal/journal"
	"apigateway-importer/pkg/importer"
	"apigateway-importer/pkg/platform"
)

const (
	journalNone       = "none"
	journalClickHouse = "clickhouse"
	journalPostgres   = "postgres"
)

// gatewayClient replaces the AWS client in every session when set.
var gatewayClient importer.Client

// journalStore is a journal backend the CLI can open.
type journalStore interface {
	journal.Recorder
	journal.Reader
	EnsureSchema(ctx context.Context) error
	Close() error
}

// openJournal connects the configured backend; nil when journaling is off.
func openJournal(ctx context.Context, c *cli.Context) (journalStore, error) {
	var (
		store journalStore
		err   error
	)
	switch kind := strings.ToLower(c.String("journal")); kind {
	case "", journalNone:
		return nil, nil
	case journalClickHouse:
		store, err = clickhouse.NewStore(&clickhouse.Config{
			Host:     c.String("clickhouse-host"),
			Port:     c.Int("clickhouse-port"),
			Database: c.String("clickhouse-database"),
			Username: c.String("clickhouse-user"),
			Password: c.String("clickhouse-password"),
			Table:    c.String("journal-table"),
		})
	case journalPostgres:
		dsn := c.String("postgres-dsn")
		if dsn == "" {
			return nil, fmt.Errorf("--postgres-dsn is required for the postgres journal")
		}
		store, err = postgres.NewStore(&postgres.Config{
			DSN:   dsn,
			Table: c.String("journal-table"),
		})
	default:
		return nil, fmt.Errorf("unknown journal backend %q", kind)
	}
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		closeJournal(slog.Default(), store)
		return nil, err
	}
	return store, nil
}

// session is one import session plus the resources backing it.
type session struct {
	*importer.Importer
	logger  *slog.Logger
	journal journalStore
}

func (s *session) Close() {
	if s.journal != nil {
		closeJournal(s.logger, s.journal)
	}
}

func closeJournal(logger *slog.Logger, store journalStore) {
	if err := store.Close(); err != nil {
		logger.Warn("failed to close journal", "error", err)
	}
}

// openSession loads the --file document and connects everything a remote
// command needs.
func openSession(ctx context.Context, c *cli.Context) (*session, error) {
	logger, err := platform.InitLogger(c.String("log-level"), c.String("log-format"))
	if err != nil {
		return nil, err
	}

	vars, err := parseVars(c.StringSlice("var"))
	if err != nil {
		return nil, err
	}

	store, err := openJournal(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	opts := importer.DefaultOptions()
	opts.Region = c.String("region")
	opts.Profile = c.String("profile")
	opts.Endpoint = c.String("endpoint")
	opts.RetryDelay = c.Duration("retry-delay")
	opts.Substitutions = vars
	opts.Logger = logger
	opts.Client = gatewayClient
	if store != nil {
		opts.Journal = store
	}

	imp, err := importer.NewFromFile(ctx, c.String("file"), opts)
	if err != nil {
		if store != nil {
			closeJournal(logger, store)
		}
		return nil, err
	}

	logger.Info("session started", "run_id", imp.RunID().String(), "title", imp.Document().Info.Title)
	return &session{Importer: imp, logger: logger, journal: store}, nil
}

// parseVars turns KEY=VALUE pairs into a substitution map.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected KEY=VALUE", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
