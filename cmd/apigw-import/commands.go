package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"apigateway-importer/internal/pathtree"
	"apigateway-importer/internal/swagger"
	ierrors "apigateway-importer/pkg/errors"
)

func documentFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Path to the Swagger 2.0 document (JSON or YAML)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "var",
			Usage: "Placeholder substitution KEY=VALUE for {{KEY}} in the document (repeatable)",
		},
	}, extra...)
}

// =============================================================================
// PLAN COMMAND
// =============================================================================

func planCommand() *cli.Command {
	return &cli.Command{
		Name:   "plan",
		Usage:  "Print the resource tree a document would create, without remote calls",
		Flags:  documentFlags(),
		Action: runPlan,
	}
}

func runPlan(c *cli.Context) error {
	vars, err := parseVars(c.StringSlice("var"))
	if err != nil {
		return err
	}
	doc, err := swagger.NewParser().WithSubstitutions(vars).ParseFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	tree, err := pathtree.NewBuilder().Build(doc.Paths)
	if err != nil {
		return fmt.Errorf("failed to build resource tree: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s: %d resources, %d methods, depth %d\n",
		doc.Info.Title, tree.ResourceCount, tree.MethodCount, tree.MaxDepth)
	if stage := doc.StageName(); stage != "" {
		fmt.Fprintf(w, "stage: %s\n", stage)
	}
	tree.Walk(func(n *pathtree.Node) bool {
		indent := strings.Repeat("  ", n.Depth-1)
		line := indent + n.Path
		if n.HasMethods() {
			var verbs []string
			for pair := n.Methods.Oldest(); pair != nil; pair = pair.Next() {
				verbs = append(verbs, pair.Key)
			}
			line += "  [" + strings.Join(verbs, " ") + "]"
		}
		fmt.Fprintln(w, line)
		return true
	})
	return nil
}

// =============================================================================
// REMOTE COMMANDS
// =============================================================================

// cleanupTimeout bounds the delete of a partially created API.
const cleanupTimeout = 2 * time.Minute

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new API from the document",
		Flags: documentFlags(
			&cli.BoolFlag{
				Name:  "deploy",
				Usage: "Deploy to the base path stage after creation",
			},
			&cli.BoolFlag{
				Name:  "cleanup-on-failure",
				Usage: "Delete the partially created API when creation fails",
			},
		),
		Action: runCreate,
	}
}

func runCreate(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Create(ctx); err != nil {
		if c.Bool("cleanup-on-failure") && s.APIID() != "" {
			s.logger.Warn("creation failed, deleting partial API", "api_id", s.APIID(), "error", err)
			// The command deadline may be what ended the create.
			cleanupCtx, cancelCleanup := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
			defer cancelCleanup()
			if cerr := s.Delete(cleanupCtx); cerr != nil {
				return fmt.Errorf("create failed: %w (cleanup also failed: %v)", err, cerr)
			}
		}
		return err
	}

	if c.Bool("deploy") {
		if err := s.Deploy(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.App.Writer, s.APIID())
	return nil
}

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:   "deploy",
		Usage:  "Deploy an existing API to the document's base path stage",
		Flags:  documentFlags(),
		Action: runDeploy,
	}
}

func runDeploy(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openExisting(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Deploy(ctx)
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Replace every resource of an existing API with the document's tree",
		Flags: documentFlags(
			&cli.BoolFlag{
				Name:  "deploy",
				Usage: "Deploy after the update",
			},
		),
		Action: runUpdate,
	}
}

func runUpdate(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openExisting(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.UpdateAPI(ctx); err != nil {
		return err
	}
	if c.Bool("deploy") {
		return s.Deploy(ctx)
	}
	return nil
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:   "delete",
		Usage:  "Delete the API named by the document's title",
		Flags:  documentFlags(),
		Action: runDelete,
	}
}

func runDelete(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openExisting(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Delete(ctx)
}

func resourcesCommand() *cli.Command {
	return &cli.Command{
		Name:   "resources",
		Usage:  "List the remote resources of the API named by the document's title",
		Flags:  documentFlags(),
		Action: runResources,
	}
}

func runResources(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openExisting(ctx, c)
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := s.GetResources(ctx)
	if err != nil {
		return err
	}
	sort.Slice(items, func(i, j int) bool {
		return aws.ToString(items[i].Path) < aws.ToString(items[j].Path)
	})

	for _, res := range items {
		verbs := make([]string, 0, len(res.ResourceMethods))
		for verb := range res.ResourceMethods {
			verbs = append(verbs, verb)
		}
		sort.Strings(verbs)
		fmt.Fprintf(c.App.Writer, "%-12s %-40s %s\n", aws.ToString(res.Id), aws.ToString(res.Path), strings.Join(verbs, " "))
	}
	return nil
}

func idCommand() *cli.Command {
	return &cli.Command{
		Name:  "id",
		Usage: "Print the id of the API named by the document's title",
		Flags: documentFlags(),
		Action: func(c *cli.Context) error {
			ctx, cancel := commandContext(c)
			defer cancel()

			s, err := openSession(ctx, c)
			if err != nil {
				return err
			}
			defer s.Close()

			found, err := s.GetAPIID(ctx)
			if err != nil {
				return err
			}
			if !found {
				return cli.Exit("", 1)
			}
			fmt.Fprintln(c.App.Writer, s.APIID())
			return nil
		},
	}
}

// openExisting opens a session and looks up the API by the document title.
func openExisting(ctx context.Context, c *cli.Context) (*session, error) {
	s, err := openSession(ctx, c)
	if err != nil {
		return nil, err
	}
	found, err := s.GetAPIID(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !found {
		s.Close()
		return nil, ierrors.NewNotFoundError(s.Document().Info.Title)
	}
	return s, nil
}

// =============================================================================
// HISTORY COMMAND
// =============================================================================

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print the journal entries of one run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "run",
				Usage:    "Run id printed by a previous command",
				Required: true,
			},
		},
		Action: runHistory,
	}
}

func runHistory(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	runID, err := uuid.Parse(c.String("run"))
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	store, err := openJournal(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if store == nil {
		return fmt.Errorf("history requires --journal clickhouse or --journal postgres")
	}
	defer closeJournal(slog.Default(), store)

	entries, err := store.ListRun(ctx, runID)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%-24s %-24s %-40s %8s %9s %s\n", "TIME", "OPERATION", "TARGET", "ATTEMPTS", "SECONDS", "OUTCOME")
	for _, e := range entries {
		outcome := string(e.Outcome)
		if e.Error != "" {
			outcome += ": " + e.Error
		}
		fmt.Fprintf(w, "%-24s %-24s %-40s %8d %9s %s\n",
			e.RecordedAt.Format("2006-01-02T15:04:05.000"),
			e.Operation, e.Target, e.Attempts,
			e.ElapsedSeconds.StringFixed(3), outcome,
		)
	}
	return nil
}
