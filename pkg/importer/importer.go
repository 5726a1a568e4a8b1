// Package importer imports a Swagger 2.0 document into API Gateway.
//
// An Importer is one session: it holds the parsed document, the resource tree
// derived from it, and the id of the remote API once created or looked up.
// It is not safe for concurrent use.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/google/uuid"

	"apigateway-importer/internal/gateway"
	"apigateway-importer/internal/journal"
	"apigateway-importer/internal/pathtree"
	"apigateway-importer/internal/reconcile"
	"apigateway-importer/internal/retry"
	"apigateway-importer/internal/swagger"
	"apigateway-importer/pkg/platform"
)

// Importer drives one document against the control plane
type Importer struct {
	doc    *swagger.Document
	tree   *pathtree.Tree
	driver *reconcile.Driver
	logger *slog.Logger
	runID  uuid.UUID
	apiID  string
}

// New creates an import session for doc.
func New(ctx context.Context, doc *swagger.Document, opts Options) (*Importer, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}

	tree, err := pathtree.NewBuilder().Build(doc.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource tree: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = platform.NewLogger(os.Stderr, opts.LogLevel, opts.LogFormat)
		if err != nil {
			return nil, err
		}
	}
	runID := uuid.New()
	logger = logger.With("run_id", runID.String())

	client := opts.Client
	if client == nil {
		client, err = gateway.NewClient(ctx, gateway.Config{
			Region:   opts.Region,
			Profile:  opts.Profile,
			Endpoint: opts.Endpoint,
		})
		if err != nil {
			return nil, err
		}
	}

	recorder := opts.Journal
	if recorder == nil {
		recorder = journal.Nop{}
	}
	retrier := retry.New(opts.RetryDelay,
		retry.WithLogger(logger),
		retry.WithJournal(recorder, runID),
	)

	logger.Debug("resource tree built",
		"title", doc.Info.Title,
		"resources", tree.ResourceCount,
		"methods", tree.MethodCount,
		"depth", tree.MaxDepth,
	)

	return &Importer{
		doc:    doc,
		tree:   tree,
		driver: reconcile.NewDriver(client, retrier, logger, opts.PageSize),
		logger: logger,
		runID:  runID,
	}, nil
}

// NewFromFile loads a JSON or YAML document and creates a session for it.
func NewFromFile(ctx context.Context, path string, opts Options) (*Importer, error) {
	doc, err := swagger.NewParser().WithSubstitutions(opts.Substitutions).ParseFile(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, doc, opts)
}

// Create creates the API and its whole resource tree. On failure after the
// API exists its id stays held, so the caller can Delete the partial API.
func (i *Importer) Create(ctx context.Context) error {
	apiID, err := i.driver.CreateAPI(ctx, i.doc.Info.Title)
	if err != nil {
		return err
	}
	i.apiID = apiID
	i.logger.Info("API created", "api_id", apiID, "title", i.doc.Info.Title)

	rootID, err := i.driver.RootResource(ctx, apiID)
	if err != nil {
		return err
	}
	if err := i.driver.CreateResources(ctx, apiID, rootID, i.tree.Paths); err != nil {
		return err
	}

	i.logger.Info("API imported",
		"api_id", apiID,
		"resources", i.tree.ResourceCount,
		"methods", i.tree.MethodCount,
	)
	return nil
}

// Deploy publishes the held API to the stage named by the base path.
func (i *Importer) Deploy(ctx context.Context) error {
	id, err := i.driver.Deploy(ctx, i.apiID, i.doc.StageName())
	if err != nil {
		return err
	}
	i.logger.Info("API deployed", "api_id", i.apiID, "stage", i.doc.StageName(), "deployment_id", id)
	return nil
}

// Delete deletes the held API and clears the id.
func (i *Importer) Delete(ctx context.Context) error {
	if err := i.driver.DeleteAPI(ctx, i.apiID); err != nil {
		return err
	}
	i.logger.Info("API deleted", "api_id", i.apiID)
	i.apiID = ""
	return nil
}

// DeleteResources leaves the held API with a method-less root and returns
// the root resource id.
func (i *Importer) DeleteResources(ctx context.Context) (string, error) {
	return i.driver.DeleteResources(ctx, i.apiID)
}

// UpdateAPI replaces every resource of the held API with the document's tree.
func (i *Importer) UpdateAPI(ctx context.Context) error {
	if err := i.driver.UpdateAPI(ctx, i.apiID, i.tree); err != nil {
		return err
	}
	i.logger.Info("API updated", "api_id", i.apiID)
	return nil
}

// GetAPIID looks up the API by the document title and holds its id when found.
func (i *Importer) GetAPIID(ctx context.Context) (bool, error) {
	id, found, err := i.driver.FindAPI(ctx, i.doc.Info.Title)
	if err != nil {
		return false, err
	}
	if found {
		i.apiID = id
	}
	return found, nil
}

// GetResources lists the held API's resources with their methods.
func (i *Importer) GetResources(ctx context.Context) ([]types.Resource, error) {
	return i.driver.GetResources(ctx, i.apiID, true)
}

// APIID returns the held API id, empty when none.
func (i *Importer) APIID() string { return i.apiID }

// SetAPIID holds an API id obtained elsewhere.
func (i *Importer) SetAPIID(id string) { i.apiID = id }

// RunID identifies this session in logs and the journal.
func (i *Importer) RunID() uuid.UUID { return i.runID }

func (i *Importer) Tree() *pathtree.Tree { return i.tree }

func (i *Importer) Document() *swagger.Document { return i.doc }
