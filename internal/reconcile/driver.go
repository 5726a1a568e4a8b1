// Package reconcile walks a resource tree and materializes it in API Gateway.
//
// Every remote call goes through the retry wrapper and runs in sequence:
// parents before children, siblings in document order, and for each verb
// method, integration, method responses, then integration responses.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"apigateway-importer/internal/gateway"
	"apigateway-importer/internal/pathtree"
	"apigateway-importer/internal/retry"
	"apigateway-importer/internal/swagger"
	"apigateway-importer/internal/translate"
	ierrors "apigateway-importer/pkg/errors"
)

// DefaultPageSize is the listing page size for APIs and resources.
const DefaultPageSize int32 = 500

const embedMethods = "methods"

// Driver issues control-plane calls for one client. It holds no API id;
// callers pass it to every operation.
type Driver struct {
	client   gateway.API
	retrier  *retry.Retrier
	logger   *slog.Logger
	pageSize int32
}

// NewDriver creates a driver. A nil retrier or logger selects the defaults;
// a non-positive pageSize selects DefaultPageSize.
func NewDriver(client gateway.API, retrier *retry.Retrier, logger *slog.Logger, pageSize int32) *Driver {
	if retrier == nil {
		retrier = retry.New(retry.DefaultBaseDelay)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Driver{
		client:   client,
		retrier:  retrier,
		logger:   logger,
		pageSize: pageSize,
	}
}

// FindAPI looks up an API by exact name across every page of the listing.
func (d *Driver) FindAPI(ctx context.Context, name string) (string, bool, error) {
	p := apigateway.NewGetRestApisPaginator(d.client, &apigateway.GetRestApisInput{
		Limit: aws.Int32(d.pageSize),
	})
	for p.HasMorePages() {
		page, err := retry.Call(ctx, d.retrier, retry.Op{Name: "getRestApis", Target: name}, func(ctx context.Context) (*apigateway.GetRestApisOutput, error) {
			return p.NextPage(ctx)
		})
		if err != nil {
			return "", false, fmt.Errorf("failed to list APIs: %w", err)
		}
		for _, api := range page.Items {
			if aws.ToString(api.Name) == name {
				return aws.ToString(api.Id), true, nil
			}
		}
	}
	return "", false, nil
}

// CreateAPI creates an API named title after checking no API already uses
// that name. A collision issues no create call.
func (d *Driver) CreateAPI(ctx context.Context, title string) (string, error) {
	if _, found, err := d.FindAPI(ctx, title); err != nil {
		return "", err
	} else if found {
		return "", ierrors.NewNameCollisionError(title)
	}

	d.logger.Info("creating API", "title", title)
	out, err := retry.Call(ctx, d.retrier, retry.Op{Name: "createRestApi", Target: title}, func(ctx context.Context) (*apigateway.CreateRestApiOutput, error) {
		return d.client.CreateRestApi(ctx, &apigateway.CreateRestApiInput{Name: aws.String(title)})
	})
	if err != nil {
		return "", fmt.Errorf("failed to create API %q: %w", title, err)
	}
	return aws.ToString(out.Id), nil
}

// GetResources lists every resource of an API, optionally with the verbs
// declared on each.
func (d *Driver) GetResources(ctx context.Context, apiID string, withMethods bool) ([]types.Resource, error) {
	in := &apigateway.GetResourcesInput{
		RestApiId: optional(apiID),
		Limit:     aws.Int32(d.pageSize),
	}
	if withMethods {
		in.Embed = []string{embedMethods}
	}

	var items []types.Resource
	p := apigateway.NewGetResourcesPaginator(d.client, in)
	for p.HasMorePages() {
		page, err := retry.Call(ctx, d.retrier, retry.Op{Name: "getResources", APIID: apiID}, func(ctx context.Context) (*apigateway.GetResourcesOutput, error) {
			return p.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list resources: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// RootResource returns the id of the API's "/" resource.
func (d *Driver) RootResource(ctx context.Context, apiID string) (string, error) {
	items, err := d.GetResources(ctx, apiID, false)
	if err != nil {
		return "", err
	}
	root, ok := findRoot(items)
	if !ok {
		return "", ierrors.NewMissingRootError(apiID)
	}
	return aws.ToString(root.Id), nil
}

// CreateResources materializes nodes under parentID. The "/" node reuses
// parentID, which must then be the root resource.
func (d *Driver) CreateResources(ctx context.Context, apiID, parentID string, nodes *orderedmap.OrderedMap[string, *pathtree.Node]) error {
	if nodes == nil {
		return nil
	}
	for pair := nodes.Oldest(); pair != nil; pair = pair.Next() {
		if err := d.createResource(ctx, apiID, parentID, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) createResource(ctx context.Context, apiID, parentID string, node *pathtree.Node) error {
	if node.IsRoot() {
		return d.installMethods(ctx, apiID, parentID, node)
	}

	d.logger.Info("creating resource", "api_id", apiID, "path", node.Path)
	out, err := retry.Call(ctx, d.retrier, retry.Op{Name: "createResource", Target: node.Path, APIID: apiID}, func(ctx context.Context) (*apigateway.CreateResourceOutput, error) {
		return d.client.CreateResource(ctx, &apigateway.CreateResourceInput{
			RestApiId: optional(apiID),
			ParentId:  optional(parentID),
			PathPart:  aws.String(node.Segment),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to create resource %s: %w", node.Path, err)
	}
	resourceID := aws.ToString(out.Id)

	if err := d.installMethods(ctx, apiID, resourceID, node); err != nil {
		return err
	}
	if node.HasChildren() {
		return d.CreateResources(ctx, apiID, resourceID, node.Paths)
	}
	return nil
}

func (d *Driver) installMethods(ctx context.Context, apiID, resourceID string, node *pathtree.Node) error {
	if !node.HasMethods() {
		return nil
	}
	for pair := node.Methods.Oldest(); pair != nil; pair = pair.Next() {
		target := translate.Target{
			APIID:      apiID,
			ResourceID: resourceID,
			Verb:       pair.Key,
			Path:       node.Path,
		}
		if err := d.putMethod(ctx, target, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// step is one remote call of a method installation.
type step struct {
	op  retry.Op
	msg string
	run func(context.Context) error
}

// putMethod installs one verb. The integration is translated before any call
// so a missing integration block leaves no orphaned method behind.
func (d *Driver) putMethod(ctx context.Context, target translate.Target, op *swagger.Operation) error {
	integration, err := translate.Integration(op, target)
	if err != nil {
		return err
	}

	label := target.Path + " " + target.Verb
	steps := []step{
		{
			op:  retry.Op{Name: "putMethod", Target: label, APIID: target.APIID},
			msg: "creating method",
			run: func(ctx context.Context) error {
				_, err := d.client.PutMethod(ctx, translate.Method(op, target))
				return err
			},
		},
		{
			op:  retry.Op{Name: "putIntegration", Target: label, APIID: target.APIID},
			msg: "creating integration",
			run: func(ctx context.Context) error {
				_, err := d.client.PutIntegration(ctx, integration)
				return err
			},
		},
	}
	for _, in := range translate.MethodResponses(op, target) {
		steps = append(steps, step{
			op:  retry.Op{Name: "putMethodResponse", Target: label + " " + aws.ToString(in.StatusCode), APIID: target.APIID},
			msg: "creating method response",
			run: func(ctx context.Context) error {
				_, err := d.client.PutMethodResponse(ctx, in)
				return err
			},
		})
	}
	for _, in := range translate.IntegrationResponses(op, target) {
		pattern := aws.ToString(in.SelectionPattern)
		if in.SelectionPattern == nil {
			pattern = translate.DefaultSelectionPattern
		}
		steps = append(steps, step{
			op:  retry.Op{Name: "putIntegrationResponse", Target: label + " " + pattern, APIID: target.APIID},
			msg: "creating integration response",
			run: func(ctx context.Context) error {
				_, err := d.client.PutIntegrationResponse(ctx, in)
				return err
			},
		})
	}

	return d.runSteps(ctx, steps)
}

// runSteps executes steps in order and stops at the first failure.
func (d *Driver) runSteps(ctx context.Context, steps []step) error {
	for _, s := range steps {
		d.logger.Info(s.msg, "api_id", s.op.APIID, "target", s.op.Target)
		_, err := retry.Call(ctx, d.retrier, s.op, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.run(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to %s %s: %w", s.op.Name, s.op.Target, err)
		}
	}
	return nil
}

// DeleteResources strips the API down to a method-less root: it deletes the
// root's methods, then every level-one resource, relying on the remote
// cascade for deeper levels. It returns the root resource id.
func (d *Driver) DeleteResources(ctx context.Context, apiID string) (string, error) {
	items, err := d.GetResources(ctx, apiID, true)
	if err != nil {
		return "", err
	}
	root, ok := findRoot(items)
	if !ok {
		return "", ierrors.NewMissingRootError(apiID)
	}
	rootID := aws.ToString(root.Id)

	verbs := make([]string, 0, len(root.ResourceMethods))
	for verb := range root.ResourceMethods {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)

	for _, verb := range verbs {
		d.logger.Info("deleting method", "api_id", apiID, "path", pathtree.RootSegment, "method", verb)
		_, err := retry.Call(ctx, d.retrier, retry.Op{Name: "deleteMethod", Target: "/ " + verb, APIID: apiID}, func(ctx context.Context) (*apigateway.DeleteMethodOutput, error) {
			return d.client.DeleteMethod(ctx, &apigateway.DeleteMethodInput{
				RestApiId:  optional(apiID),
				ResourceId: aws.String(rootID),
				HttpMethod: aws.String(verb),
			})
		})
		if err != nil {
			return "", fmt.Errorf("failed to delete root method %s: %w", verb, err)
		}
	}

	for _, res := range items {
		if aws.ToString(res.ParentId) != rootID {
			continue
		}
		path := aws.ToString(res.Path)
		d.logger.Info("deleting resource", "api_id", apiID, "path", path)
		_, err := retry.Call(ctx, d.retrier, retry.Op{Name: "deleteResource", Target: path, APIID: apiID}, func(ctx context.Context) (*apigateway.DeleteResourceOutput, error) {
			return d.client.DeleteResource(ctx, &apigateway.DeleteResourceInput{
				RestApiId:  optional(apiID),
				ResourceId: res.Id,
			})
		})
		if err != nil {
			return "", fmt.Errorf("failed to delete resource %s: %w", path, err)
		}
	}
	return rootID, nil
}

// UpdateAPI replaces every resource of the API with the tree. It is not
// atomic: a failure after the deletions leaves the API partly built.
func (d *Driver) UpdateAPI(ctx context.Context, apiID string, tree *pathtree.Tree) error {
	rootID, err := d.DeleteResources(ctx, apiID)
	if err != nil {
		return err
	}
	return d.CreateResources(ctx, apiID, rootID, tree.Paths)
}

// Deploy publishes the API's current configuration. An empty stage creates
// a deployment without a stage; deploying to an existing stage updates it.
func (d *Driver) Deploy(ctx context.Context, apiID, stage string) (string, error) {
	d.logger.Info("creating deployment", "api_id", apiID, "stage", stage)
	out, err := retry.Call(ctx, d.retrier, retry.Op{Name: "createDeployment", Target: stage, APIID: apiID}, func(ctx context.Context) (*apigateway.CreateDeploymentOutput, error) {
		return d.client.CreateDeployment(ctx, &apigateway.CreateDeploymentInput{
			RestApiId: optional(apiID),
			StageName: optional(stage),
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to deploy stage %q: %w", stage, err)
	}
	return aws.ToString(out.Id), nil
}

// DeleteAPI deletes the API and, by cascade, everything under it.
func (d *Driver) DeleteAPI(ctx context.Context, apiID string) error {
	d.logger.Info("deleting API", "api_id", apiID)
	_, err := retry.Call(ctx, d.retrier, retry.Op{Name: "deleteRestApi", APIID: apiID}, func(ctx context.Context) (*apigateway.DeleteRestApiOutput, error) {
		return d.client.DeleteRestApi(ctx, &apigateway.DeleteRestApiInput{RestApiId: optional(apiID)})
	})
	if err != nil {
		return fmt.Errorf("failed to delete API: %w", err)
	}
	return nil
}

func findRoot(items []types.Resource) (types.Resource, bool) {
	for _, res := range items {
		if aws.ToString(res.Path) == pathtree.RootSegment {
			return res, true
		}
	}
	return types.Resource{}, false
}

// optional leaves unset ids nil so the client reports them as missing.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
