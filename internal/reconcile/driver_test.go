package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/smithy-go"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apigateway-importer/internal/gateway/fakegateway"
	"apigateway-importer/internal/journal"
	"apigateway-importer/internal/pathtree"
	"apigateway-importer/internal/retry"
	"apigateway-importer/internal/swagger"
	ierrors "apigateway-importer/pkg/errors"
)

const usersDoc = `{
  "swagger": "2.0",
  "info": {"title": "users"},
  "basePath": "/prod",
  "paths": {
    "/": {
      "get": {
        "responses": {"200": {"description": "ok"}},
        "x-amazon-apigateway-integration": {"type": "mock", "responses": {"default": {"statusCode": "200"}}}
      }
    },
    "/user": {
      "get": {
        "responses": {"200": {"description": "ok"}},
        "x-amazon-apigateway-integration": {"type": "mock", "responses": {"default": {"statusCode": "200"}}}
      }
    },
    "/user/{id}": {
      "delete": {
        "responses": {"204": {"description": "gone"}},
        "x-amazon-apigateway-integration": {"type": "mock", "responses": {"default": {"statusCode": "204"}}}
      }
    }
  }
}`

const nestedDoc = `{
  "info": {"title": "nested"},
  "paths": {
    "/a/b": {"get": {"x-amazon-apigateway-integration": {"type": "mock"}}},
    "/a/b/c": {"post": {"x-amazon-apigateway-integration": {"type": "mock"}}},
    "/z": {"get": {"x-amazon-apigateway-integration": {"type": "mock"}}}
  }
}`

type fixture struct {
	gw      *fakegateway.Gateway
	driver  *Driver
	journal *journal.Memory
	runID   uuid.UUID
	delays  []time.Duration
}

func newFixture(t *testing.T, pageSize int32) *fixture {
	t.Helper()
	f := &fixture{
		gw:      fakegateway.New(),
		journal: journal.NewMemory(),
		runID:   uuid.New(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := retry.New(10*time.Millisecond,
		retry.WithLogger(logger),
		retry.WithJournal(f.journal, f.runID),
		retry.WithSleep(func(_ context.Context, d time.Duration) error {
			f.delays = append(f.delays, d)
			return nil
		}),
	)
	f.driver = NewDriver(f.gw, r, logger, pageSize)
	return f
}

func buildTree(t *testing.T, doc string) *pathtree.Tree {
	t.Helper()
	d, err := swagger.NewParser().ParseBytes([]byte(doc))
	require.NoError(t, err)
	tree, err := pathtree.NewBuilder().Build(d.Paths)
	require.NoError(t, err)
	return tree
}

// createAll runs the create sequence and returns the API id.
func (f *fixture) createAll(t *testing.T, title string, tree *pathtree.Tree) (string, error) {
	t.Helper()
	ctx := context.Background()
	apiID, err := f.driver.CreateAPI(ctx, title)
	if err != nil {
		return "", err
	}
	rootID, err := f.driver.RootResource(ctx, apiID)
	require.NoError(t, err)
	return apiID, f.driver.CreateResources(ctx, apiID, rootID, tree.Paths)
}

func TestCreateAPI_NameCollision(t *testing.T) {
	f := newFixture(t, 0)
	f.gw.SeedAPI("users")

	_, err := f.driver.CreateAPI(context.Background(), "users")

	require.Error(t, err)
	assert.True(t, ierrors.IsNameCollision(err))
	assert.Contains(t, err.Error(), ierrors.MsgNameCollision)
	assert.Zero(t, f.gw.Calls(fakegateway.OpCreateRestApi))
	assert.Zero(t, f.gw.Calls(fakegateway.OpCreateResource))
	assert.Equal(t, []string{"users"}, f.gw.APINames())
}

func TestFindAPI_ScansEveryPage(t *testing.T) {
	f := newFixture(t, 2)
	for _, name := range []string{"a", "b", "c", "d"} {
		f.gw.SeedAPI(name)
	}
	want := f.gw.SeedAPI("target")

	id, found, err := f.driver.FindAPI(context.Background(), "target")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, id)
	assert.Equal(t, 3, f.gw.Calls(fakegateway.OpGetRestApis))

	_, found, err = f.driver.FindAPI(context.Background(), "targ")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateResources_CallOrder(t *testing.T) {
	f := newFixture(t, 0)
	tree := buildTree(t, usersDoc)
	ctx := context.Background()

	apiID, err := f.driver.CreateAPI(ctx, "users")
	require.NoError(t, err)
	rootID, err := f.driver.RootResource(ctx, apiID)
	require.NoError(t, err)
	f.gw.ResetCalls()

	require.NoError(t, f.driver.CreateResources(ctx, apiID, rootID, tree.Paths))

	install := []string{
		fakegateway.OpPutMethod,
		fakegateway.OpPutIntegration,
		fakegateway.OpPutMethodResponse,
		fakegateway.OpPutIntegrationResponse,
	}
	var want []string
	want = append(want, install...)
	want = append(want, fakegateway.OpCreateResource)
	want = append(want, install...)
	want = append(want, fakegateway.OpCreateResource)
	want = append(want, install...)

	if diff := cmp.Diff(want, f.gw.CallLog()); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"/", "/user", "/user/{id}"}, f.gw.Paths(apiID))
	assert.Equal(t, []string{"GET"}, f.gw.Methods(apiID, "/"))
	assert.Equal(t, []string{"GET"}, f.gw.Methods(apiID, "/user"))
	assert.Equal(t, []string{"DELETE"}, f.gw.Methods(apiID, "/user/{id}"))
	assert.Equal(t, []string{"204"}, f.gw.IntegrationResponseCodes(apiID, "/user/{id}", "DELETE"))
}

func TestCreateResources_RoutingNodes(t *testing.T) {
	f := newFixture(t, 0)

	apiID, err := f.createAll(t, "nested", buildTree(t, nestedDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/a", "/a/b", "/a/b/c", "/z"}, f.gw.Paths(apiID))
	assert.Empty(t, f.gw.Methods(apiID, "/a"))
	assert.Equal(t, []string{"GET"}, f.gw.Methods(apiID, "/a/b"))
	assert.Equal(t, []string{"POST"}, f.gw.Methods(apiID, "/a/b/c"))
	assert.Equal(t, 4, f.gw.Calls(fakegateway.OpCreateResource))
	assert.Equal(t, 3, f.gw.Calls(fakegateway.OpPutMethod))
}

func TestCreateResources_RetriesRateLimit(t *testing.T) {
	f := newFixture(t, 0)
	f.gw.ThrottleNext(fakegateway.OpCreateResource, 2)
	f.gw.ThrottleNext(fakegateway.OpPutIntegration, 1)

	apiID, err := f.createAll(t, "users", buildTree(t, usersDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/user", "/user/{id}"}, f.gw.Paths(apiID))
	assert.Equal(t, 4, f.gw.Calls(fakegateway.OpCreateResource))
	// the root's integration is throttled before /user is created
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}, f.delays)

	// one journal entry per logical call, throttled attempts folded in
	entries, err := f.journal.ListRun(context.Background(), f.runID)
	require.NoError(t, err)
	assert.Len(t, entries, len(f.gw.CallLog())-3)
	for _, e := range entries {
		assert.Equal(t, journal.OutcomeSuccess, e.Outcome)
	}
}

func TestCreateResources_FailureAbortsPass(t *testing.T) {
	f := newFixture(t, 0)
	denied := &types.BadRequestException{Message: aws.String("Invalid integration URI")}
	f.gw.FailAfter(fakegateway.OpPutIntegration, 1, denied)

	apiID, err := f.createAll(t, "users", buildTree(t, usersDoc))

	require.Error(t, err)
	var bad *types.BadRequestException
	assert.True(t, errors.As(err, &bad))
	assert.Contains(t, err.Error(), "/user GET")

	// the second verb stopped after its integration; no later sibling was touched
	assert.Equal(t, 2, f.gw.Calls(fakegateway.OpPutMethod))
	assert.Equal(t, 1, f.gw.Calls(fakegateway.OpPutMethodResponse))
	assert.Equal(t, []string{"/", "/user"}, f.gw.Paths(apiID))
}

func TestCreateResources_MissingIntegration(t *testing.T) {
	f := newFixture(t, 0)
	doc := `{"info": {"title": "bare"}, "paths": {"/ping": {"get": {"responses": {"200": {}}}}}}`

	_, err := f.createAll(t, "bare", buildTree(t, doc))

	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeMissingIntegration))
	assert.Zero(t, f.gw.Calls(fakegateway.OpPutMethod))
}

func TestDeleteResources(t *testing.T) {
	f := newFixture(t, 2)
	apiID := f.gw.SeedAPI("users")
	require.NoError(t, f.gw.SeedMethod(apiID, "/", "GET", "POST"))
	_, err := f.gw.SeedResource(apiID, "/", "user", "GET")
	require.NoError(t, err)
	_, err = f.gw.SeedResource(apiID, "/user", "{id}", "DELETE")
	require.NoError(t, err)
	_, err = f.gw.SeedResource(apiID, "/", "health", "GET")
	require.NoError(t, err)

	wantRoot, err := f.driver.RootResource(context.Background(), apiID)
	require.NoError(t, err)

	rootID, err := f.driver.DeleteResources(context.Background(), apiID)
	require.NoError(t, err)

	assert.Equal(t, wantRoot, rootID)
	assert.Equal(t, 2, f.gw.Calls(fakegateway.OpDeleteResource))
	assert.Equal(t, 2, f.gw.Calls(fakegateway.OpDeleteMethod))
	assert.Equal(t, []string{"/"}, f.gw.Paths(apiID))
	assert.Empty(t, f.gw.Methods(apiID, "/"))
}

func TestUpdateAPI_ReplacesResources(t *testing.T) {
	f := newFixture(t, 0)
	apiID := f.gw.SeedAPI("nested")
	_, err := f.gw.SeedResource(apiID, "/", "legacy", "GET")
	require.NoError(t, err)

	require.NoError(t, f.driver.UpdateAPI(context.Background(), apiID, buildTree(t, nestedDoc)))

	assert.Equal(t, []string{"/", "/a", "/a/b", "/a/b/c", "/z"}, f.gw.Paths(apiID))
}

func TestUpdateAPI_CreateFailureLeavesOnlyRoot(t *testing.T) {
	f := newFixture(t, 0)
	apiID := f.gw.SeedAPI("users")
	require.NoError(t, f.gw.SeedMethod(apiID, "/", "GET"))
	_, err := f.gw.SeedResource(apiID, "/", "old", "GET")
	require.NoError(t, err)

	createErr := &types.BadRequestException{Message: aws.String("Resource's path part only allow a-zA-Z0-9._-")}
	f.gw.FailOn(fakegateway.OpCreateResource, createErr)

	err = f.driver.UpdateAPI(context.Background(), apiID, buildTree(t, usersDoc))
	require.Error(t, err)
	var bad *types.BadRequestException
	require.True(t, errors.As(err, &bad))
	assert.Equal(t, createErr, bad)

	items, err := f.driver.GetResources(context.Background(), apiID, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/", aws.ToString(items[0].Path))
}

func TestDeploy(t *testing.T) {
	f := newFixture(t, 0)
	apiID, err := f.createAll(t, "users", buildTree(t, usersDoc))
	require.NoError(t, err)

	id, err := f.driver.Deploy(context.Background(), apiID, "prod")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = f.driver.Deploy(context.Background(), apiID, "prod")
	require.NoError(t, err)
	_, err = f.driver.Deploy(context.Background(), apiID, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"prod", "prod", ""}, f.gw.Stages(apiID))
}

func TestDeleteAPI(t *testing.T) {
	f := newFixture(t, 0)
	apiID := f.gw.SeedAPI("users")

	require.NoError(t, f.driver.DeleteAPI(context.Background(), apiID))
	assert.Empty(t, f.gw.APINames())

	err := f.driver.DeleteAPI(context.Background(), apiID)
	var notFound *types.NotFoundException
	assert.True(t, errors.As(err, &notFound))
}

func TestMissingAPIIDSurfacesAsRemoteValidation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.driver.Deploy(ctx, "", "prod")
	assertMissingParam(t, err)
	assertMissingParam(t, f.driver.DeleteAPI(ctx, ""))
	_, err = f.driver.GetResources(ctx, "", false)
	assertMissingParam(t, err)
}

func assertMissingParam(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var invalid *smithy.InvalidParamsError
	assert.True(t, errors.As(err, &invalid), "got %v", err)
}

// rootless reports an API with no resources at all.
type rootless struct {
	*fakegateway.Gateway
}

func (rootless) GetResources(context.Context, *apigateway.GetResourcesInput, ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error) {
	return &apigateway.GetResourcesOutput{}, nil
}

func TestRootResource_Missing(t *testing.T) {
	d := NewDriver(rootless{fakegateway.New()}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)

	_, err := d.RootResource(context.Background(), "api0001")
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeMissingRoot))

	_, err = d.DeleteResources(context.Background(), "api0001")
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeMissingRoot))
}
