// Package fakegateway is an in-memory API Gateway control plane for tests.
//
// It mirrors the remote behaviors the importer depends on: a root resource
// provisioned with every API, cascade deletion of child resources, SDK-style
// parameter validation, paged listings, and scripted throttling or failures
// per operation.
package fakegateway

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/aws/smithy-go"

	"apigateway-importer/internal/gateway"
)

// Operation names as used by ThrottleNext, FailOn, and Calls.
const (
	OpCreateRestApi          = "CreateRestApi"
	OpGetRestApis            = "GetRestApis"
	OpDeleteRestApi          = "DeleteRestApi"
	OpCreateResource         = "CreateResource"
	OpGetResources           = "GetResources"
	OpDeleteResource         = "DeleteResource"
	OpPutMethod              = "PutMethod"
	OpDeleteMethod           = "DeleteMethod"
	OpPutIntegration         = "PutIntegration"
	OpPutMethodResponse      = "PutMethodResponse"
	OpPutIntegrationResponse = "PutIntegrationResponse"
	OpCreateDeployment       = "CreateDeployment"
)

const defaultPageSize = 25

// Gateway is safe for concurrent use.
type Gateway struct {
	mu sync.Mutex

	apis     map[string]*restAPI
	apiOrder []string
	seq      int

	calls     []string
	throttles map[string]int
	failures  map[string]failure
}

type failure struct {
	after int // calls allowed to succeed first
	err   error
}

type restAPI struct {
	id          string
	name        string
	rootID      string
	resources   map[string]*resource
	deployments []deployment
}

type deployment struct {
	id    string
	stage string
}

type resource struct {
	id       string
	parentID string
	pathPart string
	path     string
	methods  map[string]*method
}

type method struct {
	put                  *apigateway.PutMethodInput
	integration          *apigateway.PutIntegrationInput
	responses            map[string]*apigateway.PutMethodResponseInput
	integrationResponses map[string]*apigateway.PutIntegrationResponseInput
}

var _ gateway.API = (*Gateway)(nil)

// New creates an empty control plane.
func New() *Gateway {
	return &Gateway{
		apis:      make(map[string]*restAPI),
		throttles: make(map[string]int),
		failures:  make(map[string]failure),
	}
}

// ThrottleNext makes the next n calls of op fail as rate limited.
func (g *Gateway) ThrottleNext(op string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.throttles[op] += n
}

// FailOn makes every call of op fail with err.
func (g *Gateway) FailOn(op string, err error) {
	g.FailAfter(op, 0, err)
}

// FailAfter lets n more calls of op succeed, then fails the rest with err.
func (g *Gateway) FailAfter(op string, n int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = failure{after: n, err: err}
}

// ClearFailures removes scripted throttles and failures.
func (g *Gateway) ClearFailures() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.throttles = make(map[string]int)
	g.failures = make(map[string]failure)
}

// Calls counts the invocations of op, including failed ones.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == op {
			n++
		}
	}
	return n
}

// CallLog returns every invocation in order.
func (g *Gateway) CallLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// ResetCalls clears the call log.
func (g *Gateway) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

// SeedAPI creates an API directly, bypassing the call log.
func (g *Gateway) SeedAPI(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.newAPI(name).id
}

// SeedResource creates a resource under parentPath directly.
func (g *Gateway) SeedResource(apiID, parentPath, pathPart string, verbs ...string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	api, ok := g.apis[apiID]
	if !ok {
		return "", fmt.Errorf("unknown api %s", apiID)
	}
	parent := api.byPath(parentPath)
	if parent == nil {
		return "", fmt.Errorf("unknown parent %s", parentPath)
	}
	res := g.newResource(api, parent, pathPart)
	for _, verb := range verbs {
		res.methods[verb] = &method{
			put:                  &apigateway.PutMethodInput{HttpMethod: aws.String(verb)},
			responses:            make(map[string]*apigateway.PutMethodResponseInput),
			integrationResponses: make(map[string]*apigateway.PutIntegrationResponseInput),
		}
	}
	return res.id, nil
}

// SeedMethod declares verbs on the resource at path directly.
func (g *Gateway) SeedMethod(apiID, path string, verbs ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	api, ok := g.apis[apiID]
	if !ok {
		return fmt.Errorf("unknown api %s", apiID)
	}
	res := api.byPath(path)
	if res == nil {
		return fmt.Errorf("unknown resource %s", path)
	}
	for _, verb := range verbs {
		res.methods[verb] = &method{
			put:                  &apigateway.PutMethodInput{HttpMethod: aws.String(verb)},
			responses:            make(map[string]*apigateway.PutMethodResponseInput),
			integrationResponses: make(map[string]*apigateway.PutIntegrationResponseInput),
		}
	}
	return nil
}

// APINames lists API names in creation order.
func (g *Gateway) APINames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, id := range g.apiOrder {
		out = append(out, g.apis[id].name)
	}
	return out
}

// Paths lists the resource paths of an API, sorted.
func (g *Gateway) Paths(apiID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	api, ok := g.apis[apiID]
	if !ok {
		return nil
	}
	var out []string
	for _, r := range api.resources {
		out = append(out, r.path)
	}
	sort.Strings(out)
	return out
}

// Methods lists the verbs declared on the resource at path, sorted.
func (g *Gateway) Methods(apiID, path string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	api, ok := g.apis[apiID]
	if !ok {
		return nil
	}
	res := api.byPath(path)
	if res == nil {
		return nil
	}
	return sortedKeys(res.methods)
}

// Integration returns the integration stored for a method.
func (g *Gateway) Integration(apiID, path, verb string) *apigateway.PutIntegrationInput {
	m := g.method(apiID, path, verb)
	if m == nil {
		return nil
	}
	return m.integration
}

// MethodRequest returns the PutMethod input stored for a method.
func (g *Gateway) MethodRequest(apiID, path, verb string) *apigateway.PutMethodInput {
	m := g.method(apiID, path, verb)
	if m == nil {
		return nil
	}
	return m.put
}

// ResponseCodes lists method response status codes, sorted.
func (g *Gateway) ResponseCodes(apiID, path, verb string) []string {
	m := g.method(apiID, path, verb)
	if m == nil {
		return nil
	}
	return sortedKeys(m.responses)
}

// IntegrationResponseCodes lists integration response status codes, sorted.
func (g *Gateway) IntegrationResponseCodes(apiID, path, verb string) []string {
	m := g.method(apiID, path, verb)
	if m == nil {
		return nil
	}
	return sortedKeys(m.integrationResponses)
}

// Stages lists the stage names deployed for an API, in deployment order.
func (g *Gateway) Stages(apiID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	api, ok := g.apis[apiID]
	if !ok {
		return nil
	}
	var out []string
	for _, d := range api.deployments {
		out = append(out, d.stage)
	}
	return out
}

func (g *Gateway) method(apiID, path, verb string) *method {
	g.mu.Lock()
	defer g.mu.Unlock()
	api, ok := g.apis[apiID]
	if !ok {
		return nil
	}
	res := api.byPath(path)
	if res == nil {
		return nil
	}
	return res.methods[verb]
}

// =============================================================================
// CONTROL-PLANE OPERATIONS
// =============================================================================

func (g *Gateway) CreateRestApi(_ context.Context, in *apigateway.CreateRestApiInput, _ ...func(*apigateway.Options)) (*apigateway.CreateRestApiOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpCreateRestApi, required("CreateRestApiInput", field{"Name", in.Name})); err != nil {
		return nil, err
	}
	api := g.newAPI(*in.Name)
	return &apigateway.CreateRestApiOutput{
		Id:          aws.String(api.id),
		Name:        aws.String(api.name),
		CreatedDate: aws.Time(time.Now()),
	}, nil
}

func (g *Gateway) GetRestApis(_ context.Context, in *apigateway.GetRestApisInput, _ ...func(*apigateway.Options)) (*apigateway.GetRestApisOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpGetRestApis, nil); err != nil {
		return nil, err
	}

	start, end, next := page(len(g.apiOrder), in.Limit, in.Position)
	out := &apigateway.GetRestApisOutput{Position: next}
	for _, id := range g.apiOrder[start:end] {
		api := g.apis[id]
		out.Items = append(out.Items, types.RestApi{
			Id:   aws.String(api.id),
			Name: aws.String(api.name),
		})
	}
	return out, nil
}

func (g *Gateway) DeleteRestApi(_ context.Context, in *apigateway.DeleteRestApiInput, _ ...func(*apigateway.Options)) (*apigateway.DeleteRestApiOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpDeleteRestApi, required("DeleteRestApiInput", field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	if _, ok := g.apis[*in.RestApiId]; !ok {
		return nil, g.fail(OpDeleteRestApi, notFound("Invalid API identifier specified"))
	}

	delete(g.apis, *in.RestApiId)
	for i, id := range g.apiOrder {
		if id == *in.RestApiId {
			g.apiOrder = append(g.apiOrder[:i], g.apiOrder[i+1:]...)
			break
		}
	}
	return &apigateway.DeleteRestApiOutput{}, nil
}

func (g *Gateway) CreateResource(_ context.Context, in *apigateway.CreateResourceInput, _ ...func(*apigateway.Options)) (*apigateway.CreateResourceOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpCreateResource, required("CreateResourceInput",
		field{"ParentId", in.ParentId}, field{"PathPart", in.PathPart}, field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	api, err := g.api(OpCreateResource, *in.RestApiId)
	if err != nil {
		return nil, err
	}
	parent, ok := api.resources[*in.ParentId]
	if !ok {
		return nil, g.fail(OpCreateResource, notFound("Invalid Resource identifier specified"))
	}

	part := *in.PathPart
	for _, sibling := range api.children(parent.id) {
		if sibling.pathPart == part {
			return nil, g.fail(OpCreateResource, &types.ConflictException{
				Message: aws.String("Another resource with the same parent already has this name: " + part),
			})
		}
		if isVariable(sibling.pathPart) && isVariable(part) {
			return nil, g.fail(OpCreateResource, &types.BadRequestException{
				Message: aws.String(fmt.Sprintf("A sibling (%s) of this resource already has a variable path part -- only one is allowed", sibling.pathPart)),
			})
		}
	}

	res := g.newResource(api, parent, part)
	return &apigateway.CreateResourceOutput{
		Id:       aws.String(res.id),
		ParentId: aws.String(res.parentID),
		PathPart: aws.String(res.pathPart),
		Path:     aws.String(res.path),
	}, nil
}

func (g *Gateway) GetResources(_ context.Context, in *apigateway.GetResourcesInput, _ ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpGetResources, required("GetResourcesInput", field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	api, err := g.api(OpGetResources, *in.RestApiId)
	if err != nil {
		return nil, err
	}

	embedMethods := false
	for _, e := range in.Embed {
		if e == "methods" {
			embedMethods = true
		}
	}

	all := api.sorted()
	start, end, next := page(len(all), in.Limit, in.Position)
	out := &apigateway.GetResourcesOutput{Position: next}
	for _, res := range all[start:end] {
		item := types.Resource{
			Id:   aws.String(res.id),
			Path: aws.String(res.path),
		}
		if res.parentID != "" {
			item.ParentId = aws.String(res.parentID)
			item.PathPart = aws.String(res.pathPart)
		}
		if embedMethods && len(res.methods) > 0 {
			item.ResourceMethods = make(map[string]types.Method, len(res.methods))
			for verb, m := range res.methods {
				item.ResourceMethods[verb] = types.Method{
					HttpMethod:        aws.String(verb),
					AuthorizationType: m.put.AuthorizationType,
				}
			}
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (g *Gateway) DeleteResource(_ context.Context, in *apigateway.DeleteResourceInput, _ ...func(*apigateway.Options)) (*apigateway.DeleteResourceOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpDeleteResource, required("DeleteResourceInput",
		field{"ResourceId", in.ResourceId}, field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	api, err := g.api(OpDeleteResource, *in.RestApiId)
	if err != nil {
		return nil, err
	}
	res, ok := api.resources[*in.ResourceId]
	if !ok {
		return nil, g.fail(OpDeleteResource, notFound("Invalid Resource identifier specified"))
	}
	if res.id == api.rootID {
		return nil, g.fail(OpDeleteResource, &types.BadRequestException{
			Message: aws.String("Cannot delete the root resource"),
		})
	}

	api.cascadeDelete(res.id)
	return &apigateway.DeleteResourceOutput{}, nil
}

func (g *Gateway) PutMethod(_ context.Context, in *apigateway.PutMethodInput, _ ...func(*apigateway.Options)) (*apigateway.PutMethodOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpPutMethod, required("PutMethodInput",
		field{"AuthorizationType", in.AuthorizationType}, field{"HttpMethod", in.HttpMethod},
		field{"ResourceId", in.ResourceId}, field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	res, err := g.resource(OpPutMethod, *in.RestApiId, *in.ResourceId)
	if err != nil {
		return nil, err
	}
	if _, exists := res.methods[*in.HttpMethod]; exists {
		return nil, g.fail(OpPutMethod, &types.ConflictException{
			Message: aws.String("Method already exists for this resource"),
		})
	}

	res.methods[*in.HttpMethod] = &method{
		put:                  in,
		responses:            make(map[string]*apigateway.PutMethodResponseInput),
		integrationResponses: make(map[string]*apigateway.PutIntegrationResponseInput),
	}
	return &apigateway.PutMethodOutput{
		HttpMethod:        in.HttpMethod,
		AuthorizationType: in.AuthorizationType,
		ApiKeyRequired:    aws.Bool(in.ApiKeyRequired),
	}, nil
}

func (g *Gateway) DeleteMethod(_ context.Context, in *apigateway.DeleteMethodInput, _ ...func(*apigateway.Options)) (*apigateway.DeleteMethodOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpDeleteMethod, required("DeleteMethodInput",
		field{"HttpMethod", in.HttpMethod}, field{"ResourceId", in.ResourceId}, field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	res, err := g.resource(OpDeleteMethod, *in.RestApiId, *in.ResourceId)
	if err != nil {
		return nil, err
	}
	if _, ok := res.methods[*in.HttpMethod]; !ok {
		return nil, g.fail(OpDeleteMethod, notFound("Invalid Method identifier specified"))
	}
	delete(res.methods, *in.HttpMethod)
	return &apigateway.DeleteMethodOutput{}, nil
}

func (g *Gateway) PutIntegration(_ context.Context, in *apigateway.PutIntegrationInput, _ ...func(*apigateway.Options)) (*apigateway.PutIntegrationOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpPutIntegration, required("PutIntegrationInput",
		field{"HttpMethod", in.HttpMethod}, field{"ResourceId", in.ResourceId}, field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	if in.Type == "" {
		return nil, g.fail(OpPutIntegration, invalid("PutIntegrationInput", "Type"))
	}
	m, err := g.existingMethod(OpPutIntegration, *in.RestApiId, *in.ResourceId, *in.HttpMethod)
	if err != nil {
		return nil, err
	}
	m.integration = in
	return &apigateway.PutIntegrationOutput{Type: in.Type, Uri: in.Uri}, nil
}

func (g *Gateway) PutMethodResponse(_ context.Context, in *apigateway.PutMethodResponseInput, _ ...func(*apigateway.Options)) (*apigateway.PutMethodResponseOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpPutMethodResponse, required("PutMethodResponseInput",
		field{"HttpMethod", in.HttpMethod}, field{"ResourceId", in.ResourceId},
		field{"RestApiId", in.RestApiId}, field{"StatusCode", in.StatusCode})); err != nil {
		return nil, err
	}
	m, err := g.existingMethod(OpPutMethodResponse, *in.RestApiId, *in.ResourceId, *in.HttpMethod)
	if err != nil {
		return nil, err
	}
	m.responses[*in.StatusCode] = in
	return &apigateway.PutMethodResponseOutput{StatusCode: in.StatusCode}, nil
}

func (g *Gateway) PutIntegrationResponse(_ context.Context, in *apigateway.PutIntegrationResponseInput, _ ...func(*apigateway.Options)) (*apigateway.PutIntegrationResponseOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpPutIntegrationResponse, required("PutIntegrationResponseInput",
		field{"HttpMethod", in.HttpMethod}, field{"ResourceId", in.ResourceId},
		field{"RestApiId", in.RestApiId}, field{"StatusCode", in.StatusCode})); err != nil {
		return nil, err
	}
	m, err := g.existingMethod(OpPutIntegrationResponse, *in.RestApiId, *in.ResourceId, *in.HttpMethod)
	if err != nil {
		return nil, err
	}
	if m.integration == nil {
		return nil, g.fail(OpPutIntegrationResponse, notFound("Invalid Integration identifier specified"))
	}
	if _, ok := m.responses[*in.StatusCode]; !ok {
		return nil, g.fail(OpPutIntegrationResponse, &types.BadRequestException{
			Message: aws.String("Invalid mapping expression specified: Validation Result: status code " + *in.StatusCode + " has no method response"),
		})
	}
	m.integrationResponses[*in.StatusCode] = in
	return &apigateway.PutIntegrationResponseOutput{StatusCode: in.StatusCode, SelectionPattern: in.SelectionPattern}, nil
}

func (g *Gateway) CreateDeployment(_ context.Context, in *apigateway.CreateDeploymentInput, _ ...func(*apigateway.Options)) (*apigateway.CreateDeploymentOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.enter(OpCreateDeployment, required("CreateDeploymentInput", field{"RestApiId", in.RestApiId})); err != nil {
		return nil, err
	}
	api, err := g.api(OpCreateDeployment, *in.RestApiId)
	if err != nil {
		return nil, err
	}

	methods := 0
	for _, res := range api.sorted() {
		for verb, m := range res.methods {
			methods++
			if m.integration == nil {
				return nil, g.fail(OpCreateDeployment, &types.BadRequestException{
					Message: aws.String(fmt.Sprintf("No integration defined for method %s %s", verb, res.path)),
				})
			}
		}
	}
	if methods == 0 {
		return nil, g.fail(OpCreateDeployment, &types.BadRequestException{
			Message: aws.String("The REST API doesn't contain any methods"),
		})
	}

	g.seq++
	d := deployment{id: fmt.Sprintf("dep%04d", g.seq), stage: aws.ToString(in.StageName)}
	api.deployments = append(api.deployments, d)
	return &apigateway.CreateDeploymentOutput{
		Id:          aws.String(d.id),
		Description: in.Description,
		CreatedDate: aws.Time(time.Now()),
	}, nil
}

// =============================================================================
// INTERNALS (callers hold g.mu)
// =============================================================================

// enter logs the call and applies validation, scripted throttles, and
// scripted failures, in that order.
func (g *Gateway) enter(op string, validation error) error {
	g.calls = append(g.calls, op)

	if validation != nil {
		return g.fail(op, validation)
	}
	if g.throttles[op] > 0 {
		g.throttles[op]--
		return g.fail(op, &types.TooManyRequestsException{Message: aws.String("Too Many Requests")})
	}
	if f, ok := g.failures[op]; ok {
		if f.after > 0 {
			f.after--
			g.failures[op] = f
			return nil
		}
		return g.fail(op, f.err)
	}
	return nil
}

// fail wraps err the way the SDK client does.
func (g *Gateway) fail(op string, err error) error {
	return &smithy.OperationError{ServiceID: "API Gateway", OperationName: op, Err: err}
}

func (g *Gateway) api(op, id string) (*restAPI, error) {
	api, ok := g.apis[id]
	if !ok {
		return nil, g.fail(op, notFound("Invalid API identifier specified"))
	}
	return api, nil
}

func (g *Gateway) resource(op, apiID, resourceID string) (*resource, error) {
	api, err := g.api(op, apiID)
	if err != nil {
		return nil, err
	}
	res, ok := api.resources[resourceID]
	if !ok {
		return nil, g.fail(op, notFound("Invalid Resource identifier specified"))
	}
	return res, nil
}

func (g *Gateway) existingMethod(op, apiID, resourceID, verb string) (*method, error) {
	res, err := g.resource(op, apiID, resourceID)
	if err != nil {
		return nil, err
	}
	m, ok := res.methods[verb]
	if !ok {
		return nil, g.fail(op, notFound("Invalid Method identifier specified"))
	}
	return m, nil
}

func (g *Gateway) newAPI(name string) *restAPI {
	g.seq++
	api := &restAPI{
		id:        fmt.Sprintf("api%04d", g.seq),
		name:      name,
		resources: make(map[string]*resource),
	}
	g.seq++
	root := &resource{
		id:      fmt.Sprintf("res%04d", g.seq),
		path:    "/",
		methods: make(map[string]*method),
	}
	api.rootID = root.id
	api.resources[root.id] = root

	g.apis[api.id] = api
	g.apiOrder = append(g.apiOrder, api.id)
	return api
}

func (g *Gateway) newResource(api *restAPI, parent *resource, part string) *resource {
	g.seq++
	path := parent.path + "/" + part
	if parent.path == "/" {
		path = "/" + part
	}
	res := &resource{
		id:       fmt.Sprintf("res%04d", g.seq),
		parentID: parent.id,
		pathPart: part,
		path:     path,
		methods:  make(map[string]*method),
	}
	api.resources[res.id] = res
	return res
}

func (a *restAPI) children(parentID string) []*resource {
	var out []*resource
	for _, r := range a.resources {
		if r.parentID == parentID {
			out = append(out, r)
		}
	}
	return out
}

func (a *restAPI) byPath(path string) *resource {
	for _, r := range a.resources {
		if r.path == path {
			return r
		}
	}
	return nil
}

func (a *restAPI) sorted() []*resource {
	out := make([]*resource, 0, len(a.resources))
	for _, r := range a.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

func (a *restAPI) cascadeDelete(id string) {
	for _, child := range a.children(id) {
		a.cascadeDelete(child.id)
	}
	delete(a.resources, id)
}

type field struct {
	name  string
	value *string
}

// required reproduces the SDK's client-side "missing required field" check.
func required(context string, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return invalid(context, missing...)
}

func invalid(context string, names ...string) error {
	err := smithy.InvalidParamsError{Context: context}
	for _, name := range names {
		err.Add(smithy.NewErrParamRequired(name))
	}
	return &err
}

func notFound(msg string) error {
	return &types.NotFoundException{Message: aws.String(msg)}
}

func isVariable(part string) bool {
	return strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}")
}

// page returns the slice bounds for a listing and the next position token.
func page(total int, limit *int32, position *string) (int, int, *string) {
	size := defaultPageSize
	if limit != nil && *limit > 0 {
		size = int(*limit)
	}
	start := 0
	if position != nil {
		if n, err := strconv.Atoi(*position); err == nil && n >= 0 && n <= total {
			start = n
		}
	}
	end := start + size
	if end >= total {
		return start, total, nil
	}
	return start, end, aws.String(strconv.Itoa(end))
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
