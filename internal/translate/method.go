// Package translate maps one operation of a Swagger document onto API Gateway
// request values. Every function returns freshly built inputs; callers never
// share or mutate them.
package translate

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"

	"apigateway-importer/internal/swagger"
)

// Authorization types understood by API Gateway.
const (
	AuthorizationNone = "NONE"
	AuthorizationIAM  = "AWS_IAM"
)

// Security scheme names recognized in operation security requirements.
const (
	SchemeSigV4  = "sigv4"
	SchemeAPIKey = "api_key"
)

const defaultContentType = "application/json"

// Target identifies the remote method a request is aimed at.
type Target struct {
	APIID      string
	ResourceID string
	Verb       string // upper-case HTTP verb, or ANY
	Path       string // full resource path, for error context
}

// Method builds the PutMethod request for one operation.
func Method(op *swagger.Operation, target Target) *apigateway.PutMethodInput {
	authorization := AuthorizationNone
	if op.Requires(SchemeSigV4) {
		authorization = AuthorizationIAM
	}

	return &apigateway.PutMethodInput{
		RestApiId:         optional(target.APIID),
		ResourceId:        optional(target.ResourceID),
		HttpMethod:        aws.String(target.Verb),
		AuthorizationType: aws.String(authorization),
		ApiKeyRequired:    op.Requires(SchemeAPIKey),
		OperationName:     optional(op.OperationID),
		RequestParameters: requestParameters(op.Parameters),
		RequestModels:     requestModels(op),
	}
}

// requestParameters declares every non-body parameter on the method.
func requestParameters(params []swagger.Parameter) map[string]bool {
	out := make(map[string]bool)
	for _, p := range params {
		loc, ok := location(p.In)
		if !ok {
			continue
		}
		out["method.request."+loc+"."+p.Name] = p.Required
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// requestModels binds the body parameter's model to each consumed content type.
func requestModels(op *swagger.Operation) map[string]string {
	body := op.BodyParameter()
	if body == nil {
		return nil
	}

	model := body.Schema.ModelName()
	if model == "" {
		model = body.Name
	}

	consumes := op.Consumes
	if len(consumes) == 0 {
		consumes = []string{defaultContentType}
	}

	out := make(map[string]string, len(consumes))
	for _, ct := range consumes {
		out[ct] = model
	}
	return out
}

// location maps a Swagger parameter location to its API Gateway mapping
// segment. Body and form parameters have none.
func location(in string) (string, bool) {
	switch in {
	case "query":
		return "querystring", true
	case "path", "header":
		return in, true
	default:
		return "", false
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
