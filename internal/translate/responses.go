package translate

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"

	"apigateway-importer/internal/swagger"
)

// DefaultSelectionPattern names the catch-all integration response.
const DefaultSelectionPattern = "default"

// MethodResponses builds one PutMethodResponse request per declared status
// code, in document order.
func MethodResponses(op *swagger.Operation, target Target) []*apigateway.PutMethodResponseInput {
	if op.Responses == nil {
		return nil
	}

	out := make([]*apigateway.PutMethodResponseInput, 0, op.Responses.Len())
	for pair := op.Responses.Oldest(); pair != nil; pair = pair.Next() {
		in := &apigateway.PutMethodResponseInput{
			RestApiId:  optional(target.APIID),
			ResourceId: optional(target.ResourceID),
			HttpMethod: aws.String(target.Verb),
			StatusCode: aws.String(pair.Key),
		}
		if resp := pair.Value; resp != nil {
			if len(resp.Headers) > 0 {
				in.ResponseParameters = make(map[string]bool, len(resp.Headers))
				for header := range resp.Headers {
					in.ResponseParameters["method.response.header."+header] = true
				}
			}
			if model := resp.Schema.ModelName(); model != "" {
				in.ResponseModels = map[string]string{defaultContentType: model}
			}
		}
		out = append(out, in)
	}
	return out
}

// IntegrationResponses builds one PutIntegrationResponse request per
// selection pattern of the integration block, in document order. The
// "default" pattern becomes the response with no selection pattern.
func IntegrationResponses(op *swagger.Operation, target Target) []*apigateway.PutIntegrationResponseInput {
	if op.Integration == nil || op.Integration.Responses == nil {
		return nil
	}

	responses := op.Integration.Responses
	out := make([]*apigateway.PutIntegrationResponseInput, 0, responses.Len())
	for pair := responses.Oldest(); pair != nil; pair = pair.Next() {
		in := &apigateway.PutIntegrationResponseInput{
			RestApiId:  optional(target.APIID),
			ResourceId: optional(target.ResourceID),
			HttpMethod: aws.String(target.Verb),
		}
		if pair.Key != DefaultSelectionPattern {
			in.SelectionPattern = aws.String(pair.Key)
		}
		if resp := pair.Value; resp != nil {
			in.StatusCode = optional(resp.StatusCode)
			in.ResponseTemplates = copyStrings(resp.ResponseTemplates)
			in.ResponseParameters = copyStrings(resp.ResponseParameters)
		}
		out = append(out, in)
	}
	return out
}
