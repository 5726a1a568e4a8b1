package translate

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"

	"apigateway-importer/internal/swagger"
	ierrors "apigateway-importer/pkg/errors"
)

// Integration builds the PutIntegration request for one operation.
func Integration(op *swagger.Operation, target Target) (*apigateway.PutIntegrationInput, error) {
	x := op.Integration
	if x == nil {
		return nil, ierrors.NewMissingIntegrationError(target.Verb, target.Path)
	}

	kind := types.IntegrationType(strings.ToUpper(x.Type))
	in := &apigateway.PutIntegrationInput{
		RestApiId:             optional(target.APIID),
		ResourceId:            optional(target.ResourceID),
		HttpMethod:            aws.String(target.Verb),
		Type:                  kind,
		IntegrationHttpMethod: optional(strings.ToUpper(x.HTTPMethod)),
		Uri:                   optional(x.URI),
		Credentials:           optional(x.Credentials),
		PassthroughBehavior:   optional(x.PassthroughBehavior),
		CacheNamespace:        optional(x.CacheNamespace),
		RequestTemplates:      copyStrings(x.RequestTemplates),
		CacheKeyParameters:    cacheKeyParameters(op.Parameters, x.CacheKeyParameters),
		RequestParameters:     integrationParameters(op.Parameters, kind, x.RequestParameters),
	}
	return in, nil
}

// cacheKeyParameters keeps the declared cache keys whose trailing name
// matches a non-body operation parameter, in parameter order.
func cacheKeyParameters(params []swagger.Parameter, declared []string) []string {
	if len(declared) == 0 {
		return nil
	}

	names := make(map[string]bool, len(declared))
	for _, key := range declared {
		names[key[strings.LastIndex(key, ".")+1:]] = true
	}

	var out []string
	for _, p := range params {
		loc, ok := location(p.In)
		if !ok || !names[p.Name] {
			continue
		}
		out = append(out, "method.request."+loc+"."+p.Name)
	}
	return out
}

// integrationParameters forwards every method parameter to an HTTP backend;
// explicit mappings from the extension block take precedence.
func integrationParameters(params []swagger.Parameter, kind types.IntegrationType, explicit map[string]string) map[string]string {
	out := make(map[string]string)
	if kind == types.IntegrationTypeHttp || kind == types.IntegrationTypeHttpProxy {
		for _, p := range params {
			loc, ok := location(p.In)
			if !ok {
				continue
			}
			suffix := ".request." + loc + "." + p.Name
			out["integration"+suffix] = "method" + suffix
		}
	}
	for k, v := range explicit {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func copyStrings(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
