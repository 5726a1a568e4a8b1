package swagger

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// IntegrationKey is the vendor extension carrying backend wiring.
const IntegrationKey = "x-amazon-apigateway-integration"

// AnyMethodKey is the vendor extension for a catch-all method.
const AnyMethodKey = "x-amazon-apigateway-any-method"

// Document is a Swagger 2.0 API description.
type Document struct {
	Swagger  string `json:"swagger" yaml:"swagger"`
	Info     Info   `json:"info" yaml:"info"`
	Host     string `json:"host" yaml:"host"`
	BasePath string `json:"basePath" yaml:"basePath"`

	Schemes  []string `json:"schemes" yaml:"schemes"`
	Consumes []string `json:"consumes" yaml:"consumes"`
	Produces []string `json:"produces" yaml:"produces"`

	// Paths keeps the document's key order.
	Paths *orderedmap.OrderedMap[string, *PathItem] `json:"paths" yaml:"paths"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
}

// StageName is the deployment stage derived from the base path.
func (d *Document) StageName() string {
	return strings.TrimPrefix(d.BasePath, "/")
}

// PathItem holds the operations declared for one path key.
type PathItem struct {
	Parameters []Parameter

	// Operations maps a lower-case verb ("any" for the catch-all
	// extension) to its definition, in document order.
	Operations *orderedmap.OrderedMap[string, *Operation]
}

// Operation is a single verb entry of a path.
type Operation struct {
	OperationID string                `json:"operationId" yaml:"operationId"`
	Summary     string                `json:"summary" yaml:"summary"`
	Parameters  []Parameter           `json:"parameters" yaml:"parameters"`
	Security    []SecurityRequirement `json:"security" yaml:"security"`
	Consumes    []string              `json:"consumes" yaml:"consumes"`
	Produces    []string              `json:"produces" yaml:"produces"`

	Responses   *orderedmap.OrderedMap[string, *Response] `json:"responses" yaml:"responses"`
	Integration *Integration                            `json:"x-amazon-apigateway-integration" yaml:"x-amazon-apigateway-integration"`
}

// SecurityRequirement maps a security scheme name to its scopes.
type SecurityRequirement map[string][]string

// Parameter describes one operation input.
type Parameter struct {
	Name     string  `json:"name" yaml:"name"`
	In       string  `json:"in" yaml:"in"` // query, path, header, body, formData
	Required bool    `json:"required" yaml:"required"`
	Type     string  `json:"type" yaml:"type"`
	Schema   *Schema `json:"schema" yaml:"schema"`
}

// Schema is the subset of a JSON schema the importer needs.
type Schema struct {
	Ref  string `json:"$ref" yaml:"$ref"`
	Type string `json:"type" yaml:"type"`
}

// ModelName returns the last segment of the schema reference.
func (s *Schema) ModelName() string {
	if s == nil || s.Ref == "" {
		return ""
	}
	return s.Ref[strings.LastIndex(s.Ref, "/")+1:]
}

// Response is a declared method response.
type Response struct {
	Description string            `json:"description" yaml:"description"`
	Headers     map[string]Header `json:"headers" yaml:"headers"`
	Schema      *Schema           `json:"schema" yaml:"schema"`
}

// Header describes a response header.
type Header struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// Integration is the x-amazon-apigateway-integration block.
type Integration struct {
	Type                string            `json:"type" yaml:"type"`
	HTTPMethod          string            `json:"httpMethod" yaml:"httpMethod"`
	URI                 string            `json:"uri" yaml:"uri"`
	Credentials         string            `json:"credentials" yaml:"credentials"`
	PassthroughBehavior string            `json:"passthroughBehavior" yaml:"passthroughBehavior"`
	RequestTemplates    map[string]string `json:"requestTemplates" yaml:"requestTemplates"`
	RequestParameters   map[string]string `json:"requestParameters" yaml:"requestParameters"`
	CacheNamespace      string            `json:"cacheNamespace" yaml:"cacheNamespace"`
	CacheKeyParameters  []string          `json:"cacheKeyParameters" yaml:"cacheKeyParameters"`

	// Responses is keyed by selection pattern, in document order.
	Responses *orderedmap.OrderedMap[string, *IntegrationResponse] `json:"responses" yaml:"responses"`
}

// IntegrationResponse maps a backend response to a method response.
type IntegrationResponse struct {
	StatusCode         string            `json:"statusCode" yaml:"statusCode"`
	ResponseTemplates  map[string]string `json:"responseTemplates" yaml:"responseTemplates"`
	ResponseParameters map[string]string `json:"responseParameters" yaml:"responseParameters"`
}

var verbs = map[string]string{
	"get":        "get",
	"put":        "put",
	"post":       "post",
	"delete":     "delete",
	"options":    "options",
	"head":       "head",
	"patch":      "patch",
	AnyMethodKey: "any",
}

// UnmarshalJSON splits a path item into shared parameters and operations,
// ignoring keys that are neither.
func (p *PathItem) UnmarshalJSON(data []byte) error {
	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}

	p.Operations = orderedmap.New[string, *Operation]()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == "parameters" {
			if err := json.Unmarshal(pair.Value, &p.Parameters); err != nil {
				return fmt.Errorf("failed to decode path parameters: %w", err)
			}
			continue
		}
		verb, ok := verbs[strings.ToLower(pair.Key)]
		if !ok {
			continue
		}
		op := &Operation{}
		if err := json.Unmarshal(pair.Value, op); err != nil {
			return fmt.Errorf("failed to decode %s operation: %w", pair.Key, err)
		}
		p.Operations.Set(verb, op)
	}
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (p *PathItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: path item must be a mapping", node.Line)
	}

	p.Operations = orderedmap.New[string, *Operation]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		if key == "parameters" {
			if err := value.Decode(&p.Parameters); err != nil {
				return fmt.Errorf("failed to decode path parameters: %w", err)
			}
			continue
		}
		verb, ok := verbs[strings.ToLower(key)]
		if !ok {
			continue
		}
		op := &Operation{}
		if err := value.Decode(op); err != nil {
			return fmt.Errorf("failed to decode %s operation: %w", key, err)
		}
		p.Operations.Set(verb, op)
	}
	return nil
}

// BodyParameter returns the first body parameter, if any.
func (o *Operation) BodyParameter() *Parameter {
	for i := range o.Parameters {
		if o.Parameters[i].In == "body" {
			return &o.Parameters[i]
		}
	}
	return nil
}

// Requires reports whether any security requirement names the scheme.
func (o *Operation) Requires(scheme string) bool {
	for _, req := range o.Security {
		if _, ok := req[scheme]; ok {
			return true
		}
	}
	return false
}
