// Package swagger provides Swagger 2.0 document loading for the importer.
// Path, verb, and response ordering follows the source document.
package swagger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the document encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Parser loads Swagger documents
type Parser struct {
	// Format forces an encoding; FormatAuto picks by file extension (JSON otherwise).
	Format Format

	// Substitutions replaces {{KEY}} placeholders before decoding.
	Substitutions map[string]string
}

// NewParser creates a new document parser
func NewParser() *Parser {
	return &Parser{}
}

// WithSubstitutions sets placeholder replacements
func (p *Parser) WithSubstitutions(vars map[string]string) *Parser {
	p.Substitutions = vars
	return p
}

// ParseFile parses a Swagger document file
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	format := p.Format
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = FormatYAML
		default:
			format = FormatJSON
		}
	}
	return p.decode(data, format)
}

// Parse parses a Swagger document from a reader
func (p *Parser) Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes parses a Swagger document from bytes
func (p *Parser) ParseBytes(data []byte) (*Document, error) {
	format := p.Format
	if format == FormatAuto {
		format = FormatJSON
	}
	return p.decode(data, format)
}

func (p *Parser) decode(data []byte, format Format) (*Document, error) {
	data = p.substitute(data)

	doc := &Document{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode document JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode document YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	return p.transform(doc), nil
}

func (p *Parser) substitute(data []byte) []byte {
	for key, value := range p.Substitutions {
		data = bytes.ReplaceAll(data, []byte("{{"+key+"}}"), []byte(value))
	}
	return data
}

// transform normalizes the decoded document: path-level parameters are
// folded into each operation unless the operation redeclares them.
func (p *Parser) transform(doc *Document) *Document {
	if doc.Paths == nil {
		doc.Paths = orderedmap.New[string, *PathItem]()
	}

	for pair := doc.Paths.Oldest(); pair != nil; pair = pair.Next() {
		item := pair.Value
		if item == nil {
			item = &PathItem{}
			doc.Paths.Set(pair.Key, item)
		}
		if item.Operations == nil {
			item.Operations = orderedmap.New[string, *Operation]()
		}
		for op := item.Operations.Oldest(); op != nil; op = op.Next() {
			if op.Value == nil {
				op.Value = &Operation{}
			}
			op.Value.Parameters = mergeParameters(item.Parameters, op.Value.Parameters)
		}
	}
	return doc
}

func mergeParameters(shared, own []Parameter) []Parameter {
	if len(shared) == 0 {
		return own
	}

	declared := make(map[string]bool, len(own))
	for _, param := range own {
		declared[param.In+"/"+param.Name] = true
	}

	merged := make([]Parameter, 0, len(shared)+len(own))
	for _, param := range shared {
		if !declared[param.In+"/"+param.Name] {
			merged = append(merged, param)
		}
	}
	return append(merged, own...)
}
