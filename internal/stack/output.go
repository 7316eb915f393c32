package stack

import (
	"errors"
	"fmt"

	wafrest "github.com/lex00/waf-rest-stack-go"
)

// OutputSpec is a named stack output.
type OutputSpec struct {
	Name        string
	Value       any
	Description string
	ExportName  string
}

// OutputOption configures an output.
type OutputOption func(*OutputSpec)

// WithDescription sets the output description.
func WithDescription(description string) OutputOption {
	return func(o *OutputSpec) { o.Description = description }
}

// WithExportName exports the output under name for cross-stack use.
func WithExportName(name string) OutputOption {
	return func(o *OutputSpec) { o.ExportName = name }
}

// DeclareOutput records a named output. Names must be alphanumeric and unique.
func (s *Stack) DeclareOutput(name string, value any, opts ...OutputOption) (*OutputSpec, error) {
	if name == "" {
		return nil, errors.New("output name is required")
	}
	if LogicalID(name) != name {
		return nil, fmt.Errorf("output %q: name must be alphanumeric", name)
	}
	if value == nil {
		return nil, fmt.Errorf("output %s: value is required", name)
	}
	for _, o := range s.outputs {
		if o.Name == name {
			return nil, fmt.Errorf("output %s: already declared", name)
		}
	}

	out := &OutputSpec{Name: name, Value: value}
	for _, opt := range opts {
		opt(out)
	}

	s.outputs = append(s.outputs, out)
	return out, nil
}

func (o *OutputSpec) output() wafrest.Output {
	out := wafrest.Output{
		Description: o.Description,
		Value:       o.Value,
	}
	if o.ExportName != "" {
		out.Export = &wafrest.OutputExport{Name: o.ExportName}
	}
	return out
}
