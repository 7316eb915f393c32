// Package template provides CloudFormation template building from assembled resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/serialize"
)

// Builder constructs CloudFormation templates from assembled resources.
type Builder struct {
	resources   map[string]wafrest.DiscoveredResource
	values      map[string]any // Typed resource values for serialization
	dependsOn   map[string][]string
	outputs     map[string]wafrest.Output
	description string
}

// NewBuilder creates a template builder from assembled resources.
func NewBuilder(resources map[string]wafrest.DiscoveredResource) *Builder {
	return &Builder{
		resources: resources,
		values:    make(map[string]any),
		dependsOn: make(map[string][]string),
		outputs:   make(map[string]wafrest.Output),
	}
}

// SetValue associates a resource value with its logical name.
// The value is either a typed wafrest.Resource or a property map.
func (b *Builder) SetValue(name string, value any) {
	b.values[name] = value
}

// SetDependsOn records explicit DependsOn edges for a resource.
func (b *Builder) SetDependsOn(name string, deps ...string) {
	b.dependsOn[name] = append(b.dependsOn[name], deps...)
}

// AddOutput adds a named output to the template.
func (b *Builder) AddOutput(name string, output wafrest.Output) {
	b.outputs[name] = output
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// Build constructs the CloudFormation template.
//
// Every Ref and Fn::GetAtt must target a resource in the builder or a
// pseudo-parameter; all unresolved references are reported together.
func (b *Builder) Build() (*wafrest.Template, error) {
	props := make(map[string]map[string]any, len(b.resources))
	refs := make(map[string][]serialize.Reference, len(b.resources))

	var errs []error
	for _, name := range sortedKeys(b.resources) {
		res := b.resources[name]
		if res.Type == "" {
			errs = append(errs, fmt.Errorf("%s: missing resource type", name))
			continue
		}

		p, err := b.serializeResource(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing %s: %w", name, err))
			continue
		}
		props[name] = p
		refs[name] = serialize.References(p)

		errs = append(errs, b.checkRefs(name, refs[name])...)
		for _, dep := range b.dependsOn[name] {
			if _, ok := b.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("%s: DependsOn unknown resource %s", name, dep))
			}
		}
	}

	outputs := make(map[string]wafrest.Output, len(b.outputs))
	for _, name := range sortedKeys(b.outputs) {
		out, err := normalizeOutput(b.outputs[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing output %s: %w", name, err))
			continue
		}
		errs = append(errs, b.checkRefs("output "+name, serialize.References(out.Value))...)
		outputs[name] = out
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if _, err := b.topologicalSort(refs); err != nil {
		return nil, err
	}

	template := &wafrest.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                make(map[string]wafrest.ResourceDef, len(b.resources)),
	}

	for name, res := range b.resources {
		def := wafrest.ResourceDef{
			Type:       res.Type,
			Properties: props[name],
		}
		if deps := b.dependsOn[name]; len(deps) > 0 {
			def.DependsOn = uniqueSorted(deps)
		}
		template.Resources[name] = def
	}

	if len(outputs) > 0 {
		template.Outputs = outputs
	}

	return template, nil
}

func (b *Builder) checkRefs(owner string, refs []serialize.Reference) []error {
	var errs []error
	for _, ref := range refs {
		if ref.IsPseudo() {
			continue
		}
		if _, ok := b.resources[ref.Target]; ok {
			continue
		}
		if ref.Attribute != "" {
			errs = append(errs, fmt.Errorf("%s: unresolved reference to %s.%s at %s", owner, ref.Target, ref.Attribute, ref.Path))
		} else {
			errs = append(errs, fmt.Errorf("%s: unresolved reference to %s at %s", owner, ref.Target, ref.Path))
		}
	}
	return errs
}

// serializeResource converts a resource value to CloudFormation properties.
func (b *Builder) serializeResource(name string) (map[string]any, error) {
	value, ok := b.values[name]
	if !ok || value == nil {
		return nil, nil
	}

	if res, ok := value.(wafrest.Resource); ok {
		return serialize.Properties(res)
	}

	// Property maps are normalized through JSON.
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func normalizeOutput(out wafrest.Output) (wafrest.Output, error) {
	data, err := json.Marshal(out.Value)
	if err != nil {
		return out, err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return out, err
	}
	out.Value = value
	return out, nil
}

// dependencies merges discovered, referenced and explicit dependencies.
func (b *Builder) dependencies(name string, refs []serialize.Reference) []string {
	var deps []string
	deps = append(deps, b.resources[name].Dependencies...)
	for _, ref := range refs {
		if !ref.IsPseudo() {
			deps = append(deps, ref.Target)
		}
	}
	deps = append(deps, b.dependsOn[name]...)
	return uniqueSorted(deps)
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort(refs map[string][]serialize.Reference) ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)
	deps := make(map[string][]string)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
		deps[name] = b.dependencies(name, refs[name])
	}

	for name := range b.resources {
		for _, dep := range deps[name] {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle(deps)
	}

	return result, nil
}

// Order returns resource names in dependency order.
func (b *Builder) Order() ([]string, error) {
	refs := make(map[string][]serialize.Reference, len(b.resources))
	for name := range b.resources {
		props, err := b.serializeResource(name)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		refs[name] = serialize.References(props)
	}
	return b.topologicalSort(refs)
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	for _, name := range sortedKeys(b.resources) {
		if !visited[name] {
			if findCycle(name) {
				break
			}
		}
	}

	if len(cycle) > 0 {
		var msg strings.Builder
		msg.WriteString("circular dependency detected:\n")
		for i, name := range cycle {
			res := b.resources[name]
			fmt.Fprintf(&msg, "  %s (%s)", name, res.Path)
			if i < len(cycle)-1 {
				msg.WriteString("\n    → ")
			}
		}
		return errors.New(msg.String())
	}

	return errors.New("circular dependency detected")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wafrest.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wafrest.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
