// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	wafrest "github.com/lex00/waf-rest-stack-go"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    wafrest.TemplateDiff
	Summary wafrest.DiffSummary
}

// outputType marks output entries in a diff.
const outputType = "Output"

// Compare compares two CloudFormation templates and returns differences.
// Both templates are normalized through JSON first, so a synthesized
// template compares equal to the same template read back from disk.
func Compare(template1, template2 *wafrest.Template, opts Options) (*Result, error) {
	t1, err := normalize(template1)
	if err != nil {
		return nil, fmt.Errorf("normalizing first template: %w", err)
	}
	t2, err := normalize(template2)
	if err != nil {
		return nil, fmt.Errorf("normalizing second template: %w", err)
	}

	result := &Result{}

	res1 := t1.Resources
	res2 := t2.Resources

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wafrest.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, wafrest.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, wafrest.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	compareOutputs(t1.Outputs, t2.Outputs, opts, &result.Diff)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = wafrest.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a file.
func LoadTemplate(path string) (*wafrest.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data)
}

// ParseTemplate parses a JSON or YAML template body. YAML short-form
// intrinsic tags (!Ref, !GetAtt) are not supported.
func ParseTemplate(data []byte) (*wafrest.Template, error) {
	var template wafrest.Template

	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &template, nil
}

// normalize round-trips a template through JSON so numbers and nested
// values share one representation.
func normalize(t *wafrest.Template) (*wafrest.Template, error) {
	if t == nil {
		return &wafrest.Template{}, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out wafrest.Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 wafrest.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}

	return changes
}

func compareOutputs(out1, out2 map[string]wafrest.Output, opts Options, diff *wafrest.TemplateDiff) {
	for name := range out2 {
		if _, exists := out1[name]; !exists {
			diff.Added = append(diff.Added, wafrest.DiffEntry{Resource: name, Type: outputType})
		}
	}
	for name, o1 := range out1 {
		o2, exists := out2[name]
		if !exists {
			diff.Removed = append(diff.Removed, wafrest.DiffEntry{Resource: name, Type: outputType})
			continue
		}

		var changes []string
		if !deepEqual(o1.Value, o2.Value, opts) {
			changes = append(changes, "Value modified")
		}
		if o1.Description != o2.Description {
			changes = append(changes, "Description modified")
		}
		if !reflect.DeepEqual(o1.Export, o2.Export) {
			changes = append(changes, "Export modified")
		}
		if len(changes) > 0 {
			diff.Modified = append(diff.Modified, wafrest.DiffEntry{Resource: name, Type: outputType, Changes: changes})
		}
	}
}

// compareProperties compares the top level of two property maps.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if val1, exists := props1[key]; exists {
			if !deepEqual(val1, val2, opts) {
				changes = append(changes, fmt.Sprintf("%s modified", path))
			}
		} else {
			changes = append(changes, fmt.Sprintf("%s added", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts slices by their JSON encoding, recursively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		keys := make([]string, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		idx := make([]int, len(result))
		for i := range result {
			idx[i] = i
			data, _ := json.Marshal(result[i])
			keys[i] = string(data)
		}
		sort.SliceStable(idx, func(i, j int) bool { return keys[idx[i]] < keys[idx[j]] })
		sorted := make([]any, len(result))
		for i, k := range idx {
			sorted[i] = result[k]
		}
		return sorted
	case map[string]any:
		result := make(map[string]any)
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []wafrest.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
