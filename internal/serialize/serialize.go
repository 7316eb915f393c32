// Package serialize provides CloudFormation-specific serialization utilities.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/lex00/waf-rest-stack-go/intrinsics"
)

// Properties serializes a typed resource to CloudFormation properties.
// It handles:
// - JSON tag names (Type_ is tagged "Type")
// - Omitting zero values only for fields tagged omitempty
// - Nested structs and pointers
// - json.Marshaler values (AttrRef, Ref, Join)
func Properties(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", val.Kind())
	}

	out, err := serializeStruct(val)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func serializeStruct(val reflect.Value) (map[string]any, error) {
	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name, omitEmpty := fieldName(field)
		if name == "-" {
			continue
		}

		if omitEmpty && isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// fieldName returns the JSON field name for a struct field and whether it
// carries omitempty.
func fieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, false
	}

	parts := strings.Split(tag, ",")
	name := parts[0]
	omit := false
	for _, p := range parts[1:] {
		if p == "omitempty" {
			omit = true
		}
	}
	if name == "" {
		return field.Name, omit
	}
	return name, omit
}

// isZeroValue returns true if the value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		if v.Kind() == reflect.Interface {
			return serializeValue(v.Elem())
		}
	}

	// Marshalers first so intrinsics keep their CloudFormation shape.
	if v.CanInterface() {
		if marshaler, ok := v.Interface().(json.Marshaler); ok {
			data, err := marshaler.MarshalJSON()
			if err != nil {
				return nil, err
			}
			var result any
			if err := json.Unmarshal(data, &result); err != nil {
				return nil, err
			}
			return result, nil
		}
	}

	if v.Kind() == reflect.Ptr {
		return serializeValue(v.Elem())
	}

	switch v.Kind() {
	case reflect.Struct:
		return serializeStruct(v)

	case reflect.Slice, reflect.Array:
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[key] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}
}

// Reference is one Ref or Fn::GetAtt found in a property tree.
type Reference struct {
	// Target is the referenced logical name.
	Target string
	// Attribute is empty for Ref.
	Attribute string
	// Path is the dotted property path of the reference.
	Path string
}

// IsPseudo reports whether the reference targets a pseudo-parameter.
func (r Reference) IsPseudo() bool {
	return r.Attribute == "" && intrinsics.IsPseudo(r.Target)
}

var subVarPattern = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

// References extracts Ref, Fn::GetAtt and Fn::Sub targets from a serialized
// property tree. Map keys are visited in sorted order.
func References(v any) []Reference {
	var refs []Reference
	collectRefs(v, "", &refs)
	return refs
}

func collectRefs(v any, path string, refs *[]Reference) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if target, ok := val["Ref"].(string); ok {
				*refs = append(*refs, Reference{Target: target, Path: path})
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				if ref, ok := parseGetAtt(getAtt); ok {
					ref.Path = path
					*refs = append(*refs, ref)
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, path, refs)
				return
			}
		}

		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectRefs(val[k], joinPath(path, k), refs)
		}

	case []any:
		for i, elem := range val {
			collectRefs(elem, fmt.Sprintf("%s[%d]", path, i), refs)
		}
	}
}

func parseGetAtt(v any) (Reference, bool) {
	switch args := v.(type) {
	case []any:
		if len(args) != 2 {
			return Reference{}, false
		}
		name, ok1 := args[0].(string)
		attr, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return Reference{}, false
		}
		return Reference{Target: name, Attribute: attr}, true
	case string:
		name, attr, found := strings.Cut(args, ".")
		if !found {
			return Reference{}, false
		}
		return Reference{Target: name, Attribute: attr}, true
	}
	return Reference{}, false
}

func collectSub(v any, path string, refs *[]Reference) {
	var tmpl string
	locals := map[string]bool{}

	switch args := v.(type) {
	case string:
		tmpl = args
	case []any:
		if len(args) == 0 {
			return
		}
		tmpl, _ = args[0].(string)
		if len(args) > 1 {
			if vars, ok := args[1].(map[string]any); ok {
				for name := range vars {
					locals[name] = true
				}
				collectRefs(vars, joinPath(path, "Fn::Sub"), refs)
			}
		}
	}

	for _, m := range subVarPattern.FindAllStringSubmatch(tmpl, -1) {
		name := m[1]
		if locals[name] {
			continue
		}
		target, attr, _ := strings.Cut(name, ".")
		*refs = append(*refs, Reference{Target: target, Attribute: attr, Path: path})
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
