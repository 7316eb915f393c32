// Package resolve evaluates CloudFormation intrinsics against known physical
// values, e.g. to render the invocation URL or stage ARN of a deployed stack.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lex00/waf-rest-stack-go/intrinsics"
)

// ErrUnresolved is returned when a reference has no known value.
var ErrUnresolved = errors.New("unresolved reference")

// Env holds the values intrinsics resolve to.
type Env struct {
	// Refs maps logical IDs and pseudo-parameters to their Ref value.
	Refs map[string]string
	// Attrs maps logical IDs to attribute values.
	Attrs map[string]map[string]string
}

// NewEnv returns an Env with pseudo-parameters set for the given region and
// account.
func NewEnv(region, accountID, stackName string) Env {
	partition, suffix := "aws", "amazonaws.com"
	switch {
	case strings.HasPrefix(region, "cn-"):
		partition, suffix = "aws-cn", "amazonaws.com.cn"
	case strings.HasPrefix(region, "us-gov-"):
		partition = "aws-us-gov"
	}

	return Env{
		Refs: map[string]string{
			intrinsics.PseudoRegion:    region,
			intrinsics.PseudoAccountID: accountID,
			intrinsics.PseudoPartition: partition,
			intrinsics.PseudoURLSuffix: suffix,
			intrinsics.PseudoStackName: stackName,
		},
		Attrs: map[string]map[string]string{},
	}
}

// SetRef records the Ref value of a logical ID.
func (e Env) SetRef(logicalID, value string) {
	e.Refs[logicalID] = value
}

// SetAttr records an attribute value of a logical ID.
func (e Env) SetAttr(logicalID, attribute, value string) {
	if e.Attrs[logicalID] == nil {
		e.Attrs[logicalID] = map[string]string{}
	}
	e.Attrs[logicalID][attribute] = value
}

// Resolve evaluates value to a string. Value is either a typed intrinsic or
// its JSON form.
func Resolve(value any, env Env) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshaling value: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return "", fmt.Errorf("normalizing value: %w", err)
	}
	return eval(normalized, env)
}

func eval(v any, env Env) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case map[string]any:
		if len(val) != 1 {
			return "", fmt.Errorf("cannot resolve object with %d keys", len(val))
		}
		for fn, args := range val {
			switch fn {
			case "Ref":
				return ref(args, env)
			case "Fn::GetAtt":
				return getAtt(args, env)
			case "Fn::Join":
				return join(args, env)
			case "Fn::Sub":
				return sub(args, env)
			default:
				return "", fmt.Errorf("unsupported intrinsic %s", fn)
			}
		}
	}
	return "", fmt.Errorf("cannot resolve %T", v)
}

func ref(args any, env Env) (string, error) {
	name, ok := args.(string)
	if !ok {
		return "", fmt.Errorf("Ref expects a string, got %T", args)
	}
	value, ok := env.Refs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, name)
	}
	return value, nil
}

func attr(name, attribute string, env Env) (string, error) {
	value, ok := env.Attrs[name][attribute]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnresolved, name, attribute)
	}
	return value, nil
}

func getAtt(args any, env Env) (string, error) {
	switch a := args.(type) {
	case []any:
		if len(a) == 2 {
			name, ok1 := a[0].(string)
			attribute, ok2 := a[1].(string)
			if ok1 && ok2 {
				return attr(name, attribute, env)
			}
		}
	case string:
		if name, attribute, ok := strings.Cut(a, "."); ok {
			return attr(name, attribute, env)
		}
	}
	return "", fmt.Errorf("malformed Fn::GetAtt %v", args)
}

func join(args any, env Env) (string, error) {
	a, ok := args.([]any)
	if !ok || len(a) != 2 {
		return "", fmt.Errorf("malformed Fn::Join %v", args)
	}
	delim, ok := a[0].(string)
	if !ok {
		return "", fmt.Errorf("Fn::Join delimiter must be a string")
	}
	values, ok := a[1].([]any)
	if !ok {
		return "", fmt.Errorf("Fn::Join values must be a list")
	}

	parts := make([]string, 0, len(values))
	for _, v := range values {
		s, err := eval(v, env)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, delim), nil
}

var subVar = regexp.MustCompile(`\$\{([^}]*)\}`)

func sub(args any, env Env) (string, error) {
	var tmpl string
	locals := map[string]any{}

	switch a := args.(type) {
	case string:
		tmpl = a
	case []any:
		if len(a) == 0 {
			return "", fmt.Errorf("malformed Fn::Sub")
		}
		s, ok := a[0].(string)
		if !ok {
			return "", fmt.Errorf("Fn::Sub template must be a string")
		}
		tmpl = s
		if len(a) > 1 {
			if vars, ok := a[1].(map[string]any); ok {
				locals = vars
			}
		}
	default:
		return "", fmt.Errorf("malformed Fn::Sub %v", args)
	}

	var firstErr error
	out := subVar.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-1]
		if strings.HasPrefix(name, "!") {
			return "${" + name[1:] + "}"
		}

		var (
			value string
			err   error
		)
		if local, ok := locals[name]; ok {
			value, err = eval(local, env)
		} else if target, attribute, dotted := strings.Cut(name, "."); dotted {
			value, err = attr(target, attribute, env)
		} else {
			value, err = ref(name, env)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
