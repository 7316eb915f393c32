package stack

import (
	"errors"
	"fmt"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/intrinsics"
	"github.com/lex00/waf-rest-stack-go/resources/iam"
	"github.com/lex00/waf-rest-stack-go/resources/lambda"
)

// Inline ZipFile code is limited to 4096 characters by CloudFormation.
const maxInlineSource = 4096

// HandlerSpec is a function with inline source.
type HandlerSpec struct {
	ID         string
	LogicalID  string
	Runtime    string
	EntryPoint string
	Source     string

	// RoleLogicalID is the execution role emitted with the function.
	RoleLogicalID string

	stack *Stack
}

// Arn returns the GetAtt reference to the function ARN.
func (h *HandlerSpec) Arn() wafrest.AttrRef {
	return wafrest.AttrRef{Resource: h.LogicalID, Attribute: "Arn"}
}

// Ref returns a Ref to the function name.
func (h *HandlerSpec) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.LogicalID}
}

// DefineHandler defines a function and its execution role.
func (s *Stack) DefineHandler(id, runtime, entryPoint, source string) (*HandlerSpec, error) {
	if id == "" {
		return nil, errors.New("handler id is required")
	}
	if runtime == "" {
		return nil, fmt.Errorf("handler %s: runtime is required", id)
	}
	if entryPoint == "" {
		return nil, fmt.Errorf("handler %s: entry point is required", id)
	}
	if source == "" {
		return nil, fmt.Errorf("handler %s: source is required", id)
	}
	if len(source) > maxInlineSource {
		return nil, fmt.Errorf("handler %s: inline source is %d characters, limit is %d", id, len(source), maxInlineSource)
	}

	logicalID, err := s.allocate(id)
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", id, err)
	}
	roleID, err := s.allocate(logicalID + "ServiceRole")
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", id, err)
	}

	h := &HandlerSpec{
		ID:            id,
		LogicalID:     logicalID,
		Runtime:       runtime,
		EntryPoint:    entryPoint,
		Source:        source,
		RoleLogicalID: roleID,
		stack:         s,
	}

	role := iam.Role{
		AssumeRolePolicyDocument: intrinsics.AssumeRoleDocument("lambda.amazonaws.com"),
		ManagedPolicyArns: []any{
			intrinsics.ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole"),
		},
	}
	s.add(roleID, id+"/ServiceRole/Resource", role)

	fn := lambda.Function{
		Runtime: runtime,
		Handler: entryPoint,
		Code:    lambda.Function_Code{ZipFile: source},
		Role:    wafrest.AttrRef{Resource: roleID, Attribute: "Arn"},
	}
	s.add(logicalID, id+"/Resource", fn, roleID)

	s.handlers = append(s.handlers, h)
	return h, nil
}
