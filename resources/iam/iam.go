// Package iam contains typed AWS::IAM resources.
package iam

import (
	wafrest "github.com/lex00/waf-rest-stack-go"
)

// Role represents AWS::IAM::Role.
type Role struct {
	RoleName                 any   `json:"RoleName,omitempty"`
	AssumeRolePolicyDocument any   `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any `json:"ManagedPolicyArns,omitempty"`

	// Arn is the GetAtt reference for the role ARN.
	Arn wafrest.AttrRef `json:"-"`
}

// ResourceType implements wafrest.Resource.
func (r Role) ResourceType() string { return "AWS::IAM::Role" }
