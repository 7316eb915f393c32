package intrinsics

import (
	"encoding/json"
)

// PolicyVersion is the IAM policy language version.
const PolicyVersion = "2012-10-17"

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Version   string            `json:"Version,omitempty"`
	Statement []PolicyStatement `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the current language version.
func NewPolicyDocument(statements ...PolicyStatement) PolicyDocument {
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// PolicyStatement is one statement of a PolicyDocument. Action and Resource
// accept a string, a list or an intrinsic.
type PolicyStatement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Principal any            `json:"Principal,omitempty"`
	Action    any            `json:"Action,omitempty"`
	Resource  any            `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// ServicePrincipal names the AWS services allowed to assume a role.
type ServicePrincipal []string

// MarshalJSON emits {"Service": name} for one service and a list otherwise.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]string{"Service": p[0]})
	}
	return json.Marshal(map[string][]string{"Service": p})
}

// AssumeRoleDocument returns the trust policy letting services assume a role.
//
//	AssumeRoleDocument("lambda.amazonaws.com")
func AssumeRoleDocument(services ...string) PolicyDocument {
	return NewPolicyDocument(PolicyStatement{
		Effect:    "Allow",
		Principal: ServicePrincipal(services),
		Action:    "sts:AssumeRole",
	})
}

// ManagedPolicyArn returns the partition-aware ARN of an AWS managed policy,
// e.g. "service-role/AWSLambdaBasicExecutionRole".
func ManagedPolicyArn(name string) Join {
	return Concat("arn:", AWS_PARTITION, ":iam::aws:policy/"+name)
}
