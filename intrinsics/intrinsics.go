// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds IAM policy-specific types.
//
// Core intrinsic functions:
//
//	Ref{LogicalName: "RestApi"} → {"Ref": "RestApi"}
//	GetAtt{LogicalName: "WebAcl", Attribute: "Arn"} → {"Fn::GetAtt": ["WebAcl", "Arn"]}
//	Join{Delimiter: "", Values: []any{"a", "b"}} → {"Fn::Join": ["", ["a", "b"]]}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_PARTITION, AWS_URL_SUFFIX, etc.
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join
)

// Concat builds a Fn::Join with an empty delimiter.
//
// Example:
//
//	Concat("https://", Ref{LogicalName: "RestApi"}, ".execute-api.", AWS_REGION)
func Concat(values ...any) Join {
	return Join{Delimiter: "", Values: values}
}

// Any creates a []any slice from the given items.
func Any(items ...any) []any {
	return items
}
