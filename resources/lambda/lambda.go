// Package lambda contains typed AWS::Lambda resources.
package lambda

import (
	wafrest "github.com/lex00/waf-rest-stack-go"
)

// Function represents AWS::Lambda::Function.
type Function struct {
	FunctionName any           `json:"FunctionName,omitempty"`
	Description  string        `json:"Description,omitempty"`
	Runtime      string        `json:"Runtime,omitempty"`
	Handler      string        `json:"Handler,omitempty"`
	Code         Function_Code `json:"Code"`
	Role         any           `json:"Role"`
	Timeout      int           `json:"Timeout,omitempty"`
	MemorySize   int           `json:"MemorySize,omitempty"`
	Environment  *Function_Env `json:"Environment,omitempty"`

	// Arn is the GetAtt reference for the function ARN.
	Arn wafrest.AttrRef `json:"-"`
}

// ResourceType implements wafrest.Resource.
func (r Function) ResourceType() string { return "AWS::Lambda::Function" }

// Function_Code is the deployment package of a function.
// ZipFile holds inline source for interpreted runtimes.
type Function_Code struct {
	ZipFile  string `json:"ZipFile,omitempty"`
	S3Bucket string `json:"S3Bucket,omitempty"`
	S3Key    string `json:"S3Key,omitempty"`
}

// Function_Env holds function environment variables.
type Function_Env struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Permission represents AWS::Lambda::Permission.
type Permission struct {
	Action       string `json:"Action"`
	FunctionName any    `json:"FunctionName"`
	Principal    string `json:"Principal"`
	SourceArn    any    `json:"SourceArn,omitempty"`
}

// ResourceType implements wafrest.Resource.
func (r Permission) ResourceType() string { return "AWS::Lambda::Permission" }
