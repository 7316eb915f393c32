// Package wafrest provides the shared types for the WAF-protected REST API stack.
//
// The stack is assembled in Go and synthesized to a CloudFormation template:
//
//	s := stack.New("WafRestStack", "us-east-1")
//	fn, _ := s.DefineHandler("HelloFunction", "nodejs18.x", "index.handler", src)
//	api, _ := s.DefineApi("RestApi", "DemoRestApi", "dev")
//	_, _ = s.AddRoute(api, "hello", "GET", fn)
//
// The waf-rest-stack CLI builds, lints, graphs and deploys the resulting template.
package wafrest

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All typed resources (lambda.Function, wafv2.WebACL, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::WAFv2::WebACL")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
// Typed resources have AttrRef fields for the attributes this stack reads.
//
// Example:
//
//	var acl wafv2.WebACL
//	assoc := wafv2.WebACLAssociation{
//	    WebACLArn: acl.Arn,  // {"Fn::GetAtt": ["WebAcl", "Arn"]}
//	}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "RootResourceId")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// DiscoveredResource is a resource registered in an assembled stack.
type DiscoveredResource struct {
	// Name is the CloudFormation logical ID
	Name string
	// Type is the CloudFormation type (e.g., "AWS::Lambda::Function")
	Type string
	// Path is the construct path that produced the resource (e.g., "RestApi/Default/hello/GET")
	Path string
	// Dependencies are logical names of referenced resources
	Dependencies []string
	// AttrRefUsages records GetAtt references made by this resource
	AttrRefUsages []AttrRefUsage
}

// AttrRefUsage records one GetAtt reference from a resource property.
type AttrRefUsage struct {
	ResourceName string
	Attribute    string
	FieldPath    string
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// OutputExport names a cross-stack export.
type OutputExport struct {
	Name string `json:"Name" yaml:"Name"`
}

// BuildResult is the JSON output from `waf-rest-stack build`.
type BuildResult struct {
	Success   bool     `json:"success"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// LintResult is the JSON output from `waf-rest-stack lint`.
type LintResult struct {
	Success bool        `json:"success"`
	Issues  []LintIssue `json:"issues,omitempty"`
}

// LintIssue is a single linting issue.
type LintIssue struct {
	Resource string `json:"resource,omitempty"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// ValidateResult is the JSON output from `waf-rest-stack validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `waf-rest-stack list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

// TemplateDiff groups resource differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffEntry describes one changed resource or output.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts the entries of a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// DiffResult is the JSON output from `waf-rest-stack diff`.
type DiffResult struct {
	Success bool         `json:"success"`
	Diff    TemplateDiff `json:"diff"`
	Summary DiffSummary  `json:"summary"`
}

// VerifyResult is the JSON output from `waf-rest-stack verify`.
type VerifyResult struct {
	Success   bool     `json:"success"`
	StackName string   `json:"stack_name"`
	StageArn  string   `json:"stage_arn,omitempty"`
	WebACLArn string   `json:"web_acl_arn,omitempty"`
	URL       string   `json:"url,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}
