// Package wafv2 contains typed AWS::WAFv2 resources.
package wafv2

import (
	wafrest "github.com/lex00/waf-rest-stack-go"
)

// WebACL represents AWS::WAFv2::WebACL.
type WebACL struct {
	Name             string                  `json:"Name,omitempty"`
	Description      string                  `json:"Description,omitempty"`
	Scope            string                  `json:"Scope"`
	DefaultAction    WebACL_DefaultAction    `json:"DefaultAction"`
	Rules            []WebACL_Rule           `json:"Rules,omitempty"`
	VisibilityConfig WebACL_VisibilityConfig `json:"VisibilityConfig"`

	// Arn is the GetAtt reference for the web ACL ARN.
	Arn wafrest.AttrRef `json:"-"`
}

// ResourceType implements wafrest.Resource.
func (r WebACL) ResourceType() string { return "AWS::WAFv2::WebACL" }

// WebACL_DefaultAction sets exactly one of Allow or Block.
type WebACL_DefaultAction struct {
	Allow *WebACL_AllowAction `json:"Allow,omitempty"`
	Block *WebACL_BlockAction `json:"Block,omitempty"`
}

// WebACL_AllowAction serializes to {}.
type WebACL_AllowAction struct{}

// WebACL_BlockAction serializes to {}.
type WebACL_BlockAction struct{}

// WebACL_CountAction serializes to {}.
type WebACL_CountAction struct{}

// WebACL_NoneAction serializes to {}.
type WebACL_NoneAction struct{}

// WebACL_Rule is one inspection rule. Priority 0 is valid and always serialized.
type WebACL_Rule struct {
	Name             string                  `json:"Name"`
	Priority         int                     `json:"Priority"`
	Action           *WebACL_RuleAction      `json:"Action,omitempty"`
	OverrideAction   *WebACL_OverrideAction  `json:"OverrideAction,omitempty"`
	Statement        WebACL_Statement        `json:"Statement"`
	VisibilityConfig WebACL_VisibilityConfig `json:"VisibilityConfig"`
}

// WebACL_RuleAction is the action taken on a match.
type WebACL_RuleAction struct {
	Allow *WebACL_AllowAction `json:"Allow,omitempty"`
	Block *WebACL_BlockAction `json:"Block,omitempty"`
	Count *WebACL_CountAction `json:"Count,omitempty"`
}

// WebACL_OverrideAction applies to rule group references.
type WebACL_OverrideAction struct {
	Count *WebACL_CountAction `json:"Count,omitempty"`
	None  *WebACL_NoneAction  `json:"None,omitempty"`
}

// WebACL_Statement holds exactly one match statement.
type WebACL_Statement struct {
	RateBasedStatement        *WebACL_RateBasedStatement        `json:"RateBasedStatement,omitempty"`
	ManagedRuleGroupStatement *WebACL_ManagedRuleGroupStatement `json:"ManagedRuleGroupStatement,omitempty"`
}

// WebACL_RateBasedStatement counts requests per aggregation key over a window.
type WebACL_RateBasedStatement struct {
	Limit               int    `json:"Limit"`
	AggregateKeyType    string `json:"AggregateKeyType"`
	EvaluationWindowSec int    `json:"EvaluationWindowSec,omitempty"`
}

// WebACL_ManagedRuleGroupStatement references a vendor rule group.
type WebACL_ManagedRuleGroupStatement struct {
	Name       string `json:"Name"`
	VendorName string `json:"VendorName"`
	Version    string `json:"Version,omitempty"`
}

// WebACL_VisibilityConfig controls metrics and request sampling.
type WebACL_VisibilityConfig struct {
	CloudWatchMetricsEnabled bool   `json:"CloudWatchMetricsEnabled"`
	MetricName               string `json:"MetricName"`
	SampledRequestsEnabled   bool   `json:"SampledRequestsEnabled"`
}

// WebACLAssociation represents AWS::WAFv2::WebACLAssociation.
type WebACLAssociation struct {
	ResourceArn any `json:"ResourceArn"`
	WebACLArn   any `json:"WebACLArn"`
}

// ResourceType implements wafrest.Resource.
func (r WebACLAssociation) ResourceType() string { return "AWS::WAFv2::WebACLAssociation" }
