package stack

import (
	"errors"
	"fmt"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/resources/wafv2"
)

// Scope is where a web ACL can be attached.
type Scope string

const (
	ScopeRegional   Scope = "REGIONAL"
	ScopeCloudFront Scope = "CLOUDFRONT"
)

// Action is a firewall verdict.
type Action string

const (
	ActionAllow Action = "ALLOW"
	ActionBlock Action = "BLOCK"
	ActionCount Action = "COUNT"
)

// Aggregation keys for rate-based rules.
const (
	AggregateIP          = "IP"
	AggregateForwardedIP = "FORWARDED_IP"
	AggregateConstant    = "CONSTANT"
)

// DefaultWindowSeconds is the service default evaluation window.
const DefaultWindowSeconds = 300

// Visibility controls metrics and request sampling for a policy or rule.
type Visibility struct {
	MetricName        string
	CloudWatchMetrics bool
	SampledRequests   bool
}

// RateLimit blocks sources exceeding Limit requests per window.
type RateLimit struct {
	Limit         int
	WindowSeconds int
	AggregateKey  string
}

// ManagedRuleGroup references a vendor-managed rule group.
type ManagedRuleGroup struct {
	Vendor  string
	Name    string
	Version string
}

// FirewallRuleSpec is one rule of a firewall policy. Exactly one of
// RateLimit or ManagedGroup must be set. For managed groups, Action may be
// empty (no override) or ActionCount.
type FirewallRuleSpec struct {
	Name         string
	Priority     int
	Action       Action
	RateLimit    *RateLimit
	ManagedGroup *ManagedRuleGroup
	Visibility   *Visibility
}

// FirewallPolicySpec is a web ACL.
type FirewallPolicySpec struct {
	ID            string
	LogicalID     string
	Name          string
	Scope         Scope
	DefaultAction Action
	Rules         []FirewallRuleSpec
	Visibility    Visibility

	stack *Stack
}

// Arn returns the GetAtt reference to the web ACL ARN.
func (p *FirewallPolicySpec) Arn() wafrest.AttrRef {
	return wafrest.AttrRef{Resource: p.LogicalID, Attribute: "Arn"}
}

// PolicyOption configures a firewall policy.
type PolicyOption func(*FirewallPolicySpec)

// WithVisibility overrides the policy-level visibility config.
func WithVisibility(v Visibility) PolicyOption {
	return func(p *FirewallPolicySpec) { p.Visibility = v }
}

// DefineFirewallPolicy defines a web ACL. Rules are kept in the given order;
// duplicate priorities and scope mismatches are left to lint and provisioning.
func (s *Stack) DefineFirewallPolicy(id, name string, scope Scope, defaultAction Action, rules []FirewallRuleSpec, opts ...PolicyOption) (*FirewallPolicySpec, error) {
	if id == "" {
		return nil, errors.New("firewall policy id is required")
	}
	if scope == "" {
		return nil, fmt.Errorf("firewall policy %s: scope is required", id)
	}
	if defaultAction != ActionAllow && defaultAction != ActionBlock {
		return nil, fmt.Errorf("firewall policy %s: default action must be %s or %s, got %q", id, ActionAllow, ActionBlock, defaultAction)
	}
	if name == "" {
		name = id
	}

	policy := &FirewallPolicySpec{
		ID:            id,
		Name:          name,
		Scope:         scope,
		DefaultAction: defaultAction,
		Rules:         make([]FirewallRuleSpec, len(rules)),
		Visibility: Visibility{
			MetricName:        name,
			CloudWatchMetrics: true,
			SampledRequests:   true,
		},
		stack: s,
	}
	copy(policy.Rules, rules)
	for _, opt := range opts {
		opt(policy)
	}

	wafRules := make([]wafv2.WebACL_Rule, 0, len(policy.Rules))
	for i, r := range policy.Rules {
		rule, err := buildRule(r)
		if err != nil {
			return nil, fmt.Errorf("firewall policy %s: rule %d: %w", id, i, err)
		}
		wafRules = append(wafRules, rule)
	}

	logicalID, err := s.allocate(id)
	if err != nil {
		return nil, fmt.Errorf("firewall policy %s: %w", id, err)
	}
	policy.LogicalID = logicalID

	acl := wafv2.WebACL{
		Name:             name,
		Scope:            string(scope),
		DefaultAction:    defaultActionOf(defaultAction),
		Rules:            wafRules,
		VisibilityConfig: visibilityConfig(policy.Visibility),
	}
	s.add(logicalID, id, acl)

	s.policies = append(s.policies, policy)
	return policy, nil
}

func buildRule(r FirewallRuleSpec) (wafv2.WebACL_Rule, error) {
	if r.Name == "" {
		return wafv2.WebACL_Rule{}, errors.New("name is required")
	}
	if (r.RateLimit == nil) == (r.ManagedGroup == nil) {
		return wafv2.WebACL_Rule{}, fmt.Errorf("%s: exactly one statement is required", r.Name)
	}

	vis := Visibility{MetricName: r.Name, CloudWatchMetrics: true, SampledRequests: true}
	if r.Visibility != nil {
		vis = *r.Visibility
	}

	rule := wafv2.WebACL_Rule{
		Name:             r.Name,
		Priority:         r.Priority,
		VisibilityConfig: visibilityConfig(vis),
	}

	switch {
	case r.RateLimit != nil:
		action, err := ruleAction(r.Action)
		if err != nil {
			return wafv2.WebACL_Rule{}, fmt.Errorf("%s: %w", r.Name, err)
		}
		rule.Action = action

		key := r.RateLimit.AggregateKey
		if key == "" {
			key = AggregateIP
		}
		stmt := &wafv2.WebACL_RateBasedStatement{
			Limit:            r.RateLimit.Limit,
			AggregateKeyType: key,
		}
		// 300s is the service default; leave it implicit.
		if r.RateLimit.WindowSeconds != 0 && r.RateLimit.WindowSeconds != DefaultWindowSeconds {
			stmt.EvaluationWindowSec = r.RateLimit.WindowSeconds
		}
		rule.Statement.RateBasedStatement = stmt

	case r.ManagedGroup != nil:
		override := &wafv2.WebACL_OverrideAction{None: &wafv2.WebACL_NoneAction{}}
		switch r.Action {
		case "":
		case ActionCount:
			override = &wafv2.WebACL_OverrideAction{Count: &wafv2.WebACL_CountAction{}}
		default:
			return wafv2.WebACL_Rule{}, fmt.Errorf("%s: managed rule groups accept only %s override, got %q", r.Name, ActionCount, r.Action)
		}
		rule.OverrideAction = override
		rule.Statement.ManagedRuleGroupStatement = &wafv2.WebACL_ManagedRuleGroupStatement{
			Name:       r.ManagedGroup.Name,
			VendorName: r.ManagedGroup.Vendor,
			Version:    r.ManagedGroup.Version,
		}
	}

	return rule, nil
}

func ruleAction(a Action) (*wafv2.WebACL_RuleAction, error) {
	switch a {
	case ActionAllow:
		return &wafv2.WebACL_RuleAction{Allow: &wafv2.WebACL_AllowAction{}}, nil
	case ActionBlock:
		return &wafv2.WebACL_RuleAction{Block: &wafv2.WebACL_BlockAction{}}, nil
	case ActionCount:
		return &wafv2.WebACL_RuleAction{Count: &wafv2.WebACL_CountAction{}}, nil
	}
	return nil, fmt.Errorf("unknown action %q", a)
}

func defaultActionOf(a Action) wafv2.WebACL_DefaultAction {
	if a == ActionBlock {
		return wafv2.WebACL_DefaultAction{Block: &wafv2.WebACL_BlockAction{}}
	}
	return wafv2.WebACL_DefaultAction{Allow: &wafv2.WebACL_AllowAction{}}
}

func visibilityConfig(v Visibility) wafv2.WebACL_VisibilityConfig {
	return wafv2.WebACL_VisibilityConfig{
		CloudWatchMetricsEnabled: v.CloudWatchMetrics,
		MetricName:               v.MetricName,
		SampledRequestsEnabled:   v.SampledRequests,
	}
}
