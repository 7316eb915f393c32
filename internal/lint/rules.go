// Stack lint rules:
//
//	WRS001: Firewall rule priorities must be unique within a policy
//	WRS002: Policies attached to API Gateway stages must be REGIONAL
//	WRS003: Each (path, method) may be routed once per API
//	WRS004: Rate limits must be within [10, 2000000000]
//	WRS005: Rate evaluation windows must be 60, 120, 300 or 600 seconds
//	WRS006: Metric names must match [\w#:.\-/]+ and be at most 255 characters
//	WRS007: Default block with no allow rule blocks all traffic
//	WRS008: APIs should be protected by a firewall policy
//	WRS009: APIs need at least one route to deploy
//	WRS010: Firewall rule names must be unique within a policy
package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

// Rate limit bounds accepted by WAFv2.
const (
	MinRateLimit = 10
	MaxRateLimit = 2000000000
)

// DuplicateRulePriority detects rules sharing a priority.
type DuplicateRulePriority struct{}

func (r DuplicateRulePriority) ID() string { return "WRS001" }
func (r DuplicateRulePriority) Description() string {
	return "Firewall rule priorities must be unique"
}

func (r DuplicateRulePriority) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, p := range s.Policies() {
		seen := map[int]string{}
		for _, rule := range p.Rules {
			if other, ok := seen[rule.Priority]; ok {
				issues = append(issues, newIssue(r, SeverityError, p.LogicalID,
					fmt.Sprintf("rules %s and %s share priority %d", other, rule.Name, rule.Priority),
					"give each rule a distinct priority"))
				continue
			}
			seen[rule.Priority] = rule.Name
		}
	}
	return issues
}

// ScopeMismatch detects non-regional policies attached to API stages.
type ScopeMismatch struct{}

func (r ScopeMismatch) ID() string { return "WRS002" }
func (r ScopeMismatch) Description() string {
	return "Policies attached to API Gateway stages must be REGIONAL"
}

func (r ScopeMismatch) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, a := range s.Associations() {
		if a.Policy.Scope != stack.ScopeRegional {
			issues = append(issues, newIssue(r, SeverityError, a.LogicalID,
				fmt.Sprintf("policy %s has scope %s but is attached to stage %s of %s", a.Policy.LogicalID, a.Policy.Scope, a.Stage.Name, a.Api.LogicalID),
				"use scope REGIONAL"))
		}
	}
	return issues
}

// DuplicateRoute detects the same path and method routed twice.
type DuplicateRoute struct{}

func (r DuplicateRoute) ID() string { return "WRS003" }
func (r DuplicateRoute) Description() string {
	return "Each path and method may be routed once per API"
}

func (r DuplicateRoute) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, api := range s.Apis() {
		seen := map[string]bool{}
		for _, route := range api.Routes {
			key := route.Method + " " + route.Path
			if seen[key] {
				issues = append(issues, newIssue(r, SeverityError, route.LogicalID,
					fmt.Sprintf("route %s is defined more than once on %s", key, api.LogicalID),
					"remove the duplicate route"))
				continue
			}
			seen[key] = true
		}
	}
	return issues
}

// RateLimitRange detects rate limits WAFv2 rejects.
type RateLimitRange struct{}

func (r RateLimitRange) ID() string { return "WRS004" }
func (r RateLimitRange) Description() string {
	return fmt.Sprintf("Rate limits must be within [%d, %d]", MinRateLimit, MaxRateLimit)
}

func (r RateLimitRange) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, p := range s.Policies() {
		for _, rule := range p.Rules {
			if rule.RateLimit == nil {
				continue
			}
			if l := rule.RateLimit.Limit; l < MinRateLimit || l > MaxRateLimit {
				issues = append(issues, newIssue(r, SeverityError, p.LogicalID,
					fmt.Sprintf("rule %s limit %d is outside [%d, %d]", rule.Name, l, MinRateLimit, MaxRateLimit),
					""))
			}
		}
	}
	return issues
}

// EvaluationWindow detects unsupported rate evaluation windows.
type EvaluationWindow struct{}

func (r EvaluationWindow) ID() string { return "WRS005" }
func (r EvaluationWindow) Description() string {
	return "Rate evaluation windows must be 60, 120, 300 or 600 seconds"
}

func (r EvaluationWindow) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, p := range s.Policies() {
		for _, rule := range p.Rules {
			if rule.RateLimit == nil {
				continue
			}
			switch rule.RateLimit.WindowSeconds {
			case 0, 60, 120, 300, 600:
			default:
				issues = append(issues, newIssue(r, SeverityError, p.LogicalID,
					fmt.Sprintf("rule %s window %ds is not supported", rule.Name, rule.RateLimit.WindowSeconds),
					"use 60, 120, 300 or 600"))
			}
		}
	}
	return issues
}

var metricNamePattern = regexp.MustCompile(`^[\w#:.\-/]+$`)

// InvalidMetricName detects metric names CloudWatch visibility rejects.
type InvalidMetricName struct{}

func (r InvalidMetricName) ID() string { return "WRS006" }
func (r InvalidMetricName) Description() string {
	return "Metric names must match [\\w#:.\\-/]+ and be at most 255 characters"
}

func (r InvalidMetricName) Check(s *stack.Stack) []Issue {
	var issues []Issue
	check := func(resource, owner, name string) {
		switch {
		case name == "":
			issues = append(issues, newIssue(r, SeverityError, resource,
				fmt.Sprintf("%s has an empty metric name", owner), ""))
		case len(name) > 255 || !metricNamePattern.MatchString(name):
			issues = append(issues, newIssue(r, SeverityError, resource,
				fmt.Sprintf("%s metric name %q is invalid", owner, name),
				"use letters, digits and #:.-/_ only"))
		case name == "All" || name == "Default_Action":
			issues = append(issues, newIssue(r, SeverityError, resource,
				fmt.Sprintf("%s metric name %q is reserved", owner, name), ""))
		}
	}

	for _, p := range s.Policies() {
		check(p.LogicalID, "policy "+p.Name, p.Visibility.MetricName)
		for _, rule := range p.Rules {
			name := rule.Name
			if rule.Visibility != nil {
				name = rule.Visibility.MetricName
			}
			check(p.LogicalID, "rule "+rule.Name, name)
		}
	}
	return issues
}

// BlockWithoutAllow detects a default block with no rule allowing traffic.
type BlockWithoutAllow struct{}

func (r BlockWithoutAllow) ID() string { return "WRS007" }
func (r BlockWithoutAllow) Description() string {
	return "Default block with no allow rule blocks all traffic"
}

func (r BlockWithoutAllow) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, p := range s.Policies() {
		if p.DefaultAction != stack.ActionBlock {
			continue
		}
		allows := false
		for _, rule := range p.Rules {
			if rule.Action == stack.ActionAllow {
				allows = true
			}
		}
		if !allows {
			issues = append(issues, newIssue(r, SeverityWarning, p.LogicalID,
				fmt.Sprintf("policy %s blocks by default and has no allow rule", p.Name),
				"add an allow rule or use default action ALLOW"))
		}
	}
	return issues
}

// UnprotectedApi detects APIs with no associated policy.
type UnprotectedApi struct{}

func (r UnprotectedApi) ID() string { return "WRS008" }
func (r UnprotectedApi) Description() string {
	return "APIs should be protected by a firewall policy"
}

func (r UnprotectedApi) Check(s *stack.Stack) []Issue {
	protected := map[*stack.ApiSpec]bool{}
	for _, a := range s.Associations() {
		protected[a.Api] = true
	}

	var issues []Issue
	for _, api := range s.Apis() {
		if !protected[api] {
			issues = append(issues, newIssue(r, SeverityWarning, api.LogicalID,
				fmt.Sprintf("api %s stage %s has no firewall policy", api.Name, api.Stage.Name),
				"associate a REGIONAL web ACL with the stage"))
		}
	}
	return issues
}

// ApiWithoutRoutes detects APIs that cannot be deployed.
type ApiWithoutRoutes struct{}

func (r ApiWithoutRoutes) ID() string { return "WRS009" }
func (r ApiWithoutRoutes) Description() string {
	return "APIs need at least one route to deploy"
}

func (r ApiWithoutRoutes) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, api := range s.Apis() {
		if len(api.Routes) == 0 {
			issues = append(issues, newIssue(r, SeverityError, api.LogicalID,
				fmt.Sprintf("api %s has no routes", api.Name), "add a route"))
		}
	}
	return issues
}

// DuplicateRuleName detects rules sharing a name.
type DuplicateRuleName struct{}

func (r DuplicateRuleName) ID() string { return "WRS010" }
func (r DuplicateRuleName) Description() string {
	return "Firewall rule names must be unique"
}

func (r DuplicateRuleName) Check(s *stack.Stack) []Issue {
	var issues []Issue
	for _, p := range s.Policies() {
		seen := map[string]bool{}
		for _, rule := range p.Rules {
			key := strings.ToLower(rule.Name)
			if seen[key] {
				issues = append(issues, newIssue(r, SeverityError, p.LogicalID,
					fmt.Sprintf("rule name %s is used more than once", rule.Name), ""))
				continue
			}
			seen[key] = true
		}
	}
	return issues
}
