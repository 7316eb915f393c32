// Package lint provides advisory rules over an assembled stack.
//
// Rules never block synthesis; they report conditions CloudFormation or
// WAFv2 would reject at provisioning time, or that are likely mistakes.
package lint

import (
	"sort"

	corelint "github.com/lex00/wetwire-core-go/lint"

	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

// Type aliases for the core lint package.
type (
	// Severity is an alias for corelint.Severity.
	Severity = corelint.Severity
)

// Severity constants.
const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Issue is a core lint issue attributed to a stack resource.
type Issue struct {
	corelint.Issue
	// Resource is the logical ID the issue is about.
	Resource string
}

// Rule checks one condition over a stack.
type Rule interface {
	ID() string
	Description() string
	Check(s *stack.Stack) []Issue
}

// Result contains the outcome of linting.
type Result struct {
	Success bool
	Issues  []Issue
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// Rules to skip.
	DisabledRules []string
}

// LintStack runs the enabled rules over s. Success is false only when an
// error-severity issue is found.
func LintStack(s *stack.Stack, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(s)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Rule != issues[j].Rule {
			return issues[i].Rule < issues[j].Rule
		}
		return issues[i].Resource < issues[j].Resource
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}

	return Result{Success: success, Issues: issues}
}

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		DuplicateRulePriority{},
		ScopeMismatch{},
		DuplicateRoute{},
		RateLimitRange{},
		EvaluationWindow{},
		InvalidMetricName{},
		BlockWithoutAllow{},
		UnprotectedApi{},
		ApiWithoutRoutes{},
		DuplicateRuleName{},
	}
}

func getRules(opts Options) []Rule {
	all := AllRules()

	disabled := make(map[string]bool)
	for _, id := range opts.DisabledRules {
		disabled[id] = true
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if disabled[r.ID()] {
			continue
		}
		if len(enabled) > 0 && !enabled[r.ID()] {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func newIssue(rule Rule, severity Severity, resource, message, suggestion string) Issue {
	return Issue{
		Issue: corelint.Issue{
			Rule:       rule.ID(),
			Message:    message,
			Suggestion: suggestion,
			Severity:   severity,
		},
		Resource: resource,
	}
}
