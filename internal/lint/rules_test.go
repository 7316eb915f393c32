package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/waf-rest-stack-go/infra"
	"github.com/lex00/waf-rest-stack-go/internal/config"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

const src = `exports.handler = async () => ({ statusCode: 200 });`

// newStack builds a handler and an API with one route.
func newStack(t *testing.T) (*stack.Stack, *stack.ApiSpec, *stack.HandlerSpec) {
	t.Helper()
	s := stack.New("WafRestStack", "us-east-1")
	fn, err := s.DefineHandler("HelloFunction", "nodejs18.x", "index.handler", src)
	require.NoError(t, err)
	api, err := s.DefineApi("RestApi", "DemoRestApi", "dev")
	require.NoError(t, err)
	_, err = s.AddRoute(api, "hello", "GET", fn)
	require.NoError(t, err)
	return s, api, fn
}

func rateRule(name string, priority, limit, window int) stack.FirewallRuleSpec {
	return stack.FirewallRuleSpec{
		Name:      name,
		Priority:  priority,
		Action:    stack.ActionBlock,
		RateLimit: &stack.RateLimit{Limit: limit, WindowSeconds: window},
	}
}

func rulesFired(result Result) map[string]int {
	fired := map[string]int{}
	for _, issue := range result.Issues {
		fired[issue.Rule]++
	}
	return fired
}

func TestLintStack_DefaultStackIsClean(t *testing.T) {
	s, err := infra.New(config.Default())
	require.NoError(t, err)

	result := LintStack(s, Options{})
	assert.True(t, result.Success)
	assert.Empty(t, result.Issues)
}

func TestLintStack_Rules(t *testing.T) {
	tests := []struct {
		name     string
		build    func(t *testing.T) *stack.Stack
		rule     string
		severity Severity
	}{
		{
			name: "duplicate priority",
			build: func(t *testing.T) *stack.Stack {
				s, api, _ := newStack(t)
				p, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeRegional, stack.ActionAllow, []stack.FirewallRuleSpec{
					rateRule("A", 1, 1000, 300), rateRule("B", 1, 1000, 300),
				})
				require.NoError(t, err)
				_, err = s.Associate("Assoc", api, api.Stage, p)
				require.NoError(t, err)
				return s
			},
			rule:     "WRS001",
			severity: SeverityError,
		},
		{
			name: "cloudfront scope on stage",
			build: func(t *testing.T) *stack.Stack {
				s, api, _ := newStack(t)
				p, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeCloudFront, stack.ActionAllow, nil)
				require.NoError(t, err)
				_, err = s.Associate("Assoc", api, api.Stage, p)
				require.NoError(t, err)
				return s
			},
			rule:     "WRS002",
			severity: SeverityError,
		},
		{
			name: "duplicate route",
			build: func(t *testing.T) *stack.Stack {
				s, api, fn := newStack(t)
				_, err := s.AddRoute(api, "/hello", "get", fn)
				require.NoError(t, err)
				return s
			},
			rule:     "WRS003",
			severity: SeverityError,
		},
		{
			name: "limit too low",
			build: func(t *testing.T) *stack.Stack {
				s, _, _ := newStack(t)
				_, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeRegional, stack.ActionAllow, []stack.FirewallRuleSpec{rateRule("A", 1, 5, 300)})
				require.NoError(t, err)
				return s
			},
			rule:     "WRS004",
			severity: SeverityError,
		},
		{
			name: "unsupported window",
			build: func(t *testing.T) *stack.Stack {
				s, _, _ := newStack(t)
				_, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeRegional, stack.ActionAllow, []stack.FirewallRuleSpec{rateRule("A", 1, 1000, 90)})
				require.NoError(t, err)
				return s
			},
			rule:     "WRS005",
			severity: SeverityError,
		},
		{
			name: "invalid metric name",
			build: func(t *testing.T) *stack.Stack {
				s, _, _ := newStack(t)
				_, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeRegional, stack.ActionAllow, nil,
					stack.WithVisibility(stack.Visibility{MetricName: "has space"}))
				require.NoError(t, err)
				return s
			},
			rule:     "WRS006",
			severity: SeverityError,
		},
		{
			name: "block without allow",
			build: func(t *testing.T) *stack.Stack {
				s, _, _ := newStack(t)
				_, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeRegional, stack.ActionBlock, []stack.FirewallRuleSpec{rateRule("A", 1, 1000, 300)})
				require.NoError(t, err)
				return s
			},
			rule:     "WRS007",
			severity: SeverityWarning,
		},
		{
			name: "unprotected api",
			build: func(t *testing.T) *stack.Stack {
				s, _, _ := newStack(t)
				return s
			},
			rule:     "WRS008",
			severity: SeverityWarning,
		},
		{
			name: "api without routes",
			build: func(t *testing.T) *stack.Stack {
				s := stack.New("WafRestStack", "us-east-1")
				_, err := s.DefineApi("RestApi", "DemoRestApi", "dev")
				require.NoError(t, err)
				return s
			},
			rule:     "WRS009",
			severity: SeverityError,
		},
		{
			name: "duplicate rule name",
			build: func(t *testing.T) *stack.Stack {
				s, _, _ := newStack(t)
				_, err := s.DefineFirewallPolicy("WebAcl", "acl", stack.ScopeRegional, stack.ActionAllow, []stack.FirewallRuleSpec{
					rateRule("Rate", 1, 1000, 300), rateRule("rate", 2, 1000, 300),
				})
				require.NoError(t, err)
				return s
			},
			rule:     "WRS010",
			severity: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LintStack(tt.build(t), Options{})

			var found *Issue
			for i := range result.Issues {
				if result.Issues[i].Rule == tt.rule {
					found = &result.Issues[i]
					break
				}
			}
			require.NotNil(t, found, "expected %s in %v", tt.rule, rulesFired(result))
			assert.Equal(t, tt.severity, found.Severity)
			assert.NotEmpty(t, found.Resource)
			assert.NotEmpty(t, found.Message)

			if tt.severity == SeverityError {
				assert.False(t, result.Success)
			}
		})
	}
}

func TestLintStack_WarningsDoNotFail(t *testing.T) {
	s, _, _ := newStack(t)

	result := LintStack(s, Options{})
	assert.True(t, result.Success)
	assert.Equal(t, map[string]int{"WRS008": 1}, rulesFired(result))
}

func TestLintStack_Options(t *testing.T) {
	s, _, _ := newStack(t)

	result := LintStack(s, Options{DisabledRules: []string{"WRS008"}})
	assert.Empty(t, result.Issues)

	result = LintStack(s, Options{EnabledRules: []string{"WRS001"}})
	assert.Empty(t, result.Issues)

	result = LintStack(s, Options{EnabledRules: []string{"WRS008"}})
	assert.Len(t, result.Issues, 1)
}

func TestAllRules_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range AllRules() {
		assert.False(t, seen[r.ID()], "duplicate rule ID %s", r.ID())
		assert.NotEmpty(t, r.Description())
		seen[r.ID()] = true
	}
	assert.Len(t, seen, 10)
}
