package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/waf-rest-stack-go/internal/config"
	"github.com/lex00/waf-rest-stack-go/internal/resolve"
	"github.com/lex00/waf-rest-stack-go/internal/template"
)

func TestNew_Default(t *testing.T) {
	s, err := New(config.Default())
	require.NoError(t, err)

	assert.Equal(t, "WafRestStack", s.Name())
	assert.Equal(t, "us-east-1", s.Region())

	apis := s.Apis()
	require.Len(t, apis, 1)
	api := apis[0]
	assert.Equal(t, "DemoRestApi", api.Name)
	assert.Equal(t, "dev", api.Stage.Name)
	require.Len(t, api.Routes, 1)
	assert.Equal(t, "/hello", api.Routes[0].Path)
	assert.Equal(t, "GET", api.Routes[0].Method)
	assert.Same(t, s.Handlers()[0], api.Routes[0].Handler)
}

func TestNew_SingleRateRule(t *testing.T) {
	s, err := New(config.Default())
	require.NoError(t, err)

	policies := s.Policies()
	require.Len(t, policies, 1)
	acl := policies[0]
	assert.Equal(t, "RestApiWebAcl", acl.Name)
	assert.EqualValues(t, "REGIONAL", acl.Scope)
	assert.EqualValues(t, "ALLOW", acl.DefaultAction)

	require.Len(t, acl.Rules, 1)
	rule := acl.Rules[0]
	assert.Equal(t, 1, rule.Priority)
	assert.EqualValues(t, "BLOCK", rule.Action)
	require.NotNil(t, rule.RateLimit)
	assert.Equal(t, 1000, rule.RateLimit.Limit)
	assert.Equal(t, 300, rule.RateLimit.WindowSeconds)
	assert.Equal(t, "IP", rule.RateLimit.AggregateKey)
}

func TestNew_AssociationAndURL(t *testing.T) {
	s, err := New(config.Default())
	require.NoError(t, err)

	tmpl, err := s.Synth()
	require.NoError(t, err)

	api := s.Apis()[0]
	env := resolve.NewEnv("us-east-1", "123456789012", "WafRestStack")
	env.SetRef(api.LogicalID, "a1b2c3d4e5")
	env.SetRef(api.Stage.LogicalID, "dev")

	assoc := tmpl.Resources["WebAclAssociation"]
	arn, err := resolve.Resolve(assoc.Properties["ResourceArn"], env)
	require.NoError(t, err)
	assert.Contains(t, arn, "/restapis/a1b2c3d4e5/")
	assert.Contains(t, arn, "/stages/dev")

	url, err := resolve.Resolve(tmpl.Outputs["RestApiUrl"].Value, env)
	require.NoError(t, err)
	assert.Equal(t, "https://a1b2c3d4e5.execute-api.us-east-1.amazonaws.com/dev/", url)
}

func TestNew_Idempotent(t *testing.T) {
	render := func() string {
		s, err := New(config.Default())
		require.NoError(t, err)
		tmpl, err := s.Synth()
		require.NoError(t, err)
		data, err := template.ToJSON(tmpl)
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, render(), render())
}

func TestNew_RateLimitDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Firewall.RateLimit.Enabled = false

	s, err := New(cfg)
	require.NoError(t, err)

	acl := s.Policies()[0]
	assert.Empty(t, acl.Rules)
	assert.EqualValues(t, "ALLOW", acl.DefaultAction)

	tmpl, err := s.Synth()
	require.NoError(t, err)
	props := tmpl.Resources["WebAcl"].Properties
	assert.NotContains(t, props, "Rules")
	assert.Equal(t, map[string]any{"Allow": map[string]any{}}, props["DefaultAction"])
}

func TestNew_EmptyStageRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Api.Stage = ""

	_, err := New(cfg)
	require.Error(t, err)
}

func TestNew_SourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.js")
	require.NoError(t, os.WriteFile(path, []byte("exports.handler = async () => ({ statusCode: 204 });"), 0o644))

	cfg := config.Default()
	cfg.Handler.SourceFile = path

	s, err := New(cfg)
	require.NoError(t, err)
	assert.Contains(t, s.Handlers()[0].Source, "204")

	cfg.Handler.SourceFile = filepath.Join(t.TempDir(), "missing.js")
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRules_ManagedGroups(t *testing.T) {
	cfg := config.Default().Firewall
	cfg.ManagedGroups = []config.ManagedRuleGroupConfig{
		{Name: "AWSManagedRulesCommonRuleSet", Vendor: "AWS", Priority: 2, CountOnly: true},
	}

	rules := Rules(cfg)
	require.Len(t, rules, 2)
	assert.Equal(t, "AWS-AWSManagedRulesCommonRuleSet", rules[1].Name)
	assert.EqualValues(t, "COUNT", rules[1].Action)
	assert.Equal(t, 2, rules[1].Priority)
}

func TestSource(t *testing.T) {
	src := Source("Hello from REST API + WAF!")
	assert.Contains(t, src, `body: "Hello from REST API + WAF!"`)
	assert.Contains(t, src, "statusCode: 200")
}
