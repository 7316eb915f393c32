// Package infra defines the WAF-protected REST API stack.
package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/lex00/waf-rest-stack-go/internal/config"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

// Source returns the inline handler source answering every request with
// status 200 and message.
func Source(message string) string {
	return fmt.Sprintf(`exports.handler = async () => {
  return { statusCode: 200, body: %q };
};
`, message)
}

// New assembles the stack described by cfg:
// handler, API and route, firewall policy, association, URL output.
func New(cfg config.Config) (*stack.Stack, error) {
	s := stack.New(cfg.StackName, cfg.Region)
	s.SetDescription(cfg.Description)

	source := Source(cfg.Handler.Message)
	if cfg.Handler.SourceFile != "" {
		data, err := os.ReadFile(cfg.Handler.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("reading handler source: %w", err)
		}
		source = string(data)
	}

	fn, err := s.DefineHandler(cfg.Handler.ID, cfg.Handler.Runtime, cfg.Handler.EntryPoint, source)
	if err != nil {
		return nil, err
	}

	api, err := s.DefineApi(cfg.Api.ID, cfg.Api.Name, cfg.Api.Stage)
	if err != nil {
		return nil, err
	}
	if _, err := s.AddRoute(api, cfg.Api.Path, cfg.Api.Method, fn); err != nil {
		return nil, err
	}

	acl, err := s.DefineFirewallPolicy(
		cfg.Firewall.ID,
		cfg.Firewall.Name,
		stack.Scope(strings.ToUpper(cfg.Firewall.Scope)),
		stack.Action(strings.ToUpper(cfg.Firewall.DefaultAction)),
		Rules(cfg.Firewall),
	)
	if err != nil {
		return nil, err
	}

	if _, err := s.Associate(cfg.Firewall.Association, api, api.Stage, acl); err != nil {
		return nil, err
	}

	var opts []stack.OutputOption
	if cfg.Output.ExportName != "" {
		opts = append(opts, stack.WithExportName(cfg.Output.ExportName))
	}
	if _, err := s.DeclareOutput(cfg.Output.Name, api.URL(), opts...); err != nil {
		return nil, err
	}

	logging.Debug("assembled stack", "stack", cfg.StackName, "region", cfg.Region, "rules", len(acl.Rules))
	return s, nil
}

// Rules returns the firewall rules enabled in cfg, rate limit first.
func Rules(cfg config.FirewallConfig) []stack.FirewallRuleSpec {
	var rules []stack.FirewallRuleSpec

	if rl := cfg.RateLimit; rl.Enabled {
		rules = append(rules, stack.FirewallRuleSpec{
			Name:     rl.Name,
			Priority: rl.Priority,
			Action:   stack.Action(strings.ToUpper(rl.Action)),
			RateLimit: &stack.RateLimit{
				Limit:         rl.Limit,
				WindowSeconds: rl.WindowSeconds,
				AggregateKey:  rl.AggregateKey,
			},
		})
	}

	for _, g := range cfg.ManagedGroups {
		rule := stack.FirewallRuleSpec{
			Name:     g.Vendor + "-" + g.Name,
			Priority: g.Priority,
			ManagedGroup: &stack.ManagedRuleGroup{
				Vendor:  g.Vendor,
				Name:    g.Name,
				Version: g.Version,
			},
		}
		if g.CountOnly {
			rule.Action = stack.ActionCount
		}
		rules = append(rules, rule)
	}

	return rules
}
