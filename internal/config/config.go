// Package config loads the stack configuration from YAML.
//
// Every field has a default matching the reference deployment, so an empty
// or missing file yields a complete configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full stack configuration.
type Config struct {
	StackName   string         `yaml:"stack_name"`
	Region      string         `yaml:"region"`
	Description string         `yaml:"description"`
	Handler     HandlerConfig  `yaml:"handler"`
	Api         ApiConfig      `yaml:"api"`
	Firewall    FirewallConfig `yaml:"firewall"`
	Output      OutputConfig   `yaml:"output"`
	Deploy      DeployConfig   `yaml:"deploy"`
}

// HandlerConfig describes the Lambda handler.
type HandlerConfig struct {
	ID         string `yaml:"id"`
	Runtime    string `yaml:"runtime"`
	EntryPoint string `yaml:"entry_point"`
	// Message is the body returned by the inline handler.
	Message string `yaml:"message"`
	// SourceFile replaces the generated inline source when set.
	SourceFile string `yaml:"source_file"`
}

// ApiConfig describes the REST API and its single route.
type ApiConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Stage  string `yaml:"stage"`
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
}

// FirewallConfig describes the web ACL.
type FirewallConfig struct {
	ID            string                   `yaml:"id"`
	Name          string                   `yaml:"name"`
	Scope         string                   `yaml:"scope"`
	DefaultAction string                   `yaml:"default_action"`
	RateLimit     RateLimitConfig          `yaml:"rate_limit"`
	ManagedGroups []ManagedRuleGroupConfig `yaml:"managed_rule_groups"`
	Association   string                   `yaml:"association_id"`
}

// RateLimitConfig describes the rate-based rule.
type RateLimitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Name          string `yaml:"name"`
	Priority      int    `yaml:"priority"`
	Action        string `yaml:"action"`
	Limit         int    `yaml:"limit"`
	WindowSeconds int    `yaml:"window_seconds"`
	AggregateKey  string `yaml:"aggregate_key"`
}

// ManagedRuleGroupConfig references a vendor rule group.
type ManagedRuleGroupConfig struct {
	Name     string `yaml:"name"`
	Vendor   string `yaml:"vendor"`
	Version  string `yaml:"version"`
	Priority int    `yaml:"priority"`
	// CountOnly overrides the group's actions with COUNT.
	CountOnly bool `yaml:"count_only"`
}

// OutputConfig names the URL output.
type OutputConfig struct {
	Name       string `yaml:"name"`
	ExportName string `yaml:"export_name"`
}

// DeployConfig controls the CloudFormation handoff.
type DeployConfig struct {
	// TemplateBucket uploads the template to S3 before deploying when set.
	TemplateBucket string            `yaml:"template_bucket"`
	TemplatePrefix string            `yaml:"template_prefix"`
	Timeout        time.Duration     `yaml:"timeout"`
	Tags           map[string]string `yaml:"tags"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		StackName:   "WafRestStack",
		Region:      "us-east-1",
		Description: "REST API with Lambda handler protected by a WAFv2 rate limit",
		Handler: HandlerConfig{
			ID:         "HelloFunction",
			Runtime:    "nodejs18.x",
			EntryPoint: "index.handler",
			Message:    "Hello from REST API + WAF!",
		},
		Api: ApiConfig{
			ID:     "RestApi",
			Name:   "DemoRestApi",
			Stage:  "dev",
			Path:   "hello",
			Method: "GET",
		},
		Firewall: FirewallConfig{
			ID:            "WebAcl",
			Name:          "RestApiWebAcl",
			Scope:         "REGIONAL",
			DefaultAction: "ALLOW",
			RateLimit: RateLimitConfig{
				Enabled:       true,
				Name:          "RateLimitRule",
				Priority:      1,
				Action:        "BLOCK",
				Limit:         1000,
				WindowSeconds: 300,
				AggregateKey:  "IP",
			},
			Association: "WebAclAssociation",
		},
		Output: OutputConfig{
			Name: "RestApiUrl",
		},
		Deploy: DeployConfig{
			TemplatePrefix: "templates/",
			Timeout:        30 * time.Minute,
		},
	}
}

// Load reads path over the defaults. A missing file is an error; an empty
// file yields Default(). A relative handler.source_file is taken relative to
// the directory of path.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if src := cfg.Handler.SourceFile; src != "" && !filepath.IsAbs(src) {
		cfg.Handler.SourceFile = filepath.Join(filepath.Dir(path), src)
	}
	return cfg, nil
}

var (
	stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)
	stageNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !stackNamePattern.MatchString(c.StackName) {
		add("stack_name %q must start with a letter and contain only letters, digits and hyphens", c.StackName)
	}
	if c.Region == "" {
		add("region is required")
	}
	if c.Handler.ID == "" || c.Handler.Runtime == "" || c.Handler.EntryPoint == "" {
		add("handler id, runtime and entry_point are required")
	}
	if c.Api.ID == "" {
		add("api.id is required")
	}
	if !stageNamePattern.MatchString(c.Api.Stage) {
		add("api.stage %q must be 1-128 letters, digits, hyphens or underscores", c.Api.Stage)
	}
	if c.Api.Method == "" {
		add("api.method is required")
	}
	if c.Firewall.ID == "" {
		add("firewall.id is required")
	}
	switch strings.ToUpper(c.Firewall.DefaultAction) {
	case "ALLOW", "BLOCK":
	default:
		add("firewall.default_action must be ALLOW or BLOCK, got %q", c.Firewall.DefaultAction)
	}
	switch strings.ToUpper(c.Firewall.Scope) {
	case "REGIONAL", "CLOUDFRONT":
	default:
		add("firewall.scope must be REGIONAL or CLOUDFRONT, got %q", c.Firewall.Scope)
	}
	if c.Firewall.RateLimit.Enabled {
		switch strings.ToUpper(c.Firewall.RateLimit.Action) {
		case "ALLOW", "BLOCK", "COUNT":
		default:
			add("firewall.rate_limit.action must be ALLOW, BLOCK or COUNT, got %q", c.Firewall.RateLimit.Action)
		}
		if c.Firewall.RateLimit.Name == "" {
			add("firewall.rate_limit.name is required")
		}
		if c.Firewall.RateLimit.Limit <= 0 {
			add("firewall.rate_limit.limit must be positive")
		}
	}
	for i, g := range c.Firewall.ManagedGroups {
		if g.Name == "" || g.Vendor == "" {
			add("firewall.managed_rule_groups[%d]: name and vendor are required", i)
		}
	}
	if c.Output.Name == "" {
		add("output.name is required")
	}
	if c.Deploy.Timeout < 0 {
		add("deploy.timeout must not be negative")
	}

	return errors.Join(errs...)
}
