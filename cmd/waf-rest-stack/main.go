// Command waf-rest-stack synthesizes and deploys a REST API fronted by a
// WAFv2 web ACL.
//
// Usage:
//
//	waf-rest-stack build              Generate CloudFormation template
//	waf-rest-stack lint               Check the stack for issues
//	waf-rest-stack deploy             Create or update the stack
//	waf-rest-stack version            Show version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lex00/waf-rest-stack-go/infra"
	"github.com/lex00/waf-rest-stack-go/internal/config"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	region     string
	stage      string
	logLevel   string
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}
	if o.region != "" {
		cfg.Region = o.region
	}
	if o.stage != "" {
		cfg.Api.Stage = o.stage
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadStack assembles the stack described by the configuration.
func (o *globalOptions) loadStack() (*stack.Stack, config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	s, err := infra.New(cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("assembling stack: %w", err)
	}
	return s, cfg, nil
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "waf-rest-stack",
		Short: "Synthesize and deploy a WAF-protected REST API",
		Long: `waf-rest-stack assembles a Lambda handler behind an API Gateway REST API,
protects the API stage with a WAFv2 web ACL and synthesizes the result to a
CloudFormation template.

    waf-rest-stack build -o template.json
    waf-rest-stack deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(opts.logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Stack configuration file (YAML)")
	flags.StringVar(&opts.region, "region", "", "AWS region (overrides config)")
	flags.StringVar(&opts.stage, "stage", "", "API stage name (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newValidateCmd(opts),
		newListCmd(opts),
		newLintCmd(opts),
		newGraphCmd(opts),
		newDiffCmd(opts),
		newOpenAPICmd(opts),
		newDeployCmd(opts),
		newOutputsCmd(opts),
		newVerifyCmd(opts),
		newDestroyCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "waf-rest-stack %s\n", getVersion())
		},
	}
}
