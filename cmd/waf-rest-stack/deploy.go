package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lex00/waf-rest-stack-go/internal/config"
	"github.com/lex00/waf-rest-stack-go/internal/deploy"
	"github.com/lex00/waf-rest-stack-go/internal/lint"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
)

// newDeployer builds a Deployer for cfg with the default AWS credentials.
func newDeployer(ctx context.Context, cfg config.Config) (*deploy.Deployer, error) {
	clients, err := deploy.NewClients(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return deploy.New(clients, deployOptions(cfg)), nil
}

func deployOptions(cfg config.Config) deploy.Options {
	return deploy.Options{
		StackName:      cfg.StackName,
		Region:         cfg.Region,
		TemplateBucket: cfg.Deploy.TemplateBucket,
		TemplatePrefix: cfg.Deploy.TemplatePrefix,
		Timeout:        cfg.Deploy.Timeout,
		Tags:           cfg.Deploy.Tags,
	}
}

func newDeployCmd(opts *globalOptions) *cobra.Command {
	var skipLint bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the stack",
		Long: `Deploy synthesizes the template and hands it to CloudFormation, creating the
stack or updating it in place, then prints the stack outputs.

The template is passed inline unless deploy.template_bucket is configured.
Deployment is refused when lint reports errors, unless --skip-lint is given.

Examples:
    waf-rest-stack deploy
    waf-rest-stack deploy --config prod.yaml --stage prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := opts.loadStack()
			if err != nil {
				return err
			}

			if !skipLint {
				if result := runLint(s, lint.Options{}); !result.Success {
					_ = outputLintResult(cmd.ErrOrStderr(), result, "text")
					return fmt.Errorf("lint failed; fix the issues or pass --skip-lint")
				}
			}

			tmpl, err := s.Synth()
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			d, err := newDeployer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			result, err := d.Deploy(cmd.Context(), tmpl)
			if err != nil {
				return err
			}

			logging.Info("deploy finished", "stack", cfg.StackName, "action", string(result.Action))
			return outputOutputs(cmd.OutOrStdout(), result.Outputs, "text")
		},
	}

	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Deploy even when lint reports errors")

	return cmd
}

func newOutputsCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the outputs of the deployed stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			d, err := newDeployer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			outputs, err := d.Outputs(cmd.Context())
			if err != nil {
				return err
			}
			return outputOutputs(cmd.OutOrStdout(), outputs, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputOutputs(w io.Writer, outputs map[string]string, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(outputs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		keys := make([]string, 0, len(outputs))
		for k := range outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s = %s\n", k, outputs[k])
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the deployed stage is protected by the web ACL",
		Long: `Verify resolves the stage ARN of the deployed stack and checks that the
stage exists and that WAFv2 reports the expected web ACL for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := opts.loadStack()
			if err != nil {
				return err
			}
			d, err := newDeployer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			result, err := d.Verify(cmd.Context(), s)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outputFormat == "json" {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(data))
			} else {
				fmt.Fprintf(w, "Stack:   %s\nStage:   %s\nWeb ACL: %s\nURL:     %s\n",
					result.StackName, result.StageArn, result.WebACLArn, result.URL)
				for _, e := range result.Errors {
					fmt.Fprintf(w, "  ERROR: %s\n", e)
				}
			}

			if !result.Success {
				return exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func newDestroyCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete stack %s without --yes", cfg.StackName)
			}
			d, err := newDeployer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := d.Destroy(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted stack %s\n", cfg.StackName)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")

	return cmd
}
