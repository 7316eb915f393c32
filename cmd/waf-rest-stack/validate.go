package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/lint"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
	"github.com/lex00/waf-rest-stack-go/internal/validation"
)

// newValidateCmd creates the "validate" subcommand: stack lint, synthesis
// and cfn-lint in one pass.
func newValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the stack and its template",
		Long: `Validate runs the stack lint rules, synthesizes the template and checks it
with cfn-lint.

Checks performed:
  - Stack lint: error-severity rules fail validation, warnings are reported
  - Build: every reference resolves and the graph is acyclic
  - cfn-lint: the template matches the CloudFormation resource schemas

Examples:
    waf-rest-stack validate
    waf-rest-stack validate --format json --output-dir build/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.loadStack()
			if err != nil {
				return err
			}
			result, err := runValidate(s, outputDir)
			if err != nil {
				return err
			}
			if err := outputValidateResult(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				return exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Keep the synthesized template in this directory")

	return cmd
}

func runValidate(s *stack.Stack, outputDir string) (wafrest.ValidateResult, error) {
	if outputDir == "" {
		dir, err := os.MkdirTemp("", "waf-rest-stack-validate-")
		if err != nil {
			return wafrest.ValidateResult{}, err
		}
		defer os.RemoveAll(dir)
		outputDir = dir
	}

	res, err := validation.ValidateStack(s, outputDir, lint.Options{})
	if err != nil {
		return wafrest.ValidateResult{}, fmt.Errorf("validation failed: %w", err)
	}

	resources, err := s.Resources()
	if err != nil {
		return wafrest.ValidateResult{}, err
	}

	result := wafrest.ValidateResult{
		Success:   res.Passed(),
		Resources: len(resources),
	}

	if !res.LintResult.Passed {
		result.Errors = append(result.Errors, res.LintResult.Issues...)
	} else {
		result.Warnings = append(result.Warnings, res.LintResult.Issues...)
	}
	if !res.BuildResult.Success {
		result.Errors = append(result.Errors, res.BuildResult.Error)
	}
	result.Errors = append(result.Errors, res.CfnLintResult.Errors...)
	result.Warnings = append(result.Warnings, res.CfnLintResult.Warnings...)

	return result, nil
}

func outputValidateResult(w io.Writer, result wafrest.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
