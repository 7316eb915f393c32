package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/lint"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

func newLintCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		enable       []string
		disable      []string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the stack for issues",
		Long: `Lint checks the assembled stack for conditions CloudFormation or WAFv2
would reject, and for likely mistakes.

Rules:
    WRS001: Duplicate rule priority within a web ACL
    WRS002: Web ACL scope is not REGIONAL for an API Gateway stage
    WRS003: Duplicate route (path, method)
    WRS004: Rate limit outside [10, 2000000000]
    WRS005: Evaluation window not in 60, 120, 300 or 600 seconds
    WRS006: Invalid metric name
    WRS007: Default action BLOCK without any ALLOW rule
    WRS008: API stage without a web ACL
    WRS009: API without routes
    WRS010: Duplicate rule name within a web ACL

Exits with status 2 when error-severity issues are found.

Examples:
    waf-rest-stack lint
    waf-rest-stack lint --format json
    waf-rest-stack lint --disable WRS007`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.loadStack()
			if err != nil {
				return err
			}
			result := runLint(s, lint.Options{EnabledRules: enable, DisabledRules: disable})
			if err := outputLintResult(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				return exitError{code: 2}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Only run these rules")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Skip these rules")

	return cmd
}

func runLint(s *stack.Stack, opts lint.Options) wafrest.LintResult {
	res := lint.LintStack(s, opts)

	result := wafrest.LintResult{Success: res.Success}
	for _, issue := range res.Issues {
		result.Issues = append(result.Issues, wafrest.LintIssue{
			Resource: issue.Resource,
			Severity: issue.Severity.String(),
			Message:  issue.Message,
			Rule:     issue.Rule,
		})
	}
	return result
}

func outputLintResult(w io.Writer, result wafrest.LintResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}

		for _, issue := range result.Issues {
			var b strings.Builder
			if issue.Resource != "" {
				b.WriteString(issue.Resource + ": ")
			}
			fmt.Fprintf(&b, "%s: %s [%s]", issue.Severity, issue.Message, issue.Rule)
			fmt.Fprintln(w, b.String())
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
