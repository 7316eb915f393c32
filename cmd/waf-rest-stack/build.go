package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
	"github.com/lex00/waf-rest-stack-go/internal/template"
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build assembles the stack and writes its CloudFormation template.

Examples:
    waf-rest-stack build
    waf-rest-stack build -o template.json
    waf-rest-stack build --format yaml --stage prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.loadStack()
			if err != nil {
				return err
			}
			return runBuild(cmd.OutOrStdout(), s, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(w io.Writer, s *stack.Stack, format, outputFile string) error {
	tmpl, err := s.Synth()
	if err != nil {
		return outputResult(w, wafrest.BuildResult{
			Success: false,
			Errors:  []string{err.Error()},
		}, format, outputFile)
	}

	resources, err := s.Resources()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		names = append(names, r.Name)
	}

	return outputResult(w, wafrest.BuildResult{
		Success:   true,
		Template:  *tmpl,
		Resources: names,
	}, format, outputFile)
}

func outputResult(w io.Writer, result wafrest.BuildResult, format, outputFile string) error {
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("build failed")
	}

	data, err := encodeTemplate(&result.Template, format)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Fprintln(w, string(data))
		return nil
	}

	return os.WriteFile(outputFile, data, 0644)
}

func encodeTemplate(t *wafrest.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(t)
	case "yaml":
		return template.ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}
