package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/differ"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff [template1] [template2]",
		Short: "Compare CloudFormation templates",
		Long: `Diff compares two templates semantically, resources and outputs.

With no arguments the synthesized template is compared with the deployed
one. With one argument the file is compared with the synthesized template.

Examples:
    waf-rest-stack diff
    waf-rest-stack diff old.json
    waf-rest-stack diff old.json new.yaml --format json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, after, err := diffInputs(cmd.Context(), opts, args)
			if err != nil {
				return err
			}
			result, err := differ.Compare(before, after, differ.Options{IgnoreOrder: ignoreOrder})
			if err != nil {
				return err
			}
			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")

	return cmd
}

// diffInputs returns the old and new templates for args.
func diffInputs(ctx context.Context, opts *globalOptions, args []string) (*wafrest.Template, *wafrest.Template, error) {
	if len(args) == 2 {
		before, err := differ.LoadTemplate(args[0])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", args[0], err)
		}
		after, err := differ.LoadTemplate(args[1])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", args[1], err)
		}
		return before, after, nil
	}

	s, cfg, err := opts.loadStack()
	if err != nil {
		return nil, nil, err
	}
	after, err := s.Synth()
	if err != nil {
		return nil, nil, err
	}

	if len(args) == 1 {
		before, err := differ.LoadTemplate(args[0])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s: %w", args[0], err)
		}
		return before, after, nil
	}

	d, err := newDeployer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	before, err := d.DeployedTemplate(ctx)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(wafrest.DiffResult{
			Success: true,
			Diff:    result.Diff,
			Summary: result.Summary,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Summary.Total == 0 {
			fmt.Fprintln(w, "No differences found.")
			return nil
		}

		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, change := range e.Changes {
				fmt.Fprintf(w, "    %s\n", change)
			}
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
