package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the resources of the stack",
		Long: `List displays every CloudFormation resource the stack emits, with the
construct path that produced it.

Examples:
    waf-rest-stack list
    waf-rest-stack list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.loadStack()
			if err != nil {
				return err
			}
			return runList(cmd.OutOrStdout(), s, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(w io.Writer, s *stack.Stack, format string) error {
	resources, err := s.Resources()
	if err != nil {
		return fmt.Errorf("listing resources: %w", err)
	}

	listResult := wafrest.ListResult{
		Resources: make([]wafrest.ListResource, 0, len(resources)),
	}
	for _, res := range resources {
		listResult.Resources = append(listResult.Resources, wafrest.ListResource{
			Name: res.Name,
			Type: res.Type,
			Path: res.Path,
		})
	}

	sort.Slice(listResult.Resources, func(i, j int) bool {
		return listResult.Resources[i].Name < listResult.Resources[j].Name
	})

	return outputListResult(w, listResult, format)
}

func outputListResult(w io.Writer, result wafrest.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Stack resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s (%s)\n", res.Name, res.Type, res.Path)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
