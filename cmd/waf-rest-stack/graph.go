package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/waf-rest-stack-go/internal/graph"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

func newGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.
GetAtt references are drawn in blue.

The output can be rendered with Graphviz:
    waf-rest-stack graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    waf-rest-stack graph -f mermaid

Examples:
    waf-rest-stack graph
    waf-rest-stack graph -c              # cluster by service
    waf-rest-stack graph -f mermaid      # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.loadStack()
			if err != nil {
				return err
			}
			return runGraph(cmd.OutOrStdout(), s, outputFormat, clusterByType)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(w io.Writer, s *stack.Stack, format string, cluster bool) error {
	var f graph.Format
	switch format {
	case "dot":
		f = graph.FormatDOT
	case "mermaid":
		f = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	resources, err := s.Resources()
	if err != nil {
		return fmt.Errorf("collecting resources: %w", err)
	}

	gen := &graph.Generator{Format: f, ClusterByService: cluster}
	return gen.Generate(resources, w)
}
