// Package graph generates DOT and Mermaid format dependency graphs of an assembled stack.
package graph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"

	wafrest "github.com/lex00/waf-rest-stack-go"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from stack resources.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByService groups resources by AWS service.
	ClusterByService bool
}

// Generate creates a dependency graph and writes it to w.
// Edges point from a resource to the resources it references.
func (g *Generator) Generate(resources []wafrest.DiscoveredResource, w io.Writer) error {
	graph := g.buildGraph(resources)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(resources []wafrest.DiscoveredResource) (string, error) {
	var sb strings.Builder
	if err := g.Generate(resources, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure from resources.
func (g *Generator) buildGraph(resources []wafrest.DiscoveredResource) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	known := make(map[string]bool, len(resources))
	for _, res := range resources {
		known[res.Name] = true
	}

	nodes := make(map[string]dot.Node, len(resources))
	if g.ClusterByService {
		g.addClusteredNodes(graph, resources, nodes)
	} else {
		for _, res := range resources {
			nodes[res.Name] = addNode(graph, res)
		}
	}

	for _, res := range resources {
		getAtt := make(map[string]bool)
		for _, usage := range res.AttrRefUsages {
			getAtt[usage.ResourceName] = true
		}

		for _, dep := range res.Dependencies {
			if !known[dep] {
				continue
			}
			e := graph.Edge(nodes[res.Name], nodes[dep])
			// GetAtt references are blue, Ref and DependsOn are default.
			if getAtt[dep] {
				e.Attr("color", "blue")
			}
		}
	}

	return graph
}

func addNode(graph *dot.Graph, res wafrest.DiscoveredResource) dot.Node {
	n := graph.Node(res.Name)
	n.Label(res.Name + "\\n[" + res.Type + "]")
	return n
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources []wafrest.DiscoveredResource, nodes map[string]dot.Node) {
	var services []string
	byService := make(map[string][]wafrest.DiscoveredResource)
	for _, res := range resources {
		service := Service(res.Type)
		if _, ok := byService[service]; !ok {
			services = append(services, service)
		}
		byService[service] = append(byService[service], res)
	}

	for _, service := range services {
		members := byService[service]
		if len(members) == 1 {
			nodes[members[0].Name] = addNode(graph, members[0])
			continue
		}

		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, res := range members {
			nodes[res.Name] = addNode(cluster, res)
		}
	}
}

// Service extracts the service from a CloudFormation type.
// e.g., "AWS::WAFv2::WebACL" -> "WAFv2"
func Service(cfnType string) string {
	parts := strings.Split(cfnType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
