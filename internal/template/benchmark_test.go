package template

import (
	"fmt"
	"testing"

	wafrest "github.com/lex00/waf-rest-stack-go"
)

// BenchmarkBuild benchmarks building templates with varying resource counts.
func BenchmarkBuild(b *testing.B) {
	sizes := []int{10, 50, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("resources_%d", size), func(b *testing.B) {
			resources := generateMockResources(size)
			builder := NewBuilder(resources)

			for name, res := range resources {
				props := map[string]any{"PathPart": name}
				if len(res.Dependencies) > 0 {
					props["ParentId"] = map[string]any{"Ref": res.Dependencies[0]}
				}
				builder.SetValue(name, props)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// generateMockResources creates a chain of API resources.
func generateMockResources(count int) map[string]wafrest.DiscoveredResource {
	resources := make(map[string]wafrest.DiscoveredResource, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("RestApiSegment%d", i)
		res := wafrest.DiscoveredResource{Name: name, Type: "AWS::ApiGateway::Resource"}
		if i > 0 {
			res.Dependencies = []string{fmt.Sprintf("RestApiSegment%d", i-1)}
		}
		resources[name] = res
	}
	return resources
}
