// Package stack assembles the resource graph of a WAF-protected REST API.
//
// Construction is a single linear pass:
//
//	s := stack.New("WafRestStack", "us-east-1")
//	fn, _ := s.DefineHandler("HelloFunction", "nodejs18.x", "index.handler", src)
//	api, _ := s.DefineApi("RestApi", "DemoRestApi", "dev")
//	_, _ = s.AddRoute(api, "hello", "GET", fn)
//	acl, _ := s.DefineFirewallPolicy("WebAcl", "RestApiWebAcl", stack.ScopeRegional, stack.ActionAllow, rules)
//	_, _ = s.Associate("WebAclAssociation", api, api.Stage, acl)
//	_, _ = s.DeclareOutput("RestApiUrl", api.URL())
//	tmpl, err := s.Synth()
//
// Specs are immutable once returned. Synth may be called any number of times
// and yields the same template for the same construction sequence.
package stack

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/serialize"
	"github.com/lex00/waf-rest-stack-go/internal/template"
)

// ErrForeignSpec is returned when a spec from another stack is passed in.
var ErrForeignSpec = errors.New("spec belongs to a different stack")

// Stack collects resource definitions and synthesizes them into a template.
type Stack struct {
	name        string
	region      string
	description string

	taken     map[string]bool
	order     []string
	resources map[string]*node

	handlers     []*HandlerSpec
	apis         []*ApiSpec
	policies     []*FirewallPolicySpec
	associations []*AssociationSpec
	outputs      []*OutputSpec
}

// node is one emitted CloudFormation resource.
type node struct {
	logicalID string
	path      string
	value     wafrest.Resource
	dependsOn []string
}

// New creates an empty stack deployed to region.
func New(name, region string) *Stack {
	return &Stack{
		name:      name,
		region:    region,
		taken:     make(map[string]bool),
		resources: make(map[string]*node),
	}
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// Region returns the region fixed at construction.
func (s *Stack) Region() string { return s.region }

// SetDescription sets the template description.
func (s *Stack) SetDescription(description string) { s.description = description }

// Handlers returns the defined handlers in definition order.
func (s *Stack) Handlers() []*HandlerSpec { return append([]*HandlerSpec(nil), s.handlers...) }

// Apis returns the defined APIs in definition order.
func (s *Stack) Apis() []*ApiSpec { return append([]*ApiSpec(nil), s.apis...) }

// Policies returns the defined firewall policies in definition order.
func (s *Stack) Policies() []*FirewallPolicySpec {
	return append([]*FirewallPolicySpec(nil), s.policies...)
}

// Associations returns the defined associations in definition order.
func (s *Stack) Associations() []*AssociationSpec {
	return append([]*AssociationSpec(nil), s.associations...)
}

// Outputs returns the declared outputs in declaration order.
func (s *Stack) Outputs() []*OutputSpec { return append([]*OutputSpec(nil), s.outputs...) }

// allocate reserves a logical ID derived from base, appending a numeric
// suffix on collision.
func (s *Stack) allocate(base string) (string, error) {
	id := LogicalID(base)
	if id == "" {
		return "", fmt.Errorf("identifier %q has no alphanumeric characters", base)
	}
	candidate := id
	for i := 2; s.taken[candidate]; i++ {
		candidate = id + strconv.Itoa(i)
	}
	s.taken[candidate] = true
	return candidate, nil
}

// peek returns the ID allocate would return without reserving it.
func (s *Stack) peek(base string) string {
	id := LogicalID(base)
	candidate := id
	for i := 2; s.taken[candidate]; i++ {
		candidate = id + strconv.Itoa(i)
	}
	return candidate
}

// add registers a resource under an already allocated logical ID.
func (s *Stack) add(logicalID, path string, value wafrest.Resource, dependsOn ...string) {
	s.order = append(s.order, logicalID)
	s.resources[logicalID] = &node{
		logicalID: logicalID,
		path:      s.name + "/" + path,
		value:     value,
		dependsOn: dependsOn,
	}
}

// LogicalID strips everything but letters and digits from id.
func LogicalID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// nodes returns every resource including those derived at synthesis time,
// in emission order.
func (s *Stack) nodes() []*node {
	out := make([]*node, 0, len(s.order)+2*len(s.apis))
	for _, id := range s.order {
		out = append(out, s.resources[id])
	}
	for _, api := range s.apis {
		out = append(out, s.deploymentNodes(api)...)
	}
	return out
}

// Resources returns the assembled resource graph.
func (s *Stack) Resources() ([]wafrest.DiscoveredResource, error) {
	nodes := s.nodes()
	out := make([]wafrest.DiscoveredResource, 0, len(nodes))
	for _, n := range nodes {
		res, err := discover(n)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func discover(n *node) (wafrest.DiscoveredResource, error) {
	props, err := serialize.Properties(n.value)
	if err != nil {
		return wafrest.DiscoveredResource{}, fmt.Errorf("serializing %s: %w", n.logicalID, err)
	}

	res := wafrest.DiscoveredResource{
		Name: n.logicalID,
		Type: n.value.ResourceType(),
		Path: n.path,
	}

	deps := map[string]bool{}
	for _, d := range n.dependsOn {
		deps[d] = true
	}
	for _, ref := range serialize.References(props) {
		if ref.IsPseudo() {
			continue
		}
		deps[ref.Target] = true
		if ref.Attribute != "" {
			res.AttrRefUsages = append(res.AttrRefUsages, wafrest.AttrRefUsage{
				ResourceName: ref.Target,
				Attribute:    ref.Attribute,
				FieldPath:    ref.Path,
			})
		}
	}
	for d := range deps {
		res.Dependencies = append(res.Dependencies, d)
	}
	sort.Strings(res.Dependencies)
	return res, nil
}

// Synth builds the CloudFormation template for the stack.
func (s *Stack) Synth() (*wafrest.Template, error) {
	nodes := s.nodes()

	discovered := make(map[string]wafrest.DiscoveredResource, len(nodes))
	for _, n := range nodes {
		res, err := discover(n)
		if err != nil {
			return nil, err
		}
		discovered[n.logicalID] = res
	}

	builder := template.NewBuilder(discovered)
	builder.SetDescription(s.description)
	for _, n := range nodes {
		builder.SetValue(n.logicalID, n.value)
		if len(n.dependsOn) > 0 {
			builder.SetDependsOn(n.logicalID, n.dependsOn...)
		}
	}
	for _, out := range s.outputs {
		builder.AddOutput(out.Name, out.output())
	}

	tmpl, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("synthesizing %s: %w", s.name, err)
	}
	return tmpl, nil
}
