// Package openapi exports the routes of an API as a Swagger 2.0 document
// carrying API Gateway integration extensions. The document can be imported
// with `aws apigateway put-rest-api` or used as a RestApi Body.
package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	swg "github.com/go-openapi/spec"

	"github.com/lex00/waf-rest-stack-go/internal/logging"
	"github.com/lex00/waf-rest-stack-go/internal/resolve"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

// Vendor extension keys understood by API Gateway.
const (
	IntegrationExtension = "x-amazon-apigateway-integration"
	AnyMethodExtension   = "x-amazon-apigateway-any-method"
)

// Integration is the x-amazon-apigateway-integration object of a Lambda
// proxy route. URI is a string once resolved, otherwise the intrinsic.
type Integration struct {
	URI                 any    `json:"uri"`
	IntegrationType     string `json:"type"`
	HTTPMethod          string `json:"httpMethod"`
	PassthroughBehavior string `json:"passthroughBehavior"`
}

// Options configures Export.
type Options struct {
	// Env resolves integration URIs and the host. Nil keeps intrinsics.
	Env *resolve.Env
	// Version is the info.version of the document.
	Version string
}

// Export builds the Swagger document for api.
func Export(api *stack.ApiSpec, opts Options) (*swg.Swagger, error) {
	if api == nil {
		return nil, fmt.Errorf("openapi: api is required")
	}
	version := opts.Version
	if version == "" {
		version = "1.0"
	}

	doc := &swg.Swagger{
		SwaggerProps: swg.SwaggerProps{
			Swagger:  "2.0",
			BasePath: "/" + api.Stage.Name,
			Schemes:  []string{"https"},
			Info: &swg.Info{
				InfoProps: swg.InfoProps{
					Title:   api.Name,
					Version: version,
				},
			},
			Paths: &swg.Paths{Paths: map[string]swg.PathItem{}},
		},
	}

	if opts.Env != nil {
		host, err := resolve.Resolve(api.URL(), *opts.Env)
		if err != nil {
			return nil, fmt.Errorf("openapi: resolving url: %w", err)
		}
		doc.Host = hostOf(host)
	}

	routes := append([]*stack.RouteSpec(nil), api.Routes...)
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	for _, route := range routes {
		item := doc.Paths.Paths[route.Path]

		op, err := operation(route, opts.Env)
		if err != nil {
			return nil, err
		}
		if err := setOperation(&item, route.Method, op); err != nil {
			return nil, fmt.Errorf("openapi: route %s %s: %w", route.Method, route.Path, err)
		}
		doc.Paths.Paths[route.Path] = item

		logging.Debug("exported route", "api", api.LogicalID, "method", route.Method, "path", route.Path)
	}

	return doc, nil
}

// Render exports api and encodes it as indented JSON.
func Render(api *stack.ApiSpec, opts Options) ([]byte, error) {
	doc, err := Export(api, opts)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: encoding: %w", err)
	}
	return data, nil
}

func operation(route *stack.RouteSpec, env *resolve.Env) (*swg.Operation, error) {
	var uri any = route.IntegrationURI()
	if env != nil {
		resolved, err := resolve.Resolve(uri, *env)
		if err != nil {
			return nil, fmt.Errorf("openapi: route %s %s: %w", route.Method, route.Path, err)
		}
		uri = resolved
	}

	op := swg.NewOperation(route.LogicalID)
	op.Summary = "Invokes " + route.Handler.ID
	op.Produces = []string{"text/plain"}
	op.RespondsWith(http.StatusOK, swg.NewResponse().WithDescription("handler response"))
	op.VendorExtensible.AddExtension(IntegrationExtension, Integration{
		URI:                 uri,
		IntegrationType:     "aws_proxy",
		HTTPMethod:          http.MethodPost,
		PassthroughBehavior: "when_no_match",
	})
	return op, nil
}

func setOperation(item *swg.PathItem, method string, op *swg.Operation) error {
	switch method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPut:
		item.Put = op
	case http.MethodPost:
		item.Post = op
	case http.MethodDelete:
		item.Delete = op
	case http.MethodOptions:
		item.Options = op
	case http.MethodHead:
		item.Head = op
	case http.MethodPatch:
		item.Patch = op
	case "ANY":
		item.VendorExtensible.AddExtension(AnyMethodExtension, op)
	default:
		return fmt.Errorf("unsupported method %q", method)
	}
	return nil
}

// hostOf strips the scheme and base path from an invocation URL.
func hostOf(url string) string {
	host := strings.TrimPrefix(url, "https://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return host
}
