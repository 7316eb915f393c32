package stack

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/intrinsics"
	"github.com/lex00/waf-rest-stack-go/resources/apigateway"
	"github.com/lex00/waf-rest-stack-go/resources/lambda"
)

// ApiSpec is a REST API with one deployment stage.
type ApiSpec struct {
	ID        string
	LogicalID string
	Name      string
	Stage     *StageSpec
	Routes    []*RouteSpec

	segments map[string]string // path -> resource logical ID
	stack    *Stack
}

// StageSpec is the deployment stage of an API.
type StageSpec struct {
	Name      string
	LogicalID string
	Api       *ApiSpec
}

// RouteSpec binds a path and method to a handler.
type RouteSpec struct {
	Path      string
	Method    string
	Handler   *HandlerSpec
	LogicalID string
	Api       *ApiSpec
}

// Ref returns a Ref to the REST API ID.
func (a *ApiSpec) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: a.LogicalID}
}

// RootResourceId returns the GetAtt reference to the "/" resource.
func (a *ApiSpec) RootResourceId() wafrest.AttrRef {
	return wafrest.AttrRef{Resource: a.LogicalID, Attribute: "RootResourceId"}
}

// URL returns the invocation URL of the API's stage.
func (a *ApiSpec) URL() intrinsics.Join {
	return intrinsics.Concat(
		"https://", a.Ref(),
		".execute-api.", a.stack.region, ".", intrinsics.AWS_URL_SUFFIX,
		"/", a.Stage.Ref(), "/",
	)
}

// Ref returns a Ref to the stage, which resolves to the stage name.
func (st *StageSpec) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: st.LogicalID}
}

// DefineApi defines a REST API and its deployment stage.
func (s *Stack) DefineApi(id, name, stageName string) (*ApiSpec, error) {
	if id == "" {
		return nil, errors.New("api id is required")
	}
	if stageName == "" {
		return nil, fmt.Errorf("api %s: stage name is required", id)
	}

	logicalID, err := s.allocate(id)
	if err != nil {
		return nil, fmt.Errorf("api %s: %w", id, err)
	}
	stageID, err := s.allocate(logicalID + "DeploymentStage" + stageName)
	if err != nil {
		return nil, fmt.Errorf("api %s: %w", id, err)
	}
	if name == "" {
		name = id
	}

	api := &ApiSpec{
		ID:        id,
		LogicalID: logicalID,
		Name:      name,
		segments:  make(map[string]string),
		stack:     s,
	}
	api.Stage = &StageSpec{Name: stageName, LogicalID: stageID, Api: api}

	s.add(logicalID, id+"/Resource", apigateway.RestApi{Name: name})

	s.apis = append(s.apis, api)
	return api, nil
}

// AddRoute binds method on pathSegment to handler. Duplicate routes are not
// rejected here; they fail at provisioning time.
func (s *Stack) AddRoute(api *ApiSpec, pathSegment, method string, handler *HandlerSpec) (*RouteSpec, error) {
	if api == nil {
		return nil, errors.New("route: api is required")
	}
	if api.stack != s {
		return nil, fmt.Errorf("route on api %s: %w", api.ID, ErrForeignSpec)
	}
	if handler == nil {
		return nil, fmt.Errorf("route %s %s: handler is required", method, pathSegment)
	}
	if handler.stack != s {
		return nil, fmt.Errorf("route %s %s: handler %s: %w", method, pathSegment, handler.ID, ErrForeignSpec)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, fmt.Errorf("route %s: method is required", pathSegment)
	}

	segments := splitPath(pathSegment)
	resourceID, err := s.ensureResources(api, segments)
	if err != nil {
		return nil, err
	}

	var resourceRef any = api.RootResourceId()
	base := api.LogicalID
	if resourceID != "" {
		resourceRef = intrinsics.Ref{LogicalName: resourceID}
		base = resourceID
	}
	path := "/" + strings.Join(segments, "/")

	methodID, err := s.allocate(base + method)
	if err != nil {
		return nil, err
	}

	s.add(methodID, api.ID+"/Default"+strings.TrimSuffix(path, "/")+"/"+method+"/Resource", apigateway.Method{
		AuthorizationType: "NONE",
		HttpMethod:        method,
		ResourceId:        resourceRef,
		RestApiId:         api.Ref(),
		Integration: &apigateway.Method_Integration{
			IntegrationHttpMethod: "POST",
			Type_:                 "AWS_PROXY",
			Uri:                   integrationURI(s.region, handler),
		},
	})

	for _, grant := range []struct {
		suffix string
		stage  any
	}{
		{"ApiPermission", api.Stage.Ref()},
		{"ApiPermissionTest", "test-invoke-stage"},
	} {
		permID, err := s.allocate(methodID + grant.suffix)
		if err != nil {
			return nil, err
		}
		s.add(permID, api.ID+"/Default"+strings.TrimSuffix(path, "/")+"/"+method+"/"+grant.suffix, lambda.Permission{
			Action:       "lambda:InvokeFunction",
			FunctionName: handler.Arn(),
			Principal:    "apigateway.amazonaws.com",
			SourceArn: intrinsics.Concat(
				"arn:", intrinsics.AWS_PARTITION, ":execute-api:", s.region, ":", intrinsics.AWS_ACCOUNT_ID, ":",
				api.Ref(), "/", grant.stage, "/", permissionMethod(method), permissionPath(path),
			),
		})
	}

	route := &RouteSpec{
		Path:      path,
		Method:    method,
		Handler:   handler,
		LogicalID: methodID,
		Api:       api,
	}
	api.Routes = append(api.Routes, route)
	return route, nil
}

var pathParam = regexp.MustCompile(`\{[^}]+\}`)

// permissionMethod returns the execute-api ARN method for method; ANY
// matches every method.
func permissionMethod(method string) string {
	if method == "ANY" {
		return "*"
	}
	return method
}

// permissionPath replaces {param} and {proxy+} segments with wildcards.
func permissionPath(path string) string {
	return pathParam.ReplaceAllString(path, "*")
}

// IntegrationURI returns the Lambda proxy integration URI of the route.
func (r *RouteSpec) IntegrationURI() intrinsics.Join {
	return integrationURI(r.Api.stack.region, r.Handler)
}

func integrationURI(region string, handler *HandlerSpec) intrinsics.Join {
	return intrinsics.Concat(
		"arn:", intrinsics.AWS_PARTITION, ":apigateway:", region,
		":lambda:path/2015-03-31/functions/", handler.Arn(), "/invocations",
	)
}

// ensureResources emits one ApiGateway::Resource per new path segment and
// returns the logical ID of the innermost one, or "" for the root.
func (s *Stack) ensureResources(api *ApiSpec, segments []string) (string, error) {
	parentID := ""
	for i, seg := range segments {
		full := strings.Join(segments[:i+1], "/")
		if id, ok := api.segments[full]; ok {
			parentID = id
			continue
		}

		id, err := s.allocate(api.LogicalID + strings.Join(segments[:i+1], ""))
		if err != nil {
			return "", fmt.Errorf("route segment %q: %w", seg, err)
		}

		var parent any = api.RootResourceId()
		if parentID != "" {
			parent = intrinsics.Ref{LogicalName: parentID}
		}
		s.add(id, api.ID+"/Default/"+full+"/Resource", apigateway.Resource{
			ParentId:  parent,
			PathPart:  seg,
			RestApiId: api.Ref(),
		})
		api.segments[full] = id
		parentID = id
	}
	return parentID, nil
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// routeHash fingerprints the route table so that a changed route set yields
// a new Deployment logical ID.
func routeHash(api *ApiSpec) string {
	lines := make([]string, 0, len(api.Routes))
	for _, r := range api.Routes {
		lines = append(lines, r.Method+" "+r.Path+" "+r.Handler.LogicalID)
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(api.Stage.Name + "\n" + strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])[:8]
}

// deploymentNodes derives the Deployment and Stage of api from its current
// routes. The Deployment depends on every method.
func (s *Stack) deploymentNodes(api *ApiSpec) []*node {
	deploymentID := s.peek(api.LogicalID + "Deployment" + routeHash(api))

	methods := make([]string, 0, len(api.Routes))
	for _, r := range api.Routes {
		methods = append(methods, r.LogicalID)
	}

	deployment := &node{
		logicalID: deploymentID,
		path:      s.name + "/" + api.ID + "/Deployment/Resource",
		value: apigateway.Deployment{
			Description: "Deployment of " + api.Name,
			RestApiId:   api.Ref(),
		},
		dependsOn: methods,
	}

	stage := &node{
		logicalID: api.Stage.LogicalID,
		path:      s.name + "/" + api.ID + "/DeploymentStage." + api.Stage.Name + "/Resource",
		value: apigateway.Stage{
			DeploymentId: intrinsics.Ref{LogicalName: deploymentID},
			RestApiId:    api.Ref(),
			StageName:    api.Stage.Name,
		},
	}

	return []*node{deployment, stage}
}
