// Package apigateway contains typed AWS::ApiGateway resources for REST APIs.
package apigateway

import (
	wafrest "github.com/lex00/waf-rest-stack-go"
)

// RestApi represents AWS::ApiGateway::RestApi.
type RestApi struct {
	Name                  any                            `json:"Name,omitempty"`
	Description           string                         `json:"Description,omitempty"`
	EndpointConfiguration *RestApi_EndpointConfiguration `json:"EndpointConfiguration,omitempty"`

	// RootResourceId is the GetAtt reference for the "/" resource.
	RootResourceId wafrest.AttrRef `json:"-"`
}

// ResourceType implements wafrest.Resource.
func (r RestApi) ResourceType() string { return "AWS::ApiGateway::RestApi" }

// RestApi_EndpointConfiguration selects EDGE, REGIONAL or PRIVATE endpoints.
type RestApi_EndpointConfiguration struct {
	Types []string `json:"Types,omitempty"`
}

// Resource represents AWS::ApiGateway::Resource, one path segment.
type Resource struct {
	ParentId  any    `json:"ParentId"`
	PathPart  string `json:"PathPart"`
	RestApiId any    `json:"RestApiId"`
}

// ResourceType implements wafrest.Resource.
func (r Resource) ResourceType() string { return "AWS::ApiGateway::Resource" }

// Method represents AWS::ApiGateway::Method.
type Method struct {
	AuthorizationType string              `json:"AuthorizationType"`
	HttpMethod        string              `json:"HttpMethod"`
	Integration       *Method_Integration `json:"Integration,omitempty"`
	ResourceId        any                 `json:"ResourceId"`
	RestApiId         any                 `json:"RestApiId"`
}

// ResourceType implements wafrest.Resource.
func (r Method) ResourceType() string { return "AWS::ApiGateway::Method" }

// Method_Integration binds a method to its backend.
type Method_Integration struct {
	IntegrationHttpMethod string `json:"IntegrationHttpMethod,omitempty"`
	Type_                 string `json:"Type"`
	Uri                   any    `json:"Uri,omitempty"`
}

// Deployment represents AWS::ApiGateway::Deployment.
type Deployment struct {
	Description string `json:"Description,omitempty"`
	RestApiId   any    `json:"RestApiId"`
}

// ResourceType implements wafrest.Resource.
func (r Deployment) ResourceType() string { return "AWS::ApiGateway::Deployment" }

// Stage represents AWS::ApiGateway::Stage.
// Ref on a stage returns the stage name.
type Stage struct {
	DeploymentId   any    `json:"DeploymentId"`
	RestApiId      any    `json:"RestApiId"`
	StageName      string `json:"StageName"`
	TracingEnabled bool   `json:"TracingEnabled,omitempty"`
}

// ResourceType implements wafrest.Resource.
func (r Stage) ResourceType() string { return "AWS::ApiGateway::Stage" }
