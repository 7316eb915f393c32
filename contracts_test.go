package wafrest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrRef_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected string
	}{
		{
			name:     "web acl arn",
			ref:      AttrRef{Resource: "WebAcl", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["WebAcl","Arn"]}`,
		},
		{
			name:     "rest api root resource",
			ref:      AttrRef{Resource: "RestApi", Attribute: "RootResourceId"},
			expected: `{"Fn::GetAtt":["RestApi","RootResourceId"]}`,
		},
		{
			name:     "function arn",
			ref:      AttrRef{Resource: "HelloFunction", Attribute: "Arn"},
			expected: `{"Fn::GetAtt":["HelloFunction","Arn"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAttrRef_IsZero(t *testing.T) {
	assert.True(t, AttrRef{}.IsZero())
	assert.False(t, AttrRef{Resource: "WebAcl"}.IsZero())
	assert.False(t, AttrRef{Attribute: "Arn"}.IsZero())
}

func TestTemplate_JSON(t *testing.T) {
	template := Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              "Test template",
		Resources: map[string]ResourceDef{
			"WebAcl": {
				Type: "AWS::WAFv2::WebACL",
				Properties: map[string]any{
					"Name":  "RestApiWebAcl",
					"Scope": "REGIONAL",
				},
			},
		},
		Outputs: map[string]Output{
			"WebAclArn": {
				Description: "The web ACL ARN",
				Value:       map[string][]string{"Fn::GetAtt": {"WebAcl", "Arn"}},
				Export:      &OutputExport{Name: "WafRestStack-WebAclArn"},
			},
		},
	}

	data, err := json.Marshal(template)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "2010-09-09", parsed["AWSTemplateFormatVersion"])
	assert.Equal(t, "Test template", parsed["Description"])
	assert.NotContains(t, parsed, "Parameters")

	resources := parsed["Resources"].(map[string]any)
	acl := resources["WebAcl"].(map[string]any)
	assert.Equal(t, "AWS::WAFv2::WebACL", acl["Type"])

	outputs := parsed["Outputs"].(map[string]any)
	arn := outputs["WebAclArn"].(map[string]any)
	assert.Equal(t, "The web ACL ARN", arn["Description"])
	assert.Equal(t, map[string]any{"Name": "WafRestStack-WebAclArn"}, arn["Export"])
}

func TestResourceDef_DependsOn(t *testing.T) {
	resource := ResourceDef{
		Type:      "AWS::ApiGateway::Deployment",
		DependsOn: []string{"RestApihelloGET"},
	}

	data, err := json.Marshal(resource)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Type":"AWS::ApiGateway::Deployment","DependsOn":["RestApihelloGET"]}`, string(data))
}

func TestBuildResult_Error(t *testing.T) {
	result := BuildResult{
		Success: false,
		Errors:  []string{"WebAclAssociation: unresolved reference to RestApiDeploymentStagedev"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.False(t, parsed["success"].(bool))
	assert.Len(t, parsed["errors"], 1)
}
