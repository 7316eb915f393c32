package intrinsics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Ref{LogicalName: "RestApi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "RestApi"}`, string(data))
}

func TestGetAtt_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(GetAtt{LogicalName: "WebAcl", Attribute: "Arn"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::GetAtt": ["WebAcl", "Arn"]}`, string(data))
}

func TestConcat_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Concat("https://", Ref{LogicalName: "RestApi"}, "/"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Join": ["", ["https://", {"Ref": "RestApi"}, "/"]]}`, string(data))
}

func TestIsPseudo(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{PseudoRegion, true},
		{PseudoURLSuffix, true},
		{"RestApi", false},
		{"AWS::", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPseudo(tt.name))
		})
	}
}

func TestPseudoParameters(t *testing.T) {
	tests := []struct {
		name     string
		param    Ref
		expected string
	}{
		{"AWS_REGION", AWS_REGION, `{"Ref": "AWS::Region"}`},
		{"AWS_ACCOUNT_ID", AWS_ACCOUNT_ID, `{"Ref": "AWS::AccountId"}`},
		{"AWS_PARTITION", AWS_PARTITION, `{"Ref": "AWS::Partition"}`},
		{"AWS_URL_SUFFIX", AWS_URL_SUFFIX, `{"Ref": "AWS::URLSuffix"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.param)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestServicePrincipal_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(ServicePrincipal{"lambda.amazonaws.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Service": "lambda.amazonaws.com"}`, string(data))

	data, err = json.Marshal(ServicePrincipal{"lambda.amazonaws.com", "apigateway.amazonaws.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Service": ["lambda.amazonaws.com", "apigateway.amazonaws.com"]}`, string(data))
}

func TestAssumeRoleDocument(t *testing.T) {
	data, err := json.Marshal(AssumeRoleDocument("lambda.amazonaws.com"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{"Effect": "Allow", "Principal": {"Service": "lambda.amazonaws.com"}, "Action": "sts:AssumeRole"}]
	}`, string(data))
}

func TestManagedPolicyArn(t *testing.T) {
	data, err := json.Marshal(ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Join": ["", ["arn:", {"Ref": "AWS::Partition"}, ":iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"]]}`, string(data))
}
