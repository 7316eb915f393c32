package differ

import (
	"os"
	"path/filepath"
	"testing"

	wafrest "github.com/lex00/waf-rest-stack-go"
)

func TestCompare(t *testing.T) {
	t1 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"HelloFunction": {Type: "AWS::Lambda::Function", Properties: map[string]any{"Runtime": "nodejs18.x"}},
			"WebAcl":        {Type: "AWS::WAFv2::WebACL", Properties: map[string]any{"Name": "RestApiWebAcl"}},
		},
	}

	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"HelloFunction":     {Type: "AWS::Lambda::Function", Properties: map[string]any{"Runtime": "nodejs20.x"}},
			"WebAclAssociation": {Type: "AWS::WAFv2::WebACLAssociation"},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Diff.Removed) != 1 {
		t.Errorf("Removed = %d, want 1", len(result.Diff.Removed))
	} else if result.Diff.Removed[0].Resource != "WebAcl" {
		t.Errorf("Removed[0].Resource = %s, want WebAcl", result.Diff.Removed[0].Resource)
	}

	if len(result.Diff.Added) != 1 {
		t.Errorf("Added = %d, want 1", len(result.Diff.Added))
	} else if result.Diff.Added[0].Resource != "WebAclAssociation" {
		t.Errorf("Added[0].Resource = %s, want WebAclAssociation", result.Diff.Added[0].Resource)
	}

	if len(result.Diff.Modified) != 1 {
		t.Errorf("Modified = %d, want 1", len(result.Diff.Modified))
	} else if got := result.Diff.Modified[0].Changes; len(got) != 1 || got[0] != "Runtime modified" {
		t.Errorf("Modified[0].Changes = %v, want [Runtime modified]", got)
	}

	if result.Summary.Total != 3 {
		t.Errorf("Summary.Total = %d, want 3", result.Summary.Total)
	}
}

func TestCompareIdentical(t *testing.T) {
	template := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"WebAcl": {Type: "AWS::WAFv2::WebACL", Properties: map[string]any{"Scope": "REGIONAL"}},
		},
	}

	result, err := Compare(template, template, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if result.Summary.Total != 0 {
		t.Errorf("Summary.Total = %d, want 0 for identical templates", result.Summary.Total)
	}
}

func TestCompareNumericRepresentation(t *testing.T) {
	// A synthesized template carries ints, one read from disk carries float64.
	t1 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"WebAcl": {Type: "AWS::WAFv2::WebACL", Properties: map[string]any{
				"Rules": []any{map[string]any{"Priority": 1}},
			}},
		},
	}
	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"WebAcl": {Type: "AWS::WAFv2::WebACL", Properties: map[string]any{
				"Rules": []any{map[string]any{"Priority": float64(1)}},
			}},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Summary.Total != 0 {
		t.Errorf("Summary.Total = %d, want 0", result.Summary.Total)
	}
}

func TestCompareNil(t *testing.T) {
	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"RestApi": {Type: "AWS::ApiGateway::RestApi"},
		},
	}

	result, err := Compare(nil, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Summary.Added != 1 {
		t.Errorf("Summary.Added = %d, want 1", result.Summary.Added)
	}
}

func TestCompareTypeChange(t *testing.T) {
	t1 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"Resource1": {Type: "AWS::ApiGateway::Deployment"},
		},
	}

	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"Resource1": {Type: "AWS::ApiGateway::Stage"},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Diff.Modified) != 1 {
		t.Fatalf("Modified = %d, want 1", len(result.Diff.Modified))
	}

	found := false
	for _, change := range result.Diff.Modified[0].Changes {
		if change == "Type changed: AWS::ApiGateway::Deployment → AWS::ApiGateway::Stage" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected type change to be detected")
	}
}

func TestCompareDependsOn(t *testing.T) {
	t1 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"HelloFunction": {Type: "AWS::Lambda::Function", DependsOn: []string{"HelloFunctionServiceRole"}},
		},
	}
	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"HelloFunction": {Type: "AWS::Lambda::Function"},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(result.Diff.Modified) != 1 || result.Diff.Modified[0].Changes[0] != "DependsOn changed" {
		t.Errorf("Modified = %+v, want DependsOn changed", result.Diff.Modified)
	}
}

func TestCompareOutputs(t *testing.T) {
	t1 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{},
		Outputs: map[string]wafrest.Output{
			"RestApiUrl": {Value: "https://a.example/dev/"},
			"WebAclArn":  {Value: "arn"},
		},
	}
	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{},
		Outputs: map[string]wafrest.Output{
			"RestApiUrl":  {Value: "https://b.example/dev/", Description: "URL"},
			"FunctionArn": {Value: "arn"},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Diff.Added) != 1 || result.Diff.Added[0].Resource != "FunctionArn" {
		t.Errorf("Added = %+v, want FunctionArn", result.Diff.Added)
	}
	if len(result.Diff.Removed) != 1 || result.Diff.Removed[0].Type != outputType {
		t.Errorf("Removed = %+v, want one output", result.Diff.Removed)
	}
	if len(result.Diff.Modified) != 1 {
		t.Fatalf("Modified = %d, want 1", len(result.Diff.Modified))
	}
	if got := result.Diff.Modified[0].Changes; len(got) != 2 {
		t.Errorf("Changes = %v, want value and description", got)
	}
}

func TestCompareIgnoreOrder(t *testing.T) {
	t1 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"RestApi": {Type: "AWS::ApiGateway::RestApi", Properties: map[string]any{
				"BinaryMediaTypes": []any{"image/png", "application/zip"},
			}},
		},
	}
	t2 := &wafrest.Template{
		Resources: map[string]wafrest.ResourceDef{
			"RestApi": {Type: "AWS::ApiGateway::RestApi", Properties: map[string]any{
				"BinaryMediaTypes": []any{"application/zip", "image/png"},
			}},
		},
	}

	strict, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if strict.Summary.Modified != 1 {
		t.Errorf("strict Modified = %d, want 1", strict.Summary.Modified)
	}

	loose, err := Compare(t1, t2, Options{IgnoreOrder: true})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if loose.Summary.Total != 0 {
		t.Errorf("IgnoreOrder Total = %d, want 0", loose.Summary.Total)
	}
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.json")
	yamlPath := filepath.Join(dir, "b.yaml")

	jsonBody := `{
  "AWSTemplateFormatVersion": "2010-09-09",
  "Resources": {
    "WebAcl": {"Type": "AWS::WAFv2::WebACL", "Properties": {"Scope": "REGIONAL"}}
  }
}`
	yamlBody := `AWSTemplateFormatVersion: "2010-09-09"
Resources:
  WebAcl:
    Type: AWS::WAFv2::WebACL
    Properties:
      Scope: CLOUDFRONT
`
	if err := os.WriteFile(jsonPath, []byte(jsonBody), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := CompareFiles(jsonPath, yamlPath, Options{})
	if err != nil {
		t.Fatalf("CompareFiles() error = %v", err)
	}
	if result.Summary.Modified != 1 {
		t.Errorf("Summary.Modified = %d, want 1", result.Summary.Modified)
	}

	if _, err := CompareFiles(filepath.Join(dir, "missing.json"), yamlPath, Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseTemplateInvalid(t *testing.T) {
	if _, err := ParseTemplate([]byte("[unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestCompareProperties(t *testing.T) {
	tests := []struct {
		name    string
		props1  map[string]any
		props2  map[string]any
		wantLen int
	}{
		{
			name:    "identical",
			props1:  map[string]any{"Key": "value"},
			props2:  map[string]any{"Key": "value"},
			wantLen: 0,
		},
		{
			name:    "added property",
			props1:  map[string]any{},
			props2:  map[string]any{"Key": "value"},
			wantLen: 1,
		},
		{
			name:    "removed property",
			props1:  map[string]any{"Key": "value"},
			props2:  map[string]any{},
			wantLen: 1,
		},
		{
			name:    "modified property",
			props1:  map[string]any{"Key": "value1"},
			props2:  map[string]any{"Key": "value2"},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := compareProperties("", tt.props1, tt.props2, Options{})
			if len(changes) != tt.wantLen {
				t.Errorf("compareProperties() returned %d changes, want %d", len(changes), tt.wantLen)
			}
		})
	}
}

func TestEqualStringSlices(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{nil, nil, true},
		{[]string{}, []string{}, true},
		{[]string{"a", "b"}, []string{"a", "b"}, true},
		{[]string{"a"}, []string{"b"}, false},
		{[]string{"a"}, []string{"a", "b"}, false},
	}

	for _, tt := range tests {
		got := equalStringSlices(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("equalStringSlices(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
