package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/differ"
	"github.com/lex00/waf-rest-stack-go/internal/lint"
	"github.com/lex00/waf-rest-stack-go/internal/openapi"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

func defaultStack(t *testing.T) *stack.Stack {
	t.Helper()
	s, _, err := (&globalOptions{}).loadStack()
	if err != nil {
		t.Fatalf("loadStack() error = %v", err)
	}
	return s
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{
		"build", "validate", "list", "lint", "graph", "diff", "openapi",
		"deploy", "outputs", "verify", "destroy", "watch", "version",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("missing %q subcommand", name)
		}
	}

	for _, flag := range []string{"config", "region", "stage", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte("stack_name: FromFile\nregion: eu-west-1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := (&globalOptions{configPath: path}).loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.StackName != "FromFile" || cfg.Region != "eu-west-1" {
		t.Errorf("file values not applied: %s %s", cfg.StackName, cfg.Region)
	}

	cfg, err = (&globalOptions{configPath: path, region: "us-west-2", stage: "prod"}).loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Region != "us-west-2" {
		t.Errorf("Region = %q, want us-west-2", cfg.Region)
	}
	if cfg.Api.Stage != "prod" {
		t.Errorf("Stage = %q, want prod", cfg.Api.Stage)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := (&globalOptions{stage: "not a stage"}).loadConfig()
	if err == nil {
		t.Fatal("expected error for invalid stage name")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v, want invalid config", err)
	}
}

func TestRunBuild(t *testing.T) {
	var buf bytes.Buffer
	if err := runBuild(&buf, defaultStack(t), "json", ""); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}

	var tmpl wafrest.Template
	if err := json.Unmarshal(buf.Bytes(), &tmpl); err != nil {
		t.Fatalf("output is not a template: %v", err)
	}
	for _, id := range []string{"HelloFunction", "RestApi", "WebAcl", "WebAclAssociation"} {
		if _, ok := tmpl.Resources[id]; !ok {
			t.Errorf("template missing %s", id)
		}
	}
	if _, ok := tmpl.Outputs["RestApiUrl"]; !ok {
		t.Error("template missing RestApiUrl output")
	}
}

func TestRunBuild_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.yaml")
	var buf bytes.Buffer
	if err := runBuild(&buf, defaultStack(t), "yaml", path); err != nil {
		t.Fatalf("runBuild() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "AWS::WAFv2::WebACLAssociation") {
		t.Error("YAML template missing the association")
	}
}

func TestEncodeTemplate_UnknownFormat(t *testing.T) {
	if _, err := encodeTemplate(&wafrest.Template{}, "toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunList(t *testing.T) {
	var buf bytes.Buffer
	if err := runList(&buf, defaultStack(t), "text"); err != nil {
		t.Fatalf("runList() error = %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Stack resources") {
		t.Errorf("unexpected output:\n%s", output)
	}
	if !strings.Contains(output, "WebAcl: AWS::WAFv2::WebACL") {
		t.Errorf("expected web ACL in list:\n%s", output)
	}
}

func TestRunLint_DefaultStack(t *testing.T) {
	result := runLint(defaultStack(t), lint.Options{})
	if !result.Success {
		t.Errorf("default stack should lint clean, got %+v", result.Issues)
	}

	var buf bytes.Buffer
	if err := outputLintResult(&buf, result, "text"); err != nil {
		t.Fatal(err)
	}
	if len(result.Issues) == 0 && !strings.Contains(buf.String(), "No issues found.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestOutputLintResult_Text(t *testing.T) {
	var buf bytes.Buffer
	err := outputLintResult(&buf, wafrest.LintResult{
		Issues: []wafrest.LintIssue{{
			Resource: "WebAcl",
			Severity: "error",
			Message:  "duplicate rule priority 1",
			Rule:     "WRS001",
		}},
	}, "text")
	if err != nil {
		t.Fatal(err)
	}
	want := "WebAcl: error: duplicate rule priority 1 [WRS001]\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestRunGraph(t *testing.T) {
	var buf bytes.Buffer
	if err := runGraph(&buf, defaultStack(t), "dot", false); err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}
	if !strings.Contains(buf.String(), "digraph") {
		t.Error("expected digraph declaration")
	}

	if err := runGraph(&buf, defaultStack(t), "svg", false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOutputDiffResult(t *testing.T) {
	before, err := defaultStack(t).Synth()
	if err != nil {
		t.Fatal(err)
	}

	s, _, err := (&globalOptions{stage: "prod"}).loadStack()
	if err != nil {
		t.Fatal(err)
	}
	after, err := s.Synth()
	if err != nil {
		t.Fatal(err)
	}

	result, err := differ.Compare(before, after, differ.Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := outputDiffResult(&buf, result, "text"); err != nil {
		t.Fatal(err)
	}
	output := buf.String()
	if !strings.Contains(output, "+ RestApiDeploymentStageprod") {
		t.Errorf("expected the new stage to be added:\n%s", output)
	}
	if !strings.Contains(output, "- RestApiDeploymentStagedev") {
		t.Errorf("expected the old stage to be removed:\n%s", output)
	}

	buf.Reset()
	same, err := differ.Compare(before, before, differ.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := outputDiffResult(&buf, same, "text"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No differences found.\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDiffInputs_Files(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.json")
	if err := os.WriteFile(old, []byte(`{"Resources":{"A":{"Type":"AWS::SNS::Topic"}}}`), 0644); err != nil {
		t.Fatal(err)
	}

	before, after, err := diffInputs(t.Context(), &globalOptions{}, []string{old})
	if err != nil {
		t.Fatalf("diffInputs() error = %v", err)
	}
	if _, ok := before.Resources["A"]; !ok {
		t.Error("old template not loaded")
	}
	if _, ok := after.Resources["WebAcl"]; !ok {
		t.Error("new template should be the synthesized stack")
	}

	if _, _, err := diffInputs(t.Context(), &globalOptions{}, []string{old, filepath.Join(dir, "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOutputOutputs(t *testing.T) {
	var buf bytes.Buffer
	err := outputOutputs(&buf, map[string]string{
		"RestApiUrl": "https://abc123.execute-api.us-east-1.amazonaws.com/dev/",
		"Alpha":      "a",
	}, "text")
	if err != nil {
		t.Fatal(err)
	}
	want := "Alpha = a\nRestApiUrl = https://abc123.execute-api.us-east-1.amazonaws.com/dev/\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestDeployOptions(t *testing.T) {
	cfg, err := (&globalOptions{region: "eu-central-1"}).loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Deploy.TemplateBucket = "templates"

	opts := deployOptions(cfg)
	if opts.StackName != cfg.StackName || opts.Region != "eu-central-1" || opts.TemplateBucket != "templates" {
		t.Errorf("deployOptions() = %+v", opts)
	}
}

func TestDestroyRequiresConfirmation(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"destroy"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("Execute() error = %v, want confirmation error", err)
	}
}

func TestRunOpenAPI(t *testing.T) {
	var buf bytes.Buffer
	if err := runOpenAPI(&buf, defaultStack(t), "", "", openapi.Options{}); err != nil {
		t.Fatalf("runOpenAPI() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["swagger"] != "2.0" {
		t.Errorf("swagger = %v, want 2.0", doc["swagger"])
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/hello"]; !ok {
		t.Errorf("missing /hello path: %v", paths)
	}

	if err := runOpenAPI(&buf, defaultStack(t), "Missing", "", openapi.Options{}); err == nil {
		t.Error("expected error for unknown API id")
	}
}

func TestVersionCmd(t *testing.T) {
	if getVersion() == "" {
		t.Error("getVersion() returned empty string")
	}

	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)
	if !strings.HasPrefix(buf.String(), "waf-rest-stack ") {
		t.Errorf("output = %q", buf.String())
	}
}
