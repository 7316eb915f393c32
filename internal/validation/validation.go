// Package validation runs the stack lint rules and cfn-lint over a
// synthesized template.
//
// The pipeline has three steps:
//   - stack lint: advisory rules over the assembled resource graph
//   - build: synthesize the CloudFormation template and write it to disk
//   - cfn-lint-go: validate the written template (library dependency)
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wafrest "github.com/lex00/waf-rest-stack-go"
	stacklint "github.com/lex00/waf-rest-stack-go/internal/lint"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
	"github.com/lex00/waf-rest-stack-go/internal/template"
)

// LintResult contains the result of the stack lint rules.
type LintResult struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues"`
}

// BuildResult contains the result of synthesizing the template.
type BuildResult struct {
	Success      bool   `json:"success"`
	Template     string `json:"template"`
	TemplatePath string `json:"template_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// ValidationResult contains all validation results for a stack.
type ValidationResult struct {
	LintResult    *LintResult    `json:"lint_result"`
	BuildResult   *BuildResult   `json:"build_result"`
	CfnLintResult *CfnLintResult `json:"cfn_lint_result"`
}

// Passed reports whether every step passed.
func (r *ValidationResult) Passed() bool {
	return r.LintResult != nil && r.LintResult.Passed &&
		r.BuildResult != nil && r.BuildResult.Success &&
		r.CfnLintResult != nil && r.CfnLintResult.Passed
}

// RunLint runs the stack lint rules over s.
func RunLint(s *stack.Stack, opts stacklint.Options) *LintResult {
	res := stacklint.LintStack(s, opts)

	result := &LintResult{
		Passed: res.Success,
		Issues: []string{},
	}
	for _, issue := range res.Issues {
		result.Issues = append(result.Issues, FormatIssue(issue))
	}
	return result
}

// FormatIssue renders a stack lint issue on one line.
func FormatIssue(issue stacklint.Issue) string {
	line := fmt.Sprintf("%s: %s [%s]", issue.Rule, issue.Message, issue.Severity.String())
	if issue.Resource != "" {
		line = issue.Resource + ": " + line
	}
	return line
}

// RunBuild synthesizes s and writes the JSON template to outputDir as
// <stack name>.template.json.
func RunBuild(s *stack.Stack, outputDir string) (*BuildResult, error) {
	t, err := s.Synth()
	if err != nil {
		return &BuildResult{
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	templatePath := filepath.Join(outputDir, s.Name()+".template.json")
	if err := os.WriteFile(templatePath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	return &BuildResult{
		Success:      true,
		Template:     string(data),
		TemplatePath: templatePath,
	}, nil
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	return collectMatches(matches), nil
}

// RunCfnLintTemplate writes t to a temporary file and lints it.
func RunCfnLintTemplate(t *wafrest.Template) (*CfnLintResult, error) {
	data, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	f, err := os.CreateTemp("", "waf-rest-stack-*.template.json")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return RunCfnLint(f.Name())
}

func collectMatches(matches []lint.Match) *CfnLintResult {
	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable.
	result.Passed = len(result.Errors) == 0
	return result
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}

	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}

// ValidateStack runs the full validation pipeline on s.
func ValidateStack(s *stack.Stack, outputDir string, opts stacklint.Options) (*ValidationResult, error) {
	result := &ValidationResult{}

	result.LintResult = RunLint(s, opts)
	logging.Debug("stack lint finished", "stack", s.Name(), "issues", len(result.LintResult.Issues))

	// Build even if lint fails, to get as much feedback as possible.
	buildResult, err := RunBuild(s, outputDir)
	if err != nil {
		return nil, fmt.Errorf("running build: %w", err)
	}
	result.BuildResult = buildResult

	if !buildResult.Success {
		result.CfnLintResult = &CfnLintResult{
			Passed: false,
			Errors: []string{"Build failed - no template to validate"},
		}
		return result, nil
	}

	cfnResult, err := RunCfnLint(buildResult.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("running cfn-lint: %w", err)
	}
	result.CfnLintResult = cfnResult
	logging.Debug("cfn-lint finished", "template", buildResult.TemplatePath, "issues", cfnResult.TotalIssues())

	return result, nil
}
