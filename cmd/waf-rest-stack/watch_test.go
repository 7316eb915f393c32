package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&globalOptions{})

	if cmd.Use != "watch" {
		t.Errorf("Use = %q, want 'watch'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	if cmd.Flags().Lookup("lint-only") == nil {
		t.Error("missing --lint-only flag")
	}

	if cmd.Flags().Lookup("debounce") == nil {
		t.Error("missing --debounce flag")
	}
}

func TestDebounceDefault(t *testing.T) {
	cmd := newWatchCmd(&globalOptions{})

	flag := cmd.Flags().Lookup("debounce")
	if flag == nil {
		t.Fatal("missing --debounce flag")
	}

	if flag.DefValue != "500ms" {
		t.Errorf("debounce default = %q, want '500ms'", flag.DefValue)
	}
}

func TestWatchedFiles(t *testing.T) {
	if _, err := watchedFiles(&globalOptions{}); err == nil {
		t.Error("expected error when there is nothing to watch")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "index.js")
	if err := os.WriteFile(src, []byte("exports.handler = async () => ({statusCode: 200});\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "stack.yaml")
	if err := os.WriteFile(cfgPath, []byte("handler:\n  source_file: "+src+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := watchedFiles(&globalOptions{configPath: cfgPath})
	if err != nil {
		t.Fatalf("watchedFiles() error = %v", err)
	}
	if len(files) != 2 || files[0] != cfgPath || files[1] != src {
		t.Errorf("watchedFiles() = %v", files)
	}
}

func TestRunLintAndBuild(t *testing.T) {
	out := filepath.Join(t.TempDir(), "template.json")

	var buf bytes.Buffer
	ok := runLintAndBuild(&buf, &globalOptions{}, watchOptions{outputFormat: "json", outputFile: out})
	if !ok {
		t.Fatalf("runLintAndBuild() failed:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Lint passed") {
		t.Errorf("expected lint to pass:\n%s", buf.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("template not written: %v", err)
	}

	buf.Reset()
	ok = runLintAndBuild(&buf, &globalOptions{}, watchOptions{lintOnly: true})
	if !ok || strings.Contains(buf.String(), "Build successful") {
		t.Errorf("lint-only run should skip build:\n%s", buf.String())
	}
}
