package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput("warn", &buf)

	Info("hidden")
	Warn("deploy slow", "stack", "WafRestStack")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "deploy slow")
	assert.Contains(t, out, "stack=WafRestStack")
}

func TestFields_OddArgs(t *testing.T) {
	f := fields([]any{"a", 1, "dangling"})
	assert.Equal(t, 1, f["a"])
	assert.Equal(t, "dangling", f["!BADKEY"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warning", parseLevel("warning").String())
	assert.Equal(t, "error", parseLevel("error").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}
