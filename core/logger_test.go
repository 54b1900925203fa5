package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("warn", "json", &buf)

	l.Info("hidden")
	l.Warn("shown", F("frame", 7))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"frame":7`)
}

func TestNewLogger_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("", "", &buf)

	l.Debug("quiet")
	l.Info("hello", F("system", "render"))

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "system=render")
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d", F("k", "v"))
}
