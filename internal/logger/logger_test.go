package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPrettyEncoder_Line(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "INFO", FormatPretty).Named("Orchestrator")

	l.With(zap.String("task", "t1")).Info("material done", zap.Int("runs", 12))

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[Orchestrator]")
	assert.Contains(t, out, "material done - runs=12, task=t1")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", FormatJSON)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json", FormatPretty))
	assert.Equal(t, FormatPretty, ParseFormat("xml", FormatPretty))
}

func TestFor_UsesReplacedGlobal(t *testing.T) {
	var buf bytes.Buffer
	ReplaceGlobal(NewWithWriter(&buf, "DEBUG", FormatJSON))
	defer ReplaceGlobal(zap.NewNop())

	For(ComponentService).Infow("hello", "k", 1)

	assert.Contains(t, buf.String(), `"component":"Service"`)
}
