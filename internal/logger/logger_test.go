package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, detailed bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{
		Level:           "DEBUG",
		Format:          "json",
		DetailedLogging: detailed,
		Output:          &buf,
	}))
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestDecisionFields(t *testing.T) {
	buf := capture(t, false)
	Decision(context.Background(), "INFY", "buy", true, 0.12, "", "kelly", 0.25)

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "DECISION", got[0]["type"])
	assert.Equal(t, "INFY", got[0]["symbol"])
	assert.Equal(t, true, got[0]["allowed"])
	assert.Equal(t, 0.12, got[0]["size_fraction"])
	assert.Equal(t, 0.25, got[0]["kelly"])
}

func TestDebugGatedByDetailedLogging(t *testing.T) {
	buf := capture(t, false)
	Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	buf = capture(t, true)
	DebugSkip(context.Background(), 0, "shown", "k", "v")
	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["msg"])
	assert.Contains(t, got[0], "source")
}

func TestErrorWithErr(t *testing.T) {
	buf := capture(t, false)
	ErrorWithErrSkip(context.Background(), 0, "provider failed", errors.New("timeout"), "symbol", "TCS")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "ERROR", got[0]["level"])
	assert.Equal(t, "timeout", got[0]["error"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}
