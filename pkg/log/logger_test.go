package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffErrors "github.com/YuminosukeSato/forestfire/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologProvider_Fields(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelDebug)

	logger := p.GetLoggerWithName("model").With(StageKey, "model")
	logger.Info("Training started", SamplesKey, 100, FeaturesKey, 12)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "Training started", e["message"])
	assert.Equal(t, "model", e[ComponentKey])
	assert.Equal(t, "model", e[StageKey])
	assert.Equal(t, 100.0, e[SamplesKey])
	assert.Equal(t, 12.0, e[FeaturesKey])
}

func TestZerologProvider_ErrorStack(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo)

	err := ffErrors.NewLoadError("missing.csv", fmt.Errorf("no such file"))
	p.GetLogger().Error("Load failed", err, PathKey, "missing.csv")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0][ErrorKey], "missing.csv")
	assert.Equal(t, "missing.csv", entries[0][PathKey])
	assert.Contains(t, buf.String(), `"type":"LoadError"`)

	detail, ok := entries[0][ErrorKey+DetailSuffix].(map[string]interface{})
	require.True(t, ok, "typed error fields are logged")
	assert.Equal(t, "LoadError", detail["type"])
	assert.Equal(t, "missing.csv", detail["path"])
	assert.Equal(t, "no such file", detail["cause"])
}

func TestZerologProvider_KeyedTypedError(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo)

	wrapped := ffErrors.Wrap(ffErrors.NewColumnError("Model", "fire"), "model stage")
	p.GetLogger().Warn("Column check failed", "cause", wrapped)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0]["cause"], "column \"fire\" not found")
	detail, ok := entries[0]["cause"+DetailSuffix].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ColumnError", detail["type"])
	assert.Equal(t, "fire", detail["column"])
}

func TestZerologProvider_PlainErrorHasNoDetail(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo)

	p.GetLogger().Error("failed", fmt.Errorf("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0][ErrorKey])
	assert.NotContains(t, entries[0], ErrorKey+DetailSuffix)
}

func TestZerologProvider_Level(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelWarn)

	logger := p.GetLogger()
	logger.Info("hidden")
	logger.Warn("shown")
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])

	p.SetLevel(LevelDebug)
	p.GetLogger().Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestZerologProvider_RouteWarnings(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo)
	p.RouteWarnings()
	defer ffErrors.SetZerologWarnFunc(nil)

	ffErrors.Warn(ffErrors.NewDataConversionWarning("float64", "inf", "zero denominator in temp_humid_ratio"))
	ffErrors.Warn(ffErrors.NewUndefinedMetricWarning("precision", "no predicted samples for some labels", 0))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "warnings", entries[0][ComponentKey])

	detail, ok := entries[0][WarningKey+DetailSuffix].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "DataConversionWarning", detail["type"])
	assert.Equal(t, "zero denominator in temp_humid_ratio", detail["reason"])

	detail, ok = entries[1][WarningKey+DetailSuffix].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "UndefinedMetricWarning", detail["type"])
	assert.Equal(t, "precision", detail["metric"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Panics(t, func() { ToLogLevel("verbose") })
}

func TestTestLogger(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Debug("dropped")
	logger.Info("info message", "operation", "fit", "number", 42)
	logger.With(StageKey, "explore").Warn("warn message")
	logger.Error("error message", fmt.Errorf("boom"))

	assert.False(t, logger.ContainsMessage("dropped"))
	assert.True(t, logger.ContainsMessage("info message"))
	assert.True(t, logger.ContainsField("operation", "fit"))
	assert.True(t, logger.ContainsField("number", 42.0))
	assert.True(t, logger.ContainsField(StageKey, "explore"))
	assert.True(t, logger.ContainsField(ErrorKey, "boom"))
	assert.True(t, logger.HasLevel(LevelWarn))

	logger.Clear()
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTestLoggerProvider(t *testing.T) {
	p, buf := NewTestLoggerProvider(LevelWarn)
	p.GetLoggerWithName("plotting").Info("hidden")
	p.SetLevel(LevelInfo)
	p.GetLoggerWithName("plotting").Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.True(t, p.Logger().ContainsField(ComponentKey, "plotting"))
}
