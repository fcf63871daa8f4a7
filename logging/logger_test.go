package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger = (*NegotiationLogger)(nil)
	_ Logger = NoOpLogger{}
	_ Logger = (*SlogAdapter)(nil)
)

func newBufferLogger(level LogLevel) (*NegotiationLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Output = buf
	cfg.Level = level
	return NewLogger(cfg), buf
}

func TestNegotiationLogger_AttachesContext(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.WithComponent("engine").WithNegotiation("n-1").Info("hello", "round", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "n-1", entry["negotiation_id"])
	assert.EqualValues(t, 2, entry["round"])
}

func TestNegotiationLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("debug")
	l.Info("info")
	assert.Zero(t, buf.Len())

	l.Warn("warn")
	assert.Contains(t, buf.String(), "warn")
}

func TestNegotiationLogger_CloneIsolation(t *testing.T) {
	base, buf := newBufferLogger(LogLevelInfo)
	_ = base.WithContext("k", "v")

	base.Info("plain")
	assert.NotContains(t, buf.String(), `"k"`)
}

func TestNegotiationLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	LogTransition(l, "n-2", "COUNTERED", "CONCLUDED", 3, "reason", "final_offer")
	LogOffer(l, "n-2", "system", 410000, 1, "close_gap")

	out := buf.String()
	assert.Contains(t, out, "Negotiation transitioned")
	assert.Contains(t, out, "CONCLUDED")
	assert.Contains(t, out, `"reason":"final_offer"`)
	assert.Contains(t, out, "close_gap")

	assert.NotPanics(t, func() {
		LogTransition(NoOpLogger{}, "n-3", "COUNTERED", "EXPIRED", 5)
		LogOffer(NoOpLogger{}, "n-3", "requester", 1, 5, "")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"warn", LogLevelWarn},
		{"ERROR", LogLevelError},
		{"", LogLevelInfo},
		{"nonsense", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}
