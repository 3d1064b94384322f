package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		emitted slog.Level
		dropped slog.Level
	}{
		{name: "debug", level: "debug", emitted: slog.LevelDebug, dropped: slog.LevelDebug - 4},
		{name: "warn", level: "warn", emitted: slog.LevelWarn, dropped: slog.LevelInfo},
		{name: "unknown falls back to info", level: "loud", emitted: slog.LevelInfo, dropped: slog.LevelDebug},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, err := Setup(Config{Level: tc.level})
			require.NoError(t, err)
			require.NotNil(t, log)

			assert.True(t, log.Enabled(context.Background(), tc.emitted))
			assert.False(t, log.Enabled(context.Background(), tc.dropped))
		})
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	scoped := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "test")

	ctx := WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx))

	// No logger in context falls back to the default.
	assert.NotNil(t, FromContext(context.Background()))

	fallback := slog.New(slog.NewJSONHandler(&buf, nil))
	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	assert.Same(t, scoped, FromContextOrDefault(ctx, fallback))
}
