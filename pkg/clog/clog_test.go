package clog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false))))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"action": "breakdown", "step_id": "01S"})
	logger.InfoContext(ctx, "expanded")

	out := buf.String()
	assert.Contains(t, out, "breakdown")
	assert.Contains(t, out, `"expanded"`)
	assert.Contains(t, out, "step_id=01S")
}

func TestTextHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	h := NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelWarn))
	logger := slog.New(h)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestContext_MergeAndErrors(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"req": map[string]any{"a": 1}})
	AddAttributes(ctx, map[string]any{"req": map[string]any{"b": 2}})

	req := GetAttribute[map[string]any](ctx, "req")
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, req)

	assert.NoError(t, GetError(ctx))
	AddError(ctx, assert.AnError)
	require.ErrorIs(t, GetError(ctx), assert.AnError)

	// Without an attribute set everything is a no-op.
	bare := context.Background()
	AddAttribute(bare, "x", 1)
	assert.Nil(t, GetAttributes(bare))
	assert.Same(t, ctx, EnsureSlog(ctx))
}
