package ioctx

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWritersDefaultToDiscard(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, io.Discard, StdoutFromContext(ctx))
	require.Equal(t, io.Discard, StderrFromContext(ctx))
}

func TestWritersRoundTrip(t *testing.T) {
	var out, errOut bytes.Buffer
	ctx := StdoutToContext(context.Background(), &out)
	ctx = StderrToContext(ctx, &errOut)

	_, _ = StdoutFromContext(ctx).Write([]byte("hello"))
	_, _ = StderrFromContext(ctx).Write([]byte("oops"))

	require.Equal(t, "hello", out.String())
	require.Equal(t, "oops", errOut.String())
}

func TestLogger(t *testing.T) {
	require.Equal(t, slog.Default(), LoggerFromContext(context.Background()))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := LoggerToContext(context.Background(), logger)
	LoggerFromContext(ctx).Info("saved", "bindings", 3)
	require.Contains(t, buf.String(), "bindings=3")
}
