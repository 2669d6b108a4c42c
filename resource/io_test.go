package resource

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledWriterPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewThrottledWriter(context.Background(), nil, &buf)

	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", buf.String())
}

func TestThrottledWriterHonorsCancellation(t *testing.T) {
	c := NewController(Config{IngestRateBytesPerSec: 8})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	w := NewThrottledWriter(ctx, c, &buf)

	// The first write drains the burst; the second has to wait past the
	// deadline.
	_, err := w.Write(make([]byte, 8))
	require.NoError(t, err)
	_, err = w.Write(make([]byte, 8))
	require.Error(t, err)
	assert.Equal(t, 8, buf.Len())
}

func TestThrottledReaderPassesThrough(t *testing.T) {
	r := NewThrottledReader(context.Background(), nil, strings.NewReader("hello"))

	b := make([]byte, 5)
	n, err := r.Read(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b[:n]))
}

func TestThrottledReaderHonorsCancellation(t *testing.T) {
	c := NewController(Config{IngestRateBytesPerSec: 8})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	r := NewThrottledReader(ctx, c, strings.NewReader(strings.Repeat("x", 16)))

	b := make([]byte, 8)
	_, err := r.Read(b)
	require.NoError(t, err)
	_, err = r.Read(b)
	require.Error(t, err)
}
