package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutAndGet(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "src-1/abc123", "text/html", []byte("content"))
	require.NoError(t, err)
	require.Equal(t, "memory://src-1/abc123", uri)

	data, ok := store.GetObject("src-1/abc123")
	require.True(t, ok)
	require.Equal(t, []byte("content"), data)

	_, ok = store.GetObject("missing")
	require.False(t, ok)
}

func TestBlobStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("original")
	_, err := store.PutObject(context.Background(), "p", "", payload)
	require.NoError(t, err)

	payload[0] = 'X'
	data, ok := store.GetObject("p")
	require.True(t, ok)
	require.Equal(t, []byte("original"), data)
}
