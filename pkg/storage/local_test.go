package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "schedules/a.csv", []byte("Day,Time"), "text/csv"))
	rc, err := store.Get(ctx, "schedules/a.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "Day,Time", string(data))

	require.NoError(t, store.Delete(ctx, "schedules/a.csv"))
	_, err = store.Get(ctx, "schedules/a.csv")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.Error(t, store.Put(context.Background(), "../outside.csv", []byte("x"), ""))
}
