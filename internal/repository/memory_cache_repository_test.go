package repository

import (
	"context"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute))
	ctx := context.Background()

	var miss map[string]int
	require.ErrorIs(t, repo.Get(ctx, "reports:gender", &miss), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "reports:gender", map[string]int{"male": 2}, time.Minute))
	var got map[string]int
	require.NoError(t, repo.Get(ctx, "reports:gender", &got))
	assert.Equal(t, 2, got["male"])
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "reports:workload:fall", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "reports:financial", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "sessions:other", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "reports:*"))

	var n int
	assert.ErrorIs(t, repo.Get(ctx, "reports:workload:fall", &n), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "reports:financial", &n), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "sessions:other", &n))
	assert.Equal(t, 3, n)
}
