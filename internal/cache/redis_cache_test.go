package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/examshield/exam-service/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(client, utils.NewDevelopmentLogger()), mr
}

type cachedQuestions struct {
	TestID int      `json:"test_id"`
	Labels []string `json:"labels"`
}

func TestRedisCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	in := cachedQuestions{TestID: 7, Labels: []string{"A", "B", "C"}}
	require.NoError(t, cache.Set(ctx, "test:7:questions", in, time.Minute))

	var out cachedQuestions
	require.NoError(t, cache.Get(ctx, "test:7:questions", &out))
	assert.Equal(t, in, out)
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	var out cachedQuestions
	err := cache.Get(context.Background(), "absent", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", cachedQuestions{TestID: 1}, time.Minute))
	require.NoError(t, cache.Delete(ctx, "k"))

	var out cachedQuestions
	assert.ErrorIs(t, cache.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", cachedQuestions{TestID: 1}, time.Second))
	mr.FastForward(2 * time.Second)

	var out cachedQuestions
	assert.ErrorIs(t, cache.Get(ctx, "k", &out), ErrCacheMiss)
}
