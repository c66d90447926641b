package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kaigosha/sitewarden/internal/limits"
)

type breakGlassStore struct {
	client *redis.Client
}

func (s *breakGlassStore) Get(ctx context.Context) (*limits.BreakGlassRuntime, error) {
	return getJSON[limits.BreakGlassRuntime](ctx, s.client, keyBreakGlass)
}

func (s *breakGlassStore) Put(ctx context.Context, rt limits.BreakGlassRuntime) error {
	return putJSON(ctx, s.client, keyBreakGlass, rt)
}
