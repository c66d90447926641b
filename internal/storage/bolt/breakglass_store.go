package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/kaigosha/sitewarden/internal/limits"
)

type breakGlassStore struct {
	db *bbolt.DB
}

func (s *breakGlassStore) Get(ctx context.Context) (*limits.BreakGlassRuntime, error) {
	return getValue[limits.BreakGlassRuntime](ctx, s.db, bucketBreakGlass, breakGlassKey)
}

func (s *breakGlassStore) Put(ctx context.Context, rt limits.BreakGlassRuntime) error {
	return putValue(ctx, s.db, bucketBreakGlass, breakGlassKey, rt)
}
