package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/kaigosha/sitewarden/internal/limits"
)

type runtimeStore struct {
	db *bbolt.DB
}

func (s *runtimeStore) Get(ctx context.Context, siteID string) (*limits.UsageState, error) {
	return getValue[limits.UsageState](ctx, s.db, bucketRuntime, siteID)
}

func (s *runtimeStore) Put(ctx context.Context, siteID string, state limits.UsageState) error {
	return putValue(ctx, s.db, bucketRuntime, siteID, state)
}

func (s *runtimeStore) All(ctx context.Context) (map[string]limits.UsageState, error) {
	states := make(map[string]limits.UsageState)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketRuntime))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var state limits.UsageState
			if err := unmarshal(v, &state); err != nil {
				// Skip corrupt records, the service rebuilds them.
				return nil
			}
			states[string(k)] = state
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (s *runtimeStore) Delete(ctx context.Context, siteID string) error {
	return deleteValue(ctx, s.db, bucketRuntime, siteID)
}
