package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kaigosha/sitewarden/internal/config"
	"github.com/kaigosha/sitewarden/internal/limits"
	"github.com/kaigosha/sitewarden/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays zero.
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSettingsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Settings().Get(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	raw := []byte(`{"version":2,"sites":[]}`)
	if err := store.Settings().Put(ctx, raw); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("Get() = %s, want %s", got, raw)
	}
}

func TestRuntimeStore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Runtime().Get(ctx, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	now := time.Now().Truncate(time.Second)
	state := limits.UsageState{
		DayKey:         limits.DayKey(now),
		DailyUsedSec:   600,
		SessionUsedSec: 120,
		Mode:           limits.ModeAllowed,
	}
	if err := store.Runtime().Put(ctx, "x", state); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Runtime().Put(ctx, "instagram", limits.NewUsageState(now)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Runtime().Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.DailyUsedSec != 600 || got.SessionUsedSec != 120 {
		t.Errorf("Get() = %+v, want daily=600 session=120", got)
	}

	all, err := store.Runtime().All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("All() returned %d states, want 2", len(all))
	}
	if _, ok := all["instagram"]; !ok {
		t.Error("All() missing instagram state")
	}

	if err := store.Runtime().Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Runtime().Delete(ctx, "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestBreakGlassRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.BreakGlass().Get(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	until := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	rt := limits.BreakGlassRuntime{
		Active: &limits.BreakGlassGrant{SiteID: "x", Until: until},
		Usage:  limits.BreakGlassUsage{DayKey: limits.DayKey(time.Now()), Count: 1},
	}
	if err := store.BreakGlass().Put(ctx, rt); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.BreakGlass().Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Active == nil || got.Active.SiteID != "x" {
		t.Fatalf("Get() = %+v, want active grant for x", got)
	}
	if !got.Active.Until.Equal(until) {
		t.Errorf("grant until = %v, want %v", got.Active.Until, until)
	}
}

func TestEventOrderingAndPrune(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		event := storage.Event{
			ID:        fmt.Sprintf("ev-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Type:      storage.EventHeartbeatBlocked,
			SiteID:    "x",
		}
		if err := store.Events().Append(ctx, event); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	events, err := store.Events().List(ctx, 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("List(3) returned %d events, want 3", len(events))
	}
	if events[0].ID != "ev-9" {
		t.Errorf("newest event = %s, want ev-9", events[0].ID)
	}

	deleted, err := store.Events().Prune(ctx, 4)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 6 {
		t.Errorf("Prune() deleted %d, want 6", deleted)
	}

	events, err = store.Events().List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("List() after prune returned %d events, want 4", len(events))
	}
	if events[len(events)-1].ID != "ev-6" {
		t.Errorf("oldest surviving event = %s, want ev-6", events[len(events)-1].ID)
	}

	if err := store.Events().Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	events, err = store.Events().List(ctx, 0)
	if err != nil {
		t.Fatalf("List() after clear error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("List() after clear returned %d events, want 0", len(events))
	}
}
