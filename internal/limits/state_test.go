package limits

import (
	"testing"
	"time"
)

var testConfig = SiteConfig{
	ID:              "x",
	Label:           "X / Twitter",
	Domains:         []string{"x.com", "twitter.com"},
	DailyLimitSec:   1800,
	SessionLimitSec: 600,
	CooldownSec:     120,
	Enabled:         true,
}

func localTime(year int, month time.Month, day, hour, minute, sec int) time.Time {
	return time.Date(year, month, day, hour, minute, sec, 0, time.Local)
}

func TestApplyHeartbeat_SessionLimitEntersCooldown(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := NewUsageState(now)

	next := ApplyHeartbeat(state, testConfig, now, 600)

	if next.Mode != ModeCooldown {
		t.Fatalf("mode = %v, want %v", next.Mode, ModeCooldown)
	}
	if next.SessionUsedSec != 0 {
		t.Errorf("session used = %d, want 0 after cooldown entry", next.SessionUsedSec)
	}
	if next.DailyUsedSec != 600 {
		t.Errorf("daily used = %d, want 600", next.DailyUsedSec)
	}
	wantUntil := now.Add(120 * time.Second)
	if next.BlockedUntil == nil || !next.BlockedUntil.Equal(wantUntil) {
		t.Errorf("blocked until = %v, want %v", next.BlockedUntil, wantUntil)
	}
	if next.LastHeartbeat == nil || !next.LastHeartbeat.Equal(now) {
		t.Errorf("last heartbeat = %v, want %v", next.LastHeartbeat, now)
	}
}

func TestApplyHeartbeat_DailyLimitBlocksUntilMidnight(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := NewUsageState(now)

	next := ApplyHeartbeat(state, testConfig, now, 1800)

	if next.Mode != ModeDailyBlock {
		t.Fatalf("mode = %v, want %v", next.Mode, ModeDailyBlock)
	}
	if next.DailyUsedSec != testConfig.DailyLimitSec {
		t.Errorf("daily used = %d, want clamped to %d", next.DailyUsedSec, testConfig.DailyLimitSec)
	}
	wantUntil := localTime(2026, time.February, 13, 0, 0, 0)
	if next.BlockedUntil == nil || !next.BlockedUntil.Equal(wantUntil) {
		t.Errorf("blocked until = %v, want next local midnight %v", next.BlockedUntil, wantUntil)
	}
}

func TestApplyHeartbeat_DailyLimitTakesPriorityOverSession(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := NewUsageState(now)
	state.DailyUsedSec = 1700
	state.SessionUsedSec = 500

	// Delta crosses both limits at once; daily wins.
	next := ApplyHeartbeat(state, testConfig, now, 150)

	if next.Mode != ModeDailyBlock {
		t.Fatalf("mode = %v, want %v", next.Mode, ModeDailyBlock)
	}
	if next.DailyUsedSec != testConfig.DailyLimitSec {
		t.Errorf("daily used = %d, want %d", next.DailyUsedSec, testConfig.DailyLimitSec)
	}
}

func TestApplyHeartbeat_DayRollover(t *testing.T) {
	stale := UsageState{
		DayKey:         "2026-02-12",
		DailyUsedSec:   1800,
		SessionUsedSec: 400,
		Mode:           ModeDailyBlock,
		BlockedUntil:   ptrTime(localTime(2026, time.February, 13, 0, 0, 0)),
	}
	now := localTime(2026, time.February, 13, 0, 1, 0)

	next := ApplyHeartbeat(stale, testConfig, now, 0)

	if next.DayKey != "2026-02-13" {
		t.Errorf("day key = %q, want 2026-02-13", next.DayKey)
	}
	if next.DailyUsedSec != 0 || next.SessionUsedSec != 0 {
		t.Errorf("counters = %d/%d, want reset to zero", next.DailyUsedSec, next.SessionUsedSec)
	}
	if next.Mode != ModeAllowed || next.BlockedUntil != nil {
		t.Errorf("mode = %v blockedUntil = %v, want allowed/nil", next.Mode, next.BlockedUntil)
	}
}

func TestApplyHeartbeat_RolloverIsIdempotent(t *testing.T) {
	stale := UsageState{DayKey: "2026-02-12", DailyUsedSec: 900, Mode: ModeAllowed}
	first := localTime(2026, time.February, 13, 8, 0, 0)
	second := first.Add(5 * time.Second)

	next := ApplyHeartbeat(stale, testConfig, first, 5)
	if next.DailyUsedSec != 5 {
		t.Fatalf("daily used after rollover = %d, want 5", next.DailyUsedSec)
	}

	next = ApplyHeartbeat(next, testConfig, second, 5)
	if next.DailyUsedSec != 10 {
		t.Errorf("daily used after second tick = %d, want 10 (no second reset)", next.DailyUsedSec)
	}
}

func TestApplyHeartbeat_BlockedStateHaltsAccrual(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	blocked := UsageState{
		DayKey:       DayKey(now),
		DailyUsedSec: 600,
		Mode:         ModeCooldown,
		BlockedUntil: ptrTime(now.Add(60 * time.Second)),
	}

	for _, delta := range []int{0, 1, 5, 100000} {
		next := ApplyHeartbeat(blocked, testConfig, now, delta)
		if next.DailyUsedSec != 600 || next.SessionUsedSec != 0 {
			t.Errorf("delta %d: counters = %d/%d, want unchanged 600/0", delta, next.DailyUsedSec, next.SessionUsedSec)
		}
		if next.Mode != ModeCooldown {
			t.Errorf("delta %d: mode = %v, want still %v", delta, next.Mode, ModeCooldown)
		}
		if next.LastHeartbeat == nil || !next.LastHeartbeat.Equal(now) {
			t.Errorf("delta %d: last heartbeat not updated", delta)
		}
	}
}

func TestApplyHeartbeat_AutoUnblockThenAccrueInOneCall(t *testing.T) {
	start := localTime(2026, time.February, 12, 10, 0, 0)
	blocked := UsageState{
		DayKey:       DayKey(start),
		DailyUsedSec: 600,
		Mode:         ModeCooldown,
		BlockedUntil: ptrTime(start.Add(120 * time.Second)),
	}

	now := start.Add(121 * time.Second)
	next := ApplyHeartbeat(blocked, testConfig, now, 5)

	if next.Mode != ModeAllowed {
		t.Fatalf("mode = %v, want %v after deadline elapsed", next.Mode, ModeAllowed)
	}
	if next.BlockedUntil != nil {
		t.Errorf("blocked until = %v, want nil", next.BlockedUntil)
	}
	if next.DailyUsedSec != 605 {
		t.Errorf("daily used = %d, want 605 (delta applied in same call)", next.DailyUsedSec)
	}
	if next.SessionUsedSec != 5 {
		t.Errorf("session used = %d, want 5", next.SessionUsedSec)
	}
}

func TestApplyHeartbeat_NegativeDeltaClampedToZero(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := NewUsageState(now)
	state.DailyUsedSec = 100
	state.SessionUsedSec = 100

	next := ApplyHeartbeat(state, testConfig, now, -30)

	if next.DailyUsedSec != 100 || next.SessionUsedSec != 100 {
		t.Errorf("counters = %d/%d, want unchanged with negative delta", next.DailyUsedSec, next.SessionUsedSec)
	}
}

func TestApplyHeartbeat_CounterBounds(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)

	tests := []struct {
		name  string
		state UsageState
		delta int
	}{
		{"fresh state small delta", NewUsageState(now), 5},
		{"near daily limit", UsageState{DayKey: DayKey(now), DailyUsedSec: 1799, Mode: ModeAllowed}, 500},
		{"huge delta", NewUsageState(now), 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := ApplyHeartbeat(tt.state, testConfig, now, tt.delta)
			if next.DailyUsedSec < 0 || next.DailyUsedSec > testConfig.DailyLimitSec {
				t.Errorf("daily used = %d, want within [0, %d]", next.DailyUsedSec, testConfig.DailyLimitSec)
			}
			if next.SessionUsedSec < 0 {
				t.Errorf("session used = %d, want non-negative", next.SessionUsedSec)
			}
		})
	}
}

func TestIsBlocked_RawCheckWithoutNormalization(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)

	tests := []struct {
		name  string
		state UsageState
		want  bool
	}{
		{"allowed", UsageState{Mode: ModeAllowed}, false},
		{"cooldown active", UsageState{Mode: ModeCooldown, BlockedUntil: ptrTime(now.Add(time.Minute))}, true},
		{"cooldown elapsed", UsageState{Mode: ModeCooldown, BlockedUntil: ptrTime(now.Add(-time.Minute))}, false},
		{"daily block at exact deadline", UsageState{Mode: ModeDailyBlock, BlockedUntil: ptrTime(now)}, false},
		{"blocked mode without deadline", UsageState{Mode: ModeCooldown}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlocked(tt.state, now); got != tt.want {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkWarningIssued_ClearedByCooldownAndRollover(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := NewUsageState(now)
	state.SessionUsedSec = 550

	state = MarkWarningIssued(state)
	if !state.WarningIssued {
		t.Fatal("warning flag not set")
	}

	// Entering cooldown starts a new session and clears the flag.
	next := ApplyHeartbeat(state, testConfig, now, 60)
	if next.Mode != ModeCooldown {
		t.Fatalf("mode = %v, want cooldown", next.Mode)
	}
	if next.WarningIssued {
		t.Error("warning flag survived cooldown entry")
	}

	// Rollover also clears it.
	state = MarkWarningIssued(NewUsageState(now))
	next = ApplyHeartbeat(state, testConfig, localTime(2026, time.February, 13, 8, 0, 0), 1)
	if next.WarningIssued {
		t.Error("warning flag survived day rollover")
	}
}

func TestNormalizeUsageState(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)

	tests := []struct {
		name  string
		state UsageState
		check func(t *testing.T, got UsageState)
	}{
		{
			name:  "garbage day key resets",
			state: UsageState{DayKey: "not-a-day", DailyUsedSec: 500, Mode: ModeAllowed},
			check: func(t *testing.T, got UsageState) {
				if got.DayKey != DayKey(now) || got.DailyUsedSec != 0 {
					t.Errorf("got %+v, want fresh state", got)
				}
			},
		},
		{
			name:  "unknown mode resets",
			state: UsageState{DayKey: DayKey(now), Mode: Mode("BANANAS")},
			check: func(t *testing.T, got UsageState) {
				if got.Mode != ModeAllowed {
					t.Errorf("mode = %v, want allowed", got.Mode)
				}
			},
		},
		{
			name:  "negative counters clamp to zero",
			state: UsageState{DayKey: DayKey(now), DailyUsedSec: -5, SessionUsedSec: -1, Mode: ModeAllowed},
			check: func(t *testing.T, got UsageState) {
				if got.DailyUsedSec != 0 || got.SessionUsedSec != 0 {
					t.Errorf("counters = %d/%d, want 0/0", got.DailyUsedSec, got.SessionUsedSec)
				}
			},
		},
		{
			name:  "allowed mode drops stray deadline",
			state: UsageState{DayKey: DayKey(now), Mode: ModeAllowed, BlockedUntil: ptrTime(now.Add(time.Hour))},
			check: func(t *testing.T, got UsageState) {
				if got.BlockedUntil != nil {
					t.Errorf("blocked until = %v, want nil for allowed", got.BlockedUntil)
				}
			},
		},
		{
			name:  "blocked mode without deadline falls back to allowed",
			state: UsageState{DayKey: DayKey(now), Mode: ModeDailyBlock},
			check: func(t *testing.T, got UsageState) {
				if got.Mode != ModeAllowed {
					t.Errorf("mode = %v, want allowed", got.Mode)
				}
			},
		},
		{
			name:  "stale day resets",
			state: UsageState{DayKey: "2026-02-11", DailyUsedSec: 900, Mode: ModeAllowed},
			check: func(t *testing.T, got UsageState) {
				if got.DayKey != DayKey(now) || got.DailyUsedSec != 0 {
					t.Errorf("got %+v, want fresh state for current day", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NormalizeUsageState(tt.state, now))
		})
	}
}
