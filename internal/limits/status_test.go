package limits

import (
	"testing"
	"time"
)

func TestProjectStatus_Allowed(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := NewUsageState(now)
	state.DailyUsedSec = 300
	state.SessionUsedSec = 120

	status := ProjectStatus(testConfig, state, NewBreakGlassRuntime(now), now)

	if status.Blocked || status.PolicyBlocked {
		t.Errorf("blocked = %v/%v, want not blocked", status.Blocked, status.PolicyBlocked)
	}
	if status.Reason != "" {
		t.Errorf("reason = %q, want empty when not blocked", status.Reason)
	}
	if status.DailyRemainingSec != 1500 {
		t.Errorf("daily remaining = %d, want 1500", status.DailyRemainingSec)
	}
	if status.SessionRemainingSec != 480 {
		t.Errorf("session remaining = %d, want 480", status.SessionRemainingSec)
	}
}

func TestProjectStatus_CooldownBlocked(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := UsageState{
		DayKey:       DayKey(now),
		DailyUsedSec: 600,
		Mode:         ModeCooldown,
		BlockedUntil: ptrTime(now.Add(90*time.Second + 500*time.Millisecond)),
	}

	status := ProjectStatus(testConfig, state, NewBreakGlassRuntime(now), now)

	if !status.Blocked || !status.PolicyBlocked {
		t.Fatalf("blocked = %v/%v, want blocked", status.Blocked, status.PolicyBlocked)
	}
	if status.Reason != ReasonCooldown {
		t.Errorf("reason = %q, want %q", status.Reason, ReasonCooldown)
	}
	if status.RemainingSec != 91 {
		t.Errorf("remaining = %d, want 91 (ceil of 90.5s)", status.RemainingSec)
	}
}

func TestProjectStatus_DailyBlockReason(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := UsageState{
		DayKey:       DayKey(now),
		DailyUsedSec: 1800,
		Mode:         ModeDailyBlock,
		BlockedUntil: ptrTime(NextLocalMidnight(now)),
	}

	status := ProjectStatus(testConfig, state, NewBreakGlassRuntime(now), now)

	if status.Reason != ReasonDaily {
		t.Errorf("reason = %q, want %q", status.Reason, ReasonDaily)
	}
	if status.DailyRemainingSec != 0 {
		t.Errorf("daily remaining = %d, want 0", status.DailyRemainingSec)
	}
}

func TestProjectStatus_BreakGlassSuppressesBlock(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := UsageState{
		DayKey:       DayKey(now),
		DailyUsedSec: 600,
		Mode:         ModeCooldown,
		BlockedUntil: ptrTime(now.Add(2 * time.Minute)),
	}
	rt, _ := ActivateBreakGlass(NewBreakGlassRuntime(now), testBreakGlass, "x", now)

	status := ProjectStatus(testConfig, state, rt, now)

	if status.Blocked {
		t.Error("blocked with active override, want suppressed")
	}
	if !status.PolicyBlocked {
		t.Error("policy blocked flag lost, want underlying state preserved")
	}
	if !status.BreakGlassActive {
		t.Error("break-glass active flag not set")
	}
	if status.BreakGlassRemainingSec != 300 {
		t.Errorf("break-glass remaining = %d, want 300", status.BreakGlassRemainingSec)
	}
	if status.Mode != ModeCooldown {
		t.Errorf("mode = %v, want underlying cooldown preserved", status.Mode)
	}
}

func TestProjectStatus_OverrideForOtherSiteDoesNotSuppress(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)
	state := UsageState{
		DayKey:       DayKey(now),
		Mode:         ModeCooldown,
		BlockedUntil: ptrTime(now.Add(time.Minute)),
	}
	rt, _ := ActivateBreakGlass(NewBreakGlassRuntime(now), testBreakGlass, "instagram", now)

	status := ProjectStatus(testConfig, state, rt, now)

	if !status.Blocked {
		t.Error("block suppressed by an override for a different site")
	}
	if status.BreakGlassActive {
		t.Error("break-glass reported active for the wrong site")
	}
}

func TestRemainingSec(t *testing.T) {
	now := localTime(2026, time.February, 12, 10, 0, 0)

	tests := []struct {
		name   string
		target time.Time
		want   int
	}{
		{"in the past", now.Add(-time.Minute), 0},
		{"exactly now", now, 0},
		{"whole seconds", now.Add(30 * time.Second), 30},
		{"fractional rounds up", now.Add(1500 * time.Millisecond), 2},
		{"sub-second rounds up", now.Add(10 * time.Millisecond), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingSec(tt.target, now); got != tt.want {
				t.Errorf("RemainingSec() = %d, want %d", got, tt.want)
			}
		})
	}
}
