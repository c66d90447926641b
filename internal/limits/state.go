package limits

import "time"

// NewUsageState returns a fresh zeroed state for the calendar day of now.
func NewUsageState(now time.Time) UsageState {
	return UsageState{
		DayKey: DayKey(now),
		Mode:   ModeAllowed,
	}
}

// EnsureCurrentDay resets the state to its initial value when the stored
// day key no longer matches the calendar day of now. Resetting twice on
// the same day is a no-op.
func EnsureCurrentDay(state UsageState, now time.Time) UsageState {
	if state.DayKey == DayKey(now) {
		return state
	}
	return NewUsageState(now)
}

// unblockIfElapsed transitions a blocked state back to allowed once its
// deadline has passed.
func unblockIfElapsed(state UsageState, now time.Time) UsageState {
	if state.Mode != ModeAllowed && state.BlockedUntil != nil && !now.Before(*state.BlockedUntil) {
		state.Mode = ModeAllowed
		state.BlockedUntil = nil
	}
	return state
}

// IsBlocked reports whether the state blocks access at now. This is the
// raw projection check: a state whose deadline has elapsed reports
// not-blocked even before ApplyHeartbeat formally transitions it. Callers
// needing normalized state must apply a zero-delta heartbeat first.
func IsBlocked(state UsageState, now time.Time) bool {
	if state.Mode == ModeAllowed || state.BlockedUntil == nil {
		return false
	}
	return now.Before(*state.BlockedUntil)
}

// ApplyHeartbeat advances the state machine by one tick. deltaSec is the
// elapsed active-use seconds since the previous tick; negative values are
// clamped to zero. The sequence is: day rollover, auto-unblock, then
// accrual. Time does not accrue while blocked. The daily-limit check takes
// priority over the session-limit check; crossing the daily limit clamps
// the daily counter and blocks until the next local midnight, crossing the
// session limit resets the session counter and starts a cooldown.
func ApplyHeartbeat(state UsageState, cfg SiteConfig, now time.Time, deltaSec int) UsageState {
	if deltaSec < 0 {
		deltaSec = 0
	}

	next := EnsureCurrentDay(state, now)
	next = unblockIfElapsed(next, now)
	next.LastHeartbeat = ptrTime(now)

	if IsBlocked(next, now) {
		return next
	}

	dailyUsed := next.DailyUsedSec + deltaSec
	sessionUsed := next.SessionUsedSec + deltaSec

	switch {
	case dailyUsed >= cfg.DailyLimitSec:
		next.DailyUsedSec = cfg.DailyLimitSec
		next.SessionUsedSec = sessionUsed
		next.Mode = ModeDailyBlock
		next.BlockedUntil = ptrTime(NextLocalMidnight(now))

	case sessionUsed >= cfg.SessionLimitSec:
		next.DailyUsedSec = dailyUsed
		next.SessionUsedSec = 0
		next.Mode = ModeCooldown
		next.BlockedUntil = ptrTime(now.Add(time.Duration(cfg.CooldownSec) * time.Second))
		next.WarningIssued = false

	default:
		next.DailyUsedSec = dailyUsed
		next.SessionUsedSec = sessionUsed
		next.Mode = ModeAllowed
		next.BlockedUntil = nil
	}

	return next
}

// MarkWarningIssued records that the in-progress session has already been
// warned about its approaching limit. The flag clears on day rollover and
// when a cooldown starts a new session.
func MarkWarningIssued(state UsageState) UsageState {
	state.WarningIssued = true
	return state
}

// NormalizeUsageState is a total function over a possibly corrupted
// persisted record: any field failing its type or range constraint is
// replaced by a safe default rather than propagating an error. The result
// always satisfies the state invariants for the calendar day of now.
func NormalizeUsageState(state UsageState, now time.Time) UsageState {
	if !ParseDayKey(state.DayKey, now.Location()) || !state.Mode.Valid() {
		return NewUsageState(now)
	}

	if state.DailyUsedSec < 0 {
		state.DailyUsedSec = 0
	}
	if state.SessionUsedSec < 0 {
		state.SessionUsedSec = 0
	}

	// Restore the mode/deadline invariant: allowed states carry no
	// deadline, blocked states without one fall back to allowed.
	if state.Mode == ModeAllowed {
		state.BlockedUntil = nil
	} else if state.BlockedUntil == nil {
		state.Mode = ModeAllowed
	}

	return EnsureCurrentDay(state, now)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
