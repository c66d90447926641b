package limits

import (
	"time"
)

// BlockReason identifies why a site is policy-blocked.
const (
	ReasonDaily    = "daily"
	ReasonCooldown = "cooldown"
)

// SiteLimits echoes the effective limits back to status consumers.
type SiteLimits struct {
	DailyLimitSec   int `json:"daily_limit_sec"`
	SessionLimitSec int `json:"session_limit_sec"`
	CooldownSec     int `json:"cooldown_sec"`
}

// SiteStatus is the display-ready projection of one site's state. It is
// derived on every read and never persisted.
type SiteStatus struct {
	ID                     string     `json:"id"`
	Label                  string     `json:"label"`
	Domains                []string   `json:"domains"`
	Mode                   Mode       `json:"mode"`
	Blocked                bool       `json:"blocked"`
	PolicyBlocked          bool       `json:"policy_blocked"`
	BreakGlassActive       bool       `json:"break_glass_active"`
	BreakGlassRemainingSec int        `json:"break_glass_remaining_sec"`
	Reason                 string     `json:"reason,omitempty"`
	BlockedUntil           *time.Time `json:"blocked_until,omitempty"`
	RemainingSec           int        `json:"remaining_sec"`
	DailyUsedSec           int        `json:"daily_used_sec"`
	DailyRemainingSec      int        `json:"daily_remaining_sec"`
	SessionUsedSec         int        `json:"session_used_sec"`
	SessionRemainingSec    int        `json:"session_remaining_sec"`
	Limits                 SiteLimits `json:"limits"`
}

// RemainingSec returns the whole seconds until target, rounded up and
// floored at zero.
func RemainingSec(target, now time.Time) int {
	if !target.After(now) {
		return 0
	}
	remaining := target.Sub(now)
	sec := int(remaining / time.Second)
	if remaining%time.Second != 0 {
		sec++
	}
	return sec
}

// ProjectStatus combines usage state, break-glass state and configuration
// into a SiteStatus at now. An active override suppresses the blocked flag
// without erasing the underlying usage state or mode.
func ProjectStatus(cfg SiteConfig, state UsageState, rt BreakGlassRuntime, now time.Time) SiteStatus {
	policyBlocked := IsBlocked(state, now)
	breakGlassActive := IsBreakGlassActive(rt, cfg.ID, now)

	status := SiteStatus{
		ID:               cfg.ID,
		Label:            cfg.Label,
		Domains:          append([]string(nil), cfg.Domains...),
		Mode:             state.Mode,
		Blocked:          policyBlocked && !breakGlassActive,
		PolicyBlocked:    policyBlocked,
		BreakGlassActive: breakGlassActive,
		BlockedUntil:     state.BlockedUntil,
		DailyUsedSec:     state.DailyUsedSec,
		SessionUsedSec:   state.SessionUsedSec,
		Limits: SiteLimits{
			DailyLimitSec:   cfg.DailyLimitSec,
			SessionLimitSec: cfg.SessionLimitSec,
			CooldownSec:     cfg.CooldownSec,
		},
	}

	if policyBlocked {
		if state.Mode == ModeDailyBlock {
			status.Reason = ReasonDaily
		} else {
			status.Reason = ReasonCooldown
		}
		if state.BlockedUntil != nil {
			status.RemainingSec = RemainingSec(*state.BlockedUntil, now)
		}
	}

	if rt.Active != nil {
		status.BreakGlassRemainingSec = RemainingSec(rt.Active.Until, now)
	}

	status.DailyRemainingSec = max(0, cfg.DailyLimitSec-state.DailyUsedSec)
	status.SessionRemainingSec = max(0, cfg.SessionLimitSec-state.SessionUsedSec)

	return status
}
