package limits

import (
	"time"
)

// Mode represents the enforcement state of a tracked site.
type Mode string

const (
	ModeAllowed    Mode = "ALLOWED"
	ModeCooldown   Mode = "COOLDOWN"
	ModeDailyBlock Mode = "DAILY_BLOCK"
)

// Valid reports whether the mode is one of the known enforcement states.
func (m Mode) Valid() bool {
	switch m {
	case ModeAllowed, ModeCooldown, ModeDailyBlock:
		return true
	}
	return false
}

// SiteConfig is the immutable per-site policy. It is validated by the
// settings layer before it reaches this package; nothing here mutates it.
type SiteConfig struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Domains         []string `json:"domains"`
	DailyLimitSec   int      `json:"daily_limit_sec"`
	SessionLimitSec int      `json:"session_limit_sec"`
	CooldownSec     int      `json:"cooldown_sec"`
	Enabled         bool     `json:"enabled"`
}

// UsageState is the per-site runtime record. BlockedUntil is non-nil iff
// Mode is not ModeAllowed.
type UsageState struct {
	DayKey         string     `json:"day_key"`
	DailyUsedSec   int        `json:"daily_used_sec"`
	SessionUsedSec int        `json:"session_used_sec"`
	Mode           Mode       `json:"mode"`
	BlockedUntil   *time.Time `json:"blocked_until,omitempty"`
	LastHeartbeat  *time.Time `json:"last_heartbeat,omitempty"`
	WarningIssued  bool       `json:"warning_issued,omitempty"`
}

// BreakGlassConfig is the policy view of the break-glass override. Secret
// verification material is owned by the caller and never enters this package.
type BreakGlassConfig struct {
	Enabled       bool `json:"enabled"`
	DurationSec   int  `json:"duration_sec"`
	MaxUsesPerDay int  `json:"max_uses_per_day"`
}

// BreakGlassGrant is an active override for a single site.
type BreakGlassGrant struct {
	SiteID string    `json:"site_id"`
	Until  time.Time `json:"until"`
}

// BreakGlassUsage counts override activations for one calendar day.
type BreakGlassUsage struct {
	DayKey string `json:"day_key"`
	Count  int    `json:"count"`
}

// BreakGlassRuntime is the global override state. At most one grant is
// active across all sites at any time.
type BreakGlassRuntime struct {
	Active *BreakGlassGrant `json:"active,omitempty"`
	Usage  BreakGlassUsage  `json:"usage"`
}
