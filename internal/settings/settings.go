// Package settings defines the persisted configuration schema for tracked
// sites, session warnings and the break-glass override, together with the
// normalization pass that turns arbitrary stored JSON into a valid value.
package settings

import (
	"encoding/json"

	"github.com/kaigosha/sitewarden/internal/limits"
)

// Version is the current settings schema version. Records at older
// versions are migrated on load.
const Version = 2

// WarningConfig controls the session-ending-soon warning.
type WarningConfig struct {
	Enabled      bool `json:"enabled"`
	ThresholdSec int  `json:"threshold_sec"`
	Notify       bool `json:"notify"`
}

// BreakGlassConfig holds the override policy plus the stored PIN hash.
// The hash is opaque verification material; the limits package never
// sees it.
type BreakGlassConfig struct {
	Enabled       bool   `json:"enabled"`
	PINHash       string `json:"pin_hash,omitempty"`
	DurationSec   int    `json:"duration_sec"`
	MaxUsesPerDay int    `json:"max_uses_per_day"`
}

// Policy returns the part of the break-glass configuration the
// enforcement core consumes.
func (c BreakGlassConfig) Policy() limits.BreakGlassConfig {
	return limits.BreakGlassConfig{
		Enabled:       c.Enabled,
		DurationSec:   c.DurationSec,
		MaxUsesPerDay: c.MaxUsesPerDay,
	}
}

// Configured reports whether a PIN has been set.
func (c BreakGlassConfig) Configured() bool {
	return c.PINHash != ""
}

// UIConfig holds client presentation preferences. The daemon stores and
// echoes these; it does not interpret them.
type UIConfig struct {
	OverlayEnabled bool   `json:"overlay_enabled"`
	Position       string `json:"position"`
}

// Settings is the complete validated configuration.
type Settings struct {
	Version    int                 `json:"version"`
	Sites      []limits.SiteConfig `json:"sites"`
	Warning    WarningConfig       `json:"warning"`
	BreakGlass BreakGlassConfig    `json:"break_glass"`
	UI         UIConfig            `json:"ui"`
}

// SiteByID returns the site with the given id, or nil.
func (s *Settings) SiteByID(id string) *limits.SiteConfig {
	for i := range s.Sites {
		if s.Sites[i].ID == id {
			return &s.Sites[i]
		}
	}
	return nil
}

// Default per-site limits: 30 minutes daily, 10 minute sessions, 2 minute
// cooldown.
const (
	DefaultDailyLimitSec   = 30 * 60
	DefaultSessionLimitSec = 10 * 60
	DefaultCooldownSec     = 2 * 60
)

const (
	DefaultWarningThresholdSec   = 60
	DefaultBreakGlassDurationSec = 5 * 60
	DefaultBreakGlassMaxUses     = 2
)

// DefaultSites returns the preset site list used when no usable site
// configuration exists.
func DefaultSites() []limits.SiteConfig {
	return []limits.SiteConfig{
		{
			ID:              "x",
			Label:           "X / Twitter",
			Domains:         []string{"x.com", "twitter.com"},
			DailyLimitSec:   DefaultDailyLimitSec,
			SessionLimitSec: DefaultSessionLimitSec,
			CooldownSec:     DefaultCooldownSec,
			Enabled:         true,
		},
		{
			ID:              "instagram",
			Label:           "Instagram",
			Domains:         []string{"instagram.com"},
			DailyLimitSec:   DefaultDailyLimitSec,
			SessionLimitSec: DefaultSessionLimitSec,
			CooldownSec:     DefaultCooldownSec,
			Enabled:         true,
		},
	}
}

// Default returns the full default settings value.
func Default() Settings {
	return Settings{
		Version: Version,
		Sites:   DefaultSites(),
		Warning: WarningConfig{
			Enabled:      true,
			ThresholdSec: DefaultWarningThresholdSec,
			Notify:       true,
		},
		BreakGlass: BreakGlassConfig{
			Enabled:       true,
			DurationSec:   DefaultBreakGlassDurationSec,
			MaxUsesPerDay: DefaultBreakGlassMaxUses,
		},
		UI: UIConfig{
			OverlayEnabled: true,
			Position:       "top-right",
		},
	}
}

// Marshal encodes settings for persistence. The PIN hash is included;
// callers exposing settings over an API must blank it first.
func Marshal(s Settings) ([]byte, error) {
	return json.Marshal(s)
}

// SecondsFromMinutes converts a minutes value from a form or API payload
// into whole seconds. Non-positive or non-finite input yields 0.
func SecondsFromMinutes(minutes float64) int {
	if minutes <= 0 {
		return 0
	}
	return int(minutes * 60)
}

// MinutesFromSeconds converts seconds into display minutes, rounding to
// the nearest minute with a floor of one for any positive value.
func MinutesFromSeconds(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	minutes := (seconds + 30) / 60
	if minutes < 1 {
		return 1
	}
	return minutes
}
