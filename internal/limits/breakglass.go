package limits

import "time"

// NewBreakGlassRuntime returns the initial override state for the
// calendar day of now: no active grant, zero activations used.
func NewBreakGlassRuntime(now time.Time) BreakGlassRuntime {
	return BreakGlassRuntime{
		Usage: BreakGlassUsage{DayKey: DayKey(now), Count: 0},
	}
}

// NormalizeBreakGlassRuntime is a total function over a possibly
// corrupted persisted record. It resets the usage counter when its day
// key no longer matches the calendar day of now, and drops a grant that
// has expired or names no site.
func NormalizeBreakGlassRuntime(rt BreakGlassRuntime, now time.Time) BreakGlassRuntime {
	dayKey := DayKey(now)

	usage := rt.Usage
	if !ParseDayKey(usage.DayKey, now.Location()) || usage.Count < 0 {
		usage = BreakGlassUsage{DayKey: dayKey, Count: 0}
	}
	if usage.DayKey != dayKey {
		usage = BreakGlassUsage{DayKey: dayKey, Count: 0}
	}

	active := rt.Active
	if active != nil && (active.SiteID == "" || !now.Before(active.Until)) {
		active = nil
	}

	return BreakGlassRuntime{Active: active, Usage: usage}
}

// IsBreakGlassActive reports whether an override is currently in force
// for siteID.
func IsBreakGlassActive(rt BreakGlassRuntime, siteID string, now time.Time) bool {
	normalized := NormalizeBreakGlassRuntime(rt, now)
	return normalized.Active != nil &&
		normalized.Active.SiteID == siteID &&
		now.Before(normalized.Active.Until)
}

// CanActivateBreakGlass reports whether a new override may be started:
// the feature must be enabled and the daily activation quota not yet
// exhausted.
func CanActivateBreakGlass(rt BreakGlassRuntime, cfg BreakGlassConfig, now time.Time) bool {
	if !cfg.Enabled {
		return false
	}
	normalized := NormalizeBreakGlassRuntime(rt, now)
	return normalized.Usage.Count < cfg.MaxUsesPerDay
}

// ActivateBreakGlass starts a time-boxed override for siteID and counts
// it against the daily quota. There is a single global grant slot: a new
// activation supersedes any prior active override, including one for a
// different site. Secret verification is the caller's responsibility.
// Returns the unchanged normalized runtime and false when activation is
// not permitted.
func ActivateBreakGlass(rt BreakGlassRuntime, cfg BreakGlassConfig, siteID string, now time.Time) (BreakGlassRuntime, bool) {
	normalized := NormalizeBreakGlassRuntime(rt, now)

	if !CanActivateBreakGlass(normalized, cfg, now) {
		return normalized, false
	}

	return BreakGlassRuntime{
		Active: &BreakGlassGrant{
			SiteID: siteID,
			Until:  now.Add(time.Duration(cfg.DurationSec) * time.Second),
		},
		Usage: BreakGlassUsage{
			DayKey: normalized.Usage.DayKey,
			Count:  normalized.Usage.Count + 1,
		},
	}, true
}
