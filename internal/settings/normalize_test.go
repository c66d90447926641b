package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EmptyInputYieldsDefaults(t *testing.T) {
	result, notes := Normalize(nil)

	assert.Equal(t, Default(), result)
	assert.Contains(t, notes, NoteDefaultsUsed)
}

func TestNormalize_GarbageInputYieldsDefaults(t *testing.T) {
	for _, raw := range []string{"not json", "42", `"string"`, `[1,2,3]`} {
		result, _ := Normalize([]byte(raw))
		assert.Equal(t, Default(), result, "input %q", raw)
	}
}

func TestNormalize_ValidV2RoundTrips(t *testing.T) {
	original := Default()
	original.Sites[0].DailyLimitSec = 3600
	original.Sites[0].SessionLimitSec = 900
	original.Warning.ThresholdSec = 120
	original.BreakGlass.MaxUsesPerDay = 5

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	result, notes := Normalize(raw)
	assert.Empty(t, notes)
	assert.Equal(t, original, result)
}

func TestNormalize_InvalidSitesDropped(t *testing.T) {
	raw := []byte(`{
		"version": 2,
		"sites": [
			{"id": "ok", "label": "OK", "domains": ["example.com"], "daily_limit_sec": 1800, "session_limit_sec": 600, "cooldown_sec": 120, "enabled": true},
			{"id": "no-domains", "label": "Bad", "domains": ["!!", ""], "daily_limit_sec": 1800, "session_limit_sec": 600, "cooldown_sec": 120},
			{"id": "session-over-daily", "domains": ["b.com"], "daily_limit_sec": 600, "session_limit_sec": 1800, "cooldown_sec": 120},
			{"id": "zero-cooldown", "domains": ["c.com"], "daily_limit_sec": 1800, "session_limit_sec": 600, "cooldown_sec": 0},
			{"id": "ok", "label": "Duplicate", "domains": ["dup.com"], "daily_limit_sec": 1800, "session_limit_sec": 600, "cooldown_sec": 120}
		]
	}`)

	result, _ := Normalize(raw)

	require.Len(t, result.Sites, 1)
	assert.Equal(t, "ok", result.Sites[0].ID)
	assert.Equal(t, "OK", result.Sites[0].Label)
}

func TestNormalize_AllSitesInvalidFallsBackToPresets(t *testing.T) {
	raw := []byte(`{"version": 2, "sites": [{"id": "bad", "domains": []}]}`)

	result, notes := Normalize(raw)

	assert.Equal(t, DefaultSites(), result.Sites)
	assert.Contains(t, notes, NoteDefaultsUsed)
}

func TestNormalize_PerFieldDefaults(t *testing.T) {
	raw := []byte(`{
		"version": 2,
		"sites": [{"id": "s", "domains": ["example.com"], "daily_limit_sec": 1800, "session_limit_sec": 600, "cooldown_sec": 120}],
		"warning": {"threshold_sec": -5},
		"break_glass": {"duration_sec": 0, "max_uses_per_day": 7},
		"ui": {"position": "center"}
	}`)

	result, _ := Normalize(raw)

	assert.Equal(t, DefaultWarningThresholdSec, result.Warning.ThresholdSec)
	assert.Equal(t, DefaultBreakGlassDurationSec, result.BreakGlass.DurationSec)
	assert.Equal(t, 7, result.BreakGlass.MaxUsesPerDay)
	assert.Equal(t, "top-right", result.UI.Position)
}

func TestNormalize_LegacyMigration(t *testing.T) {
	raw := []byte(`{
		"x": {"daily_limit_sec": 3600, "session_limit_sec": 1200, "cooldown_sec": 300},
		"instagram": {"daily_limit_sec": 900, "session_limit_sec": 300, "cooldown_sec": 60}
	}`)

	result, notes := Normalize(raw)

	assert.Contains(t, notes, NoteMigratedLegacy)
	assert.Equal(t, Version, result.Version)

	x := result.SiteByID("x")
	require.NotNil(t, x)
	assert.Equal(t, 3600, x.DailyLimitSec)
	assert.Equal(t, 1200, x.SessionLimitSec)
	assert.Equal(t, 300, x.CooldownSec)

	ig := result.SiteByID("instagram")
	require.NotNil(t, ig)
	assert.Equal(t, 900, ig.DailyLimitSec)
}

func TestNormalize_LegacyInvalidLimitsKeepPreset(t *testing.T) {
	raw := []byte(`{"x": {"daily_limit_sec": 600, "session_limit_sec": 1800, "cooldown_sec": 60}}`)

	result, _ := Normalize(raw)

	x := result.SiteByID("x")
	require.NotNil(t, x)
	assert.Equal(t, DefaultDailyLimitSec, x.DailyLimitSec)
	assert.Equal(t, DefaultSessionLimitSec, x.SessionLimitSec)
}

func TestNormalizeDomainCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.com", "example.com"},
		{"*.example.com", "example.com"},
		{".example.com", "example.com"},
		{"https://www.example.com/path?q=1", "www.example.com"},
		{"example.com/path", "example.com"},
		{"  spaced.com  ", "spaced.com"},
		{"no-dot", ""},
		{"trailing.", ""},
		{"bad chars!", ""},
		{"", ""},
		{"https://", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomainCandidate(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeDomains_DedupesPreservingOrder(t *testing.T) {
	got := NormalizeDomains([]string{"b.com", "A.com", "b.com", "invalid", "*.a.com"})
	assert.Equal(t, []string{"b.com", "a.com"}, got)
}

func TestSanitizeSiteID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Site!", "my-site"},
		{"  X / Twitter ", "x-twitter"},
		{"already-ok_1", "already-ok_1"},
		{"!!!", "site-3"},
		{"", "site-3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeSiteID(tt.in, 3), "input %q", tt.in)
	}
}

func TestMakeUniqueSiteID(t *testing.T) {
	existing := map[string]struct{}{"x": {}, "x-2": {}}

	assert.Equal(t, "x-3", MakeUniqueSiteID("x", existing))
	assert.Equal(t, "fresh", MakeUniqueSiteID("Fresh", existing))
}

func TestMinutesSecondsHelpers(t *testing.T) {
	assert.Equal(t, 90, SecondsFromMinutes(1.5))
	assert.Equal(t, 0, SecondsFromMinutes(-1))
	assert.Equal(t, 1, MinutesFromSeconds(10))
	assert.Equal(t, 2, MinutesFromSeconds(110))
	assert.Equal(t, 0, MinutesFromSeconds(0))
}
