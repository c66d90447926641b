package settings

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/kaigosha/sitewarden/internal/limits"
)

// Migration notes returned by Normalize, recorded into diagnostics by the
// caller.
const (
	NoteMigratedLegacy = "settings_migrated_to_v2"
	NoteDefaultsUsed   = "settings_defaults_applied"
)

var (
	domainPattern = regexp.MustCompile(`^[a-z0-9.-]+$`)
	idStripper    = regexp.MustCompile(`[^a-z0-9-_]`)
	idSqueezer    = regexp.MustCompile(`-+`)
)

type rawSite struct {
	ID              *string  `json:"id"`
	Label           *string  `json:"label"`
	Domains         []string `json:"domains"`
	DailyLimitSec   *int     `json:"daily_limit_sec"`
	SessionLimitSec *int     `json:"session_limit_sec"`
	CooldownSec     *int     `json:"cooldown_sec"`
	Enabled         *bool    `json:"enabled"`
}

type rawWarning struct {
	Enabled      *bool `json:"enabled"`
	ThresholdSec *int  `json:"threshold_sec"`
	Notify       *bool `json:"notify"`
}

type rawBreakGlass struct {
	Enabled       *bool   `json:"enabled"`
	PINHash       *string `json:"pin_hash"`
	DurationSec   *int    `json:"duration_sec"`
	MaxUsesPerDay *int    `json:"max_uses_per_day"`
}

type rawUI struct {
	OverlayEnabled *bool   `json:"overlay_enabled"`
	Position       *string `json:"position"`
}

type rawSettings struct {
	Version    *int              `json:"version"`
	Sites      []json.RawMessage `json:"sites"`
	Warning    *rawWarning       `json:"warning"`
	BreakGlass *rawBreakGlass    `json:"break_glass"`
	UI         *rawUI            `json:"ui"`
}

// legacy v1 per-site record: a map keyed by site id, limits only.
type legacySiteLimits struct {
	DailyLimitSec   *int `json:"daily_limit_sec"`
	SessionLimitSec *int `json:"session_limit_sec"`
	CooldownSec     *int `json:"cooldown_sec"`
}

// Normalize turns arbitrary stored JSON into valid settings. It is total:
// every field failing its constraint falls back to its default, invalid
// sites are dropped, and an empty or unusable record yields the default
// presets. The returned notes describe migrations and fallbacks applied.
func Normalize(raw []byte) (Settings, []string) {
	if len(raw) == 0 {
		return Default(), []string{NoteDefaultsUsed}
	}

	var parsed rawSettings
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if legacy, ok := parseLegacy(raw); ok {
			return legacy, []string{NoteMigratedLegacy}
		}
		return Default(), []string{NoteDefaultsUsed}
	}

	if parsed.Version == nil || *parsed.Version != Version {
		if legacy, ok := parseLegacy(raw); ok {
			return legacy, []string{NoteMigratedLegacy}
		}
		if parsed.Version == nil && len(parsed.Sites) == 0 {
			return Default(), []string{NoteDefaultsUsed}
		}
	}

	var notes []string
	result := Settings{Version: Version}

	seen := make(map[string]struct{})
	for index, rawMsg := range parsed.Sites {
		var site rawSite
		if err := json.Unmarshal(rawMsg, &site); err != nil {
			continue
		}
		normalized, ok := normalizeSite(site, index+1)
		if !ok {
			continue
		}
		if _, dup := seen[normalized.ID]; dup {
			continue
		}
		seen[normalized.ID] = struct{}{}
		result.Sites = append(result.Sites, normalized)
	}

	if len(result.Sites) == 0 {
		return Default(), []string{NoteDefaultsUsed}
	}

	result.Warning = normalizeWarning(parsed.Warning)
	result.BreakGlass = normalizeBreakGlass(parsed.BreakGlass)
	result.UI = normalizeUI(parsed.UI)

	return result, notes
}

func parseLegacy(raw []byte) (Settings, bool) {
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return Settings{}, false
	}

	// Legacy records are keyed by the preset site ids and carry no
	// version marker.
	if _, ok := byID["version"]; ok {
		return Settings{}, false
	}
	if _, ok := byID["x"]; !ok {
		if _, ok := byID["instagram"]; !ok {
			return Settings{}, false
		}
	}

	result := Default()
	for i := range result.Sites {
		rawLimits, ok := byID[result.Sites[i].ID]
		if !ok {
			continue
		}
		var legacy legacySiteLimits
		if err := json.Unmarshal(rawLimits, &legacy); err != nil {
			continue
		}

		daily := valueOrDefault(legacy.DailyLimitSec, result.Sites[i].DailyLimitSec)
		session := valueOrDefault(legacy.SessionLimitSec, result.Sites[i].SessionLimitSec)
		cooldown := valueOrDefault(legacy.CooldownSec, result.Sites[i].CooldownSec)
		if session > daily {
			continue
		}

		result.Sites[i].DailyLimitSec = daily
		result.Sites[i].SessionLimitSec = session
		result.Sites[i].CooldownSec = cooldown
	}

	return result, true
}

func valueOrDefault(value *int, fallback int) int {
	if value != nil && *value > 0 {
		return *value
	}
	return fallback
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func normalizeSite(raw rawSite, fallbackIndex int) (limits.SiteConfig, bool) {
	site := limits.SiteConfig{
		ID:      SanitizeSiteID(stringValue(raw.ID), fallbackIndex),
		Domains: NormalizeDomains(raw.Domains),
		Enabled: true,
	}

	if label := strings.TrimSpace(stringValue(raw.Label)); label != "" {
		site.Label = label
	} else {
		site.Label = fmt.Sprintf("Site %d", fallbackIndex)
	}
	if raw.Enabled != nil {
		site.Enabled = *raw.Enabled
	}

	if len(site.Domains) == 0 {
		return limits.SiteConfig{}, false
	}

	if raw.DailyLimitSec == nil || raw.SessionLimitSec == nil || raw.CooldownSec == nil {
		return limits.SiteConfig{}, false
	}
	site.DailyLimitSec = *raw.DailyLimitSec
	site.SessionLimitSec = *raw.SessionLimitSec
	site.CooldownSec = *raw.CooldownSec

	if site.DailyLimitSec <= 0 || site.SessionLimitSec <= 0 || site.CooldownSec <= 0 {
		return limits.SiteConfig{}, false
	}
	if site.SessionLimitSec > site.DailyLimitSec {
		return limits.SiteConfig{}, false
	}

	return site, true
}

func normalizeWarning(raw *rawWarning) WarningConfig {
	result := Default().Warning
	if raw == nil {
		return result
	}
	if raw.Enabled != nil {
		result.Enabled = *raw.Enabled
	}
	if raw.ThresholdSec != nil && *raw.ThresholdSec > 0 {
		result.ThresholdSec = *raw.ThresholdSec
	}
	if raw.Notify != nil {
		result.Notify = *raw.Notify
	}
	return result
}

func normalizeBreakGlass(raw *rawBreakGlass) BreakGlassConfig {
	result := Default().BreakGlass
	if raw == nil {
		return result
	}
	if raw.Enabled != nil {
		result.Enabled = *raw.Enabled
	}
	if raw.PINHash != nil && *raw.PINHash != "" {
		result.PINHash = *raw.PINHash
	}
	if raw.DurationSec != nil && *raw.DurationSec > 0 {
		result.DurationSec = *raw.DurationSec
	}
	if raw.MaxUsesPerDay != nil && *raw.MaxUsesPerDay > 0 {
		result.MaxUsesPerDay = *raw.MaxUsesPerDay
	}
	return result
}

func normalizeUI(raw *rawUI) UIConfig {
	result := Default().UI
	if raw == nil {
		return result
	}
	if raw.OverlayEnabled != nil {
		result.OverlayEnabled = *raw.OverlayEnabled
	}
	if raw.Position != nil && validPosition(*raw.Position) {
		result.Position = *raw.Position
	}
	return result
}

func validPosition(pos string) bool {
	switch pos {
	case "top-right", "top-left", "bottom-right", "bottom-left":
		return true
	}
	return false
}

// NormalizeDomainCandidate validates and canonicalizes a single domain
// entry from user input. Full URLs are reduced to their hostname,
// wildcard and dot prefixes are stripped, and anything that does not look
// like a dotted hostname is rejected with "".
func NormalizeDomainCandidate(input string) string {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return ""
	}

	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Hostname() == "" {
			return ""
		}
		value = strings.ToLower(parsed.Hostname())
	}

	value = strings.TrimPrefix(value, "*.")
	value = strings.TrimPrefix(value, ".")
	if i := strings.IndexByte(value, '/'); i >= 0 {
		value = value[:i]
	}

	if !domainPattern.MatchString(value) {
		return ""
	}
	if !strings.Contains(value, ".") || strings.HasSuffix(value, ".") {
		return ""
	}

	return value
}

// NormalizeDomains canonicalizes a domain list, dropping invalid entries
// and duplicates while preserving order.
func NormalizeDomains(domains []string) []string {
	normalized := make([]string, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))

	for _, domain := range domains {
		valid := NormalizeDomainCandidate(domain)
		if valid == "" {
			continue
		}
		if _, dup := seen[valid]; dup {
			continue
		}
		seen[valid] = struct{}{}
		normalized = append(normalized, valid)
	}

	return normalized
}

// SanitizeSiteID reduces an arbitrary string to a stable lowercase
// identifier, falling back to "site-<n>" when nothing usable remains.
func SanitizeSiteID(value string, fallbackIndex int) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = idStripper.ReplaceAllString(normalized, "-")
	normalized = idSqueezer.ReplaceAllString(normalized, "-")
	normalized = strings.Trim(normalized, "-")

	if normalized == "" {
		return fmt.Sprintf("site-%d", fallbackIndex)
	}
	return normalized
}

// MakeUniqueSiteID appends a numeric suffix until the id does not collide
// with an existing one.
func MakeUniqueSiteID(base string, existing map[string]struct{}) string {
	id := SanitizeSiteID(base, 1)
	if _, taken := existing[id]; !taken {
		return id
	}

	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", id, i)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}
