package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaigosha/sitewarden/internal/limits"
	"github.com/kaigosha/sitewarden/internal/settings"
	"github.com/kaigosha/sitewarden/internal/storage"
)

// SiteInput is the admin payload for creating or updating a site.
type SiteInput struct {
	Label           string   `json:"label"`
	Domains         []string `json:"domains"`
	DailyLimitSec   int      `json:"daily_limit_sec"`
	SessionLimitSec int      `json:"session_limit_sec"`
	CooldownSec     int      `json:"cooldown_sec"`
	Enabled         bool     `json:"enabled"`
}

func (in SiteInput) validate() ([]string, error) {
	domains := make([]string, 0, len(in.Domains))
	for _, raw := range in.Domains {
		if domain := settings.NormalizeDomainCandidate(raw); domain != "" {
			domains = append(domains, domain)
		}
	}
	domains = settings.NormalizeDomains(domains)
	if len(domains) == 0 {
		return nil, fmt.Errorf("%w: at least one valid domain is required", ErrInvalidSite)
	}

	if in.DailyLimitSec <= 0 {
		return nil, fmt.Errorf("%w: daily limit must be positive", ErrInvalidSite)
	}
	if in.SessionLimitSec <= 0 {
		return nil, fmt.Errorf("%w: session limit must be positive", ErrInvalidSite)
	}
	if in.SessionLimitSec > in.DailyLimitSec {
		return nil, fmt.Errorf("%w: session limit cannot exceed daily limit", ErrInvalidSite)
	}
	if in.CooldownSec <= 0 {
		return nil, fmt.Errorf("%w: cooldown must be positive", ErrInvalidSite)
	}

	return domains, nil
}

// AddSite creates a new tracked site and returns its stored form.
func (g *Guard) AddSite(ctx context.Context, in SiteInput) (limits.SiteConfig, error) {
	domains, err := in.validate()
	if err != nil {
		return limits.SiteConfig{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existing := make(map[string]struct{}, len(g.settings.Sites))
	for _, site := range g.settings.Sites {
		existing[site.ID] = struct{}{}
	}

	base := settings.SanitizeSiteID(in.Label, len(g.settings.Sites)+1)
	id := settings.MakeUniqueSiteID(base, existing)

	site := limits.SiteConfig{
		ID:              id,
		Label:           in.Label,
		Domains:         domains,
		DailyLimitSec:   in.DailyLimitSec,
		SessionLimitSec: in.SessionLimitSec,
		CooldownSec:     in.CooldownSec,
		Enabled:         in.Enabled,
	}

	g.settings.Sites = append(g.settings.Sites, site)
	if err := g.persistSettings(ctx); err != nil {
		g.settings.Sites = g.settings.Sites[:len(g.settings.Sites)-1]
		return limits.SiteConfig{}, err
	}

	g.states[id] = limits.NewUsageState(g.clock.Now())
	g.persistState(ctx, id)
	g.rebuildMatchersLocked()

	g.recordEvent(ctx, storage.EventSiteAdded, id, map[string]any{"domains": domains})
	g.logger.Info().Str("site", id).Strs("domains", domains).Msg("Site added")
	return site, nil
}

// UpdateSite replaces the configuration of an existing site. The site's
// usage state is preserved.
func (g *Guard) UpdateSite(ctx context.Context, siteID string, in SiteInput) (limits.SiteConfig, error) {
	domains, err := in.validate()
	if err != nil {
		return limits.SiteConfig{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := g.settings.SiteByID(siteID)
	if cfg == nil {
		return limits.SiteConfig{}, ErrUnknownSite
	}

	prev := *cfg
	cfg.Label = in.Label
	cfg.Domains = domains
	cfg.DailyLimitSec = in.DailyLimitSec
	cfg.SessionLimitSec = in.SessionLimitSec
	cfg.CooldownSec = in.CooldownSec
	cfg.Enabled = in.Enabled

	if err := g.persistSettings(ctx); err != nil {
		*cfg = prev
		return limits.SiteConfig{}, err
	}

	g.rebuildMatchersLocked()
	g.recordEvent(ctx, storage.EventSiteUpdated, siteID, map[string]any{"domains": domains})
	g.logger.Info().Str("site", siteID).Msg("Site updated")
	return *cfg, nil
}

// DeleteSite removes a site together with its usage state. The last
// remaining site cannot be deleted. A break-glass override held by the
// deleted site is dropped.
func (g *Guard) DeleteSite(ctx context.Context, siteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settings.SiteByID(siteID) == nil {
		return ErrUnknownSite
	}
	if len(g.settings.Sites) <= 1 {
		return ErrLastSite
	}

	kept := make([]limits.SiteConfig, 0, len(g.settings.Sites)-1)
	for _, site := range g.settings.Sites {
		if site.ID != siteID {
			kept = append(kept, site)
		}
	}

	prev := g.settings.Sites
	g.settings.Sites = kept
	if err := g.persistSettings(ctx); err != nil {
		g.settings.Sites = prev
		return err
	}

	delete(g.states, siteID)
	if err := g.store.Runtime().Delete(ctx, siteID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		g.logger.Error().Err(err).Str("site", siteID).Msg("Failed to delete usage state")
	}

	if g.breakGlass.Active != nil && g.breakGlass.Active.SiteID == siteID {
		g.breakGlass.Active = nil
		g.persistBreakGlass(ctx)
		g.updateOverrideGauge(g.clock.Now())
	}

	g.rebuildMatchersLocked()
	g.recordEvent(ctx, storage.EventSiteDeleted, siteID, nil)
	g.logger.Info().Str("site", siteID).Msg("Site deleted")
	return nil
}

// SettingsInput is the admin payload for the non-site parts of settings.
type SettingsInput struct {
	Warning    *settings.WarningConfig `json:"warning,omitempty"`
	BreakGlass *BreakGlassPolicyInput  `json:"break_glass,omitempty"`
	UI         *settings.UIConfig      `json:"ui,omitempty"`
}

// BreakGlassPolicyInput carries the override policy without the PIN
// hash, which is managed only through SetPIN and ClearPIN.
type BreakGlassPolicyInput struct {
	Enabled       bool `json:"enabled"`
	DurationSec   int  `json:"duration_sec"`
	MaxUsesPerDay int  `json:"max_uses_per_day"`
}

// UpdateSettings applies a partial settings update. Omitted sections are
// left untouched.
func (g *Guard) UpdateSettings(ctx context.Context, in SettingsInput) (settings.Settings, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.settings

	if in.Warning != nil {
		if in.Warning.ThresholdSec <= 0 {
			return settings.Settings{}, fmt.Errorf("%w: warning threshold must be positive", ErrInvalidSettings)
		}
		g.settings.Warning = *in.Warning
	}
	if in.BreakGlass != nil {
		if in.BreakGlass.DurationSec <= 0 || in.BreakGlass.MaxUsesPerDay <= 0 {
			return settings.Settings{}, fmt.Errorf("%w: break-glass duration and quota must be positive", ErrInvalidSettings)
		}
		g.settings.BreakGlass.Enabled = in.BreakGlass.Enabled
		g.settings.BreakGlass.DurationSec = in.BreakGlass.DurationSec
		g.settings.BreakGlass.MaxUsesPerDay = in.BreakGlass.MaxUsesPerDay
	}
	if in.UI != nil {
		g.settings.UI = *in.UI
	}

	if err := g.persistSettings(ctx); err != nil {
		g.settings = prev
		return settings.Settings{}, err
	}

	g.recordEvent(ctx, storage.EventSettingsUpdated, "", nil)
	g.logger.Info().Msg("Settings updated")
	return g.settingsCopyLocked(), nil
}

func (g *Guard) rebuildMatchersLocked() {
	g.matchers = limits.CompileMatchers(g.settings.Sites)
	g.hostCache.Purge()
}
