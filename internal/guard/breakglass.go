package guard

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/kaigosha/sitewarden/internal/limits"
	"github.com/kaigosha/sitewarden/internal/metrics"
	"github.com/kaigosha/sitewarden/internal/storage"
)

// MinPINLength is the shortest accepted break-glass PIN.
const MinPINLength = 4

// ActivateBreakGlass verifies the PIN and starts a time-boxed override
// for siteID. The returned status reflects the site with the override in
// force.
func (g *Guard) ActivateBreakGlass(ctx context.Context, siteID, pin string) (*limits.SiteStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	cfg := g.settings.SiteByID(siteID)
	if cfg == nil {
		return nil, ErrUnknownSite
	}

	bg := g.settings.BreakGlass
	if !bg.Enabled {
		return nil, g.refuseBreakGlassLocked(ctx, siteID, "disabled", ErrBreakGlassDisabled)
	}
	if !bg.Configured() {
		return nil, g.refuseBreakGlassLocked(ctx, siteID, "pin_not_configured", ErrPINNotConfigured)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(bg.PINHash), []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, g.refuseBreakGlassLocked(ctx, siteID, "invalid_pin", ErrInvalidPIN)
		}
		return nil, err
	}

	next, ok := limits.ActivateBreakGlass(g.breakGlass, bg.Policy(), siteID, now)
	g.breakGlass = next
	if !ok {
		g.persistBreakGlass(ctx)
		return nil, g.refuseBreakGlassLocked(ctx, siteID, "quota_exhausted", ErrQuotaExhausted)
	}

	g.persistBreakGlass(ctx)
	g.updateOverrideGauge(now)

	metrics.BreakGlassActivations.WithLabelValues(siteID).Inc()
	g.recordEvent(ctx, storage.EventBreakGlassActivated, siteID, map[string]any{
		"until":      g.breakGlass.Active.Until,
		"uses_today": g.breakGlass.Usage.Count,
	})
	g.notifier.BreakGlassActivated(siteID, bg.DurationSec)
	g.logger.Info().
		Str("site", siteID).
		Time("until", g.breakGlass.Active.Until).
		Int("uses_today", g.breakGlass.Usage.Count).
		Msg("Break-glass override activated")

	state, ok := g.states[siteID]
	if !ok {
		state = limits.NewUsageState(now)
	}
	state = limits.NormalizeUsageState(state, now)
	status := limits.ProjectStatus(*cfg, state, g.breakGlass, now)
	return &status, nil
}

func (g *Guard) refuseBreakGlassLocked(ctx context.Context, siteID, reason string, err error) error {
	metrics.BreakGlassRefusals.WithLabelValues(reason).Inc()
	g.recordEvent(ctx, storage.EventBreakGlassRefused, siteID, map[string]any{
		"reason": reason,
	})
	g.logger.Warn().
		Str("site", siteID).
		Str("reason", reason).
		Msg("Break-glass activation refused")
	return err
}

// SetPIN hashes and stores a new break-glass PIN.
func (g *Guard) SetPIN(ctx context.Context, pin string) error {
	if len(pin) < MinPINLength {
		return ErrPINTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.settings.BreakGlass.PINHash = string(hash)
	if err := g.persistSettings(ctx); err != nil {
		return err
	}
	g.recordEvent(ctx, storage.EventBreakGlassPINSet, "", nil)
	g.logger.Info().Msg("Break-glass PIN set")
	return nil
}

// ClearPIN removes the stored PIN. Any active override keeps running
// until it expires.
func (g *Guard) ClearPIN(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.settings.BreakGlass.PINHash = ""
	if err := g.persistSettings(ctx); err != nil {
		return err
	}
	g.recordEvent(ctx, storage.EventBreakGlassPINCleared, "", nil)
	g.logger.Info().Msg("Break-glass PIN cleared")
	return nil
}

// BreakGlassState reports whether an override is active and for which
// site, plus remaining daily uses.
type BreakGlassState struct {
	Active       bool   `json:"active"`
	SiteID       string `json:"site_id,omitempty"`
	RemainingSec int    `json:"remaining_sec,omitempty"`
	UsesToday    int    `json:"uses_today"`
	UsesLeft     int    `json:"uses_left"`
	Configured   bool   `json:"configured"`
	Enabled      bool   `json:"enabled"`
}

// BreakGlass returns the current override state.
func (g *Guard) BreakGlass() BreakGlassState {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	rt := limits.NormalizeBreakGlassRuntime(g.breakGlass, now)

	state := BreakGlassState{
		UsesToday:  rt.Usage.Count,
		UsesLeft:   max(0, g.settings.BreakGlass.MaxUsesPerDay-rt.Usage.Count),
		Configured: g.settings.BreakGlass.Configured(),
		Enabled:    g.settings.BreakGlass.Enabled,
	}
	if rt.Active != nil {
		state.Active = true
		state.SiteID = rt.Active.SiteID
		state.RemainingSec = limits.RemainingSec(rt.Active.Until, now)
	}
	return state
}
