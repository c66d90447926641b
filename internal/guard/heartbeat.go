package guard

import (
	"context"
	"time"

	"github.com/kaigosha/sitewarden/internal/limits"
	"github.com/kaigosha/sitewarden/internal/metrics"
	"github.com/kaigosha/sitewarden/internal/storage"
)

// MaxHeartbeatDeltaSec caps how much active time one heartbeat may
// accrue. Ticks arrive roughly once per second; a larger gap means the
// sender was suspended, not that the user watched the page that long.
const MaxHeartbeatDeltaSec = 5

// elapsedDelta derives the accrual for a tick from the time elapsed
// since the previous heartbeat. The first tick of a state counts one
// second, fractional seconds are floored and everything is capped at
// MaxHeartbeatDeltaSec. Deltas are never taken from the client.
func elapsedDelta(prev limits.UsageState, now time.Time) int {
	if prev.LastHeartbeat == nil {
		return 1
	}
	elapsed := now.Sub(*prev.LastHeartbeat)
	if elapsed <= 0 {
		return 0
	}
	sec := int(elapsed / time.Second)
	if sec > MaxHeartbeatDeltaSec {
		return MaxHeartbeatDeltaSec
	}
	return sec
}

// Heartbeat reports active use of a URL. A nil status means the URL is
// not tracked by any site. The returned status reflects the state after
// the tick was applied.
func (g *Guard) Heartbeat(ctx context.Context, rawURL string) (*limits.SiteStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	siteID, ok := g.resolveURLLocked(rawURL)
	if !ok {
		return nil, nil
	}
	return g.heartbeatLocked(ctx, siteID)
}

// HeartbeatSite is Heartbeat for an already-resolved site id.
func (g *Guard) HeartbeatSite(ctx context.Context, siteID string) (*limits.SiteStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settings.SiteByID(siteID) == nil {
		return nil, ErrUnknownSite
	}
	return g.heartbeatLocked(ctx, siteID)
}

func (g *Guard) heartbeatLocked(ctx context.Context, siteID string) (*limits.SiteStatus, error) {
	now := g.clock.Now()
	cfg := g.settings.SiteByID(siteID)
	if cfg == nil {
		return nil, ErrUnknownSite
	}

	g.breakGlass = limits.NormalizeBreakGlassRuntime(g.breakGlass, now)
	g.updateOverrideGauge(now)

	prev, ok := g.states[siteID]
	if !ok {
		prev = limits.NewUsageState(now)
	}

	next := limits.ApplyHeartbeat(prev, *cfg, now, elapsedDelta(prev, now))

	rolled := limits.EnsureCurrentDay(prev, now)
	blockedBefore := limits.IsBlocked(rolled, now)
	accrued := next.DailyUsedSec - rolled.DailyUsedSec
	if accrued > 0 {
		metrics.UsageSecondsConsumed.WithLabelValues(siteID).Add(float64(accrued))
	}
	metrics.HeartbeatsTotal.WithLabelValues(siteID, string(next.Mode)).Inc()

	if !blockedBefore && limits.IsBlocked(next, now) {
		g.onBlockEntered(ctx, siteID, *cfg, next)
	}

	next = g.maybeWarnLocked(ctx, siteID, *cfg, next)

	g.states[siteID] = next
	g.persistState(ctx, siteID)

	status := limits.ProjectStatus(*cfg, next, g.breakGlass, now)
	return &status, nil
}

func (g *Guard) onBlockEntered(ctx context.Context, siteID string, cfg limits.SiteConfig, state limits.UsageState) {
	reason := limits.ReasonCooldown
	if state.Mode == limits.ModeDailyBlock {
		reason = limits.ReasonDaily
	}

	metrics.BlocksTotal.WithLabelValues(siteID, reason).Inc()
	g.recordEvent(ctx, storage.EventHeartbeatBlocked, siteID, map[string]any{
		"reason":        reason,
		"blocked_until": state.BlockedUntil,
	})

	if state.Mode == limits.ModeDailyBlock {
		g.notifier.DailyBlocked(siteID)
	} else {
		g.notifier.SessionBlocked(siteID, cfg.CooldownSec)
	}

	g.logger.Info().
		Str("site", siteID).
		Str("reason", reason).
		Msg("Site blocked")
}

// maybeWarnLocked issues the session-ending-soon warning once per
// session when remaining session time crosses the threshold.
func (g *Guard) maybeWarnLocked(ctx context.Context, siteID string, cfg limits.SiteConfig, state limits.UsageState) limits.UsageState {
	if !g.settings.Warning.Enabled || state.WarningIssued || state.Mode != limits.ModeAllowed {
		return state
	}

	remaining := cfg.SessionLimitSec - state.SessionUsedSec
	if remaining <= 0 || remaining > g.settings.Warning.ThresholdSec {
		return state
	}

	state = limits.MarkWarningIssued(state)
	metrics.SessionWarningsTotal.WithLabelValues(siteID).Inc()
	g.recordEvent(ctx, storage.EventSessionWarning, siteID, map[string]any{
		"remaining_sec": remaining,
	})
	if g.settings.Warning.Notify {
		g.notifier.SessionWarning(siteID, remaining)
	}
	return state
}

// Status returns the projection for every configured site without
// accruing any time. Reads never persist; elapsed blocks simply project
// as not blocked.
func (g *Guard) Status(ctx context.Context) []limits.SiteStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	statuses := make([]limits.SiteStatus, 0, len(g.settings.Sites))
	for _, cfg := range g.settings.Sites {
		state, ok := g.states[cfg.ID]
		if !ok {
			state = limits.NewUsageState(now)
		}
		state = limits.NormalizeUsageState(state, now)
		statuses = append(statuses, limits.ProjectStatus(cfg, state, g.breakGlass, now))
	}
	return statuses
}

// SiteStatus returns the projection for one site.
func (g *Guard) SiteStatus(ctx context.Context, siteID string) (*limits.SiteStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	cfg := g.settings.SiteByID(siteID)
	if cfg == nil {
		return nil, ErrUnknownSite
	}

	state, ok := g.states[siteID]
	if !ok {
		state = limits.NewUsageState(now)
	}
	state = limits.NormalizeUsageState(state, now)
	status := limits.ProjectStatus(*cfg, state, g.breakGlass, now)
	return &status, nil
}

// StatusForURL returns the projection for whichever site tracks the URL,
// or nil for untracked URLs.
func (g *Guard) StatusForURL(ctx context.Context, rawURL string) (*limits.SiteStatus, error) {
	g.mu.Lock()
	siteID, ok := g.resolveURLLocked(rawURL)
	g.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return g.SiteStatus(ctx, siteID)
}
