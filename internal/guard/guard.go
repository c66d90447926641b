// Package guard is the enforcement service: it owns the loaded settings
// and per-site usage state, applies heartbeats through the limits core,
// and persists every transition. All mutations go through a single mutex
// so storage writes observe a consistent in-memory view.
package guard

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/kaigosha/sitewarden/internal/limits"
	"github.com/kaigosha/sitewarden/internal/metrics"
	"github.com/kaigosha/sitewarden/internal/notify"
	"github.com/kaigosha/sitewarden/internal/settings"
	"github.com/kaigosha/sitewarden/internal/storage"
)

const (
	// DefaultMaxEvents bounds the diagnostics event log.
	DefaultMaxEvents = 500

	// DefaultHostCacheSize bounds the hostname resolution cache.
	DefaultHostCacheSize = 256
)

// Options configures a Guard.
type Options struct {
	Store    storage.Store
	Clock    limits.Clock
	Logger   zerolog.Logger
	Notifier notify.Notifier

	// MaxEvents caps the diagnostics log; zero means DefaultMaxEvents.
	MaxEvents int

	// HostCacheSize caps the hostname cache; zero means
	// DefaultHostCacheSize.
	HostCacheSize int
}

// Guard enforces per-site time limits.
type Guard struct {
	mu sync.Mutex

	store    storage.Store
	clock    limits.Clock
	logger   zerolog.Logger
	notifier notify.Notifier

	settings   settings.Settings
	states     map[string]limits.UsageState
	breakGlass limits.BreakGlassRuntime
	matchers   []limits.SiteMatcher

	// hostCache maps hostname to site id, "" for untracked hosts. It is
	// invalidated whenever the site list changes.
	hostCache *lru.Cache[string, string]

	maxEvents int
}

// New creates a Guard and loads its state from storage. Unreadable or
// corrupted records are replaced by defaults; load never fails on bad
// data, only on cache construction.
func New(ctx context.Context, opts Options) (*Guard, error) {
	if opts.Clock == nil {
		opts.Clock = limits.RealClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NopNotifier{}
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultMaxEvents
	}
	if opts.HostCacheSize <= 0 {
		opts.HostCacheSize = DefaultHostCacheSize
	}

	hostCache, err := lru.New[string, string](opts.HostCacheSize)
	if err != nil {
		return nil, err
	}

	g := &Guard{
		store:     opts.Store,
		clock:     opts.Clock,
		logger:    opts.Logger.With().Str("component", "guard").Logger(),
		notifier:  opts.Notifier,
		states:    make(map[string]limits.UsageState),
		hostCache: hostCache,
		maxEvents: opts.MaxEvents,
	}

	g.load(ctx)
	return g, nil
}

// load restores settings, usage state and break-glass state from storage,
// normalizing everything it reads.
func (g *Guard) load(ctx context.Context) {
	now := g.clock.Now()

	raw, err := g.store.Settings().Get(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		g.logger.Error().Err(err).Msg("Failed to load settings, using defaults")
		raw = nil
	}

	loaded, notes := settings.Normalize(raw)
	g.settings = loaded
	g.matchers = limits.CompileMatchers(loaded.Sites)

	// Persist the normalized form so migrations apply once.
	if len(notes) > 0 {
		if err := g.persistSettings(ctx); err != nil {
			g.logger.Error().Err(err).Msg("Failed to persist normalized settings")
		}
	}

	states, err := g.store.Runtime().All(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to load usage state, starting fresh")
		states = nil
	}
	for _, site := range g.settings.Sites {
		state, ok := states[site.ID]
		if !ok {
			state = limits.NewUsageState(now)
		}
		g.states[site.ID] = limits.NormalizeUsageState(state, now)
	}

	rt, err := g.store.BreakGlass().Get(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.logger.Error().Err(err).Msg("Failed to load break-glass state, starting fresh")
		}
		g.breakGlass = limits.NewBreakGlassRuntime(now)
	} else {
		g.breakGlass = limits.NormalizeBreakGlassRuntime(*rt, now)
	}
	g.updateOverrideGauge(now)

	details := map[string]any{"sites": len(g.settings.Sites)}
	if len(notes) > 0 {
		details["notes"] = notes
	}
	g.recordEvent(ctx, storage.EventBootLoaded, "", details)

	g.logger.Info().
		Int("sites", len(g.settings.Sites)).
		Strs("notes", notes).
		Msg("Guard state loaded")
}

// Settings returns a copy of the current settings with the PIN hash
// blanked.
func (g *Guard) Settings() settings.Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settingsCopyLocked()
}

func (g *Guard) settingsCopyLocked() settings.Settings {
	cp := g.settings
	cp.Sites = append([]limits.SiteConfig(nil), g.settings.Sites...)
	cp.BreakGlass.PINHash = ""
	return cp
}

// ResolveHost maps a hostname to a site id through the LRU cache. The
// second return is false for untracked hosts.
func (g *Guard) ResolveHost(hostname string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolveHostLocked(hostname)
}

func (g *Guard) resolveHostLocked(hostname string) (string, bool) {
	if siteID, ok := g.hostCache.Get(hostname); ok {
		return siteID, siteID != ""
	}

	matched := limits.ResolveHost(hostname, g.matchers)
	siteID := ""
	if matched != nil {
		siteID = matched.ID
	}
	g.hostCache.Add(hostname, siteID)
	return siteID, siteID != ""
}

func (g *Guard) resolveURLLocked(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return "", false
	}
	return g.resolveHostLocked(hostname)
}

func (g *Guard) persistSettings(ctx context.Context) error {
	raw, err := settings.Marshal(g.settings)
	if err != nil {
		return err
	}
	return g.store.Settings().Put(ctx, raw)
}

func (g *Guard) persistState(ctx context.Context, siteID string) {
	if err := g.store.Runtime().Put(ctx, siteID, g.states[siteID]); err != nil {
		g.logger.Error().Err(err).Str("site", siteID).Msg("Failed to persist usage state")
	}
}

func (g *Guard) persistBreakGlass(ctx context.Context) {
	if err := g.store.BreakGlass().Put(ctx, g.breakGlass); err != nil {
		g.logger.Error().Err(err).Msg("Failed to persist break-glass state")
	}
}

func (g *Guard) updateOverrideGauge(now time.Time) {
	if g.breakGlass.Active != nil && now.Before(g.breakGlass.Active.Until) {
		metrics.ActiveOverrides.Set(1)
	} else {
		metrics.ActiveOverrides.Set(0)
	}
}
