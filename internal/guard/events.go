package guard

import (
	"context"

	"github.com/google/uuid"

	"github.com/kaigosha/sitewarden/internal/storage"
)

// recordEvent appends a diagnostics event and prunes the log to its cap.
// Event recording is best effort; failures are logged, never returned.
func (g *Guard) recordEvent(ctx context.Context, eventType, siteID string, details map[string]any) {
	event := storage.Event{
		ID:        uuid.NewString(),
		Timestamp: g.clock.Now(),
		Type:      eventType,
		SiteID:    siteID,
		Details:   details,
	}

	if err := g.store.Events().Append(ctx, event); err != nil {
		g.logger.Error().Err(err).Str("type", eventType).Msg("Failed to record event")
		return
	}
	if _, err := g.store.Events().Prune(ctx, g.maxEvents); err != nil {
		g.logger.Error().Err(err).Msg("Failed to prune event log")
	}
}

// Diagnostics returns up to limit recent events, newest first. A
// non-positive limit returns the whole log.
func (g *Guard) Diagnostics(ctx context.Context, limit int) ([]storage.Event, error) {
	return g.store.Events().List(ctx, limit)
}

// ClearDiagnostics empties the event log, leaving a single marker event.
func (g *Guard) ClearDiagnostics(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Events().Clear(ctx); err != nil {
		return err
	}
	g.recordEvent(ctx, storage.EventDiagnosticsCleared, "", nil)
	g.logger.Info().Msg("Diagnostics cleared")
	return nil
}
