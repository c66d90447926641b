// Package notify delivers user-facing alerts for limit events. The
// default implementation writes structured log lines; desktop or push
// integrations can plug in behind the same interface.
package notify

import (
	"github.com/rs/zerolog"
)

// Notifier receives limit lifecycle alerts.
type Notifier interface {
	SessionWarning(siteID string, remainingSec int)
	SessionBlocked(siteID string, cooldownSec int)
	DailyBlocked(siteID string)
	BreakGlassActivated(siteID string, durationSec int)
}

// LogNotifier emits alerts as structured log events.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) SessionWarning(siteID string, remainingSec int) {
	n.logger.Warn().
		Str("site", siteID).
		Int("remaining_sec", remainingSec).
		Msg("Session limit approaching")
}

func (n *LogNotifier) SessionBlocked(siteID string, cooldownSec int) {
	n.logger.Warn().
		Str("site", siteID).
		Int("cooldown_sec", cooldownSec).
		Msg("Session limit reached, cooldown active")
}

func (n *LogNotifier) DailyBlocked(siteID string) {
	n.logger.Warn().
		Str("site", siteID).
		Msg("Daily limit reached, blocked until midnight")
}

func (n *LogNotifier) BreakGlassActivated(siteID string, durationSec int) {
	n.logger.Warn().
		Str("site", siteID).
		Int("duration_sec", durationSec).
		Msg("Break-glass override activated")
}

// NopNotifier discards all alerts.
type NopNotifier struct{}

func (NopNotifier) SessionWarning(string, int)      {}
func (NopNotifier) SessionBlocked(string, int)      {}
func (NopNotifier) DailyBlocked(string)             {}
func (NopNotifier) BreakGlassActivated(string, int) {}
