package storage

import (
	"time"
)

// Event types recorded into the bounded event log.
const (
	EventBootLoaded           = "boot_loaded"
	EventHeartbeatBlocked     = "heartbeat_blocked"
	EventSessionWarning       = "session_warning"
	EventSettingsUpdated      = "settings_updated"
	EventSiteAdded            = "site_added"
	EventSiteUpdated          = "site_updated"
	EventSiteDeleted          = "site_deleted"
	EventBreakGlassActivated  = "break_glass_activated"
	EventBreakGlassRefused    = "break_glass_refused"
	EventBreakGlassPINSet     = "break_glass_pin_set"
	EventBreakGlassPINCleared = "break_glass_pin_cleared"
	EventDiagnosticsCleared   = "diagnostics_cleared"
)

// Event is a single entry in the diagnostics event log.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	SiteID    string         `json:"site_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
