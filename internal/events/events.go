package events

import "github.com/zsprackett/cursor-usage/internal/usage"

const (
	TypeUsageUpdated    = "usage_updated"
	TypeSettingsChanged = "settings_changed"
)

// Event is a real-time update pushed to web clients.
type Event struct {
	Type     string          `json:"type"`
	CycleID  string          `json:"cycle_id,omitempty"`
	Snapshot *usage.Snapshot `json:"snapshot,omitempty"`
	Language string          `json:"language,omitempty"`
	Interval int64           `json:"refreshInterval,omitempty"`
}

// Broadcaster sends events to connected web clients.
// A nil Broadcaster is safe to use -- Broadcast becomes a no-op.
type Broadcaster interface {
	Broadcast(e Event)
}
