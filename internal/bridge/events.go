package bridge

import (
	"encoding/json"
	"fmt"

	"tabtime/internal/track"
)

// Event types reported by the companion extension.
const (
	EventTabCreated    = "tab_created"
	EventTabUpdated    = "tab_updated"
	EventTabRemoved    = "tab_removed"
	EventWindowRemoved = "window_removed"
	EventStartup       = "startup"
)

// Event is one tab lifecycle notification. Tabs is only set for
// startup events; Status only for tab_updated (the extension relays
// the browser's load status and only "complete" counts).
type Event struct {
	Type   string      `json:"type"`
	TabID  int64       `json:"tabId,omitempty"`
	URL    string      `json:"url,omitempty"`
	Status string      `json:"status,omitempty"`
	Tabs   []track.Tab `json:"tabs,omitempty"`
}

// Batch is the POST body for the non-streaming endpoint.
type Batch struct {
	Events []Event `json:"events"`
}

// apply routes one event to the tracker. Unknown event types are
// ignored so newer extensions keep working against older daemons.
func apply(t *track.Tracker, ev Event) {
	switch ev.Type {
	case EventTabCreated:
		t.HandleNavigate(ev.TabID, ev.URL)
	case EventTabUpdated:
		if ev.Status == "complete" {
			t.HandleNavigate(ev.TabID, ev.URL)
		}
	case EventTabRemoved:
		t.HandleTabRemoved(ev.TabID)
	case EventWindowRemoved:
		t.HandleWindowRemoved()
	case EventStartup:
		t.HandleStartup(ev.Tabs)
	}
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed event: %w", err)
	}
	return ev, nil
}
