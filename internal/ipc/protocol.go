package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"tabtime/internal/store"
	"tabtime/internal/track"
)

const (
	ObjectPath    = "/io/github/tabtime"
	InterfaceName = "io.github.tabtime.Tracker"
	ServiceName   = "io.github.tabtime"
)

// DefaultRecentLimit is how many records ListRecent returns when the
// caller passes a non-positive limit.
const DefaultRecentLimit = 10

// TrackerService is the control interface exported on the session bus
// for ttctl.
type TrackerService struct {
	Store   *store.Manager
	Tracker *track.Tracker
}

func (s *TrackerService) GetStatus() (string, *dbus.Error) {
	return fmt.Sprintf("%d open sessions, %d stored records",
		s.Tracker.OpenSessions(), s.Store.Count()), nil
}

// ListRecent returns up to limit records as a JSON array, newest first.
func (s *TrackerService) ListRecent(limit int32) (string, *dbus.Error) {
	n := int(limit)
	if n <= 0 {
		n = DefaultRecentLimit
	}
	data, err := json.Marshal(s.Store.Recent(n))
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// ExportCsv renders the full collection as CSV. An empty collection is
// a D-Bus error so the CLI can tell "nothing to export" from an empty
// file.
func (s *TrackerService) ExportCsv() (string, *dbus.Error) {
	var buf bytes.Buffer
	if err := s.Store.ExportCSV(&buf); err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return buf.String(), nil
}

// Reset clears the stored collection. Confirmation is the caller's job.
func (s *TrackerService) Reset() *dbus.Error {
	if err := s.Store.Reset(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Flush closes every open session immediately.
func (s *TrackerService) Flush() *dbus.Error {
	s.Tracker.CloseAll()
	return nil
}
