package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"tabtime/internal/record"
)

// ErrNoRecords is returned by ExportCSV when the collection is empty.
var ErrNoRecords = errors.New("no records to export")

// collection is the on-disk document. The whole record list lives under
// a single key, replaced wholesale on every write.
type collection struct {
	TimeEntries []record.Record `json:"timeEntries"`
	Version     int             `json:"version"`
}

// Manager handles reading and writing the record file safely.
type Manager struct {
	path  string
	mu    sync.Mutex
	state *collection
}

// NewManager loads the record file at path, or initializes an empty one.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}

	if err := m.load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.state = &collection{
				TimeEntries: []record.Record{},
				Version:     1,
			}
			if err := m.save(); err != nil {
				return nil, err
			}
			return m, nil
		}
		return nil, err
	}

	return m, nil
}

// load reads the record file into memory.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var c collection
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("corrupt record file %s: %w", m.path, err)
	}
	if c.TimeEntries == nil {
		c.TimeEntries = []record.Record{}
	}

	m.state = &c
	return nil
}

// save atomically writes the record file to disk.
func (m *Manager) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, m.path)
}

// Append adds one record to the end of the collection and persists it.
func (m *Manager) Append(rec record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.TimeEntries = append(m.state.TimeEntries, rec)
	return m.save()
}

// List returns the stored records in append order.
func (m *Manager) List() []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]record.Record, len(m.state.TimeEntries))
	copy(out, m.state.TimeEntries)
	return out
}

// Recent returns up to n of the most recent records, newest first.
func (m *Manager) Recent(n int) []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.state.TimeEntries
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]record.Record, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}

// Count reports how many records are stored.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.TimeEntries)
}

// Reset replaces the collection with an empty one and persists it.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.TimeEntries = []record.Record{}
	return m.save()
}

// ExportCSV writes the collection as CSV: the fixed header row, then
// one row per record in append order. An empty collection is an error
// rather than an empty file.
func (m *Manager) ExportCSV(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.state.TimeEntries) == 0 {
		return ErrNoRecords
	}

	if _, err := io.WriteString(w, record.CSVHeader+"\n"); err != nil {
		return err
	}
	for _, rec := range m.state.TimeEntries {
		if _, err := io.WriteString(w, rec.CSVRow()+"\n"); err != nil {
			return err
		}
	}
	return nil
}
