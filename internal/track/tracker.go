// Package track holds the tab session tracker: an in-memory map from
// tab id to the hostname currently being attributed time in that tab.
// Lifecycle events mutate the map; closing a session produces one
// durable record and one best-effort delivery.
package track

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/quartz"

	"tabtime/internal/classify"
	"tabtime/internal/record"
)

// RecordStore persists closed session records.
type RecordStore interface {
	Append(rec record.Record) error
}

// Sender forwards a closed record to the remote endpoint. It is
// best-effort: errors are logged at the tracker boundary and swallowed.
type Sender interface {
	Send(ctx context.Context, rec record.Record) error
}

// session is time currently being attributed to one hostname in one tab.
type session struct {
	hostname string
	start    time.Time
}

// Tab is one open browser tab, as reported at startup.
type Tab struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Tracker owns the tab id → session map. For each event the map reaches
// its final state under one mutex hold; storage and network work happen
// strictly afterwards, so a failure in either can never leave a tab id
// lingering in the map.
type Tracker struct {
	clock  quartz.Clock
	store  RecordStore
	sender Sender

	mu   sync.Mutex
	open map[int64]session

	wg sync.WaitGroup
}

// New builds a Tracker. sender may be nil to disable forwarding; clock
// may be nil for the real clock.
func New(store RecordStore, sender Sender, clock quartz.Clock) *Tracker {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Tracker{
		clock:  clock,
		store:  store,
		sender: sender,
		open:   make(map[int64]session),
	}
}

// HandleNavigate attributes a navigation in tabID to url. Same-hostname
// navigation is not a session boundary: the open session keeps its
// start time. A cross-hostname navigation closes the old session and
// opens a new one; an ignored URL closes without opening; a malformed
// URL is a no-op.
func (t *Tracker) HandleNavigate(tabID int64, url string) {
	if url == "" {
		return
	}

	res := classify.Classify(url)
	if res.Ignored {
		t.closeSession(tabID)
		return
	}
	if res.Hostname == "" {
		// Malformed URL: leave any open session untouched.
		return
	}

	t.mu.Lock()
	cur, ok := t.open[tabID]
	if ok && cur.hostname == res.Hostname {
		t.mu.Unlock()
		return
	}
	var closed record.Record
	var haveClosed bool
	if ok {
		closed, haveClosed = t.closeLocked(tabID)
	}
	t.open[tabID] = session{hostname: res.Hostname, start: t.clock.Now()}
	t.mu.Unlock()

	if haveClosed {
		t.dispatch(closed)
	}
}

// HandleTabRemoved closes the tab's session, if any.
func (t *Tracker) HandleTabRemoved(tabID int64) {
	t.closeSession(tabID)
}

// HandleWindowRemoved closes every open session. Not every browser
// emits per-tab removal events when a window closes, so this sweep is
// the backstop.
func (t *Tracker) HandleWindowRemoved() {
	t.CloseAll()
}

// HandleStartup re-seeds tracking from the set of currently open tabs
// after the map was reset by a process restart. Time spent before the
// restart is not accounted.
func (t *Tracker) HandleStartup(tabs []Tab) {
	for _, tab := range tabs {
		if tab.URL != "" {
			t.HandleNavigate(tab.ID, tab.URL)
		}
	}
}

// CloseAll closes every open session.
func (t *Tracker) CloseAll() {
	t.mu.Lock()
	closed := make([]record.Record, 0, len(t.open))
	for id := range t.open {
		if rec, ok := t.closeLocked(id); ok {
			closed = append(closed, rec)
		}
	}
	t.mu.Unlock()

	for _, rec := range closed {
		t.dispatch(rec)
	}
}

// OpenSessions reports how many sessions are currently open.
func (t *Tracker) OpenSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Wait blocks until all in-flight deliveries have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// closeSession ends the session for tabID, if one is open. Idempotent:
// a second close of the same tab is a no-op.
func (t *Tracker) closeSession(tabID int64) {
	t.mu.Lock()
	rec, ok := t.closeLocked(tabID)
	t.mu.Unlock()

	if ok {
		t.dispatch(rec)
	}
}

// closeLocked removes the tab's session from the map and builds its
// record. Caller holds the mutex.
func (t *Tracker) closeLocked(tabID int64) (record.Record, bool) {
	s, ok := t.open[tabID]
	if !ok {
		return record.Record{}, false
	}
	delete(t.open, tabID)
	return record.New(s.hostname, s.start, t.clock.Now()), true
}

// dispatch persists rec and hands it to the sender. The two are
// independent failure domains: a persistence error drops the record
// with a log line, and delivery runs on its own goroutine so it can
// neither block nor fail persistence.
func (t *Tracker) dispatch(rec record.Record) {
	if err := t.store.Append(rec); err != nil {
		log.Printf("failed to persist record for %s: %v", rec.Website, err)
	}

	if t.sender == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.sender.Send(context.Background(), rec); err != nil {
			log.Printf("failed to deliver record for %s: %v", rec.Website, err)
		}
	}()
}
