package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabtime/internal/record"
)

type memStore struct {
	mu   sync.Mutex
	recs []record.Record
}

func (s *memStore) Append(rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memStore) records() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Record, len(s.recs))
	copy(out, s.recs)
	return out
}

type failStore struct{}

func (failStore) Append(record.Record) error { return errors.New("disk full") }

type fakeSender struct {
	mu    sync.Mutex
	sent  []record.Record
	fail  bool
	calls int
}

func (s *fakeSender) Send(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("endpoint unreachable")
	}
	s.sent = append(s.sent, rec)
	return nil
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestTracker(t *testing.T, sender Sender) (*Tracker, *memStore, *quartz.Mock) {
	t.Helper()
	st := &memStore{}
	clock := quartz.NewMock(t)
	return New(st, sender, clock), st, clock
}

// Repeated same-hostname navigation must not fragment a session:
// h1, h1, h2, h1 then removal yields exactly 3 records.
func TestTracker_NoFragmentation(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)

	tr.HandleNavigate(1, "https://h1.example/a")
	clock.Advance(time.Minute)
	tr.HandleNavigate(1, "https://h1.example/b")
	clock.Advance(time.Minute)
	tr.HandleNavigate(1, "https://h2.example/")
	clock.Advance(time.Minute)
	tr.HandleNavigate(1, "https://h1.example/c")
	clock.Advance(time.Minute)
	tr.HandleTabRemoved(1)

	recs := st.records()
	require.Len(t, recs, 3)
	assert.Equal(t, "h1.example", recs[0].Website)
	assert.Equal(t, "h2.example", recs[1].Website)
	assert.Equal(t, "h1.example", recs[2].Website)
	// The first session spans both h1 navigations.
	assert.Equal(t, "2.00", recs[0].Duration.String())
}

func TestTracker_SameHostnameKeepsStartTime(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)
	start := clock.Now()

	tr.HandleNavigate(1, "https://a.example/page1")
	clock.Advance(30 * time.Second)
	tr.HandleNavigate(1, "https://a.example/page2")
	require.Empty(t, st.records())

	clock.Advance(30 * time.Second)
	tr.HandleTabRemoved(1)

	recs := st.records()
	require.Len(t, recs, 1)
	assert.Equal(t, record.FormatTime(start), recs[0].Timestamp)
	assert.Equal(t, "1.00", recs[0].Duration.String())
}

func TestTracker_CloseIsIdempotent(t *testing.T) {
	tr, st, _ := newTestTracker(t, nil)

	tr.HandleTabRemoved(7)
	tr.HandleTabRemoved(7)
	assert.Empty(t, st.records())

	tr.HandleNavigate(7, "https://a.example/")
	tr.HandleTabRemoved(7)
	tr.HandleTabRemoved(7)
	assert.Len(t, st.records(), 1)
	assert.Zero(t, tr.OpenSessions())
}

func TestTracker_DurationInvariant(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)
	t0 := clock.Now()

	tr.HandleNavigate(1, "https://a.example/")
	clock.Advance(95 * time.Second)
	t1 := clock.Now()
	tr.HandleTabRemoved(1)

	recs := st.records()
	require.Len(t, recs, 1)
	assert.Equal(t, record.FormatTime(t0), recs[0].Timestamp)
	assert.Equal(t, record.FormatTime(t1), recs[0].CloseTime)
	assert.Equal(t, "1.58", recs[0].Duration.String())
}

// Navigating straight to an ignored URL opens nothing and records
// nothing.
func TestTracker_IgnoredURLOpensNoSession(t *testing.T) {
	tr, st, _ := newTestTracker(t, nil)

	tr.HandleNavigate(1, "chrome://newtab")
	tr.HandleNavigate(2, "about:blank")
	assert.Zero(t, tr.OpenSessions())
	assert.Empty(t, st.records())
}

func TestTracker_IgnoredURLClosesOpenSession(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)

	tr.HandleNavigate(1, "https://a.example/")
	clock.Advance(time.Minute)
	tr.HandleNavigate(1, "chrome://settings")

	recs := st.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "a.example", recs[0].Website)
	assert.Zero(t, tr.OpenSessions())
}

// A malformed URL is a pure no-op: the open session survives with its
// original start time.
func TestTracker_MalformedURLPreservesSession(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)
	start := clock.Now()

	tr.HandleNavigate(1, "https://a.example/")
	clock.Advance(time.Minute)
	tr.HandleNavigate(1, "http://a b.example/")
	assert.Equal(t, 1, tr.OpenSessions())
	assert.Empty(t, st.records())

	tr.HandleNavigate(1, "")
	assert.Equal(t, 1, tr.OpenSessions())

	clock.Advance(time.Minute)
	tr.HandleTabRemoved(1)
	recs := st.records()
	require.Len(t, recs, 1)
	assert.Equal(t, record.FormatTime(start), recs[0].Timestamp)
	assert.Equal(t, "2.00", recs[0].Duration.String())
}

// Forcing every delivery to fail must not cost a single stored record.
func TestTracker_DeliveryFailureIsolation(t *testing.T) {
	sender := &fakeSender{fail: true}
	st := &memStore{}
	clock := quartz.NewMock(t)
	tr := New(st, sender, clock)

	for i := int64(1); i <= 3; i++ {
		tr.HandleNavigate(i, "https://a.example/")
		clock.Advance(time.Minute)
		tr.HandleTabRemoved(i)
	}
	tr.Wait()

	assert.Len(t, st.records(), 3)
	assert.Equal(t, 3, sender.callCount())
	assert.Zero(t, tr.OpenSessions())
}

// Storage failure drops the record but never leaves the tab id in the
// map or panics the tracker.
func TestTracker_StorageFailureCleansMap(t *testing.T) {
	clock := quartz.NewMock(t)
	tr := New(failStore{}, nil, clock)

	tr.HandleNavigate(1, "https://a.example/")
	clock.Advance(time.Minute)
	tr.HandleTabRemoved(1)
	assert.Zero(t, tr.OpenSessions())
}

func TestTracker_SenderReceivesClosedRecords(t *testing.T) {
	sender := &fakeSender{}
	st := &memStore{}
	clock := quartz.NewMock(t)
	tr := New(st, sender, clock)

	tr.HandleNavigate(1, "https://a.example/")
	clock.Advance(30 * time.Second)
	tr.HandleTabRemoved(1)
	tr.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a.example", sender.sent[0].Website)
	assert.Equal(t, "0.50", sender.sent[0].Duration.String())
}

func TestTracker_WindowRemovedSweepsAllTabs(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)

	tr.HandleNavigate(1, "https://a.example/")
	tr.HandleNavigate(2, "https://b.example/")
	tr.HandleNavigate(3, "https://c.example/")
	clock.Advance(time.Minute)
	tr.HandleWindowRemoved()

	assert.Len(t, st.records(), 3)
	assert.Zero(t, tr.OpenSessions())

	// Sweep of an empty map is a no-op.
	tr.HandleWindowRemoved()
	assert.Len(t, st.records(), 3)
}

func TestTracker_StartupSeedsOpenTabs(t *testing.T) {
	tr, st, _ := newTestTracker(t, nil)

	tr.HandleStartup([]Tab{
		{ID: 1, URL: "https://a.example/"},
		{ID: 2, URL: "chrome://newtab"},
		{ID: 3, URL: ""},
		{ID: 4, URL: "https://b.example/"},
	})

	assert.Equal(t, 2, tr.OpenSessions())
	assert.Empty(t, st.records())
}

// The end-to-end scenario: page change within a.example is not a
// boundary, the cross-host navigation closes a 1.00 minute session,
// tab removal closes a 0.25 minute session.
func TestTracker_EndToEndScenario(t *testing.T) {
	tr, st, clock := newTestTracker(t, nil)

	tr.HandleNavigate(1, "https://a.example/page1")
	clock.Advance(30 * time.Second)
	tr.HandleNavigate(1, "https://a.example/page2")
	assert.Empty(t, st.records())

	clock.Advance(30 * time.Second)
	tr.HandleNavigate(1, "https://b.example")

	clock.Advance(15 * time.Second)
	tr.HandleTabRemoved(1)

	recs := st.records()
	require.Len(t, recs, 2)
	assert.Equal(t, "a.example", recs[0].Website)
	assert.Equal(t, "1.00", recs[0].Duration.String())
	assert.Equal(t, "b.example", recs[1].Website)
	assert.Equal(t, "0.25", recs[1].Duration.String())
}
