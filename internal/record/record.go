package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// isoLayout matches the upstream wire format: UTC with millisecond
// precision and a literal Z suffix.
const isoLayout = "2006-01-02T15:04:05.000Z"

// CSVHeader is the fixed column row for exported files.
const CSVHeader = "Timestamp,Website,Duration (minutes),Close Time"

// ExportFilename is the fixed name for downloaded CSV exports.
const ExportFilename = "website_time_tracker_data.csv"

// Minutes is an elapsed duration in minutes, carried on the wire as a
// string with exactly two decimal places.
type Minutes float64

func (m Minutes) String() string {
	return strconv.FormatFloat(float64(m), 'f', 2, 64)
}

func (m Minutes) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either the two-decimal string form or a bare
// number, so collections written by older builds still load.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", string(data), err)
	}
	*m = Minutes(v)
	return nil
}

// Record is one completed session: immutable once built, ordered by
// append order in the store.
type Record struct {
	Timestamp string  `json:"timestamp"`
	Website   string  `json:"website"`
	Duration  Minutes `json:"duration"`
	CloseTime string  `json:"closeTime"`
}

// New builds the record for a session on hostname that opened at start
// and closed at end. Duration is wall-clock minutes rounded to two
// decimals; a clock that ran backwards is clamped to zero.
func New(hostname string, start, end time.Time) Record {
	mins := end.Sub(start).Minutes()
	if mins < 0 {
		mins = 0
	}
	return Record{
		Timestamp: FormatTime(start),
		Website:   hostname,
		Duration:  Minutes(round2(mins)),
		CloseTime: FormatTime(end),
	}
}

// FormatTime renders a timestamp in the ISO-8601 form used everywhere
// downstream of the tracker.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Started parses the record's start timestamp.
func (r Record) Started() (time.Time, error) {
	return time.Parse(isoLayout, r.Timestamp)
}

// CSVRow renders the record as one comma-joined line. Fields are not
// quoted or escaped; an embedded comma corrupts the row. Known
// limitation, kept as-is.
func (r Record) CSVRow() string {
	return strings.Join([]string{r.Timestamp, r.Website, r.Duration.String(), r.CloseTime}, ",")
}

func round2(v float64) float64 {
	// Matches fixed-point rendering: the stored value and the wire
	// string agree to two decimals.
	s := strconv.FormatFloat(v, 'f', 2, 64)
	out, _ := strconv.ParseFloat(s, 64)
	return out
}
