package grade

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/campusdesk/portal/core"
)

// ErrEntryNotFound is returned when an operation references an id that is not in the table.
var ErrEntryNotFound = core.NewNotFoundError("subject entry")

// SubjectEntry is one row of the table. Credits <= 0 and an empty Grade both mean "not set".
type SubjectEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Grade   Symbol `json:"grade"`
}

// Complete reports whether the entry takes part in the average.
func (e SubjectEntry) Complete() bool {
	return e.Credits > 0 && e.Grade.Valid()
}

// Mutation is a single field update of a SubjectEntry: one of SetName, SetCredits or SetGrade.
type Mutation interface {
	apply(e *SubjectEntry)
}

type (
	SetName    struct{ Name string }
	SetCredits struct{ Credits int }
	SetGrade   struct{ Grade Symbol }
)

func (m SetName) apply(e *SubjectEntry)    { e.Name = m.Name }
func (m SetCredits) apply(e *SubjectEntry) { e.Credits = m.Credits }
func (m SetGrade) apply(e *SubjectEntry)   { e.Grade = m.Grade }

// Table is an ordered list of subject entries that never gets shorter than one row.
// Mutations store whatever they are given; validity is only judged by ComputeAverage.
type Table struct {
	entries []SubjectEntry
}

// NewTable returns a table holding a single blank entry.
func NewTable() *Table {
	t := new(Table)
	t.Reset()
	return t
}

func newEntry() SubjectEntry {
	return SubjectEntry{ID: uuid.New().String()}
}

// Entries returns a copy of the rows in order.
func (t *Table) Entries() []SubjectEntry {
	entries := make([]SubjectEntry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// Len is the number of entries, never less than one.
func (t *Table) Len() int { return len(t.entries) }

// Entry returns the entry with the given id, if present.
func (t *Table) Entry(id string) (SubjectEntry, bool) {
	if i := t.index(id); i >= 0 {
		return t.entries[i], true
	}
	return SubjectEntry{}, false
}

func (t *Table) index(id string) int {
	for i, e := range t.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// AddEntry appends a blank entry with a fresh id and returns it.
func (t *Table) AddEntry() SubjectEntry {
	e := newEntry()
	t.entries = append(t.entries, e)
	return e
}

// RemoveEntry deletes the entry with the given id. Removing the last remaining entry is a no-op
// reported as removed == false with a nil error.
func (t *Table) RemoveEntry(id string) (removed bool, err error) {
	i := t.index(id)
	if i < 0 {
		return false, ErrEntryNotFound
	}
	if len(t.entries) == 1 {
		return false, nil
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return true, nil
}

// UpdateEntry applies the mutations, in order, to the entry with the given id.
func (t *Table) UpdateEntry(id string, muts ...Mutation) (SubjectEntry, error) {
	i := t.index(id)
	if i < 0 {
		return SubjectEntry{}, ErrEntryNotFound
	}
	for _, m := range muts {
		if m != nil {
			m.apply(&t.entries[i])
		}
	}
	return t.entries[i], nil
}

// Reset discards every entry and starts over with a single blank one. Ids are never reused.
func (t *Table) Reset() {
	t.entries = []SubjectEntry{newEntry()}
}

// ComputeAverage computes the weighted average of the table. It does not modify the table.
func (t *Table) ComputeAverage() Result {
	return Compute(t.entries)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return &Table{entries: t.Entries()}
}

// Result is the outcome of an average computation. Average and Band are only meaningful when
// Available is true.
type Result struct {
	Available      bool
	Average        float64
	Band           Band
	TotalCredits   int
	CountedEntries int
}

// Compute is the weighted average over the complete entries, rounded half-up to 2 decimals:
// Σ(points × credits) / Σ(credits). Incomplete entries are skipped, not counted as zero.
func Compute(entries []SubjectEntry) Result {
	var counted, totalCredits, totalPoints int
	for _, e := range entries {
		if !e.Complete() {
			continue
		}
		pts, _ := Points(e.Grade)
		totalCredits += e.Credits
		totalPoints += pts * e.Credits
		counted++
	}
	if counted == 0 {
		return Result{}
	}

	// floor(100·P/C + 1/2) == floor((200·P + C) / 2C), exact on non-negative integers
	hundredths := (200*totalPoints + totalCredits) / (2 * totalCredits)
	avg := float64(hundredths) / 100
	return Result{
		Available:      true,
		Average:        avg,
		Band:           Classify(avg),
		TotalCredits:   totalCredits,
		CountedEntries: counted,
	}
}

type resultJSON struct {
	Available      bool     `json:"available"`
	Average        *float64 `json:"average"`
	Band           Band     `json:"band,omitempty"`
	Color          string   `json:"color,omitempty"`
	TotalCredits   int      `json:"total_credits"`
	CountedEntries int      `json:"counted_entries"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Available:      r.Available,
		TotalCredits:   r.TotalCredits,
		CountedEntries: r.CountedEntries,
	}
	if r.Available {
		avg := r.Average
		out.Average = &avg
		out.Band = r.Band
		out.Color = r.Band.Color()
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result{
		Available:      in.Available,
		Band:           in.Band,
		TotalCredits:   in.TotalCredits,
		CountedEntries: in.CountedEntries,
	}
	if in.Average != nil {
		r.Average = *in.Average
	}
	return nil
}
