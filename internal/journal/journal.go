// Package journal records the outcome of every control-plane call an import
// session makes, so a run can be audited after the fact.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome of a recorded call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Entry is one remote call, after its final attempt.
type Entry struct {
	RunID          uuid.UUID       `json:"run_id"`
	APIID          string          `json:"api_id"`
	Operation      string          `json:"operation"`
	Target         string          `json:"target"`
	Attempts       int             `json:"attempts"`
	ElapsedSeconds decimal.Decimal `json:"elapsed_seconds"`
	Outcome        Outcome         `json:"outcome"`
	Error          string          `json:"error,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// Seconds converts a duration to the millisecond-precision value stored in entries.
func Seconds(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(d.Milliseconds()).Shift(-3)
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Reader lists the entries of one run in recording order.
type Reader interface {
	ListRun(ctx context.Context, runID uuid.UUID) ([]Entry, error)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps entries in process; safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory journal
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *Memory) ListRun(_ context.Context, runID uuid.UUID) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns a copy of everything recorded.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
