package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in memory for dev and tests. The uniqueness
// check and the insert happen under one lock, giving the same
// reject-on-conflict behavior as the database index.
type MemoryStore struct {
	mu      sync.Mutex
	byKey   map[string]struct{}
	records []Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]struct{})}
}

func key(rec Record) string {
	return rec.SessionID + "|" + rec.StudentID + "|" + rec.Day.Format("2006-01-02")
}

// Insert commits a record or rejects a duplicate with ErrAlreadyMarked.
func (m *MemoryStore) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byKey[key(rec)]; dup {
		return Record{}, ErrAlreadyMarked
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	m.byKey[key(rec)] = struct{}{}
	m.records = append(m.records, rec)
	return rec, nil
}

// List returns a student's records, newest first.
func (m *MemoryStore) List(_ context.Context, studentID string, f Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	for _, rec := range m.records {
		if rec.StudentID != studentID {
			continue
		}
		if !f.From.IsZero() && rec.Day.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.Day.After(f.To) {
			continue
		}
		if f.Subject != "" && rec.Subject != f.Subject {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CheckInTime.After(res[j].CheckInTime) })
	return res, nil
}
