package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magma/magma-sub003/internal/models"
)

// Retention of the in-memory store
const (
	memoryStatusPerSerial = 1000
	memoryEvents          = 10000
)

// MemoryStore implements Store in process memory. It is used when no
// database is configured; history is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	enodebs map[string]*models.ENodeB
	status  map[string][]*models.StatusRecord
	events  []*models.EventLog
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		enodebs: make(map[string]*models.ENodeB),
		status:  make(map[string][]*models.StatusRecord),
	}
}

// BeginTx returns the store itself; writes are applied immediately
func (s *MemoryStore) BeginTx(ctx context.Context) (Store, error) {
	return s, nil
}

// Commit is a no-op
func (s *MemoryStore) Commit() error { return nil }

// Rollback is a no-op
func (s *MemoryStore) Rollback() error { return nil }

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

// UpsertENodeB records an eNodeB, keeping its original creation time
func (s *MemoryStore) UpsertENodeB(ctx context.Context, enb *models.ENodeB) error {
	if enb.Serial == "" {
		return fmt.Errorf("%w: empty serial", ErrInvalidData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if old, ok := s.enodebs[enb.Serial]; ok {
		enb.CreatedAt = old.CreatedAt
	} else if enb.CreatedAt.IsZero() {
		enb.CreatedAt = now
	}
	enb.UpdatedAt = now
	if enb.LastInformAt.IsZero() {
		enb.LastInformAt = now
	}

	cp := *enb
	s.enodebs[enb.Serial] = &cp
	return nil
}

// GetENodeB gets an eNodeB by serial
func (s *MemoryStore) GetENodeB(ctx context.Context, serial string) (*models.ENodeB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enb, ok := s.enodebs[serial]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *enb
	return &cp, nil
}

// ListENodeBs lists eNodeBs ordered by serial
func (s *MemoryStore) ListENodeBs(ctx context.Context, limit, offset int) ([]*models.ENodeB, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.ENodeB, 0, len(s.enodebs))
	for _, enb := range s.enodebs {
		cp := *enb
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Serial < all[j].Serial })

	return page(all, limit, offset), int64(len(all)), nil
}

// CreateStatusRecord appends a status history point
func (s *MemoryStore) CreateStatusRecord(ctx context.Context, rec *models.StatusRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	hist := append(s.status[rec.Serial], &cp)
	if len(hist) > memoryStatusPerSerial {
		hist = hist[len(hist)-memoryStatusPerSerial:]
	}
	s.status[rec.Serial] = hist
	return nil
}

// ListStatusRecords lists the history of serial, newest first
func (s *MemoryStore) ListStatusRecords(ctx context.Context, serial string, limit, offset int) ([]*models.StatusRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.status[serial]
	out := make([]*models.StatusRecord, 0, len(hist))
	for i := len(hist) - 1; i >= 0; i-- {
		cp := *hist[i]
		out = append(out, &cp)
	}

	return page(out, limit, offset), int64(len(hist)), nil
}

// CreateEventLog creates an event log entry
func (s *MemoryStore) CreateEventLog(ctx context.Context, event *models.EventLog) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	s.events = append(s.events, &cp)
	if len(s.events) > memoryEvents {
		s.events = s.events[len(s.events)-memoryEvents:]
	}
	return nil
}

// ListEventLogs lists event logs with filters, newest first
func (s *MemoryStore) ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.EventLog
	for i := len(s.events) - 1; i >= 0; i-- {
		if filters.match(s.events[i]) {
			cp := *s.events[i]
			out = append(out, &cp)
		}
	}

	return page(out, limit, offset), int64(len(out)), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
