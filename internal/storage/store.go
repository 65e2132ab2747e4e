package storage

import (
	"context"
	"errors"
	"time"

	"github.com/magma/magma-sub003/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// eNodeB registry
	UpsertENodeB(ctx context.Context, enb *models.ENodeB) error
	GetENodeB(ctx context.Context, serial string) (*models.ENodeB, error)
	ListENodeBs(ctx context.Context, limit, offset int) ([]*models.ENodeB, int64, error)

	// Status history
	CreateStatusRecord(ctx context.Context, rec *models.StatusRecord) error
	ListStatusRecords(ctx context.Context, serial string, limit, offset int) ([]*models.StatusRecord, int64, error)

	// Event log methods
	CreateEventLog(ctx context.Context, event *models.EventLog) error
	ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error)

	// Close the store
	Close() error
}

// EventLogFilters represents filters for event logs
type EventLogFilters struct {
	Serial    *string
	Type      *models.EventType
	Level     *models.EventLevel
	StartTime *time.Time
	EndTime   *time.Time
}

func (f EventLogFilters) match(e *models.EventLog) bool {
	if f.Serial != nil && e.Serial != *f.Serial {
		return false
	}
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if f.Level != nil && e.Level != *f.Level {
		return false
	}
	if f.StartTime != nil && e.CreatedAt.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.CreatedAt.After(*f.EndTime) {
		return false
	}
	return true
}
