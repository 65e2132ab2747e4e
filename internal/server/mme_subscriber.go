package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/models"
)

// AttachList is published by the MME with the cell identities of every
// S1-attached eNodeB
type AttachList struct {
	CellIDs []int64 `json:"cellIDs"`
}

// MMESubscriber tracks the MME attach list. It implements
// status.AttachSource.
type MMESubscriber struct {
	nc       *nats.Conn
	subject  string
	recorder *Recorder

	mu      sync.RWMutex
	cellIDs []int64
}

// NewMMESubscriber creates a subscriber for <prefix>.mme.attached.
// recorder may be nil.
func NewMMESubscriber(nc *nats.Conn, prefix string, recorder *Recorder) *MMESubscriber {
	return &MMESubscriber{
		nc:       nc,
		subject:  prefix + ".mme.attached",
		recorder: recorder,
	}
}

// Start subscribes and blocks until ctx is done
func (s *MMESubscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(s.subject, s.handleAttachList)
	if err != nil {
		return fmt.Errorf("subscribe mme attach list: %w", err)
	}

	log.Info().
		Str("subject", s.subject).
		Msg("MME attach subscriber started")

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Msg("Failed to unsubscribe MME attach list")
	}
	return ctx.Err()
}

// AttachedCellIDs returns the last reported attach list
func (s *MMESubscriber) AttachedCellIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.cellIDs))
	copy(out, s.cellIDs)
	return out
}

func (s *MMESubscriber) handleAttachList(msg *nats.Msg) {
	var list AttachList
	if err := json.Unmarshal(msg.Data, &list); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to unmarshal MME attach list")
		return
	}

	ids := append([]int64(nil), list.CellIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.mu.Lock()
	changed := !equalIDs(s.cellIDs, ids)
	s.cellIDs = ids
	s.mu.Unlock()

	if !changed {
		return
	}

	log.Info().
		Int("attached", len(ids)).
		Msg("MME attach list changed")

	if s.recorder != nil {
		s.recorder.Record(context.Background(), &models.EventLog{
			Type:        models.EventTypeMMEAttach,
			Level:       models.EventLevelInfo,
			Description: fmt.Sprintf("%d eNodeBs attached to the MME", len(ids)),
			Details: models.Variables{
				"cellIDs": ids,
			},
		})
	}
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
