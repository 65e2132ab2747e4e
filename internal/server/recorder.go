package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/models"
	"github.com/magma/magma-sub003/internal/storage"
)

const storeTimeout = 5 * time.Second

// Recorder keeps the eNodeB registry and event log up to date from
// machine notifications
type Recorder struct {
	store storage.Store
	pub   *Publisher

	mu         sync.Mutex
	configured map[string]bool
}

// NewRecorder creates a recorder. pub may be nil.
func NewRecorder(store storage.Store, pub *Publisher) *Recorder {
	return &Recorder{
		store:      store,
		pub:        pub,
		configured: make(map[string]bool),
	}
}

// Attach registers the recorder with the manager
func (r *Recorder) Attach(mg *acs.Manager) {
	mg.OnInform(r.OnInform)
	mg.OnSessionEnd(r.OnSessionEnd)
}

// OnInform records the device in the eNodeB registry
func (r *Recorder) OnInform(ev acs.InformEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	enb := &models.ENodeB{
		Serial:          ev.Serial,
		Vendor:          ev.Vendor,
		OUI:             ev.OUI,
		ProductClass:    ev.ProductClass,
		SoftwareVersion: ev.SoftwareVersion,
		ClientAddr:      ev.ClientAddr,
		LastInformAt:    ev.ReceivedAt,
	}
	if err := r.store.UpsertENodeB(ctx, enb); err != nil {
		log.Error().Err(err).Str("serial", ev.Serial).Msg("Failed to record eNodeB")
	}
}

// OnSessionEnd logs the end of a session and configuration changes
func (r *Recorder) OnSessionEnd(s acs.Snapshot) {
	r.mu.Lock()
	was, seen := r.configured[s.Serial]
	r.configured[s.Serial] = s.Configured
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	r.Record(ctx, &models.EventLog{
		Serial:      s.Serial,
		Type:        models.EventTypeSessionEnd,
		Level:       models.EventLevelDebug,
		Description: "Session ended",
		Details: models.Variables{
			"sessionID":  s.SessionID,
			"state":      s.State.String(),
			"configured": s.Configured,
		},
	})

	switch {
	case s.Configured && (!seen || !was):
		r.Record(ctx, &models.EventLog{
			Serial:      s.Serial,
			Type:        models.EventTypeConfigured,
			Level:       models.EventLevelInfo,
			Description: "eNodeB configuration matches desired configuration",
		})
	case !s.Configured && seen && was:
		r.Record(ctx, &models.EventLog{
			Serial:      s.Serial,
			Type:        models.EventTypeUnconfigured,
			Level:       models.EventLevelWarning,
			Description: "eNodeB configuration no longer matches desired configuration",
		})
	}
}

// Disconnected records a device dropped by liveness detection
func (r *Recorder) Disconnected(ctx context.Context, serial string, silence time.Duration) {
	r.Record(ctx, &models.EventLog{
		Serial:      serial,
		Type:        models.EventTypeDisconnected,
		Level:       models.EventLevelWarning,
		Description: fmt.Sprintf("No inform for %s", silence.Round(time.Second)),
	})
}

// Record stores and publishes an event. Failures are logged only.
func (r *Recorder) Record(ctx context.Context, ev *models.EventLog) {
	if err := r.store.CreateEventLog(ctx, ev); err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to create event log")
	}
	if r.pub != nil {
		if err := r.pub.PublishEvent(ev); err != nil {
			log.Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish event")
		}
	}
}
