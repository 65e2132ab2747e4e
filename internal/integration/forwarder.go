package integration

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/status"
)

// Report is one fleet status snapshot sent to external systems
type Report struct {
	Timestamp time.Time             `json:"timestamp"`
	Summary   status.Summary        `json:"summary"`
	Devices   []status.DeviceStatus `json:"devices"`
}

// Forwarder delivers reports to one external system
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, report *Report) error
	Close()
}

// ForwarderService fans reports out to every configured forwarder
type ForwarderService struct {
	forwarders []Forwarder
}

// NewForwarderService creates the forwarders enabled in cfg. A broker that
// cannot be reached at startup is logged and skipped.
func NewForwarderService(cfg config.IntegrationConfig) *ForwarderService {
	s := &ForwarderService{}

	if cfg.HTTP.Enabled {
		s.forwarders = append(s.forwarders, NewHTTPForwarder(cfg.HTTP))
	}

	if cfg.MQTT.Enabled {
		fw, err := NewMQTTForwarder(cfg.MQTT)
		if err != nil {
			log.Error().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT forwarder disabled")
		} else {
			s.forwarders = append(s.forwarders, fw)
		}
	}

	return s
}

// NewForwarderServiceWith creates a service over the given forwarders
func NewForwarderServiceWith(forwarders ...Forwarder) *ForwarderService {
	return &ForwarderService{forwarders: forwarders}
}

// Enabled reports whether any forwarder is configured
func (s *ForwarderService) Enabled() bool {
	return len(s.forwarders) > 0
}

// Forward sends report to every forwarder. Failures are logged and do not
// stop delivery to the others; the number of failures is returned.
func (s *ForwarderService) Forward(ctx context.Context, report *Report) int {
	failed := 0
	for _, fw := range s.forwarders {
		if err := fw.Forward(ctx, report); err != nil {
			failed++
			log.Error().
				Err(err).
				Str("forwarder", fw.Name()).
				Int("devices", len(report.Devices)).
				Msg("Failed to forward status report")
			continue
		}
		log.Debug().
			Str("forwarder", fw.Name()).
			Int("devices", len(report.Devices)).
			Msg("Status report forwarded")
	}
	return failed
}

// Close closes all forwarders
func (s *ForwarderService) Close() {
	for _, fw := range s.forwarders {
		fw.Close()
	}
}
