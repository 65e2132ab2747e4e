package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/integration"
	"github.com/magma/magma-sub003/internal/models"
	"github.com/magma/magma-sub003/internal/status"
)

// Conn is the part of *nats.Conn used for publishing
type Conn interface {
	Publish(subj string, data []byte) error
}

// Publisher publishes status and events on NATS subjects under a prefix:
//
//	<prefix>.fleet.status            fleet report
//	<prefix>.enodeb.<serial>.status  device status
//	<prefix>.events.<type>           event log entries
type Publisher struct {
	conn   Conn
	prefix string
}

// NewPublisher creates a publisher
func NewPublisher(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix}
}

// PublishFleet publishes a fleet report and the status of every known device
func (p *Publisher) PublishFleet(report *integration.Report) error {
	if err := p.publish(p.prefix+".fleet.status", report); err != nil {
		return err
	}
	for _, st := range report.Devices {
		if st.Serial == "" {
			continue
		}
		if err := p.PublishStatus(st); err != nil {
			return err
		}
	}
	return nil
}

// PublishStatus publishes the status of one device
func (p *Publisher) PublishStatus(st status.DeviceStatus) error {
	return p.publish(fmt.Sprintf("%s.enodeb.%s.status", p.prefix, token(st.Serial)), st)
}

// PublishEvent publishes an event log entry
func (p *Publisher) PublishEvent(ev *models.EventLog) error {
	return p.publish(fmt.Sprintf("%s.events.%s", p.prefix, strings.ToLower(string(ev.Type))), ev)
}

func (p *Publisher) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Int("size", len(data)).
		Msg("Published")
	return nil
}

// token makes s usable as a single subject token
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
