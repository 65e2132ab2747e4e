package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// ErrDenied is returned when the policy service answers with an error
var ErrDenied = errors.New("policy service refused request")

// Location is a GPS fix in degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Request describes a radio asking for spectrum
type Request struct {
	Serial        string    `json:"serial"`
	FCCID         string    `json:"fccId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Category      string    `json:"category,omitempty"`
	Indoor        bool      `json:"indoorDeployment"`
	AntennaHeight float64   `json:"antennaHeight,omitempty"`
	Location      *Location `json:"location,omitempty"`
	RadioOn       bool      `json:"radioOn"`
}

// Channel is one granted frequency range
type Channel struct {
	LowFrequencyHz  int64   `json:"lowFrequencyHz"`
	HighFrequencyHz int64   `json:"highFrequencyHz"`
	MaxEIRPDBmMHz   float64 `json:"maxEirpDbmMhz"`
}

// BandwidthMHz returns the width of the channel
func (c Channel) BandwidthMHz() float64 {
	return float64(c.HighFrequencyHz-c.LowFrequencyHz) / 1e6
}

// CenterMHz returns the center frequency of the channel
func (c Channel) CenterMHz() float64 {
	return float64(c.HighFrequencyHz+c.LowFrequencyHz) / 2e6
}

// Grant is the policy decision for one radio
type Grant struct {
	RadioEnabled              bool      `json:"radioEnabled"`
	Channels                  []Channel `json:"channels"`
	CarrierAggregationEnabled bool      `json:"carrierAggregationEnabled"`
}

type reply struct {
	Grant *Grant `json:"grant,omitempty"`
	Error string `json:"error,omitempty"`
}

// Conn is the part of *nats.Conn the client needs
type Conn interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client asks the spectrum policy service for grants over NATS request/reply
type Client struct {
	conn    Conn
	subject string
	timeout time.Duration
}

// NewClient creates a policy client
func NewClient(conn Conn, subject string, timeout time.Duration) *Client {
	return &Client{
		conn:    conn,
		subject: subject,
		timeout: timeout,
	}
}

// Timeout returns the per-request deadline
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// RequestGrant sends req and waits for the grant
func (c *Client) RequestGrant(ctx context.Context, req Request) (*Grant, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal policy request: %w", err)
	}

	msg, err := c.conn.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return nil, fmt.Errorf("policy request: %w", err)
	}

	var r reply
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal policy reply: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDenied, r.Error)
	}
	if r.Grant == nil {
		return nil, fmt.Errorf("policy reply without grant")
	}

	log.Debug().
		Str("serial", req.Serial).
		Bool("radioEnabled", r.Grant.RadioEnabled).
		Int("channels", len(r.Grant.Channels)).
		Msg("Policy grant received")
	return r.Grant, nil
}
