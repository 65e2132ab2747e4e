package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/integration"
	"github.com/magma/magma-sub003/internal/models"
	"github.com/magma/magma-sub003/internal/status"
	"github.com/magma/magma-sub003/internal/storage"
)

// Reporter periodically snapshots the fleet, drops silent devices and
// distributes the report to the history store, NATS and the forwarders
type Reporter struct {
	mg       *acs.Manager
	agg      *status.Aggregator
	store    storage.Store
	recorder *Recorder
	pub      *Publisher
	fwd      *integration.ForwarderService

	interval          time.Duration
	disconnectTimeout time.Duration
	now               func() time.Time
}

// ReporterOptions configures a Reporter. Publisher and Forwarders may be nil.
type ReporterOptions struct {
	Interval          time.Duration
	DisconnectTimeout time.Duration
	Publisher         *Publisher
	Forwarders        *integration.ForwarderService
}

// NewReporter creates a reporter
func NewReporter(mg *acs.Manager, agg *status.Aggregator, store storage.Store, recorder *Recorder, opts ReporterOptions) *Reporter {
	return &Reporter{
		mg:                mg,
		agg:               agg,
		store:             store,
		recorder:          recorder,
		pub:               opts.Publisher,
		fwd:               opts.Forwarders,
		interval:          opts.Interval,
		disconnectTimeout: opts.DisconnectTimeout,
		now:               time.Now,
	}
}

// Run reports every interval until ctx is done
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", r.interval).
		Dur("disconnectTimeout", r.disconnectTimeout).
		Msg("Status reporter started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Report(ctx); err != nil {
				log.Error().Err(err).Msg("Status report failed")
			}
		}
	}
}

// Report runs one reporting round
func (r *Reporter) Report(ctx context.Context) (*integration.Report, error) {
	r.dropSilent(ctx)

	fleet := r.agg.Fleet()
	report := &integration.Report{
		Timestamp: r.now(),
		Summary:   status.Summarize(fleet),
		Devices:   fleet,
	}

	if err := r.storeHistory(ctx, report); err != nil {
		return report, err
	}

	if r.pub != nil {
		if err := r.pub.PublishFleet(report); err != nil {
			log.Error().Err(err).Msg("Failed to publish fleet status")
		}
	}
	if r.fwd != nil && r.fwd.Enabled() {
		r.fwd.Forward(ctx, report)
	}

	log.Debug().
		Int("total", report.Summary.Total).
		Int("connected", report.Summary.Connected).
		Int("configured", report.Summary.Configured).
		Int("unknown", report.Summary.Unknown).
		Msg("Fleet status reported")
	return report, nil
}

// dropSilent resets the machines of devices whose last Inform is older
// than the disconnect timeout
func (r *Reporter) dropSilent(ctx context.Context) {
	if r.disconnectTimeout <= 0 {
		return
	}
	now := r.now()
	for _, serial := range r.mg.Serials() {
		snap, ok := r.mg.Snapshot(serial)
		if !ok || !snap.Connected {
			continue
		}
		silence := now.Sub(snap.LastInform)
		if silence < r.disconnectTimeout {
			continue
		}
		if err := r.mg.Disconnect(serial); err != nil {
			log.Error().Err(err).Str("serial", serial).Msg("Failed to disconnect eNodeB")
			continue
		}
		if r.recorder != nil {
			r.recorder.Disconnected(ctx, serial, silence)
		}
	}
}

func (r *Reporter) storeHistory(ctx context.Context, report *integration.Report) error {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin status history: %w", err)
	}

	for _, st := range report.Devices {
		if st.Serial == "" {
			continue
		}
		if err := tx.CreateStatusRecord(ctx, statusRecord(st, report.Timestamp)); err != nil {
			tx.Rollback()
			return fmt.Errorf("store status of %s: %w", st.Serial, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status history: %w", err)
	}
	return nil
}

func statusRecord(st status.DeviceStatus, at time.Time) *models.StatusRecord {
	return &models.StatusRecord{
		CreatedAt:    at,
		Serial:       st.Serial,
		State:        st.State,
		Connected:    st.Connected,
		Configured:   st.Configured,
		OpState:      st.OpState,
		RFTXOn:       st.RFTXOn,
		RFTXDesired:  st.RFTXDesired,
		GPSConnected: st.GPSConnected,
		PTPConnected: st.PTPConnected,
		MMEConnected: st.MMEConnected,
		CellID:       st.CellID,
		Latitude:     st.GPSLatitude,
		Longitude:    st.GPSLongitude,
	}
}
