package status

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
)

// StateUnknown names radios that are attached to the core but have
// never opened a session here
const StateUnknown = "unknown"

// DeviceStatus is the reportable health of one radio
type DeviceStatus struct {
	Serial       string    `json:"serial"`
	Vendor       string    `json:"vendor,omitempty"`
	Connected    bool      `json:"connected"`
	Configured   bool      `json:"configured"`
	AdminState   bool      `json:"adminState"`
	OpState      bool      `json:"opState"`
	RFTXOn       bool      `json:"rfTxOn"`
	RFTXDesired  bool      `json:"rfTxDesired"`
	GPSConnected bool      `json:"gpsConnected"`
	PTPConnected bool      `json:"ptpConnected"`
	MMEConnected bool      `json:"mmeConnected"`
	State        string    `json:"state"`
	CellID       int64     `json:"cellID,omitempty"`
	GPSLatitude  float64   `json:"gpsLatitude"`
	GPSLongitude float64   `json:"gpsLongitude"`
	LastInform   time.Time `json:"lastInform,omitempty"`
}

// Transmitting reports whether the radio is on air as intended
func (s DeviceStatus) Transmitting() bool {
	return s.RFTXOn && s.RFTXDesired
}

// Summary counts the fleet
type Summary struct {
	Total        int `json:"total"`
	Connected    int `json:"connected"`
	Configured   int `json:"configured"`
	Transmitting int `json:"transmitting"`
	Unknown      int `json:"unknown"`
}

// Source gives read access to the session machines
type Source interface {
	Serials() []string
	Snapshot(serial string) (acs.Snapshot, bool)
}

// AttachSource lists the cell identities the core network reports as
// S1-attached
type AttachSource interface {
	AttachedCellIDs() []int64
}

// Aggregator derives DeviceStatus records from machine snapshots
type Aggregator struct {
	src      Source
	gps      *GPSCache
	attached AttachSource
}

// NewAggregator creates an aggregator. attached may be nil.
func NewAggregator(src Source, gps *GPSCache, attached AttachSource) *Aggregator {
	return &Aggregator{src: src, gps: gps, attached: attached}
}

// Status derives the status of serial. Missing devices and missing
// parameters read as false.
func (a *Aggregator) Status(serial string) DeviceStatus {
	snap, ok := a.src.Snapshot(serial)
	if !ok {
		st := DeviceStatus{Serial: serial, State: StateUnknown}
		st.GPSLatitude, st.GPSLongitude = a.gps.Get()
		return st
	}
	return a.fromSnapshot(snap)
}

func (a *Aggregator) fromSnapshot(snap acs.Snapshot) DeviceStatus {
	st := DeviceStatus{
		Serial:     snap.Serial,
		Vendor:     snap.Vendor,
		Connected:  snap.Connected,
		Configured: snap.Configured,
		State:      snap.State.String(),
		LastInform: snap.LastInform,
	}

	if obs := snap.Observed; obs != nil {
		st.AdminState = obs.Bool(datamodel.ParamAdminState)
		st.OpState = obs.Bool(datamodel.ParamOpState)
		st.RFTXOn = obs.Bool(datamodel.ParamRFTXStatus)
		st.GPSConnected = obs.Bool(datamodel.ParamGPSStatus)
		st.PTPConnected = obs.Bool(datamodel.ParamPTPStatus)
		st.MMEConnected = obs.Bool(datamodel.ParamMMEStatus)
		if id, ok := obs.Float(datamodel.ParamCellID); ok {
			st.CellID = int64(id)
		}
	}
	if snap.Desired != nil {
		st.RFTXDesired = snap.Desired.Bool(datamodel.ParamAdminState)
	}
	// radios without a TX status parameter transmit while operational
	if snap.Observed != nil && !snap.Observed.Has(datamodel.ParamRFTXStatus) {
		st.RFTXOn = st.OpState
	}

	st.GPSLatitude, st.GPSLongitude = a.coords(snap)
	return st
}

// Observe caches the coordinates a radio reported during the session that
// just ended. Register it with the session manager.
func (a *Aggregator) Observe(snap acs.Snapshot) {
	a.remember(snap)
}

// coords prefers the coordinates reported by a connected radio and
// remembers them; otherwise the cache answers
func (a *Aggregator) coords(snap acs.Snapshot) (float64, float64) {
	if lat, long, ok := a.remember(snap); ok {
		return lat, long
	}
	return a.gps.Get()
}

func (a *Aggregator) remember(snap acs.Snapshot) (float64, float64, bool) {
	if !snap.Connected || snap.Observed == nil {
		return 0, 0, false
	}
	lat, long, ok := reportedCoords(snap.Observed)
	if !ok {
		return 0, 0, false
	}
	if err := a.gps.Set(lat, long); err != nil {
		log.Error().Err(err).Str("serial", snap.Serial).Msg("Failed to cache GPS coordinates")
	}
	return lat, long, true
}

func reportedCoords(obs *devicecfg.Configuration) (float64, float64, bool) {
	lat, okLat := obs.Float(datamodel.ParamGPSLat)
	long, okLong := obs.Float(datamodel.ParamGPSLong)
	if !okLat || !okLong || (lat == 0 && long == 0) {
		return 0, 0, false
	}
	return lat, long, true
}

// FleetStatus returns the status of every serial, followed by one
// unknown record per attached cell that matches none of them
func (a *Aggregator) FleetStatus(serials []string) []DeviceStatus {
	out := make([]DeviceStatus, 0, len(serials))
	known := make(map[int64]bool, len(serials))
	for _, serial := range serials {
		st := a.Status(serial)
		if st.CellID != 0 {
			known[st.CellID] = true
		}
		out = append(out, st)
	}

	if a.attached == nil {
		return out
	}
	for _, id := range a.attached.AttachedCellIDs() {
		if known[id] {
			continue
		}
		known[id] = true
		out = append(out, DeviceStatus{State: StateUnknown, CellID: id})
	}
	return out
}

// Fleet returns the status of every device known to the source
func (a *Aggregator) Fleet() []DeviceStatus {
	return a.FleetStatus(a.src.Serials())
}

// Summarize counts a fleet status list
func Summarize(fleet []DeviceStatus) Summary {
	var s Summary
	for _, st := range fleet {
		s.Total++
		if st.State == StateUnknown && st.Serial == "" {
			s.Unknown++
			continue
		}
		if st.Connected {
			s.Connected++
		}
		if st.Configured {
			s.Configured++
		}
		if st.Transmitting() {
			s.Transmitting++
		}
	}
	return s
}
