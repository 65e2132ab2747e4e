package devices

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/internal/policy"
	"github.com/magma/magma-sub003/pkg/tr069"
)

const freedomFiSW = "TEST3920@210901"

type fakeGrants struct {
	mu    sync.Mutex
	reqs  []policy.Request
	grant *policy.Grant
	err   error
}

func (f *fakeGrants) RequestGrant(ctx context.Context, req policy.Request) (*policy.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.grant, f.err
}

func mhz(f float64) int64 { return int64(f * 1e6) }

func freedomFiManaged() *config.ManagedConfig {
	mc := testManaged()
	mc.EARFCNDL = 55340
	mc.AllowTransmit = true
	mc.SAS = config.SASConfig{
		Enabled:  true,
		FCCID:    "P27-SCE4255W",
		UserID:   "operator-1",
		Category: "A",
		Indoor:   true,
	}
	return mc
}

var freedomFiInSync = map[datamodel.ParameterName]string{
	datamodel.ParamSerialNumber:           testSerial,
	datamodel.ParamSWVersion:              freedomFiSW,
	datamodel.ParamGPSStatus:              "1",
	datamodel.ParamGPSLat:                 "37.484000",
	datamodel.ParamGPSLong:                "-122.148000",
	datamodel.ParamPTPStatus:              "InSync",
	datamodel.ParamOpState:                "1",
	datamodel.ParamAdminState:             "1",
	datamodel.ParamEARFCNDL:               "55340",
	datamodel.ParamPCI:                    "260",
	datamodel.ParamDLBandwidth:            "100",
	datamodel.ParamULBandwidth:            "100",
	datamodel.ParamDuplexMode:             "TDDMode",
	datamodel.ParamCellID:                 "138777000",
	datamodel.ParamTAC:                    "1",
	datamodel.ParamSubframeAssignment:     "2",
	datamodel.ParamSpecialSubframePattern: "7",
	datamodel.ParamCAEnable:               "0",
	datamodel.ParamCACarrierNumber:        "1",
	datamodel.ParamContiguousCC:           "0",
	datamodel.ParamMMEIP:                  "192.168.60.142",
	datamodel.ParamMMEPort:                "36412",
	datamodel.ParamNumPLMNs:               "1",
	datamodel.ParamPeriodicInformEnable:   "1",
	datamodel.ParamPeriodicInformInterval: "60",
}

// freedomFiSession runs one bulk-read session against an in-sync radio
func freedomFiSession(t *testing.T, m *acs.Machine, bulk map[datamodel.ParameterName]string) {
	t.Helper()
	expect[*tr069.InformResponse](t, send(t, m, inform(ouiSercomm, freedomFiSW, tr069.EventPeriodic)))

	gpv := expect[*tr069.GetParameterValues](t, send(t, m, &tr069.DummyInput{}))
	if len(gpv.ParameterNames) != len(FreedomFiModel.BulkReadRoots()) {
		t.Fatalf("bulk read asked for %v", gpv.ParameterNames)
	}
	expect[*tr069.DummyInput](t, send(t, m, values(t, FreedomFiModel, with(bulk, plmnInSync))))
	if m.State() != acs.StateEndSession {
		t.Fatalf("state = %s", m.State())
	}
}

func TestFreedomFiAppliesGrant(t *testing.T) {
	grants := &fakeGrants{grant: &policy.Grant{
		RadioEnabled:              true,
		CarrierAggregationEnabled: true,
		Channels: []policy.Channel{
			{LowFrequencyHz: mhz(3570), HighFrequencyHz: mhz(3590)},
			{LowFrequencyHz: mhz(3550), HighFrequencyHz: mhz(3570)},
		},
	}}
	h := NewFreedomFi(grants)
	m := newMachine(t, h, freedomFiManaged())

	freedomFiSession(t, m, freedomFiInSync)
	h.Wait()

	if len(grants.reqs) != 1 {
		t.Fatalf("%d policy requests", len(grants.reqs))
	}
	req := grants.reqs[0]
	if req.Serial != testSerial || req.FCCID != "P27-SCE4255W" || !req.Indoor || !req.RadioOn {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Location == nil || req.Location.Latitude != 37.484 || req.Location.Longitude != -122.148 {
		t.Errorf("location = %+v", req.Location)
	}

	d := m.Snapshot().Desired
	if v, _ := d.Get(datamodel.ParamEARFCNDL); v != 55340 {
		t.Errorf("EARFCNDL = %v", v)
	}
	if !d.Bool(datamodel.ParamCAEnable) || !d.Bool(datamodel.ParamContiguousCC) {
		t.Error("carrier aggregation not enabled")
	}
	if v, _ := d.Get(datamodel.ParamCACarrierNumber); v != 2 {
		t.Errorf("carrier number = %v", v)
	}

	// the next session writes the aggregation settings
	expect[*tr069.InformResponse](t, send(t, m, inform(ouiSercomm, freedomFiSW, tr069.EventPeriodic)))
	send(t, m, &tr069.DummyInput{})
	spv := expect[*tr069.SetParameterValues](t, send(t, m, values(t, FreedomFiModel, with(freedomFiInSync, plmnInSync))))
	written := make(map[string]string)
	for _, pv := range spv.ParameterList {
		written[pv.Name] = pv.Value
	}
	caPath, _ := FreedomFiModel.Path(datamodel.ParamCAEnable)
	numPath, _ := FreedomFiModel.Path(datamodel.ParamCACarrierNumber)
	if written[caPath] != "true" || written[numPath] != "2" {
		t.Errorf("writes = %v", written)
	}
	h.Wait()
}

func TestFreedomFiNoLocationWithoutFix(t *testing.T) {
	grants := &fakeGrants{err: errors.New("unavailable")}
	h := NewFreedomFi(grants)
	m := newMachine(t, h, freedomFiManaged())

	freedomFiSession(t, m, with(freedomFiInSync, map[datamodel.ParameterName]string{
		datamodel.ParamGPSStatus: "0",
	}))
	h.Wait()

	if len(grants.reqs) != 1 || grants.reqs[0].Location != nil {
		t.Fatalf("requests = %+v", grants.reqs)
	}
	// failed requests leave the managed channel alone
	if v, _ := m.Snapshot().Desired.Get(datamodel.ParamEARFCNDL); v != 55340 {
		t.Errorf("EARFCNDL = %v", v)
	}
}

func TestFreedomFiGrantRevoked(t *testing.T) {
	h := NewFreedomFi(&fakeGrants{grant: &policy.Grant{RadioEnabled: false}})
	m := newMachine(t, h, freedomFiManaged())

	freedomFiSession(t, m, freedomFiInSync)
	h.Wait()

	if m.Snapshot().Desired.Bool(datamodel.ParamAdminState) {
		t.Error("radio left enabled after grant revoked")
	}
}

func TestFreedomFiGrantSurvivesReload(t *testing.T) {
	tests := []struct {
		name       string
		grant      *policy.Grant
		wantAdmin  bool
		wantEARFCN int
	}{
		{
			name:       "revoked",
			grant:      &policy.Grant{RadioEnabled: false},
			wantAdmin:  false,
			wantEARFCN: 55340,
		},
		{
			name: "single channel",
			grant: &policy.Grant{
				RadioEnabled: true,
				Channels:     []policy.Channel{{LowFrequencyHz: mhz(3600), HighFrequencyHz: mhz(3620)}},
			},
			wantAdmin:  true,
			wantEARFCN: 55840,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFreedomFi(&fakeGrants{grant: tt.grant})
			m := newMachine(t, h, freedomFiManaged())

			freedomFiSession(t, m, freedomFiInSync)
			h.Wait()

			// a configuration reload rebuilds desired from the managed values
			m.InvalidateDesired()
			if err := m.UpdateDesired(func(*devicecfg.Configuration) {}); err != nil {
				t.Fatalf("rebuild desired: %v", err)
			}

			d := m.Snapshot().Desired
			if got := d.Bool(datamodel.ParamAdminState); got != tt.wantAdmin {
				t.Errorf("admin state = %v after reload, want %v", got, tt.wantAdmin)
			}
			if v, _ := d.Get(datamodel.ParamEARFCNDL); v != tt.wantEARFCN {
				t.Errorf("EARFCNDL = %v after reload, want %d", v, tt.wantEARFCN)
			}
		})
	}
}

func TestPlanCarriers(t *testing.T) {
	tests := []struct {
		name    string
		grant   policy.Grant
		want    carrierPlan
		wantErr bool
	}{
		{
			name: "single 20 MHz",
			grant: policy.Grant{Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3550), HighFrequencyHz: mhz(3570)},
			}},
			want: carrierPlan{EARFCN: 55340, BandwidthMHz: 20},
		},
		{
			name: "odd width rounds down",
			grant: policy.Grant{Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3600), HighFrequencyHz: mhz(3612)},
			}},
			want: carrierPlan{EARFCN: 55800, BandwidthMHz: 10},
		},
		{
			name: "two channels without aggregation",
			grant: policy.Grant{Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3600), HighFrequencyHz: mhz(3610)},
				{LowFrequencyHz: mhz(3620), HighFrequencyHz: mhz(3630)},
			}},
			want: carrierPlan{EARFCN: 55790, BandwidthMHz: 10},
		},
		{
			name: "non contiguous aggregation",
			grant: policy.Grant{CarrierAggregationEnabled: true, Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3620), HighFrequencyHz: mhz(3630)},
				{LowFrequencyHz: mhz(3600), HighFrequencyHz: mhz(3610)},
			}},
			want: carrierPlan{EARFCN: 55790, BandwidthMHz: 10, CarrierAggregation: true},
		},
		{
			name: "unequal widths stay single carrier",
			grant: policy.Grant{CarrierAggregationEnabled: true, Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3550), HighFrequencyHz: mhz(3570)},
				{LowFrequencyHz: mhz(3570), HighFrequencyHz: mhz(3580)},
			}},
			want: carrierPlan{EARFCN: 55340, BandwidthMHz: 20},
		},
		{
			name: "outside band 48",
			grant: policy.Grant{Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3700), HighFrequencyHz: mhz(3710)},
			}},
			wantErr: true,
		},
		{
			name: "too narrow",
			grant: policy.Grant{Channels: []policy.Channel{
				{LowFrequencyHz: mhz(3550), HighFrequencyHz: mhz(3551)},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planCarriers(&tt.grant)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
