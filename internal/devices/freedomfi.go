package devices

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/internal/policy"
)

const (
	freedomFiFAP      = "Device.Services.FAPService.1."
	freedomFiRF       = freedomFiFAP + "CellConfig.LTE.RAN.RF."
	freedomFiTDD      = freedomFiFAP + "CellConfig.LTE.RAN.PHY.TDDFrame."
	freedomFiCA       = freedomFiFAP + "CellConfig.LTE.RAN.CA."
	freedomFiEPC      = freedomFiFAP + "CellConfig.LTE.EPC."
	freedomFiControl  = freedomFiFAP + "FAPControl.LTE."
	freedomFiNEStatus = "Device.DeviceInfo.X_000E8F_DeviceFeature.X_000E8F_NEStatus."
)

// Band 48 (CBRS) downlink EARFCN range
const (
	band48LowMHz     = 3550
	band48HighMHz    = 3700
	band48BaseEARFCN = 55240
)

// FreedomFiModel is the data model of FreedomFi One radios. The whole tree
// is read with a few partial path requests.
var FreedomFiModel = datamodel.MustNew(datamodel.Spec{
	Name: VendorFreedomFi,
	Params: map[datamodel.ParameterName]datamodel.ParamDescriptor{
		datamodel.ParamDevice:     {Path: "Device.", Type: datamodel.TypeObject},
		datamodel.ParamFAPService: {Path: freedomFiFAP, Type: datamodel.TypeObject},

		datamodel.ParamSerialNumber: {Path: "Device.DeviceInfo.SerialNumber", Type: datamodel.TypeString},
		datamodel.ParamSWVersion:    {Path: "Device.DeviceInfo.SoftwareVersion", Type: datamodel.TypeString},
		datamodel.ParamGPSStatus:    {Path: freedomFiNEStatus + "X_000E8F_GPS_Status", Type: datamodel.TypeBoolean},
		datamodel.ParamGPSLat:       {Path: "Device.FAP.GPS.LockedLatitude", Type: datamodel.TypeString},
		datamodel.ParamGPSLong:      {Path: "Device.FAP.GPS.LockedLongitude", Type: datamodel.TypeString},
		datamodel.ParamPTPStatus:    {Path: freedomFiNEStatus + "X_000E8F_Sync_Status", Type: datamodel.TypeString},
		datamodel.ParamMMEStatus:    {Path: freedomFiNEStatus + "X_000E8F_MME_Status", Type: datamodel.TypeBoolean},
		datamodel.ParamOpState:      {Path: freedomFiControl + "OpState", Type: datamodel.TypeBoolean},
		datamodel.ParamRFTXStatus:   {Path: freedomFiControl + "RFTxStatus", Type: datamodel.TypeBoolean},
		datamodel.ParamAdminState:   {Path: freedomFiControl + "AdminState", Type: datamodel.TypeBoolean},

		datamodel.ParamEARFCNDL:               {Path: freedomFiRF + "EARFCNDL", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamEARFCNUL:               {Path: freedomFiRF + "EARFCNUL", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamBand:                   {Path: freedomFiRF + "FreqBandIndicator", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamPCI:                    {Path: freedomFiRF + "PhyCellID", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamDLBandwidth:            {Path: freedomFiRF + "DLBandwidth", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamULBandwidth:            {Path: freedomFiRF + "ULBandwidth", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamDuplexMode:             {Path: freedomFiRF + "X_000E8F_DuplexMode", Type: datamodel.TypeString},
		datamodel.ParamCellID:                 {Path: freedomFiFAP + "CellConfig.LTE.RAN.Common.CellIdentity", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamTAC:                    {Path: freedomFiEPC + "TAC", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamSubframeAssignment:     {Path: freedomFiTDD + "SubFrameAssignment", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamSpecialSubframePattern: {Path: freedomFiTDD + "SpecialSubframePatterns", Type: datamodel.TypeUnsignedInt},

		datamodel.ParamCAEnable:        {Path: freedomFiCA + "CaEnable", Type: datamodel.TypeBoolean},
		datamodel.ParamCACarrierNumber: {Path: freedomFiCA + "X_000E8F_CA_Carrier_Number", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamContiguousCC:    {Path: freedomFiCA + "X_000E8F_Cell_Freq_Contiguous", Type: datamodel.TypeBoolean},

		datamodel.ParamMMEIP:    {Path: freedomFiControl + "Gateway.S1SigLinkServerList", Type: datamodel.TypeString},
		datamodel.ParamMMEPort:  {Path: freedomFiControl + "Gateway.S1SigLinkPort", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamNumPLMNs: {Path: freedomFiEPC + "PLMNListNumberOfEntries", Type: datamodel.TypeUnsignedInt, ReadOnly: true},

		datamodel.ParamPeriodicInformEnable:   {Path: "Device.ManagementServer.PeriodicInformEnable", Type: datamodel.TypeBoolean},
		datamodel.ParamPeriodicInformInterval: {Path: "Device.ManagementServer.PeriodicInformInterval", Type: datamodel.TypeUnsignedInt},

		datamodel.ParamSASFCCID:         {NoWire: true, Type: datamodel.TypeString},
		datamodel.ParamSASUserID:        {NoWire: true, Type: datamodel.TypeString},
		datamodel.ParamSASCategory:      {NoWire: true, Type: datamodel.TypeString},
		datamodel.ParamIndoorDeployment: {NoWire: true, Type: datamodel.TypeBoolean},
		datamodel.ParamAntennaHeight:    {NoWire: true, Type: datamodel.TypeInt},
	},
	Families: []datamodel.ObjectFamily{
		plmnFamily(freedomFiEPC+"PLMNList."),
	},
	BulkReadRoots: []string{
		"Device.DeviceInfo.",
		"Device.FAP.GPS.",
		"Device.ManagementServer.",
		freedomFiFAP,
	},
	Transforms: map[datamodel.ParameterName]datamodel.Transform{
		datamodel.ParamDLBandwidth: datamodel.BandwidthRBTransform(),
		datamodel.ParamULBandwidth: datamodel.BandwidthRBTransform(),
		datamodel.ParamGPSLat:      datamodel.GPSDegreesTransform(),
		datamodel.ParamGPSLong:     datamodel.GPSDegreesTransform(),
		datamodel.ParamPTPStatus:   datamodel.EnumTransform("InSync", "OutOfSync"),
		datamodel.ParamDuplexMode:  datamodel.DuplexModeTransform("Mode"),
	},
})

// GrantRequester asks the spectrum policy service for a grant
type GrantRequester interface {
	RequestGrant(ctx context.Context, req policy.Request) (*policy.Grant, error)
}

// FreedomFi handles FreedomFi One radios. After every session the radio's
// registration and location go to the spectrum policy service, and the
// answer becomes the radio's channel for the next session.
type FreedomFi struct {
	grants GrantRequester
	wg     sync.WaitGroup

	mu   sync.Mutex
	last map[string]appliedGrant
}

// appliedGrant is the latest usable grant of one radio
type appliedGrant struct {
	grant *policy.Grant
	plan  carrierPlan
}

// NewFreedomFi creates the FreedomFi handler
func NewFreedomFi(grants GrantRequester) *FreedomFi {
	return &FreedomFi{grants: grants, last: make(map[string]appliedGrant)}
}

func (h *FreedomFi) Name() string { return VendorFreedomFi }

func (h *FreedomFi) DataModel() *datamodel.DataModel { return FreedomFiModel }

func (h *FreedomFi) DisconnectedState() acs.StateID { return acs.StateWaitInform }

func (h *FreedomFi) FaultState() acs.StateID { return acs.StateUnexpectedFault }

func (h *FreedomFi) States() map[acs.StateID]acs.State {
	return commonStates(map[acs.StateID]acs.State{
		acs.StateWaitInform: &acs.WaitInform{Next: acs.StateWaitEmpty},
		acs.StateWaitEmpty: &acs.WaitEmpty{
			Next:       acs.StateGetParams,
			WhenReboot: acs.StateSendReboot,
		},
		acs.StateGetParams: &acs.GetParams{Next: acs.StateGetObjectParams},
		acs.StateGetObjectParams: &acs.GetObjectParams{Routing: acs.PlanRouting{
			WhenApply:        acs.StateDeleteObjects,
			WhenInSync:       acs.StateEndSession,
			WhenUnconfigured: acs.StateEndSession,
		}},
		acs.StateDeleteObjects: &acs.DeleteObjects{Next: acs.StateAddObjects},
		acs.StateAddObjects:    &acs.AddObjects{Next: acs.StateSetParams},
		acs.StateSetParams:     &acs.SetParams{Next: acs.StateWaitSetParams},
		acs.StateWaitSetParams: &acs.WaitSetParams{
			Next:       acs.StateVerifyParams,
			WhenReboot: acs.StateSendReboot,
		},
		acs.StateVerifyParams:     &acs.VerifyParams{Next: acs.StateWaitVerifyParams},
		acs.StateWaitVerifyParams: &acs.WaitVerifyParams{Next: acs.StateEndSession},
	})
}

// PostprocessDesired starts every radio on a single carrier until a grant
// says otherwise. The last grant of the radio outlives configuration reloads.
func (h *FreedomFi) PostprocessDesired(serial string, mc *config.ManagedConfig, desired *devicecfg.Configuration) {
	desired.Set(datamodel.ParamCAEnable, false)
	desired.Set(datamodel.ParamCACarrierNumber, 1)
	desired.Set(datamodel.ParamContiguousCC, false)

	h.mu.Lock()
	last, ok := h.last[serial]
	h.mu.Unlock()
	if ok {
		applyGrant(desired, last.grant, last.plan)
	}
}

// OnSessionEnd sends the policy request in the background. The machine is
// locked here, so everything the request needs is copied first.
func (h *FreedomFi) OnSessionEnd(m *acs.Machine) {
	if h.grants == nil {
		return
	}
	req := grantRequest(m)
	serial := m.Serial()
	logger := *m.Log()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		grant, err := h.grants.RequestGrant(context.Background(), req)
		if err != nil {
			logger.Warn().Err(err).Msg("Spectrum grant request failed")
			return
		}

		var plan carrierPlan
		if grant.RadioEnabled && len(grant.Channels) > 0 {
			if plan, err = planCarriers(grant); err != nil {
				logger.Error().Err(err).Msg("Unusable spectrum grant")
				return
			}
		}

		h.mu.Lock()
		h.last[serial] = appliedGrant{grant: grant, plan: plan}
		h.mu.Unlock()

		err = m.UpdateDesired(func(d *devicecfg.Configuration) {
			applyGrant(d, grant, plan)
		})
		if err != nil {
			logger.Error().Err(err).Msg("Cannot apply spectrum grant")
			return
		}
		logger.Info().
			Bool("radioEnabled", grant.RadioEnabled).
			Int("earfcn", plan.EARFCN).
			Float64("bandwidthMHz", plan.BandwidthMHz).
			Bool("carrierAggregation", plan.CarrierAggregation).
			Msg("Spectrum grant applied")
	}()
}

// Wait blocks until in-flight policy requests finish
func (h *FreedomFi) Wait() {
	h.wg.Wait()
}

func grantRequest(m *acs.Machine) policy.Request {
	obs := m.Observed()
	req := policy.Request{
		Serial:  m.Serial(),
		RadioOn: obs.Bool(datamodel.ParamOpState),
	}

	if d := m.Desired(); d != nil {
		req.FCCID = d.String(datamodel.ParamSASFCCID)
		req.UserID = d.String(datamodel.ParamSASUserID)
		req.Category = d.String(datamodel.ParamSASCategory)
		req.Indoor = d.Bool(datamodel.ParamIndoorDeployment)
		req.AntennaHeight, _ = d.Float(datamodel.ParamAntennaHeight)
	}

	if obs.Bool(datamodel.ParamGPSStatus) {
		lat, _ := obs.Float(datamodel.ParamGPSLat)
		long, _ := obs.Float(datamodel.ParamGPSLong)
		if lat != 0 || long != 0 {
			req.Location = &policy.Location{Latitude: lat, Longitude: long}
		}
	}
	return req
}

// carrierPlan is the radio configuration derived from a grant
type carrierPlan struct {
	EARFCN             int
	BandwidthMHz       float64
	CarrierAggregation bool
	Contiguous         bool
}

// planCarriers picks the primary carrier from the lowest granted channel.
// Carrier aggregation needs two granted channels of the same legal width.
func planCarriers(g *policy.Grant) (carrierPlan, error) {
	chs := append([]policy.Channel(nil), g.Channels...)
	sort.Slice(chs, func(i, j int) bool {
		return chs[i].LowFrequencyHz < chs[j].LowFrequencyHz
	})
	primary := chs[0]

	bw, err := datamodel.FloorBandwidth(primary.BandwidthMHz())
	if err != nil {
		return carrierPlan{}, err
	}
	earfcn, err := band48EARFCN(primary.CenterMHz())
	if err != nil {
		return carrierPlan{}, err
	}
	plan := carrierPlan{EARFCN: earfcn, BandwidthMHz: bw}

	if g.CarrierAggregationEnabled && len(chs) >= 2 {
		second := chs[1]
		if bw == primary.BandwidthMHz() && second.BandwidthMHz() == bw {
			plan.CarrierAggregation = true
			plan.Contiguous = primary.HighFrequencyHz == second.LowFrequencyHz
		}
	}
	return plan, nil
}

func band48EARFCN(centerMHz float64) (int, error) {
	if centerMHz < band48LowMHz || centerMHz >= band48HighMHz {
		return 0, fmt.Errorf("center frequency %v MHz outside band 48", centerMHz)
	}
	return band48BaseEARFCN + int(math.Round((centerMHz-band48LowMHz)*10)), nil
}

func applyGrant(d *devicecfg.Configuration, g *policy.Grant, plan carrierPlan) {
	if !g.RadioEnabled || len(g.Channels) == 0 {
		d.Set(datamodel.ParamAdminState, false)
		return
	}

	d.Set(datamodel.ParamAdminState, true)
	d.Set(datamodel.ParamEARFCNDL, plan.EARFCN)
	d.Set(datamodel.ParamDLBandwidth, plan.BandwidthMHz)
	d.Set(datamodel.ParamULBandwidth, plan.BandwidthMHz)
	d.Set(datamodel.ParamCAEnable, plan.CarrierAggregation)
	d.Set(datamodel.ParamContiguousCC, plan.Contiguous)
	if plan.CarrierAggregation {
		d.Set(datamodel.ParamCACarrierNumber, 2)
	} else {
		d.Set(datamodel.ParamCACarrierNumber, 1)
	}
}
