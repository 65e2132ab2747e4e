package devices

import (
	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
)

const (
	caviumFAP     = "Device.Services.FAPService.1."
	caviumRF      = caviumFAP + "CellConfig.LTE.RAN.RF."
	caviumTDD     = caviumFAP + "CellConfig.LTE.RAN.PHY.TDDFrame."
	caviumEPC     = caviumFAP + "CellConfig.LTE.EPC."
	caviumControl = caviumFAP + "FAPControl.LTE."
)

// CaviumModel is the data model of Cavium OcteonFusion radios
var CaviumModel = datamodel.MustNew(datamodel.Spec{
	Name: VendorCavium,
	Params: map[datamodel.ParameterName]datamodel.ParamDescriptor{
		datamodel.ParamDevice:     {Path: "Device.", Type: datamodel.TypeObject},
		datamodel.ParamFAPService: {Path: caviumFAP, Type: datamodel.TypeObject},

		datamodel.ParamSerialNumber: {Path: "Device.DeviceInfo.SerialNumber", Type: datamodel.TypeString},
		datamodel.ParamSWVersion:    {Path: "Device.DeviceInfo.SoftwareVersion", Type: datamodel.TypeString},
		datamodel.ParamGPSStatus:    {Path: "Device.FAP.GPS.ScanStatus", Type: datamodel.TypeString},
		datamodel.ParamGPSLat:       {Path: "Device.FAP.GPS.LockedLatitude", Type: datamodel.TypeInt},
		datamodel.ParamGPSLong:      {Path: "Device.FAP.GPS.LockedLongitude", Type: datamodel.TypeInt},
		datamodel.ParamPTPStatus:    {Path: caviumControl + "X_CAVIUM_COM_PTPStatus", Type: datamodel.TypeString},
		datamodel.ParamMMEStatus:    {Path: caviumControl + "X_CAVIUM_COM_MMEStatus", Type: datamodel.TypeString},
		datamodel.ParamOpState:      {Path: caviumControl + "OpState", Type: datamodel.TypeBoolean},
		datamodel.ParamRFTXStatus:   {Path: caviumControl + "RFTxStatus", Type: datamodel.TypeBoolean},
		datamodel.ParamAdminState:   {Path: caviumControl + "AdminState", Type: datamodel.TypeBoolean},
		datamodel.ParamIPSecEnable:  {Path: caviumControl + "Gateway.X_CAVIUM_COM_IPSecEnable", Type: datamodel.TypeBoolean},

		datamodel.ParamEARFCNDL:               {Path: caviumRF + "EARFCNDL", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamEARFCNUL:               {Path: caviumRF + "EARFCNUL", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamBand:                   {Path: caviumRF + "FreqBandIndicator", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamPCI:                    {Path: caviumRF + "PhyCellID", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamDLBandwidth:            {Path: caviumRF + "DLBandwidth", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamULBandwidth:            {Path: caviumRF + "ULBandwidth", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamCellID:                 {Path: caviumFAP + "CellConfig.LTE.RAN.Common.CellIdentity", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamTAC:                    {Path: caviumEPC + "TAC", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamSubframeAssignment:     {Path: caviumTDD + "SubFrameAssignment", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamSpecialSubframePattern: {Path: caviumTDD + "SpecialSubframePatterns", Type: datamodel.TypeUnsignedInt},

		datamodel.ParamMMEIP:    {Path: caviumControl + "Gateway.S1SigLinkServerList", Type: datamodel.TypeString},
		datamodel.ParamMMEPort:  {Path: caviumControl + "Gateway.S1SigLinkPort", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamNumPLMNs: {Path: caviumEPC + "PLMNListNumberOfEntries", Type: datamodel.TypeUnsignedInt, ReadOnly: true},

		datamodel.ParamPeriodicInformEnable:   {Path: "Device.ManagementServer.PeriodicInformEnable", Type: datamodel.TypeBoolean},
		datamodel.ParamPeriodicInformInterval: {Path: "Device.ManagementServer.PeriodicInformInterval", Type: datamodel.TypeUnsignedInt},
	},
	Families: []datamodel.ObjectFamily{
		plmnFamily(caviumEPC+"PLMNList."),
	},
	Transient: []datamodel.ParameterName{
		datamodel.ParamOpState,
		datamodel.ParamRFTXStatus,
		datamodel.ParamGPSStatus,
		datamodel.ParamPTPStatus,
		datamodel.ParamMMEStatus,
		datamodel.ParamGPSLat,
		datamodel.ParamGPSLong,
	},
	Transforms: map[datamodel.ParameterName]datamodel.Transform{
		datamodel.ParamDLBandwidth: datamodel.BandwidthRBTransform(),
		datamodel.ParamULBandwidth: datamodel.BandwidthRBTransform(),
		datamodel.ParamGPSLat:      datamodel.GPSMillionthsTransform(),
		datamodel.ParamGPSLong:     datamodel.GPSMillionthsTransform(),
		datamodel.ParamGPSStatus:   datamodel.EnumTransform("Success", "Fail"),
		datamodel.ParamPTPStatus:   datamodel.EnumTransform("Synchronized", "Unsynchronized"),
		datamodel.ParamMMEStatus:   datamodel.EnumTransform("Connected", "Disconnected"),
	},
})

// Cavium handles Cavium radios. They reject configuration changes while
// transmitting, so the admin state is turned off around every write.
type Cavium struct{}

// NewCavium creates the Cavium handler
func NewCavium() *Cavium {
	return &Cavium{}
}

func (h *Cavium) Name() string { return VendorCavium }

func (h *Cavium) DataModel() *datamodel.DataModel { return CaviumModel }

func (h *Cavium) DisconnectedState() acs.StateID { return acs.StateWaitInform }

func (h *Cavium) FaultState() acs.StateID { return acs.StateUnexpectedFault }

func (h *Cavium) States() map[acs.StateID]acs.State {
	return commonStates(map[acs.StateID]acs.State{
		acs.StateWaitInform: &acs.WaitInform{Next: acs.StateWaitEmpty},
		acs.StateWaitEmpty: &acs.WaitEmpty{
			Next:       acs.StateGetTransientParams,
			WhenReboot: acs.StateSendReboot,
		},
		acs.StateGetTransientParams: &acs.GetTransientParams{Next: acs.StateGetParams},
		acs.StateGetParams:          &acs.GetParams{Next: acs.StateGetObjectParams},
		acs.StateGetObjectParams: &acs.GetObjectParams{Routing: acs.PlanRouting{
			WhenApply:        acs.StateDisableAdmin,
			WhenInSync:       acs.StateVerifyParams,
			WhenUnconfigured: acs.StateEndSession,
		}},
		acs.StateDisableAdmin:     &acs.SetAdminState{Next: acs.StateWaitDisableAdmin, Enable: false},
		acs.StateWaitDisableAdmin: &acs.WaitAdminState{Next: acs.StateDeleteObjects},
		acs.StateDeleteObjects:    &acs.DeleteObjects{Next: acs.StateAddObjects},
		acs.StateAddObjects:       &acs.AddObjects{Next: acs.StateSetParams},
		acs.StateSetParams: &acs.SetParams{
			Next: acs.StateWaitSetParams,
			Skip: []datamodel.ParameterName{datamodel.ParamAdminState},
		},
		acs.StateWaitSetParams: &acs.WaitSetParams{
			Next:       acs.StateEnableAdmin,
			WhenReboot: acs.StateSendReboot,
		},
		acs.StateEnableAdmin:      &acs.SetAdminState{Next: acs.StateWaitEnableAdmin, FromDesired: true},
		acs.StateWaitEnableAdmin:  &acs.WaitAdminState{Next: acs.StateVerifyParams},
		acs.StateVerifyParams:     &acs.VerifyParams{Next: acs.StateWaitVerifyParams},
		acs.StateWaitVerifyParams: &acs.WaitVerifyParams{Next: acs.StateEndSession},
	})
}

// PostprocessDesired runs S1 without an IPsec tunnel
func (h *Cavium) PostprocessDesired(serial string, mc *config.ManagedConfig, desired *devicecfg.Configuration) {
	desired.Set(datamodel.ParamIPSecEnable, false)
}
