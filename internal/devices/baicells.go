package devices

import (
	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
)

const (
	baicellsFAP     = "Device.Services.FAPService.1."
	baicellsRF      = baicellsFAP + "CellConfig.LTE.RAN.RF."
	baicellsTDD     = baicellsFAP + "CellConfig.LTE.RAN.PHY.TDDFrame."
	baicellsEPC     = baicellsFAP + "CellConfig.LTE.EPC."
	baicellsControl = baicellsFAP + "FAPControl.LTE."
	baicellsPerf    = "Device.FAP.PerfMgmt.Config.1."
)

// BaicellsModel is the data model of Baicells Nova radios
var BaicellsModel = datamodel.MustNew(datamodel.Spec{
	Name: VendorBaicells,
	Params: map[datamodel.ParameterName]datamodel.ParamDescriptor{
		datamodel.ParamDevice:     {Path: "Device.", Type: datamodel.TypeObject},
		datamodel.ParamFAPService: {Path: baicellsFAP, Type: datamodel.TypeObject},

		datamodel.ParamSerialNumber: {Path: "Device.DeviceInfo.SerialNumber", Type: datamodel.TypeString},
		datamodel.ParamSWVersion:    {Path: "Device.DeviceInfo.SoftwareVersion", Type: datamodel.TypeString},
		datamodel.ParamGPSEnable:    {Path: "Device.X_BAICELLS_COM_GpsSyncEnable", Type: datamodel.TypeBoolean},
		datamodel.ParamGPSLat:       {Path: "Device.FAP.GPS.LockedLatitude", Type: datamodel.TypeInt},
		datamodel.ParamGPSLong:      {Path: "Device.FAP.GPS.LockedLongitude", Type: datamodel.TypeInt},
		datamodel.ParamGPSStatus:    {Path: "Device.DeviceInfo.X_BAICELLS_COM_GPS_Status", Type: datamodel.TypeBoolean},
		datamodel.ParamPTPStatus:    {Path: "Device.DeviceInfo.X_BAICELLS_COM_1588_Status", Type: datamodel.TypeBoolean},
		datamodel.ParamMMEStatus:    {Path: "Device.DeviceInfo.X_BAICELLS_COM_MME_Status", Type: datamodel.TypeBoolean},
		datamodel.ParamREMStatus:    {Path: baicellsFAP + "REM.X_BAICELLS_COM_REM_Status", Type: datamodel.TypeBoolean, Optional: true},
		datamodel.ParamOpState:      {Path: baicellsControl + "OpState", Type: datamodel.TypeBoolean},
		datamodel.ParamRFTXStatus:   {Path: baicellsControl + "RFTxStatus", Type: datamodel.TypeBoolean},
		datamodel.ParamAdminState:   {Path: baicellsControl + "AdminState", Type: datamodel.TypeBoolean},

		datamodel.ParamLocalGatewayEnable: {Path: "Device.DeviceInfo.X_BAICELLS_COM_LTE_LGW_Switch", Type: datamodel.TypeInt, Optional: true},
		datamodel.ParamIPSecEnable:        {Path: "Device.Services.FAPService.Ipsec.IPSEC_ENABLE", Type: datamodel.TypeBoolean, Optional: true},

		datamodel.ParamEARFCNDL:               {Path: baicellsRF + "EARFCNDL", Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamEARFCNUL:               {Path: baicellsRF + "EARFCNUL", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamBand:                   {Path: baicellsRF + "FreqBandIndicator", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamPCI:                    {Path: baicellsRF + "PhyCellID", Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamDLBandwidth:            {Path: baicellsRF + "DLBandwidth", Type: datamodel.TypeString, Invasive: true},
		datamodel.ParamULBandwidth:            {Path: baicellsRF + "ULBandwidth", Type: datamodel.TypeString, Invasive: true},
		datamodel.ParamCellID:                 {Path: baicellsFAP + "CellConfig.LTE.RAN.Common.CellIdentity", Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamTAC:                    {Path: baicellsEPC + "TAC", Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamSubframeAssignment:     {Path: baicellsTDD + "SubFrameAssignment", Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamSpecialSubframePattern: {Path: baicellsTDD + "SpecialSubframePatterns", Type: datamodel.TypeUnsignedInt, Invasive: true},

		datamodel.ParamMMEIP:    {Path: baicellsControl + "Gateway.S1SigLinkServerList", Type: datamodel.TypeString, Invasive: true},
		datamodel.ParamMMEPort:  {Path: baicellsControl + "Gateway.S1SigLinkPort", Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamNumPLMNs: {Path: baicellsEPC + "PLMNListNumberOfEntries", Type: datamodel.TypeUnsignedInt, ReadOnly: true},

		datamodel.ParamPeriodicInformEnable:   {Path: "Device.ManagementServer.PeriodicInformEnable", Type: datamodel.TypeBoolean},
		datamodel.ParamPeriodicInformInterval: {Path: "Device.ManagementServer.PeriodicInformInterval", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamPerfMgmtEnable:         {Path: baicellsPerf + "Enable", Type: datamodel.TypeBoolean},
		datamodel.ParamPerfMgmtUploadInterval: {Path: baicellsPerf + "PeriodicUploadInterval", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamPerfMgmtUploadURL:      {Path: baicellsPerf + "URL", Type: datamodel.TypeString},
	},
	Families: []datamodel.ObjectFamily{
		plmnFamily(baicellsEPC+"PLMNList."),
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
		datamodel.ParamDLBandwidth: datamodel.BandwidthCodeTransform(),
		datamodel.ParamULBandwidth: datamodel.BandwidthCodeTransform(),
		datamodel.ParamGPSLat:      datamodel.GPSMillionthsTransform(),
		datamodel.ParamGPSLong:     datamodel.GPSMillionthsTransform(),
	},
})

// Baicells handles Baicells Nova radios. Optional parameters are probed
// once, and writes to radio parameters need a reboot to take effect.
type Baicells struct{}

// NewBaicells creates the Baicells handler
func NewBaicells() *Baicells {
	return &Baicells{}
}

func (h *Baicells) Name() string { return VendorBaicells }

func (h *Baicells) DataModel() *datamodel.DataModel { return BaicellsModel }

func (h *Baicells) DisconnectedState() acs.StateID { return acs.StateWaitInform }

func (h *Baicells) FaultState() acs.StateID { return acs.StateUnexpectedFault }

func (h *Baicells) States() map[acs.StateID]acs.State {
	return commonStates(map[acs.StateID]acs.State{
		acs.StateWaitInform: &acs.WaitInform{Next: acs.StateWaitEmpty},
		acs.StateWaitEmpty: &acs.WaitEmpty{
			Next:       acs.StateGetTransientParams,
			WhenReboot: acs.StateSendReboot,
			WhenProbe:  acs.StateCheckOptionalParams,
		},
		acs.StateCheckOptionalParams: &acs.CheckOptionalParams{Next: acs.StateGetTransientParams},
		acs.StateGetTransientParams:  &acs.GetTransientParams{Next: acs.StateGetParams},
		acs.StateGetParams:           &acs.GetParams{Next: acs.StateGetObjectParams},
		acs.StateGetObjectParams: &acs.GetObjectParams{Routing: acs.PlanRouting{
			WhenApply:        acs.StateDeleteObjects,
			WhenInSync:       acs.StateSetParams,
			WhenUnconfigured: acs.StateEndSession,
		}},
		acs.StateDeleteObjects: &acs.DeleteObjects{Next: acs.StateAddObjects},
		acs.StateAddObjects:    &acs.AddObjects{Next: acs.StateSetParams},
		acs.StateSetParams:     &acs.SetParams{Next: acs.StateWaitSetParams},
		acs.StateWaitSetParams: &acs.WaitSetParams{
			Next:             acs.StateVerifyParams,
			WhenReboot:       acs.StateSendReboot,
			RebootOnInvasive: true,
		},
		acs.StateVerifyParams:     &acs.VerifyParams{Next: acs.StateWaitVerifyParams},
		acs.StateWaitVerifyParams: &acs.WaitVerifyParams{Next: acs.StateEndSession},
	})
}

// PostprocessDesired keeps GPS sync on and points performance reports at
// the managed upload URL
func (h *Baicells) PostprocessDesired(serial string, mc *config.ManagedConfig, desired *devicecfg.Configuration) {
	desired.Set(datamodel.ParamGPSEnable, true)

	if mc == nil || mc.PerfMgmtUploadURL == "" {
		desired.Set(datamodel.ParamPerfMgmtEnable, false)
		return
	}
	desired.Set(datamodel.ParamPerfMgmtEnable, true)
	desired.Set(datamodel.ParamPerfMgmtUploadInterval, mc.PerfMgmtUploadInterval)
	desired.Set(datamodel.ParamPerfMgmtUploadURL, mc.PerfMgmtUploadURL)
}
