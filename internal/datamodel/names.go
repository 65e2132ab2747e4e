package datamodel

import "fmt"

// ParameterName is a vendor independent parameter identifier
type ParameterName string

// Object roots
const (
	ParamDevice     ParameterName = "Device"
	ParamFAPService ParameterName = "FAPService"
)

// Device info and status
const (
	ParamSerialNumber ParameterName = "Serial number"
	ParamSWVersion    ParameterName = "SW version"
	ParamGPSEnable    ParameterName = "GPS enable"
	ParamGPSLat       ParameterName = "GPS lat"
	ParamGPSLong      ParameterName = "GPS long"
	ParamGPSStatus    ParameterName = "GPS status"
	ParamPTPStatus    ParameterName = "PTP status"
	ParamMMEStatus    ParameterName = "MME status"
	ParamREMStatus    ParameterName = "REM status"
	ParamOpState      ParameterName = "Opstate"
	ParamRFTXStatus   ParameterName = "RF TX status"
	ParamAdminState   ParameterName = "Admin state"

	ParamLocalGatewayEnable ParameterName = "Local gateway enable"
	ParamIPSecEnable        ParameterName = "IPSec enable"
)

// Radio
const (
	ParamDLBandwidth            ParameterName = "DL bandwidth"
	ParamULBandwidth            ParameterName = "UL bandwidth"
	ParamEARFCNDL               ParameterName = "EARFCNDL"
	ParamEARFCNUL               ParameterName = "EARFCNUL"
	ParamBand                   ParameterName = "Band"
	ParamPCI                    ParameterName = "PCI"
	ParamCellID                 ParameterName = "Cell ID"
	ParamTAC                    ParameterName = "TAC"
	ParamDuplexMode             ParameterName = "Duplex mode"
	ParamSubframeAssignment     ParameterName = "Subframe assignment"
	ParamSpecialSubframePattern ParameterName = "Special subframe pattern"
	ParamTXPower                ParameterName = "TX power"
)

// Carrier aggregation
const (
	ParamCAEnable        ParameterName = "CA enable"
	ParamCACarrierNumber ParameterName = "CA carrier number"
	ParamContiguousCC    ParameterName = "Contiguous CC"
)

// Core network and management
const (
	ParamMMEIP                  ParameterName = "MME IP"
	ParamMMEPort                ParameterName = "MME port"
	ParamNumPLMNs               ParameterName = "Num PLMNs"
	ParamPeriodicInformEnable   ParameterName = "Periodic inform enable"
	ParamPeriodicInformInterval ParameterName = "Periodic inform interval"
	ParamPerfMgmtEnable         ParameterName = "Perf mgmt enable"
	ParamPerfMgmtUploadInterval ParameterName = "Perf mgmt upload interval"
	ParamPerfMgmtUploadURL      ParameterName = "Perf mgmt upload URL"
)

// Values with no wire representation, carried for the spectrum policy service
const (
	ParamSASFCCID         ParameterName = "SAS FCC ID"
	ParamSASUserID        ParameterName = "SAS user ID"
	ParamSASCategory      ParameterName = "SAS category"
	ParamIndoorDeployment ParameterName = "Indoor deployment"
	ParamAntennaHeight    ParameterName = "Antenna height"
)

// PLMN object family
const (
	FamilyPLMN = "PLMN"
	// NumPLMNSlots is the fixed size of the PLMN family
	NumPLMNSlots = 6
)

// PLMN member fields
const (
	PLMNFieldEnable       = "enable"
	PLMNFieldPrimary      = "primary"
	PLMNFieldPLMNID       = "PLMNID"
	PLMNFieldCellReserved = "cell reserved"
)


// PLMNObject returns the object name of slot n (1-based)
func PLMNObject(n int) ParameterName {
	return ParameterName(fmt.Sprintf("PLMN %d", n))
}

// PLMNMember returns the name of a member field of slot n
func PLMNMember(n int, field string) ParameterName {
	return ParameterName(fmt.Sprintf("PLMN %d %s", n, field))
}

// PLMNEnable is the enable flag of slot n
func PLMNEnable(n int) ParameterName { return PLMNMember(n, PLMNFieldEnable) }

// PLMNPrimary is the primary flag of slot n
func PLMNPrimary(n int) ParameterName { return PLMNMember(n, PLMNFieldPrimary) }

// PLMNID is the PLMN identity of slot n
func PLMNID(n int) ParameterName { return PLMNMember(n, PLMNFieldPLMNID) }

// PLMNCellReserved is the cell reserved flag of slot n
func PLMNCellReserved(n int) ParameterName { return PLMNMember(n, PLMNFieldCellReserved) }
