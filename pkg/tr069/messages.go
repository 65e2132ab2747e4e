package tr069

import "strings"

// Message is a decoded CWMP message exchanged with a CPE
type Message interface {
	MessageName() string
}

// Inform event codes
const (
	EventBoot           = "1 BOOT"
	EventBootstrap      = "0 BOOTSTRAP"
	EventPeriodic       = "2 PERIODIC"
	EventValueChange    = "4 VALUE CHANGE"
	EventTransferDone   = "7 TRANSFER COMPLETE"
	EventMethodReboot   = "M Reboot"
	EventConnectRequest = "6 CONNECTION REQUEST"
)

// XSD value types carried in ParameterValueStruct
const (
	TypeBoolean     = "xsd:boolean"
	TypeInt         = "xsd:int"
	TypeUnsignedInt = "xsd:unsignedInt"
	TypeString      = "xsd:string"
)

// Fault codes (TR-069 Amendment 6, A.5.1)
const (
	FaultMethodNotSupported = 9000
	FaultRequestDenied      = 9001
	FaultInternalError      = 9002
	FaultInvalidArguments   = 9003
	FaultInvalidParamName   = 9005
	FaultInvalidParamType   = 9006
	FaultInvalidParamValue  = 9007
	FaultNotWritable        = 9008
)

// DeviceID identifies a CPE in an Inform
type DeviceID struct {
	Manufacturer string `json:"manufacturer"`
	OUI          string `json:"oui"`
	ProductClass string `json:"productClass"`
	SerialNumber string `json:"serialNumber"`
}

// EventStruct is one Inform event
type EventStruct struct {
	EventCode  string `json:"eventCode"`
	CommandKey string `json:"commandKey"`
}

// ParameterValue is a ParameterValueStruct
type ParameterValue struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// SetParameterFault reports why a single parameter write failed
type SetParameterFault struct {
	ParameterName string `json:"parameterName"`
	FaultCode     int    `json:"faultCode"`
	FaultString   string `json:"faultString"`
}

// Inform opens a session
type Inform struct {
	DeviceID      DeviceID         `json:"deviceId"`
	Events        []EventStruct    `json:"events"`
	MaxEnvelopes  int              `json:"maxEnvelopes"`
	RetryCount    int              `json:"retryCount"`
	ParameterList []ParameterValue `json:"parameterList"`
}

// HasEvent reports whether the Inform carries the given event code
func (i *Inform) HasEvent(code string) bool {
	for _, ev := range i.Events {
		if ev.EventCode == code {
			return true
		}
	}
	return false
}

// SoftwareVersion returns the DeviceInfo.SoftwareVersion value carried in
// the parameter list, empty when absent
func (i *Inform) SoftwareVersion() string {
	for _, pv := range i.ParameterList {
		if strings.HasSuffix(pv.Name, "DeviceInfo.SoftwareVersion") {
			return pv.Value
		}
	}
	return ""
}

// InformResponse acknowledges an Inform
type InformResponse struct {
	MaxEnvelopes int `json:"maxEnvelopes"`
}

// DummyInput is the empty HTTP POST a CPE sends when it has nothing more to say.
// Sent by the ACS it ends the session.
type DummyInput struct{}

// GetParameterValues requests values; names ending in "." are partial paths
type GetParameterValues struct {
	ParameterNames []string `json:"parameterNames"`
}

// GetParameterValuesResponse carries the requested values
type GetParameterValuesResponse struct {
	ParameterList []ParameterValue `json:"parameterList"`
}

// SetParameterValues writes values
type SetParameterValues struct {
	ParameterList []ParameterValue `json:"parameterList"`
	ParameterKey  string           `json:"parameterKey"`
}

// SetParameterValuesResponse reports write status: 0 applied, 1 applied after reboot
type SetParameterValuesResponse struct {
	Status int `json:"status"`
}

// AddObject creates an object instance under ObjectName
type AddObject struct {
	ObjectName   string `json:"objectName"`
	ParameterKey string `json:"parameterKey"`
}

// AddObjectResponse carries the new instance number
type AddObjectResponse struct {
	InstanceNumber int `json:"instanceNumber"`
	Status         int `json:"status"`
}

// DeleteObject removes an object instance
type DeleteObject struct {
	ObjectName   string `json:"objectName"`
	ParameterKey string `json:"parameterKey"`
}

// DeleteObjectResponse reports delete status
type DeleteObjectResponse struct {
	Status int `json:"status"`
}

// Reboot asks the CPE to reboot
type Reboot struct {
	CommandKey string `json:"commandKey"`
}

// RebootResponse acknowledges a Reboot
type RebootResponse struct{}

// GetRPCMethods asks for the supported method list
type GetRPCMethods struct{}

// GetRPCMethodsResponse lists supported methods
type GetRPCMethodsResponse struct {
	MethodList []string `json:"methodList"`
}

// Fault is a CWMP fault
type Fault struct {
	FaultCode                int                 `json:"faultCode"`
	FaultString              string              `json:"faultString"`
	SetParameterValuesFaults []SetParameterFault `json:"setParameterValuesFaults,omitempty"`
}

func (*Inform) MessageName() string { return "Inform" }
func (*InformResponse) MessageName() string { return "InformResponse" }
func (*DummyInput) MessageName() string { return "DummyInput" }
func (*GetParameterValues) MessageName() string { return "GetParameterValues" }
func (*GetParameterValuesResponse) MessageName() string { return "GetParameterValuesResponse" }
func (*SetParameterValues) MessageName() string { return "SetParameterValues" }
func (*SetParameterValuesResponse) MessageName() string { return "SetParameterValuesResponse" }
func (*AddObject) MessageName() string { return "AddObject" }
func (*AddObjectResponse) MessageName() string { return "AddObjectResponse" }
func (*DeleteObject) MessageName() string { return "DeleteObject" }
func (*DeleteObjectResponse) MessageName() string { return "DeleteObjectResponse" }
func (*Reboot) MessageName() string { return "Reboot" }
func (*RebootResponse) MessageName() string { return "RebootResponse" }
func (*GetRPCMethods) MessageName() string { return "GetRPCMethods" }
func (*GetRPCMethodsResponse) MessageName() string { return "GetRPCMethodsResponse" }
func (*Fault) MessageName() string { return "Fault" }

// SupportedMethods is the ACS method list returned for GetRPCMethods
var SupportedMethods = []string{
	"Inform",
	"GetRPCMethods",
	"TransferComplete",
}
