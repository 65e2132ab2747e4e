package devicecfg

import (
	"fmt"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
)

// Legal ranges of managed values, bounds inclusive
const (
	MaxPCI                    = 503
	MaxCellID                 = 1<<28 - 1
	MaxTAC                    = 1<<16 - 1
	MaxEARFCN                 = 262143
	MaxSubframeAssignment     = 6
	MaxSpecialSubframePattern = 9
)

// ConfigurationError reports a managed value that cannot be applied to a device
type ConfigurationError struct {
	Serial string
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("invalid %s %v for %s: %s", e.Field, e.Value, e.Serial, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func checkRange(serial, field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ConfigurationError{
			Serial: serial,
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("must be between %d and %d", lo, hi),
		}
	}
	return nil
}

// Validate checks every managed value against its legal range
func Validate(serial string, mc config.ManagedConfig) error {
	checks := []struct {
		field  string
		v      int
		lo, hi int
	}{
		{"earfcndl", mc.EARFCNDL, 0, MaxEARFCN},
		{"pci", mc.PCI, 0, MaxPCI},
		{"cell_id", mc.CellID, 0, MaxCellID},
		{"tac", mc.TAC, 0, MaxTAC},
		{"subframe_assignment", mc.SubframeAssignment, 0, MaxSubframeAssignment},
		{"special_subframe_pattern", mc.SpecialSubframePattern, 0, MaxSpecialSubframePattern},
		{"mme_port", mc.MMEPort, 1, 65535},
	}
	for _, c := range checks {
		if err := checkRange(serial, c.field, c.v, c.lo, c.hi); err != nil {
			return err
		}
	}

	if !datamodel.ValidBandwidth(mc.BandwidthMHz) {
		return &ConfigurationError{
			Serial: serial,
			Field:  "bandwidth_mhz",
			Value:  mc.BandwidthMHz,
			Reason: fmt.Sprintf("must be one of %v", datamodel.Bandwidths),
		}
	}

	if n := len(mc.PLMNID); n < 5 || n > 6 || !isDigits(mc.PLMNID) {
		return &ConfigurationError{
			Serial: serial,
			Field:  "plmnid",
			Value:  mc.PLMNID,
			Reason: "must be 5 or 6 digits",
		}
	}

	if mc.MMEAddress == "" {
		return &ConfigurationError{Serial: serial, Field: "mme_address", Value: "", Reason: "required"}
	}

	return nil
}

// BuildDesired computes the desired configuration of a device from the
// managed configuration. Only parameters the data model defines are set.
// Exactly one PLMN slot, the first, is enabled and primary.
func BuildDesired(model *datamodel.DataModel, managed *config.ManagedConfig, serial string) (*Configuration, error) {
	if managed == nil {
		return nil, &ConfigurationError{Serial: serial, Field: "managed configuration", Reason: "not loaded"}
	}

	mc := managed.ForSerial(serial)
	if err := Validate(serial, mc); err != nil {
		return nil, err
	}

	desired := New()
	set := func(name datamodel.ParameterName, v any) {
		if model.Has(name) {
			desired.Set(name, v)
		}
	}

	set(datamodel.ParamEARFCNDL, mc.EARFCNDL)
	set(datamodel.ParamDLBandwidth, mc.BandwidthMHz)
	set(datamodel.ParamULBandwidth, mc.BandwidthMHz)
	set(datamodel.ParamPCI, mc.PCI)
	set(datamodel.ParamCellID, mc.CellID)
	set(datamodel.ParamTAC, mc.TAC)
	set(datamodel.ParamSubframeAssignment, mc.SubframeAssignment)
	set(datamodel.ParamSpecialSubframePattern, mc.SpecialSubframePattern)
	set(datamodel.ParamAdminState, mc.AllowTransmit)
	set(datamodel.ParamMMEIP, mc.MMEAddress)
	set(datamodel.ParamMMEPort, mc.MMEPort)
	set(datamodel.ParamPeriodicInformEnable, true)
	set(datamodel.ParamPeriodicInformInterval, mc.PeriodicInformInterval)

	if mc.SAS.Enabled {
		set(datamodel.ParamSASFCCID, mc.SAS.FCCID)
		set(datamodel.ParamSASUserID, mc.SAS.UserID)
		set(datamodel.ParamSASCategory, mc.SAS.Category)
		set(datamodel.ParamIndoorDeployment, mc.SAS.Indoor)
		set(datamodel.ParamAntennaHeight, mc.SAS.AntennaHeight)
	}

	primary := datamodel.PLMNObject(1)
	if !model.IsObject(primary) {
		return desired, nil
	}
	desired.AddObject(primary)
	setMember := func(field string, v any) {
		if name, ok := model.ObjectMember(primary, field); ok {
			desired.SetObjectParam(primary, name, v)
		}
	}
	setMember(datamodel.PLMNFieldEnable, true)
	setMember(datamodel.PLMNFieldPrimary, true)
	setMember(datamodel.PLMNFieldPLMNID, mc.PLMNID)
	setMember(datamodel.PLMNFieldCellReserved, false)

	return desired, nil
}

// PrimaryPLMNs counts object instances that are both enabled and primary
func PrimaryPLMNs(model *datamodel.DataModel, c *Configuration) int {
	n := 0
	for _, obj := range model.FamilyObjects(datamodel.FamilyPLMN) {
		enable, _ := model.ObjectMember(obj, datamodel.PLMNFieldEnable)
		primary, _ := model.ObjectMember(obj, datamodel.PLMNFieldPrimary)
		e, _ := c.GetObjectParam(obj, enable)
		p, _ := c.GetObjectParam(obj, primary)
		if e == true && p == true {
			n++
		}
	}
	return n
}

// CheckPrimaryPLMN requires exactly one enabled primary PLMN. Models
// without a primary flag pass.
func CheckPrimaryPLMN(serial string, model *datamodel.DataModel, c *Configuration) error {
	objs := model.FamilyObjects(datamodel.FamilyPLMN)
	if len(objs) == 0 {
		return nil
	}
	if _, ok := model.ObjectMember(objs[0], datamodel.PLMNFieldPrimary); !ok {
		return nil
	}
	if n := PrimaryPLMNs(model, c); n != 1 {
		return &ConfigurationError{
			Serial: serial,
			Field:  "primary PLMNs",
			Value:  n,
			Reason: "exactly one enabled PLMN must be primary",
		}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
