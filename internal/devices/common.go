package devices

import (
	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/datamodel"
)

// commonStates adds the reboot and fault states every vendor shares
func commonStates(states map[acs.StateID]acs.State) map[acs.StateID]acs.State {
	states[acs.StateSendReboot] = &acs.SendReboot{Next: acs.StateWaitRebootResponse}
	states[acs.StateWaitRebootResponse] = &acs.WaitRebootResponse{Next: acs.StateWaitInformMReboot}
	states[acs.StateWaitInformMReboot] = &acs.WaitInformMReboot{Next: acs.StateWaitEmpty}
	states[acs.StateEndSession] = &acs.EndSession{}
	states[acs.StateUnexpectedFault] = &acs.UnexpectedFault{Next: acs.StateWaitInform}
	return states
}

// plmnFamily builds the PLMN list family rooted at parent
func plmnFamily(parent string) datamodel.ObjectFamily {
	obj := parent + "%d."
	return datamodel.ObjectFamily{
		Name:       datamodel.FamilyPLMN,
		Size:       datamodel.NumPLMNSlots,
		ObjectPath: obj,
		ParentPath: parent,
		NameFunc:   datamodel.PLMNObject,
		MemberFunc: datamodel.PLMNMember,
		Members: map[string]datamodel.ParamDescriptor{
			datamodel.PLMNFieldEnable:       {Path: obj + "Enable", Type: datamodel.TypeBoolean, Invasive: true},
			datamodel.PLMNFieldPrimary:      {Path: obj + "IsPrimary", Type: datamodel.TypeBoolean, Invasive: true},
			datamodel.PLMNFieldPLMNID:       {Path: obj + "PLMNID", Type: datamodel.TypeString, Invasive: true},
			datamodel.PLMNFieldCellReserved: {Path: obj + "CellReservedForOperatorUse", Type: datamodel.TypeBoolean, Invasive: true},
		},
	}
}
