package devices

import (
	"testing"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/pkg/tr069"
)

var caviumInSync = map[datamodel.ParameterName]string{
	datamodel.ParamSerialNumber:           testSerial,
	datamodel.ParamSWVersion:              "OCTEON-FUSION-1.2",
	datamodel.ParamAdminState:             "1",
	datamodel.ParamIPSecEnable:            "0",
	datamodel.ParamEARFCNDL:               "39150",
	datamodel.ParamEARFCNUL:               "39150",
	datamodel.ParamBand:                   "40",
	datamodel.ParamPCI:                    "260",
	datamodel.ParamDLBandwidth:            "100",
	datamodel.ParamULBandwidth:            "100",
	datamodel.ParamCellID:                 "138777000",
	datamodel.ParamTAC:                    "1",
	datamodel.ParamSubframeAssignment:     "2",
	datamodel.ParamSpecialSubframePattern: "7",
	datamodel.ParamMMEIP:                  "192.168.60.142",
	datamodel.ParamMMEPort:                "36412",
	datamodel.ParamNumPLMNs:               "1",
	datamodel.ParamPeriodicInformEnable:   "1",
	datamodel.ParamPeriodicInformInterval: "60",
}

var caviumTransient = map[datamodel.ParameterName]string{
	datamodel.ParamOpState:    "1",
	datamodel.ParamRFTXStatus: "1",
	datamodel.ParamGPSStatus:  "Success",
	datamodel.ParamPTPStatus:  "Synchronized",
	datamodel.ParamMMEStatus:  "Connected",
}

func caviumReadConfig(t *testing.T, m *acs.Machine, full map[datamodel.ParameterName]string) tr069.Message {
	t.Helper()
	expect[*tr069.InformResponse](t, send(t, m, inform(ouiCavium, "OCTEON-FUSION-1.2", tr069.EventPeriodic)))
	expect[*tr069.GetParameterValues](t, send(t, m, &tr069.DummyInput{}))
	expect[*tr069.GetParameterValues](t, send(t, m, values(t, CaviumModel, caviumTransient)))
	expect[*tr069.GetParameterValues](t, send(t, m, values(t, CaviumModel, full)))
	return send(t, m, values(t, CaviumModel, plmnInSync))
}

func adminWrite(t *testing.T, msg tr069.Message) string {
	t.Helper()
	spv := expect[*tr069.SetParameterValues](t, msg)
	path, _ := CaviumModel.Path(datamodel.ParamAdminState)
	if len(spv.ParameterList) != 1 || spv.ParameterList[0].Name != path {
		t.Fatalf("expected admin state write, got %+v", spv.ParameterList)
	}
	return spv.ParameterList[0].Value
}

func TestCaviumDisablesAdminAroundWrites(t *testing.T) {
	mc := testManaged()
	mc.AllowTransmit = true
	m := newMachine(t, NewCavium(), mc)

	out := caviumReadConfig(t, m, with(caviumInSync, map[datamodel.ParameterName]string{
		datamodel.ParamPCI: "12",
	}))
	if v := adminWrite(t, out); v != "false" {
		t.Fatalf("first write sets admin state %q", v)
	}
	if m.State() != acs.StateWaitDisableAdmin {
		t.Fatalf("state = %s", m.State())
	}

	spv := expect[*tr069.SetParameterValues](t, send(t, m, &tr069.SetParameterValuesResponse{}))
	pci, _ := CaviumModel.Path(datamodel.ParamPCI)
	admin, _ := CaviumModel.Path(datamodel.ParamAdminState)
	if len(spv.ParameterList) != 1 || spv.ParameterList[0].Name != pci {
		t.Fatalf("config write = %+v", spv.ParameterList)
	}
	for _, pv := range spv.ParameterList {
		if pv.Name == admin {
			t.Error("admin state written with the configuration")
		}
	}
	if m.Snapshot().Observed.Bool(datamodel.ParamAdminState) {
		t.Error("observed admin state not updated after disable")
	}

	if v := adminWrite(t, send(t, m, &tr069.SetParameterValuesResponse{})); v != "true" {
		t.Fatalf("re-enable sets admin state %q", v)
	}

	gpv := expect[*tr069.GetParameterValues](t, send(t, m, &tr069.SetParameterValuesResponse{}))
	if !requested(gpv)[pci] {
		t.Errorf("verify read skipped PCI: %v", gpv.ParameterNames)
	}

	expect[*tr069.DummyInput](t, send(t, m, values(t, CaviumModel, with(caviumTransient, map[datamodel.ParameterName]string{
		datamodel.ParamPCI: "260",
	}))))
	snap := m.Snapshot()
	if !snap.Configured || snap.State != acs.StateEndSession {
		t.Errorf("configured=%v state=%s", snap.Configured, snap.State)
	}
	if !snap.Observed.Bool(datamodel.ParamMMEStatus) {
		t.Error("MME status not decoded")
	}
}

func TestCaviumInSyncOnlyVerifies(t *testing.T) {
	mc := testManaged()
	mc.AllowTransmit = true
	m := newMachine(t, NewCavium(), mc)

	gpv := expect[*tr069.GetParameterValues](t, caviumReadConfig(t, m, caviumInSync))
	if len(gpv.ParameterNames) != len(CaviumModel.TransientNames()) {
		t.Errorf("verify read asked for %v", gpv.ParameterNames)
	}
	expect[*tr069.DummyInput](t, send(t, m, values(t, CaviumModel, caviumTransient)))
	if !m.Snapshot().Configured {
		t.Error("in-sync device not configured")
	}
}

func TestCaviumDeviceRejectsVerification(t *testing.T) {
	mc := testManaged()
	mc.AllowTransmit = true
	m := newMachine(t, NewCavium(), mc)

	adminWrite(t, caviumReadConfig(t, m, with(caviumInSync, map[datamodel.ParameterName]string{
		datamodel.ParamTAC: "9",
	})))
	send(t, m, &tr069.SetParameterValuesResponse{})
	send(t, m, &tr069.SetParameterValuesResponse{})
	send(t, m, &tr069.SetParameterValuesResponse{})

	// device still reports the old TAC
	expect[*tr069.DummyInput](t, send(t, m, values(t, CaviumModel, map[datamodel.ParameterName]string{
		datamodel.ParamTAC: "9",
	})))
	if m.Snapshot().Configured {
		t.Error("device marked configured although the write did not stick")
	}
}
