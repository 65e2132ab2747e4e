package devices

import (
	"testing"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/pkg/tr069"
)

var baicellsTransient = map[datamodel.ParameterName]string{
	datamodel.ParamOpState:    "false",
	datamodel.ParamRFTXStatus: "false",
	datamodel.ParamGPSLat:     "0",
	datamodel.ParamGPSLong:    "0",
}

var baicellsInSync = map[datamodel.ParameterName]string{
	datamodel.ParamSerialNumber:           testSerial,
	datamodel.ParamSWVersion:              "BaiBS_RTS_3.1.6",
	datamodel.ParamGPSEnable:              "1",
	datamodel.ParamAdminState:             "0",
	datamodel.ParamEARFCNDL:               "39150",
	datamodel.ParamEARFCNUL:               "39150",
	datamodel.ParamBand:                   "40",
	datamodel.ParamPCI:                    "260",
	datamodel.ParamDLBandwidth:            "n100",
	datamodel.ParamULBandwidth:            "n100",
	datamodel.ParamCellID:                 "138777000",
	datamodel.ParamTAC:                    "1",
	datamodel.ParamSubframeAssignment:     "2",
	datamodel.ParamSpecialSubframePattern: "7",
	datamodel.ParamMMEIP:                  "192.168.60.142",
	datamodel.ParamMMEPort:                "36412",
	datamodel.ParamNumPLMNs:               "1",
	datamodel.ParamPeriodicInformEnable:   "1",
	datamodel.ParamPeriodicInformInterval: "60",
	datamodel.ParamPerfMgmtEnable:         "1",
	datamodel.ParamPerfMgmtUploadInterval: "300",
	datamodel.ParamPerfMgmtUploadURL:      "http://192.168.60.142:8081/",
}

// baicellsReadConfig drives a fresh Baicells session up to the reconcile
// decision and returns what the machine sends next
func baicellsReadConfig(t *testing.T, m *acs.Machine, full map[datamodel.ParameterName]string) tr069.Message {
	t.Helper()

	expect[*tr069.InformResponse](t, send(t, m, inform(ouiBaicells, "BaiBS_RTS_3.1.6", tr069.EventBoot)))

	out := send(t, m, &tr069.DummyInput{})
	for _, name := range BaicellsModel.OptionalNames() {
		gpv := expect[*tr069.GetParameterValues](t, out)
		path, _ := BaicellsModel.Path(name)
		if len(gpv.ParameterNames) != 1 || gpv.ParameterNames[0] != path {
			t.Fatalf("probe asked for %v, want %s", gpv.ParameterNames, path)
		}
		out = send(t, m, &tr069.Fault{FaultCode: tr069.FaultInvalidParamName, FaultString: "Invalid parameter name"})
	}

	gpv := expect[*tr069.GetParameterValues](t, out)
	if len(gpv.ParameterNames) != len(BaicellsModel.TransientNames()) {
		t.Fatalf("transient read asked for %d names", len(gpv.ParameterNames))
	}

	gpv = expect[*tr069.GetParameterValues](t, send(t, m, values(t, BaicellsModel, baicellsTransient)))
	asked := requested(gpv)
	if len(asked) != len(baicellsInSync) {
		t.Errorf("full read asked for %d names, want %d", len(asked), len(baicellsInSync))
	}
	for _, name := range BaicellsModel.OptionalNames() {
		if path, _ := BaicellsModel.Path(name); asked[path] {
			t.Errorf("absent optional %q was read", name)
		}
	}

	gpv = expect[*tr069.GetParameterValues](t, send(t, m, values(t, BaicellsModel, full)))
	parent, _ := BaicellsModel.FamilyParentPath(datamodel.FamilyPLMN)
	if len(gpv.ParameterNames) != 1 || gpv.ParameterNames[0] != parent {
		t.Fatalf("object read asked for %v, want %s", gpv.ParameterNames, parent)
	}
	return send(t, m, values(t, BaicellsModel, plmnInSync))
}

func TestBaicellsInSyncSession(t *testing.T) {
	m := newMachine(t, NewBaicells(), testManaged())

	out := baicellsReadConfig(t, m, baicellsInSync)
	spv := expect[*tr069.SetParameterValues](t, out)
	if len(spv.ParameterList) != 0 {
		t.Fatalf("in-sync device got writes: %+v", spv.ParameterList)
	}

	gpv := expect[*tr069.GetParameterValues](t, send(t, m, &tr069.SetParameterValuesResponse{Status: 0}))
	if len(gpv.ParameterNames) != len(BaicellsModel.TransientNames()) {
		t.Errorf("verify read asked for %v", gpv.ParameterNames)
	}

	expect[*tr069.DummyInput](t, send(t, m, values(t, BaicellsModel, baicellsTransient)))
	snap := m.Snapshot()
	if snap.State != acs.StateEndSession || !snap.Configured {
		t.Errorf("state=%s configured=%v", snap.State, snap.Configured)
	}
	if lat, _ := snap.Observed.Float(datamodel.ParamGPSLat); lat != 0 {
		t.Errorf("gps lat = %v", lat)
	}

	// the probe is not repeated in later sessions
	expect[*tr069.InformResponse](t, send(t, m, inform(ouiBaicells, "BaiBS_RTS_3.1.6", tr069.EventPeriodic)))
	gpv = expect[*tr069.GetParameterValues](t, send(t, m, &tr069.DummyInput{}))
	if len(gpv.ParameterNames) != len(BaicellsModel.TransientNames()) {
		t.Errorf("second session started with %v", gpv.ParameterNames)
	}
}

func TestBaicellsInvasiveChangeReboots(t *testing.T) {
	m := newMachine(t, NewBaicells(), testManaged())

	out := baicellsReadConfig(t, m, with(baicellsInSync, map[datamodel.ParameterName]string{
		datamodel.ParamPCI: "261",
	}))
	spv := expect[*tr069.SetParameterValues](t, out)
	pciPath, _ := BaicellsModel.Path(datamodel.ParamPCI)
	if len(spv.ParameterList) != 1 || spv.ParameterList[0].Name != pciPath || spv.ParameterList[0].Value != "260" {
		t.Fatalf("unexpected writes %+v", spv.ParameterList)
	}
	if spv.ParameterList[0].Type != tr069.TypeUnsignedInt {
		t.Errorf("PCI written as %s", spv.ParameterList[0].Type)
	}

	reboot := expect[*tr069.Reboot](t, send(t, m, &tr069.SetParameterValuesResponse{Status: 0}))
	if reboot.CommandKey == "" {
		t.Error("reboot without command key")
	}
	expect[*tr069.DummyInput](t, send(t, m, &tr069.RebootResponse{}))
	if m.State() != acs.StateWaitInformMReboot {
		t.Fatalf("state = %s", m.State())
	}

	expect[*tr069.InformResponse](t, send(t, m, inform(ouiBaicells, "BaiBS_RTS_3.1.6", tr069.EventBoot, tr069.EventMethodReboot)))
	if snap := m.Snapshot(); snap.RebootPending || snap.Configured {
		t.Errorf("after reboot: pending=%v configured=%v", snap.RebootPending, snap.Configured)
	}
}

func TestBaicellsWritesDesiredBandwidthCode(t *testing.T) {
	mc := testManaged()
	mc.BandwidthMHz = 10
	m := newMachine(t, NewBaicells(), mc)

	spv := expect[*tr069.SetParameterValues](t, baicellsReadConfig(t, m, baicellsInSync))
	dl, _ := BaicellsModel.Path(datamodel.ParamDLBandwidth)
	ul, _ := BaicellsModel.Path(datamodel.ParamULBandwidth)

	got := make(map[string]string)
	for _, pv := range spv.ParameterList {
		got[pv.Name] = pv.Value
	}
	if got[dl] != "n50" || got[ul] != "n50" {
		t.Errorf("bandwidth writes = %v", got)
	}
}

func TestBaicellsPerfMgmtDisabledWithoutURL(t *testing.T) {
	mc := testManaged()
	mc.PerfMgmtUploadURL = ""
	m := newMachine(t, NewBaicells(), mc)

	if err := m.UpdateDesired(func(d *devicecfg.Configuration) {}); err != nil {
		t.Fatal(err)
	}
	d := m.Snapshot().Desired
	if d.Bool(datamodel.ParamPerfMgmtEnable) {
		t.Error("perf mgmt enabled without upload URL")
	}
	if d.Has(datamodel.ParamPerfMgmtUploadURL) {
		t.Error("upload URL set")
	}
	if !d.Bool(datamodel.ParamGPSEnable) {
		t.Error("GPS sync not forced on")
	}
}
