package devices

import (
	"testing"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/pkg/tr069"
)

const testSerial = "120200002618AGP0003"

func testManaged() *config.ManagedConfig {
	return &config.ManagedConfig{
		EARFCNDL:               39150,
		BandwidthMHz:           20,
		SubframeAssignment:     2,
		SpecialSubframePattern: 7,
		PCI:                    260,
		CellID:                 138777000,
		TAC:                    1,
		PLMNID:                 "00101",
		MMEAddress:             "192.168.60.142",
		MMEPort:                36412,
		PeriodicInformInterval: 60,
		PerfMgmtUploadInterval: 300,
		PerfMgmtUploadURL:      "http://192.168.60.142:8081/",
	}
}

func newMachine(t *testing.T, h acs.DeviceHandler, mc *config.ManagedConfig) *acs.Machine {
	t.Helper()
	m, err := acs.NewMachine(testSerial, h, func() *config.ManagedConfig { return mc })
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

func send(t *testing.T, m *acs.Machine, msg tr069.Message) tr069.Message {
	t.Helper()
	out, err := m.Handle(msg)
	if err != nil {
		t.Fatalf("%s in %s: %v", msg.MessageName(), m.State(), err)
	}
	if m.State() == acs.StateUnexpectedFault {
		t.Fatalf("%s led to the fault state", msg.MessageName())
	}
	return out
}

func expect[T tr069.Message](t *testing.T, msg tr069.Message) T {
	t.Helper()
	v, ok := msg.(T)
	if !ok {
		var want T
		t.Fatalf("got %T, want %T", msg, want)
	}
	return v
}

func inform(oui, sw string, events ...string) *tr069.Inform {
	in := &tr069.Inform{
		DeviceID: tr069.DeviceID{OUI: oui, SerialNumber: testSerial},
		ParameterList: []tr069.ParameterValue{
			{Name: "Device.DeviceInfo.SoftwareVersion", Value: sw},
		},
	}
	for _, ev := range events {
		in.Events = append(in.Events, tr069.EventStruct{EventCode: ev})
	}
	return in
}

// values answers a read with the wire values of the given names
func values(t *testing.T, model *datamodel.DataModel, vals map[datamodel.ParameterName]string) *tr069.GetParameterValuesResponse {
	t.Helper()
	resp := &tr069.GetParameterValuesResponse{}
	for name, v := range vals {
		path, ok := model.Path(name)
		if !ok {
			t.Fatalf("%s has no path for %q", model.Name(), name)
		}
		resp.ParameterList = append(resp.ParameterList, tr069.ParameterValue{Name: path, Value: v})
	}
	return resp
}

func with(base map[datamodel.ParameterName]string, overrides map[datamodel.ParameterName]string) map[datamodel.ParameterName]string {
	out := make(map[datamodel.ParameterName]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

var plmnInSync = map[datamodel.ParameterName]string{
	datamodel.PLMNEnable(1):       "1",
	datamodel.PLMNPrimary(1):      "1",
	datamodel.PLMNID(1):           "00101",
	datamodel.PLMNCellReserved(1): "0",
}

func requested(gpv *tr069.GetParameterValues) map[string]bool {
	out := make(map[string]bool, len(gpv.ParameterNames))
	for _, n := range gpv.ParameterNames {
		out[n] = true
	}
	return out
}
