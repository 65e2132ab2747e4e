package acs

import (
	"errors"
	"strings"
	"testing"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/pkg/tr069"
)

const (
	pathOpState    = "Device.Status.OpState"
	pathAdminState = "Device.Ctl.AdminState"
	pathPCI        = "Device.RF.PCI"
	pathTAC        = "Device.EPC.TAC"
	pathNumPLMNs   = "Device.EPC.NumPLMNs"
	pathPLMN       = "Device.EPC.PLMN.%d."
)

var testModel = datamodel.MustNew(datamodel.Spec{
	Name: "test",
	Params: map[datamodel.ParameterName]datamodel.ParamDescriptor{
		datamodel.ParamOpState:    {Path: pathOpState, Type: datamodel.TypeBoolean},
		datamodel.ParamAdminState: {Path: pathAdminState, Type: datamodel.TypeBoolean},
		datamodel.ParamPCI:        {Path: pathPCI, Type: datamodel.TypeUnsignedInt},
		datamodel.ParamTAC:        {Path: pathTAC, Type: datamodel.TypeUnsignedInt, Invasive: true},
		datamodel.ParamNumPLMNs:   {Path: pathNumPLMNs, Type: datamodel.TypeUnsignedInt, ReadOnly: true},
	},
	Families: []datamodel.ObjectFamily{{
		Name:       datamodel.FamilyPLMN,
		Size:       datamodel.NumPLMNSlots,
		ObjectPath: pathPLMN,
		ParentPath: "Device.EPC.PLMN.",
		NameFunc:   datamodel.PLMNObject,
		MemberFunc: datamodel.PLMNMember,
		Members: map[string]datamodel.ParamDescriptor{
			datamodel.PLMNFieldEnable:  {Path: pathPLMN + "Enable", Type: datamodel.TypeBoolean},
			datamodel.PLMNFieldPrimary: {Path: pathPLMN + "IsPrimary", Type: datamodel.TypeBoolean},
			datamodel.PLMNFieldPLMNID:  {Path: pathPLMN + "PLMNID", Type: datamodel.TypeString},
		},
	}},
	Transient: []datamodel.ParameterName{datamodel.ParamOpState},
})

type testHandler struct{}

func (testHandler) Name() string { return "test" }
func (testHandler) DataModel() *datamodel.DataModel { return testModel }
func (testHandler) DisconnectedState() StateID { return StateWaitInform }
func (testHandler) FaultState() StateID { return StateUnexpectedFault }

func (testHandler) PostprocessDesired(string, *config.ManagedConfig, *devicecfg.Configuration) {}

func (testHandler) States() map[StateID]State {
	return map[StateID]State{
		StateWaitInform:         &WaitInform{Next: StateWaitEmpty},
		StateWaitEmpty:          &WaitEmpty{Next: StateGetTransientParams, WhenReboot: StateSendReboot},
		StateGetTransientParams: &GetTransientParams{Next: StateGetParams},
		StateGetParams:          &GetParams{Next: StateGetObjectParams},
		StateGetObjectParams: &GetObjectParams{Routing: PlanRouting{
			WhenApply:        StateDeleteObjects,
			WhenInSync:       StateVerifyParams,
			WhenUnconfigured: StateEndSession,
		}},
		StateDeleteObjects:      &DeleteObjects{Next: StateAddObjects},
		StateAddObjects:         &AddObjects{Next: StateSetParams},
		StateSetParams:          &SetParams{Next: StateWaitSetParams},
		StateWaitSetParams:      &WaitSetParams{Next: StateVerifyParams, WhenReboot: StateSendReboot, RebootOnInvasive: true},
		StateVerifyParams:       &VerifyParams{Next: StateWaitVerifyParams},
		StateWaitVerifyParams:   &WaitVerifyParams{Next: StateEndSession},
		StateEndSession:         &EndSession{},
		StateSendReboot:         &SendReboot{Next: StateWaitRebootResponse},
		StateWaitRebootResponse: &WaitRebootResponse{Next: StateWaitInformMReboot},
		StateWaitInformMReboot:  &WaitInformMReboot{Next: StateWaitEmpty},
		StateUnexpectedFault:    &UnexpectedFault{Next: StateWaitInform},
	}
}

func testManaged() *config.ManagedConfig {
	return &config.ManagedConfig{
		EARFCNDL:      55340,
		BandwidthMHz:  20,
		PCI:           260,
		CellID:        1,
		TAC:           1,
		PLMNID:        "00101",
		MMEAddress:    "10.0.0.1",
		MMEPort:       36412,
		AllowTransmit: true,
	}
}

func newTestMachine(t *testing.T, mc *config.ManagedConfig) *Machine {
	t.Helper()
	m, err := NewMachine("SERIAL1", testHandler{}, func() *config.ManagedConfig { return mc })
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	return m
}

func send(t *testing.T, m *Machine, msg tr069.Message) tr069.Message {
	t.Helper()
	out, err := m.Handle(msg)
	if err != nil {
		t.Fatalf("handle %s in %s: %v", msg.MessageName(), m.State(), err)
	}
	return out
}

func gpvResponse(kv ...string) *tr069.GetParameterValuesResponse {
	resp := &tr069.GetParameterValuesResponse{}
	for i := 0; i+1 < len(kv); i += 2 {
		resp.ParameterList = append(resp.ParameterList, tr069.ParameterValue{Name: kv[i], Value: kv[i+1]})
	}
	return resp
}

func inform(events ...string) *tr069.Inform {
	in := &tr069.Inform{DeviceID: tr069.DeviceID{SerialNumber: "SERIAL1"}}
	for _, ev := range events {
		in.Events = append(in.Events, tr069.EventStruct{EventCode: ev})
	}
	return in
}

func expect[T tr069.Message](t *testing.T, msg tr069.Message) T {
	t.Helper()
	v, ok := msg.(T)
	if !ok {
		t.Fatalf("got %T (%+v)", msg, msg)
	}
	return v
}

// walkToObjectRead drives a machine up to the object parameter request
func walkToObjectRead(t *testing.T, m *Machine, pci, tac string) {
	t.Helper()
	expect[*tr069.InformResponse](t, send(t, m, inform(tr069.EventBoot)))
	gpv := expect[*tr069.GetParameterValues](t, send(t, m, &tr069.DummyInput{}))
	if len(gpv.ParameterNames) != 1 || gpv.ParameterNames[0] != pathOpState {
		t.Fatalf("transient request = %v", gpv.ParameterNames)
	}

	gpv = expect[*tr069.GetParameterValues](t, send(t, m, gpvResponse(pathOpState, "false")))
	if len(gpv.ParameterNames) != 4 {
		t.Fatalf("param request = %v", gpv.ParameterNames)
	}

	gpv = expect[*tr069.GetParameterValues](t, send(t, m, gpvResponse(
		pathAdminState, "false",
		pathNumPLMNs, "1",
		pathPCI, pci,
		pathTAC, tac,
	)))
	if len(gpv.ParameterNames) != 1 || gpv.ParameterNames[0] != "Device.EPC.PLMN." {
		t.Fatalf("object request = %v", gpv.ParameterNames)
	}
}

func plmnResponse(id string) *tr069.GetParameterValuesResponse {
	return gpvResponse(
		"Device.EPC.PLMN.1.Enable", "1",
		"Device.EPC.PLMN.1.IsPrimary", "1",
		"Device.EPC.PLMN.1.PLMNID", id,
	)
}

func TestMachineAppliesAndVerifies(t *testing.T) {
	m := newTestMachine(t, testManaged())
	walkToObjectRead(t, m, "1", "1")

	spv := expect[*tr069.SetParameterValues](t, send(t, m, plmnResponse("00102")))
	got := map[string]string{}
	for _, pv := range spv.ParameterList {
		got[pv.Name] = pv.Value
	}
	want := map[string]string{
		pathAdminState:             "true",
		pathPCI:                    "260",
		"Device.EPC.PLMN.1.PLMNID": "00101",
	}
	if len(got) != len(want) {
		t.Fatalf("SPV = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if m.State() != StateWaitSetParams {
		t.Fatalf("state = %s", m.State())
	}

	gpv := expect[*tr069.GetParameterValues](t, send(t, m, &tr069.SetParameterValuesResponse{}))
	if len(gpv.ParameterNames) != 4 {
		t.Errorf("verify request = %v", gpv.ParameterNames)
	}

	expect[*tr069.DummyInput](t, send(t, m, gpvResponse(
		pathAdminState, "true",
		pathPCI, "260",
		"Device.EPC.PLMN.1.PLMNID", "00101",
		pathOpState, "true",
	)))

	snap := m.Snapshot()
	if snap.State != StateEndSession || !snap.Configured {
		t.Errorf("state %s configured %v", snap.State, snap.Configured)
	}
	if v, _ := snap.Observed.Get(datamodel.ParamPCI); v != 260 {
		t.Errorf("observed PCI = %v", v)
	}
}

func spvValues(spv *tr069.SetParameterValues) map[string]string {
	out := make(map[string]string, len(spv.ParameterList))
	for _, pv := range spv.ParameterList {
		out[pv.Name] = pv.Value
	}
	return out
}

func TestMachineWritesToCreatedInstance(t *testing.T) {
	m := newTestMachine(t, testManaged())
	walkToObjectRead(t, m, "260", "1")

	// the only entry sits in slot 2 and carries another PLMN
	del := expect[*tr069.DeleteObject](t, send(t, m, gpvResponse(
		"Device.EPC.PLMN.2.Enable", "1",
		"Device.EPC.PLMN.2.IsPrimary", "1",
		"Device.EPC.PLMN.2.PLMNID", "00199",
	)))
	if del.ObjectName != "Device.EPC.PLMN.2." {
		t.Fatalf("deleting %q", del.ObjectName)
	}
	add := expect[*tr069.AddObject](t, send(t, m, &tr069.DeleteObjectResponse{}))
	if add.ObjectName != "Device.EPC.PLMN." {
		t.Fatalf("adding under %q", add.ObjectName)
	}

	spv := expect[*tr069.SetParameterValues](t, send(t, m, &tr069.AddObjectResponse{InstanceNumber: 3}))
	got := spvValues(spv)
	want := map[string]string{
		pathAdminState:                "true",
		"Device.EPC.PLMN.3.Enable":    "true",
		"Device.EPC.PLMN.3.IsPrimary": "true",
		"Device.EPC.PLMN.3.PLMNID":    "00101",
	}
	if len(got) != len(want) {
		t.Fatalf("SPV = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	gpv := expect[*tr069.GetParameterValues](t, send(t, m, &tr069.SetParameterValuesResponse{}))
	asked := map[string]bool{}
	for _, n := range gpv.ParameterNames {
		asked[n] = true
	}
	if !asked["Device.EPC.PLMN.3.PLMNID"] || asked["Device.EPC.PLMN.1.PLMNID"] {
		t.Errorf("verify read = %v", gpv.ParameterNames)
	}
	expect[*tr069.DummyInput](t, send(t, m, gpvResponse(
		pathAdminState, "true",
		"Device.EPC.PLMN.3.Enable", "1",
		"Device.EPC.PLMN.3.IsPrimary", "1",
		"Device.EPC.PLMN.3.PLMNID", "00101",
		pathOpState, "true",
	)))
	if snap := m.Snapshot(); !snap.Configured {
		t.Fatal("session with a renumbered instance not configured")
	}

	// the next session finds the entry in slot 3 and leaves it alone
	walkToObjectRead(t, m, "260", "1")
	spv = expect[*tr069.SetParameterValues](t, send(t, m, gpvResponse(
		"Device.EPC.PLMN.3.Enable", "1",
		"Device.EPC.PLMN.3.IsPrimary", "1",
		"Device.EPC.PLMN.3.PLMNID", "00101",
	)))
	if plan := m.Plan(); len(plan.Delete) != 0 || len(plan.Add) != 0 {
		t.Errorf("second session plan = %+v", plan)
	}
	if got := spvValues(spv); len(got) != 1 || got[pathAdminState] != "true" {
		t.Errorf("second session SPV = %v", got)
	}
}

func TestMachineObjectResponses(t *testing.T) {
	tests := []struct {
		name       string
		add        *tr069.AddObjectResponse
		wantPLMN   bool
		wantReboot bool
	}{
		{"planned slot", &tr069.AddObjectResponse{InstanceNumber: 1}, true, false},
		{"applied after reboot", &tr069.AddObjectResponse{InstanceNumber: 1, Status: 1}, true, true},
		{"instance outside the model", &tr069.AddObjectResponse{InstanceNumber: datamodel.NumPLMNSlots + 1}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, testManaged())
			walkToObjectRead(t, m, "260", "1")

			// the entry count is stale and the list is empty
			expect[*tr069.AddObject](t, send(t, m, gpvResponse()))
			spv := expect[*tr069.SetParameterValues](t, send(t, m, tt.add))
			got := spvValues(spv)
			if _, ok := got["Device.EPC.PLMN.1.PLMNID"]; ok != tt.wantPLMN {
				t.Errorf("SPV = %v, PLMN write expected %v", got, tt.wantPLMN)
			}
			for k := range got {
				if strings.HasPrefix(k, "Device.EPC.PLMN.") && !strings.HasPrefix(k, "Device.EPC.PLMN.1.") {
					t.Errorf("write to unexpected instance %s", k)
				}
			}

			out := send(t, m, &tr069.SetParameterValuesResponse{})
			if _, reboot := out.(*tr069.Reboot); reboot != tt.wantReboot {
				t.Errorf("got %T, reboot expected %v", out, tt.wantReboot)
			}
		})
	}
}

func TestMachineUnhandledMessageKeepsState(t *testing.T) {
	m := newTestMachine(t, testManaged())
	walkToObjectRead(t, m, "1", "1")
	expect[*tr069.SetParameterValues](t, send(t, m, plmnResponse("00101")))

	_, err := m.Handle(gpvResponse(pathPCI, "1"))
	if !errors.Is(err, ErrUnhandledMessage) {
		t.Fatalf("expected ErrUnhandledMessage, got %v", err)
	}
	if m.State() != StateWaitSetParams {
		t.Errorf("state changed to %s", m.State())
	}
}

func TestMachineFaultRecovery(t *testing.T) {
	m := newTestMachine(t, testManaged())
	send(t, m, inform(tr069.EventPeriodic))
	send(t, m, &tr069.DummyInput{})
	send(t, m, gpvResponse(pathOpState, "true"))
	if m.State() != StateGetParams {
		t.Fatalf("state = %s", m.State())
	}

	expect[*tr069.DummyInput](t, send(t, m, &tr069.Fault{FaultCode: tr069.FaultInternalError}))
	if m.State() != StateWaitInform {
		t.Fatalf("state after fault = %s", m.State())
	}
	expect[*tr069.InformResponse](t, send(t, m, inform(tr069.EventPeriodic)))
}

func TestMachineGetRPCMethods(t *testing.T) {
	m := newTestMachine(t, testManaged())
	send(t, m, inform(tr069.EventPeriodic))

	resp := expect[*tr069.GetRPCMethodsResponse](t, send(t, m, &tr069.GetRPCMethods{}))
	if len(resp.MethodList) == 0 {
		t.Error("empty method list")
	}
	if m.State() != StateWaitEmpty {
		t.Errorf("state = %s", m.State())
	}
}

func TestMachineInformRestartsSession(t *testing.T) {
	m := newTestMachine(t, testManaged())
	send(t, m, inform(tr069.EventPeriodic))
	send(t, m, &tr069.DummyInput{})
	first := m.Snapshot().SessionID

	expect[*tr069.InformResponse](t, send(t, m, inform(tr069.EventPeriodic)))
	snap := m.Snapshot()
	if snap.State != StateWaitEmpty {
		t.Errorf("state = %s", snap.State)
	}
	if snap.SessionID == first {
		t.Error("session id was not renewed")
	}
}

func TestMachineInvasiveWriteReboots(t *testing.T) {
	m := newTestMachine(t, testManaged())
	walkToObjectRead(t, m, "260", "7")
	send(t, m, plmnResponse("00101"))

	expect[*tr069.Reboot](t, send(t, m, &tr069.SetParameterValuesResponse{}))
	expect[*tr069.DummyInput](t, send(t, m, &tr069.RebootResponse{}))
	if m.State() != StateWaitInformMReboot {
		t.Fatalf("state = %s", m.State())
	}
	expect[*tr069.InformResponse](t, send(t, m, inform(tr069.EventBoot, tr069.EventMethodReboot)))
	if snap := m.Snapshot(); snap.State != StateWaitEmpty || snap.RebootPending {
		t.Errorf("state %s pending %v", snap.State, snap.RebootPending)
	}
}

func TestMachineRequestedReboot(t *testing.T) {
	m := newTestMachine(t, testManaged())
	m.RequestReboot()

	send(t, m, inform(tr069.EventPeriodic))
	expect[*tr069.Reboot](t, send(t, m, &tr069.DummyInput{}))
	if m.State() != StateWaitRebootResponse {
		t.Errorf("state = %s", m.State())
	}
}

func TestMachineUnconfigurableEndsSession(t *testing.T) {
	mc := testManaged()
	mc.PCI = 504
	m := newTestMachine(t, mc)
	walkToObjectRead(t, m, "1", "1")

	expect[*tr069.DummyInput](t, send(t, m, plmnResponse("00101")))
	snap := m.Snapshot()
	if snap.State != StateEndSession || snap.Configured || snap.Desired != nil {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

// twoPrimaryHandler marks a second PLMN primary after the desired build
type twoPrimaryHandler struct{ testHandler }

func (twoPrimaryHandler) PostprocessDesired(_ string, _ *config.ManagedConfig, d *devicecfg.Configuration) {
	d.SetObjectParam(datamodel.PLMNObject(2), datamodel.PLMNEnable(2), true)
	d.SetObjectParam(datamodel.PLMNObject(2), datamodel.PLMNPrimary(2), true)
}

func TestMachineRejectsSecondPrimaryPLMN(t *testing.T) {
	m, err := NewMachine("SERIAL1", twoPrimaryHandler{}, func() *config.ManagedConfig { return testManaged() })
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}

	err = m.UpdateDesired(func(*devicecfg.Configuration) {})
	var cfgErr *devicecfg.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a configuration error, got %v", err)
	}
	if m.Snapshot().Desired != nil {
		t.Error("desired kept despite two primary PLMNs")
	}
}

func TestValidateStates(t *testing.T) {
	if err := ValidateStates(testHandler{}.States(), StateWaitInform, StateUnexpectedFault); err != nil {
		t.Fatalf("valid map rejected: %v", err)
	}

	missingTarget := testHandler{}.States()
	delete(missingTarget, StateWaitVerifyParams)
	if err := ValidateStates(missingTarget, StateWaitInform, StateUnexpectedFault); err == nil {
		t.Error("undefined target accepted")
	}

	unreachable := testHandler{}.States()
	unreachable[StateDisableAdmin] = &SetAdminState{Next: StateWaitEmpty}
	if err := ValidateStates(unreachable, StateWaitInform, StateUnexpectedFault); err == nil {
		t.Error("unreachable state accepted")
	}

	noFault := testHandler{}.States()
	delete(noFault, StateUnexpectedFault)
	if err := ValidateStates(noFault, StateWaitInform, StateUnexpectedFault); err == nil {
		t.Error("missing fault state accepted")
	}
}

func TestStateIDString(t *testing.T) {
	if StateWaitInform.String() != "wait_inform" {
		t.Errorf("got %q", StateWaitInform.String())
	}
	if StateID(999).String() != "state(999)" {
		t.Errorf("got %q", StateID(999).String())
	}
}
