package acs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/internal/reconcile"
	"github.com/magma/magma-sub003/pkg/tr069"
)

// ErrUnhandledMessage is returned when the current state does not expect
// the message. The machine stays where it is.
var ErrUnhandledMessage = errors.New("unhandled message")

// DeviceHandler wires the session machine for one vendor
type DeviceHandler interface {
	Name() string
	DataModel() *datamodel.DataModel
	States() map[StateID]State
	PostprocessDesired(serial string, managed *config.ManagedConfig, desired *devicecfg.Configuration)
	DisconnectedState() StateID
	FaultState() StateID
}

// SessionEndHook is implemented by handlers that act when a session ends.
// It runs with the machine locked and must not block.
type SessionEndHook interface {
	OnSessionEnd(m *Machine)
}

// ManagedSource returns the current managed configuration, nil if none is loaded
type ManagedSource func() *config.ManagedConfig

// Machine drives the sessions of one device
type Machine struct {
	mu       sync.Mutex
	serial   string
	handler  DeviceHandler
	model    *datamodel.DataModel
	states   map[StateID]State
	current  StateID
	managed  ManagedSource
	observer func(Snapshot)

	observed *devicecfg.Configuration
	desired  *devicecfg.Configuration
	plan     reconcile.Plan
	applied  []reconcile.SetItem

	// instances maps desired object names to the instances the device
	// actually created for them
	instances map[datamodel.ParameterName]datamodel.ParameterName

	sessionID     string
	connected     bool
	configured    bool
	probed        bool
	bulkRead      bool
	rebootPending bool
	rebootToApply bool
	adminTarget   bool
	absent        map[datamodel.ParameterName]bool
	lastInform    time.Time

	log zerolog.Logger
}

// NewMachine validates the handler's state map and creates a machine in
// the handler's disconnected state
func NewMachine(serial string, handler DeviceHandler, managed ManagedSource) (*Machine, error) {
	states := handler.States()
	if err := ValidateStates(states, handler.DisconnectedState(), handler.FaultState()); err != nil {
		return nil, fmt.Errorf("%s state map: %w", handler.Name(), err)
	}
	if managed == nil {
		managed = func() *config.ManagedConfig { return nil }
	}

	m := &Machine{
		serial:   serial,
		handler:  handler,
		model:    handler.DataModel(),
		states:   states,
		current:  handler.DisconnectedState(),
		managed:  managed,
		observed:  devicecfg.New(),
		absent:    make(map[datamodel.ParameterName]bool),
		instances: make(map[datamodel.ParameterName]datamodel.ParameterName),
	}
	m.log = log.With().Str("serial", serial).Str("vendor", handler.Name()).Logger()
	return m, nil
}

// ValidateStates checks that every transition target exists and every
// state is reachable from the initial or fault state
func ValidateStates(states map[StateID]State, initial, fault StateID) error {
	if _, ok := states[initial]; !ok {
		return fmt.Errorf("missing initial state %s", initial)
	}
	if _, ok := states[fault]; !ok {
		return fmt.Errorf("missing fault state %s", fault)
	}

	for id, st := range states {
		for _, next := range st.Targets() {
			if next == StateNone {
				continue
			}
			if _, ok := states[next]; !ok {
				return fmt.Errorf("state %s targets undefined state %s", id, next)
			}
		}
	}

	seen := map[StateID]bool{initial: true, fault: true}
	queue := []StateID{initial, fault}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range states[id].Targets() {
			if next == StateNone || seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	for id := range states {
		if !seen[id] {
			return fmt.Errorf("state %s is unreachable", id)
		}
	}
	return nil
}

// Handle processes one decoded message and returns the reply
func (m *Machine) Handle(msg tr069.Message) (tr069.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := msg.(*tr069.GetRPCMethods); ok {
		return &tr069.GetRPCMethodsResponse{MethodList: tr069.SupportedMethods}, nil
	}

	res := m.states[m.current].Read(m, msg)
	if !res.Handled {
		switch v := msg.(type) {
		case *tr069.Inform:
			m.log.Debug().Str("state", m.current.String()).Msg("Inform interrupts session, restarting")
			m.transition(m.handler.DisconnectedState())
			res = m.states[m.current].Read(m, msg)
			if !res.Handled {
				return nil, fmt.Errorf("%w: Inform in state %s", ErrUnhandledMessage, m.current)
			}
		case *tr069.Fault:
			m.log.Warn().
				Str("state", m.current.String()).
				Int("faultCode", v.FaultCode).
				Str("faultString", v.FaultString).
				Msg("Unexpected fault from device")
			m.transition(m.handler.FaultState())
			return m.produce()
		default:
			m.log.Warn().
				Str("state", m.current.String()).
				Str("message", msg.MessageName()).
				Msg("Unhandled message")
			return nil, fmt.Errorf("%w: %s in state %s", ErrUnhandledMessage, msg.MessageName(), m.current)
		}
	}

	if res.Next != StateNone {
		m.transition(res.Next)
	}
	return m.produce()
}

func (m *Machine) produce() (tr069.Message, error) {
	for hops := 0; hops <= len(m.states); hops++ {
		res := m.states[m.current].Produce(m)
		if res.Next != StateNone {
			m.transition(res.Next)
		}
		if res.Msg != nil {
			return res.Msg, nil
		}
		if res.Next == StateNone {
			return &tr069.DummyInput{}, nil
		}
	}
	return nil, fmt.Errorf("state %s produced no message", m.current)
}

func (m *Machine) transition(next StateID) {
	m.log.Debug().
		Str("from", m.current.String()).
		Str("to", next.String()).
		Msg("State transition")
	m.current = next
	if e, ok := m.states[next].(Enterer); ok {
		e.Enter(m)
	}
}

// Reset returns the machine to its disconnected state
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transition(m.handler.DisconnectedState())
	m.connected = false
	m.log.Info().Msg("Device disconnected")
}

// RequestReboot schedules a reboot at the start of the next session
func (m *Machine) RequestReboot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebootPending = true
}

// InvalidateDesired drops the desired configuration so that it is rebuilt
// from the managed configuration during the next session
func (m *Machine) InvalidateDesired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.desired = nil
}

// UpdateDesired applies fn to the desired configuration, building it first
// if needed
func (m *Machine) UpdateDesired(fn func(desired *devicecfg.Configuration)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDesired(); err != nil {
		return err
	}
	fn(m.desired)
	return nil
}

// Serial returns the device serial
func (m *Machine) Serial() string { return m.serial }

// Model returns the vendor data model
func (m *Machine) Model() *datamodel.DataModel { return m.model }

// Handler returns the vendor handler
func (m *Machine) Handler() DeviceHandler { return m.handler }

// Observed returns the observed configuration. Only valid from states and
// session hooks, which run with the machine locked.
func (m *Machine) Observed() *devicecfg.Configuration { return m.observed }

// Desired returns the desired configuration, nil until built. Same
// locking rules as Observed.
func (m *Machine) Desired() *devicecfg.Configuration { return m.desired }

// Plan returns the plan computed during the current session
func (m *Machine) Plan() reconcile.Plan { return m.plan }

// Log returns the session logger
func (m *Machine) Log() *zerolog.Logger { return &m.log }

// State returns the current state id
func (m *Machine) State() StateID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Machine) beginSession(inform *tr069.Inform) {
	m.sessionID = uuid.NewString()
	m.log = log.With().
		Str("serial", m.serial).
		Str("vendor", m.handler.Name()).
		Str("sessionID", m.sessionID).
		Logger()
	m.connected = true
	m.lastInform = time.Now()
	m.bulkRead = false
	m.plan = reconcile.Plan{}
	m.applied = nil
	m.rebootToApply = false

	if inform.HasEvent(tr069.EventBoot) || inform.HasEvent(tr069.EventBootstrap) {
		m.observed = devicecfg.New()
		m.configured = false
	}
	m.ingest(inform.ParameterList)

	events := make([]string, 0, len(inform.Events))
	for _, ev := range inform.Events {
		events = append(events, ev.EventCode)
	}
	m.log.Info().Strs("events", events).Msg("Session started")
}

func (m *Machine) endSession() {
	m.log.Info().
		Bool("configured", m.configured).
		Int("applied", len(m.applied)).
		Msg("Session ended")

	if hook, ok := m.handler.(SessionEndHook); ok {
		hook.OnSessionEnd(m)
	}
	if m.observer != nil {
		snap := m.snapshotLocked()
		go m.observer(snap)
	}
}

// ingest stores reported values in the observed configuration. Values that
// fail to decode are logged and the previous value is kept.
func (m *Machine) ingest(list []tr069.ParameterValue) {
	for _, pv := range list {
		name, ok := m.model.NameForPath(pv.Name)
		if !ok {
			continue
		}
		v, err := m.model.ToSemantic(name, pv.Value)
		if err != nil {
			m.log.Warn().Err(err).Str("path", pv.Name).Msg("Ignoring undecodable value")
			continue
		}
		if obj, ok := m.model.ObjectOf(name); ok {
			m.observed.SetObjectParam(obj, name, v)
		} else {
			m.observed.Set(name, v)
		}
	}
}

// readable drops names the device cannot answer for
func (m *Machine) readable(names []datamodel.ParameterName) []datamodel.ParameterName {
	out := make([]datamodel.ParameterName, 0, len(names))
	for _, name := range names {
		if m.absent[name] {
			continue
		}
		if _, ok := m.model.Path(name); !ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (m *Machine) getParameterValues(names []datamodel.ParameterName) *tr069.GetParameterValues {
	gpv := &tr069.GetParameterValues{ParameterNames: make([]string, 0, len(names))}
	for _, name := range names {
		if path, ok := m.model.Path(name); ok {
			gpv.ParameterNames = append(gpv.ParameterNames, path)
		}
	}
	return gpv
}

func (m *Machine) needsProbe() bool {
	return !m.probed && len(m.model.OptionalNames()) > 0
}

func (m *Machine) ensureDesired() error {
	if m.desired != nil {
		return nil
	}
	mc := m.managed()
	desired, err := devicecfg.BuildDesired(m.model, mc, m.serial)
	if err != nil {
		return err
	}
	m.handler.PostprocessDesired(m.serial, mc, desired)
	if err := devicecfg.CheckPrimaryPLMN(m.serial, m.model, desired); err != nil {
		return err
	}
	m.desired = desired
	return nil
}

// effectiveDesired is the desired configuration minus parameters the
// device does not implement, with objects moved to the instances the
// device created for them
func (m *Machine) effectiveDesired() *devicecfg.Configuration {
	d := m.desired.Clone()
	for name := range m.absent {
		d.Delete(name)
	}
	if len(m.instances) > 0 {
		d.RenumberObjects(m.model, m.instances)
	}
	return d
}

// desiredObject returns the desired object that obj currently stands in for
func (m *Machine) desiredObject(obj datamodel.ParameterName) datamodel.ParameterName {
	for from, to := range m.instances {
		if to == obj {
			return from
		}
	}
	return obj
}

// recordInstance remembers that the device created actual for planned
func (m *Machine) recordInstance(planned, actual datamodel.ParameterName) {
	base := m.desiredObject(planned)
	for from, to := range m.instances {
		if to == actual && from != base {
			delete(m.instances, from)
		}
	}
	if base == actual {
		delete(m.instances, base)
		return
	}
	m.instances[base] = actual
}

// forgetInstance drops the mapping onto a deleted instance
func (m *Machine) forgetInstance(obj datamodel.ParameterName) {
	for from, to := range m.instances {
		if to == obj {
			delete(m.instances, from)
		}
	}
}

func (m *Machine) route(r PlanRouting) StateID {
	if err := m.ensureDesired(); err != nil {
		m.configured = false
		m.log.Error().Err(err).Msg("Cannot build desired configuration, leaving device unconfigured")
		return r.WhenUnconfigured
	}

	m.plan = reconcile.Reconcile(m.effectiveDesired(), m.observed, m.model)
	if m.plan.Empty() {
		m.configured = true
		m.log.Debug().Msg("Device in sync")
		return r.WhenInSync
	}

	m.configured = false
	m.log.Info().
		Int("delete", len(m.plan.Delete)).
		Int("add", len(m.plan.Add)).
		Int("set", len(m.plan.Set)).
		Msg("Device out of sync")
	return r.WhenApply
}

// Snapshot is a consistent copy of a machine's externally visible state
type Snapshot struct {
	Serial        string
	Vendor        string
	State         StateID
	SessionID     string
	Connected     bool
	Configured    bool
	RebootPending bool
	LastInform    time.Time
	Observed      *devicecfg.Configuration
	Desired       *devicecfg.Configuration
}

// Snapshot copies the machine state for status readers
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		Serial:        m.serial,
		Vendor:        m.handler.Name(),
		State:         m.current,
		SessionID:     m.sessionID,
		Connected:     m.connected,
		Configured:    m.configured,
		RebootPending: m.rebootPending,
		LastInform:    m.lastInform,
		Observed:      m.observed.Clone(),
	}
	if m.desired != nil {
		s.Desired = m.desired.Clone()
	}
	return s
}
