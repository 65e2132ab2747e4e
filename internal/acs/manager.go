package acs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/pkg/tr069"
)

var (
	// ErrNoSession is returned for a non-Inform message from a client
	// that has not opened a session
	ErrNoSession = errors.New("no session for client")
	// ErrUnknownDevice is returned for serials that never sent an Inform
	ErrUnknownDevice = errors.New("unknown device")
)

// HandlerFactory picks the vendor handler for a device's first Inform
type HandlerFactory func(inform *tr069.Inform) (DeviceHandler, error)

// Manager owns one machine per serial and routes messages to them
type Manager struct {
	factory HandlerFactory
	managed atomic.Pointer[config.ManagedConfig]

	mu       sync.RWMutex
	machines map[string]*Machine
	sessions map[string]string

	observers       []func(Snapshot)
	informObservers []func(InformEvent)
}

// InformEvent describes an accepted Inform
type InformEvent struct {
	Serial          string
	Vendor          string
	OUI             string
	ProductClass    string
	SoftwareVersion string
	ClientAddr      string
	Events          []string
	ReceivedAt      time.Time
}

// NewManager creates a manager
func NewManager(factory HandlerFactory, managed *config.ManagedConfig) *Manager {
	mg := &Manager{
		factory:  factory,
		machines: make(map[string]*Machine),
		sessions: make(map[string]string),
	}
	if managed != nil {
		mg.managed.Store(managed)
	}
	return mg
}

// OnSessionEnd registers fn to receive a snapshot whenever a session ends.
// Register observers before serving traffic.
func (mg *Manager) OnSessionEnd(fn func(Snapshot)) {
	mg.observers = append(mg.observers, fn)
}

// OnInform registers fn to receive every accepted Inform.
// Register observers before serving traffic.
func (mg *Manager) OnInform(fn func(InformEvent)) {
	mg.informObservers = append(mg.informObservers, fn)
}

// Managed returns the current managed configuration
func (mg *Manager) Managed() *config.ManagedConfig {
	return mg.managed.Load()
}

// Handle routes a message from clientAddr to the machine of its device.
// An Inform binds the client address to the announced serial.
func (mg *Manager) Handle(clientAddr string, msg tr069.Message) (tr069.Message, error) {
	var m *Machine
	if inform, ok := msg.(*tr069.Inform); ok {
		var err error
		if m, err = mg.machineFor(inform); err != nil {
			return nil, err
		}
		mg.mu.Lock()
		mg.sessions[clientAddr] = inform.DeviceID.SerialNumber
		mg.mu.Unlock()
	} else {
		mg.mu.RLock()
		serial, ok := mg.sessions[clientAddr]
		if ok {
			m = mg.machines[serial]
		}
		mg.mu.RUnlock()
		if m == nil {
			return nil, fmt.Errorf("%w %s", ErrNoSession, clientAddr)
		}
	}

	out, err := m.Handle(msg)
	if err != nil {
		return nil, err
	}
	if inform, ok := msg.(*tr069.Inform); ok {
		mg.informed(clientAddr, m, inform)
	}

	if _, done := out.(*tr069.DummyInput); done {
		mg.mu.Lock()
		delete(mg.sessions, clientAddr)
		mg.mu.Unlock()
	}
	return out, nil
}

func (mg *Manager) machineFor(inform *tr069.Inform) (*Machine, error) {
	serial := inform.DeviceID.SerialNumber
	if serial == "" {
		return nil, fmt.Errorf("inform without serial number")
	}

	mg.mu.RLock()
	m, ok := mg.machines[serial]
	mg.mu.RUnlock()
	if ok {
		return m, nil
	}

	handler, err := mg.factory(inform)
	if err != nil {
		return nil, fmt.Errorf("identify %s: %w", serial, err)
	}
	m, err = NewMachine(serial, handler, mg.Managed)
	if err != nil {
		return nil, err
	}
	m.observer = mg.notify

	mg.mu.Lock()
	defer mg.mu.Unlock()
	if existing, ok := mg.machines[serial]; ok {
		return existing, nil
	}
	mg.machines[serial] = m

	log.Info().
		Str("serial", serial).
		Str("vendor", handler.Name()).
		Str("manufacturer", inform.DeviceID.Manufacturer).
		Str("productClass", inform.DeviceID.ProductClass).
		Msg("New device")
	return m, nil
}

func (mg *Manager) informed(clientAddr string, m *Machine, inform *tr069.Inform) {
	if len(mg.informObservers) == 0 {
		return
	}
	ev := InformEvent{
		Serial:          m.Serial(),
		Vendor:          m.handler.Name(),
		OUI:             inform.DeviceID.OUI,
		ProductClass:    inform.DeviceID.ProductClass,
		SoftwareVersion: inform.SoftwareVersion(),
		ClientAddr:      clientAddr,
		ReceivedAt:      time.Now(),
	}
	for _, e := range inform.Events {
		ev.Events = append(ev.Events, e.EventCode)
	}
	for _, fn := range mg.informObservers {
		fn(ev)
	}
}

func (mg *Manager) notify(s Snapshot) {
	for _, fn := range mg.observers {
		fn(s)
	}
}

// Machine returns the machine of serial
func (mg *Manager) Machine(serial string) (*Machine, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	m, ok := mg.machines[serial]
	return m, ok
}

// Serials returns every known serial, sorted
func (mg *Manager) Serials() []string {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	serials := make([]string, 0, len(mg.machines))
	for s := range mg.machines {
		serials = append(serials, s)
	}
	sort.Strings(serials)
	return serials
}

// Snapshot returns the snapshot of serial
func (mg *Manager) Snapshot(serial string) (Snapshot, bool) {
	m, ok := mg.Machine(serial)
	if !ok {
		return Snapshot{}, false
	}
	return m.Snapshot(), true
}

// Disconnect resets the machine of serial, called by external liveness detection
func (mg *Manager) Disconnect(serial string) error {
	m, ok := mg.Machine(serial)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, serial)
	}
	m.Reset()

	mg.mu.Lock()
	for addr, s := range mg.sessions {
		if s == serial {
			delete(mg.sessions, addr)
		}
	}
	mg.mu.Unlock()
	return nil
}

// RequestReboot schedules a reboot for the next session of serial
func (mg *Manager) RequestReboot(serial string) error {
	m, ok := mg.Machine(serial)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, serial)
	}
	m.RequestReboot()
	log.Info().Str("serial", serial).Msg("Reboot requested")
	return nil
}

// ReloadManaged installs a new managed configuration. Every machine
// rebuilds its desired configuration during its next session.
func (mg *Manager) ReloadManaged(mc *config.ManagedConfig) {
	mg.managed.Store(mc)

	mg.mu.RLock()
	machines := make([]*Machine, 0, len(mg.machines))
	for _, m := range mg.machines {
		machines = append(machines, m)
	}
	mg.mu.RUnlock()

	for _, m := range machines {
		m.InvalidateDesired()
	}
	log.Info().Int("devices", len(machines)).Msg("Managed configuration reloaded")
}
