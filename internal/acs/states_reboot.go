package acs

import (
	"github.com/magma/magma-sub003/pkg/tr069"
)

// SendReboot asks the device to reboot
type SendReboot struct {
	Next StateID
}

func (s *SendReboot) Read(m *Machine, msg tr069.Message) ReadResult {
	return ReadResult{}
}

func (s *SendReboot) Produce(m *Machine) ProduceResult {
	m.rebootPending = false
	m.configured = false
	m.log.Info().Msg("Rebooting device")
	return produce(&tr069.Reboot{CommandKey: "enodebd-" + m.sessionID}, s.Next)
}

func (s *SendReboot) Targets() []StateID { return []StateID{s.Next} }

// WaitRebootResponse waits for the reboot acknowledgement
type WaitRebootResponse struct {
	Next StateID
}

func (s *WaitRebootResponse) Read(m *Machine, msg tr069.Message) ReadResult {
	if _, ok := msg.(*tr069.RebootResponse); !ok {
		return ReadResult{}
	}
	return handledNext(s.Next)
}

func (s *WaitRebootResponse) Produce(m *Machine) ProduceResult {
	return produce(&tr069.DummyInput{}, StateNone)
}

func (s *WaitRebootResponse) Targets() []StateID { return []StateID{s.Next} }

// WaitInformMReboot ends the session and waits for the Inform the device
// sends once it is back up. Any other Inform restarts the machine.
type WaitInformMReboot struct {
	Next StateID

	informed bool
}

func (s *WaitInformMReboot) Enter(m *Machine) { s.informed = false }

func (s *WaitInformMReboot) Read(m *Machine, msg tr069.Message) ReadResult {
	switch v := msg.(type) {
	case *tr069.Inform:
		if !v.HasEvent(tr069.EventMethodReboot) {
			return ReadResult{}
		}
		m.beginSession(v)
		s.informed = true
		return handled()
	case *tr069.DummyInput:
		if s.informed {
			return ReadResult{}
		}
		return handled()
	}
	return ReadResult{}
}

func (s *WaitInformMReboot) Produce(m *Machine) ProduceResult {
	if !s.informed {
		return produce(&tr069.DummyInput{}, StateNone)
	}
	return produce(&tr069.InformResponse{MaxEnvelopes: 1}, s.Next)
}

func (s *WaitInformMReboot) Targets() []StateID { return []StateID{s.Next} }
