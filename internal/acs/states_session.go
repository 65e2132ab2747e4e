package acs

import (
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/pkg/tr069"
)

// WaitInform waits for the Inform that opens a session
type WaitInform struct {
	Next StateID
}

func (s *WaitInform) Read(m *Machine, msg tr069.Message) ReadResult {
	inform, ok := msg.(*tr069.Inform)
	if !ok {
		return ReadResult{}
	}
	m.beginSession(inform)
	return handled()
}

func (s *WaitInform) Produce(m *Machine) ProduceResult {
	return produce(&tr069.InformResponse{MaxEnvelopes: 1}, s.Next)
}

func (s *WaitInform) Targets() []StateID { return []StateID{s.Next} }

// WaitEmpty waits for the empty post that follows the Inform exchange.
// A pending reboot takes priority over capability probing.
type WaitEmpty struct {
	Next       StateID
	WhenReboot StateID
	WhenProbe  StateID
}

func (s *WaitEmpty) Read(m *Machine, msg tr069.Message) ReadResult {
	if _, ok := msg.(*tr069.DummyInput); !ok {
		return ReadResult{}
	}
	switch {
	case m.rebootPending && s.WhenReboot != StateNone:
		return handledNext(s.WhenReboot)
	case s.WhenProbe != StateNone && m.needsProbe():
		return handledNext(s.WhenProbe)
	default:
		return handledNext(s.Next)
	}
}

func (s *WaitEmpty) Produce(m *Machine) ProduceResult {
	return produce(&tr069.DummyInput{}, StateNone)
}

func (s *WaitEmpty) Targets() []StateID {
	return []StateID{s.Next, s.WhenReboot, s.WhenProbe}
}

// CheckOptionalParams asks for one optional parameter per exchange.
// A fault answer means the device lacks it.
type CheckOptionalParams struct {
	Next StateID

	names []datamodel.ParameterName
	idx   int
}

func (s *CheckOptionalParams) Enter(m *Machine) {
	s.names = m.model.OptionalNames()
	s.idx = 0
}

func (s *CheckOptionalParams) current() datamodel.ParameterName {
	return s.names[s.idx]
}

func (s *CheckOptionalParams) Read(m *Machine, msg tr069.Message) ReadResult {
	if s.idx >= len(s.names) {
		return ReadResult{}
	}
	name := s.current()

	switch v := msg.(type) {
	case *tr069.GetParameterValuesResponse:
		delete(m.absent, name)
		m.ingest(v.ParameterList)
		m.log.Debug().Str("param", string(name)).Msg("Optional parameter present")
	case *tr069.Fault:
		m.absent[name] = true
		m.log.Info().Str("param", string(name)).Int("faultCode", v.FaultCode).Msg("Optional parameter absent")
	default:
		return ReadResult{}
	}

	s.idx++
	if s.idx >= len(s.names) {
		m.probed = true
		return handledNext(s.Next)
	}
	return handled()
}

func (s *CheckOptionalParams) Produce(m *Machine) ProduceResult {
	if s.idx >= len(s.names) {
		m.probed = true
		return produce(nil, s.Next)
	}
	return produce(m.getParameterValues([]datamodel.ParameterName{s.current()}), StateNone)
}

func (s *CheckOptionalParams) Targets() []StateID { return []StateID{s.Next} }

// EndSession closes the session with an empty response
type EndSession struct{}

func (s *EndSession) Enter(m *Machine) {
	m.endSession()
}

func (s *EndSession) Read(m *Machine, msg tr069.Message) ReadResult {
	if _, ok := msg.(*tr069.DummyInput); ok {
		return handled()
	}
	return ReadResult{}
}

func (s *EndSession) Produce(m *Machine) ProduceResult {
	return produce(&tr069.DummyInput{}, StateNone)
}

func (s *EndSession) Targets() []StateID { return nil }

// UnexpectedFault answers an unsolicited fault with an empty response and
// re-arms the machine for the next session
type UnexpectedFault struct {
	Next StateID
}

func (s *UnexpectedFault) Read(m *Machine, msg tr069.Message) ReadResult {
	return ReadResult{}
}

func (s *UnexpectedFault) Produce(m *Machine) ProduceResult {
	m.configured = false
	return produce(&tr069.DummyInput{}, s.Next)
}

func (s *UnexpectedFault) Targets() []StateID { return []StateID{s.Next} }
