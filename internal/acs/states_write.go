package acs

import (
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/reconcile"
	"github.com/magma/magma-sub003/pkg/tr069"
)

const parameterKey = "enodebd"

// DeleteObjects removes the planned object instances, one per exchange
type DeleteObjects struct {
	Next StateID

	idx int
}

func (s *DeleteObjects) Enter(m *Machine) { s.idx = 0 }

func (s *DeleteObjects) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.DeleteObjectResponse)
	if !ok || s.idx >= len(m.plan.Delete) {
		return ReadResult{}
	}
	obj := m.plan.Delete[s.idx]
	m.observed.DeleteObject(obj)
	m.forgetInstance(obj)
	if resp.Status == 1 {
		m.rebootToApply = true
	}
	m.log.Info().Str("object", string(obj)).Int("status", resp.Status).Msg("Object deleted")

	s.idx++
	if s.idx >= len(m.plan.Delete) {
		return handledNext(s.Next)
	}
	return handled()
}

func (s *DeleteObjects) Produce(m *Machine) ProduceResult {
	if s.idx >= len(m.plan.Delete) {
		return produce(nil, s.Next)
	}
	path, _ := m.model.Path(m.plan.Delete[s.idx])
	return produce(&tr069.DeleteObject{ObjectName: path, ParameterKey: parameterKey}, StateNone)
}

func (s *DeleteObjects) Targets() []StateID { return []StateID{s.Next} }

// AddObjects creates the planned object instances, one per exchange. The
// device picks the instance number; planned writes follow the object to it.
type AddObjects struct {
	Next StateID

	idx   int
	moved []bool
}

func (s *AddObjects) Enter(m *Machine) {
	s.idx = 0
	s.moved = make([]bool, len(m.plan.Set))
}

func (s *AddObjects) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.AddObjectResponse)
	if !ok || s.idx >= len(m.plan.Add) {
		return ReadResult{}
	}
	planned := m.plan.Add[s.idx]
	if resp.Status == 1 {
		m.rebootToApply = true
	}

	fam, _ := m.model.FamilyOf(planned)
	actual, ok := m.model.FamilyObject(fam, resp.InstanceNumber)
	if !ok {
		m.log.Error().
			Str("object", string(planned)).
			Int("instance", resp.InstanceNumber).
			Msg("Device created an instance outside the data model, skipping its writes")
		s.dropWrites(m, planned)
	} else {
		if actual != planned {
			s.moveWrites(m, planned, actual)
		}
		m.recordInstance(planned, actual)
		m.observed.AddObject(actual)
		m.log.Info().
			Str("object", string(planned)).
			Str("instance", string(actual)).
			Int("status", resp.Status).
			Msg("Object added")
	}

	s.idx++
	if s.idx >= len(m.plan.Add) {
		return handledNext(s.Next)
	}
	return handled()
}

// moveWrites retargets the pending writes of planned to actual. Items
// already moved by an earlier add keep their target.
func (s *AddObjects) moveWrites(m *Machine, planned, actual datamodel.ParameterName) {
	for i, item := range m.plan.Set {
		if s.moved[i] || item.Object != planned {
			continue
		}
		field, ok := m.model.MemberField(item.Name)
		if !ok {
			continue
		}
		name, ok := m.model.ObjectMember(actual, field)
		if !ok {
			continue
		}
		m.plan.Set[i] = reconcile.SetItem{Name: name, Object: actual, Value: item.Value}
		s.moved[i] = true
	}
}

func (s *AddObjects) dropWrites(m *Machine, planned datamodel.ParameterName) {
	kept := m.plan.Set[:0]
	moved := s.moved[:0]
	for i, item := range m.plan.Set {
		if !s.moved[i] && item.Object == planned {
			continue
		}
		kept = append(kept, item)
		moved = append(moved, s.moved[i])
	}
	m.plan.Set = kept
	s.moved = moved
}

func (s *AddObjects) Produce(m *Machine) ProduceResult {
	if s.idx >= len(m.plan.Add) {
		return produce(nil, s.Next)
	}
	parent, _ := m.model.ParentPath(m.plan.Add[s.idx])
	return produce(&tr069.AddObject{ObjectName: parent, ParameterKey: parameterKey}, StateNone)
}

func (s *AddObjects) Targets() []StateID { return []StateID{s.Next} }

// SetParams writes every planned value in one request. Names in Skip are
// left to a later state.
type SetParams struct {
	Next StateID
	Skip []datamodel.ParameterName
}

func (s *SetParams) skipped(name datamodel.ParameterName) bool {
	for _, n := range s.Skip {
		if n == name {
			return true
		}
	}
	return false
}

func (s *SetParams) Read(m *Machine, msg tr069.Message) ReadResult {
	return ReadResult{}
}

func (s *SetParams) Produce(m *Machine) ProduceResult {
	spv := &tr069.SetParameterValues{
		ParameterList: []tr069.ParameterValue{},
		ParameterKey:  parameterKey,
	}
	m.applied = m.applied[:0]

	for _, item := range m.plan.Set {
		if s.skipped(item.Name) {
			continue
		}
		pv, err := m.model.ParameterValue(item.Name, item.Value)
		if err != nil {
			m.log.Error().Err(err).Str("param", string(item.Name)).Msg("Cannot encode value, skipping")
			continue
		}
		spv.ParameterList = append(spv.ParameterList, pv)
		m.applied = append(m.applied, item)
	}

	m.log.Info().Int("count", len(spv.ParameterList)).Msg("Setting parameters")
	return produce(spv, s.Next)
}

func (s *SetParams) Targets() []StateID { return []StateID{s.Next} }

// WaitSetParams waits for the write acknowledgement. A device asking for a
// reboot, or invasive writes on vendors that need one, lead to WhenReboot.
type WaitSetParams struct {
	Next             StateID
	WhenReboot       StateID
	RebootOnInvasive bool
}

func (s *WaitSetParams) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.SetParameterValuesResponse)
	if !ok {
		return ReadResult{}
	}

	invasive := false
	for _, item := range m.applied {
		applyToObserved(m, item)
		if d, _ := m.model.Descriptor(item.Name); d.Invasive {
			invasive = true
		}
	}

	needReboot := resp.Status == 1 || m.rebootToApply || (s.RebootOnInvasive && invasive)
	if s.WhenReboot != StateNone && needReboot {
		m.log.Info().
			Int("status", resp.Status).
			Bool("invasive", invasive).
			Bool("objects", m.rebootToApply).
			Msg("Reboot required to apply")
		m.rebootPending = true
		return handledNext(s.WhenReboot)
	}
	return handledNext(s.Next)
}

func (s *WaitSetParams) Produce(m *Machine) ProduceResult {
	return produce(&tr069.DummyInput{}, StateNone)
}

func (s *WaitSetParams) Targets() []StateID { return []StateID{s.Next, s.WhenReboot} }

func applyToObserved(m *Machine, item reconcile.SetItem) {
	if item.Object != "" {
		m.observed.SetObjectParam(item.Object, item.Name, item.Value)
		return
	}
	m.observed.Set(item.Name, item.Value)
}

// SetAdminState writes the admin state alone. With FromDesired the value
// comes from the desired configuration, otherwise from Enable.
type SetAdminState struct {
	Next        StateID
	Enable      bool
	FromDesired bool
}

func (s *SetAdminState) Read(m *Machine, msg tr069.Message) ReadResult {
	return ReadResult{}
}

func (s *SetAdminState) Produce(m *Machine) ProduceResult {
	value := s.Enable
	if s.FromDesired && m.desired != nil {
		value = m.desired.Bool(datamodel.ParamAdminState)
	}
	m.adminTarget = value

	spv := &tr069.SetParameterValues{ParameterList: []tr069.ParameterValue{}, ParameterKey: parameterKey}
	pv, err := m.model.ParameterValue(datamodel.ParamAdminState, value)
	if err != nil {
		m.log.Error().Err(err).Msg("Cannot encode admin state")
	} else {
		spv.ParameterList = append(spv.ParameterList, pv)
	}
	m.log.Info().Bool("adminState", value).Msg("Setting admin state")
	return produce(spv, s.Next)
}

func (s *SetAdminState) Targets() []StateID { return []StateID{s.Next} }

// WaitAdminState waits for the admin state write acknowledgement
type WaitAdminState struct {
	Next StateID
}

func (s *WaitAdminState) Read(m *Machine, msg tr069.Message) ReadResult {
	if _, ok := msg.(*tr069.SetParameterValuesResponse); !ok {
		return ReadResult{}
	}
	m.observed.Set(datamodel.ParamAdminState, m.adminTarget)
	return handledNext(s.Next)
}

func (s *WaitAdminState) Produce(m *Machine) ProduceResult {
	return produce(&tr069.DummyInput{}, StateNone)
}

func (s *WaitAdminState) Targets() []StateID { return []StateID{s.Next} }
