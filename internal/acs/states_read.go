package acs

import (
	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/pkg/tr069"
)

// GetTransientParams reads the status values that change between sessions
type GetTransientParams struct {
	Next StateID
}

func (s *GetTransientParams) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.GetParameterValuesResponse)
	if !ok {
		return ReadResult{}
	}
	m.ingest(resp.ParameterList)
	return handledNext(s.Next)
}

func (s *GetTransientParams) Produce(m *Machine) ProduceResult {
	names := m.readable(m.model.TransientNames())
	if len(names) == 0 {
		return produce(nil, s.Next)
	}
	return produce(m.getParameterValues(names), StateNone)
}

func (s *GetTransientParams) Targets() []StateID { return []StateID{s.Next} }

// GetParams reads every scalar parameter. Models with bulk read roots are
// read with a single request that also covers object instances.
type GetParams struct {
	Next StateID
}

func (s *GetParams) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.GetParameterValuesResponse)
	if !ok {
		return ReadResult{}
	}
	if m.bulkRead {
		for _, obj := range m.observed.Objects() {
			m.observed.DeleteObject(obj)
		}
	}
	m.ingest(resp.ParameterList)
	return handledNext(s.Next)
}

func (s *GetParams) Produce(m *Machine) ProduceResult {
	if roots := m.model.BulkReadRoots(); len(roots) > 0 {
		m.bulkRead = true
		return produce(&tr069.GetParameterValues{ParameterNames: roots}, StateNone)
	}

	var names []datamodel.ParameterName
	for _, name := range m.readable(m.model.ScalarNames()) {
		if !m.model.IsTransient(name) {
			names = append(names, name)
		}
	}
	return produce(m.getParameterValues(names), StateNone)
}

func (s *GetParams) Targets() []StateID { return []StateID{s.Next} }

// GetObjectParams reads every PLMN instance the device holds through the
// family's partial path, then reconciles and routes on the resulting plan.
// Instance numbers come from the reply, not from the entry count.
type GetObjectParams struct {
	Routing PlanRouting
}

func (s *GetObjectParams) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.GetParameterValuesResponse)
	if !ok {
		return ReadResult{}
	}
	for _, obj := range m.observed.Objects() {
		m.observed.DeleteObject(obj)
	}
	m.ingest(resp.ParameterList)
	return handledNext(m.route(s.Routing))
}

func (s *GetObjectParams) Produce(m *Machine) ProduceResult {
	paths := m.objectReadPaths()
	if len(paths) == 0 {
		if !m.bulkRead {
			for _, obj := range m.observed.Objects() {
				m.observed.DeleteObject(obj)
			}
		}
		return produce(nil, m.route(s.Routing))
	}
	return produce(&tr069.GetParameterValues{ParameterNames: paths}, StateNone)
}

func (s *GetObjectParams) Targets() []StateID { return s.Routing.targets() }

// objectReadPaths returns the partial path of the PLMN list when the
// device reports any entries
func (m *Machine) objectReadPaths() []string {
	if m.bulkRead {
		return nil
	}
	v, ok := m.observed.Get(datamodel.ParamNumPLMNs)
	if !ok {
		return nil
	}
	n, err := datamodel.ToInt(v)
	if err != nil || n <= 0 {
		return nil
	}
	parent, ok := m.model.FamilyParentPath(datamodel.FamilyPLMN)
	if !ok {
		return nil
	}
	return []string{parent}
}

// VerifyParams re-reads the values written in this session together with
// the transient status values
type VerifyParams struct {
	Next StateID
}

func (s *VerifyParams) Produce(m *Machine) ProduceResult {
	seen := make(map[datamodel.ParameterName]bool)
	var names []datamodel.ParameterName
	add := func(name datamodel.ParameterName) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, item := range m.applied {
		add(item.Name)
	}
	for _, name := range m.model.TransientNames() {
		add(name)
	}

	names = m.readable(names)
	if len(names) == 0 {
		return produce(nil, s.Next)
	}
	return produce(m.getParameterValues(names), s.Next)
}

func (s *VerifyParams) Read(m *Machine, msg tr069.Message) ReadResult {
	return ReadResult{}
}

func (s *VerifyParams) Targets() []StateID { return []StateID{s.Next} }

// WaitVerifyParams checks that written values stuck
type WaitVerifyParams struct {
	Next StateID
}

func (s *WaitVerifyParams) Read(m *Machine, msg tr069.Message) ReadResult {
	resp, ok := msg.(*tr069.GetParameterValuesResponse)
	if !ok {
		return ReadResult{}
	}
	m.ingest(resp.ParameterList)

	mismatches := 0
	for _, item := range m.applied {
		var have any
		var found bool
		if item.Object != "" {
			have, found = m.observed.GetObjectParam(item.Object, item.Name)
		} else {
			have, found = m.observed.Get(item.Name)
		}
		if !found || !datamodel.Equal(have, item.Value) {
			mismatches++
			m.log.Warn().
				Str("param", string(item.Name)).
				Interface("want", item.Value).
				Interface("have", have).
				Msg("Value did not stick")
		}
	}
	m.configured = mismatches == 0 && m.desired != nil
	return handledNext(s.Next)
}

// Produce only runs when VerifyParams had nothing to read back
func (s *WaitVerifyParams) Produce(m *Machine) ProduceResult {
	m.configured = m.desired != nil && len(m.applied) == 0
	return produce(nil, s.Next)
}

func (s *WaitVerifyParams) Targets() []StateID { return []StateID{s.Next} }
