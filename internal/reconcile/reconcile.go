package reconcile

import (
	"sort"

	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
)

// SetItem is one value to write. Object is empty for scalar parameters.
type SetItem struct {
	Name   datamodel.ParameterName
	Object datamodel.ParameterName
	Value  any
}

// Plan lists corrective actions. Callers apply Delete, then Add, then Set.
type Plan struct {
	Delete []datamodel.ParameterName
	Add    []datamodel.ParameterName
	Set    []SetItem
}

// Empty reports whether the device is in sync
func (p Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Add) == 0 && len(p.Set) == 0
}

// Reconcile diffs desired against observed.
//
// An observed object is deleted when desired lacks it, or when desired
// holds it disabled while the device has it enabled. An object disabled on
// both sides is kept and only its members are diffed, so that
// Reconcile(d, d) is always empty. A desired enabled object missing on the
// device is added and all its members are set.
// Values without a wire representation and read-only values are never
// written.
func Reconcile(desired, observed *devicecfg.Configuration, model *datamodel.DataModel) Plan {
	var plan Plan

	for _, name := range desired.Names() {
		if !writable(model, name) {
			continue
		}
		if _, member := model.ObjectOf(name); member {
			continue
		}
		want, _ := desired.Get(name)
		have, ok := observed.Get(name)
		if !ok || !datamodel.Equal(want, have) {
			plan.Set = append(plan.Set, SetItem{Name: name, Value: want})
		}
	}

	var objectSets []SetItem
	for _, obj := range objectNames(desired, observed, model) {
		dHas := desired.HasObject(obj)
		oHas := observed.HasObject(obj)
		dEnabled := dHas && enabled(desired, model, obj)
		oEnabled := oHas && enabled(observed, model, obj)

		switch {
		case oHas && (!dHas || (!dEnabled && oEnabled)):
			plan.Delete = append(plan.Delete, obj)
		case dEnabled && !oHas:
			plan.Add = append(plan.Add, obj)
			objectSets = append(objectSets, memberDiff(desired, observed, model, obj, false)...)
		case dHas && oHas:
			objectSets = append(objectSets, memberDiff(desired, observed, model, obj, true)...)
		}
	}

	sort.Slice(objectSets, func(i, j int) bool {
		if objectSets[i].Object != objectSets[j].Object {
			return objectSets[i].Object < objectSets[j].Object
		}
		return objectSets[i].Name < objectSets[j].Name
	})
	plan.Set = append(plan.Set, objectSets...)

	return plan
}

func memberDiff(desired, observed *devicecfg.Configuration, model *datamodel.DataModel, obj datamodel.ParameterName, compare bool) []SetItem {
	var out []SetItem
	for name, want := range desired.ObjectParams(obj) {
		if !writable(model, name) {
			continue
		}
		if compare {
			if have, ok := observed.GetObjectParam(obj, name); ok && datamodel.Equal(want, have) {
				continue
			}
		}
		out = append(out, SetItem{Name: name, Object: obj, Value: want})
	}
	return out
}

func writable(model *datamodel.DataModel, name datamodel.ParameterName) bool {
	d, ok := model.Descriptor(name)
	return ok && !d.NoWire && !d.ReadOnly && d.Type != datamodel.TypeObject
}

// enabled treats objects without an enable member as enabled
func enabled(c *devicecfg.Configuration, model *datamodel.DataModel, obj datamodel.ParameterName) bool {
	name, ok := model.ObjectMember(obj, datamodel.PLMNFieldEnable)
	if !ok {
		return true
	}
	v, ok := c.GetObjectParam(obj, name)
	if !ok {
		return true
	}
	b, _ := v.(bool)
	return b
}

func objectNames(desired, observed *devicecfg.Configuration, model *datamodel.DataModel) []datamodel.ParameterName {
	seen := make(map[datamodel.ParameterName]bool)
	var names []datamodel.ParameterName
	for _, list := range [][]datamodel.ParameterName{desired.Objects(), observed.Objects()} {
		for _, obj := range list {
			if seen[obj] || !model.IsObject(obj) {
				continue
			}
			seen[obj] = true
			names = append(names, obj)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
