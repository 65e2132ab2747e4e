package devicecfg

import (
	"sort"

	"github.com/magma/magma-sub003/internal/datamodel"
)

// Configuration is a bag of parameter values plus named object instances.
// It is used for both the desired and the observed configuration of a
// device. It is not safe for concurrent use; the owning machine serialises
// access.
type Configuration struct {
	values  map[datamodel.ParameterName]any
	objects map[datamodel.ParameterName]map[datamodel.ParameterName]any
}

// New creates an empty configuration
func New() *Configuration {
	return &Configuration{
		values:  make(map[datamodel.ParameterName]any),
		objects: make(map[datamodel.ParameterName]map[datamodel.ParameterName]any),
	}
}

// Get returns a scalar value
func (c *Configuration) Get(name datamodel.ParameterName) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Has reports whether a scalar value is present
func (c *Configuration) Has(name datamodel.ParameterName) bool {
	_, ok := c.values[name]
	return ok
}

// Set stores a scalar value
func (c *Configuration) Set(name datamodel.ParameterName, v any) {
	c.values[name] = v
}

// Delete removes a scalar value
func (c *Configuration) Delete(name datamodel.ParameterName) {
	delete(c.values, name)
}

// Names returns the scalar names present, sorted
func (c *Configuration) Names() []datamodel.ParameterName {
	names := make([]datamodel.ParameterName, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sortNames(names)
	return names
}

// Bool returns a boolean value, false when absent or of another type
func (c *Configuration) Bool(name datamodel.ParameterName) bool {
	b, _ := c.values[name].(bool)
	return b
}

// Float returns a numeric value, zero when absent
func (c *Configuration) Float(name datamodel.ParameterName) (float64, bool) {
	v, ok := c.values[name]
	if !ok {
		return 0, false
	}
	f, err := datamodel.ToFloat(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String returns a string value, empty when absent or of another type
func (c *Configuration) String(name datamodel.ParameterName) string {
	s, _ := c.values[name].(string)
	return s
}

// AddObject creates an empty object instance if it does not exist
func (c *Configuration) AddObject(obj datamodel.ParameterName) {
	if _, ok := c.objects[obj]; !ok {
		c.objects[obj] = make(map[datamodel.ParameterName]any)
	}
}

// DeleteObject removes an object instance and its values
func (c *Configuration) DeleteObject(obj datamodel.ParameterName) {
	delete(c.objects, obj)
}

// HasObject reports whether an object instance exists
func (c *Configuration) HasObject(obj datamodel.ParameterName) bool {
	_, ok := c.objects[obj]
	return ok
}

// Objects returns the object instance names, sorted
func (c *Configuration) Objects() []datamodel.ParameterName {
	names := make([]datamodel.ParameterName, 0, len(c.objects))
	for name := range c.objects {
		names = append(names, name)
	}
	sortNames(names)
	return names
}

// GetObjectParam returns a member value of an object instance
func (c *Configuration) GetObjectParam(obj, name datamodel.ParameterName) (any, bool) {
	members, ok := c.objects[obj]
	if !ok {
		return nil, false
	}
	v, ok := members[name]
	return v, ok
}

// SetObjectParam stores a member value, creating the object if needed
func (c *Configuration) SetObjectParam(obj, name datamodel.ParameterName, v any) {
	c.AddObject(obj)
	c.objects[obj][name] = v
}

// ObjectParams returns a copy of an object instance's values
func (c *Configuration) ObjectParams(obj datamodel.ParameterName) map[datamodel.ParameterName]any {
	members, ok := c.objects[obj]
	if !ok {
		return nil
	}
	out := make(map[datamodel.ParameterName]any, len(members))
	for k, v := range members {
		out[k] = v
	}
	return out
}

// RenumberObjects moves object instances to other instances of the same
// family, carrying member values across. All moves happen at once, so two
// objects may swap places.
func (c *Configuration) RenumberObjects(model *datamodel.DataModel, moves map[datamodel.ParameterName]datamodel.ParameterName) {
	taken := make(map[datamodel.ParameterName]map[datamodel.ParameterName]any, len(moves))
	for from := range moves {
		if members, ok := c.objects[from]; ok {
			taken[from] = members
			delete(c.objects, from)
		}
	}
	for from, members := range taken {
		to := moves[from]
		c.AddObject(to)
		for name, v := range members {
			field, ok := model.MemberField(name)
			if !ok {
				continue
			}
			if moved, ok := model.ObjectMember(to, field); ok {
				c.objects[to][moved] = v
			}
		}
	}
}

// Clone returns a deep copy
func (c *Configuration) Clone() *Configuration {
	out := New()
	for k, v := range c.values {
		out.values[k] = v
	}
	for obj := range c.objects {
		out.objects[obj] = c.ObjectParams(obj)
	}
	return out
}

// Values returns a copy of the scalar values
func (c *Configuration) Values() map[datamodel.ParameterName]any {
	out := make(map[datamodel.ParameterName]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func sortNames(names []datamodel.ParameterName) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}
