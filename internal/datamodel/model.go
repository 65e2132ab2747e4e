package datamodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/magma/magma-sub003/pkg/tr069"
)

// ErrTransform is returned when a value cannot be converted between
// its wire and semantic representation
var ErrTransform = errors.New("transform failed")

// ParamType is the declared wire type of a parameter
type ParamType int

const (
	TypeBoolean ParamType = iota
	TypeInt
	TypeUnsignedInt
	TypeString
	TypeObject
)

// String returns the type name
func (t ParamType) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeInt:
		return "int"
	case TypeUnsignedInt:
		return "unsignedInt"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("ParamType(%d)", int(t))
	}
}

// XSD returns the xsd type carried on the wire
func (t ParamType) XSD() string {
	switch t {
	case TypeBoolean:
		return tr069.TypeBoolean
	case TypeInt:
		return tr069.TypeInt
	case TypeUnsignedInt:
		return tr069.TypeUnsignedInt
	default:
		return tr069.TypeString
	}
}

// ParamDescriptor describes one parameter of a vendor data model.
// NoWire marks values that only exist inside the ACS; they have no Path.
// ReadOnly values are read from the device but never written.
type ParamDescriptor struct {
	Path     string
	Type     ParamType
	Optional bool
	Invasive bool
	NoWire   bool
	ReadOnly bool
}

// Transform converts between the wire-typed value (bool, int or string,
// as declared by WireType) and the semantic value used in snapshots.
type Transform struct {
	WireType   ParamType
	ToWire     func(v any) (any, error)
	ToSemantic func(v any) (any, error)
	// Lossy transforms do not round trip for every input
	Lossy bool
}

// ObjectFamily is a fixed-size set of numbered object instances.
// Paths are fmt templates taking the 1-based slot number.
type ObjectFamily struct {
	Name       string
	Size       int
	ObjectPath string
	ParentPath string
	NameFunc   func(slot int) ParameterName
	MemberFunc func(slot int, field string) ParameterName
	Members    map[string]ParamDescriptor
}

// Spec is the input to New
type Spec struct {
	Name          string
	Params        map[ParameterName]ParamDescriptor
	Families      []ObjectFamily
	Transient     []ParameterName
	BulkReadRoots []string
	Transforms    map[ParameterName]Transform
}

type family struct {
	def     ObjectFamily
	objects []ParameterName
	members map[ParameterName][]ParameterName
}

// DataModel is an immutable per-vendor parameter registry
type DataModel struct {
	name       string
	params     map[ParameterName]ParamDescriptor
	byPath     map[string]ParameterName
	families   map[string]*family
	objectOf   map[ParameterName]ParameterName
	fieldOf    map[ParameterName]string
	familyOf   map[ParameterName]string
	transient  []ParameterName
	roots      []string
	transforms map[ParameterName]Transform
}

// New validates spec and builds a data model
func New(spec Spec) (*DataModel, error) {
	m := &DataModel{
		name:       spec.Name,
		params:     make(map[ParameterName]ParamDescriptor),
		byPath:     make(map[string]ParameterName),
		families:   make(map[string]*family),
		objectOf:   make(map[ParameterName]ParameterName),
		fieldOf:    make(map[ParameterName]string),
		familyOf:   make(map[ParameterName]string),
		transient:  append([]ParameterName(nil), spec.Transient...),
		roots:      append([]string(nil), spec.BulkReadRoots...),
		transforms: make(map[ParameterName]Transform),
	}

	for name, desc := range spec.Params {
		if err := m.addParam(name, desc); err != nil {
			return nil, err
		}
	}

	for _, def := range spec.Families {
		if err := m.addFamily(def); err != nil {
			return nil, err
		}
	}

	for name, tr := range spec.Transforms {
		desc, ok := m.params[name]
		if !ok {
			return nil, fmt.Errorf("%s: transform for unknown parameter %q", spec.Name, name)
		}
		if tr.ToWire == nil || tr.ToSemantic == nil {
			return nil, fmt.Errorf("%s: transform for %q is incomplete", spec.Name, name)
		}
		if tr.WireType != desc.Type {
			return nil, fmt.Errorf("%s: transform for %q expects %s, parameter is %s",
				spec.Name, name, tr.WireType, desc.Type)
		}
		m.transforms[name] = tr
	}

	for _, name := range m.transient {
		if _, ok := m.params[name]; !ok {
			return nil, fmt.Errorf("%s: unknown transient parameter %q", spec.Name, name)
		}
	}

	return m, nil
}

// MustNew is New for package-level registries
func MustNew(spec Spec) *DataModel {
	m, err := New(spec)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *DataModel) addParam(name ParameterName, desc ParamDescriptor) error {
	if _, dup := m.params[name]; dup {
		return fmt.Errorf("%s: duplicate parameter %q", m.name, name)
	}
	if desc.NoWire {
		if desc.Path != "" {
			return fmt.Errorf("%s: %q has no wire representation but path %q", m.name, name, desc.Path)
		}
		m.params[name] = desc
		return nil
	}
	if desc.Path == "" {
		return fmt.Errorf("%s: %q has an empty path", m.name, name)
	}
	if desc.Type == TypeObject && !strings.HasSuffix(desc.Path, ".") {
		return fmt.Errorf("%s: object %q path %q must end with '.'", m.name, name, desc.Path)
	}
	if other, dup := m.byPath[desc.Path]; dup {
		return fmt.Errorf("%s: %q and %q share path %q", m.name, name, other, desc.Path)
	}
	m.params[name] = desc
	m.byPath[desc.Path] = name
	return nil
}

func (m *DataModel) addFamily(def ObjectFamily) error {
	if def.Size <= 0 || len(def.Members) == 0 {
		return fmt.Errorf("%s: family %q is empty", m.name, def.Name)
	}
	if def.NameFunc == nil || def.MemberFunc == nil {
		return fmt.Errorf("%s: family %q has no naming functions", m.name, def.Name)
	}
	if _, dup := m.families[def.Name]; dup {
		return fmt.Errorf("%s: duplicate family %q", m.name, def.Name)
	}

	fields := make([]string, 0, len(def.Members))
	for field := range def.Members {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	f := &family{def: def, members: make(map[ParameterName][]ParameterName)}
	for slot := 1; slot <= def.Size; slot++ {
		obj := def.NameFunc(slot)
		err := m.addParam(obj, ParamDescriptor{
			Path: fmt.Sprintf(def.ObjectPath, slot),
			Type: TypeObject,
		})
		if err != nil {
			return err
		}
		for _, field := range fields {
			desc := def.Members[field]
			if !strings.Contains(desc.Path, "%d") {
				return fmt.Errorf("%s: family %q member %q path is not numbered", m.name, def.Name, field)
			}
			desc.Path = fmt.Sprintf(desc.Path, slot)
			member := def.MemberFunc(slot, field)
			if err := m.addParam(member, desc); err != nil {
				return err
			}
			m.objectOf[member] = obj
			m.fieldOf[member] = field
			f.members[obj] = append(f.members[obj], member)
		}
		if len(f.members[obj]) != len(fields) {
			return fmt.Errorf("%s: family %q slot %d has %d members, want %d",
				m.name, def.Name, slot, len(f.members[obj]), len(fields))
		}
		m.familyOf[obj] = def.Name
		f.objects = append(f.objects, obj)
	}
	m.families[def.Name] = f
	return nil
}

// Name returns the vendor model name
func (m *DataModel) Name() string {
	return m.name
}

// Descriptor returns the descriptor of name
func (m *DataModel) Descriptor(name ParameterName) (ParamDescriptor, bool) {
	d, ok := m.params[name]
	return d, ok
}

// Has reports whether the model defines name
func (m *DataModel) Has(name ParameterName) bool {
	_, ok := m.params[name]
	return ok
}

// AllNames returns every non-object parameter, sorted
func (m *DataModel) AllNames() []ParameterName {
	names := make([]ParameterName, 0, len(m.params))
	for name, desc := range m.params {
		if desc.Type == TypeObject {
			continue
		}
		names = append(names, name)
	}
	sortNames(names)
	return names
}

// ScalarNames returns every non-object parameter that is not an object member
func (m *DataModel) ScalarNames() []ParameterName {
	var names []ParameterName
	for _, name := range m.AllNames() {
		if _, member := m.objectOf[name]; !member {
			names = append(names, name)
		}
	}
	return names
}

// ObjectFamilyMembers maps each family to all of its member parameters
func (m *DataModel) ObjectFamilyMembers() map[string][]ParameterName {
	out := make(map[string][]ParameterName, len(m.families))
	for name, f := range m.families {
		for _, obj := range f.objects {
			out[name] = append(out[name], f.members[obj]...)
		}
	}
	return out
}

// FamilyObjects returns the object instances of a family in slot order
func (m *DataModel) FamilyObjects(familyName string) []ParameterName {
	f, ok := m.families[familyName]
	if !ok {
		return nil
	}
	return append([]ParameterName(nil), f.objects...)
}

// ObjectMembers returns the member parameters of an object instance
func (m *DataModel) ObjectMembers(obj ParameterName) []ParameterName {
	fam, ok := m.familyOf[obj]
	if !ok {
		return nil
	}
	return append([]ParameterName(nil), m.families[fam].members[obj]...)
}

// ObjectMember returns the member of obj for field
func (m *DataModel) ObjectMember(obj ParameterName, field string) (ParameterName, bool) {
	fam, ok := m.familyOf[obj]
	if !ok {
		return "", false
	}
	f := m.families[fam]
	for slot, o := range f.objects {
		if o == obj {
			name := f.def.MemberFunc(slot+1, field)
			_, ok := m.params[name]
			return name, ok
		}
	}
	return "", false
}

// MemberField returns the family field a member parameter stands for
func (m *DataModel) MemberField(member ParameterName) (string, bool) {
	field, ok := m.fieldOf[member]
	return field, ok
}

// FamilyOf returns the family an object instance belongs to
func (m *DataModel) FamilyOf(obj ParameterName) (string, bool) {
	fam, ok := m.familyOf[obj]
	return fam, ok
}

// FamilyObject returns the object for a device instance number. Instances
// beyond the family size have no name.
func (m *DataModel) FamilyObject(familyName string, instance int) (ParameterName, bool) {
	f, ok := m.families[familyName]
	if !ok || instance < 1 || instance > len(f.objects) {
		return "", false
	}
	return f.objects[instance-1], true
}

// FamilyParentPath returns the partial path covering every instance of a family
func (m *DataModel) FamilyParentPath(familyName string) (string, bool) {
	f, ok := m.families[familyName]
	if !ok || f.def.ParentPath == "" {
		return "", false
	}
	return f.def.ParentPath, true
}

// ObjectOf returns the object instance owning member
func (m *DataModel) ObjectOf(member ParameterName) (ParameterName, bool) {
	obj, ok := m.objectOf[member]
	return obj, ok
}

// IsObject reports whether name is an object instance of a family
func (m *DataModel) IsObject(name ParameterName) bool {
	_, ok := m.familyOf[name]
	return ok
}

// ParentPath returns the path AddObject must target to create obj
func (m *DataModel) ParentPath(obj ParameterName) (string, bool) {
	fam, ok := m.familyOf[obj]
	if !ok {
		return "", false
	}
	return m.families[fam].def.ParentPath, true
}

// NameForPath maps a wire path back to a parameter name
func (m *DataModel) NameForPath(path string) (ParameterName, bool) {
	name, ok := m.byPath[path]
	return name, ok
}

// Path returns the wire path of name; false for unknown and no-wire parameters
func (m *DataModel) Path(name ParameterName) (string, bool) {
	d, ok := m.params[name]
	if !ok || d.NoWire {
		return "", false
	}
	return d.Path, true
}

// TransientNames returns the parameters read at the start of every session
func (m *DataModel) TransientNames() []ParameterName {
	return append([]ParameterName(nil), m.transient...)
}

// OptionalNames returns the optional scalar parameters, sorted
func (m *DataModel) OptionalNames() []ParameterName {
	var names []ParameterName
	for name, desc := range m.params {
		if desc.Optional && desc.Type != TypeObject {
			names = append(names, name)
		}
	}
	sortNames(names)
	return names
}

// IsTransient reports whether name is read in the transient phase
func (m *DataModel) IsTransient(name ParameterName) bool {
	for _, n := range m.transient {
		if n == name {
			return true
		}
	}
	return false
}

// BulkReadRoots returns partial paths whose read covers the whole model
func (m *DataModel) BulkReadRoots() []string {
	return append([]string(nil), m.roots...)
}

// ToSemantic parses a wire string according to the declared type and
// applies the registered transform, if any
func (m *DataModel) ToSemantic(name ParameterName, wire string) (any, error) {
	desc, ok := m.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", ErrTransform, name)
	}
	v, err := parseWire(desc.Type, wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransform, name, err)
	}
	tr, ok := m.transforms[name]
	if !ok {
		return v, nil
	}
	out, err := tr.ToSemantic(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransform, name, err)
	}
	return out, nil
}

// ToWire applies the registered transform, if any, and formats the value
// according to the declared type
func (m *DataModel) ToWire(name ParameterName, v any) (string, error) {
	desc, ok := m.params[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown parameter %q", ErrTransform, name)
	}
	if tr, ok := m.transforms[name]; ok {
		var err error
		if v, err = tr.ToWire(v); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrTransform, name, err)
		}
	}
	s, err := formatWire(desc.Type, v)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTransform, name, err)
	}
	return s, nil
}

// ParameterValue builds the wire struct for setting name to v
func (m *DataModel) ParameterValue(name ParameterName, v any) (tr069.ParameterValue, error) {
	path, ok := m.Path(name)
	if !ok {
		return tr069.ParameterValue{}, fmt.Errorf("%q has no wire path in %s", name, m.name)
	}
	s, err := m.ToWire(name, v)
	if err != nil {
		return tr069.ParameterValue{}, err
	}
	return tr069.ParameterValue{Name: path, Type: m.params[name].Type.XSD(), Value: s}, nil
}

func sortNames(names []ParameterName) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}
