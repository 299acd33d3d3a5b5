package snapshot

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/valvemist/machinecompat/scalar"
)

// CompatOverride forces Property of every Driver instance to Value on one
// machine type.
type CompatOverride struct {
	Driver   string
	Property string
	Value    scalar.Value
}

func (o CompatOverride) String() string {
	return fmt.Sprintf("%s.%s=%v", o.Driver, o.Property, o.Value)
}

// MachineDescriptor is a decoded machine record.
type MachineDescriptor struct {
	Name        string
	Alias       string
	CompatProps []CompatOverride

	fields map[string]gjson.Result
}

// Field returns a raw machine field. compat_props is not a field.
func (m *MachineDescriptor) Field(name string) (gjson.Result, bool) {
	r, ok := m.fields[name]
	return r, ok
}

// FieldNames returns the names of all fields present, sorted.
func (m *MachineDescriptor) FieldNames() []string {
	names := make([]string, 0, len(m.fields))
	for k := range m.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DecodeMachine decodes a machine record result.
func DecodeMachine(r gjson.Result) *MachineDescriptor {
	m := &MachineDescriptor{
		Name:   r.Get("name").String(),
		Alias:  r.Get("alias").String(),
		fields: map[string]gjson.Result{},
	}
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() != "compat_props" {
			m.fields[k.String()] = v
		}
		return true
	})
	for _, cp := range r.Get("compat_props").Array() {
		m.CompatProps = append(m.CompatProps, CompatOverride{
			Driver:   cp.Get("driver").String(),
			Property: cp.Get("property").String(),
			Value:    scalar.FromJSON(cp.Get("value")),
		})
	}
	return m
}

// Machine returns the descriptor for a machine type, or ErrNotFound.
func (s *Snapshot) Machine(name string) (*MachineDescriptor, error) {
	r, ok := s.FindRecord(KindMachine, name)
	if !ok {
		return nil, fmt.Errorf("machine %s in %s: %w", name, s.name, ErrNotFound)
	}
	return DecodeMachine(r), nil
}
