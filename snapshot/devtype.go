package snapshot

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/valvemist/machinecompat/scalar"
)

// PropertyInfo describes how a device type declares one property.
// Type is empty when the snapshot has no type metadata for it; Default
// is Unknown when no default was recorded.
type PropertyInfo struct {
	Name    string
	Type    string
	Default scalar.Value
}

// HasType reports whether the property's type name is known.
func (p *PropertyInfo) HasType() bool { return p != nil && p.Type != "" }

// HasDefault reports whether the property's default value is known.
func (p *PropertyInfo) HasDefault() bool { return p != nil && !p.Default.IsUnknown() }

// DeviceTypeInfo is a decoded device-type record.
type DeviceTypeInfo struct {
	TypeName string
	// Props are the class-declared properties, own class first, then
	// parent classes.
	Props []PropertyInfo
	// InstanceProps are read from an instantiated object; nil when the
	// producer didn't instantiate the type.
	InstanceProps []PropertyInfo
}

// ClassProp returns the first class-declared property named name.
func (d *DeviceTypeInfo) ClassProp(name string) *PropertyInfo {
	return findProp(d.Props, name)
}

// InstanceProp returns the instance property named name.
func (d *DeviceTypeInfo) InstanceProp(name string) *PropertyInfo {
	return findProp(d.InstanceProps, name)
}

func findProp(props []PropertyInfo, name string) *PropertyInfo {
	for i := range props {
		if props[i].Name == name {
			return &props[i]
		}
	}
	return nil
}

// DecodeDeviceType decodes a device-type record result. Class properties
// carry their type in info.name (or type) and default in defval;
// instance properties carry type and value.
func DecodeDeviceType(name string, r gjson.Result) *DeviceTypeInfo {
	d := &DeviceTypeInfo{TypeName: name}
	for _, p := range r.Get("props").Array() {
		typ := p.Get("info.name").String()
		if typ == "" {
			typ = p.Get("type").String()
		}
		d.Props = append(d.Props, PropertyInfo{
			Name:    p.Get("name").String(),
			Type:    typ,
			Default: scalar.FromJSON(p.Get("defval")),
		})
	}
	if ip := r.Get("instance_props"); ip.Exists() {
		d.InstanceProps = []PropertyInfo{}
		for _, p := range ip.Array() {
			d.InstanceProps = append(d.InstanceProps, PropertyInfo{
				Name:    p.Get("name").String(),
				Type:    p.Get("type").String(),
				Default: scalar.FromJSON(p.Get("value")),
			})
		}
	}
	return d
}

// DeviceType returns the decoded record for a device type, or ErrNotFound.
func (s *Snapshot) DeviceType(name string) (*DeviceTypeInfo, error) {
	r, ok := s.FindRecord(KindDeviceType, name)
	if !ok {
		return nil, fmt.Errorf("device type %s in %s: %w", name, s.name, ErrNotFound)
	}
	return DecodeDeviceType(name, r), nil
}
