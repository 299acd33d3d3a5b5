package compat

import (
	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

// Source records where a resolved value came from.
type Source int

const (
	SourceUnknown Source = iota
	SourceInstance
	SourceClass
	SourceCompat
	SourceHistorical
)

// String describes the source for diagnostics.
func (s Source) String() string {
	switch s {
	case SourceInstance:
		return "instance default"
	case SourceClass:
		return "class default"
	case SourceCompat:
		return "compat property"
	case SourceHistorical:
		return "historical default"
	}
	return "unknown"
}

// Resolution is the effective value of one property on one snapshot.
// Info is nil when the snapshot declares no such property.
type Resolution struct {
	Info   *snapshot.PropertyInfo
	Value  scalar.Value
	Source Source
}

// Resolver determines effective property values.
type Resolver struct {
	Tables   *Tables
	Reporter Reporter
}

// Resolve returns the effective value of device.property on ctx.Snapshot.
//
// The declared property comes from the instance properties when present,
// else the class properties. An explicit compat value wins over the
// declared default; the historical table is only consulted when nothing
// declares the property at all.
func (r *Resolver) Resolve(ctx Context, device, property string, compat EffectiveMap, info *snapshot.DeviceTypeInfo, historical EffectiveMap) Resolution {
	loc := Locator{Device: device, Property: property}
	pi, def, src := r.declared(ctx, loc, info)

	if v, ok := compat.Get(device, property); ok {
		if pi == nil {
			if info != nil && ctx.Snapshot.HasDeviceType(device) {
				ctx.report(r.Reporter, LevelError, loc,
					"compat property %v set in %s, but the device type has no such property", v, ctx.Snapshot.Name())
			}
			return Resolution{Value: r.Tables.Fixup(device, property, v), Source: SourceCompat}
		}
		return r.typed(ctx, loc, pi, v, SourceCompat)
	}

	if pi != nil {
		if !def.IsUnknown() {
			return r.typed(ctx, loc, pi, def, src)
		}
	} else if v, ok := historical.Get(device, property); ok {
		return Resolution{Value: r.Tables.Fixup(device, property, v), Source: SourceHistorical}
	}

	if ctx.Snapshot.HasDeviceType(device) {
		ctx.report(r.Reporter, LevelWarn, loc, "unknown default value in %s", ctx.Snapshot.Name())
	}
	return Resolution{Info: pi, Value: scalar.Unknown}
}

// declared merges instance and class declarations. Instance data shadows
// the class; the class only fills in what the instance lacks.
func (r *Resolver) declared(ctx Context, loc Locator, info *snapshot.DeviceTypeInfo) (*snapshot.PropertyInfo, scalar.Value, Source) {
	if info == nil {
		return nil, scalar.Unknown, SourceUnknown
	}
	ip := info.InstanceProp(loc.Property)
	cp := info.ClassProp(loc.Property)
	if ip == nil {
		if cp == nil {
			return nil, scalar.Unknown, SourceUnknown
		}
		return cp, cp.Default, SourceClass
	}

	if ip.HasType() && cp.HasType() && ip.Type != cp.Type {
		ctx.report(r.Reporter, LevelWarn, loc, "instance property type %s doesn't match class property type %s in %s",
			ip.Type, cp.Type, ctx.Snapshot.Name())
	}
	merged := *ip
	if !merged.HasType() && cp != nil {
		merged.Type = cp.Type
	}
	if ip.HasDefault() {
		return &merged, ip.Default, SourceInstance
	}
	if cp.HasDefault() {
		return &merged, cp.Default, SourceClass
	}
	return &merged, scalar.Unknown, SourceUnknown
}

func (r *Resolver) typed(ctx Context, loc Locator, pi *snapshot.PropertyInfo, v scalar.Value, src Source) Resolution {
	if !pi.HasType() {
		return Resolution{Info: pi, Value: r.Tables.Fixup(loc.Device, loc.Property, v), Source: src}
	}
	parsed, err := r.Tables.Parse(pi.Type, v)
	if err != nil {
		ctx.report(r.Reporter, LevelError, loc, "invalid %s in %s: %v", src, ctx.Snapshot.Name(), err)
		return Resolution{Info: pi, Value: scalar.Unknown, Source: src}
	}
	return Resolution{Info: pi, Value: r.Tables.Fixup(loc.Device, loc.Property, parsed), Source: src}
}
