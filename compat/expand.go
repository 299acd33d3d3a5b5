package compat

import (
	"fmt"
	"sort"

	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

// Context addresses one side of a machine comparison. It is a plain value
// built per comparison.
type Context struct {
	Snapshot    *snapshot.Snapshot
	Counterpart *snapshot.Snapshot
	Machine     string
}

func (c Context) report(r Reporter, level Level, loc Locator, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(Event{
		Level:   level,
		Machine: c.Machine,
		Locator: loc,
		Message: fmt.Sprintf(format, args...),
	})
}

// EffectiveMap maps a concrete device type to its overridden properties.
type EffectiveMap map[string]map[string]scalar.Value

// Get returns the value set for (device, property).
func (m EffectiveMap) Get(device, property string) (scalar.Value, bool) {
	v, ok := m[device][property]
	return v, ok
}

func (m EffectiveMap) set(device, property string, v scalar.Value) {
	props := m[device]
	if props == nil {
		props = map[string]scalar.Value{}
		m[device] = props
	}
	props[property] = v
}

// PropertyRef is a (device type, property) pair.
type PropertyRef struct {
	Device   string
	Property string
}

// Properties returns every pair set in any of maps, sorted.
func Properties(maps ...EffectiveMap) []PropertyRef {
	seen := map[PropertyRef]bool{}
	var out []PropertyRef
	for _, m := range maps {
		for dev, props := range m {
			for p := range props {
				ref := PropertyRef{dev, p}
				if !seen[ref] {
					seen[ref] = true
					out = append(out, ref)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		return out[i].Property < out[j].Property
	})
	return out
}

// Expand applies every override to each subtype of its driver. An
// override repeated with a different value is reported as a WARN; the
// later value wins.
func Expand(ctx Context, overrides []snapshot.CompatOverride, r Reporter) EffectiveMap {
	h := ctx.Snapshot.Hierarchy()
	m := EffectiveMap{}
	seen := map[propKey]scalar.Value{}
	for _, o := range overrides {
		k := propKey{o.Driver, o.Property}
		if prev, ok := seen[k]; ok && !sameValue(prev, o.Value) {
			ctx.report(r, LevelWarn, Locator{Device: o.Driver, Property: o.Property},
				"duplicate compat property in %s: %v and %v", ctx.Snapshot.Name(), prev, o.Value)
		}
		seen[k] = o.Value
		for _, sub := range h.Subtypes(o.Driver) {
			m.set(sub, o.Property, o.Value)
		}
	}
	return m
}

func sameValue(a, b scalar.Value) bool {
	return a.Kind() == b.Kind() && (a.Equal(b) || a.IsUnknown())
}
