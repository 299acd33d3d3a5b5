package compat

import (
	"sort"

	"github.com/valvemist/machinecompat/snapshot"
)

// Checker compares machine types between an older snapshot a and a newer
// snapshot b. It keeps no state between calls, so machines may be
// checked concurrently if the Reporter allows it.
type Checker struct {
	a, b     *snapshot.Snapshot
	tables   *Tables
	reporter Reporter
	histA    EffectiveMap
	histB    EffectiveMap
}

// NewChecker returns a checker. A nil tables uses DefaultTables.
func NewChecker(a, b *snapshot.Snapshot, tables *Tables, r Reporter) *Checker {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Checker{
		a:        a,
		b:        b,
		tables:   tables,
		reporter: r,
		histA:    tables.Historical(a.Hierarchy()),
		histB:    tables.Historical(b.Hierarchy()),
	}
}

// CommonMachines returns the machine types present in both snapshots.
func (c *Checker) CommonMachines() []string {
	inB := map[string]bool{}
	for _, m := range c.b.MachineNames() {
		inB[m] = true
	}
	var out []string
	for _, m := range c.a.MachineNames() {
		if inB[m] {
			out = append(out, m)
		}
	}
	return out
}

// CheckAll checks every machine type common to both snapshots.
func (c *Checker) CheckAll() {
	c.CheckMachines(c.CommonMachines())
}

// CheckMachines checks the named machine types in sorted order.
func (c *Checker) CheckMachines(names []string) {
	names = append([]string(nil), names...)
	sort.Strings(names)
	for _, n := range names {
		c.CheckMachine(n)
	}
}

// CheckMachine compares compat properties and then machine fields of one
// machine type. A machine missing from either snapshot is skipped.
func (c *Checker) CheckMachine(name string) {
	ctxA := Context{Snapshot: c.a, Counterpart: c.b, Machine: name}
	ctxB := Context{Snapshot: c.b, Counterpart: c.a, Machine: name}

	ma, err := c.a.Machine(name)
	if err != nil {
		ctxA.report(c.reporter, LevelWarn, Locator{}, "machine not found in %s, skipping", c.a.Name())
		return
	}
	mb, err := c.b.Machine(name)
	if err != nil {
		ctxB.report(c.reporter, LevelWarn, Locator{}, "machine not found in %s, skipping", c.b.Name())
		return
	}

	effA := Expand(ctxA, ma.CompatProps, c.reporter)
	effB := Expand(ctxB, mb.CompatProps, c.reporter)
	for _, ref := range Properties(effA, effB) {
		c.checkProperty(ctxA, ctxB, ref, effA, effB)
	}
	c.checkFields(ctxA, ma, mb)
}

func (c *Checker) checkProperty(ctxA, ctxB Context, ref PropertyRef, effA, effB EffectiveMap) {
	res := &Resolver{Tables: c.tables, Reporter: c.reporter}
	ra := res.Resolve(ctxA, ref.Device, ref.Property, effA, deviceInfo(c.a, ref.Device), c.histA)
	rb := res.Resolve(ctxB, ref.Device, ref.Property, effB, deviceInfo(c.b, ref.Device), c.histB)

	loc := Locator{Device: ref.Device, Property: ref.Property}
	switch c.tables.CompareProperty(ra.Info, ra.Value, rb.Info, rb.Value) {
	case VerdictOK:
		ctxA.report(c.reporter, LevelDebug, loc, "ok: %v", ra.Value)
	case VerdictMismatch:
		ctxA.report(c.reporter, LevelError, loc, "value mismatch: %v (%s, %s) != %v (%s, %s)",
			ra.Value, ra.Source, c.a.Name(), rb.Value, rb.Source, c.b.Name())
	default:
		ctxA.report(c.reporter, LevelDebug, loc, "not compared: %v (%s) vs %v (%s)",
			ra.Value, c.a.Name(), rb.Value, c.b.Name())
	}
}

func (c *Checker) checkFields(ctx Context, ma, mb *snapshot.MachineDescriptor) {
	seen := map[string]bool{}
	var fields []string
	for _, names := range [][]string{ma.FieldNames(), mb.FieldNames()} {
		for _, f := range names {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	sort.Strings(fields)

	for _, f := range fields {
		loc := Locator{Field: f}
		res := c.tables.CompareField(ctx.Machine, f, ma, mb)
		switch res.Verdict {
		case VerdictSkip:
			ctx.report(c.reporter, LevelDebug, loc, "skipped")
		case VerdictOK:
			ctx.report(c.reporter, LevelDebug, loc, "ok (%s): %v", res.Policy, res.B)
		case VerdictMismatch:
			ctx.report(c.reporter, LevelError, loc, "%s check failed: %v (%s) vs %v (%s)",
				res.Policy, res.A, c.a.Name(), res.B, c.b.Name())
		default:
			ctx.report(c.reporter, LevelWarn, loc, "can't compare: %v (%s) vs %v (%s)",
				res.A, c.a.Name(), res.B, c.b.Name())
		}
	}
}

// deviceInfo returns nil for device types the snapshot has no record for.
func deviceInfo(s *snapshot.Snapshot, name string) *snapshot.DeviceTypeInfo {
	d, err := s.DeviceType(name)
	if err != nil {
		return nil
	}
	return d
}
