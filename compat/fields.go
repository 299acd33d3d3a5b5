package compat

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

// FieldResult is the outcome of comparing one machine field.
type FieldResult struct {
	Verdict Verdict
	Policy  Policy
	A, B    scalar.Value
}

// CompareField compares one field of two descriptors of the same machine
// type. a is the older build: for "ge" fields, b must not be lower.
func (t *Tables) CompareField(machine, field string, a, b *snapshot.MachineDescriptor) FieldResult {
	res := FieldResult{Policy: t.FieldPolicy(field)}
	fixups := t.FieldFixups(field, machine)
	for _, fx := range fixups {
		if fx.Skip {
			res.Policy = PolicySkip
		}
	}
	if res.Policy == PolicySkip {
		res.Verdict = VerdictSkip
		return res
	}

	res.A = t.fieldValue(field, a)
	res.B = t.fieldValue(field, b)
	if res.A.IsUnknown() || res.B.IsUnknown() {
		res.Verdict = VerdictUnknown
		return res
	}
	for _, fx := range fixups {
		if res.A.Equal(fx.From) {
			res.A = fx.To
		}
		if res.B.Equal(fx.From) {
			res.B = fx.To
		}
	}

	switch res.Policy {
	case PolicyGE:
		va, aok := number(res.A)
		vb, bok := number(res.B)
		if !aok || !bok {
			res.Verdict = verdictOf(res.A.Equal(res.B))
		} else {
			res.Verdict = verdictOf(vb >= va)
		}
	case PolicyFunc:
		res.Verdict = verdictOf(funcName(res.A) == funcName(res.B))
	case PolicyNull:
		res.Verdict = verdictOf((res.A.Kind() == scalar.KindNull) == (res.B.Kind() == scalar.KindNull))
	default:
		res.Verdict = verdictOf(res.A.Equal(res.B))
	}
	return res
}

// fieldValue reads a field, substituting from the omitted-field table
// when the descriptor doesn't have it.
func (t *Tables) fieldValue(field string, m *snapshot.MachineDescriptor) scalar.Value {
	if r, ok := m.Field(field); ok {
		return jsonValue(r)
	}
	o, ok := t.Omitted(field)
	if !ok {
		return scalar.Unknown
	}
	if o.SameAs == "" {
		return o.Value
	}
	if r, ok := m.Field(o.SameAs); ok {
		return jsonValue(r)
	}
	return scalar.Unknown
}

// jsonValue converts scalars directly and compacts structs so they
// compare by content.
func jsonValue(r gjson.Result) scalar.Value {
	if r.IsObject() || r.IsArray() {
		return scalar.Str(gjson.Get(r.Raw, "@ugly").Raw)
	}
	return scalar.FromJSON(r)
}

func number(v scalar.Value) (int64, bool) {
	if i, ok := v.AsInt(); ok {
		return i, true
	}
	if b, ok := v.AsBool(); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// funcName extracts the symbol from a debugger rendering of a function
// pointer, "0x5555555a1b20 <pc_machine_reset>".
func funcName(v scalar.Value) string {
	s := text(v)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if j := strings.IndexByte(s[i:], '>'); j > 0 {
			return s[i+1 : i+j]
		}
	}
	return s
}
