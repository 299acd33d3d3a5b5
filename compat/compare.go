package compat

import (
	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

// Verdict is the outcome of one comparison.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictOK
	VerdictMismatch
	VerdictSkip
)

// String returns the lower-case verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictMismatch:
		return "mismatch"
	case VerdictSkip:
		return "skip"
	}
	return "unknown"
}

func verdictOf(equal bool) Verdict {
	if equal {
		return VerdictOK
	}
	return VerdictMismatch
}

// CompareProperty compares two resolved property values. Unknown on
// either side gives VerdictUnknown, never a match or a mismatch.
func (t *Tables) CompareProperty(infoA *snapshot.PropertyInfo, a scalar.Value, infoB *snapshot.PropertyInfo, b scalar.Value) Verdict {
	if a.IsUnknown() || b.IsUnknown() {
		return VerdictUnknown
	}
	if enum, ok := t.enumOf(infoA); ok {
		b = t.coerceEnum(enum, b)
	}
	if enum, ok := t.enumOf(infoB); ok {
		a = t.coerceEnum(enum, a)
	}

	switch {
	case !infoA.HasType() && !infoB.HasType():
		return verdictOf(looseEqual(a, b))
	case !infoB.HasType():
		pb, err := t.Parse(infoA.Type, b)
		if err != nil {
			return VerdictMismatch
		}
		b = pb
	case !infoA.HasType():
		pa, err := t.Parse(infoB.Type, a)
		if err != nil {
			return VerdictMismatch
		}
		a = pa
	case a.Kind() != b.Kind():
		// The declared type changed shape; read the old value as the new type.
		if pa, err := t.Parse(infoB.Type, a); err == nil {
			a = pa
		}
	}
	return verdictOf(a.Equal(b))
}

// looseEqual compares untyped values: as booleans when both look like
// booleans, else by their text.
func looseEqual(a, b scalar.Value) bool {
	ba, aok := asBool(a)
	bb, bok := asBool(b)
	if aok && bok {
		return ba == bb
	}
	return text(a) == text(b)
}

func text(v scalar.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}
