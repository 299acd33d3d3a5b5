package compat

import (
	"fmt"
	"strconv"

	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

type typeClass int

const (
	classStr typeClass = iota
	classInt
	classBool
	classEnum
)

var intTypes = map[string]bool{
	"int": true, "uint": true,
	"int8": true, "uint8": true,
	"int16": true, "uint16": true,
	"int32": true, "uint32": true,
	"int64": true, "uint64": true,
	"size": true,
}

var boolLiterals = map[string]bool{
	"on": true, "yes": true, "true": true,
	"off": false, "no": false, "false": false,
}

func (t *Tables) classify(typeName string) typeClass {
	switch {
	case intTypes[typeName]:
		return classInt
	case typeName == "bool" || typeName == "boolean":
		return classBool
	case t.enums[typeName] != nil:
		return classEnum
	}
	return classStr
}

// Parse converts v to the declared property type. Unknown stays Unknown.
// Types that aren't integers, booleans or catalogued enums are strings
// and pass through unchanged.
func (t *Tables) Parse(typeName string, v scalar.Value) (scalar.Value, error) {
	if v.IsUnknown() {
		return v, nil
	}
	switch t.classify(typeName) {
	case classInt:
		if _, ok := v.AsInt(); ok {
			return v, nil
		}
		if s, ok := v.AsString(); ok {
			if i, err := strconv.ParseInt(s, 0, 64); err == nil {
				return scalar.Int(i), nil
			}
			if u, err := strconv.ParseUint(s, 0, 64); err == nil {
				return scalar.Int(int64(u)), nil
			}
		}
	case classBool:
		if b, ok := asBool(v); ok {
			return scalar.Bool(b), nil
		}
	case classEnum:
		if s, ok := v.AsString(); ok && t.enums[typeName][s] {
			return scalar.Enum(typeName, s), nil
		}
	default:
		return v, nil
	}
	return scalar.Unknown, fmt.Errorf("%w: %v as %s", scalar.ErrParse, v, typeName)
}

// asBool accepts native booleans and the literal on/yes/true/off/no/false.
func asBool(v scalar.Value) (bool, bool) {
	if b, ok := v.AsBool(); ok {
		return b, true
	}
	if s, ok := v.AsString(); ok && v.Kind() == scalar.KindStr {
		b, ok := boolLiterals[s]
		return b, ok
	}
	return false, false
}

// enumOf returns the enum type declared by info, if any.
func (t *Tables) enumOf(info *snapshot.PropertyInfo) (string, bool) {
	if !info.HasType() || t.classify(info.Type) != classEnum {
		return "", false
	}
	return info.Type, true
}

// coerceEnum maps a value of an enum's old boolean representation into
// the enum domain. Anything else is returned unchanged.
func (t *Tables) coerceEnum(enum string, v scalar.Value) scalar.Value {
	m := t.coercions[enum]
	if m == nil || v.Kind() == scalar.KindEnum {
		return v
	}
	b, ok := asBool(v)
	if !ok {
		i, isInt := v.AsInt()
		if !isInt || (i != 0 && i != 1) {
			return v
		}
		b = i == 1
	}
	if member, ok := m[strconv.FormatBool(b)]; ok {
		return scalar.Enum(enum, member)
	}
	return v
}

var fixupRules = map[string]func(int64) int64{
	"uint8":  func(i int64) int64 { return int64(uint8(i)) },
	"uint16": func(i int64) int64 { return int64(uint16(i)) },
	"uint32": func(i int64) int64 { return int64(uint32(i)) },
	"int8":   func(i int64) int64 { return int64(int8(i)) },
	"int16":  func(i int64) int64 { return int64(int16(i)) },
	"int32":  func(i int64) int64 { return int64(int32(i)) },
}

// Fixup applies the value post-processing rule for (driver, property).
func (t *Tables) Fixup(driver, property string, v scalar.Value) scalar.Value {
	rule, ok := t.fixups[propKey{driver, property}]
	if !ok {
		return v
	}
	i, ok := v.AsInt()
	if !ok {
		return v
	}
	return scalar.Int(fixupRules[rule](i))
}
