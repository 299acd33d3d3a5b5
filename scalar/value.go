package scalar

import (
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
)

// ErrParse is returned when a value cannot be converted to a declared type.
var ErrParse = errors.New("cannot parse value")

// Kind identifies which member of the Value union is set.
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindInt
	KindBool
	KindStr
	KindEnum
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Value is a property or field value. The zero Value is Unknown.
type Value struct {
	kind Kind
	i    int64
	b    bool
	s    string
	enum string
}

// Unknown is the value of anything the snapshots can't tell us.
var Unknown = Value{}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// Enum returns a member of the named enumeration.
func Enum(typeName, member string) Value {
	return Value{kind: KindEnum, s: member, enum: typeName}
}

// Kind reports which member of the union is set.
func (v Value) Kind() Kind { return v.kind }

// IsUnknown reports whether v is Unknown.
func (v Value) IsUnknown() bool { return v.kind == KindUnknown }

// EnumType returns the enumeration name of an Enum value, or "".
func (v Value) EnumType() string { return v.enum }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the payload of a Str or Enum value.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindStr || v.kind == KindEnum
}

// Equal reports strict equality. Str and Enum values compare by their
// string payload, so a property that changed from a plain string to an
// enumeration keeps comparing equal. Unknown is never equal to anything.
func (v Value) Equal(o Value) bool {
	if v.kind == KindUnknown || o.kind == KindUnknown {
		return false
	}
	vs := v.kind == KindStr || v.kind == KindEnum
	os := o.kind == KindStr || o.kind == KindEnum
	if vs && os {
		return v.s == o.s
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindBool:
		return v.b == o.b
	}
	return true
}

// Interface returns the value as a plain Go scalar suitable for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	case KindStr, KindEnum:
		return v.s
	}
	return nil
}

// String formats v for messages; strings are quoted, enum members are not.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStr:
		return strconv.Quote(v.s)
	case KindEnum:
		return v.s
	}
	return "<unknown>"
}

// FromJSON converts an untyped JSON scalar into a Value. Missing results
// become Unknown. Unsigned 64-bit numbers wrap to their two's complement,
// which is how the emulator stores them.
func FromJSON(r gjson.Result) Value {
	if !r.Exists() {
		return Unknown
	}
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.String:
		return Str(r.Str)
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return Int(i)
		}
		if u, err := strconv.ParseUint(r.Raw, 10, 64); err == nil {
			return Int(int64(u))
		}
		return Str(r.Raw)
	}
	return Str(r.Raw)
}
