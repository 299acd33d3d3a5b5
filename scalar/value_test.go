package scalar

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestFromJSON(t *testing.T) {
	doc := `{"s":"off","i":42,"neg":-1,"big":18446744073709551615,"t":true,"f":false,"n":null,"fl":1.5}`
	tests := []struct {
		path string
		want Value
	}{
		{"s", Str("off")},
		{"i", Int(42)},
		{"neg", Int(-1)},
		{"big", Int(-1)},
		{"t", Bool(true)},
		{"f", Bool(false)},
		{"n", Null()},
		{"fl", Str("1.5")},
	}
	for _, tt := range tests {
		got := FromJSON(gjson.Get(doc, tt.path))
		if got.Kind() != tt.want.Kind() || !got.Equal(tt.want) {
			t.Errorf("FromJSON(%s) = %v (%v), want %v (%v)", tt.path, got, got.Kind(), tt.want, tt.want.Kind())
		}
	}
	if v := FromJSON(gjson.Get(doc, "missing")); !v.IsUnknown() {
		t.Fatalf("missing path: got %v, want unknown", v)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int", Int(3), Int(3), true},
		{"int differs", Int(3), Int(4), false},
		{"bool", Bool(true), Bool(true), true},
		{"enum vs str", Enum("OnOffAuto", "auto"), Str("auto"), true},
		{"enum differs", Enum("OnOffAuto", "off"), Enum("OnOffAuto", "auto"), false},
		{"int vs bool", Int(1), Bool(true), false},
		{"null", Null(), Null(), true},
		{"unknown", Unknown, Unknown, false},
		{"unknown vs int", Unknown, Int(0), false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s: %v.Equal(%v) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	if got := Str("x").String(); got != `"x"` {
		t.Errorf("Str: got %s", got)
	}
	if got := Enum("OnOffAuto", "on").String(); got != "on" {
		t.Errorf("Enum: got %s", got)
	}
	if got := Unknown.String(); got != "<unknown>" {
		t.Errorf("Unknown: got %s", got)
	}
}
