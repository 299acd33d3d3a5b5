package compat

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()
	if tables.FieldPolicy("max_cpus") != PolicyGE {
		t.Errorf("max_cpus policy = %s", tables.FieldPolicy("max_cpus"))
	}
	if tables.FieldPolicy("nvdimm_supported") != PolicyEqual {
		t.Errorf("default policy = %s", tables.FieldPolicy("nvdimm_supported"))
	}
	if tables.FieldPolicy("default_display") != PolicyNull {
		t.Errorf("default_display policy = %s", tables.FieldPolicy("default_display"))
	}
	h := tables.Historical(snapshot.Hierarchy{})
	if v, ok := h.Get("virtio-pci", "x-pcie-pm-init"); !ok || !v.Equal(scalar.Bool(false)) {
		t.Errorf("historical x-pcie-pm-init = %v, %v", v, ok)
	}
}

func TestParseTablesErrors(t *testing.T) {
	tests := []string{
		"field_policies: {max_cpus: bigger}",
		"value_fixups: [{driver: a, property: b, rule: uint128}]",
		"enums: {OnOff: [on, off]}\nenum_coercions: {OnOff: {\"true\": yes}}",
		"historical_defaults: [{driver: a, property: b, value: [1, 2]}]",
		"field_fixups: [{field: a, machine: \"[\", skip: true}]",
		"enums: [",
	}
	for _, in := range tests {
		if _, err := ParseTables([]byte(in)); err == nil {
			t.Errorf("ParseTables(%q) succeeded", in)
		}
	}
}

func TestParse(t *testing.T) {
	tables := DefaultTables()
	tests := []struct {
		typ  string
		in   scalar.Value
		want scalar.Value
		err  bool
	}{
		{"uint32", scalar.Str("0x20"), scalar.Int(32), false},
		{"int64", scalar.Str("-5"), scalar.Int(-5), false},
		{"uint64", scalar.Str("18446744073709551615"), scalar.Int(-1), false},
		{"size", scalar.Int(4096), scalar.Int(4096), false},
		{"uint8", scalar.Str("many"), scalar.Unknown, true},
		{"bool", scalar.Str("yes"), scalar.Bool(true), false},
		{"bool", scalar.Str("off"), scalar.Bool(false), false},
		{"bool", scalar.Str("On"), scalar.Unknown, true},
		{"bool", scalar.Int(1), scalar.Unknown, true},
		{"OnOffAuto", scalar.Str("auto"), scalar.Enum("OnOffAuto", "auto"), false},
		{"OnOffAuto", scalar.Str("sometimes"), scalar.Unknown, true},
		{"str", scalar.Int(3), scalar.Int(3), false},
		{"macaddr", scalar.Str("52:54:00:12:34:56"), scalar.Str("52:54:00:12:34:56"), false},
	}
	for _, tt := range tests {
		got, err := tables.Parse(tt.typ, tt.in)
		if tt.err {
			if !errors.Is(err, scalar.ErrParse) {
				t.Errorf("Parse(%s, %v): err = %v, want ErrParse", tt.typ, tt.in, err)
			}
			continue
		}
		if err != nil || got.Kind() != tt.want.Kind() || !got.Equal(tt.want) {
			t.Errorf("Parse(%s, %v) = %v, %v; want %v", tt.typ, tt.in, got, err, tt.want)
		}
	}
}

func TestFixup(t *testing.T) {
	tables := DefaultTables()
	if got := tables.Fixup("virtio-net-pci", "vectors", scalar.Int(-1)); !got.Equal(scalar.Int(0xffffffff)) {
		t.Errorf("vectors fixup = %v", got)
	}
	if got := tables.Fixup("e1000", "vectors", scalar.Int(-1)); !got.Equal(scalar.Int(-1)) {
		t.Errorf("unrelated device changed: %v", got)
	}
}

func TestEventRendering(t *testing.T) {
	e := Event{
		Level:   LevelError,
		Machine: "pc-2.6",
		Locator: Locator{Device: "virtio-net-pci", Property: "disable-legacy"},
		Message: "value mismatch",
	}
	if got := e.String(); got != "pc-2.6: virtio-net-pci.disable-legacy: value mismatch" {
		t.Errorf("String() = %q", got)
	}
	j := e.JSON()
	if gjson.Get(j, "level").String() != "ERROR" || gjson.Get(j, "property").String() != "disable-legacy" {
		t.Errorf("JSON() = %s", j)
	}
	if gjson.Get(j, "field").Exists() {
		t.Errorf("JSON() has a field for a property event: %s", j)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	SlogReporter{Logger: logger}.Report(e)
	SlogReporter{Logger: logger}.Report(Event{Level: LevelDebug, Machine: "pc", Message: "ok"})
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || strings.Contains(out, "level=DEBUG") {
		t.Errorf("slog output = %q", out)
	}

	for _, l := range []Level{LevelDebug, LevelWarn, LevelError} {
		if got, err := ParseLevel(l.String()); err != nil || got != l {
			t.Errorf("ParseLevel(%s) = %v, %v", l, got, err)
		}
	}
}
