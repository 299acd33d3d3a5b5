package compat

import (
	"testing"

	"github.com/tidwall/gjson"
	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
)

func desc(json string) *snapshot.MachineDescriptor {
	return snapshot.DecodeMachine(gjson.Parse(json))
}

func TestCompareFieldMaxCPUs(t *testing.T) {
	tables := DefaultTables()
	older := desc(`{"name": "pc-2.10", "max_cpus": 240}`)
	newer := desc(`{"name": "pc-2.10", "max_cpus": 255}`)

	if got := tables.CompareField("pc-2.10", "max_cpus", older, newer); got.Verdict != VerdictOK {
		t.Errorf("240 -> 255: %v, want ok", got.Verdict)
	}
	if got := tables.CompareField("pc-2.10", "max_cpus", newer, older); got.Verdict != VerdictMismatch {
		t.Errorf("255 -> 240: %v, want mismatch", got.Verdict)
	}
}

func TestCompareField(t *testing.T) {
	tables := DefaultTables()
	tests := []struct {
		name    string
		machine string
		field   string
		a, b    string
		want    Verdict
	}{
		{"equal", "pc", "block_default_type", `{"block_default_type": "IF_IDE"}`, `{"block_default_type": "IF_IDE"}`, VerdictOK},
		{"not equal", "pc", "block_default_type", `{"block_default_type": "IF_IDE"}`, `{"block_default_type": "IF_SCSI"}`, VerdictMismatch},
		{"reset hook skipped", "pc", "reset", `{"reset": "0x1 <a>"}`, `{"reset": "0x2 <b>"}`, VerdictSkip},
		{"function identity", "pc", "numa_auto_assign_ram", `{"numa_auto_assign_ram": "0x10 <numa_legacy_auto_assign_ram>"}`, `{"numa_auto_assign_ram": "0x99 <numa_legacy_auto_assign_ram>"}`, VerdictOK},
		{"function identity differs", "pc", "numa_auto_assign_ram", `{"numa_auto_assign_ram": "0x10 <a>"}`, `{"numa_auto_assign_ram": null}`, VerdictMismatch},
		{"null presence", "pc", "default_display", `{"default_display": "std"}`, `{"default_display": "vga"}`, VerdictOK},
		{"null presence differs", "pc", "default_display", `{"default_display": null}`, `{"default_display": "std"}`, VerdictMismatch},
		{"ge on booleans", "pc", "has_dynamic_sysbus", `{"has_dynamic_sysbus": false}`, `{"has_dynamic_sysbus": true}`, VerdictOK},
		{"ge on booleans regression", "pc", "has_dynamic_sysbus", `{"has_dynamic_sysbus": true}`, `{"has_dynamic_sysbus": false}`, VerdictMismatch},
		{"omitted constant", "pc", "numa_mem_align_shift", `{}`, `{"numa_mem_align_shift": 23}`, VerdictOK},
		{"omitted constant differs", "pc", "minimum_page_bits", `{}`, `{"minimum_page_bits": 12}`, VerdictMismatch},
		{"omitted ge", "pc", "has_dynamic_sysbus", `{}`, `{"has_dynamic_sysbus": true}`, VerdictOK},
		{"omitted same as", "pc", "default_boot_order", `{"boot_order": "cad"}`, `{"default_boot_order": "cad"}`, VerdictOK},
		{"omitted without substitute", "pc", "nvdimm_supported", `{}`, `{"nvdimm_supported": true}`, VerdictUnknown},
		{"boot order irrelevant for none", "none", "boot_order", `{"boot_order": "cad"}`, `{"boot_order": null}`, VerdictSkip},
		{"boot order checked elsewhere", "pc", "boot_order", `{"boot_order": "cad"}`, `{"boot_order": null}`, VerdictMismatch},
		{"known cpu ceiling discrepancy", "pc-q35-2.4", "max_cpus", `{"max_cpus": 288}`, `{"max_cpus": 255}`, VerdictOK},
		{"structs by content", "pc", "smp_props", `{"smp_props": {"a": 1, "b": 2}}`, `{"smp_props": {"a":1,"b":2}}`, VerdictOK},
	}
	for _, tt := range tests {
		got := tables.CompareField(tt.machine, tt.field, desc(tt.a), desc(tt.b))
		if got.Verdict != tt.want {
			t.Errorf("%s: got %v (%v vs %v), want %v", tt.name, got.Verdict, got.A, got.B, tt.want)
		}
	}
}

func TestCompareFieldTestTables(t *testing.T) {
	tables, err := ParseTables([]byte(`
field_policies:
  speed: ge
field_fixups:
  - {field: speed, machine: "old-*", from: 7, to: 9}
`))
	if err != nil {
		t.Fatalf("ParseTables: %v", err)
	}
	a := desc(`{"speed": 7}`)
	b := desc(`{"speed": 8}`)
	if got := tables.CompareField("new-1", "speed", a, b); got.Verdict != VerdictOK {
		t.Errorf("new-1: %v", got.Verdict)
	}
	got := tables.CompareField("old-1", "speed", a, b)
	if got.Verdict != VerdictMismatch || !got.A.Equal(scalar.Int(9)) {
		t.Errorf("old-1: %v, A = %v", got.Verdict, got.A)
	}
}
