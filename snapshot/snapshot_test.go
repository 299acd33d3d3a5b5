package snapshot

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/valvemist/machinecompat/scalar"
)

const testSnapshot = `[
  {"request": ["qmp-info"], "result": {
    "devtype-hierarchy": {"virtio-pci": [{"name": "virtio-net-pci"}, {"name": "virtio-blk-pci"}]},
    "device-types": [{"name": "e1000"}]
  }},
  {"request": ["machine", "pc-1.0"], "result": {
    "name": "pc-1.0", "alias": null, "max_cpus": 255, "reset": "0x1234 <pc_machine_reset>",
    "compat_props": [{"driver": "virtio-pci", "property": "disable-legacy", "value": "off"}]
  }},
  {"request": ["machine", "pc-9.9"], "exception": {"type": "Exception", "message": "Can't find machine type pc-9.9"}},
  {"request": ["device-type", "virtio-net-pci"], "result": {
    "props": [
      {"name": "disable-legacy", "info": {"name": "OnOffAuto"}, "defval": "auto"},
      {"name": "vectors", "info": {"name": "uint32"}, "defval": -1},
      {"name": "netdev", "info": {"name": "str"}}
    ],
    "instance_props": [{"name": "disable-legacy", "type": "OnOffAuto", "value": "on"}]
  }},
  {"request": ["device-type", "virtio-blk-pci"], "result": {"props": []}}
]`

func mustParse(t *testing.T) *Snapshot {
	t.Helper()
	s, err := Parse("test.json", []byte(testSnapshot))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func TestFindRecord(t *testing.T) {
	s := mustParse(t)

	if _, ok := s.FindRecord(KindMachine, "pc-1.0"); !ok {
		t.Fatal("pc-1.0 not found")
	}
	if _, ok := s.FindRecord(KindMachine, "pc-9.9"); ok {
		t.Fatal("failed record must not be returned")
	}
	if _, ok := s.FindRecord(KindMachine, "nope"); ok {
		t.Fatal("missing record returned")
	}
	if _, ok := s.FindRecord(KindQMPInfo); !ok {
		t.Fatal("qmp-info not found")
	}
}

func TestNames(t *testing.T) {
	s := mustParse(t)

	if got := s.MachineNames(); len(got) != 1 || got[0] != "pc-1.0" {
		t.Fatalf("MachineNames = %v", got)
	}
	want := []string{"e1000", "virtio-blk-pci", "virtio-net-pci"}
	got := s.DeviceTypeNames()
	if len(got) != len(want) {
		t.Fatalf("DeviceTypeNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DeviceTypeNames = %v, want %v", got, want)
		}
	}
	if s.HasDeviceType("virtio-pci") {
		t.Fatal("abstract type seen only in the hierarchy must not count as supported")
	}
}

func TestHierarchy(t *testing.T) {
	h := mustParse(t).Hierarchy()

	subs := h.Subtypes("virtio-pci")
	if len(subs) != 3 {
		t.Fatalf("Subtypes(virtio-pci) = %v", subs)
	}
	seen := map[string]bool{}
	for _, s := range subs {
		seen[s] = true
	}
	if !seen["virtio-pci"] || !seen["virtio-net-pci"] || !seen["virtio-blk-pci"] {
		t.Fatalf("Subtypes(virtio-pci) = %v", subs)
	}
	if got := h.Subtypes("isa-fdc"); len(got) != 1 || got[0] != "isa-fdc" {
		t.Fatalf("unknown type fallback = %v", got)
	}
}

func TestMachine(t *testing.T) {
	s := mustParse(t)

	m, err := s.Machine("pc-1.0")
	if err != nil {
		t.Fatalf("Machine: %v", err)
	}
	if len(m.CompatProps) != 1 {
		t.Fatalf("compat_props = %v", m.CompatProps)
	}
	cp := m.CompatProps[0]
	if cp.Driver != "virtio-pci" || cp.Property != "disable-legacy" || !cp.Value.Equal(scalar.Str("off")) {
		t.Fatalf("override = %v", cp)
	}
	if _, ok := m.Field("compat_props"); ok {
		t.Fatal("compat_props must not be a field")
	}
	if f, ok := m.Field("max_cpus"); !ok || f.Int() != 255 {
		t.Fatalf("max_cpus = %v", f)
	}

	if _, err := s.Machine("pc-9.9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeviceType(t *testing.T) {
	s := mustParse(t)

	d, err := s.DeviceType("virtio-net-pci")
	if err != nil {
		t.Fatalf("DeviceType: %v", err)
	}
	p := d.ClassProp("disable-legacy")
	if p == nil || p.Type != "OnOffAuto" || !p.Default.Equal(scalar.Str("auto")) {
		t.Fatalf("class prop = %+v", p)
	}
	if nd := d.ClassProp("netdev"); nd.HasDefault() {
		t.Fatalf("netdev should have no default: %+v", nd)
	}
	ip := d.InstanceProp("disable-legacy")
	if ip == nil || !ip.Default.Equal(scalar.Str("on")) {
		t.Fatalf("instance prop = %+v", ip)
	}

	blk, _ := s.DeviceType("virtio-blk-pci")
	if blk.InstanceProps != nil {
		t.Fatal("instance props should be absent")
	}
}

func TestSaveLoad(t *testing.T) {
	s := mustParse(t)
	for _, name := range []string{"snap.json", "snap.json.xz"} {
		path := filepath.Join(t.TempDir(), name)
		if err := Save(path, s.Records()); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		if len(got.Records()) != len(s.Records()) {
			t.Fatalf("%s: %d records, want %d", name, len(got.Records()), len(s.Records()))
		}
		if _, ok := got.FindRecord(KindMachine, "pc-9.9"); ok {
			t.Fatalf("%s: exception record lost", name)
		}
		if got.Digest() == "" {
			t.Fatalf("%s: empty digest", name)
		}
	}
}

func TestEncodeException(t *testing.T) {
	tests := []struct {
		typ, msg string
	}{
		{"NotFound", "Can't find machine type pc-9.9"},
		{"QMPError", `quote " and newline` + "\n" + `in message`},
		{"", ""},
	}
	for _, tt := range tests {
		in := NewException(KindDeviceType, []string{"e1000"}, tt.typ, tt.msg)
		data, err := Encode([]Record{in})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		s, err := Parse("encoded", data)
		if err != nil {
			t.Fatalf("Parse(%s): %v", data, err)
		}
		recs := s.Records()
		if len(recs) != 1 || recs[0].Exception == nil {
			t.Fatalf("Parse(%s) = %+v", data, recs)
		}
		if got := *recs[0].Exception; got.Type != tt.typ || got.Message != tt.msg {
			t.Errorf("exception = %+v, want type %q message %q", got, tt.typ, tt.msg)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{`{`, `{"request": []}`, `[{"result": 1}]`} {
		if _, err := Parse("bad", []byte(in)); err == nil {
			t.Errorf("Parse(%s) succeeded", in)
		}
	}
}
