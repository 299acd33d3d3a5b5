package compat

import (
	"strings"
	"testing"

	"github.com/valvemist/machinecompat/snapshot"
)

const testHierarchy = `{"devtype-hierarchy": {
  "virtio-pci": [{"name": "virtio-net-pci"}, {"name": "virtio-blk-pci"}],
  "pci-device": [{"name": "virtio-pci"}, {"name": "virtio-net-pci"}, {"name": "virtio-blk-pci"}, {"name": "e1000"}]
}}`

func qmpInfo(result string) snapshot.Record {
	return snapshot.NewRecord(snapshot.KindQMPInfo, nil, result)
}

func machine(name, result string) snapshot.Record {
	return snapshot.NewRecord(snapshot.KindMachine, []string{name}, result)
}

func device(name, result string) snapshot.Record {
	return snapshot.NewRecord(snapshot.KindDeviceType, []string{name}, result)
}

func newSnapshot(name string, records ...snapshot.Record) *snapshot.Snapshot {
	return snapshot.New(name, records)
}

func eventsAt(c *Collector, level Level, loc string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Level == level && e.Locator.String() == loc {
			out = append(out, e)
		}
	}
	return out
}

func dumpEvents(t *testing.T, c *Collector) {
	t.Helper()
	var b strings.Builder
	for _, e := range c.Events() {
		b.WriteString(e.Level.String() + " " + e.String() + "\n")
	}
	t.Log("events:\n" + b.String())
}
