// Package snapshot stores one emulator binary's introspected machine and
// device-type data and answers point queries against it.
//
// A snapshot is an ordered list of records, each answering one request:
//
//	[
//	  {"request": ["qmp-info"], "result": {"devtype-hierarchy": {...}}},
//	  {"request": ["machine", "pc-i440fx-2.8"], "result": {...}},
//	  {"request": ["device-type", "virtio-net-pci"], "result": {...}},
//	  {"request": ["device-type", "foo"], "exception": {"type": "...", "message": "..."}}
//	]
//
// Lookups never fail loudly: a missing record means the binary doesn't
// support that machine or device type, which callers must be able to tell
// apart from an unknown property.
package snapshot
