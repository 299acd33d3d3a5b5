package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/zeebo/blake3"
)

// Request kinds understood by the store.
const (
	KindMachine    = "machine"
	KindDeviceType = "device-type"
	KindQMPInfo    = "qmp-info"
)

// ErrNotFound is returned by lookups for records that are missing or failed.
var ErrNotFound = errors.New("record not found")

var log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level:     slog.LevelInfo,
	AddSource: true,
}))

// SetLogger sets the logger used by the snapshot package.
func SetLogger(logger *slog.Logger) {
	if logger != nil {
		log = logger
	}
}

// Request is the (kind, args...) pair a record answers.
type Request struct {
	Kind string
	Args []string
}

func (r Request) key() string {
	return r.Kind + "\x00" + strings.Join(r.Args, "\x00")
}

func (r Request) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, strings.Join(r.Args, ", "))
}

// Exception describes a request the producer failed to answer.
type Exception struct {
	Type    string
	Message string
}

// Record is one (request, result) entry. Exactly one of Result and
// Exception is set.
type Record struct {
	Request   Request
	Result    gjson.Result
	Exception *Exception
}

// NewRecord returns a successful record. result must be valid JSON.
func NewRecord(kind string, args []string, result string) Record {
	return Record{
		Request: Request{Kind: kind, Args: args},
		Result:  gjson.Parse(result),
	}
}

// NewException returns a failed record.
func NewException(kind string, args []string, typ, msg string) Record {
	return Record{
		Request:   Request{Kind: kind, Args: args},
		Exception: &Exception{Type: typ, Message: msg},
	}
}

// Snapshot is one emulator binary's introspected data. It is immutable
// once built and safe for concurrent reads.
type Snapshot struct {
	name    string
	digest  string
	records []Record
	index   map[string]int
	devices map[string]struct{}
	machs   []string
	hier    Hierarchy
}

// New builds a snapshot from records, in order. The first successful
// record for a request wins.
func New(name string, records []Record) *Snapshot {
	s := &Snapshot{
		name:    name,
		records: records,
		index:   make(map[string]int, len(records)),
		devices: make(map[string]struct{}),
	}
	for i, rec := range records {
		if rec.Exception != nil {
			log.Debug("skipping failed record", "snapshot", name, "request", rec.Request.String(), "error", rec.Exception.Message)
			continue
		}
		k := rec.Request.key()
		if _, dup := s.index[k]; dup {
			log.Debug("duplicate record ignored", "snapshot", name, "request", rec.Request.String())
			continue
		}
		s.index[k] = i
		switch rec.Request.Kind {
		case KindMachine:
			if len(rec.Request.Args) > 0 {
				s.machs = append(s.machs, rec.Request.Args[0])
			}
		case KindDeviceType:
			if len(rec.Request.Args) > 0 {
				s.devices[rec.Request.Args[0]] = struct{}{}
			}
		}
	}
	sort.Strings(s.machs)
	if info, ok := s.FindRecord(KindQMPInfo); ok {
		for _, d := range info.Get("device-types").Array() {
			s.devices[d.Get("name").String()] = struct{}{}
		}
		s.hier = parseHierarchy(info.Get("devtype-hierarchy"))
	}
	return s
}

// Parse decodes the JSON snapshot format:
//
//	[{"request": [kind, args...], "result": ...}, ...]
func Parse(name string, data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("snapshot %s: invalid JSON", name)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("snapshot %s: expected a JSON array of records", name)
	}
	var records []Record
	for i, elem := range doc.Array() {
		req := elem.Get("request").Array()
		if len(req) == 0 {
			return nil, fmt.Errorf("snapshot %s: record %d has no request", name, i)
		}
		rec := Record{Request: Request{Kind: req[0].String()}}
		for _, a := range req[1:] {
			rec.Request.Args = append(rec.Request.Args, a.String())
		}
		if exc := elem.Get("exception"); exc.Exists() {
			rec.Exception = &Exception{
				Type:    exc.Get("type").String(),
				Message: exc.Get("message").String(),
			}
		} else {
			rec.Result = elem.Get("result")
		}
		records = append(records, rec)
	}
	s := New(name, records)
	sum := blake3.Sum256(data)
	s.digest = hex.EncodeToString(sum[:])
	return s, nil
}

// Encode serialises records in the format Parse reads.
func Encode(records []Record) ([]byte, error) {
	out := []byte(`[]`)
	for _, rec := range records {
		req := append([]string{rec.Request.Kind}, rec.Request.Args...)
		elem, err := sjson.SetBytes([]byte(`{}`), "request", req)
		if err != nil {
			return nil, err
		}
		if rec.Exception != nil {
			if elem, err = sjson.SetBytes(elem, "exception.type", rec.Exception.Type); err != nil {
				return nil, err
			}
			if elem, err = sjson.SetBytes(elem, "exception.message", rec.Exception.Message); err != nil {
				return nil, err
			}
		} else {
			raw := rec.Result.Raw
			if raw == "" {
				raw = "null"
			}
			elem, err = sjson.SetRawBytes(elem, "result", []byte(raw))
			if err != nil {
				return nil, err
			}
		}
		if out, err = sjson.SetRawBytes(out, "-1", elem); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Name is the label the snapshot was loaded under, usually a file path.
func (s *Snapshot) Name() string { return s.name }

// Digest is the BLAKE3 hash of the encoded snapshot, empty for snapshots
// built in memory.
func (s *Snapshot) Digest() string { return s.digest }

// Records returns the records in their original order.
func (s *Snapshot) Records() []Record { return s.records }

// FindRecord returns the result for an exact (kind, args) match. Missing
// and failed requests both report false.
func (s *Snapshot) FindRecord(kind string, args ...string) (gjson.Result, bool) {
	i, ok := s.index[Request{Kind: kind, Args: args}.key()]
	if !ok {
		return gjson.Result{}, false
	}
	return s.records[i].Result, true
}

// MachineNames returns the machine types the snapshot has records for, sorted.
func (s *Snapshot) MachineNames() []string {
	return append([]string(nil), s.machs...)
}

// DeviceTypeNames returns every device type the binary was seen to support.
func (s *Snapshot) DeviceTypeNames() []string {
	names := make([]string, 0, len(s.devices))
	for n := range s.devices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasDeviceType reports whether the binary supports the device type.
func (s *Snapshot) HasDeviceType(name string) bool {
	_, ok := s.devices[name]
	return ok
}

// Hierarchy returns the devtype hierarchy, empty if the snapshot has none.
func (s *Snapshot) Hierarchy() Hierarchy { return s.hier }
