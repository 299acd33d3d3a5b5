package collect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/valvemist/machinecompat/snapshot"
)

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

// Collect introspects a running emulator over QMP and returns snapshot
// records: one qmp-info record, then one record per machine type, then one
// per device type. Requests that fail become exception records; only a
// failed machine or device listing aborts the run.
//
// The monitor must already be in command mode: *qmp.SocketMonitor
// negotiates capabilities in Connect.
func Collect(ctx context.Context, monitor Monitor, cfg Config) ([]snapshot.Record, error) {
	machines, err := RunQueryMachines(monitor)
	if err != nil {
		return nil, fmt.Errorf("query-machines: %w", err)
	}
	devices, err := RunListTypes(monitor, "device", false)
	if err != nil {
		return nil, fmt.Errorf("qom-list-types: %w", err)
	}
	concrete := map[string]bool{}
	for _, d := range devices {
		concrete[d.Get("name").String()] = true
	}

	names := cfg.Machines
	if len(names) == 0 {
		for _, m := range machines {
			names = append(names, m.Get("name").String())
		}
		sort.Strings(names)
	}

	var machineRecords []snapshot.Record
	drivers := map[string]bool{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, ok := findMachine(machines, name)
		if !ok {
			machineRecords = append(machineRecords, snapshot.NewException(snapshot.KindMachine, []string{name},
				"NotFound", fmt.Sprintf("Can't find machine type %s", name)))
			continue
		}
		for _, cp := range m.Get("compat-props").Array() {
			drivers[cp.Get("qom-type").String()] = true
		}
		machineRecords = append(machineRecords, snapshot.NewRecord(snapshot.KindMachine, []string{name}, machineJSON(m)))
	}
	for _, d := range cfg.Devices {
		drivers[d] = true
	}

	hierarchy := `{}`
	toDump := map[string]bool{}
	for _, d := range sortedKeys(drivers) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if concrete[d] {
			toDump[d] = true
		}
		subs, err := RunListTypes(monitor, d, true)
		if err != nil {
			log.Warn("can't list subtypes", "type", d, "error", err)
			continue
		}
		list := `[]`
		for _, s := range subs {
			name := s.Get("name").String()
			list, _ = sjson.Set(list, "-1", map[string]string{"name": name})
			if concrete[name] {
				toDump[name] = true
			}
		}
		hierarchy, _ = sjson.SetRaw(hierarchy, pathEscaper.Replace(d), list)
	}
	for _, d := range cfg.Devices {
		toDump[d] = true
	}

	info := `{}`
	info, _ = sjson.SetRaw(info, "devtype-hierarchy", hierarchy)
	info, _ = sjson.SetRaw(info, "device-types", `[]`)
	for _, d := range sortedKeys(concrete) {
		info, _ = sjson.Set(info, "device-types.-1", map[string]string{"name": d})
	}

	records := []snapshot.Record{snapshot.NewRecord(snapshot.KindQMPInfo, nil, info)}
	records = append(records, machineRecords...)
	for _, d := range sortedKeys(toDump) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		props, err := RunDeviceListProperties(monitor, d)
		if err != nil {
			records = append(records, snapshot.NewException(snapshot.KindDeviceType, []string{d}, "QMPError", err.Error()))
			continue
		}
		records = append(records, snapshot.NewRecord(snapshot.KindDeviceType, []string{d}, deviceJSON(props)))
	}
	log.Info("Collection finished", "machines", len(machineRecords), "devices", len(toDump))
	return records, nil
}

func findMachine(machines []gjson.Result, name string) (gjson.Result, bool) {
	for _, m := range machines {
		if m.Get("name").String() == name || m.Get("alias").String() == name {
			return m, true
		}
	}
	return gjson.Result{}, false
}

// machineJSON converts a query-machines entry into the machine record
// shape: snake_case fields, cpu-max as max_cpus, and compat_props entries
// keyed by driver.
func machineJSON(m gjson.Result) string {
	out := `{}`
	m.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		switch key {
		case "compat-props":
			return true
		case "cpu-max":
			key = "max_cpus"
		default:
			key = strings.ReplaceAll(key, "-", "_")
		}
		out, _ = sjson.SetRaw(out, pathEscaper.Replace(key), v.Raw)
		return true
	})
	if !m.Get("alias").Exists() {
		out, _ = sjson.SetRaw(out, "alias", "null")
	}
	out, _ = sjson.SetRaw(out, "compat_props", `[]`)
	for _, cp := range m.Get("compat-props").Array() {
		elem := `{}`
		elem, _ = sjson.Set(elem, "driver", cp.Get("qom-type").String())
		elem, _ = sjson.Set(elem, "property", cp.Get("property").String())
		elem, _ = sjson.SetRaw(elem, "value", cp.Get("value").Raw)
		out, _ = sjson.SetRaw(out, "compat_props.-1", elem)
	}
	return out
}

// deviceJSON converts device-list-properties output into the device-type
// record shape.
func deviceJSON(props []gjson.Result) string {
	out := `{"props": []}`
	for _, p := range props {
		elem := `{}`
		elem, _ = sjson.Set(elem, "name", p.Get("name").String())
		elem, _ = sjson.Set(elem, "info.name", p.Get("type").String())
		if dv := p.Get("default-value"); dv.Exists() {
			elem, _ = sjson.SetRaw(elem, "defval", dv.Raw)
		}
		out, _ = sjson.SetRaw(out, "props.-1", elem)
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
