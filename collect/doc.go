// Package collect produces compatibility snapshots from a live emulator
// over QMP (QEMU Machine Protocol).
//
// It starts the binary paused with no machine, then asks it for:
//
//   - every machine type and its compat properties (query-machines),
//   - the concrete device types (qom-list-types),
//   - the subtypes of every driver a compat property names,
//   - the declared properties of each affected device type
//     (device-list-properties).
//
// Example usage:
//
//	cfg := collect.Config{Binary: "qemu-system-x86_64", Timeout: 2 * time.Second}
//	collect.GenerateSocketPath(&cfg)
//	cmd, err := collect.Launch(ctx, cfg)
//	monitor, err := qmp.NewSocketMonitor("unix", cfg.SocketFile, cfg.Timeout)
//	monitor.Connect()
//	records, err := collect.Collect(ctx, monitor, cfg)
//	snapshot.Save("qemu-9.2.json.xz", records)
//
// Instance property values aren't available over QMP; snapshots collected
// this way carry class defaults only.
package collect
