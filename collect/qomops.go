// qomops.go contains the QMP queries used to introspect machine types and
// the QOM type tree, and the launcher for a paused emulator.

package collect

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/tidwall/gjson"
)

// Machine and device queries

// RunQueryMachines returns every machine type, with compat properties.
func RunQueryMachines(monitor Monitor) ([]gjson.Result, error) {
	return runReturnArray(monitor, BuildQueryMachinesJSON())
}

// RunListTypes returns the QOM types implementing the given type.
func RunListTypes(monitor Monitor, implements string, abstract bool) ([]gjson.Result, error) {
	return runReturnArray(monitor, BuildQOMListTypesJSON(implements, abstract))
}

// RunDeviceListProperties returns the declared properties of a device type.
func RunDeviceListProperties(monitor Monitor, typename string) ([]gjson.Result, error) {
	return runReturnArray(monitor, BuildDeviceListPropertiesJSON(typename))
}

func runReturnArray(monitor Monitor, json string) ([]gjson.Result, error) {
	raw, err := RunQMPAndLog(monitor, json)
	if err != nil {
		return nil, err
	}
	ret := gjson.GetBytes(raw, "return")
	if !ret.IsArray() {
		return nil, fmt.Errorf("unexpected reply to %s: %s", gjson.Get(json, "execute").String(), raw)
	}
	return ret.Array(), nil
}

// Emulator process handling

// Launch starts the emulator paused, with no machine and no devices, and
// waits for its QMP socket to appear. The caller owns the returned process.
func Launch(ctx context.Context, cfg Config) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, cfg.Binary,
		"-S", "-machine", "none", "-nodefaults", "-display", "none",
		"-qmp", "unix:"+cfg.SocketFile+",server=on,wait=off")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start emulator: %w", err)
	}

	deadline := time.Now().Add(cfg.Timeout)
	for {
		if _, err := os.Stat(cfg.SocketFile); err == nil {
			log.Info(fmt.Sprintf("Emulator started: %s (pid %d)", cfg.Binary, cmd.Process.Pid))
			return cmd, nil
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, fmt.Errorf("no QMP socket at %s after %s\nOutput: %s", cfg.SocketFile, cfg.Timeout, stderr.String())
		}
		select {
		case <-ctx.Done():
			_ = cmd.Wait()
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
