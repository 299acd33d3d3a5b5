package collect

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/gjson"
)

var log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level:     slog.LevelInfo,
	AddSource: true,
}))

// SetLogger sets the global logger used throughout the collect package.
func SetLogger(logger *slog.Logger) {
	if logger != nil {
		log = logger
	}
}

// Monitor runs raw QMP commands. *qmp.SocketMonitor satisfies it.
type Monitor interface {
	Run(command []byte) ([]byte, error)
}

// RunQMPAndLog sends a raw QMP command to the monitor and logs the response.
// A reply carrying an "error" member is returned as an error.
func RunQMPAndLog(monitor Monitor, json string) ([]byte, error) {
	log.Debug(json)
	raw, err := monitor.Run([]byte(json))
	if err != nil {
		return raw, err
	}
	PrettyPrintJSON(string(raw))
	if e := gjson.GetBytes(raw, "error"); e.Exists() {
		return raw, fmt.Errorf("%s: %s", e.Get("class").String(), e.Get("desc").String())
	}
	return raw, nil
}

// PrettyPrintJSON formats and logs a JSON string for debugging purposes.
func PrettyPrintJSON(raw string) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if !gjson.Valid(raw) {
		// Invalid JSON, printing raw
		log.Debug(raw)
		return
	}
	log.Debug(gjson.Get(raw, "@pretty").Raw)
}
