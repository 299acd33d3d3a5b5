package collect

import (
	"context"

	"github.com/digitalocean/go-qemu/qmp"
)

// EventMonitor streams asynchronous QMP events. *qmp.SocketMonitor
// satisfies it.
type EventMonitor interface {
	Events(context.Context) (<-chan qmp.Event, error)
}

// Events calls callback for every event until ctx is done or the stream
// closes.
func Events(ctx context.Context, monitor EventMonitor, callback func(qmp.Event)) {
	stream, err := monitor.Events(ctx)
	if err != nil {
		log.Debug("event stream unavailable", "error", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug("Returning from event loop...")
			return
		case e, ok := <-stream:
			if !ok {
				log.Debug("Event loop stream is closed. Exiting...")
				return
			}
			callback(e)
		}
	}
}

// CancelOnShutdown returns an event callback that calls cancel when the
// emulator reports SHUTDOWN, so a collection in progress stops early.
func CancelOnShutdown(cancel context.CancelFunc) func(qmp.Event) {
	return func(e qmp.Event) {
		switch e.Event {
		case "SHUTDOWN":
			log.Warn("emulator shut down during collection", "data", e.Data)
			cancel()
		default:
			log.Debug("event", "name", e.Event, "data", e.Data)
		}
	}
}
