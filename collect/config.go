package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration of a collection run.
type Config struct {
	Binary     string        `env:"COMPATCHECK_QEMU"`
	SocketFile string        `env:"COMPATCHECK_QMP_SOCKET"`
	Timeout    time.Duration `env:"COMPATCHECK_QMP_TIMEOUT" envDefault:"2s"`
	// Machines to dump; empty means every machine type.
	Machines []string
	// Extra device types to dump besides those the compat properties touch.
	Devices []string
}

// GenerateSocketPath picks a socket path in a fresh temporary directory
// when none is configured.
func GenerateSocketPath(cfg *Config) error {
	if cfg.SocketFile != "" {
		return nil
	}
	dir, err := os.MkdirTemp("", "compatcheck-")
	if err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	cfg.SocketFile = filepath.Join(dir, "qmp.sock")
	return nil
}
