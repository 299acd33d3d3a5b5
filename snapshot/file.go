package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// Load reads a snapshot file. xz-compressed files are detected by their
// magic bytes.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, xzMagic) {
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xz %s: %w", path, err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}
	log.Debug("loaded snapshot", "path", path, "bytes", len(data))
	return Parse(path, data)
}

// Save writes records to path, xz-compressed when path ends in ".xz".
func Save(path string, records []Record) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if strings.HasSuffix(path, ".xz") {
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	return os.WriteFile(path, data, 0o644)
}
