package pipeline

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"sortable/internal/catalog"
)

// WriteReport emits every leaf as one JSON record, newline separated,
// in index traversal order. Leaves that received no listings are
// emitted with an empty collection.
func WriteReport(leaves []*catalog.Leaf, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for i, leaf := range leaves {
		if i > 0 {
			if err := w.WriteByte('\n'); err != nil {
				_ = f.Close()
				return err
			}
		}
		blob, err := json.Marshal(leaf)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.Write(blob); err != nil {
			_ = f.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
