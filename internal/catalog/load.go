package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sortable/internal"
)

// LoadFile reads a products file with one JSON record per line. The
// whole catalog is loaded up front; any undecodable line is a fatal
// malformed-catalog error.
func LoadFile(path string) ([]internal.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.Product{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var p internal.Product
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("products line %d: %w", lineNo, err)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
