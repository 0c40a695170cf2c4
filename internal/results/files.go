package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON writes v to path with four-space indentation, creating the
// parent directory if needed.
func WriteJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadSamples reads a raw sample file. A leading UTF-8 byte order mark is
// ignored.
func ReadSamples(path string) ([]Sample, error) {
	var samples []Sample
	if err := readJSON(path, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func ReadMedians(path string) ([]MedianRecord, error) {
	var records []MedianRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
