package n5

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/robert-malhotra/go-bdv/container"
)

// datasetAttributes is the fixed attribute set every N5 dataset carries.
// Axis-ordered fields are x-fastest on disk.
type datasetAttributes struct {
	Dimensions  [3]int64        `json:"dimensions"`
	BlockSize   [3]int64        `json:"blockSize"`
	DataType    string          `json:"dataType"`
	Compression compressionAttr `json:"compression"`
}

type compressionAttr struct {
	Type  string `json:"type"`
	Level int    `json:"level,omitempty"`
}

func (da datasetAttributes) asMap() map[string]any {
	return map[string]any{
		"dimensions":  da.Dimensions,
		"blockSize":   da.BlockSize,
		"dataType":    da.DataType,
		"compression": da.Compression,
	}
}

func loadDatasetAttributes(path string) (*datasetAttributes, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, container.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var da datasetAttributes
	if err := json.Unmarshal(raw, &da); err != nil {
		return nil, fmt.Errorf("n5: parse %s: %w", path, err)
	}
	if da.DataType == "" {
		// A group attributes.json, not a dataset.
		return nil, container.ErrNotFound
	}
	return &da, nil
}

// readAttributes loads an attributes.json as raw messages, keeping unknown
// keys intact across a read-modify-write. A missing file is an empty map.
func readAttributes(path string) (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	attrs := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("n5: parse %s: %w", path, err)
	}
	return attrs, nil
}

// setAttributes merges the given keys into an attributes.json. Map keys
// serialise in sorted order, so rewriting equal values is byte-stable.
func setAttributes(path string, set map[string]any) error {
	attrs, err := readAttributes(path)
	if err != nil {
		return err
	}
	for k, v := range set {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("n5: encode attribute %s: %w", k, err)
		}
		attrs[k] = raw
	}
	out, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}

// attribute decodes one attribute into out; container.ErrNotFound when the
// key or the file is absent.
func attribute(path, key string, out any) error {
	attrs, err := readAttributes(path)
	if err != nil {
		return err
	}
	raw, ok := attrs[key]
	if !ok {
		return container.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}
