package fsapi

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	fileMode = 0o644
	dirMode  = 0o755

	indentStep = "  "
)

// readJSONFile loads a file and decodes it, preserving number fidelity.
func readJSONFile(diskPath string) (any, []byte, error) {
	raw, err := os.ReadFile(diskPath)
	if err != nil {
		return nil, nil, err
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, raw, err
	}
	return doc, raw, nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// writeJSONBytes re-indents raw JSON with two spaces and writes it. Indenting
// the client's own bytes keeps the original key order intact.
func writeJSONBytes(diskPath string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", indentStep); err != nil {
		return err
	}
	return writeFile(diskPath, buf.Bytes())
}

// writeJSONValue marshals a decoded document with two-space indentation.
func writeJSONValue(diskPath string, doc any) error {
	data, err := json.MarshalIndent(doc, "", indentStep)
	if err != nil {
		return err
	}
	return writeFile(diskPath, data)
}

func writeFile(diskPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(diskPath), dirMode); err != nil {
		return err
	}
	return os.WriteFile(diskPath, data, fileMode)
}

// elementTotal reports the resource's element count: length for arrays,
// zero for null, one for everything else.
func elementTotal(doc any) int {
	switch v := doc.(type) {
	case nil:
		return 0
	case []any:
		return len(v)
	default:
		return 1
	}
}
