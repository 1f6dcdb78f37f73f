package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

// readInput reads path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readConditions decodes a rule tree from a JSON or YAML file.
func readConditions(path string) (types.Conditions, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		return types.DecodeConditionsYAML(data)
	}
	return types.DecodeConditionsJSON(data)
}

// readSnippet returns the inline snippet or the contents of file.
func readSnippet(inline, file string) (string, error) {
	switch {
	case inline != "" && file != "":
		return "", fmt.Errorf("use either --snippet or --snippet-file, not both")
	case inline != "":
		return inline, nil
	case file != "":
		data, err := readInput(file)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("--snippet or --snippet-file required")
	}
}

// readRecord decodes one record from inline JSON or a JSON/YAML file.
func readRecord(inline, file string) (types.Record, error) {
	var data []byte
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("use either --record or --record-file, not both")
	case inline != "":
		data = []byte(inline)
	case file != "":
		var err error
		if data, err = readInput(file); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("--record or --record-file required")
	}

	var record types.Record
	if isYAML(file) {
		if err := yaml.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		return record, nil
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

// readRecords decodes a list of sample records. A single JSON object is
// accepted as a one-sample batch.
func readRecords(path string) ([]types.Record, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to decode samples: %w", err)
		}
		return records, nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one types.Record
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("failed to decode sample: %w", err)
		}
		return []types.Record{one}, nil
	}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	return records, nil
}

// importDoc is one rule in a `rules import` file.
type importDoc struct {
	Name       string           `json:"name" yaml:"name"`
	Kind       types.RuleKind   `json:"kind" yaml:"kind"`
	Conditions types.Conditions `json:"conditions" yaml:"conditions"`
	Snippet    string           `json:"snippet" yaml:"snippet"`
}

// readImportDocs decodes the rules of an import file.
func readImportDocs(path string) ([]importDoc, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var docs []importDoc
	if isYAML(path) {
		err = yaml.Unmarshal(data, &docs)
	} else {
		err = json.Unmarshal(data, &docs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	return docs, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
