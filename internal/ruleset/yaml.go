package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a YAML ruleset file.
// Unknown fields are rejected so typos like "statments:" fail loudly.
// source names the file in errors and is stored on each definition.
func LoadYAML(data []byte, source string) ([]*Definition, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty ruleset file", source)
		}
		return nil, fmt.Errorf("%s: failed to parse YAML: %w", source, err)
	}
	if len(file.Rulesets) == 0 {
		return nil, fmt.Errorf("%s: rulesets list is required and must be non-empty", source)
	}

	defs := make([]*Definition, len(file.Rulesets))
	for i := range file.Rulesets {
		def := &file.Rulesets[i]
		def.Source = source
		normalize(def)
		defs[i] = def
	}
	return defs, nil
}
