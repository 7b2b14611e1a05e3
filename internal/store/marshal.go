package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalValue converts a statement result to JSON TEXT for storage.
// HTML escaping is disabled. Values encoding/json cannot represent
// (funcs, channels, cyclic data) are stored as their %v string.
func marshalValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.Reset()
		_ = enc.Encode(fmt.Sprintf("%v", v))
	}
	return strings.TrimSpace(buf.String())
}

// unmarshalValue parses stored JSON TEXT. Numbers decode as json.Number so
// large integers survive.
func unmarshalValue(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func marshalGuards(guards []string) (string, error) {
	if guards == nil {
		guards = []string{}
	}
	data, err := json.Marshal(guards)
	if err != nil {
		return "", fmt.Errorf("marshal guards: %w", err)
	}
	return string(data), nil
}

func unmarshalGuards(data string) ([]string, error) {
	guards := []string{}
	if data == "" {
		return guards, nil
	}
	if err := json.Unmarshal([]byte(data), &guards); err != nil {
		return nil, fmt.Errorf("unmarshal guards: %w", err)
	}
	return guards, nil
}
