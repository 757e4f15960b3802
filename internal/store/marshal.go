package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/nature/internal/model"
)

// envError wraps a driver failure as an ENVIRONMENT error.
func envError(op string, err error) error {
	return model.NewEnvironmentError(op, err)
}

// marshalJSON encodes v as compact JSON TEXT with HTML escaping disabled.
// Map keys come out sorted, so equal values always store identical text.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalStringMap converts a context map to JSON TEXT; nil becomes "{}".
func marshalStringMap(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	s, err := marshalJSON(m)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	return s, nil
}

// unmarshalStringMap parses JSON TEXT to a context map; "{}" yields nil.
func unmarshalStringMap(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return m, nil
}

func marshalStates(states []string) (string, error) {
	if len(states) == 0 {
		return "[]", nil
	}
	s, err := marshalJSON(states)
	if err != nil {
		return "", fmt.Errorf("marshal states: %w", err)
	}
	return s, nil
}

func unmarshalStates(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var states []string
	if err := json.Unmarshal([]byte(data), &states); err != nil {
		return nil, fmt.Errorf("unmarshal states: %w", err)
	}
	return states, nil
}

// marshalFrom encodes the upstream reference; nil becomes "".
func marshalFrom(from *model.FromInstance) (string, error) {
	if from == nil {
		return "", nil
	}
	s, err := marshalJSON(from)
	if err != nil {
		return "", fmt.Errorf("marshal from: %w", err)
	}
	return s, nil
}

func unmarshalFrom(data string) (*model.FromInstance, error) {
	if data == "" {
		return nil, nil
	}
	var from model.FromInstance
	if err := json.Unmarshal([]byte(data), &from); err != nil {
		return nil, fmt.Errorf("unmarshal from: %w", err)
	}
	return &from, nil
}

// toMillis and fromMillis store times as Unix milliseconds in UTC.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
