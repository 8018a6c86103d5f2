package autodev

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Field is one scalar top-level attribute of a decode response.
type Field struct {
	Key   string
	Value string
}

// Result is a successful decode. Payload holds the response body verbatim;
// Fields holds its scalar top-level attributes in response order.
type Result struct {
	VIN       string
	Payload   json.RawMessage
	Fields    []Field
	FetchedAt time.Time
}

// ParseResult builds a Result from a decode response body.
func ParseResult(vin string, body []byte, now time.Time) (*Result, error) {
	fields, err := scalarFields(body)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	payload := make(json.RawMessage, len(body))
	copy(payload, body)
	return &Result{
		VIN:       vin,
		Payload:   payload,
		Fields:    fields,
		FetchedAt: now,
	}, nil
}

// Lookup returns the summary value stored under key.
func (r *Result) Lookup(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Summary returns the scalar fields keyed by name.
func (r *Result) Summary() map[string]string {
	out := make(map[string]string)
	if r == nil {
		return out
	}
	for _, f := range r.Fields {
		out[f.Key] = f.Value
	}
	return out
}

// Pretty returns the payload indented with two spaces.
func (r *Result) Pretty() string {
	if r == nil || len(r.Payload) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Payload, "", "  "); err != nil {
		return string(r.Payload)
	}
	return buf.String()
}

func scalarFields(body []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("response is not a JSON object")
	}

	type entry struct {
		value string
		keep  bool
	}
	var (
		order   []string
		entries = make(map[string]entry)
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("read value for %q: %w", key, err)
		}
		value, keep, err := scalarValue(raw)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		// Repeated keys: last value wins, first position kept.
		if _, seen := entries[key]; !seen {
			order = append(order, key)
		}
		entries[key] = entry{value: value, keep: keep}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after response object")
	}

	fields := make([]Field, 0, len(order))
	for _, key := range order {
		if e := entries[key]; e.keep {
			fields = append(fields, Field{Key: key, Value: e.value})
		}
	}
	return fields, nil
}

// scalarValue reports whether raw is a summary-worthy scalar. Null, empty
// strings, objects and arrays are left to the raw payload.
func scalarValue(raw json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false, nil
	}
	switch trimmed[0] {
	case '{', '[', 'n':
		return "", false, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		if strings.TrimSpace(s) == "" {
			return "", false, nil
		}
		return s, true, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", false, err
		}
		if b {
			return "true", true, nil
		}
		return "false", true, nil
	default:
		return string(trimmed), true, nil
	}
}
