// Package locale implements reading and writing of flat per-language JSON
// translation files:
//
//	locales/
//	    zh-CN.json   {"你好": "你好", "保存": "保存"}
//	    en-US.json   {"你好": "Hello", "保存": "Save"}
//
// Keys are the baseline-language text itself. Files are read as whole
// snapshots and written back as whole merged snapshots; key order is
// preserved across the round trip.
package locale

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"
)

// Table is an insertion-ordered key → text mapping for one language.
// The zero value is an empty table ready to use.
type Table struct {
	keys   []string
	values map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]string)}
}

// TableFrom builds a table from alternating key, value pairs.
func TableFrom(pairs ...string) *Table {
	t := NewTable()
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Set(pairs[i], pairs[i+1])
	}
	return t
}

// Get returns the value stored for key.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Has reports whether key is present, even with an empty value.
func (t *Table) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (t *Table) Set(key, value string) {
	if t.values == nil {
		t.values = make(map[string]string)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Delete removes key and reports whether it was present.
func (t *Table) Delete(key string) bool {
	if _, ok := t.values[key]; !ok {
		return false
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of keys.
func (t *Table) Len() int {
	return len(t.keys)
}

// Map returns a copy of the table as a plain map.
func (t *Table) Map() map[string]string {
	out := make(map[string]string, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable()
	for _, k := range t.keys {
		c.Set(k, t.values[k])
	}
	return c
}

// Merge returns original overlaid with updates: keys of original keep their
// order, values from updates win, and keys only present in updates are
// appended in the order given by updateKeys. Keys missing from updateKeys
// are appended in sorted order so the output stays deterministic.
func Merge(original *Table, updates map[string]string, updateKeys ...string) *Table {
	out := original.Clone()
	seen := make(map[string]bool, len(updateKeys))
	for _, k := range updateKeys {
		if v, ok := updates[k]; ok && !seen[k] {
			seen[k] = true
			out.Set(k, v)
		}
	}
	rest := make([]string, 0, len(updates))
	for k := range updates {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out.Set(k, updates[k])
	}
	return out
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

// Parse decodes a flat JSON object of strings, preserving key order.
// Non-string values are an error.
func Parse(data []byte) (*Table, error) {
	t := NewTable()
	if len(bytes.TrimSpace(data)) == 0 {
		return t, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected {, got %v", tok)
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}
		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := vt.(type) {
		case string:
			t.Set(key, v)
		case nil:
			t.Set(key, "")
		default:
			return nil, fmt.Errorf("expected string value for key %q, got %T", key, vt)
		}
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return t, nil
}

// Marshal encodes the table as 2-space indented JSON. With sorted set the
// keys are written in lexical order instead of insertion order.
func (t *Table) Marshal(sorted bool) ([]byte, error) {
	keys := t.Keys()
	if sorted {
		sort.Strings(keys)
	}
	if len(keys) == 0 {
		return []byte("{}\n"), nil
	}

	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		kb, err := gojson.MarshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		vb, err := gojson.MarshalNoEscape(t.values[k])
		if err != nil {
			return nil, err
		}
		b.WriteString("  ")
		b.Write(kb)
		b.WriteString(": ")
		b.Write(vb)
		if i < len(keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return []byte(b.String()), nil
}
