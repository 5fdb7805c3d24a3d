// File: protocol/header.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ordered header collection with case-insensitive lookup. HTTP permits
// duplicate field names and some semantics depend on field order, so the
// collection is a slice of fields, never a unique-key map.

package protocol

import (
	"bufio"
	"strings"
)

type headerField struct {
	name  string // original spelling, preserved for serialization
	value string
}

// Header is an ordered, duplicate-tolerant collection of HTTP header fields.
// Lookups fold ASCII case; serialization preserves insertion order and the
// original field-name spelling. The zero value is ready to use.
type Header struct {
	fields []headerField
}

// Add appends a field, keeping any existing fields with the same name.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Set replaces every field named name with a single field.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every field named name.
func (h *Header) Del(name string) {
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, name) {
			out = append(out, f)
		}
	}
	h.fields = out
}

// Get returns the first value of name, or "" if absent.
func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value
		}
	}
	return ""
}

// Values returns all values of name in insertion order.
func (h *Header) Values(name string) []string {
	var vals []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			vals = append(vals, f.value)
		}
	}
	return vals
}

// Has reports whether at least one field named name is present.
func (h *Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return true
		}
	}
	return false
}

// Len returns the number of fields.
func (h *Header) Len() int {
	return len(h.fields)
}

// Range calls fn for each field in insertion order until fn returns false.
func (h *Header) Range(fn func(name, value string) bool) {
	for _, f := range h.fields {
		if !fn(f.name, f.value) {
			return
		}
	}
}

// HasToken reports whether any field named name contains token as one of its
// comma-separated elements, folding case. Used for Connection and
// Transfer-Encoding option scanning.
func (h *Header) HasToken(name, token string) bool {
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, name) {
			continue
		}
		for _, part := range strings.Split(f.value, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// writeTo serializes all fields as "Name: value\r\n" lines in order.
func (h *Header) writeTo(bufw *bufio.Writer) error {
	for _, f := range h.fields {
		if _, err := bufw.WriteString(f.name); err != nil {
			return err
		}
		if _, err := bufw.WriteString(": "); err != nil {
			return err
		}
		if _, err := bufw.WriteString(f.value); err != nil {
			return err
		}
		if _, err := bufw.WriteString("\r\n"); err != nil {
			return err
		}
	}
	return nil
}
