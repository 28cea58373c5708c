package types

import (
	"encoding/json"
	"sort"
	"strings"
)

// RawRecord is one review as a source emitted it, keyed by source-specific names.
type RawRecord map[string]any

// Set sets a field value. Nil and blank-string values are skipped.
func (r RawRecord) Set(key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if strings.TrimSpace(v) == "" {
			return
		}
	case *float64:
		if v == nil {
			return
		}
		value = *v
	}
	r[key] = value
}

// Get retrieves a field value.
func (r RawRecord) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// GetString retrieves a field value as a string.
func (r RawRecord) GetString(key string) string {
	s, _ := r[key].(string)
	return s
}

// Has returns true if the field exists and is not nil.
func (r RawRecord) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Keys returns all field names in sorted order.
func (r RawRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone creates a shallow copy of the record.
func (r RawRecord) Clone() RawRecord {
	clone := make(RawRecord, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// ToFlatMap returns a flat map suitable for CSV export.
func (r RawRecord) ToFlatMap() map[string]string {
	flat := make(map[string]string, len(r))
	for k, v := range r {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case []byte:
			flat[k] = string(val)
		default:
			b, _ := json.Marshal(val)
			flat[k] = string(b)
		}
	}
	return flat
}
