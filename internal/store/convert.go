package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ID returns the document id, or "" if absent.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// String returns the string at key, or "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int64 converts the numeric value at key. JSON-decoded documents carry
// json.Number, Mongo carries int32/int64.
func (d Document) Int64(key string) (int64, bool) {
	return AsInt64(d[key])
}

// Time converts the timestamp at key. Backends that round-trip through JSON
// return RFC 3339 strings.
func (d Document) Time(key string) (time.Time, bool) {
	return AsTime(d[key])
}

func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.UTC(), true
	default:
		return time.Time{}, false
	}
}

// AsInts converts a list of numbers, as stored for days_before offsets.
func AsInts(v any) ([]int, bool) {
	switch list := v.(type) {
	case []int:
		return append([]int(nil), list...), true
	case []any:
		out := make([]int, 0, len(list))
		for _, item := range list {
			n, ok := AsInt64(item)
			if !ok {
				return nil, false
			}
			out = append(out, int(n))
		}
		return out, true
	default:
		return nil, false
	}
}

// Normalize round-trips d through JSON so every backend hands the services
// the same value shapes (json.Number numbers, RFC 3339 strings, []any lists).
func Normalize(d Document) (Document, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return DecodeDocument(b)
}

// DecodeDocument parses a JSON object keeping numbers as json.Number, so
// integers keep full int64 precision.
func DecodeDocument(b []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	out := Document{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}
