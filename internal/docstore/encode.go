package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is fixed width so stored timestamps sort lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const serverTimestampToken = "__docstore_server_timestamp__"

type serverTimestamp struct{}

func (serverTimestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + serverTimestampToken + `"`), nil
}

// ServerTimestamp, used as a value in Fields, is replaced by the store clock at write time.
var ServerTimestamp = serverTimestamp{}

// FormatTime renders t the way stores persist timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Encode turns a struct, map or Fields value into a document body map.
// The "id" key is dropped since IDs live outside the body.
func Encode(data any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	m, err := decodeMap(raw)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	delete(m, "id")
	return m, nil
}

// Marshal serializes a document body.
func Marshal(m map[string]any) (json.RawMessage, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return raw, nil
}

// PrepareCreate stamps createdAt and updatedAt on a new document.
func PrepareCreate(data any, now time.Time) (map[string]any, error) {
	m, err := Encode(data)
	if err != nil {
		return nil, err
	}
	resolveSentinels(m, now)
	ts := FormatTime(now)
	m["createdAt"] = ts
	m["updatedAt"] = ts
	return m, nil
}

// PrepareSet computes the body written by Set given the current body (nil when absent).
func PrepareSet(existing map[string]any, data any, merge bool, now time.Time) (map[string]any, error) {
	m, err := Encode(data)
	if err != nil {
		return nil, err
	}
	resolveSentinels(m, now)
	normalizeTime(m, "createdAt")

	var out map[string]any
	if merge && existing != nil {
		out = make(map[string]any, len(existing)+len(m))
		for k, v := range existing {
			out[k] = v
		}
		for k, v := range m {
			setPath(out, k, v)
		}
	} else {
		out = m
	}
	if existing != nil {
		if created, ok := existing["createdAt"]; ok {
			out["createdAt"] = created
		}
	}
	if _, ok := out["createdAt"]; !ok {
		out["createdAt"] = FormatTime(now)
	}
	out["updatedAt"] = FormatTime(now)
	return out, nil
}

// ApplyUpdate patches doc in place with fields and stamps updatedAt.
func ApplyUpdate(doc map[string]any, fields Fields, now time.Time) error {
	for k, v := range fields {
		if k == "id" {
			continue
		}
		enc, err := normalizeValue(v)
		if err != nil {
			return fmt.Errorf("update field %s: %w", k, err)
		}
		if enc == serverTimestampToken {
			enc = FormatTime(now)
		}
		setPath(doc, k, enc)
	}
	doc["updatedAt"] = FormatTime(now)
	return nil
}

// Matches reports whether the document body satisfies every filter.
// Values are compared by their JSON encoding.
func Matches(doc map[string]any, where []Filter) bool {
	for _, f := range where {
		got, ok := lookup(doc, f.Field)
		if !ok {
			return false
		}
		a, err1 := json.Marshal(got)
		b, err2 := json.Marshal(f.Value)
		if err1 != nil || err2 != nil || string(a) != string(b) {
			return false
		}
	}
	return true
}

func lookup(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func resolveSentinels(m map[string]any, now time.Time) {
	for k, v := range m {
		if v == serverTimestampToken {
			m[k] = FormatTime(now)
		}
	}
}

func normalizeTime(m map[string]any, key string) {
	s, ok := m[key].(string)
	if !ok {
		return
	}
	t, err := ParseTime(s)
	switch {
	case err != nil:
	case t.IsZero():
		delete(m, key)
	default:
		m[key] = FormatTime(t)
	}
}

// normalizeValue round-trips v through JSON so stored values never alias caller memory.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, json.Number:
		return t, nil
	case time.Time:
		return FormatTime(t), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return FormatTime(*t), nil
	}
	raw, err := json.Marshal(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	m, err := decodeMap(raw)
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}
