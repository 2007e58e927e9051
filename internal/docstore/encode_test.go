package docstore

import (
	"testing"
	"time"
)

func TestMatchesComparesByJSON(t *testing.T) {
	doc, err := Encode(map[string]any{
		"status": "pending",
		"total":  5000,
		"read":   false,
		"customerInfo": map[string]any{
			"email": "ada@example.com",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		where []Filter
		want  bool
	}{
		{"no filters", nil, true},
		{"string", []Filter{Where("status", "pending")}, true},
		{"string mismatch", []Filter{Where("status", "shipped")}, false},
		{"number", []Filter{Where("total", 5000)}, true},
		{"bool", []Filter{Where("read", false)}, true},
		{"nested", []Filter{Where("customerInfo.email", "ada@example.com")}, true},
		{"missing field", []Filter{Where("role", "admin")}, false},
		{"conjunction", []Filter{Where("status", "pending"), Where("read", true)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(doc, tt.where); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatTimeSortsLexically(t *testing.T) {
	a := FormatTime(time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC))
	b := FormatTime(time.Date(2024, 1, 1, 0, 0, 5, 500_000_000, time.UTC))
	if !(a < b) {
		t.Errorf("%s should sort before %s", a, b)
	}
	if len(a) != len(b) {
		t.Errorf("layout not fixed width: %q vs %q", a, b)
	}
}

func TestPrepareSetNormalizesProvidedCreatedAt(t *testing.T) {
	now := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	out, err := PrepareSet(nil, map[string]any{"createdAt": "2024-01-01T08:00:00+01:00"}, false, now)
	if err != nil {
		t.Fatal(err)
	}
	if out["createdAt"] != "2024-01-01T07:00:00.000000000Z" {
		t.Errorf("createdAt = %v", out["createdAt"])
	}
}
