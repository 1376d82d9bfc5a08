package handlers

import (
	"encoding/json"
	"testing"
)

func TestSanitizeNonFinite(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "nan value",
			input:    `{"price": NaN}`,
			expected: `{"price": null}`,
		},
		{
			name:     "positive infinity",
			input:    `{"price": Infinity}`,
			expected: `{"price": null}`,
		},
		{
			name:     "negative infinity",
			input:    `{"price": -Infinity}`,
			expected: `{"price": null}`,
		},
		{
			name:     "mixed array",
			input:    `[{"a": NaN, "b": 1.5}, {"a": -Infinity, "b": Infinity}]`,
			expected: `[{"a": null, "b": 1.5}, {"a": null, "b": null}]`,
		},
		{
			name:     "token inside string untouched",
			input:    `{"note": "NaN means not a number", "v": NaN}`,
			expected: `{"note": "NaN means not a number", "v": null}`,
		},
		{
			name:     "infinity inside string untouched",
			input:    `{"note": "-Infinity and Infinity", "v": 2}`,
			expected: `{"note": "-Infinity and Infinity", "v": 2}`,
		},
		{
			name:     "escaped quote does not end string",
			input:    `{"note": "quote \" then NaN", "v": NaN}`,
			expected: `{"note": "quote \" then NaN", "v": null}`,
		},
		{
			name:     "clean document unchanged",
			input:    `[{"ticker":"SAFCOM","price":15.2,"change":"+1.4%"}]`,
			expected: `[{"ticker":"SAFCOM","price":15.2,"change":"+1.4%"}]`,
		},
		{
			name:     "negative number unchanged",
			input:    `{"change": -3.25}`,
			expected: `{"change": -3.25}`,
		},
		{
			name:     "empty input",
			input:    ``,
			expected: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(SanitizeNonFinite([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("SanitizeNonFinite(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeNonFinite_ProducesValidJSON(t *testing.T) {
	input := []byte(`[{"ticker":"ZCCM","price":NaN,"high":Infinity,"low":-Infinity}]`)

	sanitized := SanitizeNonFinite(input)

	var records []map[string]interface{}
	if err := json.Unmarshal(sanitized, &records); err != nil {
		t.Fatalf("Sanitized output is not valid JSON: %v", err)
	}
	record := records[0]
	for _, key := range []string{"price", "high", "low"} {
		if record[key] != nil {
			t.Errorf("Expected %s to be null, got %v", key, record[key])
		}
	}
	if record["ticker"] != "ZCCM" {
		t.Errorf("Expected ticker 'ZCCM', got %v", record["ticker"])
	}
}
