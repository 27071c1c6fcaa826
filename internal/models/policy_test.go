package models

import (
	"encoding/json"
	"testing"
)

func TestScore_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Score
	}{
		{"integer", `4`, 4},
		{"float rounds", `3.6`, 4},
		{"numeric string", `"2"`, 2},
		{"above range", `9`, 5},
		{"below range", `-3`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Score
			if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
			}
			if s != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, s, tt.want)
			}
		})
	}
}

func TestScore_UnmarshalJSON_Invalid(t *testing.T) {
	var s Score
	if err := json.Unmarshal([]byte(`"high"`), &s); err == nil {
		t.Error("Expected error for non-numeric score")
	}
}

func TestClarifyingQuestion_AnswerText(t *testing.T) {
	tests := []struct {
		name   string
		answer interface{}
		want   string
	}{
		{"nil", nil, ""},
		{"text", "  全市范围 ", "全市范围"},
		{"bool true", true, "是"},
		{"bool false", false, "否"},
		{"multi", []interface{}{"企业", "市民"}, "企业、市民"},
		{"number", float64(2024), "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ClarifyingQuestion{Title: "q", Answer: tt.answer}
			if got := q.AnswerText(); got != tt.want {
				t.Errorf("AnswerText() = %q, want %q", got, tt.want)
			}
		})
	}
}
