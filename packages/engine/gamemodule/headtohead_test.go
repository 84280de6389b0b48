package gamemodule

import (
	"encoding/json"
	"testing"

	"engine/errs"
)

func TestHeadToHeadParseResult(t *testing.T) {
	module := NewHeadToHead(1)

	tests := []struct {
		name       string
		payload    string
		wantErr    bool
		wantWinner int
		wantScore  string
	}{
		{"home wins", `{"home_score": 10, "away_score": 4}`, false, 0, "10-4"},
		{"away wins", `{"home_score": 1, "away_score": 2}`, false, 1, "1-2"},
		{"draw rejected", `{"home_score": 3, "away_score": 3}`, true, 0, ""},
		{"missing away", `{"home_score": 3}`, true, 0, ""},
		{"negative score", `{"home_score": -1, "away_score": 2}`, true, 0, ""},
		{"not json", `scores: 10-4`, true, 0, ""},
		{"empty object", `{}`, true, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := module.ParseResult(json.RawMessage(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseResult(%s) succeeded, want validation error", tt.payload)
				}
				if !errs.IsValidation(err) {
					t.Errorf("ParseResult(%s) error type %T, want ValidationError", tt.payload, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResult(%s) returned error: %v", tt.payload, err)
			}
			if result.WinnerSlot != tt.wantWinner {
				t.Errorf("winner slot = %d, want %d", result.WinnerSlot, tt.wantWinner)
			}
			if result.Score != tt.wantScore {
				t.Errorf("score = %q, want %q", result.Score, tt.wantScore)
			}
		})
	}
}
