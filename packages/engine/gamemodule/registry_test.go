package gamemodule

import (
	"errors"
	"testing"

	"engine/errs"
)

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register("foosball", NewHeadToHead(1))

	module, err := registry.Get("foosball")
	if err != nil {
		t.Fatalf("Get(foosball) returned error: %v", err)
	}
	if cfg := module.TeamConfig(); cfg.MinSize != 1 || cfg.MaxSize != 1 {
		t.Errorf("unexpected team config: %+v", cfg)
	}

	if _, err := registry.Get("chess"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Get(chess) = %v, want ErrNotRegistered", err)
	}
}

func TestRegistryIDs(t *testing.T) {
	registry := NewRegistry()
	registry.Register("rocketduel", NewHeadToHead(2))
	registry.Register("foosball", NewHeadToHead(1))

	ids := registry.IDs()
	if len(ids) != 2 || ids[0] != "foosball" || ids[1] != "rocketduel" {
		t.Errorf("IDs() = %v, want sorted [foosball rocketduel]", ids)
	}
}

func TestValidateSettings(t *testing.T) {
	module := NewHeadToHead(1)

	tests := []struct {
		name     string
		settings map[string]string
		wantErr  bool
	}{
		{"valid", map[string]string{"best_of": "3", "overtime": "false"}, false},
		{"empty", nil, false},
		{"unknown key", map[string]string{"stage_hazards": "on"}, true},
		{"bad enum", map[string]string{"best_of": "7"}, true},
		{"bad bool", map[string]string{"overtime": "yes"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(module, tt.settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettings(%v) error = %v, wantErr %v", tt.settings, err, tt.wantErr)
			}
			if err != nil && !errs.IsValidation(err) {
				t.Errorf("expected a validation error, got %T", err)
			}
		})
	}
}
