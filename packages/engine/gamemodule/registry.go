package gamemodule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"engine/errs"
)

// ErrNotRegistered is returned by Get for an unknown game id.
var ErrNotRegistered = errors.New("game module not registered")

// Registry maps game ids to their GameModule. Modules are registered
// at process start; afterwards the registry is read-only, so lookups
// take only a read lock.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]GameModule
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]GameModule)}
}

// Register binds a module to a game id. Re-registering an id replaces
// the previous module; callers are expected to register each id once.
func (r *Registry) Register(gameID string, module GameModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[gameID] = module
}

// Get returns the module for a game id.
func (r *Registry) Get(gameID string) (GameModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	module, ok := r.modules[gameID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", gameID, ErrNotRegistered)
	}
	return module, nil
}

// IDs returns the registered game ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateSettings checks tournament game-settings against a module's
// schema: unknown keys are rejected, typed values must parse, enum
// values must be among the declared options.
func ValidateSettings(module GameModule, settings map[string]string) error {
	schema := module.SettingsSchema()
	defs := make(map[string]SettingDef, len(schema))
	for _, def := range schema {
		defs[def.Key] = def
	}

	for key, value := range settings {
		def, ok := defs[key]
		if !ok {
			return errs.Validationf("unknown game setting %q", key)
		}
		switch def.Type {
		case SettingInt:
			if _, err := strconv.Atoi(value); err != nil {
				return errs.Validationf("game setting %q must be an integer, got %q", key, value)
			}
		case SettingBool:
			if value != "true" && value != "false" {
				return errs.Validationf("game setting %q must be true or false, got %q", key, value)
			}
		case SettingEnum:
			found := false
			for _, opt := range def.Options {
				if value == opt {
					found = true
					break
				}
			}
			if !found {
				return errs.Validationf("game setting %q: %q is not one of %v", key, value, def.Options)
			}
		}
	}
	return nil
}
