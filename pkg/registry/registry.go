// Package registry maps a game-type identifier to its factory and metadata.
package registry

import (
	"fmt"
	"sync"

	"boardhost/pkg/engine"
)

// ErrAlreadyRegistered is returned by Register when gameType is already taken.
var ErrAlreadyRegistered = fmt.Errorf("registry: game type already registered")

// ErrUnknownGameType is returned by Get/MustGet when gameType has no definition.
var ErrUnknownGameType = fmt.Errorf("registry: unknown game type")

// OptionKind enumerates the supported game-option value kinds.
type OptionKind string

const (
	OptionKindNumber  OptionKind = "number"
	OptionKindSelect  OptionKind = "select"
	OptionKindBoolean OptionKind = "boolean"
)

// OptionDef describes one entry in a game type's configurable option schema.
type OptionDef struct {
	Kind    OptionKind    `json:"kind"`
	Default interface{}   `json:"default"`
	Min     *float64      `json:"min,omitempty"`
	Max     *float64      `json:"max,omitempty"`
	Choices []interface{} `json:"choices,omitempty"`
}

// Validate checks that value is an acceptable setting for this option.
func (d OptionDef) Validate(value interface{}) error {
	switch d.Kind {
	case OptionKindNumber:
		n, ok := toFloat64(value)
		if !ok {
			return fmt.Errorf("registry: expected numeric value, got %T", value)
		}
		if d.Min != nil && n < *d.Min {
			return fmt.Errorf("registry: value %v below minimum %v", n, *d.Min)
		}
		if d.Max != nil && n > *d.Max {
			return fmt.Errorf("registry: value %v above maximum %v", n, *d.Max)
		}
	case OptionKindBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("registry: expected boolean value, got %T", value)
		}
	case OptionKindSelect:
		for _, choice := range d.Choices {
			if choice == value {
				return nil
			}
		}
		return fmt.Errorf("registry: value %v not among allowed choices", value)
	default:
		return fmt.Errorf("registry: unknown option kind %q", d.Kind)
	}
	return nil
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Definition is a registered game type.
type Definition struct {
	GameType    string
	Factory     engine.Factory
	MinPlayers  int
	MaxPlayers  int
	GameOptions map[string]OptionDef
}

// Registry is a concurrency-safe gameType -> Definition lookup table.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Register adds definition to the registry. It fails with ErrAlreadyRegistered
// if the game type is already present, and validates basic structural
// invariants (player bounds, option kinds) before accepting it.
func (r *Registry) Register(def Definition) error {
	if def.GameType == "" {
		return fmt.Errorf("registry: game type must not be empty")
	}
	if def.MinPlayers < 1 || def.MaxPlayers < def.MinPlayers {
		return fmt.Errorf("registry: invalid player bounds [%d,%d]", def.MinPlayers, def.MaxPlayers)
	}
	for name, opt := range def.GameOptions {
		switch opt.Kind {
		case OptionKindNumber, OptionKindSelect, OptionKindBoolean:
		default:
			return fmt.Errorf("registry: option %q has unsupported kind %q", name, opt.Kind)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.GameType]; exists {
		return ErrAlreadyRegistered
	}
	r.definitions[def.GameType] = def
	return nil
}

// Get returns the definition for gameType, or ok=false if none is registered.
func (r *Registry) Get(gameType string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[gameType]
	return def, ok
}

// MustGet returns the definition for gameType or ErrUnknownGameType.
func (r *Registry) MustGet(gameType string) (Definition, error) {
	def, ok := r.Get(gameType)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownGameType, gameType)
	}
	return def, nil
}

// List returns every registered definition, sorted by game type for stable
// output across calls.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.definitions))
	for _, def := range r.definitions {
		out = append(out, def)
	}
	sortDefinitions(out)
	return out
}

func sortDefinitions(defs []Definition) {
	for i := 1; i < len(defs); i++ {
		for j := i; j > 0 && defs[j].GameType < defs[j-1].GameType; j-- {
			defs[j], defs[j-1] = defs[j-1], defs[j]
		}
	}
}
