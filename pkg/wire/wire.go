// Package wire implements the Serializer: bidirectional encoding of engine
// values (elements, players, primitives) into a reference-bearing JSON form
// suitable for the wire, and back again against a live game instance.
package wire

import (
	"fmt"
)

// ErrDanglingRef is returned when deserializing a reference that the game
// cannot resolve (unknown element id, unknown branch path, out-of-range seat).
var ErrDanglingRef = fmt.Errorf("wire: dangling reference")

const (
	keyElementID  = "__elementId"
	keyElementRef = "__elementRef"
	keyPlayerRef  = "__playerRef"
)

// Resolver is the minimal surface a game engine must expose so the
// serializer can turn live objects into wire references and back. It is
// intentionally small: the serializer never interprets game semantics, only
// identity.
type Resolver interface {
	// ElementIDOf returns the stable id of an engine element, if v is one.
	ElementIDOf(v interface{}) (id int, ok bool)
	// ElementRefOf returns the branch-path reference of an engine element.
	ElementRefOf(v interface{}) (ref string, ok bool)
	// ElementByID resolves a stable id back to a live element.
	ElementByID(id int) (element interface{}, ok bool)
	// ElementByRef resolves a branch path back to a live element.
	ElementByRef(ref string) (element interface{}, ok bool)
	// SeatOf returns the 1-indexed seat of v, if v is a player/seat reference.
	SeatOf(v interface{}) (seat int, ok bool)
	// PlayerBySeat resolves a seat number back to a live player reference.
	PlayerBySeat(seat int) (player interface{}, ok bool)
}

// Options customizes serialization behavior.
type Options struct {
	// UseBranchPaths serializes elements as {__elementRef: path} instead of
	// the default {__elementId: n}.
	UseBranchPaths bool
}

// SerializeValue converts an engine value into its JSON-ready wire form.
func SerializeValue(v interface{}, game Resolver, opts Options) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	if seat, ok := game.SeatOf(v); ok {
		return map[string]interface{}{keyPlayerRef: seat}, nil
	}

	if opts.UseBranchPaths {
		if ref, ok := game.ElementRefOf(v); ok {
			return map[string]interface{}{keyElementRef: ref}, nil
		}
	} else if id, ok := game.ElementIDOf(v); ok {
		return map[string]interface{}{keyElementID: id}, nil
	}

	switch val := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			sv, err := SerializeValue(item, game, opts)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			sv, err := SerializeValue(item, game, opts)
			if err != nil {
				return nil, err
			}
			out[k] = sv
		}
		return out, nil
	default:
		// Primitives (string, number, bool) pass through unchanged.
		return val, nil
	}
}

// IsSerializedReference reports whether j is a reserved-discriminator
// reference object rather than a plain value.
func IsSerializedReference(j interface{}) bool {
	m, ok := j.(map[string]interface{})
	if !ok {
		return false
	}
	_, hasID := m[keyElementID]
	_, hasRef := m[keyElementRef]
	_, hasPlayer := m[keyPlayerRef]
	return hasID || hasRef || hasPlayer
}

// DeserializeValue resolves a wire-form JSON value back into an engine value
// against the live game. An unresolved reference returns ErrDanglingRef.
func DeserializeValue(j interface{}, game Resolver) (interface{}, error) {
	if j == nil {
		return nil, nil
	}

	if m, ok := j.(map[string]interface{}); ok && IsSerializedReference(m) {
		if raw, present := m[keyElementID]; present {
			id, ok := asInt(raw)
			if !ok {
				return nil, fmt.Errorf("%w: __elementId is not an integer", ErrDanglingRef)
			}
			el, ok := game.ElementByID(id)
			if !ok {
				return nil, fmt.Errorf("%w: element id %d", ErrDanglingRef, id)
			}
			return el, nil
		}
		if raw, present := m[keyElementRef]; present {
			path, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: __elementRef is not a string", ErrDanglingRef)
			}
			el, ok := game.ElementByRef(path)
			if !ok {
				return nil, fmt.Errorf("%w: element ref %q", ErrDanglingRef, path)
			}
			return el, nil
		}
		if raw, present := m[keyPlayerRef]; present {
			seat, ok := asInt(raw)
			if !ok {
				return nil, fmt.Errorf("%w: __playerRef is not an integer", ErrDanglingRef)
			}
			player, ok := game.PlayerBySeat(seat)
			if !ok {
				return nil, fmt.Errorf("%w: player seat %d", ErrDanglingRef, seat)
			}
			return player, nil
		}
	}

	switch val := j.(type) {
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			dv, err := DeserializeValue(item, game)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			dv, err := DeserializeValue(item, game)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	default:
		return val, nil
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// SerializedAction is the wire form of one committed or attempted action.
type SerializedAction struct {
	Name      string                 `json:"name"`
	Player    int                    `json:"player"`
	Args      map[string]interface{} `json:"args"`
	Timestamp int64                  `json:"timestamp"`
}

// SerializeAction encodes an in-process action invocation for the log/wire.
func SerializeAction(name string, player int, args map[string]interface{}, game Resolver, timestamp int64) (SerializedAction, error) {
	encoded := make(map[string]interface{}, len(args))
	for k, v := range args {
		sv, err := SerializeValue(v, game, Options{})
		if err != nil {
			return SerializedAction{}, err
		}
		encoded[k] = sv
	}
	return SerializedAction{Name: name, Player: player, Args: encoded, Timestamp: timestamp}, nil
}

// DeserializeAction resolves a SerializedAction's args back into live engine
// values against game, returning the action name, acting seat, and resolved
// argument map ready to hand to performAction.
func DeserializeAction(sa SerializedAction, game Resolver) (name string, player int, args map[string]interface{}, err error) {
	resolved := make(map[string]interface{}, len(sa.Args))
	for k, v := range sa.Args {
		dv, derr := DeserializeValue(v, game)
		if derr != nil {
			return "", 0, nil, derr
		}
		resolved[k] = dv
	}
	return sa.Name, sa.Player, resolved, nil
}
