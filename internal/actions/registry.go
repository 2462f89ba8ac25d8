// Package actions holds the post-purchase side effects a product can be
// configured with. The registry is built once at startup and never mutated.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrUnknownAction       = errors.New("unknown action")
	ErrInvalidActionParams = errors.New("invalid action params")
)

// Handler runs a product action for a completed payment.
type Handler func(ctx context.Context, metadata map[string]any, product *models.Product, params map[string]any) error

// Param describes one input the admin UI renders for an action.
type Param struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

// Entry is accepted by NewRegistry. Both HandlerFunc and Definition
// implement it.
type Entry interface {
	definition(key string) Definition
}

// HandlerFunc is the shorthand registration: label defaults to the key and
// the action takes no params.
type HandlerFunc Handler

func (f HandlerFunc) definition(key string) Definition {
	return Definition{Key: key, Label: key, Params: []Param{}, Handler: Handler(f)}
}

type Definition struct {
	Key     string
	Label   string
	Params  []Param
	Handler Handler
}

func (d Definition) definition(key string) Definition {
	d.Key = key
	if d.Label == "" {
		d.Label = key
	}
	if d.Params == nil {
		d.Params = []Param{}
	}
	return d
}

type Summary struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Params []Param `json:"params"`
}

type Registry struct {
	defs    map[string]Definition
	schemas map[string]*jsonschema.Schema
	keys    []string
}

func NewRegistry(entries map[string]Entry) (*Registry, error) {
	r := &Registry{
		defs:    make(map[string]Definition, len(entries)),
		schemas: make(map[string]*jsonschema.Schema, len(entries)),
		keys:    make([]string, 0, len(entries)),
	}

	for key, entry := range entries {
		if key == "" {
			return nil, fmt.Errorf("action key must not be empty")
		}
		if entry == nil {
			return nil, fmt.Errorf("action %q: nil entry", key)
		}
		def := entry.definition(key)
		if def.Handler == nil {
			return nil, fmt.Errorf("action %q: missing handler", key)
		}

		schema, err := compileParamSchema(key, def.Params)
		if err != nil {
			return nil, err
		}

		r.defs[key] = def
		r.schemas[key] = schema
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)

	return r, nil
}

// Resolve looks up an action by key. The boolean is false for unknown keys.
func (r *Registry) Resolve(key string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.defs[key]
	return def, ok
}

func (r *Registry) List() []Summary {
	if r == nil {
		return []Summary{}
	}
	out := make([]Summary, 0, len(r.keys))
	for _, key := range r.keys {
		def := r.defs[key]
		params := make([]Param, len(def.Params))
		copy(params, def.Params)
		out = append(out, Summary{Key: key, Label: def.Label, Params: params})
	}
	return out
}

// Validate checks params against the parameter schema declared by the
// action. A nil params map is accepted.
func (r *Registry) Validate(key string, params map[string]any) error {
	if _, ok := r.Resolve(key); !ok {
		return fmt.Errorf("%w '%s'", ErrUnknownAction, key)
	}
	if params == nil {
		return nil
	}
	if err := r.schemas[key].Validate(params); err != nil {
		return fmt.Errorf("%w for '%s': %v", ErrInvalidActionParams, key, err)
	}
	return nil
}
