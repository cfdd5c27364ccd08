package enode

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/birdayz/edgepipe/etag"
)

var (
	ErrUnknownNodeType   = errors.New("unknown node type")
	ErrDuplicateNodeType = errors.New("node type already registered")
)

// Registry maps type names to node types. It is filled once at startup and
// is safe for concurrent lookups afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]Type{}}
}

func (r *Registry) Register(t Type) error {
	if err := etag.ValidateType(t.Name); err != nil {
		return err
	}
	if t.New == nil {
		return fmt.Errorf("node type %q has no constructor", t.Name)
	}
	for _, p := range t.Pins {
		if !p.Kind.Valid() || !p.Dir.Valid() {
			return fmt.Errorf("node type %q declares invalid pin %+v", t.Name, p)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeType, t.Name)
	}
	r.types[t.Name] = t
	return nil
}

func (r *Registry) MustRegister(t Type) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownNodeType, name)
	}
	return t, nil
}

// Types returns all registered types sorted by category, then name.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	types := make([]Type, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(types, func(a, b Type) int {
		if c := strings.Compare(string(a.Category), string(b.Category)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return types
}
