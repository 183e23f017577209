package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gosimple/slug"
)

// ErrUnknownGame is returned for game types that are not registered.
var ErrUnknownGame = errors.New("unknown game type")

// Registry holds all registered rule modules and doubles as the codec for
// their states and moves.
type Registry struct {
	mu      sync.RWMutex
	rules   map[Type]Rules
	aliases map[string]Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:   make(map[Type]Rules),
		aliases: make(map[string]Type),
	}
}

// Register adds a rule module. Panics on duplicate types or aliases.
func (r *Registry) Register(rules Rules) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := rules.Info()
	if _, exists := r.rules[info.Type]; exists {
		panic(fmt.Sprintf("game %q already registered", info.Type))
	}
	r.rules[info.Type] = rules
	for _, name := range append([]string{string(info.Type)}, info.Aliases...) {
		key := slug.Make(name)
		if prev, exists := r.aliases[key]; exists {
			panic(fmt.Sprintf("alias %q of %q already used by %q", name, info.Type, prev))
		}
		r.aliases[key] = info.Type
	}
}

// Get returns the rule module for an exact type.
func (r *Registry) Get(t Type) (Rules, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules, ok := r.rules[t]
	return rules, ok
}

// Lookup resolves a user-supplied name ("Tic Tac Toe", "tictactoe") to a
// registered type.
func (r *Registry) Lookup(name string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.aliases[slug.Make(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
	return t, nil
}

// List returns info for all registered games, sorted by type.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.rules))
	for _, g := range r.rules {
		infos = append(infos, g.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

func (r *Registry) must(t Type) (Rules, error) {
	rules, ok := r.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, t)
	}
	return rules, nil
}

// EncodeState serializes a state for persistence.
func (r *Registry) EncodeState(s State) ([]byte, error) {
	if _, err := r.must(s.GameType()); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// View returns s as it may be shown to players.
func (r *Registry) View(s State) State {
	if s == nil {
		return nil
	}
	rules, ok := r.Get(s.GameType())
	if !ok {
		return s
	}
	if red, ok := rules.(Redactor); ok {
		return red.Redact(s)
	}
	return s
}

// DecodeState parses a persisted state of type t.
func (r *Registry) DecodeState(t Type, data []byte) (State, error) {
	rules, err := r.must(t)
	if err != nil {
		return nil, err
	}
	return rules.DecodeState(data)
}

// DecodeMove parses a client move payload for type t.
func (r *Registry) DecodeMove(t Type, data []byte) (Move, error) {
	rules, err := r.must(t)
	if err != nil {
		return nil, err
	}
	return rules.DecodeMove(data)
}
