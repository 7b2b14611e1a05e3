package ruleset

import (
	"fmt"
	"sync"
)

// Library holds named ruleset definitions for the interpreter.
// It is safe for concurrent use; definitions must not be mutated once added.
type Library struct {
	mu     sync.RWMutex
	defs   map[string]*Definition
	hashes map[string]string
	order  []string
}

// NewLibrary creates a library holding defs.
func NewLibrary(defs ...*Definition) (*Library, error) {
	l := &Library{
		defs:   make(map[string]*Definition),
		hashes: make(map[string]string),
	}
	for _, def := range defs {
		if err := l.Add(def); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add registers def under its name.
// Adding an identical definition again is a no-op; adding a different
// definition under a taken name is an error.
func (l *Library) Add(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("ruleset name is required")
	}
	hash, err := Hash(def)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.hashes[def.Name]; ok {
		if existing == hash {
			return nil
		}
		return fmt.Errorf("ruleset %q already defined in %s with different content",
			def.Name, sourceOf(l.defs[def.Name]))
	}
	l.defs[def.Name] = def
	l.hashes[def.Name] = hash
	l.order = append(l.order, def.Name)
	return nil
}

// Get returns the definition registered under name.
func (l *Library) Get(name string) (*Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.defs[NormalizeName(name)]
	return def, ok
}

// Hash returns the content hash of the named definition, or "".
func (l *Library) Hash(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hashes[NormalizeName(name)]
}

// Names returns ruleset names in the order they were added.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

// Len returns the number of definitions.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

func sourceOf(def *Definition) string {
	if def == nil || def.Source == "" {
		return "<memory>"
	}
	return def.Source
}
