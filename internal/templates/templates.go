// Package templates parses component template files into entries used to
// populate new translations.
package templates

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

// Entry is a single translatable string of a template.
type Entry struct {
	Context string
	Source  string
	Target  string
}

// Parser parses one file format.
type Parser interface {
	Format() string
	Parse(data []byte) ([]Entry, error)
}

// Registry maps file formats to parsers.
type Registry struct {
	mu       sync.RWMutex
	byFormat map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byFormat: map[string]Parser{}}
}

// DefaultRegistry returns a registry with the po and json parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PoParser{})
	r.Register(JSONParser{})
	return r
}

// Register adds p, replacing any parser of the same format.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byFormat[p.Format()] = p
}

// Get returns the parser of format.
func (r *Registry) Get(format string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byFormat[format]
	return p, ok
}

// Parse parses data with the parser for format, falling back to the file
// extension of name when format is empty.
func (r *Registry) Parse(format, name string, data []byte) ([]Entry, error) {
	if format == "" {
		format = strings.TrimPrefix(path.Ext(name), ".")
		if format == "pot" {
			format = "po"
		}
	}
	p, ok := r.Get(format)
	if !ok {
		return nil, fmt.Errorf("unsupported template format %q", format)
	}
	entries, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", name, format, err)
	}
	return entries, nil
}
