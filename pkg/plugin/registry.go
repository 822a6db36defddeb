// Package plugin keeps a registry of the AI providers the agent can be
// assembled from. Provider packages register themselves from init so the
// CLI can enumerate what a given build supports.
package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider instance from configuration. The returned
// value is cast by the caller to stt.STT, llm.LLM or tts.TTS.
type Factory func(cfg map[string]any) (any, error)

// Provider is one registered provider with its metadata.
type Provider struct {
	Kind        string // "stt", "llm", "tts"
	Name        string // e.g. "deepgram"
	Factory     Factory
	Description string
}

// Registry manages provider registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]map[string]*Provider // [kind][name]
}

var globalRegistry = &Registry{
	providers: make(map[string]map[string]*Provider),
}

// Register adds a provider to the global registry. Called from provider
// package init functions; panics on duplicate registration.
func Register(p *Provider) {
	globalRegistry.Register(p)
}

// Get retrieves a provider factory from the global registry.
func Get(kind, name string) (Factory, bool) {
	return globalRegistry.Get(kind, name)
}

// List returns registered providers of a kind, or all when kind is empty.
func List(kind string) []*Provider {
	return globalRegistry.List(kind)
}

func (r *Registry) Register(p *Provider) {
	if p.Kind == "" || p.Name == "" || p.Factory == nil {
		panic(fmt.Sprintf("invalid provider registration: %+v", p))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.providers[p.Kind] == nil {
		r.providers[p.Kind] = make(map[string]*Provider)
	}
	if _, exists := r.providers[p.Kind][p.Name]; exists {
		panic(fmt.Sprintf("provider %s/%s already registered", p.Kind, p.Name))
	}
	r.providers[p.Kind][p.Name] = p
}

func (r *Registry) Get(kind, name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName, ok := r.providers[kind]
	if !ok {
		return nil, false
	}
	p, ok := byName[name]
	if !ok {
		return nil, false
	}
	return p.Factory, true
}

func (r *Registry) List(kind string) []*Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Provider
	for k, byName := range r.providers {
		if kind != "" && k != kind {
			continue
		}
		for _, p := range byName {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}
