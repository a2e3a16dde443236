package adapter

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves model identifiers to adapters. Registration happens at
// process start; the registry is read-only afterwards and safe for
// concurrent reads.
type Registry struct {
	adapters        map[string]Adapter
	aliases         map[string]string
	defaultProvider string
}

// NewRegistry creates an empty registry. Model identifiers without a
// recognized provider prefix resolve to defaultProvider.
func NewRegistry(defaultProvider string) *Registry {
	return &Registry{
		adapters:        make(map[string]Adapter),
		aliases:         make(map[string]string),
		defaultProvider: defaultProvider,
	}
}

// Register adds an adapter under its Name.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Alias maps an alternate provider prefix onto a registered name.
func (r *Registry) Alias(alias, name string) {
	r.aliases[alias] = name
}

// Resolve splits a model identifier into an adapter and the model name the
// adapter should see. A leading segment is stripped only when it names a
// registered provider; otherwise the whole identifier goes to the default
// provider, preserving path-like model names such as "deployment/abc123".
func (r *Registry) Resolve(model string) (Adapter, string, error) {
	if head, rest, ok := strings.Cut(model, "/"); ok {
		if a, found := r.lookup(head); found {
			return a, rest, nil
		}
	}

	if a, found := r.lookup(r.defaultProvider); found {
		return a, model, nil
	}

	name := r.defaultProvider
	if head, _, ok := strings.Cut(model, "/"); ok {
		name = head
	}
	return nil, "", &UnknownProviderError{Provider: name}
}

// Get returns the adapter registered under the exact provider name or alias.
func (r *Registry) Get(name string) (Adapter, error) {
	if a, found := r.lookup(name); found {
		return a, nil
	}
	return nil, &UnknownProviderError{Provider: name}
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Adapter, bool) {
	if name == "" {
		return nil, false
	}
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	a, ok := r.adapters[name]
	return a, ok
}

// UnknownProviderError reports a model identifier that matches no registered
// adapter.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	if e.Provider == "" {
		return "no provider prefix and no default provider configured"
	}
	return fmt.Sprintf("no adapter registered for provider %q", e.Provider)
}
