// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package provider

import (
	"context"
	"strings"
	"sync"

	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

// Registry manages provider registration and lookup. Model references use
// the "provider/model" format; a configured default ref is used when the
// caller passes an empty or "default" model name.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	defaultRef string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, comperr.New(
			comperr.CodeProviderNotFound,
			"provider not found: "+name,
			comperr.FieldProvider(name),
		)
	}
	return p, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// SetDefault sets the default "provider/model" reference used when no
// explicit model is given. Returns an error if the provider portion of
// the ref is not registered.
func (r *Registry) SetDefault(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provName, _ := parseRef(ref)
	if _, ok := r.providers[provName]; !ok {
		return comperr.New(
			comperr.CodeProviderNotFound,
			"SetDefault: provider not registered: "+provName,
			comperr.FieldProvider(provName),
		)
	}
	r.defaultRef = ref
	return nil
}

// Route resolves a model reference to a registered, available provider and
// the model name to pass to it. When modelRef is empty or "default" the
// configured default is used.
func (r *Registry) Route(ctx context.Context, modelRef string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref := modelRef
	if ref == "" || ref == "default" {
		ref = r.defaultRef
	}
	if ref == "" {
		return nil, "", comperr.New(
			comperr.CodeProviderNoDefault,
			"no default provider configured",
		)
	}
	if !strings.Contains(ref, "/") {
		return nil, "", comperr.Errorf(
			comperr.CodeProviderInvalidModelRef,
			"model name %q must use provider/model format", ref,
		)
	}

	providerName, model := parseRef(ref)
	p, ok := r.providers[providerName]
	if !ok {
		return nil, "", comperr.New(
			comperr.CodeProviderNotFound,
			"provider not found: "+providerName,
			comperr.FieldProvider(providerName),
		)
	}
	if !p.Available(ctx) {
		return nil, "", comperr.New(
			comperr.CodeProviderUpstreamFailure,
			"provider unavailable: "+providerName,
			comperr.FieldProvider(providerName),
		)
	}
	return p, model, nil
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return comperr.Join(errs...)
	}
	return nil
}

// parseRef splits a "provider/model" reference on the first "/".
func parseRef(ref string) (providerName, model string) {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}
