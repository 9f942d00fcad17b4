package application

import "github.com/jcanyelles/mosaic/internal/domain"

// Provider builds a fresh descriptor for a service compiled into this
// binary. It is invoked once at boot and again on every accept half of a
// reload, so the descriptor (and its route tree) must be rebuilt from
// scratch each call. Providers must be wired after the providers they
// depend on, mirroring the committed-before-dependent rule Load enforces.
type Provider func() *domain.ServiceDescriptor

// ProviderSet builds the full provider list once the registry exists. It is
// the hook for services whose descriptors need the registry itself, such as
// introspection endpoints listing what is loaded.
type ProviderSet func(*Registry) []Provider
