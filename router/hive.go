package router

import (
	"context"
	"fmt"
)

// Hive is a Router bound to one domain (spec.md §4.7 "multi-domain hives").
type Hive struct {
	Domain string
	Router *Router
}

// MultiHive dispatches a query to the Router registered for the caller's
// domain, falling back to a configured default when the domain is unknown
// or unset.
type MultiHive struct {
	hives   map[string]*Router
	fallback string
}

// NewMultiHive constructs a MultiHive. fallbackDomain must name a hive
// that will be registered via Add before first use, or Route returns an
// error.
func NewMultiHive(fallbackDomain string) *MultiHive {
	return &MultiHive{hives: map[string]*Router{}, fallback: fallbackDomain}
}

// Add registers a Router for domain.
func (m *MultiHive) Add(domain string, r *Router) {
	m.hives[domain] = r
}

// Route dispatches to the Router bound to rc.Domain, or the fallback
// domain's Router if rc.Domain is empty or unregistered.
func (m *MultiHive) Route(ctx context.Context, query string, rc Context) (*Result, error) {
	r, ok := m.hives[rc.Domain]
	if !ok {
		r, ok = m.hives[m.fallback]
		if !ok {
			return nil, fmt.Errorf("router: no hive for domain %q and no fallback %q registered", rc.Domain, m.fallback)
		}
	}
	return r.Route(ctx, query, rc)
}
