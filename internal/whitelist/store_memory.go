package whitelist

import (
	"context"
	"sync"
)

// InMemoryProvider keeps the whitelist in process memory. It distinguishes an
// unconfigured whitelist (reads fail with ErrConfigurationMissing) from a
// configured-but-empty one (reads succeed, everyone is denied).
type InMemoryProvider struct {
	mu         sync.RWMutex
	emails     Set
	configured bool
}

func NewInMemoryProvider(emails ...string) *InMemoryProvider {
	p := &InMemoryProvider{}
	if len(emails) > 0 {
		p.SetEmails(emails...)
	}
	return p
}

func (p *InMemoryProvider) Read(_ context.Context) (Set, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.configured {
		return nil, ErrConfigurationMissing
	}
	out := make(Set, len(p.emails))
	for e := range p.emails {
		out[e] = struct{}{}
	}
	return out, nil
}

// SetEmails replaces the whitelist contents and marks it configured.
func (p *InMemoryProvider) SetEmails(emails ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emails = NewSet(emails...)
	p.configured = true
}

// Clear removes the whitelist record entirely, simulating a missing
// configuration.
func (p *InMemoryProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emails = nil
	p.configured = false
}
