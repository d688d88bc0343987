// Package sources owns the table of upstream feeds.
package sources

import (
	"slices"
	"sync"

	"github.com/jonesrussell/newsgate/internal/domain"
	"github.com/jonesrussell/newsgate/internal/logger"
)

// Registry holds the source table. Readers always receive copies.
type Registry struct {
	mu      sync.RWMutex
	sources []domain.SourceDescriptor
	log     logger.Logger
}

// NewRegistry creates a registry over the given table.
func NewRegistry(log logger.Logger, table []domain.SourceDescriptor) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{sources: slices.Clone(table), log: log}
}

// NewDefaultRegistry creates a registry over the compiled-in table.
func NewDefaultRegistry(log logger.Logger) *Registry {
	return NewRegistry(log, DefaultSources())
}

// Replace swaps the whole table.
func (r *Registry) Replace(table []domain.SourceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = slices.Clone(table)
}

// All returns every source, active or not.
func (r *Registry) All() []domain.SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sources)
}

// Active returns the sources clients may call.
func (r *Registry) Active() []domain.SourceDescriptor {
	return r.filter(func(s domain.SourceDescriptor) bool { return s.Active })
}

// ByCategory returns active sources in cat.
func (r *Registry) ByCategory(cat domain.Category) []domain.SourceDescriptor {
	return r.filter(func(s domain.SourceDescriptor) bool { return s.Active && s.Category == cat })
}

// ByName looks a source up by name, active or not.
func (r *Registry) ByName(name string) (domain.SourceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		if s.Name == name {
			return s, true
		}
	}
	return domain.SourceDescriptor{}, false
}

// Tiers partitions active sources by tier, fastest first. Empty tiers are
// omitted and table order is kept within a tier.
func (r *Registry) Tiers() [][]domain.SourceDescriptor {
	active := r.Active()
	var out [][]domain.SourceDescriptor
	for tier := domain.TierFast; tier <= domain.TierSlow; tier++ {
		var group []domain.SourceDescriptor
		for _, s := range active {
			if s.Tier == tier {
				group = append(group, s)
			}
		}
		if len(group) > 0 {
			out = append(out, group)
		}
	}
	return out
}

func (r *Registry) filter(keep func(domain.SourceDescriptor) bool) []domain.SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceDescriptor, 0, len(r.sources))
	for _, s := range r.sources {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
