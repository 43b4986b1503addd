package kasa

import (
	"github.com/emirpasic/gods/maps/treemap"
)

// Registry holds the bulbs found by discovery, keyed and ordered by alias so
// listings and fan-out commands are deterministic regardless of which bulb
// answered the broadcast first.
type Registry struct {
	byAlias *treemap.Map
}

func NewRegistry() *Registry {
	return &Registry{byAlias: treemap.NewWithStringComparator()}
}

// Put registers a bulb under its alias, replacing any previous entry.
// Unnamed bulbs sort first under the empty alias.
func (r *Registry) Put(b *Bulb) {
	if b == nil {
		return
	}
	r.byAlias.Put(b.Alias(), b)
}

func (r *Registry) Get(alias string) (*Bulb, bool) {
	v, ok := r.byAlias.Get(alias)
	if !ok {
		return nil, false
	}
	return v.(*Bulb), true
}

func (r *Registry) Remove(alias string) { r.byAlias.Remove(alias) }

func (r *Registry) Len() int { return r.byAlias.Size() }

// Bulbs returns all bulbs in alias order.
func (r *Registry) Bulbs() []*Bulb {
	vals := r.byAlias.Values()
	out := make([]*Bulb, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.(*Bulb))
	}
	return out
}
