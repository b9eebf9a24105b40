package ecs

import "github.com/xmy86/chase/ecs/component"

// Join calls fn for every entity present in both sets, iterating the smaller
// one.
func Join[A, B any](a *SparseSet[A], b *SparseSet[B], fn func(e Entity, av A, bv B)) {
	if a == nil || b == nil || fn == nil {
		return
	}
	if a.Len() <= b.Len() {
		for i, e := range a.denseEntities {
			if bv, ok := b.Get(e); ok {
				fn(e, a.denseValues[i], bv)
			}
		}
		return
	}
	for i, e := range b.denseEntities {
		if av, ok := a.Get(e); ok {
			fn(e, av, b.denseValues[i])
		}
	}
}

// Tagged returns the live entities carrying tag, in storage order.
func (w *World) Tagged(tag component.Tag) []Entity {
	var out []Entity
	w.tags.Each(func(e Entity, t component.Tag) {
		if t == tag && w.IsAlive(e) {
			out = append(out, e)
		}
	})
	return out
}
