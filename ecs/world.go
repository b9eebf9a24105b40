package ecs

import (
	"github.com/xmy86/chase/ecs/component"
)

// World owns entities, components, and system order.
type World struct {
	entities  entityStore
	scheduler Scheduler
	events    EventQueue

	tags    SparseSet[component.Tag]
	names   SparseSet[string]
	spawns  SparseSet[component.Spawn]
	bodies  SparseSet[component.Body]
	rewards SparseSet[*component.Reward]

	physicsWorld *PhysicsWorld

	tick    uint64
	elapsed float64
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity marks an entity as dead and drops its components.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.entities.destroy(e) {
		return false
	}
	w.tags.Remove(e)
	w.names.Remove(e)
	w.spawns.Remove(e)
	w.bodies.Remove(e)
	w.rewards.Remove(e)
	return true
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.count()
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if s == nil {
		return
	}
	w.scheduler.Add(s)
}

// Update runs all systems once and advances the clock.
func (w *World) Update(dt float64) {
	if w == nil {
		return
	}
	w.scheduler.Update(w, dt)
	w.events.flush()
	w.tick++
	w.elapsed += dt
}

// Tick returns the number of completed updates.
func (w *World) Tick() uint64 {
	return w.tick
}

// Elapsed returns simulated seconds since the world was created.
func (w *World) Elapsed() float64 {
	return w.elapsed
}

// Events returns the world event queue. Events live until the end of the
// current Update.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// SetPhysicsWorld attaches a physics world to this ECS world.
func (w *World) SetPhysicsWorld(pw *PhysicsWorld) {
	if w == nil {
		return
	}
	w.physicsWorld = pw
}

// PhysicsWorld returns the attached physics world, if any.
func (w *World) PhysicsWorld() *PhysicsWorld {
	if w == nil {
		return nil
	}
	return w.physicsWorld
}

func (w *World) Tags() *SparseSet[component.Tag] { return &w.tags }
func (w *World) Names() *SparseSet[string] { return &w.names }
func (w *World) Spawns() *SparseSet[component.Spawn] { return &w.spawns }
func (w *World) Bodies() *SparseSet[component.Body] { return &w.bodies }
func (w *World) Rewards() *SparseSet[*component.Reward] { return &w.rewards }

// FirstTagged returns the first live entity with tag.
func (w *World) FirstTagged(tag component.Tag) (Entity, bool) {
	var found Entity
	w.tags.Each(func(e Entity, t component.Tag) {
		if found == 0 && t == tag && w.IsAlive(e) {
			found = e
		}
	})
	return found, found != 0
}
