package system

import "github.com/xmy86/chase/ecs"

// PhysicsSystem steps the physics world, runs the post-step hooks that bound
// integrated velocities, and publishes the step's contacts as world events.
type PhysicsSystem struct {
	phys      *ecs.PhysicsWorld
	afterStep []func()
}

func NewPhysicsSystem(phys *ecs.PhysicsWorld, afterStep ...func()) *PhysicsSystem {
	return &PhysicsSystem{phys: phys, afterStep: afterStep}
}

func (s *PhysicsSystem) Update(w *ecs.World, dt float64) {
	s.phys.Step(dt)
	for _, fn := range s.afterStep {
		fn()
	}
	for _, c := range s.phys.DrainContacts() {
		w.Events().Push(ecs.Event{Type: ecs.EventContact, Data: c})
	}
}
