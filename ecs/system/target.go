package system

import (
	"math/rand"

	"github.com/jakecoffman/cp"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
)

// Target is the evader's goal zone. It is a static sensor that may be
// re-placed at random at every episode start.
type Target struct {
	spec   prefabs.TargetSpec
	entity ecs.Entity
	world  *ecs.World
	phys   *ecs.PhysicsWorld
	shape  *cp.Shape
	rng    *rand.Rand
}

func NewTarget(w *ecs.World, phys *ecs.PhysicsWorld, spec prefabs.TargetSpec, rng *rand.Rand) *Target {
	e := w.CreateEntity()
	w.Tags().Set(e, component.TagTarget)
	w.Names().Set(e, "target")
	w.Spawns().Set(e, component.Spawn{Position: spec.Position})
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Target{
		spec:   spec,
		entity: e,
		world:  w,
		phys:   phys,
		shape:  phys.AddTrigger(e, component.TagTarget, spec.Position, spec.Radius),
		rng:    rng,
	}
}

func (t *Target) Entity() ecs.Entity {
	return t.entity
}

func (t *Target) Position() common.Vec3 {
	s, _ := t.world.Spawns().Get(t.entity)
	return s.Position
}

// Reset re-places the target. With Randomize set the new position is drawn
// uniformly from the square of that half-extent around the origin.
func (t *Target) Reset() {
	pos := t.spec.Position
	if a := t.spec.Randomize; a > 0 {
		pos.X = (t.rng.Float64()*2 - 1) * a
		pos.Z = (t.rng.Float64()*2 - 1) * a
	}
	t.shape = t.phys.MoveTrigger(t.shape, pos, t.spec.Radius)
	t.world.Spawns().Set(t.entity, component.Spawn{Position: pos})
}
