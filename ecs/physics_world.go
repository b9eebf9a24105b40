package ecs

import (
	"log"

	"github.com/jakecoffman/cp"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs/component"
)

// PhysicsWorld owns the Chipmunk space. The space is the ground plane: world
// X/Z map to space X/Y and there is no gravity.
type PhysicsWorld struct {
	space  *cp.Space
	logger *log.Logger

	shapeToEntity map[*cp.Shape]Entity
	shapeTags     map[*cp.Shape]component.Tag
	tagTypes      map[component.Tag]cp.CollisionType
	watched       map[[2]cp.CollisionType]bool
	contacts      []ContactEvent
}

// RayHit is the first shape a segment query touched.
type RayHit struct {
	Entity   Entity
	Tag      component.Tag
	Distance float64
	Point    cp.Vector
}

// NewPhysicsWorld creates an empty top-down physics space.
func NewPhysicsWorld(logger *log.Logger) *PhysicsWorld {
	if logger == nil {
		logger = log.Default()
	}
	space := cp.NewSpace()
	space.Iterations = 10
	space.SetGravity(cp.Vector{})

	return &PhysicsWorld{
		space:         space,
		logger:        logger,
		shapeToEntity: make(map[*cp.Shape]Entity),
		shapeTags:     make(map[*cp.Shape]component.Tag),
		tagTypes:      make(map[component.Tag]cp.CollisionType),
		watched:       make(map[[2]cp.CollisionType]bool),
	}
}

// Space returns the underlying Chipmunk space.
func (pw *PhysicsWorld) Space() *cp.Space {
	if pw == nil {
		return nil
	}
	return pw.space
}

func (pw *PhysicsWorld) collisionType(tag component.Tag) cp.CollisionType {
	if t, ok := pw.tagTypes[tag]; ok {
		return t
	}
	t := cp.CollisionType(len(pw.tagTypes) + 1)
	pw.tagTypes[tag] = t
	return t
}

func (pw *PhysicsWorld) register(e Entity, tag component.Tag, shape *cp.Shape) {
	shape.SetCollisionType(pw.collisionType(tag))
	pw.shapeToEntity[shape] = e
	pw.shapeTags[shape] = tag
}

// AddAgent creates a dynamic circular body at spawn. The shape's filter group
// is the entity id so rays cast on behalf of the entity skip its own shape.
func (pw *PhysicsWorld) AddAgent(e Entity, tag component.Tag, spawn component.Spawn, radius, mass float64) component.Body {
	if radius <= 0 {
		radius = 0.5
	}
	if mass <= 0 {
		mass = 1
	}
	body := cp.NewBody(mass, cp.MomentForCircle(mass, 0, radius, cp.Vector{}))
	body.SetPosition(spawn.Position.Plane())
	body.SetAngle(common.DegToRad(spawn.YawDeg))

	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFriction(0.4)
	shape.SetFilter(cp.NewShapeFilter(uint(e.id()), cp.ALL_CATEGORIES, cp.ALL_CATEGORIES))

	pw.space.AddBody(body)
	pw.space.AddShape(shape)
	pw.register(e, tag, shape)
	pw.logger.Printf("PhysicsWorld: AddAgent entity %s tag=%s radius=%.2f", e, tag, radius)

	return component.Body{Body: body, Shape: shape, Height: spawn.Position.Y}
}

// AddWall adds a static segment between a and b.
func (pw *PhysicsWorld) AddWall(e Entity, tag component.Tag, a, b common.Vec3, thickness float64) *cp.Shape {
	shape := cp.NewSegment(pw.space.StaticBody, a.Plane(), b.Plane(), thickness)
	shape.SetFriction(0.8)
	pw.space.AddShape(shape)
	pw.register(e, tag, shape)
	return shape
}

// AddTrigger adds a static sensor circle. Sensors report contacts but never
// push bodies, and segment queries pass through them.
func (pw *PhysicsWorld) AddTrigger(e Entity, tag component.Tag, center common.Vec3, radius float64) *cp.Shape {
	shape := cp.NewCircle(pw.space.StaticBody, radius, center.Plane())
	shape.SetSensor(true)
	pw.space.AddShape(shape)
	pw.register(e, tag, shape)
	return shape
}

// MoveTrigger relocates a trigger created by AddTrigger.
func (pw *PhysicsWorld) MoveTrigger(shape *cp.Shape, center common.Vec3, radius float64) *cp.Shape {
	if shape == nil {
		return nil
	}
	e := pw.shapeToEntity[shape]
	tag := pw.shapeTags[shape]
	pw.space.RemoveShape(shape)
	delete(pw.shapeToEntity, shape)
	delete(pw.shapeTags, shape)
	return pw.AddTrigger(e, tag, center, radius)
}

// WatchContacts records begin/separate events between shapes tagged a and b.
func (pw *PhysicsWorld) WatchContacts(a, b component.Tag) {
	ta, tb := pw.collisionType(a), pw.collisionType(b)
	key := [2]cp.CollisionType{ta, tb}
	if ta > tb {
		key = [2]cp.CollisionType{tb, ta}
	}
	if pw.watched[key] {
		return
	}
	pw.watched[key] = true

	handler := pw.space.NewCollisionHandler(ta, tb)
	handler.UserData = pw
	handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		if world, ok := userData.(*PhysicsWorld); ok && world != nil {
			world.recordContact(ContactBegin, arb)
		}
		return true
	}
	handler.SeparateFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) {
		if world, ok := userData.(*PhysicsWorld); ok && world != nil {
			world.recordContact(ContactSeparate, arb)
		}
	}
}

func (pw *PhysicsWorld) recordContact(kind ContactEventKind, arb *cp.Arbiter) {
	shapeA, shapeB := arb.Shapes()
	pw.contacts = append(pw.contacts, ContactEvent{
		Kind: kind,
		A:    pw.shapeToEntity[shapeA],
		B:    pw.shapeToEntity[shapeB],
		TagA: string(pw.shapeTags[shapeA]),
		TagB: string(pw.shapeTags[shapeB]),
	})
}

// DrainContacts returns contacts recorded since the previous call.
func (pw *PhysicsWorld) DrainContacts() []ContactEvent {
	out := pw.contacts
	pw.contacts = nil
	return out
}

// Step advances the physics simulation.
func (pw *PhysicsWorld) Step(dt float64) {
	if pw == nil || pw.space == nil || dt <= 0 {
		return
	}
	pw.space.Step(dt)
}

// Teleport places body at pos with the given plane heading, bypassing
// integration. The body's shapes are re-inserted so queries see the new
// pose immediately.
func (pw *PhysicsWorld) Teleport(body *cp.Body, pos cp.Vector, angle float64) {
	if pw == nil || body == nil {
		return
	}
	body.SetPosition(pos)
	body.SetAngle(angle)

	var shapes []*cp.Shape
	body.EachShape(func(s *cp.Shape) {
		shapes = append(shapes, s)
	})
	for _, s := range shapes {
		pw.space.RemoveShape(s)
		pw.space.AddShape(s)
	}
}

// Raycast returns the first shape along from→to, skipping shapes owned by
// exclude. The zero Entity excludes nothing.
func (pw *PhysicsWorld) Raycast(from, to cp.Vector, exclude Entity) (RayHit, bool) {
	if pw == nil || pw.space == nil {
		return RayHit{}, false
	}
	length := from.Distance(to)
	if length < common.Epsilon {
		return RayHit{}, false
	}
	filter := cp.NewShapeFilter(uint(exclude.id()), cp.ALL_CATEGORIES, cp.ALL_CATEGORIES)
	info := pw.space.SegmentQueryFirst(from, to, 0, filter)
	if info.Shape == nil {
		return RayHit{}, false
	}
	return RayHit{
		Entity:   pw.shapeToEntity[info.Shape],
		Tag:      pw.shapeTags[info.Shape],
		Distance: info.Alpha * length,
		Point:    info.Point,
	}, true
}
