package system

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/d5/tengo/v2"
	"github.com/jakecoffman/cp"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
)

// Evader is the scripted agent being chased. Its script picks a turn and
// forward command each tick; commands are smoothed and applied as body
// velocities.
type Evader struct {
	spec   prefabs.EvaderSpec
	entity ecs.Entity
	body   component.Body
	phys   *ecs.PhysicsWorld
	script *scriptRuntime
	rng    *rand.Rand
	logger *log.Logger

	inputTurn, inputForward float64
	turn, forward           float64
	scriptFailed            bool
	resets                  int
}

// NewEvader compiles src and binds it to body.
func NewEvader(spec prefabs.EvaderSpec, entity ecs.Entity, body component.Body, phys *ecs.PhysicsWorld, src []byte, rng *rand.Rand, logger *log.Logger) (*Evader, error) {
	if body.Body == nil {
		return nil, fmt.Errorf("evader: body is required")
	}
	rt, err := newScriptRuntime(spec.Script, src)
	if err != nil {
		return nil, fmt.Errorf("evader: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Evader{
		spec:   spec,
		entity: entity,
		body:   body,
		phys:   phys,
		script: rt,
		rng:    rng,
		logger: logger,
	}, nil
}

func (e *Evader) Entity() ecs.Entity {
	return e.entity
}

func (e *Evader) Body() component.Body {
	return e.body
}

// Position is the evader's world position.
func (e *Evader) Position() common.Vec3 {
	return common.FromPlane(e.body.Body.Position(), e.body.Height)
}

// Reset returns the evader to its spawn point with zero motion. With
// RandomYaw the heading is drawn uniformly.
func (e *Evader) Reset() {
	yaw := e.spec.Spawn.YawDeg
	if e.spec.RandomYaw {
		yaw = e.rng.Float64() * 360
	}
	e.phys.Teleport(e.body.Body, e.spec.Spawn.Position.Plane(), common.DegToRad(yaw))
	e.body.Body.SetVelocityVector(cp.Vector{})
	e.body.Body.SetAngularVelocity(0)
	e.turn, e.forward = 0, 0
	e.inputTurn, e.inputForward = 0, 0
	e.resets++

	if err := e.script.runPhase("reset", e.engine(nil)); err != nil {
		e.logger.Printf("evader: %v", err)
	}
}

// Update runs the script and drives the body. Script errors are logged once
// and leave the evader coasting to a stop.
func (e *Evader) Update(w *ecs.World, dt float64) {
	e.inputTurn, e.inputForward = 0, 0
	if err := e.script.runPhase("update", e.engine(w)); err != nil {
		if !e.scriptFailed {
			e.logger.Printf("evader: %v", err)
			e.scriptFailed = true
		}
	}

	t := common.Clamp(dt*e.spec.Smoothing, 0, 1)
	e.turn = common.Lerp(e.turn, e.inputTurn, t)
	e.forward = common.Lerp(e.forward, e.inputForward, t)

	b := e.body.Body
	b.SetAngularVelocity(common.DegToRad(e.turn * e.spec.TurnSpeed))
	b.SetVelocityVector(cp.ForAngle(b.Angle()).Mult(e.forward * e.spec.MoveSpeed))
}

// Resets counts calls to Reset.
func (e *Evader) Resets() int {
	return e.resets
}

// Command returns the smoothed turn and forward commands.
func (e *Evader) Command() (turn, forward float64) {
	return e.turn, e.forward
}

func (e *Evader) engine(w *ecs.World) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p := e.Position()
		return vecObject(p.X, p.Y, p.Z), nil
	}}

	values["heading"] = &tengo.UserFunction{Name: "heading", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: e.body.Body.Angle()}, nil
	}}

	values["target"] = &tengo.UserFunction{Name: "target", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p := e.tagPosition(w, component.TagTarget)
		return vecObject(p.X, p.Y, p.Z), nil
	}}

	values["pursuer"] = &tengo.UserFunction{Name: "pursuer", Value: func(args ...tengo.Object) (tengo.Object, error) {
		p := e.tagPosition(w, component.TagPursuer)
		return vecObject(p.X, p.Y, p.Z), nil
	}}

	values["time"] = &tengo.UserFunction{Name: "time", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if w == nil {
			return &tengo.Float{Value: 0}, nil
		}
		return &tengo.Float{Value: w.Elapsed()}, nil
	}}

	values["random"] = &tengo.UserFunction{Name: "random", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: e.rng.Float64()}, nil
	}}

	values["move"] = &tengo.UserFunction{Name: "move", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 2 {
			return tengo.FalseValue, nil
		}
		turn, ok1 := objectAsFloat(args[0])
		forward, ok2 := objectAsFloat(args[1])
		if !ok1 || !ok2 || math.IsNaN(turn) || math.IsNaN(forward) {
			return tengo.FalseValue, nil
		}
		e.inputTurn = common.Clamp(turn, -1, 1)
		e.inputForward = common.Clamp(forward, -1, 1)
		return tengo.TrueValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

// tagPosition finds the first entity with tag and returns its position,
// falling back to the evader's own position.
func (e *Evader) tagPosition(w *ecs.World, tag component.Tag) common.Vec3 {
	if w == nil {
		return e.Position()
	}
	ent, ok := w.FirstTagged(tag)
	if !ok {
		return e.Position()
	}
	if b, ok := w.Bodies().Get(ent); ok && b.Body != nil {
		return common.FromPlane(b.Body.Position(), b.Height)
	}
	if s, ok := w.Spawns().Get(ent); ok {
		return s.Position
	}
	return e.Position()
}
