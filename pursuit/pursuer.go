package pursuit

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/jakecoffman/cp"
	"github.com/xmy86/chase/behavior"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
)

// Physics is the slice of the physics world the pursuer needs.
type Physics interface {
	Raycaster
	Teleport(body *cp.Body, pos cp.Vector, angle float64)
}

// Target is the tracked evader.
type Target interface {
	Position() common.Vec3
	// Reset returns the target to its spawn pose.
	Reset()
}

// Deps are the pursuer's collaborators. Body is required. Physics may be nil,
// in which case the sensor never hits and teleports write the body directly.
type Deps struct {
	Physics Physics
	Entity  ecs.Entity
	Body    component.Body
	Evader  Target
	Tree    *behavior.Tree
	Path    *Path
	Sink    component.EpisodeSink
	Logger  *log.Logger
}

// Pursuer is the pursuit agent: it senses, decides, and commands its body
// once per Tick. It implements behavior.Host.
type Pursuer struct {
	cfg    Config
	body   component.Body
	self   ecs.Entity
	phys   Physics
	evader Target
	sink   component.EpisodeSink
	logger *log.Logger

	ctrl     Controller
	sensor   *Sensor
	weapon   *Weapon
	follower *PathFollower
	interp   *behavior.Interpreter
	rng      *rand.Rand

	dt          float64
	reading     behavior.SensorReading
	manual      ManualInput
	lastAction  behavior.ActionKind
	lastCommand Command
	ended       bool
	resets      int
}

// New builds a pursuer for cfg. The tree strategy requires deps.Tree and the
// path strategy requires deps.Path.
func New(cfg Config, deps Deps) (*Pursuer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Body.Body == nil {
		return nil, errors.New("pursuer: body is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	p := &Pursuer{
		cfg:    cfg,
		body:   deps.Body,
		self:   deps.Entity,
		phys:   deps.Physics,
		evader: deps.Evader,
		sink:   deps.Sink,
		logger: logger,
		ctrl:   NewController(cfg),
		weapon: NewWeapon(cfg.MaxShots, cfg.LaserDuration, logger),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	var ray Raycaster
	if deps.Physics != nil {
		ray = deps.Physics
	}
	p.sensor = NewSensor(ray, deps.Entity, cfg.SensorRange, cfg.SensorOffset, logger)

	switch cfg.Strategy {
	case StrategyTree:
		if deps.Tree == nil {
			return nil, errors.New("pursuer: tree strategy needs a behavior tree")
		}
		in, err := behavior.NewInterpreter(deps.Tree, p)
		if err != nil {
			return nil, fmt.Errorf("pursuer: %w", err)
		}
		p.interp = in
	case StrategyPath:
		if deps.Path == nil {
			return nil, errors.New("pursuer: path strategy needs a path")
		}
		p.follower = NewPathFollower(deps.Path)
	}
	return p, nil
}

// Tick runs one sense, decide, act pass. Forces are accumulated on the body;
// the caller steps physics and then calls AfterStep.
func (p *Pursuer) Tick(dt float64) error {
	p.dt = dt
	p.ended = false
	p.lastAction = behavior.ActionNone
	p.lastCommand = Command{}

	p.weapon.Tick(dt)
	p.reading = p.sensor.Measure(p.body.Body)
	if p.checkKill() {
		return nil
	}

	switch p.cfg.Strategy {
	case StrategyTree:
		a, err := p.interp.Evaluate()
		if err != nil {
			return fmt.Errorf("pursuer: %w", err)
		}
		p.lastAction = a
	case StrategyPath:
		p.navigate()
	case StrategyManual:
		p.lastCommand = p.ctrl.ApplyManual(p.body.Body, p.manual)
	}
	return nil
}

// AfterStep bounds the integrated velocities.
func (p *Pursuer) AfterStep() {
	p.ctrl.AfterStep(p.body.Body)
}

func (p *Pursuer) checkKill() bool {
	if !p.weapon.Active() || p.reading.HitTag != p.cfg.TargetTag {
		return false
	}
	if p.reading.Distance > p.cfg.HitDistance {
		return false
	}
	p.logger.Printf("pursuer: laser hit %s at %.2f", p.reading.HitTag, p.reading.Distance)
	p.end(component.Outcome{Reason: component.ReasonKill, Tag: component.Tag(p.reading.HitTag)})
	return true
}

func (p *Pursuer) navigate() {
	if !p.follower.Direct() {
		if wp, ok := p.follower.Step(p.position()); ok {
			p.steerTo(wp)
			return
		}
		if p.follower.Direct() {
			p.logger.Printf("pursuer: all waypoints reached, pursuing directly")
		}
	} else {
		p.lastAction = p.follower.Path().FinalAction
		behavior.Dispatch(p, p.lastAction)
		if p.ended {
			return
		}
	}

	if p.follower.Direct() && p.evader != nil {
		if p.position().Distance(p.evader.Position()) <= p.follower.Path().CaptureDistance {
			p.Caught()
		}
	}
}

func (p *Pursuer) steerTo(target common.Vec3) {
	p.lastCommand = p.ctrl.SteerToward(p.body.Body, target.Plane())
}

func (p *Pursuer) end(o component.Outcome) {
	p.ended = true
	if p.sink == nil {
		p.logger.Printf("pursuer: %s", o)
		p.Initialize()
		return
	}
	p.sink.EndEpisode(o)
}

func (p *Pursuer) position() common.Vec3 {
	return common.FromPlane(p.body.Body.Position(), p.body.Height)
}

// EntityPosition resolves a condition entity reference.
func (p *Pursuer) EntityPosition(ref behavior.EntityRef) common.Vec3 {
	switch ref {
	case behavior.EntityEvader:
		if p.evader == nil {
			return p.position()
		}
		return p.evader.Position()
	case behavior.EntitySensorAnchor:
		return common.FromPlane(p.sensor.Anchor(p.body.Body), p.body.Height)
	default:
		return p.position()
	}
}

// SensorReading returns this tick's forward ray result.
func (p *Pursuer) SensorReading() behavior.SensorReading {
	return p.reading
}

// Caught ends the episode as a capture.
func (p *Pursuer) Caught() {
	p.logger.Printf("pursuer: evader captured")
	p.end(component.Outcome{Reason: component.ReasonCapture, Tag: component.TagEvader})
}

func (p *Pursuer) FireLaser() {
	p.weapon.Fire()
}

func (p *Pursuer) MoveTowardsTarget() {
	if p.evader == nil {
		return
	}
	p.steerTo(p.evader.Position())
}

// AvoidObstacle nudges the transform directly: a random yaw change within
// AvoidTurnDeg either way, then one tick of forward travel.
func (p *Pursuer) AvoidObstacle() {
	b := p.body.Body
	turn := (p.rng.Float64()*2 - 1) * p.cfg.AvoidTurnDeg
	angle := b.Angle() + common.DegToRad(turn)
	pos := b.Position().Add(cp.ForAngle(angle).Mult(p.cfg.MoveSpeed * p.dt))
	p.teleport(pos, angle)
}

func (p *Pursuer) teleport(pos cp.Vector, angle float64) {
	if p.phys != nil {
		p.phys.Teleport(p.body.Body, pos, angle)
		return
	}
	p.body.Body.SetPosition(pos)
	p.body.Body.SetAngle(angle)
}

// Initialize returns the pursuer to its spawn pose with zero motion and a
// full weapon budget. In path mode it also rewinds the route and resets the
// evader. The behavior tree is left untouched. Calling it repeatedly is safe.
func (p *Pursuer) Initialize() {
	spawn := p.cfg.Spawn
	p.teleport(spawn.Position.Plane(), common.DegToRad(spawn.YawDeg))
	p.body.Height = spawn.Position.Y

	b := p.body.Body
	b.SetVelocityVector(cp.Vector{})
	b.SetAngularVelocity(0)
	b.SetForce(cp.Vector{})
	b.SetTorque(0)

	p.weapon.Reset()
	p.reading = behavior.SensorReading{Distance: p.cfg.SensorRange}
	if p.follower != nil {
		p.follower.Reset()
		if p.evader != nil {
			p.evader.Reset()
		}
	}
	p.resets++
}

// ResetsEvader reports whether Initialize also resets the evader, as it does
// in path mode.
func (p *Pursuer) ResetsEvader() bool {
	return p.follower != nil && p.evader != nil
}

// SetManualInput sets the teleoperation command used by the manual strategy.
func (p *Pursuer) SetManualInput(in ManualInput) {
	p.manual = in
}

// SetSink wires the episode sink after construction.
func (p *Pursuer) SetSink(s component.EpisodeSink) {
	p.sink = s
}

func (p *Pursuer) Config() Config { return p.cfg }
func (p *Pursuer) Entity() ecs.Entity { return p.self }
func (p *Pursuer) Body() component.Body { return p.body }
func (p *Pursuer) Kinematics() Kinematics { return KinematicsOf(p.body) }
func (p *Pursuer) Weapon() *Weapon { return p.weapon }
func (p *Pursuer) Sensor() *Sensor { return p.sensor }
func (p *Pursuer) Follower() *PathFollower { return p.follower }
func (p *Pursuer) Interpreter() *behavior.Interpreter { return p.interp }
func (p *Pursuer) LastAction() behavior.ActionKind { return p.lastAction }
func (p *Pursuer) LastCommand() Command { return p.lastCommand }

// Resets counts Initialize calls since construction.
func (p *Pursuer) Resets() int { return p.resets }
