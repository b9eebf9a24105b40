package pursuit

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/xmy86/chase/common"
)

// Command is one tick of motion intent.
type Command struct {
	// Turn and Forward are the normalised commands in [-1,1] and [0,1].
	Turn    float64
	Forward float64
	// AngleDeg is the heading error that produced Turn, 0 for manual input.
	AngleDeg float64

	Torque float64
	Force  cp.Vector
}

// Steer computes the command that turns a body at pos with plane heading
// (radians) toward desired. Thrust fades to zero as the heading error
// approaches 90 degrees. When desired coincides with pos nothing is commanded.
func Steer(pos cp.Vector, heading float64, desired cp.Vector, moveSpeed, turnSpeed float64) Command {
	dir := desired.Sub(pos)
	if dir.Length() < common.Epsilon {
		return Command{}
	}
	forward := cp.ForAngle(heading)
	angle := common.SignedAngleDeg(forward, dir.Normalize())

	turn := common.Clamp(angle, -1, 1)
	thrust := common.Clamp(1-math.Abs(angle)/90, 0, 1)
	return Command{
		Turn:     turn,
		Forward:  thrust,
		AngleDeg: angle,
		Torque:   turn * turnSpeed,
		Force:    forward.Mult(thrust * moveSpeed),
	}
}

// ManualInput is a discretised teleoperation command. Turn is positive
// counter-clockwise; Forward is positive ahead.
type ManualInput struct {
	Turn    float64
	Forward float64
}

// ManualInputFromKeys maps the I/K/J/L layout onto a ManualInput.
func ManualInputFromKeys(forward, back, left, right bool) ManualInput {
	var in ManualInput
	switch {
	case forward:
		in.Forward = 1
	case back:
		in.Forward = -1
	}
	switch {
	case left:
		in.Turn = 1
	case right:
		in.Turn = -1
	}
	return in
}

func discretise(v float64) float64 {
	switch {
	case v > 0.1:
		return 1
	case v < -0.1:
		return -1
	default:
		return 0
	}
}

// ManualCommand turns teleoperation input into the same force/torque
// primitives Steer produces.
func ManualCommand(in ManualInput, heading, moveSpeed, turnSpeed float64) Command {
	turn := discretise(in.Turn)
	fwd := discretise(in.Forward)
	return Command{
		Turn:    turn,
		Forward: fwd,
		Torque:  turn * turnSpeed,
		Force:   cp.ForAngle(heading).Mult(fwd * moveSpeed),
	}
}

// ClampVelocity caps speed at maxSpeed without changing direction, then
// applies drag.
func ClampVelocity(v cp.Vector, maxSpeed, drag float64) cp.Vector {
	if speed := v.Length(); speed > maxSpeed && speed > 0 {
		v = v.Mult(maxSpeed / speed)
	}
	return v.Mult(drag)
}

// Controller applies commands to a rigid body and bounds the integrated
// result.
type Controller struct {
	MoveSpeed       float64
	TurnSpeed       float64
	DragFactor      float64
	MaxAngularSpeed float64
}

func NewController(cfg Config) Controller {
	return Controller{
		MoveSpeed:       cfg.MoveSpeed,
		TurnSpeed:       cfg.TurnSpeed,
		DragFactor:      cfg.DragFactor,
		MaxAngularSpeed: cfg.MaxAngularSpeed,
	}
}

// SteerToward builds and applies the command for reaching desired.
func (c Controller) SteerToward(body *cp.Body, desired cp.Vector) Command {
	cmd := Steer(body.Position(), body.Angle(), desired, c.MoveSpeed, c.TurnSpeed)
	c.Apply(body, cmd)
	return cmd
}

// ApplyManual applies teleoperation input through the same pipeline.
func (c Controller) ApplyManual(body *cp.Body, in ManualInput) Command {
	cmd := ManualCommand(in, body.Angle(), c.MoveSpeed, c.TurnSpeed)
	c.Apply(body, cmd)
	return cmd
}

// Apply accumulates force and torque on body for the next physics step.
func (c Controller) Apply(body *cp.Body, cmd Command) {
	if body == nil {
		return
	}
	if cmd.Torque != 0 {
		body.SetTorque(body.Torque() + cmd.Torque)
	}
	if cmd.Force.Length() > 0 {
		body.ApplyForceAtWorldPoint(cmd.Force, body.Position())
	}
}

// AfterStep bounds the body's velocities. Run it once after every physics
// step, whether or not a command was applied.
func (c Controller) AfterStep(body *cp.Body) {
	if body == nil {
		return
	}
	body.SetVelocityVector(ClampVelocity(body.Velocity(), c.MoveSpeed, c.DragFactor))
	w := body.AngularVelocity()
	body.SetAngularVelocity(common.Clamp(w, -c.MaxAngularSpeed, c.MaxAngularSpeed))
}
