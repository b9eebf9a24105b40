package pursuit

import (
	"math"

	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs/component"
)

// Kinematics is a world-space snapshot of a body.
type Kinematics struct {
	Position        common.Vec3
	YawDeg          float64
	Velocity        common.Vec3
	AngularVelocity float64
}

// KinematicsOf reads b. Velocity has no vertical component.
func KinematicsOf(b component.Body) Kinematics {
	if b.Body == nil {
		return Kinematics{}
	}
	return Kinematics{
		Position:        common.FromPlane(b.Body.Position(), b.Height),
		YawDeg:          b.Body.Angle() * 180 / math.Pi,
		Velocity:        common.FromPlane(b.Body.Velocity(), 0),
		AngularVelocity: b.Body.AngularVelocity(),
	}
}

// Speed is the planar speed.
func (k Kinematics) Speed() float64 {
	return k.Velocity.Length()
}
