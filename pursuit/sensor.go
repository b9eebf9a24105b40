package pursuit

import (
	"log"

	"github.com/jakecoffman/cp"
	"github.com/xmy86/chase/behavior"
	"github.com/xmy86/chase/ecs"
)

// Raycaster finds the first shape along a segment.
type Raycaster interface {
	Raycast(from, to cp.Vector, exclude ecs.Entity) (ecs.RayHit, bool)
}

// Sensor is the forward distance sensor. Its anchor sits offset metres ahead
// of the body centre along the heading.
//
// A reading at exactly Range is ambiguous: it is reported both for "nothing
// within range" and for "obstacle at maximum range". LaserDistanceToEntity
// relies on the tag, not the distance, to tell them apart.
type Sensor struct {
	Range  float64
	Offset float64

	ray    Raycaster
	self   ecs.Entity
	logger *log.Logger
	warned bool
}

// NewSensor creates a sensor. A nil ray leaves the sensor unanchored: it
// logs once and always reports Range.
func NewSensor(ray Raycaster, self ecs.Entity, rangeM, offset float64, logger *log.Logger) *Sensor {
	if logger == nil {
		logger = log.Default()
	}
	return &Sensor{Range: rangeM, Offset: offset, ray: ray, self: self, logger: logger}
}

// Anchor returns the ray origin for body.
func (s *Sensor) Anchor(body *cp.Body) cp.Vector {
	return body.Position().Add(cp.ForAngle(body.Angle()).Mult(s.Offset))
}

// Measure casts the forward ray and returns the distance to the first hit,
// or Range with no tag when nothing is hit.
func (s *Sensor) Measure(body *cp.Body) behavior.SensorReading {
	miss := behavior.SensorReading{Distance: s.Range}
	if s.ray == nil || body == nil {
		if !s.warned {
			s.logger.Printf("sensor: no anchor assigned, reporting max range %.2f", s.Range)
			s.warned = true
		}
		return miss
	}
	from := s.Anchor(body)
	to := from.Add(cp.ForAngle(body.Angle()).Mult(s.Range))
	hit, ok := s.ray.Raycast(from, to, s.self)
	if !ok {
		return miss
	}
	return behavior.SensorReading{Distance: hit.Distance, HitTag: string(hit.Tag)}
}
