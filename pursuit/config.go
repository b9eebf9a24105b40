package pursuit

import (
	"errors"
	"fmt"

	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs/component"
)

// Strategy selects where the pursuer's intent comes from each tick.
type Strategy string

const (
	StrategyTree   Strategy = "tree"
	StrategyPath   Strategy = "path"
	StrategyManual Strategy = "manual"
)

// Config holds the pursuer's tunables. Start from DefaultConfig; a zero
// MaxShots, TurnSpeed, SensorOffset or AvoidTurnDeg is a real setting.
type Config struct {
	Strategy Strategy `yaml:"strategy"`

	MoveSpeed       float64 `yaml:"move_speed"`
	TurnSpeed       float64 `yaml:"turn_speed"`
	DragFactor      float64 `yaml:"drag_factor"`
	MaxAngularSpeed float64 `yaml:"max_angular_speed"`
	Radius          float64 `yaml:"radius"`
	Mass            float64 `yaml:"mass"`

	SensorRange  float64 `yaml:"sensor_range"`
	SensorOffset float64 `yaml:"sensor_offset"`

	MaxShots      int     `yaml:"max_shots"`
	LaserDuration float64 `yaml:"laser_duration"`
	HitDistance   float64 `yaml:"hit_distance"`
	TargetTag     string  `yaml:"target_tag"`

	AvoidTurnDeg float64 `yaml:"avoid_turn"`
	Seed         int64   `yaml:"seed"`

	Spawn component.Spawn `yaml:"spawn"`
}

// DefaultConfig mirrors the chaser tuning of the original scene.
func DefaultConfig() Config {
	return Config{
		Strategy:        StrategyTree,
		MoveSpeed:       2,
		TurnSpeed:       150,
		DragFactor:      0.95,
		MaxAngularSpeed: 7,
		Radius:          0.5,
		Mass:            1,
		SensorRange:     10,
		SensorOffset:    0.6,
		MaxShots:        3,
		LaserDuration:   0.5,
		HitDistance:     1,
		TargetTag:       string(component.TagEvader),
		AvoidTurnDeg:    45,
		Seed:            1,
		Spawn: component.Spawn{
			Position: common.Vec3{Z: 3.5},
			YawDeg:   -90,
		},
	}
}

// WithDefaults fills fields whose zero value the controller cannot run
// with from DefaultConfig. Spawn is kept as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.MoveSpeed == 0 {
		c.MoveSpeed = d.MoveSpeed
	}
	if c.DragFactor == 0 {
		c.DragFactor = d.DragFactor
	}
	if c.MaxAngularSpeed == 0 {
		c.MaxAngularSpeed = d.MaxAngularSpeed
	}
	if c.Radius == 0 {
		c.Radius = d.Radius
	}
	if c.Mass == 0 {
		c.Mass = d.Mass
	}
	if c.SensorRange == 0 {
		c.SensorRange = d.SensorRange
	}
	if c.LaserDuration == 0 {
		c.LaserDuration = d.LaserDuration
	}
	if c.HitDistance == 0 {
		c.HitDistance = d.HitDistance
	}
	if c.TargetTag == "" {
		c.TargetTag = d.TargetTag
	}
	return c
}

// Validate rejects tunables the controller cannot honour.
func (c Config) Validate() error {
	var errs []error
	switch c.Strategy {
	case StrategyTree, StrategyPath, StrategyManual:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", c.Strategy))
	}
	if c.MoveSpeed <= 0 {
		errs = append(errs, fmt.Errorf("move_speed must be > 0, got %g", c.MoveSpeed))
	}
	if c.TurnSpeed < 0 {
		errs = append(errs, fmt.Errorf("turn_speed must be >= 0, got %g", c.TurnSpeed))
	}
	if c.DragFactor <= 0 || c.DragFactor >= 1 {
		errs = append(errs, fmt.Errorf("drag_factor must be in (0,1), got %g", c.DragFactor))
	}
	if c.MaxAngularSpeed <= 0 {
		errs = append(errs, fmt.Errorf("max_angular_speed must be > 0, got %g", c.MaxAngularSpeed))
	}
	if c.SensorRange <= 0 {
		errs = append(errs, fmt.Errorf("sensor_range must be > 0, got %g", c.SensorRange))
	}
	if c.MaxShots < 0 {
		errs = append(errs, fmt.Errorf("max_shots must be >= 0, got %d", c.MaxShots))
	}
	if c.LaserDuration <= 0 {
		errs = append(errs, fmt.Errorf("laser_duration must be > 0, got %g", c.LaserDuration))
	}
	if c.HitDistance <= 0 {
		errs = append(errs, fmt.Errorf("hit_distance must be > 0, got %g", c.HitDistance))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pursuit: config: %w", err)
	}
	return nil
}
