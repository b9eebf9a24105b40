package component

import "github.com/xmy86/chase/common"

// Spawn is the pose an entity returns to at every episode boundary.
type Spawn struct {
	Position common.Vec3 `yaml:"position"`
	YawDeg   float64     `yaml:"yaw"`
}
