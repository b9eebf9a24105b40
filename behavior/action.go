package behavior

import "fmt"

// ActionKind enumerates the effects an action node may trigger.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionCaught
	ActionFireLaser
	ActionMoveTowardsTarget
	ActionAvoidObstacle
	ActionIdle
)

var actionNames = map[string]ActionKind{
	"Caught":            ActionCaught,
	"FireLaser":         ActionFireLaser,
	"MoveTowardsTarget": ActionMoveTowardsTarget,
	"AvoidObstacle":     ActionAvoidObstacle,
	"Idle":              ActionIdle,
}

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "None"
	case ActionCaught:
		return "Caught"
	case ActionFireLaser:
		return "FireLaser"
	case ActionMoveTowardsTarget:
		return "MoveTowardsTarget"
	case ActionAvoidObstacle:
		return "AvoidObstacle"
	case ActionIdle:
		return "Idle"
	default:
		return fmt.Sprintf("ActionKind(%d)", uint8(k))
	}
}

// ParseAction resolves an action identifier.
func ParseAction(id string) (ActionKind, error) {
	if k, ok := actionNames[id]; ok {
		return k, nil
	}
	return ActionNone, fmt.Errorf("%w %q", ErrUnknownAction, id)
}
