package behavior

import (
	"errors"
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/xmy86/chase/common"
)

// SensorReading is the forward ray result for the current tick. HitTag is
// empty when the ray hit nothing within range.
type SensorReading struct {
	Distance float64
	HitTag   string
}

// Host is the world an Interpreter reads and acts on. Conditions only call
// the query methods; each action method is called by exactly one action kind.
type Host interface {
	EntityPosition(ref EntityRef) common.Vec3
	SensorReading() SensorReading

	Caught()
	FireLaser()
	MoveTowardsTarget()
	AvoidObstacle()
}

// ErrNoAction is returned if a tick completes without reaching a leaf.
var ErrNoAction = errors.New("behavior: evaluation selected no action")

// Interpreter evaluates one tree against one host.
type Interpreter struct {
	tree *Tree
	host Host
	root bt.Node

	selected ActionKind
}

// NewInterpreter compiles tree for host.
func NewInterpreter(tree *Tree, host Host) (*Interpreter, error) {
	if tree == nil || tree.Len() == 0 {
		return nil, errors.New("behavior: nil tree")
	}
	if host == nil {
		return nil, errors.New("behavior: nil host")
	}
	in := &Interpreter{tree: tree, host: host}
	in.root = in.compile(tree.Root())
	return in, nil
}

// Tree returns the tree being evaluated.
func (in *Interpreter) Tree() *Tree {
	return in.tree
}

// Evaluate walks the tree once from the root and runs the selected action.
func (in *Interpreter) Evaluate() (ActionKind, error) {
	in.selected = ActionNone
	status, err := in.root.Tick()
	if err != nil {
		return ActionNone, fmt.Errorf("behavior: tick: %w", err)
	}
	if status != bt.Success || in.selected == ActionNone {
		return ActionNone, ErrNoAction
	}
	return in.selected, nil
}

// compile maps a decision onto Selector(Sequence(condition, true), false).
// Action leaves always succeed, so the false branch only runs when the
// condition fails.
func (in *Interpreter) compile(id NodeID) bt.Node {
	n := in.tree.Node(id)
	switch n.Kind() {
	case KindDecision:
		cond := n.Condition()
		check := bt.New(func([]bt.Node) (bt.Status, error) {
			if in.Check(cond) {
				return bt.Success, nil
			}
			return bt.Failure, nil
		})
		return bt.New(
			bt.Selector,
			bt.New(bt.Sequence, check, in.compile(n.True())),
			in.compile(n.False()),
		)
	default:
		action := n.Action()
		return bt.New(func([]bt.Node) (bt.Status, error) {
			Dispatch(in.host, action)
			in.selected = action
			return bt.Success, nil
		})
	}
}

// Check evaluates a condition against the host without side effects.
func (in *Interpreter) Check(c Condition) bool {
	switch c.Kind {
	case CondDistanceBetweenEntities:
		a := in.host.EntityPosition(c.A)
		b := in.host.EntityPosition(c.B)
		return c.Comparator.Compare(a.Distance(b), c.Threshold)
	case CondLaserDistanceToEntity:
		r := in.host.SensorReading()
		return r.HitTag != "" && r.HitTag == c.Tag && r.Distance < c.Threshold
	default:
		return false
	}
}

// Dispatch runs action a on host. ActionIdle and ActionNone do nothing.
func Dispatch(host Host, a ActionKind) {
	switch a {
	case ActionCaught:
		host.Caught()
	case ActionFireLaser:
		host.FireLaser()
	case ActionMoveTowardsTarget:
		host.MoveTowardsTarget()
	case ActionAvoidObstacle:
		host.AvoidObstacle()
	case ActionIdle, ActionNone:
	}
}
