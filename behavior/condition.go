package behavior

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionKind enumerates the predicates a decision node may test.
type ConditionKind uint8

const (
	CondDistanceBetweenEntities ConditionKind = iota + 1
	CondLaserDistanceToEntity
)

var conditionNames = map[string]ConditionKind{
	"DistanceBetweenEntities": CondDistanceBetweenEntities,
	"LaserDistanceToEntity":   CondLaserDistanceToEntity,
}

func (k ConditionKind) String() string {
	switch k {
	case CondDistanceBetweenEntities:
		return "DistanceBetweenEntities"
	case CondLaserDistanceToEntity:
		return "LaserDistanceToEntity"
	default:
		return fmt.Sprintf("ConditionKind(%d)", uint8(k))
	}
}

// arity is the number of config args each condition takes.
func (k ConditionKind) arity() int {
	switch k {
	case CondDistanceBetweenEntities:
		return 4
	case CondLaserDistanceToEntity:
		return 2
	default:
		return 0
	}
}

// EntityRef names a tracked transform.
type EntityRef uint8

const (
	EntitySelf EntityRef = iota + 1
	EntityEvader
	EntitySensorAnchor
)

var entityAliases = map[string]EntityRef{
	"self":    EntitySelf,
	"pursuer": EntitySelf,
	"evader":  EntityEvader,
	"sensor":  EntitySensorAnchor,
	"laser":   EntitySensorAnchor,
}

func (r EntityRef) String() string {
	switch r {
	case EntitySelf:
		return "self"
	case EntityEvader:
		return "evader"
	case EntitySensorAnchor:
		return "sensor"
	default:
		return fmt.Sprintf("EntityRef(%d)", uint8(r))
	}
}

// ParseEntityRef resolves an entity alias.
func ParseEntityRef(s string) (EntityRef, error) {
	if ref, ok := entityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return ref, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownEntity, s)
}

// Comparator selects how a measured value is tested against a threshold.
type Comparator uint8

const (
	Less Comparator = iota + 1
	Greater
)

func (c Comparator) String() string {
	switch c {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return fmt.Sprintf("Comparator(%d)", uint8(c))
	}
}

// ParseComparator accepts less/greater (any case) and the < / > aliases.
func ParseComparator(s string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "less", "<":
		return Less, nil
	case "greater", ">":
		return Greater, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownComparator, s)
}

// Compare is strict in both directions: v == threshold is false for Less and
// for Greater.
func (c Comparator) Compare(v, threshold float64) bool {
	switch c {
	case Less:
		return v < threshold
	case Greater:
		return v > threshold
	default:
		return false
	}
}

// Condition is a resolved predicate with typed arguments.
type Condition struct {
	Kind ConditionKind

	// DistanceBetweenEntities
	A, B       EntityRef
	Comparator Comparator

	// LaserDistanceToEntity
	Tag string

	Threshold float64
}

func (c Condition) String() string {
	switch c.Kind {
	case CondDistanceBetweenEntities:
		return fmt.Sprintf("%s(%s, %s, %g, %s)", c.Kind, c.A, c.B, c.Threshold, c.Comparator)
	case CondLaserDistanceToEntity:
		return fmt.Sprintf("%s(%s, %g)", c.Kind, c.Tag, c.Threshold)
	default:
		return c.Kind.String()
	}
}

// resolveCondition builds a typed condition from its config id and args. The
// returned field name locates the failure for ConfigError.
func resolveCondition(id string, args []string) (Condition, string, error) {
	kind, ok := conditionNames[id]
	if !ok {
		return Condition{}, "condition", fmt.Errorf("%w %q", ErrUnknownCondition, id)
	}
	if len(args) != kind.arity() {
		return Condition{}, "args", fmt.Errorf("%s takes %d args, got %d", kind, kind.arity(), len(args))
	}

	c := Condition{Kind: kind}
	var err error
	switch kind {
	case CondDistanceBetweenEntities:
		if c.A, err = ParseEntityRef(args[0]); err != nil {
			return Condition{}, "args[0]", err
		}
		if c.B, err = ParseEntityRef(args[1]); err != nil {
			return Condition{}, "args[1]", err
		}
		if c.Threshold, err = parseThreshold(args[2]); err != nil {
			return Condition{}, "args[2]", err
		}
		if c.Comparator, err = ParseComparator(args[3]); err != nil {
			return Condition{}, "args[3]", err
		}
	case CondLaserDistanceToEntity:
		c.Tag = strings.TrimSpace(args[0])
		if c.Tag == "" {
			return Condition{}, "args[0]", fmt.Errorf("empty target tag")
		}
		if c.Threshold, err = parseThreshold(args[1]); err != nil {
			return Condition{}, "args[1]", err
		}
	}
	return c, "", nil
}

func parseThreshold(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("threshold %q is not a number", s)
	}
	return v, nil
}
