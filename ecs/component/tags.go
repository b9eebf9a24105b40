package component

// Tag names a class of world entity. Trigger policies and the forward sensor
// match on tags only.
type Tag string

const (
	TagPursuer Tag = "pursuer"
	TagEvader  Tag = "evader"
	TagWall    Tag = "wall"
	TagTarget  Tag = "target"
	TagRescue  Tag = "the_rescured"
)

func (t Tag) String() string {
	return string(t)
}
