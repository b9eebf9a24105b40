package pursuit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/xmy86/chase/behavior"
	"github.com/xmy86/chase/common"
)

// Path is a waypoint route followed before switching to direct pursuit.
type Path struct {
	Waypoints       []common.Vec3
	CaptureDistance float64
	// FinalAction runs every tick once the waypoints are exhausted.
	FinalAction behavior.ActionKind
}

type rawPath struct {
	Waypoints       []common.Vec3 `json:"waypoints"`
	CaptureDistance *float64      `json:"captureDistance"`
	FinalAction     string        `json:"finalAction"`
}

// ParsePath decodes a path document. finalAction defaults to
// MoveTowardsTarget.
func ParsePath(data []byte) (*Path, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("pursuit: path: empty document")
	}
	var raw rawPath
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("pursuit: path: %w", err)
	}
	if raw.CaptureDistance == nil {
		return nil, errors.New("pursuit: path: captureDistance is required")
	}
	if *raw.CaptureDistance <= 0 {
		return nil, fmt.Errorf("pursuit: path: captureDistance must be > 0, got %g", *raw.CaptureDistance)
	}
	final := behavior.ActionMoveTowardsTarget
	if raw.FinalAction != "" {
		a, err := behavior.ParseAction(raw.FinalAction)
		if err != nil {
			return nil, fmt.Errorf("pursuit: path: finalAction: %w", err)
		}
		final = a
	}
	return &Path{
		Waypoints:       raw.Waypoints,
		CaptureDistance: *raw.CaptureDistance,
		FinalAction:     final,
	}, nil
}

// ParsePathFile reads and parses a path document from disk.
func ParsePathFile(path string) (*Path, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pursuit: read path %s: %w", path, err)
	}
	return ParsePath(data)
}

// PathFollower walks a Path. The index never decreases within an episode and
// once every waypoint is reached the follower stays in direct pursuit until
// Reset.
type PathFollower struct {
	path   *Path
	index  int
	direct bool
}

func NewPathFollower(p *Path) *PathFollower {
	f := &PathFollower{path: p}
	f.Reset()
	return f
}

// Step advances past the current waypoint if pos is within capture distance.
// It returns the waypoint to steer toward and true, or false when nothing
// should be steered toward this tick: the tick that reaches a waypoint does
// not move, and neither does a follower already in direct pursuit.
func (f *PathFollower) Step(pos common.Vec3) (common.Vec3, bool) {
	if f.direct {
		return common.Vec3{}, false
	}
	wp := f.path.Waypoints[f.index]
	if pos.Distance(wp) > f.path.CaptureDistance {
		return wp, true
	}
	f.index++
	if f.index >= len(f.path.Waypoints) {
		f.direct = true
	}
	return common.Vec3{}, false
}

// Direct reports whether the follower has switched to direct pursuit.
func (f *PathFollower) Direct() bool {
	return f.direct
}

func (f *PathFollower) Index() int {
	return f.index
}

func (f *PathFollower) Path() *Path {
	return f.path
}

// Reset rewinds to the first waypoint. An empty route starts in direct
// pursuit.
func (f *PathFollower) Reset() {
	f.index = 0
	f.direct = f.path == nil || len(f.path.Waypoints) == 0
}
