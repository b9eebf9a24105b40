package pursuit

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmy86/chase/behavior"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
)

const captureTree = `{
  "type": "DecisionNode",
  "condition": "DistanceBetweenEntities",
  "args": ["self", "evader", "2.0", "less"],
  "trueNode": {"type": "ActionNode", "action": "Caught"},
  "falseNode": {"type": "ActionNode", "action": "MoveTowardsTarget"}
}`

type fakeTarget struct {
	pos    common.Vec3
	spawn  common.Vec3
	resets int
}

func (f *fakeTarget) Position() common.Vec3 { return f.pos }
func (f *fakeTarget) Reset() { f.pos = f.spawn; f.resets++ }

// bodyTarget tracks a physics body.
type bodyTarget struct {
	body component.Body
}

func (b bodyTarget) Position() common.Vec3 { return common.FromPlane(b.body.Body.Position(), b.body.Height) }
func (b bodyTarget) Reset() {}

type recordingSink struct {
	outcomes []component.Outcome
	onEnd    func()
}

func (s *recordingSink) EndEpisode(o component.Outcome) {
	s.outcomes = append(s.outcomes, o)
	if s.onEnd != nil {
		s.onEnd()
	}
}

type rig struct {
	world   *ecs.World
	physics *ecs.PhysicsWorld
	entity  ecs.Entity
	body    component.Body
}

func newRig(t *testing.T, spawn component.Spawn) *rig {
	t.Helper()
	w := ecs.NewWorld()
	pw := ecs.NewPhysicsWorld(discardLogger())
	e := w.CreateEntity()
	return &rig{world: w, physics: pw, entity: e, body: pw.AddAgent(e, component.TagPursuer, spawn, 0.5, 1)}
}

func (r *rig) deps(t *testing.T) Deps {
	t.Helper()
	return Deps{Physics: r.physics, Entity: r.entity, Body: r.body, Logger: discardLogger()}
}

func mustTree(t *testing.T, doc string) *behavior.Tree {
	t.Helper()
	tree, err := behavior.Parse([]byte(doc))
	require.NoError(t, err)
	return tree
}

func (r *rig) step(t *testing.T, p *Pursuer, dt float64) {
	t.Helper()
	require.NoError(t, p.Tick(dt))
	r.physics.Step(dt)
	p.AfterStep()
}

func TestScenarioCaughtResetsOnce(t *testing.T) {
	cfg := DefaultConfig()
	r := newRig(t, cfg.Spawn)
	evader := &fakeTarget{pos: cfg.Spawn.Position, spawn: common.Vec3{X: 4}}
	evader.pos.X += 1.5

	sink := &recordingSink{}
	deps := r.deps(t)
	deps.Tree = mustTree(t, captureTree)
	deps.Evader = evader
	deps.Sink = sink
	p, err := New(cfg, deps)
	require.NoError(t, err)
	sink.onEnd = p.Initialize

	require.NoError(t, p.Tick(0.02))
	assert.Equal(t, behavior.ActionCaught, p.LastAction())
	require.Len(t, sink.outcomes, 1)
	assert.Equal(t, component.ReasonCapture, sink.outcomes[0].Reason)
	assert.Equal(t, 1, p.Resets())
	assert.Equal(t, 0, evader.resets, "tree mode leaves the evader to the episode manager")
}

func TestCaughtWithoutSinkResetsSelf(t *testing.T) {
	cfg := DefaultConfig()
	r := newRig(t, cfg.Spawn)
	deps := r.deps(t)
	deps.Tree = mustTree(t, `{"type":"ActionNode","action":"Caught"}`)
	p, err := New(cfg, deps)
	require.NoError(t, err)

	require.NoError(t, p.Tick(0.02))
	assert.Equal(t, 1, p.Resets())
}

func TestMoveTowardsTargetWhenFar(t *testing.T) {
	cfg := DefaultConfig()
	r := newRig(t, cfg.Spawn)
	deps := r.deps(t)
	deps.Tree = mustTree(t, captureTree)
	deps.Evader = &fakeTarget{pos: common.Vec3{Z: -10}}
	p, err := New(cfg, deps)
	require.NoError(t, err)

	require.NoError(t, p.Tick(0.02))
	assert.Equal(t, behavior.ActionMoveTowardsTarget, p.LastAction())
	assert.InDelta(t, 1, p.LastCommand().Forward, 1e-6)
	assert.Equal(t, 0, p.Resets())
}

func TestLaserKillsWhenActive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = component.Spawn{}
	r := newRig(t, cfg.Spawn)

	evaderEntity := r.world.CreateEntity()
	evaderBody := r.physics.AddAgent(evaderEntity, component.TagEvader, component.Spawn{Position: common.Vec3{X: 1.5}}, 0.5, 1)

	sink := &recordingSink{}
	deps := r.deps(t)
	deps.Tree = mustTree(t, `{"type":"ActionNode","action":"FireLaser"}`)
	deps.Evader = bodyTarget{body: evaderBody}
	deps.Sink = sink
	p, err := New(cfg, deps)
	require.NoError(t, err)

	require.NoError(t, p.Tick(0.02))
	assert.Empty(t, sink.outcomes, "laser was not active during the first sense")
	assert.Equal(t, "evader", p.SensorReading().HitTag)
	assert.InDelta(t, 0.4, p.SensorReading().Distance, 1e-6)
	assert.True(t, p.Weapon().Active())

	require.NoError(t, p.Tick(0.02))
	require.Len(t, sink.outcomes, 1)
	assert.Equal(t, component.ReasonKill, sink.outcomes[0].Reason)
	assert.Equal(t, component.TagEvader, sink.outcomes[0].Tag)
	assert.Equal(t, behavior.ActionNone, p.LastAction())
	assert.Equal(t, 1, p.Weapon().State().ShotsFired)
}

func TestLaserOutOfReachDoesNotKill(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn = component.Spawn{}
	r := newRig(t, cfg.Spawn)
	evaderBody := r.physics.AddAgent(r.world.CreateEntity(), component.TagEvader, component.Spawn{Position: common.Vec3{X: 4}}, 0.5, 1)

	sink := &recordingSink{}
	deps := r.deps(t)
	deps.Tree = mustTree(t, `{"type":"DecisionNode","condition":"LaserDistanceToEntity","args":["evader","5"],
		"trueNode":{"type":"ActionNode","action":"FireLaser"},
		"falseNode":{"type":"ActionNode","action":"Idle"}}`)
	deps.Evader = bodyTarget{body: evaderBody}
	deps.Sink = sink
	p, err := New(cfg, deps)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Tick(0.02))
	}
	assert.Empty(t, sink.outcomes)
	assert.Equal(t, 3, p.Weapon().State().ShotsFired)
}

func TestInitializeRestoresEpisodeState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyPath
	r := newRig(t, cfg.Spawn)
	evader := &fakeTarget{pos: common.Vec3{X: 9}, spawn: common.Vec3{X: -2}}

	deps := r.deps(t)
	deps.Path = &Path{
		Waypoints:       []common.Vec3{cfg.Spawn.Position, {X: 20}},
		CaptureDistance: 0.5,
		FinalAction:     behavior.ActionMoveTowardsTarget,
	}
	deps.Evader = evader
	p, err := New(cfg, deps)
	require.NoError(t, err)

	require.NoError(t, p.Tick(0.02))
	require.Equal(t, 1, p.Follower().Index())
	p.FireLaser()
	p.FireLaser()
	r.body.Body.SetVelocityVector(cp.Vector{X: 1, Y: 1})
	r.body.Body.SetAngularVelocity(3)
	r.physics.Teleport(r.body.Body, cp.Vector{X: 7, Y: 7}, 1)

	for i := 0; i < 2; i++ {
		p.Initialize()

		k := p.Kinematics()
		assert.Equal(t, 0, p.Weapon().State().ShotsFired)
		assert.Equal(t, 0.0, p.Weapon().State().ActiveTimeRemaining)
		assert.Equal(t, common.Vec3{}, k.Velocity)
		assert.Equal(t, 0.0, k.AngularVelocity)
		assert.InDelta(t, 0, k.Position.Distance(cfg.Spawn.Position), 1e-9)
		assert.InDelta(t, cfg.Spawn.YawDeg, k.YawDeg, 1e-9)
		assert.Equal(t, 0, p.Follower().Index())
		assert.False(t, p.Follower().Direct())
		assert.Equal(t, evader.spawn, evader.pos)
	}
	assert.Equal(t, 2, evader.resets)
}

func TestScenarioDirectPursuitIsSticky(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyPath
	cfg.Spawn = component.Spawn{Position: common.Vec3{Z: 10}, YawDeg: -90}
	r := newRig(t, cfg.Spawn)
	waypoint := common.Vec3{}

	deps := r.deps(t)
	deps.Path = &Path{Waypoints: []common.Vec3{waypoint}, CaptureDistance: 0.5, FinalAction: behavior.ActionMoveTowardsTarget}
	deps.Evader = &fakeTarget{pos: common.Vec3{Z: -50}}
	p, err := New(cfg, deps)
	require.NoError(t, err)

	pos := func() common.Vec3 { return p.Kinematics().Position }
	assert.InDelta(t, 10, pos().Distance(waypoint), 1e-9)

	ticks := 0
	for !p.Follower().Direct() {
		require.Less(t, ticks, 2000, "waypoint never reached")
		before := pos().Distance(waypoint)
		r.step(t, p, 0.02)
		if !p.Follower().Direct() {
			assert.Greater(t, before, 0.5)
		} else {
			assert.LessOrEqual(t, before, 0.5)
		}
		ticks++
	}
	assert.Equal(t, 1, p.Follower().Index())

	for i := 0; pos().Distance(waypoint) <= 0.5; i++ {
		require.Less(t, i, 500, "pursuer never left the waypoint")
		r.step(t, p, 0.02)
		require.True(t, p.Follower().Direct())
	}
	for i := 0; i < 50; i++ {
		r.step(t, p, 0.02)
		require.True(t, p.Follower().Direct())
		assert.Equal(t, behavior.ActionMoveTowardsTarget, p.LastAction())
	}
	assert.Greater(t, pos().Distance(waypoint), 0.5)
	assert.Equal(t, 0, p.Resets())
}

func TestPathCaptureAfterWaypoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyPath
	r := newRig(t, cfg.Spawn)
	sink := &recordingSink{}

	deps := r.deps(t)
	deps.Path = &Path{CaptureDistance: 0.5, FinalAction: behavior.ActionIdle}
	deps.Evader = &fakeTarget{pos: cfg.Spawn.Position}
	deps.Sink = sink
	p, err := New(cfg, deps)
	require.NoError(t, err)
	require.True(t, p.Follower().Direct(), "an empty route starts in direct pursuit")

	require.NoError(t, p.Tick(0.02))
	require.Len(t, sink.outcomes, 1)
	assert.Equal(t, component.ReasonCapture, sink.outcomes[0].Reason)
}

func TestAvoidObstacleNudgesTransform(t *testing.T) {
	cfg := DefaultConfig()
	r := newRig(t, cfg.Spawn)
	deps := r.deps(t)
	deps.Tree = mustTree(t, `{"type":"ActionNode","action":"AvoidObstacle"}`)
	p, err := New(cfg, deps)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		before := p.Kinematics()
		require.NoError(t, p.Tick(0.02))
		after := p.Kinematics()

		assert.InDelta(t, cfg.MoveSpeed*0.02, after.Position.Distance(before.Position), 1e-9)
		turn := math.Remainder(after.YawDeg-before.YawDeg, 360)
		assert.LessOrEqual(t, math.Abs(turn), cfg.AvoidTurnDeg+1e-9)
	}
}

func TestManualStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyManual
	r := newRig(t, cfg.Spawn)
	p, err := New(cfg, r.deps(t))
	require.NoError(t, err)

	p.SetManualInput(ManualInputFromKeys(true, false, true, false))
	require.NoError(t, p.Tick(0.02))
	cmd := p.LastCommand()
	assert.Equal(t, 1.0, cmd.Forward)
	assert.Equal(t, 1.0, cmd.Turn)
	assert.InDelta(t, cfg.MoveSpeed, cmd.Force.Length(), 1e-9)
}

func TestNewRejectsMissingDeps(t *testing.T) {
	cfg := DefaultConfig()
	r := newRig(t, cfg.Spawn)

	_, err := New(cfg, Deps{})
	assert.ErrorContains(t, err, "body is required")

	_, err = New(cfg, r.deps(t))
	assert.ErrorContains(t, err, "needs a behavior tree")

	cfg.Strategy = StrategyPath
	_, err = New(cfg, r.deps(t))
	assert.ErrorContains(t, err, "needs a path")

	cfg.DragFactor = 1.5
	_, err = New(cfg, r.deps(t))
	assert.ErrorContains(t, err, "drag_factor")
}

func TestPursuerWithoutPhysicsDegradesSensor(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	r := newRig(t, cfg.Spawn)
	deps := r.deps(t)
	deps.Physics = nil
	deps.Logger = log.New(&buf, "", 0)
	deps.Tree = mustTree(t, `{"type":"ActionNode","action":"Idle"}`)
	p, err := New(cfg, deps)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Tick(0.02))
		assert.Equal(t, cfg.SensorRange, p.SensorReading().Distance)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "no anchor"))
}

func TestZeroShotBudgetNeverFires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxShots = 0
	r := newRig(t, cfg.Spawn)
	deps := r.deps(t)
	deps.Tree = mustTree(t, `{"type":"ActionNode","action":"FireLaser"}`)
	p, err := New(cfg, deps)
	require.NoError(t, err)

	r.step(t, p, 0.02)
	assert.Equal(t, 0, p.Weapon().State().MaxShots)
	assert.Equal(t, 0, p.Weapon().State().ShotsFired)
	assert.False(t, p.Weapon().Active())
}
