package system

import (
	"bytes"
	"context"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
	"github.com/xmy86/chase/pursuit"
)

func loadScene(t *testing.T) prefabs.SceneSpec {
	t.Helper()
	scene, err := prefabs.LoadScene("")
	require.NoError(t, err)
	return scene
}

func TestSimulationRunsEpisodes(t *testing.T) {
	cases := []struct {
		name     string
		strategy pursuit.Strategy
	}{
		{"tree", pursuit.StrategyTree},
		{"path", pursuit.StrategyPath},
		{"manual", pursuit.StrategyManual},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			scene := loadScene(t)
			scene.Episode.MaxTime = 2
			scene.Episode.MaxEpisodes = 3

			sim, err := NewSimulation(scene, Options{Logger: discardLogger(), Strategy: c.strategy})
			require.NoError(t, err)
			defer sim.Close()
			assert.Equal(t, c.strategy, sim.Pursuer.Config().Strategy)

			require.NoError(t, sim.Run(context.Background(), 5000))
			require.True(t, sim.Done())
			assert.Equal(t, 3, sim.Episodes.Episode())

			total := 0
			for _, r := range []component.Reason{
				component.ReasonSuccess,
				component.ReasonCapture,
				component.ReasonKill,
				component.ReasonCollision,
				component.ReasonTimeout,
			} {
				total += sim.Episodes.Count(r)
			}
			assert.Equal(t, 3, total)
			assert.Len(t, sim.Episodes.History(), 3)
		})
	}
}

func TestSimulationRunStopsAtMaxTicks(t *testing.T) {
	sim, err := NewSimulation(loadScene(t), Options{Logger: discardLogger()})
	require.NoError(t, err)
	defer sim.Close()

	require.NoError(t, sim.Run(context.Background(), 10))
	assert.Equal(t, uint64(10), sim.World.Tick())
	assert.False(t, sim.Done())
}

func TestSimulationRunHonoursContext(t *testing.T) {
	sim, err := NewSimulation(loadScene(t), Options{Logger: discardLogger()})
	require.NoError(t, err)
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sim.Run(ctx, 0), context.Canceled)
	assert.Equal(t, uint64(0), sim.World.Tick())
}

func TestSimulationRealtime(t *testing.T) {
	scene := loadScene(t)
	scene.Episode.MaxTime = 0.2
	scene.Episode.MaxEpisodes = 1

	sim, err := NewSimulation(scene, Options{Logger: discardLogger()})
	require.NoError(t, err)
	defer sim.Close()

	require.NoError(t, sim.RunRealtime(context.Background()))
	assert.True(t, sim.Done())
}

func TestSimulationWritesSnapshotLog(t *testing.T) {
	dir := t.TempDir()
	scene := loadScene(t)
	scene.Target.Position = common.Vec3{X: 5, Z: -5}
	scene.Target.Randomize = 0

	sim, err := NewSimulation(scene, Options{Logger: discardLogger(), LogDir: dir})
	require.NoError(t, err)
	require.NotNil(t, sim.Snapshots)

	require.NoError(t, sim.Run(context.Background(), 20))
	require.NoError(t, sim.Close())

	data, err := os.ReadFile(filepath.Join(dir, "Log.txt"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "[Log] Scene arena, run "+sim.Snapshots.RunID().String())
	assert.Contains(t, out, "Timestamp: 0.00\n")
	assert.Contains(t, out, "Target Position: (5.00, 0.00, -5.00)\n")
	assert.Equal(t, 4, strings.Count(out, "Laser Active: false\n"))
	assert.NotContains(t, out, "Laser Active: true")

	// The pursuer closes in from its spawn instead of holding position.
	assert.Less(t, sim.Pursuer.Kinematics().Position.Z, 3.45)
	assert.Equal(t, 0, sim.Pursuer.Weapon().State().ShotsFired)
}

func TestDefaultTreeClosesInBeforeFiring(t *testing.T) {
	var buf bytes.Buffer
	scene := loadScene(t)
	scene.Evader.MoveSpeed = 0
	scene.Evader.TurnSpeed = 0
	scene.Evader.RandomYaw = false
	scene.Target.Position = common.Vec3{X: 5, Z: -5}
	scene.Target.Randomize = 0

	sim, err := NewSimulation(scene, Options{Logger: log.New(&buf, "", 0)})
	require.NoError(t, err)
	defer sim.Close()

	// The evader starts 2.9 ahead of the laser anchor, inside the beam but
	// out of kill reach.
	require.NoError(t, sim.Run(context.Background(), 10))
	assert.Equal(t, 0, sim.Pursuer.Weapon().State().ShotsFired)
	assert.Less(t, sim.Pursuer.Kinematics().Position.Z, 3.5)

	require.NoError(t, sim.Run(context.Background(), 400))
	assert.GreaterOrEqual(t, sim.Episodes.Count(component.ReasonKill), 1)
	assert.NotContains(t, buf.String(), "budget exhausted")
}

func TestSimulationResetPlacesAgents(t *testing.T) {
	sim, err := NewSimulation(loadScene(t), Options{Logger: discardLogger()})
	require.NoError(t, err)
	defer sim.Close()

	require.NoError(t, sim.Run(context.Background(), 50))
	sim.Reset()

	k := sim.Pursuer.Kinematics()
	assert.InDelta(t, 0, k.Position.Distance(common.Vec3{Z: 3.5}), 1e-9)
	assert.InDelta(t, 0, sim.Evader.Position().Distance(common.Vec3{}), 1e-9)
	assert.Equal(t, 0, sim.Pursuer.Weapon().State().ShotsFired)
}

func TestNewSimulationMissingTree(t *testing.T) {
	scene := loadScene(t)
	scene.Pursuer.Tree = "missing.json"
	_, err := NewSimulation(scene, Options{Logger: discardLogger()})
	assert.ErrorContains(t, err, "load tree missing.json")
}

func TestTargetRandomize(t *testing.T) {
	w := ecs.NewWorld()
	phys := ecs.NewPhysicsWorld(discardLogger())
	spec := prefabs.TargetSpec{Position: common.Vec3{X: 2, Y: 0.3, Z: -2}, Radius: 0.5, Randomize: 3}
	target := NewTarget(w, phys, spec, rand.New(rand.NewSource(5)))
	assert.Equal(t, spec.Position, target.Position())

	seen := map[common.Vec3]bool{}
	for i := 0; i < 5; i++ {
		target.Reset()
		p := target.Position()
		assert.LessOrEqual(t, p.X, 3.0)
		assert.GreaterOrEqual(t, p.X, -3.0)
		assert.LessOrEqual(t, p.Z, 3.0)
		assert.GreaterOrEqual(t, p.Z, -3.0)
		seen[p] = true
	}
	assert.Greater(t, len(seen), 1)

	e, ok := w.FirstTagged(component.TagTarget)
	require.True(t, ok)
	assert.Equal(t, target.Entity(), e)
}

func TestTargetFixed(t *testing.T) {
	w := ecs.NewWorld()
	phys := ecs.NewPhysicsWorld(discardLogger())
	spec := prefabs.TargetSpec{Position: common.Vec3{X: 1, Z: 1}, Radius: 0.5}
	target := NewTarget(w, phys, spec, nil)
	target.Reset()
	assert.Equal(t, spec.Position, target.Position())
}

func TestEpisodeEndResetsEvaderOnce(t *testing.T) {
	for _, strategy := range []pursuit.Strategy{pursuit.StrategyTree, pursuit.StrategyPath} {
		t.Run(string(strategy), func(t *testing.T) {
			scene := loadScene(t)
			scene.Episode.MaxTime = 0.2

			sim, err := NewSimulation(scene, Options{Logger: discardLogger(), Strategy: strategy})
			require.NoError(t, err)
			defer sim.Close()
			assert.Equal(t, strategy == pursuit.StrategyPath, sim.Pursuer.ResetsEvader())
			require.Equal(t, 1, sim.Evader.Resets())

			for i := 0; i < 100 && sim.Episodes.Episode() == 0; i++ {
				sim.Step()
			}
			require.Equal(t, 1, sim.Episodes.Episode())
			assert.Equal(t, 2, sim.Evader.Resets())
		})
	}
}
