package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/xmy86/chase/behavior"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
	"github.com/xmy86/chase/pursuit"
)

// Options adjust how a scene is assembled.
type Options struct {
	Logger *log.Logger
	// LogDir overrides the scene's log directory. With neither set no
	// snapshot log is written.
	LogDir string
	// Strategy overrides the scene's pursuer strategy.
	Strategy pursuit.Strategy
}

// Simulation is one arena: a world, its physics, and the systems that run a
// chase episode after episode. A Simulation is owned by one goroutine.
type Simulation struct {
	Scene     prefabs.SceneSpec
	World     *ecs.World
	Physics   *ecs.PhysicsWorld
	Pursuer   *pursuit.Pursuer
	Evader    *Evader
	Target    *Target
	Triggers  *TriggerRouter
	Episodes  *EpisodeManager
	Snapshots *SnapshotLog

	pursuerSystem *PursuerSystem
	logger        *log.Logger
}

// NewSimulation builds scene. Tree, path and script documents are read
// through prefabs, so on-disk copies override the embedded ones.
func NewSimulation(scene prefabs.SceneSpec, opts Options) (*Simulation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := scene.Pursuer.Config
	if opts.Strategy != "" {
		cfg.Strategy = opts.Strategy
	}

	sim := &Simulation{Scene: scene, World: ecs.NewWorld(), Physics: ecs.NewPhysicsWorld(logger)}
	sim.World.SetPhysicsWorld(sim.Physics)

	logDir := opts.LogDir
	if logDir == "" {
		logDir = scene.Log.Dir
	}
	if logDir != "" {
		snap, err := OpenSnapshotLog(logDir, scene.Log.Interval)
		if err != nil {
			return nil, err
		}
		sim.Snapshots = snap
		logger = log.New(io.MultiWriter(logger.Writer(), snap.Messages()), "", 0)
		logger.Printf("Scene %s, run %s", scene.Name, snap.RunID())
	}
	sim.logger = logger

	rng := rand.New(rand.NewSource(scene.Seed))
	w := sim.World

	for _, wall := range scene.Walls {
		e := w.CreateEntity()
		w.Tags().Set(e, component.TagWall)
		sim.Physics.AddWall(e, component.TagWall, wall.From, wall.To, wall.Thickness)
	}
	for i, obj := range scene.Rescue.Objects {
		e := w.CreateEntity()
		w.Tags().Set(e, component.TagRescue)
		w.Names().Set(e, fmt.Sprintf("rescue-%d", i))
		w.Spawns().Set(e, component.Spawn{Position: obj.Position})
		sim.Physics.AddTrigger(e, component.TagRescue, obj.Position, obj.Radius)
	}
	sim.Target = NewTarget(w, sim.Physics, scene.Target, rng)

	evaderEntity := w.CreateEntity()
	w.Tags().Set(evaderEntity, component.TagEvader)
	w.Names().Set(evaderEntity, "evader")
	w.Spawns().Set(evaderEntity, scene.Evader.Spawn)
	reward := &component.Reward{}
	w.Rewards().Set(evaderEntity, reward)
	evaderBody := sim.Physics.AddAgent(evaderEntity, component.TagEvader, scene.Evader.Spawn, scene.Evader.Radius, scene.Evader.Mass)
	w.Bodies().Set(evaderEntity, evaderBody)

	src, err := prefabs.LoadScript(scene.Evader.Script)
	if err != nil {
		return nil, fmt.Errorf("load evader script %s: %w", scene.Evader.Script, err)
	}
	sim.Evader, err = NewEvader(scene.Evader, evaderEntity, evaderBody, sim.Physics, src, rng, logger)
	if err != nil {
		return nil, err
	}

	pursuerEntity := w.CreateEntity()
	w.Tags().Set(pursuerEntity, component.TagPursuer)
	w.Names().Set(pursuerEntity, "pursuer")
	w.Spawns().Set(pursuerEntity, cfg.Spawn)
	pursuerBody := sim.Physics.AddAgent(pursuerEntity, component.TagPursuer, cfg.Spawn, cfg.Radius, cfg.Mass)
	w.Bodies().Set(pursuerEntity, pursuerBody)

	sim.Episodes = NewEpisodeManager(scene.Episode, reward, logger)
	deps := pursuit.Deps{
		Physics: sim.Physics,
		Entity:  pursuerEntity,
		Body:    pursuerBody,
		Evader:  sim.Evader,
		Sink:    sim.Episodes,
		Logger:  logger,
	}
	switch cfg.Strategy {
	case pursuit.StrategyTree:
		if deps.Tree, err = LoadTree(scene.Pursuer.Tree); err != nil {
			return nil, err
		}
	case pursuit.StrategyPath:
		if deps.Path, err = LoadPath(scene.Pursuer.Path); err != nil {
			return nil, err
		}
	}
	sim.Pursuer, err = pursuit.New(cfg, deps)
	if err != nil {
		return nil, err
	}

	sim.Triggers = NewTriggerRouter(sim.Physics, sim.Episodes, TriggerPoliciesFromSpec(scene.Triggers), logger)
	sim.Triggers.WatchRescue(scene.Rescue.Subject)

	sim.Episodes.OnReset(sim.Pursuer.Initialize)
	if !sim.Pursuer.ResetsEvader() {
		sim.Episodes.OnReset(sim.Evader.Reset)
	}
	sim.Episodes.OnReset(sim.Target.Reset)
	sim.Episodes.OnReset(sim.Triggers.ResetPickable)

	sim.pursuerSystem = NewPursuerSystem(sim.Pursuer, logger)
	w.AddSystem(sim.Evader)
	w.AddSystem(sim.pursuerSystem)
	w.AddSystem(NewPhysicsSystem(sim.Physics, sim.Pursuer.AfterStep))
	w.AddSystem(sim.Triggers)
	w.AddSystem(sim.Episodes)
	if sim.Snapshots != nil {
		sim.Snapshots.LaserActive = sim.Pursuer.Weapon().Active
		w.AddSystem(sim.Snapshots)
	}

	sim.Reset()
	return sim, nil
}

// LoadTree reads and parses a behavior tree prefab.
func LoadTree(name string) (*behavior.Tree, error) {
	data, err := prefabs.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", name, err)
	}
	tree, err := behavior.ParseNamed(name, data)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", name, err)
	}
	return tree, nil
}

// LoadPath reads and parses a waypoint path prefab.
func LoadPath(name string) (*pursuit.Path, error) {
	data, err := prefabs.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load path %s: %w", name, err)
	}
	p, err := pursuit.ParsePath(data)
	if err != nil {
		return nil, fmt.Errorf("load path %s: %w", name, err)
	}
	return p, nil
}

// Reset puts every participant at its spawn without counting an episode.
func (s *Simulation) Reset() {
	s.Pursuer.Initialize()
	if !s.Pursuer.ResetsEvader() {
		s.Evader.Reset()
	}
	s.Target.Reset()
	s.Triggers.ResetPickable()
}

// Step advances the simulation by one scene tick.
func (s *Simulation) Step() {
	s.World.Update(s.Scene.DT)
}

// Done reports whether the episode budget is spent.
func (s *Simulation) Done() bool {
	return s.Episodes.Done()
}

// Err returns the last pursuer tick error.
func (s *Simulation) Err() error {
	return s.pursuerSystem.Err()
}

// Run steps as fast as possible until the episode budget is spent, maxTicks
// ticks have run (0 means no limit), or ctx is cancelled.
func (s *Simulation) Run(ctx context.Context, maxTicks int) error {
	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		if s.Done() {
			return s.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
	return s.Err()
}

// RunRealtime steps once per scene tick of wall time on a behavior-tree
// ticker until the episode budget is spent or ctx is cancelled. The ticker
// goroutine is the simulation's only owner while it runs.
func (s *Simulation) RunRealtime(ctx context.Context) error {
	step := bt.New(func([]bt.Node) (bt.Status, error) {
		if s.Done() {
			return bt.Failure, nil
		}
		s.Step()
		return bt.Success, nil
	})
	ticker := bt.NewTickerStopOnFailure(ctx, time.Duration(s.Scene.DT*float64(time.Second)), step)
	<-ticker.Done()
	if err := ticker.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return s.Err()
}

// Close flushes and closes the snapshot log.
func (s *Simulation) Close() error {
	if s.Snapshots == nil {
		return nil
	}
	return s.Snapshots.Close()
}
