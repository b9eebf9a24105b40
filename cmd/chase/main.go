package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/ecs/system"
	"github.com/xmy86/chase/prefabs"
	"github.com/xmy86/chase/pursuit"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: chase <command> [flags]

commands:
  run    run pursuit episodes headless
  lint   check scene, tree, path and script configuration
`)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "lint":
		err = lintCmd(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Printf("chase: %v", err)
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	sceneName := fs.String("scene", prefabs.DefaultScene, "scene prefab name")
	dir := fs.String("prefabs", prefabs.Dir, "directory whose files override the embedded prefabs")
	logDir := fs.String("log-dir", "", "directory for Log<N>.txt trajectory logs (default: scene log.dir)")
	strategy := fs.String("strategy", "", "pursuer strategy override: tree, path or manual")
	realtime := fs.Bool("realtime", false, "pace ticks to wall time")
	maxTicks := fs.Int("max-ticks", 0, "stop after this many ticks (0 = until max_episodes)")
	_ = fs.Parse(args)

	prefabs.Dir = *dir
	scene, err := prefabs.LoadScene(*sceneName)
	if err != nil {
		return err
	}

	sim, err := system.NewSimulation(scene, system.Options{
		Logger:   log.Default(),
		LogDir:   *logDir,
		Strategy: pursuit.Strategy(*strategy),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sim.Close(); cerr != nil {
			log.Printf("chase: close log: %v", cerr)
		}
	}()
	if sim.Snapshots != nil {
		log.Printf("chase: logging to %s", sim.Snapshots.Path())
	}

	if *realtime {
		err = sim.RunRealtime(ctx)
	} else {
		err = sim.Run(ctx, *maxTicks)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	summarize(sim)
	return nil
}

func summarize(sim *system.Simulation) {
	ep := sim.Episodes
	fmt.Printf("episodes: %d  ticks: %d  sim time: %.2fs\n", ep.Episode(), sim.World.Tick(), sim.World.Elapsed())
	for _, r := range []component.Reason{
		component.ReasonSuccess,
		component.ReasonCapture,
		component.ReasonKill,
		component.ReasonCollision,
		component.ReasonTimeout,
	} {
		fmt.Printf("  %-9s %d\n", r, ep.Count(r))
	}
	fmt.Printf("evader reward: %.2f\n", ep.Reward().Total)
}

func lintCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	sceneName := fs.String("scene", prefabs.DefaultScene, "scene prefab name")
	dir := fs.String("prefabs", prefabs.Dir, "directory whose files override the embedded prefabs")
	watch := fs.Bool("watch", false, "re-check whenever a prefab file changes")
	_ = fs.Parse(args)

	prefabs.Dir = *dir
	err := lint(*sceneName)
	report(err)
	if !*watch {
		return err
	}

	w, err := prefabs.NewWatcher(*dir, filepath.Join(*dir, "scripts"))
	if err != nil {
		return fmt.Errorf("watch %s: %w", *dir, err)
	}
	defer w.Close()
	log.Printf("lint: watching %s", *dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}
			log.Printf("lint: %s changed", name)
			report(lint(*sceneName))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("lint: watch error: %v", err)
		}
	}
}

// lint loads every document the scene names.
func lint(sceneName string) error {
	scene, err := prefabs.LoadScene(sceneName)
	if err != nil {
		return err
	}
	var errs []error
	tree, err := system.LoadTree(scene.Pursuer.Tree)
	if err != nil {
		errs = append(errs, err)
	}
	if _, err := system.LoadPath(scene.Pursuer.Path); err != nil {
		errs = append(errs, err)
	}
	src, err := prefabs.LoadScript(scene.Evader.Script)
	if err != nil {
		errs = append(errs, fmt.Errorf("load evader script %s: %w", scene.Evader.Script, err))
	} else if err := system.CheckScript(scene.Evader.Script, src); err != nil {
		errs = append(errs, err)
	}
	if tree != nil && len(errs) == 0 {
		log.Printf("lint: %s tree (%d nodes, depth %d):", scene.Pursuer.Tree, tree.Len(), tree.Depth())
		if err := tree.Format(log.Writer()); err != nil {
			log.Printf("lint: print tree: %v", err)
		}
	}
	return errors.Join(errs...)
}

func report(err error) {
	if err != nil {
		log.Printf("lint: FAIL\n%v", err)
		return
	}
	log.Printf("lint: ok")
}
