package prefabs

import (
	"errors"
	"fmt"

	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/pursuit"
	"gopkg.in/yaml.v3"
)

// DefaultScene is the scene used when none is named.
const DefaultScene = "scene.yaml"

// LoadSpec decodes the named YAML prefab over base. Keys the document
// omits keep base's values, so zero values in the document are honoured.
func LoadSpec[T any](filename string, base T) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	spec := base
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// SceneSpec describes one arena: the two agents, the target, static walls,
// and how episodes are scored and bounded.
type SceneSpec struct {
	Name string  `yaml:"name"`
	DT   float64 `yaml:"dt"`
	Seed int64   `yaml:"seed"`

	Episode  EpisodeSpec   `yaml:"episode"`
	Log      LogSpec       `yaml:"log"`
	Pursuer  PursuerSpec   `yaml:"pursuer"`
	Evader   EvaderSpec    `yaml:"evader"`
	Target   TargetSpec    `yaml:"target"`
	Walls    []WallSpec    `yaml:"walls"`
	Rescue   RescueSpec    `yaml:"rescue"`
	Triggers []TriggerSpec `yaml:"triggers"`
}

// EpisodeSpec bounds episodes. A zero MaxEpisodes runs without limit and a
// zero Debounce accepts every outcome after the first tick.
type EpisodeSpec struct {
	MaxTime     float64                      `yaml:"max_time"`
	MaxEpisodes int                          `yaml:"max_episodes"`
	Debounce    float64                      `yaml:"debounce"`
	Rewards     map[component.Reason]float64 `yaml:"rewards"`
}

type LogSpec struct {
	Dir      string  `yaml:"dir"`
	Interval float64 `yaml:"interval"`
}

// PursuerSpec names the pursuer's tree and path documents next to its
// tunables.
type PursuerSpec struct {
	Tree string `yaml:"tree"`
	Path string `yaml:"path"`

	pursuit.Config `yaml:",inline"`
}

type EvaderSpec struct {
	Script    string          `yaml:"script"`
	MoveSpeed float64         `yaml:"move_speed"`
	TurnSpeed float64         `yaml:"turn_speed"`
	Smoothing float64         `yaml:"smoothing"`
	Radius    float64         `yaml:"radius"`
	Mass      float64         `yaml:"mass"`
	RandomYaw bool            `yaml:"random_yaw"`
	Spawn     component.Spawn `yaml:"spawn"`
}

type TargetSpec struct {
	Position common.Vec3 `yaml:"position"`
	Radius   float64     `yaml:"radius"`
	// Randomize is the half-extent of the square the target is re-placed in
	// at each episode start. Zero keeps Position.
	Randomize float64 `yaml:"randomize"`
}

type WallSpec struct {
	From      common.Vec3 `yaml:"from"`
	To        common.Vec3 `yaml:"to"`
	Thickness float64     `yaml:"thickness"`
}

type RescueSpec struct {
	Subject component.Tag      `yaml:"subject"`
	Objects []RescueObjectSpec `yaml:"objects"`
}

type RescueObjectSpec struct {
	Position common.Vec3 `yaml:"position"`
	Radius   float64     `yaml:"radius"`
}

// TriggerSpec maps a contact between Subject and Other onto an outcome.
type TriggerSpec struct {
	Subject     component.Tag    `yaml:"subject"`
	Other       component.Tag    `yaml:"other"`
	Reward      float64          `yaml:"reward"`
	Reason      component.Reason `yaml:"reason"`
	EndsEpisode bool             `yaml:"ends_episode"`
}

// DefaultSceneSpec is the scene every document is decoded over.
func DefaultSceneSpec() SceneSpec {
	return SceneSpec{
		DT: 0.02,
		Episode: EpisodeSpec{
			MaxTime:     10,
			MaxEpisodes: 9,
			Debounce:    0.1,
			Rewards: map[component.Reason]float64{
				component.ReasonSuccess:   1,
				component.ReasonCollision: -0.1,
				component.ReasonCapture:   -0.3,
				component.ReasonKill:      -0.3,
				component.ReasonTimeout:   -0.1,
			},
		},
		Log: LogSpec{Interval: 0.1},
		Pursuer: PursuerSpec{
			Tree:   "tree.json",
			Path:   "path.json",
			Config: pursuit.DefaultConfig(),
		},
		Evader: EvaderSpec{
			Script:    "evader.tengo",
			MoveSpeed: 4,
			TurnSpeed: 200,
			Smoothing: 20,
			Radius:    0.5,
			Mass:      1,
		},
		Target: TargetSpec{Radius: 0.5},
		Rescue: RescueSpec{Subject: component.TagEvader},
	}
}

// LoadScene loads and validates a scene. Omitted keys take
// DefaultSceneSpec's values.
func LoadScene(name string) (SceneSpec, error) {
	if name == "" {
		name = DefaultScene
	}
	spec, err := LoadSpec(name, DefaultSceneSpec())
	if err != nil {
		return SceneSpec{}, err
	}
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return SceneSpec{}, fmt.Errorf("prefabs: %s: %w", name, err)
	}
	return spec, nil
}

// WithDefaults fills fields whose zero value cannot run, such as a zero tick
// or an unnamed document. Zero episode budgets, debounce windows and evader
// speeds are kept.
func (s SceneSpec) WithDefaults() SceneSpec {
	d := DefaultSceneSpec()
	if s.DT == 0 {
		s.DT = d.DT
	}
	if s.Episode.MaxTime == 0 {
		s.Episode.MaxTime = d.Episode.MaxTime
	}
	if s.Log.Interval == 0 {
		s.Log.Interval = d.Log.Interval
	}
	if s.Pursuer.Tree == "" {
		s.Pursuer.Tree = d.Pursuer.Tree
	}
	if s.Pursuer.Path == "" {
		s.Pursuer.Path = d.Pursuer.Path
	}
	s.Pursuer.Config = s.Pursuer.Config.WithDefaults()
	if s.Evader.Script == "" {
		s.Evader.Script = d.Evader.Script
	}
	if s.Evader.Radius == 0 {
		s.Evader.Radius = d.Evader.Radius
	}
	if s.Evader.Mass == 0 {
		s.Evader.Mass = d.Evader.Mass
	}
	if s.Target.Radius == 0 {
		s.Target.Radius = d.Target.Radius
	}
	if s.Rescue.Subject == "" {
		s.Rescue.Subject = d.Rescue.Subject
	}
	return s
}

func (s SceneSpec) Validate() error {
	var errs []error
	if s.DT <= 0 {
		errs = append(errs, fmt.Errorf("dt must be > 0, got %g", s.DT))
	}
	if s.Episode.MaxTime <= 0 {
		errs = append(errs, fmt.Errorf("episode.max_time must be > 0, got %g", s.Episode.MaxTime))
	}
	if s.Episode.MaxEpisodes < 0 {
		errs = append(errs, fmt.Errorf("episode.max_episodes must be >= 0, got %d", s.Episode.MaxEpisodes))
	}
	if s.Log.Interval <= 0 {
		errs = append(errs, fmt.Errorf("log.interval must be > 0, got %g", s.Log.Interval))
	}
	if s.Evader.Smoothing < 0 {
		errs = append(errs, fmt.Errorf("evader.smoothing must be >= 0, got %g", s.Evader.Smoothing))
	}
	for i, t := range s.Triggers {
		if t.Subject == "" || t.Other == "" {
			errs = append(errs, fmt.Errorf("triggers[%d]: subject and other are required", i))
		}
		if t.EndsEpisode && t.Reason == "" {
			errs = append(errs, fmt.Errorf("triggers[%d]: reason is required when ends_episode is set", i))
		}
	}
	if err := s.Pursuer.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
