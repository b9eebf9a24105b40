package system

import (
	"log"

	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
)

// EpisodeRecord summarises one finished episode.
type EpisodeRecord struct {
	Index    int
	Outcome  component.Outcome
	Duration float64
	Reward   float64
}

// EpisodeManager bounds episodes in time and count, scores outcomes, and
// runs every participant's reset when an episode ends. It is the
// component.EpisodeSink for the pursuer and the trigger router.
type EpisodeManager struct {
	cfg    prefabs.EpisodeSpec
	logger *log.Logger
	reward *component.Reward
	resets []func()

	timer    float64
	episode  int
	counts   map[component.Reason]int
	history  []EpisodeRecord
	finished bool
}

func NewEpisodeManager(cfg prefabs.EpisodeSpec, reward *component.Reward, logger *log.Logger) *EpisodeManager {
	if logger == nil {
		logger = log.Default()
	}
	if reward == nil {
		reward = &component.Reward{}
	}
	return &EpisodeManager{
		cfg:    cfg,
		logger: logger,
		reward: reward,
		counts: make(map[component.Reason]int),
	}
}

// OnReset registers a participant reset, run in registration order.
func (m *EpisodeManager) OnReset(fn func()) {
	if fn != nil {
		m.resets = append(m.resets, fn)
	}
}

// EndEpisode scores o and restarts. An outcome with no reward takes the
// configured reward for its reason. Outcomes arriving within the debounce
// window of the previous restart are dropped.
func (m *EpisodeManager) EndEpisode(o component.Outcome) {
	if o.Reward == 0 {
		o.Reward = m.cfg.Rewards[o.Reason]
	}
	if m.timer <= m.cfg.Debounce {
		return
	}

	m.reward.Add(o.Reward)
	m.counts[o.Reason]++
	m.history = append(m.history, EpisodeRecord{
		Index:    m.episode,
		Outcome:  o,
		Duration: m.timer,
		Reward:   m.reward.Episode,
	})
	m.logger.Printf("%s reward=%.2f", o, o.Reward)

	m.episode++
	m.logger.Printf("Starting Episode %d", m.episode)
	for _, reset := range m.resets {
		reset()
	}
	m.reward.ResetEpisode()
	m.timer = 0
}

// Update advances the episode clock and ends the episode on timeout.
func (m *EpisodeManager) Update(w *ecs.World, dt float64) {
	if m.finished {
		return
	}
	m.timer += dt
	if m.timer >= m.cfg.MaxTime {
		m.logger.Printf("Time's up! Episode restart.")
		m.EndEpisode(component.Outcome{Reason: component.ReasonTimeout})
	}
	if m.Done() {
		m.finished = true
		m.logger.Printf("Max episodes reached.")
	}
}

// Done reports whether the episode budget is spent. A zero budget never
// finishes.
func (m *EpisodeManager) Done() bool {
	return m.cfg.MaxEpisodes > 0 && m.episode >= m.cfg.MaxEpisodes
}

func (m *EpisodeManager) Episode() int {
	return m.episode
}

func (m *EpisodeManager) Timer() float64 {
	return m.timer
}

// Count returns how many episodes ended for reason.
func (m *EpisodeManager) Count(reason component.Reason) int {
	return m.counts[reason]
}

func (m *EpisodeManager) History() []EpisodeRecord {
	return append([]EpisodeRecord(nil), m.history...)
}

func (m *EpisodeManager) Reward() component.Reward {
	return *m.reward
}
