package component

import "fmt"

// Reason says why an episode ended.
type Reason string

const (
	ReasonCapture   Reason = "capture"
	ReasonKill      Reason = "kill"
	ReasonTimeout   Reason = "timeout"
	ReasonCollision Reason = "collision"
	ReasonSuccess   Reason = "success"
)

// Outcome is emitted by the pursuit core or the trigger router when an
// episode should end. Episode management consumes it and owns the counters.
type Outcome struct {
	Reason Reason
	// Tag is the tag of the entity that caused the outcome, if any.
	Tag Tag
	// Reward is credited to the evader for this outcome.
	Reward float64
}

func (o Outcome) String() string {
	if o.Tag == "" {
		return fmt.Sprintf("episode ended: reason=%s", o.Reason)
	}
	return fmt.Sprintf("episode ended: reason=%s tag=%s", o.Reason, o.Tag)
}

// EpisodeSink receives outcomes. Implementations run the reset protocol for
// every participant before returning.
type EpisodeSink interface {
	EndEpisode(o Outcome)
}

// EpisodeSinkFunc adapts a function to EpisodeSink.
type EpisodeSinkFunc func(o Outcome)

func (f EpisodeSinkFunc) EndEpisode(o Outcome) {
	f(o)
}
