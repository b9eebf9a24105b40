package component

// Reward accumulates outcome values for one agent within an episode.
type Reward struct {
	Episode float64
	Total   float64
}

func (r *Reward) Add(v float64) {
	r.Episode += v
	r.Total += v
}

func (r *Reward) ResetEpisode() {
	r.Episode = 0
}
