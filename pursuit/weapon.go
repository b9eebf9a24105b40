package pursuit

import "log"

// WeaponState is the weapon's per-episode budget and activity.
type WeaponState struct {
	ShotsFired          int
	MaxShots            int
	ActiveTimeRemaining float64
}

// Weapon is a directed laser with a per-episode shot budget. Each shot stays
// active for a fixed duration.
type Weapon struct {
	state    WeaponState
	duration float64
	logger   *log.Logger
}

func NewWeapon(maxShots int, duration float64, logger *log.Logger) *Weapon {
	if logger == nil {
		logger = log.Default()
	}
	if maxShots < 0 {
		maxShots = 0
	}
	return &Weapon{
		state:    WeaponState{MaxShots: maxShots},
		duration: duration,
		logger:   logger,
	}
}

// Fire spends one shot and activates the laser. Once the budget is spent it
// logs and leaves the state untouched.
func (w *Weapon) Fire() bool {
	if w.state.ShotsFired >= w.state.MaxShots {
		w.logger.Printf("weapon: fire ignored, budget exhausted (%d/%d)", w.state.ShotsFired, w.state.MaxShots)
		return false
	}
	w.state.ShotsFired++
	w.state.ActiveTimeRemaining = w.duration
	w.logger.Printf("weapon: laser fired (%d/%d)", w.state.ShotsFired, w.state.MaxShots)
	return true
}

// Tick counts the active window down by dt.
func (w *Weapon) Tick(dt float64) {
	if w.state.ActiveTimeRemaining <= 0 {
		return
	}
	w.state.ActiveTimeRemaining -= dt
	if w.state.ActiveTimeRemaining <= 0 {
		w.state.ActiveTimeRemaining = 0
	}
}

// Active reports whether a shot is in flight.
func (w *Weapon) Active() bool {
	return w.state.ActiveTimeRemaining > 0
}

func (w *Weapon) State() WeaponState {
	return w.state
}

// Reset restores the full budget.
func (w *Weapon) Reset() {
	w.state.ShotsFired = 0
	w.state.ActiveTimeRemaining = 0
}
