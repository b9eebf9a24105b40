package system

import (
	"log"

	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/pursuit"
)

// PursuerSystem ticks the pursuer before the physics step.
type PursuerSystem struct {
	pursuer *pursuit.Pursuer
	logger  *log.Logger
	err     error
}

func NewPursuerSystem(p *pursuit.Pursuer, logger *log.Logger) *PursuerSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &PursuerSystem{pursuer: p, logger: logger}
}

func (s *PursuerSystem) Update(w *ecs.World, dt float64) {
	if err := s.pursuer.Tick(dt); err != nil {
		if s.err == nil {
			s.logger.Printf("pursuer: tick %d: %v", w.Tick(), err)
		}
		s.err = err
	}
}

// Err returns the last tick error, if any.
func (s *PursuerSystem) Err() error {
	return s.err
}
