package system

import (
	"log"

	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
)

// TriggerPolicy scores a contact between a subject and another tag.
type TriggerPolicy struct {
	Subject     component.Tag
	Other       component.Tag
	Reward      float64
	Reason      component.Reason
	EndsEpisode bool
}

// DefaultTriggerPolicies are the evader's contact rewards: reaching the
// target succeeds, touching a wall or the pursuer is penalised, and each
// ends the episode.
func DefaultTriggerPolicies() []TriggerPolicy {
	return []TriggerPolicy{
		{Subject: component.TagEvader, Other: component.TagTarget, Reward: 1, Reason: component.ReasonSuccess, EndsEpisode: true},
		{Subject: component.TagEvader, Other: component.TagWall, Reward: -0.1, Reason: component.ReasonCollision, EndsEpisode: true},
		{Subject: component.TagEvader, Other: component.TagPursuer, Reward: -0.3, Reason: component.ReasonCapture, EndsEpisode: true},
	}
}

// TriggerPoliciesFromSpec converts scene trigger entries. An empty list
// yields the defaults.
func TriggerPoliciesFromSpec(specs []prefabs.TriggerSpec) []TriggerPolicy {
	if len(specs) == 0 {
		return DefaultTriggerPolicies()
	}
	out := make([]TriggerPolicy, 0, len(specs))
	for _, s := range specs {
		out = append(out, TriggerPolicy{
			Subject:     s.Subject,
			Other:       s.Other,
			Reward:      s.Reward,
			Reason:      s.Reason,
			EndsEpisode: s.EndsEpisode,
		})
	}
	return out
}

type tagPair struct {
	subject component.Tag
	other   component.Tag
}

// TriggerRouter turns physics contacts into episode outcomes and tracks
// which subjects currently overlap a rescue object.
type TriggerRouter struct {
	phys     *ecs.PhysicsWorld
	sink     component.EpisodeSink
	logger   *log.Logger
	policies map[tagPair]TriggerPolicy
	rescuers map[component.Tag]bool
	pickable map[ecs.Entity]int
}

func NewTriggerRouter(phys *ecs.PhysicsWorld, sink component.EpisodeSink, policies []TriggerPolicy, logger *log.Logger) *TriggerRouter {
	if logger == nil {
		logger = log.Default()
	}
	r := &TriggerRouter{
		phys:     phys,
		sink:     sink,
		logger:   logger,
		policies: make(map[tagPair]TriggerPolicy, len(policies)),
		rescuers: make(map[component.Tag]bool),
		pickable: make(map[ecs.Entity]int),
	}
	for _, p := range policies {
		r.policies[tagPair{p.Subject, p.Other}] = p
		phys.WatchContacts(p.Subject, p.Other)
	}
	return r
}

// WatchRescue tracks subject's overlap with rescue objects.
func (r *TriggerRouter) WatchRescue(subject component.Tag) {
	r.rescuers[subject] = true
	r.phys.WatchContacts(subject, component.TagRescue)
}

// Pickable reports whether e currently overlaps a rescue object.
func (r *TriggerRouter) Pickable(e ecs.Entity) bool {
	return r.pickable[e] > 0
}

// ResetPickable clears rescue overlap state.
func (r *TriggerRouter) ResetPickable() {
	clear(r.pickable)
}

// Update consumes the tick's contact events.
func (r *TriggerRouter) Update(w *ecs.World, dt float64) {
	for _, evt := range w.Events().Drain() {
		if c, ok := evt.Data.(ecs.ContactEvent); ok && evt.Type == ecs.EventContact {
			r.handle(w, c)
		}
	}
}

// handle routes c once from each side's point of view.
func (r *TriggerRouter) handle(w *ecs.World, c ecs.ContactEvent) {
	r.route(w, c, c.A, component.Tag(c.TagA), component.Tag(c.TagB))
	r.route(w, c, c.B, component.Tag(c.TagB), component.Tag(c.TagA))
}

func (r *TriggerRouter) route(w *ecs.World, c ecs.ContactEvent, subject ecs.Entity, tag, other component.Tag) {
	if other == component.TagRescue && r.rescuers[tag] {
		switch c.Kind {
		case ecs.ContactBegin:
			r.pickable[subject]++
		case ecs.ContactSeparate:
			if r.pickable[subject] > 0 {
				r.pickable[subject]--
			}
		}
		return
	}

	if c.Kind != ecs.ContactBegin {
		return
	}
	p, ok := r.policies[tagPair{tag, other}]
	if !ok {
		return
	}
	if !p.EndsEpisode {
		if rw, ok := w.Rewards().Get(subject); ok && rw != nil {
			rw.Add(p.Reward)
		}
		return
	}
	if r.sink == nil {
		return
	}
	r.logger.Printf("trigger: %s touched %s", entityLabel(w, subject, tag), entityLabel(w, otherEntity(c, subject), other))
	r.sink.EndEpisode(component.Outcome{Reason: p.Reason, Tag: other, Reward: p.Reward})
}

func otherEntity(c ecs.ContactEvent, subject ecs.Entity) ecs.Entity {
	if c.A == subject {
		return c.B
	}
	return c.A
}

// entityLabel prefers an entity's name over its tag.
func entityLabel(w *ecs.World, e ecs.Entity, tag component.Tag) string {
	if name, ok := w.Names().Get(e); ok && name != "" {
		return name
	}
	return string(tag)
}
