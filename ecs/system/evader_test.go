package system

import (
	"bytes"
	"log"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
	"github.com/xmy86/chase/prefabs"
)

func evaderSpec() prefabs.EvaderSpec {
	return prefabs.EvaderSpec{
		Script:    "test.tengo",
		MoveSpeed: 4,
		TurnSpeed: 200,
		Smoothing: 20,
		Spawn:     component.Spawn{Position: common.Vec3{X: 1, Z: -1}},
	}
}

func newTestEvader(t *testing.T, src string, logger *log.Logger) (*Evader, *ecs.World) {
	t.Helper()
	w := ecs.NewWorld()
	phys := ecs.NewPhysicsWorld(discardLogger())
	e := w.CreateEntity()
	w.Tags().Set(e, component.TagEvader)
	spec := evaderSpec()
	body := phys.AddAgent(e, component.TagEvader, spec.Spawn, 0.5, 1)
	w.Bodies().Set(e, body)
	ev, err := NewEvader(spec, e, body, phys, []byte(src), rand.New(rand.NewSource(3)), logger)
	require.NoError(t, err)
	return ev, w
}

const countingScript = `
reset := func(engine, state) {}
update := func(engine, state) {
	if is_undefined(state.n) { state.n = 0 }
	state.n = state.n + 1
	engine.move(0, state.n / 10.0)
}
`

func TestEvaderScriptDrivesBody(t *testing.T) {
	ev, w := newTestEvader(t, `
reset := func(engine, state) {}
update := func(engine, state) { engine.move(1, 1) }
`, discardLogger())
	ev.Reset()

	ev.Update(w, 0.05)
	turn, forward := ev.Command()
	assert.InDelta(t, 1, turn, 1e-9)
	assert.InDelta(t, 1, forward, 1e-9)

	b := ev.Body().Body
	assert.InDelta(t, common.DegToRad(200), b.AngularVelocity(), 1e-9)
	assert.InDelta(t, 4, b.Velocity().X, 1e-9)
	assert.InDelta(t, 0, b.Velocity().Y, 1e-9)
}

func TestEvaderSmoothing(t *testing.T) {
	ev, w := newTestEvader(t, `
reset := func(engine, state) {}
update := func(engine, state) { engine.move(-1, 1) }
`, discardLogger())
	ev.Reset()

	ev.Update(w, 0.01)
	turn, forward := ev.Command()
	assert.InDelta(t, -0.2, turn, 1e-9)
	assert.InDelta(t, 0.2, forward, 1e-9)
}

func TestEvaderResetClearsScriptState(t *testing.T) {
	ev, w := newTestEvader(t, countingScript, discardLogger())
	ev.Reset()
	ev.Update(w, 0.05)
	ev.Update(w, 0.05)
	_, forward := ev.Command()
	assert.InDelta(t, 0.2, forward, 1e-9)

	ev.Reset()
	_, forward = ev.Command()
	assert.Equal(t, 0.0, forward)
	ev.Update(w, 0.05)
	_, forward = ev.Command()
	assert.InDelta(t, 0.1, forward, 1e-9)
}

func TestEvaderResetReturnsToSpawn(t *testing.T) {
	ev, w := newTestEvader(t, `
reset := func(engine, state) {}
update := func(engine, state) { engine.move(1, 1) }
`, discardLogger())
	ev.Reset()
	for i := 0; i < 10; i++ {
		ev.Update(w, 0.05)
		ev.phys.Step(0.05)
	}
	require.Greater(t, ev.Position().Distance(common.Vec3{X: 1, Z: -1}), 0.5)

	ev.Reset()
	assert.InDelta(t, 0, ev.Position().Distance(common.Vec3{X: 1, Z: -1}), 1e-9)
	assert.Equal(t, 0.0, ev.Body().Body.Velocity().Length())
	assert.Equal(t, 0.0, ev.Body().Body.AngularVelocity())
}

func TestEvaderRandomYaw(t *testing.T) {
	ev, _ := newTestEvader(t, countingScript, discardLogger())
	ev.spec.RandomYaw = true
	ev.Reset()
	a := ev.Body().Body.Angle()
	ev.Reset()
	b := ev.Body().Body.Angle()
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, a, 0.0)
	assert.Less(t, a, 2*math.Pi)
}

func TestEvaderScriptErrorLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	ev, w := newTestEvader(t, `
reset := func(engine, state) {}
update := func(engine, state) { engine.missing() }
`, log.New(&buf, "", 0))

	ev.Update(w, 0.05)
	ev.Update(w, 0.05)
	assert.Equal(t, 1, strings.Count(buf.String(), "evader:"))
	turn, forward := ev.Command()
	assert.Equal(t, 0.0, turn)
	assert.Equal(t, 0.0, forward)
}

func TestNewEvaderRejectsBadScripts(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", "  \n"},
		{"no_update", "reset := func(engine, state) {}"},
		{"syntax", "update := func(engine, state) {"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			phys := ecs.NewPhysicsWorld(discardLogger())
			w := ecs.NewWorld()
			e := w.CreateEntity()
			body := phys.AddAgent(e, component.TagEvader, component.Spawn{}, 0.5, 1)
			_, err := NewEvader(evaderSpec(), e, body, phys, []byte(c.src), nil, discardLogger())
			assert.Error(t, err)
			assert.Error(t, CheckScript("bad.tengo", []byte(c.src)))
		})
	}
}

func TestEmbeddedEvaderScriptCompiles(t *testing.T) {
	src, err := prefabs.LoadScript("evader.tengo")
	require.NoError(t, err)
	require.NoError(t, CheckScript("evader.tengo", src))
}
