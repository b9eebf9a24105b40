package system

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// scriptRuntime runs a tengo controller script. The script must define
// reset(engine, state) and update(engine, state); state is a map that
// persists between calls until the next reset.
type scriptRuntime struct {
	name      string
	compiled  *tengo.Compiled
	stateData *tengo.Map
}

const scriptDispatch = `
if __phase == "update" {
	update(__engine, __state)
} else if __phase == "reset" {
	reset(__engine, __state)
}
`

func newScriptRuntime(name string, src []byte) (*scriptRuntime, error) {
	if strings.TrimSpace(string(src)) == "" {
		return nil, fmt.Errorf("script %s: empty source", name)
	}
	script := tengo.NewScript([]byte(string(src) + "\n" + scriptDispatch))
	_ = script.Add("__phase", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}

	return &scriptRuntime{
		name:      name,
		compiled:  compiled,
		stateData: &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

func (rt *scriptRuntime) runPhase(phase string, engine *tengo.ImmutableMap) error {
	if rt == nil || rt.compiled == nil {
		return fmt.Errorf("nil script runtime")
	}
	if engine == nil {
		engine = &tengo.ImmutableMap{Value: map[string]tengo.Object{}}
	}
	if phase == "reset" {
		rt.stateData = &tengo.Map{Value: map[string]tengo.Object{}}
	}
	if err := rt.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := rt.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := rt.compiled.Set("__state", rt.stateData); err != nil {
		return err
	}
	if err := rt.compiled.Run(); err != nil {
		return fmt.Errorf("script %s %s: %w", rt.name, phase, err)
	}
	return nil
}

func vecObject(x, y, z float64) tengo.Object {
	return &tengo.ImmutableArray{Value: []tengo.Object{
		&tengo.Float{Value: x},
		&tengo.Float{Value: y},
		&tengo.Float{Value: z},
	}}
}

func objectAsFloat(obj tengo.Object) (float64, bool) {
	switch v := obj.(type) {
	case *tengo.Float:
		return v.Value, true
	case *tengo.Int:
		return float64(v.Value), true
	default:
		return 0, false
	}
}

// CheckScript compiles a controller script without running it.
func CheckScript(name string, src []byte) error {
	_, err := newScriptRuntime(name, src)
	return err
}
