package anim

import (
	"fmt"

	"github.com/d5/tengo/v2"
)

// condition is a tengo expression evaluated against the state machine's
// inputs. Inputs are exposed as the map `input`, so both `input.speed > 2`
// and `input["Is Bumpy"]` work.
type condition struct {
	expr     string
	compiled *tengo.Compiled
}

const conditionResult = "__result"

func compileCondition(expr string) (*condition, error) {
	src := fmt.Sprintf("%s := bool(%s)", conditionResult, expr)
	script := tengo.NewScript([]byte(src))
	if err := script.Add("input", map[string]interface{}{}); err != nil {
		return nil, err
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", expr, err)
	}
	return &condition{expr: expr, compiled: compiled}, nil
}

// clone returns a copy with its own globals; compiled code is shared.
func (c *condition) clone() *condition {
	return &condition{expr: c.expr, compiled: c.compiled.Clone()}
}

func (c *condition) eval(inputs map[string]interface{}) (bool, error) {
	if err := c.compiled.Set("input", inputs); err != nil {
		return false, err
	}
	if err := c.compiled.Run(); err != nil {
		return false, fmt.Errorf("condition %q: %w", c.expr, err)
	}
	return c.compiled.Get(conditionResult).Bool(), nil
}
