package anim

import (
	"fmt"
	"strconv"
	"strings"
)

// InputType is the kind of a state machine input.
type InputType string

const (
	InputBool    InputType = "bool"
	InputNumber  InputType = "number"
	InputTrigger InputType = "trigger"
)

// InputSpec declares a state machine input and its initial value.
type InputSpec struct {
	Name    string    `yaml:"name"`
	Type    InputType `yaml:"type"`
	Default string    `yaml:"default"`
}

// State plays one animation while active.
type State struct {
	Name      string `yaml:"name"`
	Animation string `yaml:"animation"`

	anim *LinearAnimation
}

// AnyState as a transition's From applies the transition in every state.
const AnyState = "any"

// Transition moves the machine from one state to another. Every condition
// that is set must hold. A transition with no conditions fires once the
// current state's animation has finished.
type Transition struct {
	From     string   `yaml:"from"`
	To       string   `yaml:"to"`
	Trigger  string   `yaml:"trigger"`
	When     string   `yaml:"when"`
	ExitTime *float64 `yaml:"exit_time"`

	cond *condition
}

// StateMachine is a graph of states over the artboard's animations.
type StateMachine struct {
	Name        string        `yaml:"name"`
	Inputs      []InputSpec   `yaml:"inputs"`
	Initial     string        `yaml:"initial"`
	States      []*State      `yaml:"states"`
	Transitions []*Transition `yaml:"transitions"`

	states map[string]*State
}

func (sm *StateMachine) prepare(anims map[string]*LinearAnimation) error {
	if sm.Name == "" {
		return fmt.Errorf("state machine without name")
	}
	if len(sm.States) == 0 {
		return fmt.Errorf("state machine %q: no states", sm.Name)
	}

	seen := map[string]bool{}
	for _, in := range sm.Inputs {
		if in.Name == "" || seen[in.Name] {
			return fmt.Errorf("state machine %q: missing or duplicate input name %q", sm.Name, in.Name)
		}
		seen[in.Name] = true
		if _, err := parseInputDefault(in); err != nil {
			return fmt.Errorf("state machine %q: %w", sm.Name, err)
		}
	}

	sm.states = make(map[string]*State, len(sm.States))
	for i, st := range sm.States {
		if st == nil {
			return fmt.Errorf("state machine %q: state %d is empty", sm.Name, i)
		}
		if st.Name == "" || st.Name == AnyState {
			return fmt.Errorf("state machine %q: invalid state name %q", sm.Name, st.Name)
		}
		if _, dup := sm.states[st.Name]; dup {
			return fmt.Errorf("state machine %q: duplicate state %q", sm.Name, st.Name)
		}
		a, ok := anims[st.Animation]
		if !ok {
			return fmt.Errorf("state machine %q: state %q plays unknown animation %q", sm.Name, st.Name, st.Animation)
		}
		st.anim = a
		sm.states[st.Name] = st
	}

	if sm.Initial == "" {
		sm.Initial = sm.States[0].Name
	}
	if _, ok := sm.states[sm.Initial]; !ok {
		return fmt.Errorf("state machine %q: unknown initial state %q", sm.Name, sm.Initial)
	}

	for i, tr := range sm.Transitions {
		if tr == nil {
			return fmt.Errorf("state machine %q: transition %d is empty", sm.Name, i)
		}
		if _, ok := sm.states[tr.From]; !ok && tr.From != AnyState {
			return fmt.Errorf("state machine %q: transition from unknown state %q", sm.Name, tr.From)
		}
		if _, ok := sm.states[tr.To]; !ok {
			return fmt.Errorf("state machine %q: transition to unknown state %q", sm.Name, tr.To)
		}
		if tr.Trigger != "" && !seen[tr.Trigger] {
			return fmt.Errorf("state machine %q: transition uses unknown trigger %q", sm.Name, tr.Trigger)
		}
		if strings.TrimSpace(tr.When) != "" {
			c, err := compileCondition(tr.When)
			if err != nil {
				return fmt.Errorf("state machine %q: %w", sm.Name, err)
			}
			tr.cond = c
		}
	}
	return nil
}

func parseInputDefault(in InputSpec) (interface{}, error) {
	switch in.Type {
	case InputBool:
		if in.Default == "" {
			return false, nil
		}
		v, err := strconv.ParseBool(in.Default)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		return v, nil
	case InputNumber:
		if in.Default == "" {
			return 0.0, nil
		}
		v, err := strconv.ParseFloat(in.Default, 64)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		return v, nil
	case InputTrigger:
		return false, nil
	}
	return nil, fmt.Errorf("input %q: unknown type %q", in.Name, in.Type)
}

// machine is the per-instance runtime of a StateMachine.
type machine struct {
	sm          *StateMachine
	current     *State
	player      *player
	timeInState float64
	inputTypes  map[string]InputType
	inputs      map[string]interface{}
	conds       map[*Transition]*condition
}

func newMachine(sm *StateMachine) *machine {
	m := &machine{
		sm:         sm,
		inputTypes: make(map[string]InputType, len(sm.Inputs)),
		inputs:     make(map[string]interface{}, len(sm.Inputs)),
		conds:      map[*Transition]*condition{},
	}
	for _, in := range sm.Inputs {
		v, _ := parseInputDefault(in)
		m.inputTypes[in.Name] = in.Type
		m.inputs[in.Name] = v
	}
	for _, tr := range sm.Transitions {
		if tr.cond != nil {
			m.conds[tr] = tr.cond.clone()
		}
	}
	m.enter(sm.states[sm.Initial])
	return m
}

func (m *machine) enter(st *State) {
	m.current = st
	m.player = newPlayer(st.anim)
	m.timeInState = 0
}

func (m *machine) set(name string, typ InputType, v interface{}) error {
	got, ok := m.inputTypes[name]
	if !ok || got != typ {
		return fmt.Errorf("%w: %s input %q in state machine %q", ErrNotFound, typ, name, m.sm.Name)
	}
	m.inputs[name] = v
	return nil
}

// advance steps the active animation, then takes at most one transition.
// Triggers are consumed at the end of every advance.
func (m *machine) advance(dt float64) error {
	m.player.advance(dt)
	m.timeInState += dt

	defer m.clearTriggers()

	for _, tr := range m.sm.Transitions {
		if tr.From != AnyState && tr.From != m.current.Name {
			continue
		}
		if tr.From == AnyState && tr.To == m.current.Name {
			continue
		}
		ok, err := m.allowed(tr)
		if err != nil {
			return err
		}
		if ok {
			m.enter(m.sm.states[tr.To])
			return nil
		}
	}
	return nil
}

func (m *machine) allowed(tr *Transition) (bool, error) {
	gated := false
	if tr.Trigger != "" {
		gated = true
		if fired, _ := m.inputs[tr.Trigger].(bool); !fired {
			return false, nil
		}
	}
	if tr.ExitTime != nil {
		gated = true
		if m.timeInState < *tr.ExitTime {
			return false, nil
		}
	}
	if c := m.conds[tr]; c != nil {
		gated = true
		ok, err := c.eval(m.inputs)
		if err != nil || !ok {
			return false, err
		}
	}
	if !gated {
		return m.player.done, nil
	}
	return true, nil
}

func (m *machine) clearTriggers() {
	for name, typ := range m.inputTypes {
		if typ == InputTrigger {
			m.inputs[name] = false
		}
	}
}

func (m *machine) release() {
	m.conds = nil
	m.inputs = nil
	m.player = nil
}
