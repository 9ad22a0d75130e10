package surface

import (
	"sync"

	"github.com/milk9111/animsurface/anim"
)

// State is the controller-side lifecycle of a load.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	}
	return "unloaded"
}

// Handle exclusively owns one runtime instance bound to one surface. All
// methods are safe to call after Dispose; they return an error wrapping
// ErrDisposed instead of touching released resources.
type Handle struct {
	mu sync.Mutex

	gen     uint64
	surface Surface
	cfg     Config
	state   State
	inst    *anim.Instance
}

// State returns Ready until the handle is disposed.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Config returns the configuration the handle was loaded with, including
// later layout changes.
func (h *Handle) Config() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Surface returns the surface the handle draws into.
func (h *Handle) Surface() Surface { return h.surface }

// with runs fn against the live instance.
func (h *Handle) with(op string, fn func(*anim.Instance) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateReady || h.inst == nil {
		return newError(KindConfig, op, ErrDisposed, "")
	}
	return fn(h.inst)
}

// Play resumes playback.
func (h *Handle) Play() error {
	return h.with("play", func(i *anim.Instance) error { i.Play(); return nil })
}

// Pause stops playback on the current frame.
func (h *Handle) Pause() error {
	return h.with("pause", func(i *anim.Instance) error { i.Pause(); return nil })
}

// IsPlaying reports false for paused and disposed handles.
func (h *Handle) IsPlaying() bool {
	playing := false
	_ = h.with("is_playing", func(i *anim.Instance) error { playing = i.IsPlaying(); return nil })
	return playing
}

// Advance steps playback by dt seconds.
func (h *Handle) Advance(dt float64) error {
	return h.with("advance", func(i *anim.Instance) error { return i.Advance(dt) })
}

// Draw renders the current frame into the surface's drawing buffer.
func (h *Handle) Draw() error {
	return h.with("draw", func(i *anim.Instance) error { return i.Draw() })
}

// SetLayout changes fit and alignment in place.
func (h *Handle) SetLayout(fit anim.Fit, align anim.Alignment) error {
	return h.with("set_layout", func(i *anim.Instance) error {
		i.SetLayout(fit, align)
		h.cfg.Fit, h.cfg.Alignment = fit, align
		return nil
	})
}

// SetBool sets a boolean state machine input.
func (h *Handle) SetBool(name string, v bool) error {
	return h.with("set_bool", func(i *anim.Instance) error { return i.SetBool(name, v) })
}

// SetNumber sets a number state machine input.
func (h *Handle) SetNumber(name string, v float64) error {
	return h.with("set_number", func(i *anim.Instance) error { return i.SetNumber(name, v) })
}

// Fire fires a state machine trigger.
func (h *Handle) Fire(name string) error {
	return h.with("fire", func(i *anim.Instance) error { return i.Fire(name) })
}

// StateName returns the active state of a running state machine.
func (h *Handle) StateName(stateMachine string) (string, error) {
	var name string
	err := h.with("state_name", func(i *anim.Instance) error {
		var err error
		name, err = i.StateName(stateMachine)
		return err
	})
	return name, err
}

// SetFPSCounter turns frame rate measurement on or off.
func (h *Handle) SetFPSCounter(on bool) error {
	return h.with("set_fps_counter", func(i *anim.Instance) error {
		if on {
			i.EnableFPSCounter()
		} else {
			i.DisableFPSCounter()
		}
		h.cfg.FPSCounter = on
		return nil
	})
}

// FPS returns the measured frame rate when the counter is enabled.
func (h *Handle) FPS() (float64, bool) {
	var fps float64
	var on bool
	_ = h.with("fps", func(i *anim.Instance) error { fps, on = i.FPS(); return nil })
	return fps, on
}

// release cleans up the instance. It reports whether this call did the work.
func (h *Handle) release() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateReady {
		return false
	}
	if h.inst != nil {
		h.inst.Cleanup()
		h.inst = nil
	}
	h.state = StateDisposed
	return true
}

// Pending is the future returned by LoadAsync. Exactly one result is
// delivered; Done is closed once it is available.
type Pending struct {
	done   chan struct{}
	handle *Handle
	err    error
}

// Done is closed when the load has completed.
func (p *Pending) Done() <-chan struct{} { return p.done }

// State is Loading until completion, then Ready or Failed.
func (p *Pending) State() State {
	select {
	case <-p.done:
		if p.err != nil {
			return StateFailed
		}
		return StateReady
	default:
		return StateLoading
	}
}

// Result blocks until the load completes.
func (p *Pending) Result() (*Handle, error) {
	<-p.done
	return p.handle, p.err
}
