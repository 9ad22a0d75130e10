package anim

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gg"
	"go.uber.org/zap"
)

// Canvas is the drawing surface an Instance renders into. Display size is
// the laid-out size in logical pixels; the backing context holds device
// pixels. Do runs fn with exclusive access to the backing context, so
// resizes and presents never overlap a draw.
type Canvas interface {
	DisplaySize() (w, h float64)
	DevicePixelRatio() float64
	Resize(w, h int) error
	Context() *gg.Context
	Do(fn func(dc *gg.Context) error) error
}

// Options configure a new Instance.
type Options struct {
	// Artboard selects the artboard; empty means the first one.
	Artboard string
	// StateMachines to run. Takes precedence over Animations.
	StateMachines []string
	// Animations to play when no state machine is given. When both are
	// empty the artboard's first animation plays.
	Animations []string
	Fit        Fit
	Alignment  Alignment
	Autoplay   bool
	Canvas     Canvas
	Logger     *zap.Logger
}

// Instance is the playback state of one artboard bound to one canvas.
type Instance struct {
	file     *File
	artboard *Artboard
	canvas   Canvas
	fit      Fit
	align    Alignment
	log      *zap.Logger

	pose     []shapeState
	players  []*player
	machines []*machine

	playing bool
	cleaned bool
	fps     fpsCounter
}

// NewInstance binds an artboard of f to a canvas. Missing artboards,
// animations and state machines are reported as ErrNotFound.
func NewInstance(f *File, opts Options) (*Instance, error) {
	if !f.Decoded() {
		return nil, fmt.Errorf("%w: file was not decoded", ErrFormat)
	}
	if opts.Canvas == nil {
		return nil, errors.New("anim: nil canvas")
	}
	ab, err := f.Artboard(opts.Artboard)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	inst := &Instance{
		file:     f,
		artboard: ab,
		canvas:   opts.Canvas,
		fit:      opts.Fit,
		align:    opts.Alignment,
		log:      log.With(zap.String("artboard", ab.Name)),
		pose:     make([]shapeState, len(ab.Shapes)),
	}
	for i, s := range ab.Shapes {
		inst.pose[i] = newShapeState(s)
	}

	switch {
	case len(opts.StateMachines) > 0:
		for _, name := range opts.StateMachines {
			sm, err := ab.StateMachine(name)
			if err != nil {
				return nil, err
			}
			inst.machines = append(inst.machines, newMachine(sm))
		}
	case len(opts.Animations) > 0:
		for _, name := range opts.Animations {
			a, err := ab.Animation(name)
			if err != nil {
				return nil, err
			}
			inst.players = append(inst.players, newPlayer(a))
		}
	case len(ab.Animations) > 0:
		inst.players = append(inst.players, newPlayer(ab.Animations[0]))
	}

	inst.applyPose()
	inst.playing = opts.Autoplay
	inst.log.Debug("instance created",
		zap.Int("state_machines", len(inst.machines)),
		zap.Int("animations", len(inst.players)),
		zap.Bool("autoplay", opts.Autoplay))
	return inst, nil
}

// Artboard returns the bound artboard.
func (i *Instance) Artboard() *Artboard { return i.artboard }

// Play resumes playback.
func (i *Instance) Play() {
	if i.cleaned {
		return
	}
	i.playing = true
}

// Pause stops advancing; Draw keeps showing the current pose.
func (i *Instance) Pause() {
	i.playing = false
}

// IsPlaying reports whether Advance moves the timeline.
func (i *Instance) IsPlaying() bool { return i.playing && !i.cleaned }

// SetLayout changes the fit and alignment used by Draw.
func (i *Instance) SetLayout(fit Fit, align Alignment) {
	i.fit = fit
	i.align = align
}

// Advance moves playback forward by dt seconds. It is a no-op while paused.
func (i *Instance) Advance(dt float64) error {
	if i.cleaned {
		return ErrCleanedUp
	}
	i.fps.tick(dt)
	if !i.playing || dt <= 0 {
		return nil
	}

	for _, p := range i.players {
		p.advance(dt)
	}
	for _, m := range i.machines {
		prev := m.current.Name
		if err := m.advance(dt); err != nil {
			return err
		}
		if m.current.Name != prev {
			i.log.Debug("state changed",
				zap.String("state_machine", m.sm.Name),
				zap.String("from", prev),
				zap.String("to", m.current.Name))
		}
	}
	i.applyPose()
	return nil
}

func (i *Instance) applyPose() {
	for k := range i.pose {
		i.pose[k].reset()
	}
	for _, p := range i.players {
		p.apply(i.pose)
	}
	for _, m := range i.machines {
		m.player.apply(i.pose)
	}
}

// Draw renders the current pose into the canvas' backing context.
func (i *Instance) Draw() error {
	if i.cleaned {
		return ErrCleanedUp
	}
	return i.canvas.Do(i.render)
}

func (i *Instance) render(dc *gg.Context) error {
	dc.Clear()
	frame := Rect{W: float64(dc.Width()), H: float64(dc.Height())}
	t := Compute(frame, i.artboard.Bounds(), i.fit, i.align)

	dc.Push()
	defer dc.Pop()
	dc.Translate(t.TX, t.TY)
	dc.Scale(t.ScaleX, t.ScaleY)

	if bg := i.artboard.Background; bg != nil {
		dc.SetColor(bg.RGBA(1).Color())
		dc.DrawRectangle(0, 0, i.artboard.Width, i.artboard.Height)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("anim: background: %w", err)
		}
	}
	for k := range i.pose {
		if err := i.pose[k].draw(dc); err != nil {
			return fmt.Errorf("anim: %w", err)
		}
	}
	return nil
}

// ResizeDrawingSurfaceToCanvas sizes the backing store to the canvas'
// display size times its device pixel ratio.
func (i *Instance) ResizeDrawingSurfaceToCanvas() error {
	if i.cleaned {
		return ErrCleanedUp
	}
	w, h := DrawingSize(i.canvas)
	if w < 1 || h < 1 {
		return fmt.Errorf("anim: canvas has no display size (%dx%d)", w, h)
	}
	return i.canvas.Resize(w, h)
}

// DrawingSize is the device-pixel size a canvas should have.
func DrawingSize(c Canvas) (int, int) {
	w, h := c.DisplaySize()
	dpr := c.DevicePixelRatio()
	if dpr <= 0 {
		dpr = 1
	}
	return int(math.Round(w * dpr)), int(math.Round(h * dpr))
}

// SetBool sets a boolean input on every running state machine that has it.
func (i *Instance) SetBool(name string, v bool) error {
	return i.setInput(name, InputBool, v)
}

// SetNumber sets a number input on every running state machine that has it.
func (i *Instance) SetNumber(name string, v float64) error {
	return i.setInput(name, InputNumber, v)
}

// Fire sets a trigger for the next Advance.
func (i *Instance) Fire(name string) error {
	return i.setInput(name, InputTrigger, true)
}

func (i *Instance) setInput(name string, typ InputType, v interface{}) error {
	if i.cleaned {
		return ErrCleanedUp
	}
	found := false
	for _, m := range i.machines {
		if err := m.set(name, typ, v); err == nil {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s input %q", ErrNotFound, typ, name)
	}
	return nil
}

// StateName returns the current state of the named state machine.
func (i *Instance) StateName(stateMachine string) (string, error) {
	for _, m := range i.machines {
		if m.sm.Name == stateMachine {
			return m.current.Name, nil
		}
	}
	return "", fmt.Errorf("%w: state machine %q is not running", ErrNotFound, stateMachine)
}

// EnableFPSCounter starts measuring frames per second.
func (i *Instance) EnableFPSCounter() { i.fps.enabled = true }

// DisableFPSCounter stops measuring.
func (i *Instance) DisableFPSCounter() { i.fps = fpsCounter{} }

// FPS returns the last measured rate and whether the counter is enabled.
func (i *Instance) FPS() (float64, bool) { return i.fps.value, i.fps.enabled }

// Cleanup releases the instance. It is safe to call more than once.
func (i *Instance) Cleanup() {
	if i.cleaned {
		return
	}
	i.cleaned = true
	i.playing = false
	for _, m := range i.machines {
		m.release()
	}
	i.machines = nil
	i.players = nil
	i.pose = nil
	i.canvas = nil
	i.log.Debug("instance cleaned up")
}

// IsCleanedUp reports whether Cleanup has run.
func (i *Instance) IsCleanedUp() bool { return i.cleaned }

type fpsCounter struct {
	enabled bool
	frames  int
	elapsed float64
	value   float64
}

func (f *fpsCounter) tick(dt float64) {
	if !f.enabled {
		return
	}
	f.frames++
	f.elapsed += dt
	if f.elapsed >= 1 {
		f.value = float64(f.frames) / f.elapsed
		f.frames = 0
		f.elapsed = 0
	}
}
