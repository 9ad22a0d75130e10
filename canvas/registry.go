package canvas

import "sync"

// Registry resolves canvases by element id.
type Registry struct {
	mu       sync.RWMutex
	canvases map[string]*Canvas
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{canvases: make(map[string]*Canvas)}
}

// Register stores a canvas under its id, replacing any previous one.
func (r *Registry) Register(c *Canvas) {
	if r == nil || c == nil || c.ID() == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvases[c.ID()] = c
}

// Get returns a canvas by id.
func (r *Registry) Get(id string) (*Canvas, bool) {
	if r == nil || id == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.canvases[id]
	return c, ok
}

// Remove detaches and forgets the canvas with the given id.
func (r *Registry) Remove(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	c, ok := r.canvases[id]
	delete(r.canvases, id)
	r.mu.Unlock()
	if ok {
		c.Detach()
	}
}

// All returns every registered canvas.
func (r *Registry) All() []*Canvas {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Canvas, 0, len(r.canvases))
	for _, c := range r.canvases {
		out = append(out, c)
	}
	return out
}
