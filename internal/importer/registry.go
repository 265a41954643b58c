package importer

import "sync"

// Registry tracks live runs by job ID so API handlers can reach them for
// status and cancellation.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

func (g *Registry) Add(r *Run) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runs[r.ID()] = r
}

func (g *Registry) Get(id string) (*Run, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.runs[id]
	return r, ok
}

func (g *Registry) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.runs, id)
}
