package vm

import "sync"

// Gate holds every thread before its next instruction while paused.
// Used by the monitors to pause and single step a running program.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	steps   int
	changed chan struct{}
}

func NewGate(paused bool) *Gate {
	return &Gate{paused: paused, changed: make(chan struct{})}
}

// notify wakes up the waiting threads. Must hold mu.
func (g *Gate) notify() {
	close(g.changed)
	g.changed = make(chan struct{})
}

func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
	g.steps = 0
}

func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
	g.notify()
}

// Toggle flips the paused state and returns the new one.
func (g *Gate) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = !g.paused
	g.steps = 0
	g.notify()
	return g.paused
}

// Step lets one instruction, from any thread, through while paused.
func (g *Gate) Step() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps++
	g.notify()
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func (g *Gate) wait(stop <-chan struct{}) error {
	for {
		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		if g.steps > 0 {
			g.steps--
			g.mu.Unlock()
			return nil
		}
		changed := g.changed
		g.mu.Unlock()

		select {
		case <-changed:
		case <-stop:
			return errTerminated
		}
	}
}
