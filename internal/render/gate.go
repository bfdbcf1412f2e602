package render

import "sync"

// Gate is the one-shot entrance consent of a page visit. Hooks registered
// with OnEnter run exactly once, on the first Enter.
type Gate struct {
	mu      sync.Mutex
	entered bool
	hooks   []func()
}

func (g *Gate) OnEnter(hook func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, hook)
}

// Enter reports true only for the call that flipped the gate.
func (g *Gate) Enter() bool {
	g.mu.Lock()
	if g.entered {
		g.mu.Unlock()
		return false
	}
	g.entered = true
	hooks := g.hooks
	g.hooks = nil
	g.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	return true
}

func (g *Gate) Entered() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entered
}

// NSFWGate blocks rendering of a flagged profile until the visitor confirms
// their age for this page load. Nothing is persisted.
type NSFWGate struct {
	mu        sync.Mutex
	flagged   bool
	confirmed bool
}

func NewNSFWGate(flagged bool) *NSFWGate {
	return &NSFWGate{flagged: flagged}
}

func (g *NSFWGate) Confirm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmed = true
}

func (g *NSFWGate) Allowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.flagged || g.confirmed
}

// AudioRetry retries playback on the next user interaction after an
// autoplay rejection. It fires at most once and detaches after that attempt
// or on Cancel.
type AudioRetry struct {
	mu   sync.Mutex
	play func() error
}

func NewAudioRetry(play func() error) *AudioRetry {
	return &AudioRetry{play: play}
}

// Interact runs the pending retry, if any, and reports whether it did.
func (r *AudioRetry) Interact() (bool, error) {
	r.mu.Lock()
	play := r.play
	r.play = nil
	r.mu.Unlock()

	if play == nil {
		return false, nil
	}
	return true, play()
}

func (r *AudioRetry) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.play = nil
}

func (r *AudioRetry) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.play != nil
}
