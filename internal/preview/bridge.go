// Package preview republishes every config edit to whatever renders the
// live preview. It never persists anything.
package preview

import (
	"sync"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/theme"
)

// Frame is one published preview state.
type Frame struct {
	Config        theme.Config  `json:"config"`
	ResolvedFrame *assets.Asset `json:"resolvedFrame"`
	ForceAudio    bool          `json:"forceAudio"`
}

// FrameLookup resolves a frame id against the current inventory.
type FrameLookup interface {
	LookupFrame(id string) (assets.Asset, bool)
}

// FrameLookupFunc adapts a function to FrameLookup.
type FrameLookupFunc func(id string) (assets.Asset, bool)

func (f FrameLookupFunc) LookupFrame(id string) (assets.Asset, bool) {
	return f(id)
}

type Consumer func(Frame)

type Bridge struct {
	mu         sync.Mutex
	frames     FrameLookup
	latest     Frame
	forceAudio bool

	nextID    int
	consumers map[int]Consumer
	order     []int
	detach    func()
}

func NewBridge() *Bridge {
	return &Bridge{consumers: map[int]Consumer{}}
}

// Attach starts mirroring store. Attaching again replaces the previous
// subscription.
func (b *Bridge) Attach(store *theme.Store, frames FrameLookup) {
	b.mu.Lock()
	previous := b.detach
	b.detach = nil
	b.frames = frames
	b.mu.Unlock()

	if previous != nil {
		previous()
	}

	b.publish(store.Snapshot())
	detach := store.Subscribe(b.publish)

	b.mu.Lock()
	b.detach = detach
	b.mu.Unlock()
}

// Detach stops mirroring the attached store.
func (b *Bridge) Detach() {
	b.mu.Lock()
	detach := b.detach
	b.detach = nil
	b.mu.Unlock()

	if detach != nil {
		detach()
	}
}

func (b *Bridge) Subscribe(consumer Consumer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.consumers[id] = consumer
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.consumers, id)
		for i, existing := range b.order {
			if existing == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// ForceAudio raises the preview-only "play unmuted" signal. It leaves the
// persisted audio and mute settings alone.
func (b *Bridge) ForceAudio() {
	b.setAudioOverride(true)
}

func (b *Bridge) ClearAudioOverride() {
	b.setAudioOverride(false)
}

func (b *Bridge) AudioOverride() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forceAudio
}

func (b *Bridge) Latest() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneFrame(b.latest)
}

func (b *Bridge) setAudioOverride(value bool) {
	b.mu.Lock()
	if b.forceAudio == value {
		b.mu.Unlock()
		return
	}
	cfg := b.latest.Config
	b.forceAudio = value
	b.mu.Unlock()

	b.publish(cfg)
}

func (b *Bridge) publish(cfg theme.Config) {
	b.mu.Lock()
	frames := b.frames
	b.mu.Unlock()

	var resolved *assets.Asset
	if cfg.Frame != nil && *cfg.Frame != "" && frames != nil {
		if asset, ok := frames.LookupFrame(*cfg.Frame); ok {
			resolved = &asset
		}
	}

	b.mu.Lock()
	frame := Frame{Config: cfg.Clone(), ResolvedFrame: resolved, ForceAudio: b.forceAudio}
	b.latest = frame

	consumers := make([]Consumer, 0, len(b.order))
	for _, id := range b.order {
		consumers = append(consumers, b.consumers[id])
	}
	b.mu.Unlock()

	for _, consumer := range consumers {
		consumer(cloneFrame(frame))
	}
}

func cloneFrame(frame Frame) Frame {
	out := frame
	out.Config = frame.Config.Clone()
	if frame.ResolvedFrame != nil {
		resolved := *frame.ResolvedFrame
		out.ResolvedFrame = &resolved
	}
	return out
}
