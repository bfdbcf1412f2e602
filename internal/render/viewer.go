package render

import (
	"errors"
	"sync"

	"github.com/persona/backend/internal/theme"
)

var ErrAgeConfirmationRequired = errors.New("age confirmation required")

// Player starts audio playback on the visitor's device. A returned error
// means the browser refused autoplay.
type Player interface {
	Play(url string) error
}

// Viewer is one page visit: NSFW check, then the entrance gate, then the
// scene.
type Viewer struct {
	Config   theme.Config
	Entities Entities

	nsfw   *NSFWGate
	gate   Gate
	player Player

	mu    sync.Mutex
	retry *AudioRetry
}

// NewViewer prepares a visit. onEnter runs once when the visitor enters,
// which is where session analytics start.
func NewViewer(cfg theme.Config, entities Entities, nsfw bool, player Player, onEnter func()) *Viewer {
	v := &Viewer{
		Config:   cfg,
		Entities: entities,
		nsfw:     NewNSFWGate(nsfw),
		player:   player,
	}
	if onEnter != nil {
		v.gate.OnEnter(onEnter)
	}
	v.gate.OnEnter(v.startAudio)
	return v
}

func (v *Viewer) ConfirmAge() {
	v.nsfw.Confirm()
}

// Enter flips the entrance gate. Calls before the age check passes do
// nothing.
func (v *Viewer) Enter() bool {
	if !v.nsfw.Allowed() {
		return false
	}
	return v.gate.Enter()
}

// Scene renders the page, or refuses while the age check is pending.
func (v *Viewer) Scene() (Scene, error) {
	if !v.nsfw.Allowed() {
		return Scene{}, ErrAgeConfirmationRequired
	}
	return Render(v.Config, v.Entities, v.gate.Entered()), nil
}

// Interact forwards a user interaction to the pending audio retry.
func (v *Viewer) Interact() bool {
	v.mu.Lock()
	retry := v.retry
	v.mu.Unlock()
	if retry == nil {
		return false
	}
	fired, _ := retry.Interact()
	return fired
}

// Leave detaches anything still listening for interaction.
func (v *Viewer) Leave() {
	v.mu.Lock()
	retry := v.retry
	v.mu.Unlock()
	if retry != nil {
		retry.Cancel()
	}
}

func (v *Viewer) startAudio() {
	url := v.Config.Audio.URL
	if url == "" || !v.Config.Audio.AutoPlay || v.player == nil {
		return
	}
	if err := v.player.Play(url); err == nil {
		return
	}

	retry := NewAudioRetry(func() error { return v.player.Play(url) })
	v.mu.Lock()
	v.retry = retry
	v.mu.Unlock()
}
