package tutorial

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Sound is a cue played alongside a message.
type Sound int

const (
	SoundNone Sound = iota
	SoundInfo
	SoundDone
	SoundError
	SoundClick
)

// Location is a position inside a named world of the host.
type Location struct {
	World string
	Pos   mgl64.Vec3
}

// Marker is a visual placed in the world by a Presenter, such as a tip
// hologram.
type Marker interface {
	ID() string
}

// Presenter renders tutorial output for a player. Implementations must be
// safe to call from the scheduling goroutine and must not block it.
type Presenter interface {
	// ShowMessage sends a chat message to the player and plays the sound
	// passed, if any.
	ShowMessage(player uuid.UUID, text string, sound Sound)
	// ShowProgress updates a transient progress indicator, such as a tip or
	// action bar.
	ShowProgress(player uuid.UUID, text string)
	// PlaceMarker places a visual marker visible to the player.
	PlaceMarker(player uuid.UUID, id string, loc Location, content string) (Marker, error)
	// RemoveMarker removes a marker previously returned by PlaceMarker.
	RemoveMarker(m Marker)
	// Teleport moves the player to loc, changing world if needed.
	Teleport(player uuid.UUID, loc Location) error
}

// Hint is the indicator shown above a tutorial NPC.
type Hint int

const (
	HintNone Hint = iota
	// HintContinue tells the player to continue, either by interacting with
	// the NPC or by running the continue command.
	HintContinue
	// HintInteract tells the player to interact with the NPC.
	HintInteract
)

// NPC is the guide character spawned for a single session.
type NPC interface {
	// Spawn places the NPC at loc. Spawning an NPC that is already spawned
	// moves it.
	Spawn(loc Location) error
	// Remove despawns the NPC. It is a no-op if the NPC is not spawned.
	Remove()
	// SetHint changes the indicator shown above the NPC.
	SetHint(h Hint)
}

// NPCProvider creates NPCs for sessions.
type NPCProvider interface {
	NewNPC(player uuid.UUID, name string) NPC
}

// ProgressStore persists the highest stage a player reached in a tutorial.
type ProgressStore interface {
	SaveProgress(player uuid.UUID, tutorial, stage int) error
	LoadProgress(player uuid.UUID, tutorial int) (int, error)
}

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) ShowMessage(uuid.UUID, string, Sound) {}
func (NopPresenter) ShowProgress(uuid.UUID, string)       {}
func (NopPresenter) PlaceMarker(_ uuid.UUID, id string, _ Location, _ string) (Marker, error) {
	return nopMarker(id), nil
}
func (NopPresenter) RemoveMarker(Marker)                {}
func (NopPresenter) Teleport(uuid.UUID, Location) error { return nil }

type nopMarker string

func (m nopMarker) ID() string { return string(m) }

// NopNPCs provides NPCs that do nothing.
type NopNPCs struct{}

func (NopNPCs) NewNPC(uuid.UUID, string) NPC { return nopNPC{} }

type nopNPC struct{}

func (nopNPC) Spawn(Location) error { return nil }
func (nopNPC) Remove()              {}
func (nopNPC) SetHint(Hint)         {}

// NopProgressStore remembers nothing. LoadProgress always returns 0.
type NopProgressStore struct{}

func (NopProgressStore) SaveProgress(uuid.UUID, int, int) error { return nil }
func (NopProgressStore) LoadProgress(uuid.UUID, int) (int, error) {
	return 0, nil
}
