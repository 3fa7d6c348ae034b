package tutorial

import "github.com/go-gl/mathgl/mgl64"

// Stage is one checkpoint of a tutorial. A Stage is created lazily when the
// session reaches it and produces the Timeline the player goes through.
type Stage interface {
	// World returns the index of the tutorial world the stage takes place in.
	World() int
	// Timeline builds the Timeline of the stage for the session passed.
	Timeline(s *Session) (*Timeline, error)
}

// StageFactory creates a Stage for a session. An error returned is fatal to
// the session.
type StageFactory func(s *Session) (Stage, error)

// StageDef names a stage and holds the factory creating it.
type StageDef struct {
	Name string
	New  StageFactory
}

// NewStage returns a StageFactory for stages that take place in world and
// whose Timeline is filled by build.
func NewStage(world int, build func(s *Session, tl *Timeline) error) StageFactory {
	return func(*Session) (Stage, error) {
		return funcStage{world: world, build: build}, nil
	}
}

type funcStage struct {
	world int
	build func(s *Session, tl *Timeline) error
}

func (st funcStage) World() int { return st.world }

func (st funcStage) Timeline(s *Session) (*Timeline, error) {
	tl := s.NewTimeline()
	if err := st.build(s, tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// World is a world a tutorial takes place in.
type World struct {
	// Name is the name the Presenter resolves the world by.
	Name string
	// PlayerSpawn is where players are teleported when switching to the world.
	PlayerSpawn mgl64.Vec3
	// NPCSpawn is where the tutorial NPC is spawned.
	NPCSpawn mgl64.Vec3
}

// Definition describes a tutorial. Definitions are registered once at
// startup and never change afterwards.
type Definition struct {
	Name string
	// NPCName is the name shown above the tutorial NPC.
	NPCName string
	Worlds  []World
	Stages  []StageDef
	// Prepare, if not nil, runs before the Timeline of every stage starts,
	// including stages jumped to directly. The Timeline starts once done is
	// called with a nil error. A non-nil error stops the session.
	Prepare func(s *Session, stage int, done func(error))
	// OnComplete, if not nil, runs once when a player finished the last stage.
	OnComplete func(s *Session)
}

// StageNames returns the names of the stages of the tutorial in order.
func (d *Definition) StageNames() []string {
	names := make([]string, len(d.Stages))
	for i, st := range d.Stages {
		names[i] = st.Name
	}
	return names
}
