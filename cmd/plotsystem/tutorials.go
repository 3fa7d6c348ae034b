package main

import (
	"fmt"
	"log/slog"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/LonghiTW/Plot-System/server/tutorial/beginner"
	"github.com/LonghiTW/Plot-System/server/tutorial/dfhost"
	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/biome"
	"github.com/df-mc/dragonfly/server/world/generator"
)

// tutorials owns the tutorial worlds and the Registry running the tutorials
// on the server.
type tutorials struct {
	log         *slog.Logger
	startOnJoin bool

	loop   *tutorial.Loop
	reg    *tutorial.Registry
	host   *dfhost.Host
	worlds []*world.World
}

// newTutorials sets up the tutorials configured by uc. If tutorials are
// disabled, the returned value accepts players without doing anything.
func newTutorials(log *slog.Logger, srv *server.Server, uc tutorial.UserConfig) (*tutorials, error) {
	t := &tutorials{log: log, startOnJoin: uc.Tutorial.StartOnJoin}
	if !uc.Tutorial.Enabled {
		log.Info("Tutorials are disabled.")
		return t, nil
	}
	layout, err := beginner.LoadLayout(uc.Tutorial.BeginnerLayout)
	if err != nil {
		return nil, fmt.Errorf("load beginner layout: %w", err)
	}
	def, err := beginner.New(layout)
	if err != nil {
		return nil, fmt.Errorf("build beginner tutorial: %w", err)
	}
	conf, err := uc.Config(log)
	if err != nil {
		return nil, fmt.Errorf("tutorial config: %w", err)
	}

	worlds := make(map[string]*world.World, len(def.Worlds))
	for _, w := range def.Worlds {
		if _, ok := worlds[w.Name]; ok {
			continue
		}
		worlds[w.Name] = newWorld(log, w)
		t.worlds = append(t.worlds, worlds[w.Name])
	}
	t.host = dfhost.Config{Log: log, Players: srv, Worlds: worlds}.New()
	def.Prepare = t.host.Prepare

	t.loop = tutorial.NewLoop(log)
	conf.Presenter = t.host
	conf.NPCs = t.host
	conf.Scheduler = t.loop
	conf.Tutorials = []*tutorial.Definition{def}
	t.reg = conf.New()
	t.host.Attach(t.reg)

	log.Info("Tutorials loaded.", "tutorial", def.Name, "stages", len(def.Stages), "worlds", len(worlds))
	return t, nil
}

// newWorld creates a flat, always sunny world for w. Nothing built in it is
// saved.
func newWorld(log *slog.Logger, w tutorial.World) *world.World {
	wld := world.Config{
		Log:       log.With("world", w.Name),
		Dim:       world.Overworld,
		Generator: generator.NewFlat(biome.Plains{}, []world.Block{block.Grass{}, block.Dirt{}, block.Dirt{}, block.Bedrock{}}),
		Entities:  entity.DefaultRegistry,
	}.New()
	wld.SetSpawn(cube.PosFromVec3(w.PlayerSpawn))
	wld.SetTime(6000)
	wld.StopTime()
	return wld
}

// accept attaches the tutorial handler to a player who just joined and
// starts the beginner tutorial for players who never finished a stage of it.
func (t *tutorials) accept(p *player.Player) {
	if t.reg == nil {
		return
	}
	p.Handle(t.host.Handler(p))
	if !t.startOnJoin {
		return
	}
	reg, id, name := t.reg, p.UUID(), p.Name()
	t.loop.Exec(func() {
		if reg.Progress(id, 0) == 0 {
			reg.Load(id, name, 0, 0)
		}
	})
}

// close stops every tutorial and closes the tutorial worlds.
func (t *tutorials) close() {
	if t.reg == nil {
		return
	}
	t.loop.Exec(t.reg.Shutdown)
	t.loop.Close()
	for _, w := range t.worlds {
		if err := w.Close(); err != nil {
			t.log.Error("Could not close tutorial world.", "error", err)
		}
	}
}
