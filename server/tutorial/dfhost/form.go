package dfhost

import (
	"fmt"
	"slices"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// menu returns the stage menu of the tutorial the player is playing, or the
// tutorial menu if the player is not playing one.
func (h *Host) menu(id uuid.UUID) form.Menu {
	if s, ok := h.reg.Session(id); ok {
		return h.stagesMenu(id, s.Tutorial())
	}
	return h.tutorialsMenu()
}

// tutorialsForm lets a player pick a tutorial.
type tutorialsForm struct {
	h       *Host
	buttons []form.Button
}

func (h *Host) tutorialsMenu() form.Menu {
	f := tutorialsForm{h: h}
	for _, info := range h.reg.Tutorials() {
		f.buttons = append(f.buttons, form.NewButton(info.Name, ""))
	}
	return form.NewMenu(f, "Tutorials").
		WithBody("Choose a tutorial to play.").
		WithButtons(f.buttons...)
}

func (f tutorialsForm) Submit(submitter form.Submitter, pressed form.Button, _ *world.Tx) {
	p, ok := submitter.(*player.Player)
	if !ok {
		return
	}
	if i := slices.Index(f.buttons, pressed); i >= 0 {
		p.SendForm(f.h.stagesMenu(p.UUID(), i))
	}
}

// stagesForm lets a player pick a stage of a tutorial. Only stages the
// player reached before can be picked.
type stagesForm struct {
	h        *Host
	tutorial int
	reached  int
	buttons  []form.Button
}

func (h *Host) stagesMenu(id uuid.UUID, tutorial int) form.Menu {
	def, _ := h.reg.Tutorial(tutorial)
	f := stagesForm{h: h, tutorial: tutorial, reached: h.reg.Progress(id, tutorial)}
	f.buttons = stageButtons(def.StageNames(), f.reached)
	return form.NewMenu(f, def.Name).
		WithBody(fmt.Sprintf("Completed %d of %d stages.", min(f.reached, len(def.Stages)), len(def.Stages))).
		WithButtons(f.buttons...)
}

// stageButtons returns a button for every stage. Stages past reached are
// shown as locked.
func stageButtons(names []string, reached int) []form.Button {
	buttons := make([]form.Button, len(names))
	for i, name := range names {
		label := fmt.Sprintf("%d. %s", i+1, name)
		if i > reached {
			label = text.Colourf("<grey>%s (locked)</grey>", label)
		}
		buttons[i] = form.NewButton(label, "")
	}
	return buttons
}

func (f stagesForm) Submit(submitter form.Submitter, pressed form.Button, _ *world.Tx) {
	p, ok := submitter.(*player.Player)
	if !ok {
		return
	}
	i := slices.Index(f.buttons, pressed)
	if i < 0 {
		return
	}
	if i > f.reached {
		p.Message(formatMessage("Complete the previous stages first."))
		return
	}
	f.h.start(p.UUID(), p.Name(), f.tutorial, i)
}

var (
	_ form.MenuSubmittable = tutorialsForm{}
	_ form.MenuSubmittable = stagesForm{}
)
