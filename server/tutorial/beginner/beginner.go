// Package beginner implements the tutorial every new player goes through
// before claiming a plot. Its worlds, tips and plot points are read from a
// YAML layout so that builders can change them without touching code.
package beginner

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/go-gl/mathgl/mgl64"
)

//go:embed beginner.yml
var defaultLayout []byte

// World indices of the layout.
const (
	Lobby = iota
	Plot
)

// DefaultLayout returns the built-in layout.
func DefaultLayout() tutorial.Layout {
	l, err := tutorial.ParseLayout(defaultLayout)
	if err != nil {
		panic(fmt.Errorf("parse built-in beginner layout: %w", err))
	}
	return l
}

// LoadLayout reads the layout at path, or returns the built-in layout if
// path is empty.
func LoadLayout(path string) (tutorial.Layout, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultLayout(), nil
	}
	return tutorial.LoadLayout(path)
}

// New builds the beginner tutorial from layout. The layout must declare the
// lobby and plot worlds, the tips and points used by the stages and the
// expected building height.
func New(layout tutorial.Layout) (*tutorial.Definition, error) {
	if len(layout.Worlds) < 2 {
		return nil, fmt.Errorf("beginner layout needs 2 worlds, got %d", len(layout.Worlds))
	}
	corners, err := layout.PointSet("corners")
	if err != nil {
		return nil, err
	}
	if len(corners) < 3 {
		return nil, fmt.Errorf("beginner layout needs at least 3 corners, got %d", len(corners))
	}
	height, err := layout.Answer("height")
	if err != nil {
		return nil, err
	}
	tips := make(map[string]tutorial.TipLayout)
	for _, id := range []string{"corners", "outline", "height", "windows"} {
		if tips[id], err = layout.Tip(id); err != nil {
			return nil, err
		}
	}
	b := builder{corners: corners, height: height, tips: tips}

	name := layout.Name
	if name == "" {
		name = "Beginner Tutorial"
	}
	return &tutorial.Definition{
		Name:    name,
		NPCName: layout.NPCName,
		Worlds:  layout.TutorialWorlds(),
		Stages: []tutorial.StageDef{
			{Name: "Introduction", New: tutorial.NewStage(Lobby, b.introduction)},
			{Name: "Plot Corners", New: tutorial.NewStage(Plot, b.plotCorners)},
			{Name: "Building Outline", New: tutorial.NewStage(Plot, b.outline)},
			{Name: "Building Height", New: tutorial.NewStage(Plot, b.buildingHeight)},
			{Name: "Next Steps", New: tutorial.NewStage(Plot, b.nextSteps)},
		},
		OnComplete: func(s *tutorial.Session) {
			s.Message("You finished the beginner tutorial. Use /tutorial to replay any stage.", tutorial.SoundDone)
		},
	}, nil
}

type builder struct {
	corners []mgl64.Vec3
	height  float64
	tips    map[string]tutorial.TipLayout
}

func (b builder) tip(tl *tutorial.Timeline, id string) *tutorial.Timeline {
	t := b.tips[id]
	return tl.PlaceTip(id, t.Position.Vec3(), t.Text)
}

func (b builder) introduction(s *tutorial.Session, tl *tutorial.Timeline) error {
	tl.Message(tutorial.SoundInfo, true,
		fmt.Sprintf("Welcome to the plot system, %s!", s.Name()),
		"In this tutorial you will learn how to outline and measure a building.",
		"Interact with me or run /tutorial continue when you are ready.",
	).
		InteractNPC("Interact with the guide to travel to your first plot.").
		Message(tutorial.SoundClick, false, "Off we go!").
		Delay(time.Second).
		Teleport(Plot)
	return nil
}

func (b builder) plotCorners(_ *tutorial.Session, tl *tutorial.Timeline) error {
	tl.Message(tutorial.SoundInfo, false,
		"This is your plot. Every plot contains the outline of one real building.",
		"Before building anything, find the corners of the building.",
	)
	b.tip(tl, "corners").
		TeleportPoints("Walk to every corner of the building.", 1, b.corners...).
		RemoveTips().
		Message(tutorial.SoundDone, true, "Well done, you found every corner.")
	return nil
}

func (b builder) outline(_ *tutorial.Session, tl *tutorial.Timeline) error {
	b.tip(tl, "outline").
		SelectPoints("Click the ground at every corner of the building.", b.corners...).
		Command("Connect neighbouring corners using /line <from> <to>.", "line", len(b.corners), lineCheck(b.corners)).
		RemoveTips().
		Message(tutorial.SoundDone, true, "The outline of the building is complete.")
	return nil
}

func (b builder) buildingHeight(_ *tutorial.Session, tl *tutorial.Timeline) error {
	b.tip(tl, "height").
		ChatInput("How many blocks tall is the building? Type your answer in chat.", b.height, 1, 3, nil).
		RemoveTips().
		Message(tutorial.SoundInfo, true, fmt.Sprintf("The building is about %v blocks tall.", b.height))
	return nil
}

func (b builder) nextSteps(_ *tutorial.Session, tl *tutorial.Timeline) error {
	b.tip(tl, "windows").
		Message(tutorial.SoundInfo, true,
			"After the outline, windows and doors are placed.",
			"Once you are done with a plot, submit it for review.",
		).
		RemoveTips().
		Delay(2 * time.Second)
	return nil
}

// lineCheck accepts /line executions that connect two neighbouring corners,
// each edge counting once. Arguments are the two positions written as six
// numbers.
func lineCheck(corners []mgl64.Vec3) tutorial.CommandCheck {
	drawn := make(map[[2]int]bool)
	return func(args []string) (bool, string) {
		from, to, reason := parseLine(args)
		if reason != "" {
			return false, reason
		}
		a, b := cornerIndex(corners, from), cornerIndex(corners, to)
		if a < 0 || b < 0 {
			return false, "Both ends of the line must be corners of the building."
		}
		n := len(corners)
		if (a+1)%n != b && (b+1)%n != a {
			return false, "Only connect neighbouring corners."
		}
		edge := [2]int{min(a, b), max(a, b)}
		if drawn[edge] {
			return false, "You already drew that line."
		}
		drawn[edge] = true
		return true, ""
	}
}

// parseLine reads the two ends of a line. A non-empty reason is returned if
// the arguments are not six absolute coordinates.
func parseLine(args []string) (from, to mgl64.Vec3, reason string) {
	if len(args) != 6 {
		return from, to, "Usage: /line <x y z> <x y z>"
	}
	var v [6]float64
	for i, arg := range args {
		if strings.HasPrefix(arg, "~") {
			return from, to, "Use absolute coordinates."
		}
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return from, to, fmt.Sprintf("%q is not a number.", arg)
		}
		v[i] = f
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, mgl64.Vec3{v[3], v[4], v[5]}, ""
}

func cornerIndex(corners []mgl64.Vec3, pos mgl64.Vec3) int {
	x, z := math.Floor(pos[0]), math.Floor(pos[2])
	for i, c := range corners {
		if math.Floor(c[0]) == x && math.Floor(c[2]) == z {
			return i
		}
	}
	return -1
}
