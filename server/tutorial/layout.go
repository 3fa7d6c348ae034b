package tutorial

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Layout is the placement data of a tutorial: its worlds, the tips shown in
// them and named sets of points players have to reach or select. Layouts are
// kept out of code so that builders can move things around without a
// rebuild.
type Layout struct {
	Name    string               `yaml:"name"`
	NPCName string               `yaml:"npc_name"`
	Worlds  []WorldLayout        `yaml:"worlds"`
	Tips    map[string]TipLayout `yaml:"tips"`
	Points  map[string][]Point   `yaml:"points"`
	// Answers holds the expected answers of chat questions.
	Answers map[string]float64 `yaml:"answers"`
}

// WorldLayout is the YAML form of a World.
type WorldLayout struct {
	Name        string `yaml:"name"`
	PlayerSpawn Point  `yaml:"player_spawn"`
	NPCSpawn    Point  `yaml:"npc_spawn"`
}

// TipLayout is a tip hologram placed during a tutorial.
type TipLayout struct {
	Position Point  `yaml:"position"`
	Text     string `yaml:"text"`
}

// Point is a position written as a list of three numbers, [x, y, z]. A list
// of two numbers is read as [x, z] with y set to 0.
type Point mgl64.Vec3

// UnmarshalYAML decodes a point from a YAML sequence.
func (p *Point) UnmarshalYAML(node *yaml.Node) error {
	var v []float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("line %d: decode point: %w", node.Line, err)
	}
	switch len(v) {
	case 2:
		*p = Point{v[0], 0, v[1]}
	case 3:
		*p = Point{v[0], v[1], v[2]}
	default:
		return fmt.Errorf("line %d: point must have 2 or 3 coordinates, got %d", node.Line, len(v))
	}
	return nil
}

// Vec3 returns p as an mgl64.Vec3.
func (p Point) Vec3() mgl64.Vec3 { return mgl64.Vec3(p) }

// LoadLayout reads and parses the YAML layout file at path.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return l, nil
}

// ParseLayout parses a YAML layout and checks that it declares at least one
// world and that every world is named.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, err
	}
	if len(l.Worlds) == 0 {
		return Layout{}, errors.New("layout declares no worlds")
	}
	for i, w := range l.Worlds {
		if w.Name == "" {
			return Layout{}, fmt.Errorf("world %d has no name", i)
		}
	}
	return l, nil
}

// TutorialWorlds converts the worlds of the layout.
func (l Layout) TutorialWorlds() []World {
	worlds := make([]World, len(l.Worlds))
	for i, w := range l.Worlds {
		worlds[i] = World{Name: w.Name, PlayerSpawn: w.PlayerSpawn.Vec3(), NPCSpawn: w.NPCSpawn.Vec3()}
	}
	return worlds
}

// Tip returns the tip with the id passed.
func (l Layout) Tip(id string) (TipLayout, error) {
	t, ok := l.Tips[id]
	if !ok {
		return TipLayout{}, fmt.Errorf("layout has no tip %q", id)
	}
	return t, nil
}

// Answer returns the expected answer stored under name.
func (l Layout) Answer(name string) (float64, error) {
	v, ok := l.Answers[name]
	if !ok {
		return 0, fmt.Errorf("layout has no answer %q", name)
	}
	return v, nil
}

// PointSet returns the points stored under name.
func (l Layout) PointSet(name string) ([]mgl64.Vec3, error) {
	points, ok := l.Points[name]
	if !ok || len(points) == 0 {
		return nil, fmt.Errorf("layout has no points %q", name)
	}
	vecs := make([]mgl64.Vec3, len(points))
	for i, p := range points {
		vecs[i] = p.Vec3()
	}
	return vecs, nil
}
