package dfhost

import (
	"math"
	"sync"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// maxLineLength is the maximum number of blocks a single line may have.
const maxLineLength = 128

var lineBlock = block.Wool{Colour: item.ColourRed()}

// Lines keeps track of the blocks players placed with /line so that they can
// be taken away again. It is safe for concurrent use.
type Lines struct {
	mu     sync.Mutex
	placed map[uuid.UUID][]placedBlock
}

type placedBlock struct {
	w    *world.World
	pos  cube.Pos
	prev world.Block
}

// NewLines returns an empty Lines.
func NewLines() *Lines {
	return &Lines{placed: make(map[uuid.UUID][]placedBlock)}
}

// Draw places a line of blocks from one position to another in the world of
// tx and returns the number of blocks placed. It returns 0 if the line is
// longer than maxLineLength.
func (l *Lines) Draw(tx *world.Tx, player uuid.UUID, from, to mgl64.Vec3) int {
	positions := linePositions(cube.PosFromVec3(from), cube.PosFromVec3(to))
	if len(positions) > maxLineLength {
		return 0
	}
	w := tx.World()

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pos := range positions {
		if !l.tracked(player, w, pos) {
			l.placed[player] = append(l.placed[player], placedBlock{w: w, pos: pos, prev: tx.Block(pos)})
		}
		tx.SetBlock(pos, lineBlock, nil)
	}
	return len(positions)
}

func (l *Lines) tracked(player uuid.UUID, w *world.World, pos cube.Pos) bool {
	for _, b := range l.placed[player] {
		if b.w == w && b.pos == pos {
			return true
		}
	}
	return false
}

// Count returns the number of blocks currently placed by the player.
func (l *Lines) Count(player uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.placed[player])
}

// Reset restores every block the player replaced with a line. The blocks are
// restored asynchronously.
func (l *Lines) Reset(player uuid.UUID) {
	l.mu.Lock()
	placed := l.placed[player]
	delete(l.placed, player)
	l.mu.Unlock()

	byWorld := make(map[*world.World][]placedBlock)
	for _, b := range placed {
		byWorld[b.w] = append(byWorld[b.w], b)
	}
	for w, blocks := range byWorld {
		w.Exec(func(tx *world.Tx) {
			for i := len(blocks) - 1; i >= 0; i-- {
				tx.SetBlock(blocks[i].pos, blocks[i].prev, nil)
			}
		})
	}
}

// linePositions returns the block positions on the straight line between a
// and b, both included.
func linePositions(a, b cube.Pos) []cube.Pos {
	d := [3]int{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	steps := max(abs(d[0]), abs(d[1]), abs(d[2]))
	positions := make([]cube.Pos, 0, steps+1)
	for i := 0; i <= steps; i++ {
		var pos cube.Pos
		for axis := range 3 {
			offset := 0.0
			if steps > 0 {
				offset = float64(d[axis]) * float64(i) / float64(steps)
			}
			pos[axis] = a[axis] + int(math.Round(offset))
		}
		positions = append(positions, pos)
	}
	return positions
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
