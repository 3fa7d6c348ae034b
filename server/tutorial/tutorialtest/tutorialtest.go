// Package tutorialtest provides in-memory collaborators for testing code that
// runs tutorials: a manually advanced scheduler, a presenter recording its
// output, NPCs recording their state and a progress store.
package tutorialtest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/google/uuid"
)

// Logger returns a logger discarding everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Scheduler runs functions passed to Exec immediately and runs timers only
// when the clock is moved forward with Advance.
type Scheduler struct {
	now    time.Time
	timers []*timer
	seq    int
}

// NewScheduler returns a Scheduler whose clock starts at start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

type timer struct {
	at      time.Time
	every   time.Duration
	fn      func()
	stopped bool
	seq     int
}

func (t *timer) Stop() { t.stopped = true }

// Now returns the current time of the scheduler clock.
func (s *Scheduler) Now() time.Time { return s.now }

// Exec runs fn immediately.
func (s *Scheduler) Exec(fn func()) { fn() }

// After schedules fn to run once the clock passed d from now.
func (s *Scheduler) After(d time.Duration, fn func()) tutorial.Timer {
	return s.add(d, 0, fn)
}

// Every schedules fn to run every d.
func (s *Scheduler) Every(d time.Duration, fn func()) tutorial.Timer {
	if d <= 0 {
		panic("tutorialtest: non-positive interval")
	}
	return s.add(d, d, fn)
}

func (s *Scheduler) add(d, every time.Duration, fn func()) *timer {
	s.seq++
	t := &timer{at: s.now.Add(d), every: every, fn: fn, seq: s.seq}
	s.timers = append(s.timers, t)
	return t
}

// Pending returns the number of timers that have not fired or been stopped.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every timer due on the way
// in order of due time.
func (s *Scheduler) Advance(d time.Duration) {
	end := s.now.Add(d)
	for {
		s.timers = slices.DeleteFunc(s.timers, func(t *timer) bool { return t.stopped })
		sort.SliceStable(s.timers, func(i, j int) bool {
			if s.timers[i].at.Equal(s.timers[j].at) {
				return s.timers[i].seq < s.timers[j].seq
			}
			return s.timers[i].at.Before(s.timers[j].at)
		})
		if len(s.timers) == 0 || s.timers[0].at.After(end) {
			break
		}
		t := s.timers[0]
		s.now = t.at
		if t.every > 0 {
			t.at = t.at.Add(t.every)
		} else {
			t.stopped = true
		}
		t.fn()
	}
	s.now = end
}

// Message is a message shown by a Presenter.
type Message struct {
	Player uuid.UUID
	Text   string
	Sound  tutorial.Sound
}

// Marker is a marker placed by a Presenter.
type Marker struct {
	Player  uuid.UUID
	Name    string
	Loc     tutorial.Location
	Content string
}

// ID returns the id the marker was placed with.
func (m *Marker) ID() string { return m.Name }

// Presenter records everything shown to players. It is safe for concurrent
// use.
type Presenter struct {
	mu        sync.Mutex
	messages  []Message
	progress  []string
	markers   []*Marker
	teleports []tutorial.Location

	// TeleportErr, if set, is returned by Teleport.
	TeleportErr error
	// MarkerErr, if set, is returned by PlaceMarker.
	MarkerErr error
}

func (p *Presenter) ShowMessage(player uuid.UUID, text string, sound tutorial.Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Player: player, Text: text, Sound: sound})
}

func (p *Presenter) ShowProgress(_ uuid.UUID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, text)
}

func (p *Presenter) PlaceMarker(player uuid.UUID, id string, loc tutorial.Location, content string) (tutorial.Marker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.MarkerErr != nil {
		return nil, p.MarkerErr
	}
	m := &Marker{Player: player, Name: id, Loc: loc, Content: content}
	p.markers = append(p.markers, m)
	return m, nil
}

func (p *Presenter) RemoveMarker(m tutorial.Marker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markers = slices.DeleteFunc(p.markers, func(other *Marker) bool { return tutorial.Marker(other) == m })
}

func (p *Presenter) Teleport(_ uuid.UUID, loc tutorial.Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TeleportErr != nil {
		return p.TeleportErr
	}
	p.teleports = append(p.teleports, loc)
	return nil
}

// Messages returns the text of every message shown so far.
func (p *Presenter) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	texts := make([]string, len(p.messages))
	for i, m := range p.messages {
		texts[i] = m.Text
	}
	return texts
}

// LastMessage returns the last message shown, if any.
func (p *Presenter) LastMessage() (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return Message{}, false
	}
	return p.messages[len(p.messages)-1], true
}

// Progress returns every progress text shown so far.
func (p *Presenter) Progress() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.progress)
}

// Markers returns the markers currently placed.
func (p *Presenter) Markers() []Marker {
	p.mu.Lock()
	defer p.mu.Unlock()
	markers := make([]Marker, len(p.markers))
	for i, m := range p.markers {
		markers[i] = *m
	}
	return markers
}

// Teleports returns every location players were teleported to.
func (p *Presenter) Teleports() []tutorial.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.teleports)
}

// NPCs provides NPCs and keeps track of them per player.
type NPCs struct {
	mu   sync.Mutex
	npcs map[uuid.UUID]*NPC
}

// NewNPC returns a new NPC for the player, replacing the previous one.
func (n *NPCs) NewNPC(player uuid.UUID, name string) tutorial.NPC {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.npcs == nil {
		n.npcs = make(map[uuid.UUID]*NPC)
	}
	npc := &NPC{Name: name}
	n.npcs[player] = npc
	return npc
}

// Of returns the last NPC created for player.
func (n *NPCs) Of(player uuid.UUID) *NPC {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.npcs[player]
}

// NPC records its state.
type NPC struct {
	mu      sync.Mutex
	Name    string
	spawned bool
	loc     tutorial.Location
	hint    tutorial.Hint
	spawns  int
}

func (n *NPC) Spawn(loc tutorial.Location) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spawned, n.loc = true, loc
	n.spawns++
	return nil
}

func (n *NPC) Remove() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spawned = false
}

func (n *NPC) SetHint(h tutorial.Hint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hint = h
}

// Spawned reports whether the NPC is spawned and where.
func (n *NPC) Spawned() (tutorial.Location, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loc, n.spawned
}

// Spawns returns how often the NPC was spawned.
func (n *NPC) Spawns() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.spawns
}

// Hint returns the hint currently shown.
func (n *NPC) Hint() tutorial.Hint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hint
}

// ErrStorage is returned by a Store with Fail set.
var ErrStorage = errors.New("tutorialtest: storage failure")

// Store keeps progress in memory.
type Store struct {
	mu     sync.Mutex
	stages map[string]int
	saves  int

	// Fail makes every call return ErrStorage.
	Fail bool
}

func storeKey(player uuid.UUID, tutorial int) string {
	return fmt.Sprintf("%s/%d", player, tutorial)
}

func (s *Store) SaveProgress(player uuid.UUID, tutorial, stage int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrStorage
	}
	if s.stages == nil {
		s.stages = make(map[string]int)
	}
	k := storeKey(player, tutorial)
	s.stages[k] = max(s.stages[k], stage)
	s.saves++
	return nil
}

func (s *Store) LoadProgress(player uuid.UUID, tutorial int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return 0, ErrStorage
	}
	return s.stages[storeKey(player, tutorial)], nil
}

// Saves returns how many saves succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var (
	_ tutorial.Scheduler     = (*Scheduler)(nil)
	_ tutorial.Presenter     = (*Presenter)(nil)
	_ tutorial.NPCProvider   = (*NPCs)(nil)
	_ tutorial.ProgressStore = (*Store)(nil)
)
