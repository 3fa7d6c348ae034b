// Package progress stores how far players got in each tutorial in a TOML
// file.
package progress

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
)

var (
	// ErrInvalidPlayer is returned when progress is saved for the nil UUID.
	ErrInvalidPlayer = errors.New("invalid player")
	// ErrInvalidStage is returned when a negative stage or tutorial is saved.
	ErrInvalidStage = errors.New("invalid stage")
)

// Store keeps the highest stage every player reached per tutorial. Every
// change is written to disk immediately and rolled back in memory if the
// write fails.
type Store struct {
	mu       sync.RWMutex
	stages   map[key]int
	filePath string
}

type key struct {
	player   uuid.UUID
	tutorial int
}

type storeFile struct {
	Records []record `toml:"records,omitempty"`
}

type record struct {
	Player   string `toml:"player"`
	Tutorial int    `toml:"tutorial"`
	Stage    int    `toml:"stage"`
}

// Open loads the store kept in the file at path. If the file does not exist
// yet, it is created empty.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("progress path must not be empty")
	}
	s := &Store{stages: make(map[key]int), filePath: path}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveProgress records that player reached stage in tutorial. Stages lower
// than the one already stored are ignored.
func (s *Store) SaveProgress(player uuid.UUID, tutorial, stage int) error {
	if player == uuid.Nil {
		return ErrInvalidPlayer
	}
	if tutorial < 0 || stage < 0 {
		return fmt.Errorf("save tutorial %d stage %d: %w", tutorial, stage, ErrInvalidStage)
	}
	k := key{player: player, tutorial: tutorial}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, exists := s.stages[k]
	if exists && previous >= stage {
		return nil
	}
	s.stages[k] = stage
	if err := s.writeLocked(); err != nil {
		if exists {
			s.stages[k] = previous
		} else {
			delete(s.stages, k)
		}
		return err
	}
	return nil
}

// LoadProgress returns the highest stage player reached in tutorial, or 0 if
// the player never completed a stage of it.
func (s *Store) LoadProgress(player uuid.UUID, tutorial int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stages[key{player: player, tutorial: tutorial}], nil
}

func (s *Store) reloadLocked() error {
	data := storeFile{}
	contents, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.stages = make(map[key]int)
			return s.writeLocked()
		}
		return fmt.Errorf("read progress: %w", err)
	}
	if len(contents) != 0 {
		if err := toml.Unmarshal(contents, &data); err != nil {
			return fmt.Errorf("decode progress: %w", err)
		}
	}
	s.stages = make(map[key]int, len(data.Records))
	for _, r := range data.Records {
		id, err := uuid.Parse(strings.TrimSpace(r.Player))
		if err != nil || r.Tutorial < 0 || r.Stage < 0 {
			continue
		}
		k := key{player: id, tutorial: r.Tutorial}
		s.stages[k] = max(s.stages[k], r.Stage)
	}
	return nil
}

func (s *Store) writeLocked() error {
	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("create progress directory: %w", err)
		}
	}
	encoded, err := toml.Marshal(storeFile{Records: s.recordsLocked()})
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := os.WriteFile(s.filePath, encoded, 0644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// recordsLocked returns the records sorted so that the file stays stable
// between writes.
func (s *Store) recordsLocked() []record {
	records := make([]record, 0, len(s.stages))
	for k, stage := range s.stages {
		records = append(records, record{Player: k.player.String(), Tutorial: k.tutorial, Stage: stage})
	}
	slices.SortFunc(records, func(a, b record) int {
		if c := strings.Compare(a.Player, b.Player); c != 0 {
			return c
		}
		return cmp.Compare(a.Tutorial, b.Tutorial)
	})
	return records
}
