package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/kv"
)

// DefaultKey is the slot the project list is mirrored into.
const DefaultKey = "portfolioProjects"

// Store is the authoritative ordered project list. Index 0 is the most
// prominent entry and display order is list order.
//
// Every mutation persists the complete next list first and only replaces the
// in-memory list once the write succeeded, so a failed write leaves both sides
// equal to their previous state.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	key    string
	logger *zap.Logger
	newID  func() string

	ready bool
	items []Project
}

type Option func(*Store)

// WithKey overrides the persistence slot.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithIDGenerator replaces the time-ordered UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func NewStore(store kv.Store, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		key:    DefaultKey,
		logger: logger.Named("portfolio"),
		newID:  newProjectID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newProjectID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load reads the persisted mirror. An absent or malformed mirror yields an
// empty, ready store. A failing substrate leaves the store loading and returns
// ErrPersistence so the caller can retry.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.items = []Project{}
		s.ready = true
		s.logger.Info("No saved projects, starting empty", zap.String("key", s.key))
		return nil
	case err != nil:
		s.logger.Error("Failed to read saved projects", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	items, err := Decode(data)
	if err != nil {
		s.logger.Warn("Saved projects are malformed, starting empty", zap.String("key", s.key), zap.Error(err))
		items = []Project{}
	}
	s.items = items
	s.ready = true
	s.logger.Info("Loaded projects", zap.Int("count", len(items)))
	return nil
}

// Ready reports whether Load has completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// List returns a copy of the projects in display order. It is empty while loading.
func (s *Store) List() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, len(s.items))
	for i, p := range s.items {
		out[i] = p.clone()
	}
	return out
}

func (s *Store) Get(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i].clone(), true
	}
	return Project{}, false
}

// Add validates in, assigns a fresh id and places the project first.
func (s *Store) Add(ctx context.Context, in Input) (Project, error) {
	if err := in.Validate(); err != nil {
		return Project{}, err
	}
	in = in.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return Project{}, ErrNotReady
	}

	p := in.toProject(s.newID())
	for s.indexOf(p.ID) >= 0 {
		p.ID = s.newID()
	}
	next := make([]Project, 0, len(s.items)+1)
	next = append(next, p)
	next = append(next, s.items...)
	if err := s.commit(ctx, next); err != nil {
		return Project{}, err
	}
	s.logger.Info("Project added", zap.String("id", p.ID), zap.String("title", p.Title))
	return p.clone(), nil
}

// Edit replaces every field of the project with id except the id itself.
func (s *Store) Edit(ctx context.Context, id string, in Input) (Project, error) {
	if err := in.Validate(); err != nil {
		return Project{}, err
	}
	in = in.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return Project{}, ErrNotReady
	}

	i := s.indexOf(id)
	if i < 0 {
		return Project{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := append([]Project(nil), s.items...)
	next[i] = in.toProject(id)
	if err := s.commit(ctx, next); err != nil {
		return Project{}, err
	}
	s.logger.Info("Project updated", zap.String("id", id))
	return next[i].clone(), nil
}

// Delete removes the project with id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	next := make([]Project, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("Project deleted", zap.String("id", id))
	return nil
}

// Pin moves the project with id to the front, keeping the relative order of
// the rest. Unknown ids and already-pinned projects are a no-op.
func (s *Store) Pin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}

	i := s.indexOf(id)
	if i <= 0 {
		return nil
	}
	next := make([]Project, 0, len(s.items))
	next = append(next, s.items[i])
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("Project pinned", zap.String("id", id))
	return nil
}

// TagSuggestions merges the curated vocabulary with every tag in use.
func (s *Store) TagSuggestions() []string {
	s.mu.Lock()
	sets := make([][]string, 0, len(s.items)+1)
	sets = append(sets, CuratedTags)
	for _, p := range s.items {
		sets = append(sets, p.Tags)
	}
	s.mu.Unlock()
	return MergeTags(sets...)
}

// commit persists next and, only on success, makes it the in-memory list.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []Project) error {
	data, err := Encode(next)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		s.logger.Error("Failed to save projects", zap.Int("count", len(next)), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.items = next
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Encode serializes the list in the persisted mirror format.
func Encode(items []Project) ([]byte, error) {
	if items == nil {
		items = []Project{}
	}
	return json.Marshal(items)
}

// Decode parses a persisted mirror. Entries without an id are rejected so a
// corrupt mirror cannot introduce unaddressable projects.
func Decode(data []byte) ([]Project, error) {
	var items []Project
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Project{}
	}
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if items[i].ID == "" {
			return nil, fmt.Errorf("entry %d has no id", i)
		}
		if _, dup := seen[items[i].ID]; dup {
			return nil, fmt.Errorf("entry %d repeats id %s", i, items[i].ID)
		}
		seen[items[i].ID] = struct{}{}
		if items[i].Tags == nil {
			items[i].Tags = []string{}
		}
	}
	return items, nil
}
