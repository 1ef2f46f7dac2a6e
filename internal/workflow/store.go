package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/datadeck/internal/debounce"
	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/google/uuid"
)

// DraftSaver persists a draft. draft.Hash is the base hash the save is
// checked against; the returned string is the new hash.
type DraftSaver interface {
	SaveDraft(ctx context.Context, draft domain.PipelineDraft) (string, error)
}

// DraftLoader fetches the stored draft of a pipeline.
type DraftLoader func(ctx context.Context, pipelineID uuid.UUID) (domain.PipelineDraft, error)

// DefaultSaveTimeout bounds a single autosave.
const DefaultSaveTimeout = 10 * time.Second

type entry struct {
	state     State
	rev       uint64
	debouncer *debounce.Debouncer
}

// Store keeps editor state per pipeline. Create one per process and inject it
// where needed.
type Store struct {
	saver       DraftSaver
	delay       time.Duration
	saveTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// NewStore creates a Store that autosaves dirty drafts delay after the last
// change.
func NewStore(saver DraftSaver, delay time.Duration, logger *slog.Logger) *Store {
	return &Store{
		saver:       saver,
		delay:       delay,
		saveTimeout: DefaultSaveTimeout,
		logger:      logger,
		entries:     make(map[uuid.UUID]*entry),
	}
}

// Get returns the state of a pipeline if it has been loaded.
func (s *Store) Get(id uuid.UUID) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Load returns the state of a pipeline, fetching its draft with loader the
// first time.
func (s *Store) Load(ctx context.Context, id uuid.UUID, loader DraftLoader) (State, error) {
	if st, ok := s.Get(id); ok {
		return st, nil
	}

	draft, err := loader(ctx, id)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have loaded it meanwhile.
	if e, ok := s.entries[id]; ok {
		return e.state, nil
	}
	e := s.newEntry(id)
	e.state = State{}.WithDraft(draft)
	return e.state, nil
}

// Update applies fn to the pipeline's state and stores the result. A dirty
// result schedules an autosave, replacing any pending one.
func (s *Store) Update(id uuid.UUID, fn func(State) State) State {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = s.newEntry(id)
	}
	e.state = fn(e.state)
	e.rev++
	next := e.state
	s.mu.Unlock()

	if next.Dirty {
		e.debouncer.Trigger(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
			defer cancel()
			_ = s.save(ctx, id)
		})
	}
	return next
}

// Forget drops a pipeline's state and any pending autosave.
func (s *Store) Forget(id uuid.UUID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		e.debouncer.Cancel()
	}
}

// FlushAll saves every dirty draft now. Called on shutdown.
func (s *Store) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.entries))
	for id, e := range s.entries {
		e.debouncer.Cancel()
		if e.state.Dirty {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.save(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) newEntry(id uuid.UUID) *entry {
	e := &entry{debouncer: debounce.New(s.delay)}
	e.state.Draft.PipelineID = id
	s.entries[id] = e
	return e
}

// save writes the current draft. If the state changed while the save was in
// flight, only the hash is taken so the next save builds on it.
func (s *Store) save(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || !e.state.Dirty {
		s.mu.Unlock()
		return nil
	}
	draft := e.state.Draft.Clone()
	rev := e.rev
	s.mu.Unlock()

	start := time.Now()
	hash, err := s.saver.SaveDraft(ctx, draft)
	if err != nil {
		level := slog.LevelError
		if domain.ErrorCode(err) == domain.ECONFLICT {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "draft autosave failed",
			"pipeline_id", id,
			"error", err,
		)
		return err
	}

	s.mu.Lock()
	if cur, ok := s.entries[id]; ok && cur == e {
		if e.rev == rev {
			e.state = e.state.MarkSaved(hash)
		} else {
			e.state.Draft = e.state.Draft.Clone()
			e.state.Draft.Hash = hash
		}
	}
	s.mu.Unlock()

	s.logger.Debug("draft autosaved",
		"pipeline_id", id,
		"hash", hash,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
