package synchronize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/trans"
)

// MarkerSet records components whose template changed in the running
// update cycle.
type MarkerSet struct {
	mu     sync.Mutex
	marked map[int64]struct{}
}

// NewMarkerSet returns an empty set.
func NewMarkerSet() *MarkerSet {
	return &MarkerSet{marked: make(map[int64]struct{})}
}

// Mark sets the marker of a component.
func (m *MarkerSet) Mark(componentID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked[componentID] = struct{}{}
}

// Marked reports whether the component is marked.
func (m *MarkerSet) Marked(componentID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.marked[componentID]
	return ok
}

// Take clears the marker and reports whether it was set.
func (m *MarkerSet) Take(componentID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.marked[componentID]
	delete(m.marked, componentID)
	return ok
}

// ActorContext resolves the service account on first use and keeps it for
// the lifetime of the coordinator. Failed lookups are not cached.
type ActorContext struct {
	users    store.UserStore
	username string

	mu   sync.Mutex
	user *trans.User
}

// NewActorContext returns a context resolving username through users.
func NewActorContext(users store.UserStore, username string) *ActorContext {
	return &ActorContext{users: users, username: username}
}

// Username returns the configured account name.
func (a *ActorContext) Username() string {
	return a.username
}

// Resolve returns the service account, looking it up the first time.
func (a *ActorContext) Resolve(ctx context.Context) (*trans.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user != nil {
		return a.user, nil
	}
	u, err := a.users.GetUserByUsername(ctx, a.username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor %s: %w", a.username, err)
	}
	a.user = u
	return u, nil
}

// ActivationStore remembers components where the first mandatory run
// completed.
type ActivationStore interface {
	// Activated reports whether componentID was recorded.
	Activated(ctx context.Context, componentID int64) (bool, error)
	// Activate records componentID.
	Activate(ctx context.Context, componentID int64) error
}

type memoryActivations struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewMemoryActivationStore keeps activations for the life of the process.
func NewMemoryActivationStore() ActivationStore {
	return &memoryActivations{ids: make(map[int64]struct{})}
}

func (m *memoryActivations) Activated(_ context.Context, componentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[componentID]
	return ok, nil
}

func (m *memoryActivations) Activate(_ context.Context, componentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[componentID] = struct{}{}
	return nil
}

type activationFile struct {
	Components []int64 `json:"components"`
}

type fileActivations struct {
	path string

	mu     sync.Mutex
	loaded bool
	ids    map[int64]struct{}
}

// NewFileActivationStore persists activations as JSON at path.
func NewFileActivationStore(path string) ActivationStore {
	return &fileActivations{path: path, ids: make(map[int64]struct{})}
}

func (f *fileActivations) Activated(_ context.Context, componentID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return false, err
	}
	_, ok := f.ids[componentID]
	return ok, nil
}

func (f *fileActivations) Activate(_ context.Context, componentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return err
	}
	if _, ok := f.ids[componentID]; ok {
		return nil
	}

	f.ids[componentID] = struct{}{}
	if err := f.save(); err != nil {
		delete(f.ids, componentID)
		return err
	}
	return nil
}

func (f *fileActivations) load() error {
	if f.loaded {
		return nil
	}
	// #nosec G304 -- path comes from the service configuration
	data, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read activation state: %w", err)
	}
	if len(data) > 0 {
		var state activationFile
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("failed to parse activation state %s: %w", f.path, err)
		}
		for _, id := range state.Components {
			f.ids[id] = struct{}{}
		}
	}
	f.loaded = true
	return nil
}

func (f *fileActivations) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create activation state directory: %w", err)
	}

	state := activationFile{Components: make([]int64, 0, len(f.ids))}
	for id := range f.ids {
		state.Components = append(state.Components, id)
	}
	slices.Sort(state.Components)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode activation state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write activation state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace activation state: %w", err)
	}
	return nil
}
