// Package inmemory provides a map-backed store used by tests and by the
// memory storage mode. Writes made inside a transaction are undone when
// the transaction rolls back.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/txn"
)

// Store is an in-memory store.Store.
type Store struct {
	mu sync.RWMutex

	nextID       int64
	projects     map[int64]*trans.Project
	components   map[int64]*trans.Component
	translations map[int64]*trans.Translation
	units        map[int64]*trans.Unit
	users        map[int64]*trans.User
	addons       map[int64]*trans.Addon
	changes      []*trans.Change
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		projects:     make(map[int64]*trans.Project),
		components:   make(map[int64]*trans.Component),
		translations: make(map[int64]*trans.Translation),
		units:        make(map[int64]*trans.Unit),
		users:        make(map[int64]*trans.User),
		addons:       make(map[int64]*trans.Addon),
	}
}

// undo registers fn, run under the write lock, for when the transaction
// carried by ctx rolls back.
func (s *Store) undo(ctx context.Context, fn func()) {
	txn.OnRollback(ctx, func(context.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
	})
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddProject stores p, assigning an identifier when it has none.
func (s *Store) AddProject(p *trans.Project) *trans.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.projects[p.ID] = p
	return p
}

// AddComponent stores c, assigning an identifier when it has none.
func (s *Store) AddComponent(c *trans.Component) *trans.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	if p, ok := s.projects[c.ProjectID]; ok && c.ProjectSlug == "" {
		c.ProjectSlug = p.Slug
	}
	s.components[c.ID] = c
	return c
}

// AddUser stores u, assigning an identifier when it has none.
func (s *Store) AddUser(u *trans.User) *trans.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	s.users[u.ID] = u
	return u
}

// GetProject implements store.ProjectStore.
func (s *Store) GetProject(_ context.Context, id int64) (*trans.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// GetProjectBySlug implements store.ProjectStore.
func (s *Store) GetProjectBySlug(_ context.Context, slug string) (*trans.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("project %q: %w", slug, store.ErrNotFound)
}

// ListProjects implements store.ProjectStore.
func (s *Store) ListProjects(_ context.Context) ([]*trans.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopies(s.projects, func(p *trans.Project) int64 { return p.ID }), nil
}

// GetComponent implements store.ComponentStore.
func (s *Store) GetComponent(_ context.Context, id int64) (*trans.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.components[id]
	if !ok {
		return nil, fmt.Errorf("component %d: %w", id, store.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// GetComponentBySlug implements store.ComponentStore.
func (s *Store) GetComponentBySlug(_ context.Context, project, component string) (*trans.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.components {
		if c.ProjectSlug == project && c.Slug == component {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("component %s/%s: %w", project, component, store.ErrNotFound)
}

// ListComponents implements store.ComponentStore.
func (s *Store) ListComponents(_ context.Context, projectID int64) ([]*trans.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedCopies(s.components, func(c *trans.Component) int64 { return c.ID })
	return slices.DeleteFunc(all, func(c *trans.Component) bool { return c.ProjectID != projectID }), nil
}

// GetTranslation implements store.TranslationStore.
func (s *Store) GetTranslation(_ context.Context, id int64) (*trans.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.translations[id]
	if !ok {
		return nil, fmt.Errorf("translation %d: %w", id, store.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// ListTranslations implements store.TranslationStore.
func (s *Store) ListTranslations(_ context.Context, componentID int64) ([]*trans.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedCopies(s.translations, func(t *trans.Translation) int64 { return t.ID })
	return slices.DeleteFunc(all, func(t *trans.Translation) bool { return t.ComponentID != componentID }), nil
}

// CreateTranslation implements store.TranslationStore.
func (s *Store) CreateTranslation(ctx context.Context, t *trans.Translation, units []*trans.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.components[t.ComponentID]; !ok {
		return fmt.Errorf("component %d: %w", t.ComponentID, store.ErrNotFound)
	}
	for _, existing := range s.translations {
		if existing.ComponentID == t.ComponentID && existing.LanguageCode == t.LanguageCode {
			return fmt.Errorf("translation %s: %w", t.LanguageCode, store.ErrAlreadyExists)
		}
	}
	t.ID = s.id()
	cp := *t
	s.translations[t.ID] = &cp
	for _, u := range units {
		u.ID = s.id()
		u.TranslationID = t.ID
		ucp := *u
		s.units[u.ID] = &ucp
	}

	id := t.ID
	s.undo(ctx, func() {
		delete(s.translations, id)
		maps.DeleteFunc(s.units, func(_ int64, u *trans.Unit) bool { return u.TranslationID == id })
	})
	return nil
}

// DeleteTranslation implements store.TranslationStore.
func (s *Store) DeleteTranslation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.translations[id]
	if !ok {
		return fmt.Errorf("translation %d: %w", id, store.ErrNotFound)
	}
	removed := maps.Clone(s.units)
	maps.DeleteFunc(removed, func(_ int64, u *trans.Unit) bool { return u.TranslationID != id })

	delete(s.translations, id)
	maps.DeleteFunc(s.units, func(_ int64, u *trans.Unit) bool { return u.TranslationID == id })

	s.undo(ctx, func() {
		s.translations[id] = t
		maps.Copy(s.units, removed)
	})
	return nil
}

// ListUnits implements store.UnitStore.
func (s *Store) ListUnits(_ context.Context, translationID int64) ([]*trans.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedCopies(s.units, func(u *trans.Unit) int64 { return u.ID })
	return slices.DeleteFunc(all, func(u *trans.Unit) bool { return u.TranslationID != translationID }), nil
}

// UpdateUnits implements store.UnitStore.
func (s *Store) UpdateUnits(ctx context.Context, units []*trans.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := make(map[int64]*trans.Unit, len(units))
	for _, u := range units {
		old, ok := s.units[u.ID]
		if !ok {
			return fmt.Errorf("unit %d: %w", u.ID, store.ErrNotFound)
		}
		if _, seen := previous[u.ID]; !seen {
			previous[u.ID] = old
		}
	}
	for _, u := range units {
		cp := *u
		s.units[u.ID] = &cp
	}

	s.undo(ctx, func() { maps.Copy(s.units, previous) })
	return nil
}

// GetUser implements store.UserStore.
func (s *Store) GetUser(_ context.Context, id int64) (*trans.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrUserNotFound)
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername implements store.UserStore.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*trans.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", username, store.ErrUserNotFound)
}

// ListAddons implements store.AddonStore.
func (s *Store) ListAddons(_ context.Context, componentID int64) ([]*trans.Addon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedCopies(s.addons, func(a *trans.Addon) int64 { return a.ID })
	return slices.DeleteFunc(all, func(a *trans.Addon) bool { return a.ComponentID != componentID }), nil
}

// ListAddonsByName implements store.AddonStore.
func (s *Store) ListAddonsByName(_ context.Context, name string) ([]*trans.Addon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedCopies(s.addons, func(a *trans.Addon) int64 { return a.ID })
	return slices.DeleteFunc(all, func(a *trans.Addon) bool { return a.Name != name }), nil
}

// CreateAddon implements store.AddonStore.
func (s *Store) CreateAddon(ctx context.Context, addon *trans.Addon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addons {
		if a.ComponentID == addon.ComponentID && a.Name == addon.Name {
			return fmt.Errorf("addon %s: %w", addon.Name, store.ErrAlreadyExists)
		}
	}
	addon.ID = s.id()
	cp := *addon
	cp.Configuration = maps.Clone(addon.Configuration)
	s.addons[addon.ID] = &cp

	id := addon.ID
	s.undo(ctx, func() { delete(s.addons, id) })
	return nil
}

// RecordChange implements store.ChangeStore.
func (s *Store) RecordChange(ctx context.Context, change *trans.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	change.ID = s.id()
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	cp := *change
	s.changes = append(s.changes, &cp)

	id := change.ID
	s.undo(ctx, func() {
		s.changes = slices.DeleteFunc(s.changes, func(c *trans.Change) bool { return c.ID == id })
	})
	return nil
}

// ListChanges implements store.ChangeStore.
func (s *Store) ListChanges(_ context.Context, componentID int64) ([]*trans.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*trans.Change
	for _, c := range s.changes {
		if c.ComponentID == componentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func sortedCopies[T any](m map[int64]*T, key func(*T) int64) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		cp := *v
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *T) int { return cmp.Compare(key(a), key(b)) })
	return out
}
