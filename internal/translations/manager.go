// Package translations implements the translation operations of the
// platform on top of the store and the component repository.
package translations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/templates"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/vcs"
)

// AddOptions controls AddNewLanguage.
type AddOptions struct {
	// Actor is recorded as the author of the change.
	Actor *trans.User
	// SendSignal notifies translation-added listeners. The change is
	// recorded either way.
	SendSignal bool
}

// Manager manages translations of components
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks -source=manager.go Manager
type Manager interface {
	ListTranslations(ctx context.Context, componentID int64) ([]*trans.Translation, error)
	// RemoveTranslation deletes t and its units on behalf of actor.
	RemoveTranslation(ctx context.Context, t *trans.Translation, actor *trans.User) error
	// AddNewLanguage creates a translation of c for languageCode populated
	// from the current template.
	AddNewLanguage(ctx context.Context, c *trans.Component, languageCode string, opts AddOptions) (*trans.Translation, error)
}

// Store is the persistence used by the manager.
type Store interface {
	store.ComponentStore
	store.TranslationStore
	store.UnitStore
	store.ChangeStore
}

// AddedListener is notified when a translation is added with signals enabled.
type AddedListener func(ctx context.Context, c *trans.Component, t *trans.Translation)

// Option configures the manager
type Option func(*defaultManager)

// WithAddedListener registers a translation-added listener
func WithAddedListener(l AddedListener) Option {
	return func(m *defaultManager) {
		m.listeners = append(m.listeners, l)
	}
}

// WithParsers replaces the template parser registry
func WithParsers(r *templates.Registry) Option {
	return func(m *defaultManager) {
		m.parsers = r
	}
}

// WithMessages replaces the change message templates
func WithMessages(msgs *Messages) Option {
	return func(m *defaultManager) {
		m.messages = msgs
	}
}

type defaultManager struct {
	store     Store
	repo      vcs.Repository
	parsers   *templates.Registry
	messages  *Messages
	listeners []AddedListener
}

// NewManager returns a Manager
func NewManager(s Store, repo vcs.Repository, opts ...Option) Manager {
	m := &defaultManager{
		store:   s,
		repo:    repo,
		parsers: templates.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.messages == nil {
		// Defaults always compile.
		m.messages, _ = NewMessages(config.CommitMessagesConfig{})
	}
	return m
}

// ListTranslations implements Manager
func (m *defaultManager) ListTranslations(ctx context.Context, componentID int64) ([]*trans.Translation, error) {
	return m.store.ListTranslations(ctx, componentID)
}

// RemoveTranslation implements Manager
func (m *defaultManager) RemoveTranslation(ctx context.Context, t *trans.Translation, actor *trans.User) error {
	if err := m.store.DeleteTranslation(ctx, t.ID); err != nil {
		return fmt.Errorf("failed to remove translation %s: %w", t.LanguageCode, err)
	}

	c, err := m.store.GetComponent(ctx, t.ComponentID)
	if err != nil {
		return err
	}
	details, err := m.messages.Delete(c, t)
	if err != nil {
		return err
	}

	change := &trans.Change{
		Action:        trans.ActionRemoveTranslation,
		ComponentID:   t.ComponentID,
		TranslationID: t.ID,
		UserID:        userID(actor),
		Details:       details,
	}
	if err := m.store.RecordChange(ctx, change); err != nil {
		return fmt.Errorf("failed to record removal: %w", err)
	}

	slog.DebugContext(ctx, "Removed translation", "translation", t.ID, "language", t.LanguageCode)
	return nil
}

// AddNewLanguage implements Manager
func (m *defaultManager) AddNewLanguage(
	ctx context.Context, c *trans.Component, languageCode string, opts AddOptions,
) (*trans.Translation, error) {
	units, err := m.templateUnits(ctx, c)
	if err != nil {
		return nil, err
	}

	t := &trans.Translation{
		ComponentID:  c.ID,
		LanguageCode: languageCode,
		Filename:     strings.Replace(c.FileMask, "*", languageCode, 1),
	}
	if err := m.store.CreateTranslation(ctx, t, units); err != nil {
		return nil, fmt.Errorf("failed to add %s to %s: %w", languageCode, c.FullSlug(), err)
	}

	details, err := m.messages.Add(c, t)
	if err != nil {
		return nil, err
	}
	change := &trans.Change{
		Action:        trans.ActionNew,
		ComponentID:   c.ID,
		TranslationID: t.ID,
		UserID:        userID(opts.Actor),
		Details:       details,
	}
	if err := m.store.RecordChange(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to record new translation: %w", err)
	}

	if opts.SendSignal {
		for _, l := range m.listeners {
			l(ctx, c, t)
		}
	}

	slog.DebugContext(ctx, "Added translation",
		"component", c.FullSlug(), "language", languageCode, "units", len(units))
	return t, nil
}

// templateUnits returns empty units for every template entry. Components
// without a template copy the strings of their source translation.
func (m *defaultManager) templateUnits(ctx context.Context, c *trans.Component) ([]*trans.Unit, error) {
	if c.Template == "" {
		return m.sourceUnits(ctx, c)
	}

	data, err := m.repo.ReadFile(ctx, c, c.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to read template of %s: %w", c.FullSlug(), err)
	}
	entries, err := m.parsers.Parse(c.FileFormat, c.Template, data)
	if err != nil {
		return nil, err
	}

	units := make([]*trans.Unit, 0, len(entries))
	for _, e := range entries {
		units = append(units, &trans.Unit{Context: e.Context, Source: e.Source, State: trans.StateEmpty})
	}
	return units, nil
}

func (m *defaultManager) sourceUnits(ctx context.Context, c *trans.Component) ([]*trans.Unit, error) {
	list, err := m.store.ListTranslations(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if !t.IsSource {
			continue
		}
		source, err := m.store.ListUnits(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		units := make([]*trans.Unit, 0, len(source))
		for _, u := range source {
			units = append(units, &trans.Unit{Context: u.Context, Source: u.Source, State: trans.StateEmpty})
		}
		return units, nil
	}
	return nil, fmt.Errorf("component %s has neither a template nor a source translation", c.FullSlug())
}

func userID(u *trans.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
