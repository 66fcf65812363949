// Package store defines the persistence contracts of the translation
// platform. Implementations live in the db and inmemory subpackages.
package store

import (
	"context"
	"errors"

	"github.com/omprussia/weblate-omp/internal/trans"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned when a username cannot be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when a unique record already exists.
	ErrAlreadyExists = errors.New("already exists")
)

// ProjectStore reads projects.
type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*trans.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*trans.Project, error)
	ListProjects(ctx context.Context) ([]*trans.Project, error)
}

// ComponentStore reads components.
type ComponentStore interface {
	GetComponent(ctx context.Context, id int64) (*trans.Component, error)
	GetComponentBySlug(ctx context.Context, project, component string) (*trans.Component, error)
	ListComponents(ctx context.Context, projectID int64) ([]*trans.Component, error)
}

// TranslationStore manages translations and their units.
type TranslationStore interface {
	GetTranslation(ctx context.Context, id int64) (*trans.Translation, error)
	ListTranslations(ctx context.Context, componentID int64) ([]*trans.Translation, error)
	// CreateTranslation stores t and its units, assigning identifiers.
	CreateTranslation(ctx context.Context, t *trans.Translation, units []*trans.Unit) error
	// DeleteTranslation removes a translation and its units.
	DeleteTranslation(ctx context.Context, id int64) error
}

// UnitStore manages units.
type UnitStore interface {
	ListUnits(ctx context.Context, translationID int64) ([]*trans.Unit, error)
	UpdateUnits(ctx context.Context, units []*trans.Unit) error
}

// AddonStore manages addon installations.
type AddonStore interface {
	ListAddons(ctx context.Context, componentID int64) ([]*trans.Addon, error)
	ListAddonsByName(ctx context.Context, name string) ([]*trans.Addon, error)
	// CreateAddon returns ErrAlreadyExists when the addon is already installed
	// on the component.
	CreateAddon(ctx context.Context, addon *trans.Addon) error
}

// ChangeStore records component history.
type ChangeStore interface {
	RecordChange(ctx context.Context, change *trans.Change) error
	ListChanges(ctx context.Context, componentID int64) ([]*trans.Change, error)
}

// Store aggregates all stores.
type Store interface {
	ProjectStore
	ComponentStore
	TranslationStore
	UnitStore
	UserStore
	AddonStore
	ChangeStore
}
