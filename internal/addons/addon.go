// Package addons is the addon framework of the platform: addons subscribe
// to component events and are installed per component with their own
// configuration.
package addons

import (
	"context"
	"errors"
	"slices"

	"github.com/omprussia/weblate-omp/internal/trans"
)

var (
	// ErrAddonNotFound is returned for unknown addon names.
	ErrAddonNotFound = errors.New("addon not found")
	// ErrInvalidConfiguration is returned when an addon rejects its configuration.
	ErrInvalidConfiguration = errors.New("invalid addon configuration")
	// ErrCannotInstall is returned when an addon refuses a component.
	ErrCannotInstall = errors.New("addon cannot be installed")
)

// Event is a component lifecycle event.
type Event string

// Events
const (
	// EventComponentUpdate fires when an addon is installed or its component changes settings.
	EventComponentUpdate Event = "component_update"
	// EventPreUpdate fires before the repository is updated from upstream.
	EventPreUpdate Event = "pre_update"
	// EventPostUpdate fires after the repository update.
	EventPostUpdate Event = "post_update"
	// EventDaily fires once per daily tick.
	EventDaily Event = "daily"
)

// Metadata describes an addon.
type Metadata struct {
	Name        string   `json:"name"`
	Verbose     string   `json:"verbose"`
	Description string   `json:"description"`
	Events      []Event  `json:"events"`
	Settings    []string `json:"settings,omitempty"`
	// ProjectScope addons are installed on one component per project.
	ProjectScope bool `json:"project_scope"`
	Multiple     bool `json:"multiple"`
}

// Subscribes reports whether the addon receives e.
func (m Metadata) Subscribes(e Event) bool {
	return slices.Contains(m.Events, e)
}

// Addon is implemented by every addon. Event handling is opted into with
// the handler interfaces below.
type Addon interface {
	Name() string
	Metadata() Metadata
	CanInstall(ctx context.Context, c *trans.Component, user *trans.User) bool
}

// ComponentUpdateHandler handles EventComponentUpdate.
type ComponentUpdateHandler interface {
	OnComponentUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component) error
}

// PreUpdateHandler handles EventPreUpdate.
type PreUpdateHandler interface {
	OnPreUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component) error
}

// PostUpdateHandler handles EventPostUpdate.
type PostUpdateHandler interface {
	OnPostUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component, previousRevision string) error
}

// DailyHandler handles EventDaily.
type DailyHandler interface {
	OnDaily(ctx context.Context, inst *trans.Addon, c *trans.Component) error
}

// ConfigurationValidator is implemented by addons with settings.
type ConfigurationValidator interface {
	ValidateConfiguration(configuration map[string]any) error
}
