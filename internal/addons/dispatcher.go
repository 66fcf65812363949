package addons

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/telemetry"
	"github.com/omprussia/weblate-omp/internal/trans"
)

// Dispatcher delivers events to the addons installed on a component.
type Dispatcher struct {
	registry *Registry
	store    store.AddonStore
	metrics  *telemetry.Metrics
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherMetrics counts handler invocations
func WithDispatcherMetrics(m *telemetry.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher returns a dispatcher resolving installations from s.
func NewDispatcher(registry *Registry, s store.AddonStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, store: s}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ComponentUpdate fires EventComponentUpdate on every installation of c.
func (d *Dispatcher) ComponentUpdate(ctx context.Context, c *trans.Component) error {
	return d.dispatch(ctx, c, EventComponentUpdate, "")
}

// PreUpdate fires EventPreUpdate.
func (d *Dispatcher) PreUpdate(ctx context.Context, c *trans.Component) error {
	return d.dispatch(ctx, c, EventPreUpdate, "")
}

// PostUpdate fires EventPostUpdate with the revision preceding the update.
func (d *Dispatcher) PostUpdate(ctx context.Context, c *trans.Component, previousRevision string) error {
	return d.dispatch(ctx, c, EventPostUpdate, previousRevision)
}

// Daily fires EventDaily.
func (d *Dispatcher) Daily(ctx context.Context, c *trans.Component) error {
	return d.dispatch(ctx, c, EventDaily, "")
}

// Deliver fires event on a single installation.
func (d *Dispatcher) Deliver(
	ctx context.Context, inst *trans.Addon, c *trans.Component, event Event, previousRevision string,
) error {
	addon, err := d.registry.Get(inst.Name)
	if err != nil {
		return err
	}
	return d.deliver(ctx, addon, inst, c, event, previousRevision)
}

// dispatch runs the handlers in installation order and stops at the first error.
func (d *Dispatcher) dispatch(ctx context.Context, c *trans.Component, event Event, previousRevision string) error {
	installations, err := d.store.ListAddons(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to list addons of %s: %w", c.FullSlug(), err)
	}

	for _, inst := range installations {
		addon, err := d.registry.Get(inst.Name)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unknown addon installation",
				"component", c.FullSlug(),
				"addon", inst.Name)
			continue
		}
		if err := d.deliver(ctx, addon, inst, c, event, previousRevision); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) deliver(
	ctx context.Context, addon Addon, inst *trans.Addon, c *trans.Component, event Event, previousRevision string,
) error {
	if !addon.Metadata().Subscribes(event) {
		return nil
	}

	var err error
	handled := true
	switch event {
	case EventComponentUpdate:
		if h, ok := addon.(ComponentUpdateHandler); ok {
			err = h.OnComponentUpdate(ctx, inst, c)
		} else {
			handled = false
		}
	case EventPreUpdate:
		if h, ok := addon.(PreUpdateHandler); ok {
			err = h.OnPreUpdate(ctx, inst, c)
		} else {
			handled = false
		}
	case EventPostUpdate:
		if h, ok := addon.(PostUpdateHandler); ok {
			err = h.OnPostUpdate(ctx, inst, c, previousRevision)
		} else {
			handled = false
		}
	case EventDaily:
		if h, ok := addon.(DailyHandler); ok {
			err = h.OnDaily(ctx, inst, c)
		} else {
			handled = false
		}
	default:
		return fmt.Errorf("unknown addon event %q", event)
	}
	if !handled {
		return nil
	}

	d.metrics.RecordAddonEvent(ctx, addon.Name(), string(event), err == nil)
	if err != nil {
		return fmt.Errorf("addon %s failed on %s of %s: %w", addon.Name(), event, c.FullSlug(), err)
	}
	slog.DebugContext(ctx, "Addon event handled",
		"addon", addon.Name(),
		"event", string(event),
		"component", c.FullSlug())
	return nil
}
