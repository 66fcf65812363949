// Package lifecycle drives component repository updates and the daily
// addon tick, firing the addon events around them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/txn"
	"github.com/omprussia/weblate-omp/internal/vcs"
)

// Store is the persistence used by the lifecycle.
type Store interface {
	store.ProjectStore
	store.ComponentStore
}

// Updater updates component repositories from upstream.
type Updater struct {
	store      Store
	repo       vcs.Repository
	dispatcher *addons.Dispatcher
	txns       txn.Manager
}

// NewUpdater returns an Updater.
func NewUpdater(s Store, repo vcs.Repository, dispatcher *addons.Dispatcher, txns txn.Manager) *Updater {
	return &Updater{store: s, repo: repo, dispatcher: dispatcher, txns: txns}
}

// UpdateComponent runs one update cycle of c in a single transaction:
// pre-update handlers, the repository update, then post-update handlers
// with the revision the repository had before. Jobs scheduled by the
// handlers are published when the transaction commits.
func (u *Updater) UpdateComponent(ctx context.Context, c *trans.Component) error {
	start := time.Now()
	slog.InfoContext(ctx, "Updating component", "component", c.FullSlug())

	err := u.txns.InTx(ctx, func(ctx context.Context) error {
		if err := u.dispatcher.PreUpdate(ctx, c); err != nil {
			return err
		}
		previous, err := u.repo.Update(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to update repository of %s: %w", c.FullSlug(), err)
		}
		return u.dispatcher.PostUpdate(ctx, c, previous)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Component update failed",
			"component", c.FullSlug(),
			"duration", time.Since(start),
			"error", err)
		return err
	}

	slog.InfoContext(ctx, "Component updated", "component", c.FullSlug(), "duration", time.Since(start))
	return nil
}

// UpdateBySlug resolves project/component and updates it.
func (u *Updater) UpdateBySlug(ctx context.Context, project, component string) error {
	c, err := u.store.GetComponentBySlug(ctx, project, component)
	if err != nil {
		return err
	}
	return u.UpdateComponent(ctx, c)
}

// RunDaily fires the daily event on every component, one transaction per
// component. A failing component does not stop the others.
func (u *Updater) RunDaily(ctx context.Context) error {
	projects, err := u.store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	var errs []error
	count := 0
	for _, p := range projects {
		components, err := u.store.ListComponents(ctx, p.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list components of %s: %w", p.Slug, err))
			continue
		}
		for _, c := range components {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err := u.txns.InTx(ctx, func(ctx context.Context) error {
				return u.dispatcher.Daily(ctx, c)
			})
			if err != nil {
				slog.ErrorContext(ctx, "Daily addon run failed", "component", c.FullSlug(), "error", err)
				errs = append(errs, err)
				continue
			}
			count++
		}
	}

	slog.InfoContext(ctx, "Daily addon run finished", "components", count, "failed", len(errs))
	return errors.Join(errs...)
}
