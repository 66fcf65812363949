package addons

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/txn"
)

// InstallStore is the persistence used by the installer.
type InstallStore interface {
	store.ProjectStore
	store.ComponentStore
	store.UserStore
	store.AddonStore
}

// Installer installs addons on components.
type Installer struct {
	registry   *Registry
	store      InstallStore
	dispatcher *Dispatcher
	txns       txn.Manager
}

// NewInstaller returns an installer. Each installation and its first
// EventComponentUpdate run in one transaction of txns.
func NewInstaller(registry *Registry, s InstallStore, dispatcher *Dispatcher, txns txn.Manager) *Installer {
	return &Installer{registry: registry, store: s, dispatcher: dispatcher, txns: txns}
}

// CheckConfiguration validates configuration for addon. Every problem is
// logged; the returned error wraps ErrInvalidConfiguration.
func (i *Installer) CheckConfiguration(addon Addon, configuration map[string]any) error {
	v, ok := addon.(ConfigurationValidator)
	if !ok {
		return nil
	}
	err := v.ValidateConfiguration(configuration)
	if err == nil {
		return nil
	}

	problems := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		problems = joined.Unwrap()
	}
	for _, p := range problems {
		slog.Error("Invalid addon configuration", "addon", addon.Name(), "error", p)
	}
	return fmt.Errorf("%w for %s: %w", ErrInvalidConfiguration, addon.Name(), err)
}

// InstallAddon installs addon on c unless it is already present, then
// fires EventComponentUpdate for the new installation. It reports whether
// an installation was created.
func (i *Installer) InstallAddon(
	ctx context.Context, addon Addon, c *trans.Component, user *trans.User, configuration map[string]any,
) (bool, error) {
	if !addon.CanInstall(ctx, c, user) {
		return false, fmt.Errorf("%w: %s on %s", ErrCannotInstall, addon.Name(), c.FullSlug())
	}

	existing, err := i.store.ListAddons(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list addons of %s: %w", c.FullSlug(), err)
	}
	for _, inst := range existing {
		if inst.Name == addon.Name() {
			slog.InfoContext(ctx, "Addon already installed", "addon", addon.Name(), "component", c.FullSlug())
			return false, nil
		}
	}

	slog.InfoContext(ctx, "Installing addon", "addon", addon.Name(), "component", c.FullSlug())
	if err := i.CheckConfiguration(addon, configuration); err != nil {
		return false, err
	}

	created := false
	err = i.txns.InTx(ctx, func(ctx context.Context) error {
		inst := &trans.Addon{
			ComponentID:   c.ID,
			Name:          addon.Name(),
			Configuration: configuration,
			ProjectScope:  addon.Metadata().ProjectScope,
		}
		if err := i.store.CreateAddon(ctx, inst); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return nil
			}
			return fmt.Errorf("failed to store addon %s on %s: %w", addon.Name(), c.FullSlug(), err)
		}
		created = true
		return i.dispatcher.Deliver(ctx, inst, c, EventComponentUpdate, "")
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// InstallForProjects installs the named addon on the components of the
// given projects, or of every project when projectSlugs is empty.
// Project-scoped addons are installed on the first component of each
// project only. It returns the number of new installations.
func (i *Installer) InstallForProjects(
	ctx context.Context, addonName, username string, projectSlugs []string, configuration map[string]any,
) (int, error) {
	addon, err := i.registry.Get(addonName)
	if err != nil {
		return 0, err
	}

	user, err := i.store.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("can not find user %s: %w", username, err)
	}

	projects, err := i.resolveProjects(ctx, projectSlugs)
	if err != nil {
		return 0, err
	}

	installed := 0
	for _, project := range projects {
		components, err := i.store.ListComponents(ctx, project.ID)
		if err != nil {
			return installed, fmt.Errorf("failed to list components of %s: %w", project.Slug, err)
		}
		for _, c := range components {
			created, err := i.InstallAddon(ctx, addon, c, user, configuration)
			switch {
			case errors.Is(err, ErrCannotInstall):
				slog.WarnContext(ctx, "Addon refused component", "addon", addonName, "component", c.FullSlug())
			case err != nil:
				return installed, err
			case created:
				installed++
			}
			if addon.Metadata().ProjectScope {
				break
			}
		}
	}

	slog.InfoContext(ctx, "Bulk addon installation finished",
		"addon", addonName,
		"projects", len(projects),
		"installed", installed)
	return installed, nil
}

// HandleInstallJob runs an InstallAddon job.
func (i *Installer) HandleInstallJob(ctx context.Context, job tasks.InstallAddon) error {
	_, err := i.InstallForProjects(ctx, job.Addon, job.Username, job.ProjectSlugs, job.Configuration)
	return err
}

func (i *Installer) resolveProjects(ctx context.Context, slugs []string) ([]*trans.Project, error) {
	if len(slugs) == 0 {
		projects, err := i.store.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		return projects, nil
	}

	projects := make([]*trans.Project, 0, len(slugs))
	for _, slug := range slugs {
		p, err := i.store.GetProjectBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to load project %s: %w", slug, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}
