// Package service provides the operations behind the HTTP hooks: listing
// addons, installing them and running component updates.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/trans"
)

// ErrNotReady is returned by CheckReadiness while a dependency is unavailable.
var ErrNotReady = errors.New("service not ready")

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go AddonService

// AddonService defines the operations exposed over HTTP
type AddonService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// ListAddons returns the metadata of the registered addons ordered by name
	ListAddons(ctx context.Context) []addons.Metadata

	// UpdateComponent runs an update cycle of project/component
	UpdateComponent(ctx context.Context, project, component string) error

	// InstallAddon installs an addon on project/component and reports
	// whether it was newly installed
	InstallAddon(ctx context.Context, req InstallRequest) (bool, error)

	// ScheduleInstall validates a bulk installation and enqueues it
	ScheduleInstall(ctx context.Context, job tasks.InstallAddon) error
}

// InstallRequest installs one addon on one component.
type InstallRequest struct {
	Project       string
	Component     string
	Addon         string
	Username      string
	Configuration map[string]any
}

// ComponentUpdater runs update cycles.
type ComponentUpdater interface {
	UpdateBySlug(ctx context.Context, project, component string) error
}

// Store is the persistence used by the service.
type Store interface {
	store.ComponentStore
	store.UserStore
}

// Option configures the service
type Option func(*addonService)

// WithReadinessCheck adds a dependency checked by CheckReadiness
func WithReadinessCheck(check func(ctx context.Context) error) Option {
	return func(s *addonService) {
		s.checks = append(s.checks, check)
	}
}

type addonService struct {
	registry  *addons.Registry
	installer *addons.Installer
	updater   ComponentUpdater
	store     Store
	queue     tasks.Queue
	checks    []func(ctx context.Context) error
}

// New returns an AddonService.
func New(
	registry *addons.Registry,
	installer *addons.Installer,
	updater ComponentUpdater,
	s Store,
	queue tasks.Queue,
	opts ...Option,
) AddonService {
	svc := &addonService{
		registry:  registry,
		installer: installer,
		updater:   updater,
		store:     s,
		queue:     queue,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CheckReadiness implements AddonService
func (s *addonService) CheckReadiness(ctx context.Context) error {
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
	}
	return nil
}

// ListAddons implements AddonService
func (s *addonService) ListAddons(_ context.Context) []addons.Metadata {
	registered := s.registry.List()
	out := make([]addons.Metadata, 0, len(registered))
	for _, a := range registered {
		out = append(out, a.Metadata())
	}
	return out
}

// UpdateComponent implements AddonService
func (s *addonService) UpdateComponent(ctx context.Context, project, component string) error {
	return s.updater.UpdateBySlug(ctx, project, component)
}

// InstallAddon implements AddonService
func (s *addonService) InstallAddon(ctx context.Context, req InstallRequest) (bool, error) {
	addon, err := s.registry.Get(req.Addon)
	if err != nil {
		return false, err
	}
	c, err := s.store.GetComponentBySlug(ctx, req.Project, req.Component)
	if err != nil {
		return false, err
	}

	var user *trans.User
	if req.Username != "" {
		if user, err = s.store.GetUserByUsername(ctx, req.Username); err != nil {
			return false, err
		}
	}
	return s.installer.InstallAddon(ctx, addon, c, user, req.Configuration)
}

// ScheduleInstall implements AddonService
func (s *addonService) ScheduleInstall(ctx context.Context, job tasks.InstallAddon) error {
	addon, err := s.registry.Get(job.Addon)
	if err != nil {
		return err
	}
	if _, err := s.store.GetUserByUsername(ctx, job.Username); err != nil {
		return err
	}
	if err := s.installer.CheckConfiguration(addon, job.Configuration); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to schedule installation of %s: %w", job.Addon, err)
	}
	slog.InfoContext(ctx, "Bulk addon installation scheduled",
		"addon", job.Addon,
		"projects", len(job.ProjectSlugs))
	return nil
}
