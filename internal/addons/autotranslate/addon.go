// Package autotranslate is the older automatic translation addon. It
// recreates translations when the source file changes upstream and runs
// automatic translation daily without a service account.
package autotranslate

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/addons/synchronize"
	settings "github.com/omprussia/weblate-omp/internal/autotranslate"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/translations"
	"github.com/omprussia/weblate-omp/internal/vcs"
)

// Name is the registered addon name.
const Name = "weblate.autotranslate.autotranslate"

var metadata = addons.Metadata{
	Name:        Name,
	Verbose:     "Automatic translation",
	Description: "Recreates translations when the source file changes and translates them daily.",
	Events: []addons.Event{
		addons.EventComponentUpdate,
		addons.EventPreUpdate,
		addons.EventPostUpdate,
		addons.EventDaily,
	},
	Settings: []string{"mode", "filter_type", "auto_source", "component", "engines", "threshold"},
}

// Addon is the automatic translation addon.
type Addon struct {
	translations translations.Manager
	repo         vcs.Repository
	queue        tasks.Queue
	markers      *synchronize.MarkerSet
}

// New returns the addon.
func New(manager translations.Manager, repo vcs.Repository, queue tasks.Queue) *Addon {
	return &Addon{
		translations: manager,
		repo:         repo,
		queue:        tasks.Deferred(queue),
		markers:      synchronize.NewMarkerSet(),
	}
}

// Name implements addons.Addon
func (*Addon) Name() string { return Name }

// Metadata implements addons.Addon
func (*Addon) Metadata() addons.Metadata { return metadata }

// CanInstall implements addons.Addon
func (*Addon) CanInstall(context.Context, *trans.Component, *trans.User) bool { return true }

// ValidateConfiguration implements addons.ConfigurationValidator
func (*Addon) ValidateConfiguration(configuration map[string]any) error {
	return settings.ValidateConfiguration(configuration)
}

// OnComponentUpdate implements addons.ComponentUpdateHandler
func (a *Addon) OnComponentUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component) error {
	return a.OnDaily(ctx, inst, c)
}

// OnPreUpdate marks c when upstream changes its source file.
func (a *Addon) OnPreUpdate(ctx context.Context, _ *trans.Addon, c *trans.Component) error {
	source, err := a.sourceTranslation(ctx, c)
	if err != nil || source == nil {
		return err
	}
	changed, err := a.repo.ListUpstreamChangedFiles(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to list upstream changes of %s: %w", c.FullSlug(), err)
	}
	if slices.Contains(changed, source.Filename) {
		a.markers.Mark(c.ID)
	}
	return nil
}

// OnPostUpdate recreates every non-source translation of a marked
// component and translates them.
func (a *Addon) OnPostUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component, _ string) error {
	if !a.markers.Take(c.ID) {
		return nil
	}

	existing, err := a.translations.ListTranslations(ctx, c.ID)
	if err != nil {
		return err
	}
	for _, t := range existing {
		if t.IsSource {
			continue
		}
		if err := a.translations.RemoveTranslation(ctx, t, nil); err != nil {
			return err
		}
		if _, err := a.translations.AddNewLanguage(ctx, c, t.LanguageCode, translations.AddOptions{}); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Translations recreated after source change", "component", c.FullSlug())
	return a.OnDaily(ctx, inst, c)
}

// OnDaily schedules automatic translation of every non-source translation.
func (a *Addon) OnDaily(ctx context.Context, inst *trans.Addon, c *trans.Component) error {
	current, err := a.translations.ListTranslations(ctx, c.ID)
	if err != nil {
		return err
	}
	for _, t := range current {
		if t.IsSource {
			continue
		}
		job := tasks.AutoTranslate{TranslationID: t.ID, Configuration: maps.Clone(inst.Configuration)}
		if err := a.queue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("failed to schedule automatic translation of %s: %w", c.FullSlug(), err)
		}
	}
	return nil
}

func (a *Addon) sourceTranslation(ctx context.Context, c *trans.Component) (*trans.Translation, error) {
	all, err := a.translations.ListTranslations(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.IsSource {
			return t, nil
		}
	}
	return nil, nil
}
