// Package synchronize keeps the translations of a component in step with
// its template. When an upstream update touches the template, every
// non-template translation is recreated from it, the translation memory
// of the project is refreshed and the new translations are filled by
// automatic translation jobs.
package synchronize

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/autotranslate"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/telemetry"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/translations"
	"github.com/omprussia/weblate-omp/internal/txn"
	"github.com/omprussia/weblate-omp/internal/vcs"
)

// Name is the registered addon name.
const Name = "weblate.synchronize.translations"

var metadata = addons.Metadata{
	Name:    Name,
	Verbose: "Synchronize translations",
	Description: "Recreates the translations of a component when its template changes " +
		"upstream and fills them with automatic translation.",
	Events: []addons.Event{
		addons.EventComponentUpdate,
		addons.EventPreUpdate,
		addons.EventPostUpdate,
	},
	Settings: []string{"mode", "filter_type", "auto_source", "component", "engines", "threshold"},
}

// MemorySnapshot adds the translated units of a component to the
// translation memory.
type MemorySnapshot interface {
	ImportComponent(ctx context.Context, c *trans.Component, userID int64) (int, error)
}

// Coordinator is the synchronize translations addon.
type Coordinator struct {
	translations translations.Manager
	repo         vcs.Repository
	queue        tasks.Queue
	actor        *ActorContext
	activations  ActivationStore
	markers      *MarkerSet
	memory       MemorySnapshot
	metrics      *telemetry.Metrics
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithActivationStore replaces the in-memory activation store
func WithActivationStore(s ActivationStore) Option {
	return func(c *Coordinator) {
		c.activations = s
	}
}

// WithMemorySnapshot saves the content of translations to the memory
// before they are recreated, so automatic translation can restore it.
func WithMemorySnapshot(m MemorySnapshot) Option {
	return func(c *Coordinator) {
		c.memory = m
	}
}

// WithMetrics records recreated translations
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator returns the addon. Jobs are handed to queue once the
// transaction of the triggering event commits.
func NewCoordinator(
	manager translations.Manager, repo vcs.Repository, queue tasks.Queue, actor *ActorContext, opts ...Option,
) *Coordinator {
	c := &Coordinator{
		translations: manager,
		repo:         repo,
		queue:        tasks.Deferred(queue),
		actor:        actor,
		markers:      NewMarkerSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.activations == nil {
		c.activations = NewMemoryActivationStore()
	}
	return c
}

// Name implements addons.Addon
func (*Coordinator) Name() string { return Name }

// Metadata implements addons.Addon
func (*Coordinator) Metadata() addons.Metadata { return metadata }

// CanInstall implements addons.Addon. The addon needs its service account.
func (co *Coordinator) CanInstall(ctx context.Context, c *trans.Component, _ *trans.User) bool {
	if _, err := co.actor.Resolve(ctx); err != nil {
		slog.WarnContext(ctx, "Synchronize addon unavailable",
			"component", c.FullSlug(),
			"username", co.actor.Username(),
			"error", err)
		return false
	}
	return true
}

// ValidateConfiguration implements addons.ConfigurationValidator
func (*Coordinator) ValidateConfiguration(configuration map[string]any) error {
	return autotranslate.ValidateConfiguration(configuration)
}

// Markers exposes the template change markers.
func (co *Coordinator) Markers() *MarkerSet {
	return co.markers
}

// OnComponentUpdate runs the full synchronization the first time the addon
// is active on a component. The activation is recorded once the
// transaction commits, so a failed first run is retried by the next
// component update.
func (co *Coordinator) OnComponentUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component) error {
	active, err := co.activations.Activated(ctx, c.ID)
	if err != nil {
		return &Error{Component: c.FullSlug(), Phase: PhaseDetect, Err: err}
	}
	if active {
		return nil
	}

	slog.InfoContext(ctx, "Running initial synchronization", "component", c.FullSlug())
	if err := co.ScheduleMemoryImport(ctx, c); err != nil {
		return err
	}
	if _, err := co.Regenerate(ctx, c); err != nil {
		return err
	}
	if err := co.ScheduleAutoTranslate(ctx, c, inst.Configuration); err != nil {
		return err
	}

	txn.OnCommit(ctx, func(ctx context.Context) error {
		if err := co.activations.Activate(ctx, c.ID); err != nil {
			return &Error{Component: c.FullSlug(), Phase: PhaseDetect, Err: err}
		}
		return nil
	})
	return nil
}

// OnPreUpdate marks c when the pending upstream changes touch its template.
// The marker is dropped if the update transaction rolls back.
func (co *Coordinator) OnPreUpdate(ctx context.Context, _ *trans.Addon, c *trans.Component) error {
	changed, err := co.repo.ListUpstreamChangedFiles(ctx, c)
	if err != nil {
		return &Error{Component: c.FullSlug(), Phase: PhaseDetect, Err: err}
	}
	if c.Template == "" || !slices.Contains(changed, c.Template) {
		return nil
	}

	co.markers.Mark(c.ID)
	txn.OnRollback(ctx, func(context.Context) { co.markers.Take(c.ID) })
	slog.InfoContext(ctx, "Template changed upstream",
		"component", c.FullSlug(),
		"template", c.Template)
	return nil
}

// OnPostUpdate synchronizes a component marked by OnPreUpdate and clears
// the marker. Unmarked components are left alone.
func (co *Coordinator) OnPostUpdate(ctx context.Context, inst *trans.Addon, c *trans.Component, _ string) error {
	if !co.markers.Take(c.ID) {
		return nil
	}

	if err := co.ScheduleMemoryImport(ctx, c); err != nil {
		return err
	}
	recreated, err := co.Regenerate(ctx, c)
	if err != nil {
		return err
	}
	if !recreated {
		return nil
	}
	return co.ScheduleAutoTranslate(ctx, c, inst.Configuration)
}

// ScheduleMemoryImport refreshes the translation memory of the project of c
// on behalf of the service account.
func (co *Coordinator) ScheduleMemoryImport(ctx context.Context, c *trans.Component) error {
	actor, err := co.actor.Resolve(ctx)
	if err != nil {
		return &Error{Component: c.FullSlug(), Phase: PhaseMemoryImport, Err: err}
	}
	job := tasks.ImportMemory{ProjectID: c.ProjectID, UserID: actor.ID}
	if err := co.queue.Enqueue(ctx, job); err != nil {
		return &Error{Component: c.FullSlug(), Phase: PhaseMemoryImport, Err: err}
	}
	return nil
}

// Regenerate deletes and recreates every non-template translation of c
// from the current template. It reports whether anything was recreated.
func (co *Coordinator) Regenerate(ctx context.Context, c *trans.Component) (bool, error) {
	fail := func(err error) (bool, error) {
		return false, &Error{Component: c.FullSlug(), Phase: PhaseRegenerate, Err: err}
	}

	actor, err := co.actor.Resolve(ctx)
	if err != nil {
		return fail(err)
	}
	existing, err := co.translations.ListTranslations(ctx, c.ID)
	if err != nil {
		return fail(err)
	}

	co.snapshot(ctx, c, actor, existing)

	start := time.Now()
	recreated := 0
	for _, t := range existing {
		if t.IsTemplate() {
			continue
		}
		if err := co.translations.RemoveTranslation(ctx, t, actor); err != nil {
			return fail(err)
		}
		opts := translations.AddOptions{Actor: actor, SendSignal: false}
		if _, err := co.translations.AddNewLanguage(ctx, c, t.LanguageCode, opts); err != nil {
			return fail(fmt.Errorf("failed to recreate %s: %w", t.LanguageCode, err))
		}
		recreated++
	}

	co.metrics.RecordTranslationsRecreated(ctx, c.FullSlug(), recreated)
	slog.InfoContext(ctx, "Translations regenerated",
		"component", c.FullSlug(),
		"recreated", recreated,
		"duration", time.Since(start))
	return recreated > 0, nil
}

// snapshot adds the current content of c to the memory before its
// translations are recreated. Failures are logged: the regeneration does
// not depend on them.
func (co *Coordinator) snapshot(ctx context.Context, c *trans.Component, actor *trans.User, existing []*trans.Translation) {
	if co.memory == nil || !slices.ContainsFunc(existing, func(t *trans.Translation) bool { return !t.IsTemplate() }) {
		return
	}
	n, err := co.memory.ImportComponent(ctx, c, actor.ID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to save translations to memory",
			"component", c.FullSlug(),
			"error", err)
		return
	}
	slog.DebugContext(ctx, "Saved translations to memory", "component", c.FullSlug(), "records", n)
}

// ScheduleAutoTranslate enqueues one automatic translation job per
// translation of c that is neither the source nor a template language.
// Each job carries its own copy of configuration.
func (co *Coordinator) ScheduleAutoTranslate(ctx context.Context, c *trans.Component, configuration map[string]any) error {
	fail := func(err error) error {
		return &Error{Component: c.FullSlug(), Phase: PhaseAutoTranslate, Err: err}
	}

	actor, err := co.actor.Resolve(ctx)
	if err != nil {
		return fail(err)
	}
	current, err := co.translations.ListTranslations(ctx, c.ID)
	if err != nil {
		return fail(err)
	}

	scheduled := 0
	for _, t := range current {
		if t.IsSource || t.IsTemplate() {
			continue
		}
		job := tasks.AutoTranslate{
			UserID:        actor.ID,
			TranslationID: t.ID,
			Configuration: maps.Clone(configuration),
		}
		if err := co.queue.Enqueue(ctx, job); err != nil {
			return fail(err)
		}
		scheduled++
	}

	slog.InfoContext(ctx, "Automatic translation scheduled",
		"component", c.FullSlug(),
		"translations", scheduled)
	return nil
}
