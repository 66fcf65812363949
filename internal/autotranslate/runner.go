package autotranslate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omprussia/weblate-omp/internal/memory"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/trans"
)

// Store is the persistence used by the runner.
type Store interface {
	store.ProjectStore
	store.ComponentStore
	store.TranslationStore
	store.UnitStore
	store.ChangeStore
}

// Result summarises one run.
type Result struct {
	Translated int
	Suggested  int
}

// Runner executes AutoTranslate jobs.
type Runner struct {
	store Store
	index memory.Index
}

// NewRunner returns a runner looking up matches in index.
func NewRunner(s Store, index memory.Index) *Runner {
	return &Runner{store: s, index: index}
}

type unitKey struct {
	context string
	source  string
}

// Run translates the units of the job's translation selected by the
// configured filter.
func (r *Runner) Run(ctx context.Context, job tasks.AutoTranslate) (Result, error) {
	start := time.Now()

	settings, err := Decode(job.Configuration)
	if err != nil {
		return Result{}, err
	}
	if err := settings.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid automatic translation settings: %w", err)
	}

	translation, err := r.store.GetTranslation(ctx, job.TranslationID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load translation %d: %w", job.TranslationID, err)
	}
	component, err := r.store.GetComponent(ctx, translation.ComponentID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load component %d: %w", translation.ComponentID, err)
	}
	units, err := r.store.ListUnits(ctx, translation.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list units of translation %d: %w", translation.ID, err)
	}

	candidates := filterUnits(units, settings.FilterType)
	if len(candidates) == 0 {
		return Result{}, nil
	}

	lookup, err := r.lookupFunc(ctx, settings, component, translation)
	if err != nil {
		return Result{}, err
	}

	var result Result
	var updated []*trans.Unit
	for _, u := range candidates {
		target, ok, err := lookup(ctx, u)
		if err != nil {
			return result, err
		}
		if !ok || target == u.Target {
			continue
		}
		switch settings.Mode {
		case ModeSuggest:
			result.Suggested++
			continue
		case ModeTranslate:
			u.State = trans.StateTranslated
		case ModeFuzzy:
			u.State = trans.StateFuzzy
		}
		u.Target = target
		updated = append(updated, u)
		result.Translated++
	}

	if len(updated) > 0 {
		if err := r.store.UpdateUnits(ctx, updated); err != nil {
			return result, fmt.Errorf("failed to store translated units: %w", err)
		}
	}
	if result.Translated+result.Suggested > 0 {
		err := r.store.RecordChange(ctx, &trans.Change{
			Action:        trans.ActionAuto,
			ComponentID:   component.ID,
			TranslationID: translation.ID,
			UserID:        job.UserID,
			Details: fmt.Sprintf("Automatic translation via %s: %d translated, %d suggested",
				settings.AutoSource, result.Translated, result.Suggested),
		})
		if err != nil {
			return result, fmt.Errorf("failed to record automatic translation: %w", err)
		}
	}

	slog.InfoContext(ctx, "Automatic translation completed",
		"component", component.FullSlug(),
		"language", translation.LanguageCode,
		"mode", settings.Mode,
		"translated", result.Translated,
		"suggested", result.Suggested,
		"duration", time.Since(start).String())
	return result, nil
}

func filterUnits(units []*trans.Unit, filter string) []*trans.Unit {
	var out []*trans.Unit
	for _, u := range units {
		if u.State >= trans.StateApproved {
			continue
		}
		switch filter {
		case FilterNotTranslated:
			if u.State != trans.StateEmpty {
				continue
			}
		case FilterTodo:
			if u.State >= trans.StateTranslated {
				continue
			}
		}
		out = append(out, u)
	}
	return out
}

type lookupFunc func(ctx context.Context, u *trans.Unit) (string, bool, error)

func (r *Runner) lookupFunc(
	ctx context.Context, s Settings, c *trans.Component, t *trans.Translation,
) (lookupFunc, error) {
	if s.AutoSource == SourceMachineTranslation {
		project, err := r.store.GetProject(ctx, c.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project %d: %w", c.ProjectID, err)
		}
		categories := memory.ReadCategories(project)
		return func(ctx context.Context, u *trans.Unit) (string, bool, error) {
			matches, err := r.index.Lookup(ctx, memory.Query{
				SourceLanguage: c.SourceLanguage,
				TargetLanguage: t.LanguageCode,
				Text:           u.Source,
				Categories:     categories,
				Threshold:      s.Threshold,
				Limit:          1,
			})
			if err != nil {
				return "", false, fmt.Errorf("failed to query translation memory: %w", err)
			}
			if len(matches) == 0 {
				return "", false, nil
			}
			return matches[0].Target, true, nil
		}, nil
	}

	known, err := r.otherTranslations(ctx, s.Component, c, t.LanguageCode)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, u *trans.Unit) (string, bool, error) {
		target, ok := known[unitKey{context: u.Context, source: u.Source}]
		return target, ok, nil
	}, nil
}

// otherTranslations collects translated units of the same language from the
// selected components, the first component winning on conflicts.
func (r *Runner) otherTranslations(
	ctx context.Context, selector string, c *trans.Component, language string,
) (map[unitKey]string, error) {
	sources, err := r.sourceComponents(ctx, selector, c)
	if err != nil {
		return nil, err
	}

	known := make(map[unitKey]string)
	for _, other := range sources {
		translations, err := r.store.ListTranslations(ctx, other.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list translations of %s: %w", other.FullSlug(), err)
		}
		for _, ot := range translations {
			if ot.LanguageCode != language {
				continue
			}
			units, err := r.store.ListUnits(ctx, ot.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list units of %s/%s: %w", other.FullSlug(), language, err)
			}
			for _, u := range units {
				if u.State < trans.StateTranslated || u.Target == "" {
					continue
				}
				key := unitKey{context: u.Context, source: u.Source}
				if _, ok := known[key]; !ok {
					known[key] = u.Target
				}
			}
		}
	}
	return known, nil
}

// sourceComponents resolves selector: empty means every other component of
// the project, "slug" a component of the same project and
// "project/slug" any component.
func (r *Runner) sourceComponents(ctx context.Context, selector string, c *trans.Component) ([]*trans.Component, error) {
	if selector == "" {
		all, err := r.store.ListComponents(ctx, c.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to list components of project %d: %w", c.ProjectID, err)
		}
		var out []*trans.Component
		for _, other := range all {
			if other.ID != c.ID {
				out = append(out, other)
			}
		}
		return out, nil
	}

	projectSlug, slug, found := strings.Cut(selector, "/")
	if !found {
		projectSlug, slug = c.ProjectSlug, selector
	}
	other, err := r.store.GetComponentBySlug(ctx, projectSlug, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load source component %s: %w", selector, err)
	}
	return []*trans.Component{other}, nil
}
