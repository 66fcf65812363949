package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/trans"
)

// ImportStore is the part of the store the importer reads.
type ImportStore interface {
	store.ProjectStore
	store.ComponentStore
	store.TranslationStore
	store.UnitStore
	store.UserStore
}

// Importer adds the translated units of a project to the memory. Records
// are never removed, and record ids are derived from their content so
// importing the same units again changes nothing.
type Importer struct {
	store ImportStore
	index Index
}

// NewImporter returns an importer writing to index.
func NewImporter(s ImportStore, index Index) *Importer {
	return &Importer{store: s, index: index}
}

// ImportProject adds the translated units of every component in the
// project. userID 0 means no user category.
func (im *Importer) ImportProject(ctx context.Context, projectID, userID int64) (int, error) {
	start := time.Now()

	project, err := im.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to load project %d: %w", projectID, err)
	}

	user, err := im.user(ctx, userID)
	if err != nil {
		return 0, err
	}

	components, err := im.store.ListComponents(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list components of %s: %w", project.Slug, err)
	}

	categories := Categories(project, user)
	total := 0
	for _, c := range components {
		n, err := im.importComponent(ctx, c, categories)
		total += n
		if err != nil {
			return total, err
		}
	}

	slog.InfoContext(ctx, "Imported translation memory",
		"project", project.Slug,
		"components", len(components),
		"records", total,
		"duration", time.Since(start).String())
	return total, nil
}

// ImportComponent adds the translated units of a single component.
func (im *Importer) ImportComponent(ctx context.Context, c *trans.Component, userID int64) (int, error) {
	project, err := im.store.GetProject(ctx, c.ProjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to load project %d: %w", c.ProjectID, err)
	}
	user, err := im.user(ctx, userID)
	if err != nil {
		return 0, err
	}
	return im.importComponent(ctx, c, Categories(project, user))
}

func (im *Importer) user(ctx context.Context, userID int64) (*trans.User, error) {
	if userID == 0 {
		return nil, nil
	}
	user, err := im.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user, nil
}

func (im *Importer) importComponent(ctx context.Context, c *trans.Component, categories []int) (int, error) {
	records, err := im.componentRecords(ctx, c, categories)
	if err != nil {
		return 0, err
	}
	if err := im.index.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to import memory of %s: %w", c.FullSlug(), err)
	}
	return len(records), nil
}

func (im *Importer) componentRecords(ctx context.Context, c *trans.Component, categories []int) ([]Record, error) {
	translations, err := im.store.ListTranslations(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations of %s: %w", c.FullSlug(), err)
	}

	var records []Record
	for _, t := range translations {
		if t.IsSource || t.IsTemplate() {
			continue
		}
		units, err := im.store.ListUnits(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list units of %s/%s: %w", c.FullSlug(), t.LanguageCode, err)
		}
		for _, u := range units {
			if u.State < trans.StateTranslated || u.Target == "" {
				continue
			}
			for _, category := range categories {
				records = append(records, Record{
					SourceLanguage: c.SourceLanguage,
					TargetLanguage: t.LanguageCode,
					Source:         u.Source,
					Target:         u.Target,
					Origin:         c.FullSlug(),
					Category:       category,
				})
			}
		}
	}
	return records, nil
}
