package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/txn"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL store.Store. Statements run inside the
// transaction carried by the context when there is one.
type Store struct {
	pool *pgxpool.Pool
	sq   sq.StatementBuilderType
}

var _ store.Store = (*Store)(nil)

// New returns a Store on pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (s *Store) q(ctx context.Context) txn.Querier {
	return txn.QuerierFrom(ctx, s.pool)
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (pgconn.CommandTag, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to build query: %w", err)
	}
	return s.q(ctx).Exec(ctx, sqlStr, args...)
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (pgx.Rows, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.q(ctx).Query(ctx, sqlStr, args...)
}

func (s *Store) queryRow(ctx context.Context, b sq.Sqlizer) (pgx.Row, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return s.q(ctx).QueryRow(ctx, sqlStr, args...), nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var projectColumns = []string{"id", "slug", "name", "contribute_shared_tm"}

func scanProject(row pgx.Row) (*trans.Project, error) {
	var p trans.Project
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.ContributeSharedTM); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject implements store.ProjectStore.
func (s *Store) GetProject(ctx context.Context, id int64) (*trans.Project, error) {
	row, err := s.queryRow(ctx, s.sq.Select(projectColumns...).From("projects").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	p, err := scanProject(row)
	return p, notFound(err, fmt.Sprintf("project %d", id))
}

// GetProjectBySlug implements store.ProjectStore.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*trans.Project, error) {
	row, err := s.queryRow(ctx, s.sq.Select(projectColumns...).From("projects").Where(sq.Eq{"slug": slug}))
	if err != nil {
		return nil, err
	}
	p, err := scanProject(row)
	return p, notFound(err, fmt.Sprintf("project %q", slug))
}

// ListProjects implements store.ProjectStore.
func (s *Store) ListProjects(ctx context.Context) ([]*trans.Project, error) {
	rows, err := s.query(ctx, s.sq.Select(projectColumns...).From("projects").OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProject)
}

var componentColumns = []string{
	"c.id", "c.project_id", "p.slug", "c.slug", "c.name", "c.repo", "c.branch",
	"c.template", "c.file_mask", "c.file_format", "c.source_language",
}

func (s *Store) selectComponents() sq.SelectBuilder {
	return s.sq.Select(componentColumns...).From("components c").Join("projects p ON p.id = c.project_id")
}

func scanComponent(row pgx.Row) (*trans.Component, error) {
	var c trans.Component
	err := row.Scan(&c.ID, &c.ProjectID, &c.ProjectSlug, &c.Slug, &c.Name, &c.Repo, &c.Branch,
		&c.Template, &c.FileMask, &c.FileFormat, &c.SourceLanguage)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComponent implements store.ComponentStore.
func (s *Store) GetComponent(ctx context.Context, id int64) (*trans.Component, error) {
	row, err := s.queryRow(ctx, s.selectComponents().Where(sq.Eq{"c.id": id}))
	if err != nil {
		return nil, err
	}
	c, err := scanComponent(row)
	return c, notFound(err, fmt.Sprintf("component %d", id))
}

// GetComponentBySlug implements store.ComponentStore.
func (s *Store) GetComponentBySlug(ctx context.Context, project, component string) (*trans.Component, error) {
	row, err := s.queryRow(ctx, s.selectComponents().Where(sq.Eq{"p.slug": project, "c.slug": component}))
	if err != nil {
		return nil, err
	}
	c, err := scanComponent(row)
	return c, notFound(err, fmt.Sprintf("component %s/%s", project, component))
}

// ListComponents implements store.ComponentStore.
func (s *Store) ListComponents(ctx context.Context, projectID int64) ([]*trans.Component, error) {
	rows, err := s.query(ctx, s.selectComponents().Where(sq.Eq{"c.project_id": projectID}).OrderBy("c.id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanComponent)
}

var translationColumns = []string{"id", "component_id", "language_code", "filename", "is_source"}

func scanTranslation(row pgx.Row) (*trans.Translation, error) {
	var t trans.Translation
	if err := row.Scan(&t.ID, &t.ComponentID, &t.LanguageCode, &t.Filename, &t.IsSource); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTranslation implements store.TranslationStore.
func (s *Store) GetTranslation(ctx context.Context, id int64) (*trans.Translation, error) {
	row, err := s.queryRow(ctx, s.sq.Select(translationColumns...).From("translations").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	t, err := scanTranslation(row)
	return t, notFound(err, fmt.Sprintf("translation %d", id))
}

// ListTranslations implements store.TranslationStore.
func (s *Store) ListTranslations(ctx context.Context, componentID int64) ([]*trans.Translation, error) {
	rows, err := s.query(ctx, s.sq.Select(translationColumns...).From("translations").
		Where(sq.Eq{"component_id": componentID}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTranslation)
}

// CreateTranslation implements store.TranslationStore.
func (s *Store) CreateTranslation(ctx context.Context, t *trans.Translation, units []*trans.Unit) error {
	row, err := s.queryRow(ctx, s.sq.Insert("translations").
		Columns("component_id", "language_code", "filename", "is_source").
		Values(t.ComponentID, t.LanguageCode, t.Filename, t.IsSource).
		Suffix("RETURNING id"))
	if err != nil {
		return err
	}
	if err := row.Scan(&t.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("translation %s: %w", t.LanguageCode, store.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert translation: %w", err)
	}

	for _, u := range units {
		u.TranslationID = t.ID
		row, err := s.queryRow(ctx, s.sq.Insert("units").
			Columns("translation_id", "context", "source", "target", "state").
			Values(u.TranslationID, u.Context, u.Source, u.Target, int(u.State)).
			Suffix("RETURNING id"))
		if err != nil {
			return err
		}
		if err := row.Scan(&u.ID); err != nil {
			return fmt.Errorf("failed to insert unit: %w", err)
		}
	}
	return nil
}

// DeleteTranslation implements store.TranslationStore. Units cascade.
func (s *Store) DeleteTranslation(ctx context.Context, id int64) error {
	tag, err := s.exec(ctx, s.sq.Delete("translations").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("translation %d: %w", id, store.ErrNotFound)
	}
	return nil
}

var unitColumns = []string{"id", "translation_id", "context", "source", "target", "state"}

func scanUnit(row pgx.Row) (*trans.Unit, error) {
	var u trans.Unit
	var state int
	if err := row.Scan(&u.ID, &u.TranslationID, &u.Context, &u.Source, &u.Target, &state); err != nil {
		return nil, err
	}
	u.State = trans.UnitState(state)
	return &u, nil
}

// ListUnits implements store.UnitStore.
func (s *Store) ListUnits(ctx context.Context, translationID int64) ([]*trans.Unit, error) {
	rows, err := s.query(ctx, s.sq.Select(unitColumns...).From("units").
		Where(sq.Eq{"translation_id": translationID}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUnit)
}

// UpdateUnits implements store.UnitStore.
func (s *Store) UpdateUnits(ctx context.Context, units []*trans.Unit) error {
	for _, u := range units {
		tag, err := s.exec(ctx, s.sq.Update("units").
			Set("target", u.Target).
			Set("state", int(u.State)).
			Where(sq.Eq{"id": u.ID}))
		if err != nil {
			return fmt.Errorf("failed to update unit %d: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("unit %d: %w", u.ID, store.ErrNotFound)
		}
	}
	return nil
}

var userColumns = []string{"id", "username", "full_name"}

func scanUser(row pgx.Row) (*trans.User, error) {
	var u trans.User
	if err := row.Scan(&u.ID, &u.Username, &u.FullName); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser implements store.UserStore.
func (s *Store) GetUser(ctx context.Context, id int64) (*trans.User, error) {
	row, err := s.queryRow(ctx, s.sq.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrUserNotFound)
	}
	return u, err
}

// GetUserByUsername implements store.UserStore.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*trans.User, error) {
	row, err := s.queryRow(ctx, s.sq.Select(userColumns...).From("users").Where(sq.Eq{"username": username}))
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", username, store.ErrUserNotFound)
	}
	return u, err
}

var addonColumns = []string{"id", "component_id", "name", "configuration", "project_scope"}

func scanAddon(row pgx.Row) (*trans.Addon, error) {
	var a trans.Addon
	var raw []byte
	if err := row.Scan(&a.ID, &a.ComponentID, &a.Name, &raw, &a.ProjectScope); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Configuration); err != nil {
			return nil, fmt.Errorf("failed to decode addon configuration: %w", err)
		}
	}
	return &a, nil
}

// ListAddons implements store.AddonStore.
func (s *Store) ListAddons(ctx context.Context, componentID int64) ([]*trans.Addon, error) {
	rows, err := s.query(ctx, s.sq.Select(addonColumns...).From("addons").
		Where(sq.Eq{"component_id": componentID}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAddon)
}

// ListAddonsByName implements store.AddonStore.
func (s *Store) ListAddonsByName(ctx context.Context, name string) ([]*trans.Addon, error) {
	rows, err := s.query(ctx, s.sq.Select(addonColumns...).From("addons").
		Where(sq.Eq{"name": name}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAddon)
}

// CreateAddon implements store.AddonStore.
func (s *Store) CreateAddon(ctx context.Context, addon *trans.Addon) error {
	configuration := addon.Configuration
	if configuration == nil {
		configuration = map[string]any{}
	}
	raw, err := json.Marshal(configuration)
	if err != nil {
		return fmt.Errorf("failed to encode addon configuration: %w", err)
	}

	row, err := s.queryRow(ctx, s.sq.Insert("addons").
		Columns("component_id", "name", "configuration", "project_scope").
		Values(addon.ComponentID, addon.Name, raw, addon.ProjectScope).
		Suffix("RETURNING id"))
	if err != nil {
		return err
	}
	if err := row.Scan(&addon.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("addon %s: %w", addon.Name, store.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert addon: %w", err)
	}
	return nil
}

// RecordChange implements store.ChangeStore.
func (s *Store) RecordChange(ctx context.Context, change *trans.Change) error {
	row, err := s.queryRow(ctx, s.sq.Insert("changes").
		Columns("action", "component_id", "translation_id", "user_id", "details").
		Values(int(change.Action), change.ComponentID, nullable(change.TranslationID), nullable(change.UserID), change.Details).
		Suffix("RETURNING id, timestamp"))
	if err != nil {
		return err
	}
	if err := row.Scan(&change.ID, &change.Timestamp); err != nil {
		return fmt.Errorf("failed to insert change: %w", err)
	}
	return nil
}

// ListChanges implements store.ChangeStore.
func (s *Store) ListChanges(ctx context.Context, componentID int64) ([]*trans.Change, error) {
	rows, err := s.query(ctx, s.sq.
		Select("id", "action", "component_id", "COALESCE(translation_id, 0)", "COALESCE(user_id, 0)", "details", "timestamp").
		From("changes").Where(sq.Eq{"component_id": componentID}).OrderBy("id"))
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*trans.Change, error) {
		var c trans.Change
		var action int
		if err := row.Scan(&c.ID, &action, &c.ComponentID, &c.TranslationID, &c.UserID, &c.Details, &c.Timestamp); err != nil {
			return nil, err
		}
		c.Action = trans.Action(action)
		return &c, nil
	})
}

func nullable(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
