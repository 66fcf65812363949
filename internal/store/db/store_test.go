package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omprussia/weblate-omp/database"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/txn"
)

func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, cleanup := database.SetupTestDB(t)
	t.Cleanup(cleanup)

	var projectID, componentID, userID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO projects (slug, name, contribute_shared_tm) VALUES ('omp', 'OMP', true) RETURNING id`).Scan(&projectID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO components (project_id, slug, name, template, file_mask, file_format)
		 VALUES ($1, 'app-ui', 'App UI', 'locale/en.po', 'locale/*.po', 'po') RETURNING id`, projectID).Scan(&componentID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username) VALUES ('weblate-ci') RETURNING id`).Scan(&userID))

	s := New(pool)

	t.Run("components", func(t *testing.T) {
		c, err := s.GetComponentBySlug(ctx, "omp", "app-ui")
		require.NoError(t, err)
		assert.Equal(t, componentID, c.ID)
		assert.Equal(t, "omp/app-ui", c.FullSlug())

		_, err = s.GetComponent(ctx, 999999)
		assert.ErrorIs(t, err, store.ErrNotFound)

		p, err := s.GetProject(ctx, projectID)
		require.NoError(t, err)
		assert.True(t, p.ContributeSharedTM)
	})

	t.Run("users", func(t *testing.T) {
		u, err := s.GetUserByUsername(ctx, "weblate-ci")
		require.NoError(t, err)
		assert.Equal(t, userID, u.ID)

		_, err = s.GetUserByUsername(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("translations", func(t *testing.T) {
		fr := &trans.Translation{ComponentID: componentID, LanguageCode: "fr", Filename: "locale/fr.po"}
		require.NoError(t, s.CreateTranslation(ctx, fr, []*trans.Unit{{Source: "Hello"}, {Source: "Bye"}}))
		assert.NotZero(t, fr.ID)

		err := s.CreateTranslation(ctx, &trans.Translation{ComponentID: componentID, LanguageCode: "fr"}, nil)
		assert.ErrorIs(t, err, store.ErrAlreadyExists)

		units, err := s.ListUnits(ctx, fr.ID)
		require.NoError(t, err)
		require.Len(t, units, 2)

		units[0].Target = "Bonjour"
		units[0].State = trans.StateTranslated
		require.NoError(t, s.UpdateUnits(ctx, units[:1]))

		require.NoError(t, s.DeleteTranslation(ctx, fr.ID))
		units, err = s.ListUnits(ctx, fr.ID)
		require.NoError(t, err)
		assert.Empty(t, units)
	})

	t.Run("rollback drops writes", func(t *testing.T) {
		m := txn.NewPgxManager(pool)
		err := m.InTx(ctx, func(ctx context.Context) error {
			if err := s.CreateTranslation(ctx, &trans.Translation{ComponentID: componentID, LanguageCode: "de"}, nil); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		list, err := s.ListTranslations(ctx, componentID)
		require.NoError(t, err)
		for _, tr := range list {
			assert.NotEqual(t, "de", tr.LanguageCode)
		}
	})

	t.Run("panic rolls back", func(t *testing.T) {
		m := txn.NewPgxManager(pool)
		undone := false
		assert.Panics(t, func() {
			_ = m.InTx(ctx, func(ctx context.Context) error {
				txn.OnRollback(ctx, func(context.Context) { undone = true })
				if err := s.CreateTranslation(ctx, &trans.Translation{ComponentID: componentID, LanguageCode: "it"}, nil); err != nil {
					return err
				}
				panic("handler bug")
			})
		})
		assert.True(t, undone)

		list, err := s.ListTranslations(ctx, componentID)
		require.NoError(t, err)
		for _, tr := range list {
			assert.NotEqual(t, "it", tr.LanguageCode)
		}
	})

	t.Run("addons and changes", func(t *testing.T) {
		a := &trans.Addon{ComponentID: componentID, Name: "weblate.synchronize.translations",
			Configuration: map[string]any{"mode": "translate", "threshold": float64(80)}}
		require.NoError(t, s.CreateAddon(ctx, a))
		assert.ErrorIs(t, s.CreateAddon(ctx, &trans.Addon{ComponentID: componentID, Name: a.Name}), store.ErrAlreadyExists)

		list, err := s.ListAddonsByName(ctx, a.Name)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, a.Configuration, list[0].Configuration)

		require.NoError(t, s.RecordChange(ctx, &trans.Change{Action: trans.ActionRemoveTranslation, ComponentID: componentID, UserID: userID}))
		changes, err := s.ListChanges(ctx, componentID)
		require.NoError(t, err)
		require.NotEmpty(t, changes)
		assert.Equal(t, trans.ActionRemoveTranslation, changes[len(changes)-1].Action)

		err = s.RecordChange(ctx, &trans.Change{Action: trans.Action(99), ComponentID: componentID})
		assert.Error(t, err, "action check constraint")
	})
}
