package autotranslate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omprussia/weblate-omp/internal/autotranslate"
	"github.com/omprussia/weblate-omp/internal/memory"
	"github.com/omprussia/weblate-omp/internal/memory/mocks"
	"github.com/omprussia/weblate-omp/internal/store/inmemory"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/trans"
)

type env struct {
	store   *inmemory.Store
	project *trans.Project
	ui      *trans.Component
	cli     *trans.Component
	uiFr    *trans.Translation
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()

	s := inmemory.New()
	project := s.AddProject(&trans.Project{Slug: "app", Name: "App"})
	ui := s.AddComponent(&trans.Component{ProjectID: project.ID, Slug: "ui", SourceLanguage: "en"})
	cli := s.AddComponent(&trans.Component{ProjectID: project.ID, Slug: "cli", SourceLanguage: "en"})

	uiFr := &trans.Translation{ComponentID: ui.ID, LanguageCode: "fr", Filename: "locale/fr.po"}
	require.NoError(t, s.CreateTranslation(ctx, uiFr, []*trans.Unit{
		{Source: "Save", State: trans.StateEmpty},
		{Source: "Open", Target: "Ouvr", State: trans.StateFuzzy},
		{Source: "Quit", Target: "Quitter", State: trans.StateTranslated},
		{Source: "Help", Target: "Aide", State: trans.StateApproved},
	}))
	require.NoError(t, s.CreateTranslation(ctx,
		&trans.Translation{ComponentID: cli.ID, LanguageCode: "fr"},
		[]*trans.Unit{
			{Source: "Save", Target: "Enregistrer", State: trans.StateTranslated},
			{Source: "Open", Target: "Ouvrir", State: trans.StateApproved},
			{Source: "Quit", Target: "Sortir", State: trans.StateTranslated},
			{Source: "Help", Target: "Assistance", State: trans.StateTranslated},
		},
	))
	require.NoError(t, s.CreateTranslation(ctx,
		&trans.Translation{ComponentID: cli.ID, LanguageCode: "de"},
		[]*trans.Unit{{Source: "Save", Target: "Speichern", State: trans.StateTranslated}},
	))

	return env{store: s, project: project, ui: ui, cli: cli, uiFr: uiFr}
}

func targets(t *testing.T, s *inmemory.Store, translationID int64) map[string]trans.Unit {
	t.Helper()
	units, err := s.ListUnits(context.Background(), translationID)
	require.NoError(t, err)
	out := make(map[string]trans.Unit, len(units))
	for _, u := range units {
		out[u.Source] = *u
	}
	return out
}

func TestRunner_OthersSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		configuration map[string]any
		want          autotranslate.Result
		wantTargets   map[string]string
		wantStates    map[string]trans.UnitState
	}{
		{
			name:          "translate todo",
			configuration: map[string]any{"mode": "translate", "filter_type": "todo"},
			want:          autotranslate.Result{Translated: 2},
			wantTargets:   map[string]string{"Save": "Enregistrer", "Open": "Ouvrir", "Quit": "Quitter", "Help": "Aide"},
			wantStates: map[string]trans.UnitState{
				"Save": trans.StateTranslated, "Open": trans.StateTranslated,
				"Quit": trans.StateTranslated, "Help": trans.StateApproved,
			},
		},
		{
			name:          "fuzzy not translated",
			configuration: map[string]any{"mode": "fuzzy", "filter_type": "nottranslated"},
			want:          autotranslate.Result{Translated: 1},
			wantTargets:   map[string]string{"Save": "Enregistrer", "Open": "Ouvr", "Quit": "Quitter", "Help": "Aide"},
			wantStates: map[string]trans.UnitState{
				"Save": trans.StateFuzzy, "Open": trans.StateFuzzy,
				"Quit": trans.StateTranslated, "Help": trans.StateApproved,
			},
		},
		{
			name:          "translate all keeps approved",
			configuration: map[string]any{"mode": "translate", "filter_type": "all", "component": "cli"},
			want:          autotranslate.Result{Translated: 3},
			wantTargets:   map[string]string{"Save": "Enregistrer", "Open": "Ouvrir", "Quit": "Sortir", "Help": "Aide"},
		},
		{
			name:          "suggest leaves units",
			configuration: map[string]any{"mode": "suggest"},
			want:          autotranslate.Result{Suggested: 2},
			wantTargets:   map[string]string{"Save": "", "Open": "Ouvr", "Quit": "Quitter", "Help": "Aide"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t)
			runner := autotranslate.NewRunner(e.store, nil)

			got, err := runner.Run(context.Background(), tasks.AutoTranslate{
				UserID:        9,
				TranslationID: e.uiFr.ID,
				Configuration: tt.configuration,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			units := targets(t, e.store, e.uiFr.ID)
			for source, want := range tt.wantTargets {
				assert.Equal(t, want, units[source].Target, source)
			}
			for source, want := range tt.wantStates {
				assert.Equal(t, want, units[source].State, source)
			}

			changes, err := e.store.ListChanges(context.Background(), e.ui.ID)
			require.NoError(t, err)
			require.Len(t, changes, 1)
			assert.Equal(t, trans.ActionAuto, changes[0].Action)
			assert.Equal(t, int64(9), changes[0].UserID)
			assert.Equal(t, e.uiFr.ID, changes[0].TranslationID)
		})
	}
}

func TestRunner_MemorySource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t)
	index, err := memory.NewInMemory(filepath.Join(t.TempDir(), "memory.lock"))
	require.NoError(t, err)
	defer func() { _ = index.Close() }()

	require.NoError(t, index.Add(ctx, []memory.Record{
		{SourceLanguage: "en", TargetLanguage: "fr", Source: "Save", Target: "Sauvegarder", Origin: "app/cli",
			Category: trans.CategoryPrivateOffset + int(e.project.ID)},
		{SourceLanguage: "en", TargetLanguage: "fr", Source: "Open", Target: "Ouvrir", Origin: "other/x",
			Category: trans.CategoryPrivateOffset + 999},
	}))

	got, err := autotranslate.NewRunner(e.store, index).Run(ctx, tasks.AutoTranslate{
		TranslationID: e.uiFr.ID,
		Configuration: map[string]any{
			"mode":        "translate",
			"auto_source": "mt",
			"engines":     []string{"weblate-translation-memory"},
			"threshold":   100,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, autotranslate.Result{Translated: 1}, got)

	units := targets(t, e.store, e.uiFr.ID)
	assert.Equal(t, "Sauvegarder", units["Save"].Target)
	assert.Equal(t, "Ouvr", units["Open"].Target, "records of other projects are not visible")
}

func TestRunner_NothingToDo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t)
	de := &trans.Translation{ComponentID: e.ui.ID, LanguageCode: "de"}
	require.NoError(t, e.store.CreateTranslation(ctx, de, []*trans.Unit{
		{Source: "Unknown", State: trans.StateEmpty},
	}))

	got, err := autotranslate.NewRunner(e.store, nil).Run(ctx, tasks.AutoTranslate{
		TranslationID: de.ID,
		Configuration: map[string]any{"mode": "translate"},
	})
	require.NoError(t, err)
	assert.Zero(t, got)

	changes, err := e.store.ListChanges(ctx, e.ui.ID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestRunner_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		translationID func(e env) int64
		configuration map[string]any
		setup         func(index *mocks.MockIndex)
		wantErr       string
	}{
		{
			name:          "invalid settings",
			translationID: func(e env) int64 { return e.uiFr.ID },
			configuration: map[string]any{"mode": "overwrite"},
			wantErr:       "mode: unsupported value",
		},
		{
			name:          "unknown translation",
			translationID: func(env) int64 { return 12345 },
			wantErr:       "failed to load translation 12345",
		},
		{
			name:          "unknown source component",
			translationID: func(e env) int64 { return e.uiFr.ID },
			configuration: map[string]any{"component": "missing"},
			wantErr:       "failed to load source component missing",
		},
		{
			name:          "memory lookup failure",
			translationID: func(e env) int64 { return e.uiFr.ID },
			configuration: map[string]any{"auto_source": "mt", "engines": "weblate-translation-memory"},
			setup: func(index *mocks.MockIndex) {
				index.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(nil, errors.New("index closed"))
			},
			wantErr: "failed to query translation memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t)
			ctrl := gomock.NewController(t)
			index := mocks.NewMockIndex(ctrl)
			if tt.setup != nil {
				tt.setup(index)
			}

			_, err := autotranslate.NewRunner(e.store, index).Run(context.Background(), tasks.AutoTranslate{
				TranslationID: tt.translationID(e),
				Configuration: tt.configuration,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
