package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omprussia/weblate-omp/internal/memory"
	"github.com/omprussia/weblate-omp/internal/memory/mocks"
	"github.com/omprussia/weblate-omp/internal/store/inmemory"
	"github.com/omprussia/weblate-omp/internal/trans"
)

type fixture struct {
	store     *inmemory.Store
	project   *trans.Project
	component *trans.Component
	user      *trans.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	s := inmemory.New()
	project := s.AddProject(&trans.Project{Slug: "app", Name: "App"})
	component := s.AddComponent(&trans.Component{
		ProjectID:      project.ID,
		Slug:           "ui",
		Name:           "UI",
		SourceLanguage: "en",
	})
	user := s.AddUser(&trans.User{Username: "weblate-ci"})

	require.NoError(t, s.CreateTranslation(ctx,
		&trans.Translation{ComponentID: component.ID, LanguageCode: "en", IsSource: true},
		[]*trans.Unit{{Source: "Save", Target: "Save", State: trans.StateReadOnly}},
	))
	require.NoError(t, s.CreateTranslation(ctx,
		&trans.Translation{ComponentID: component.ID, LanguageCode: "templates"},
		[]*trans.Unit{{Source: "Save", Target: "Save", State: trans.StateTranslated}},
	))
	require.NoError(t, s.CreateTranslation(ctx,
		&trans.Translation{ComponentID: component.ID, LanguageCode: "fr"},
		[]*trans.Unit{
			{Source: "Save", Target: "Enregistrer", State: trans.StateTranslated},
			{Source: "Open", Target: "Ouvrir", State: trans.StateApproved},
			{Source: "Close", Target: "Fermer", State: trans.StateFuzzy},
			{Source: "Quit", Target: "", State: trans.StateEmpty},
		},
	))

	return fixture{store: s, project: project, component: component, user: user}
}

func TestImporter_ImportProject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)

	var added []memory.Record
	index.EXPECT().Add(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, records []memory.Record) error {
			added = records
			return nil
		})

	n, err := memory.NewImporter(f.store, index).ImportProject(context.Background(), f.project.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	private := trans.CategoryPrivateOffset + int(f.project.ID)
	userCategory := trans.CategoryUserOffset + int(f.user.ID)
	assert.ElementsMatch(t, []memory.Record{
		{SourceLanguage: "en", TargetLanguage: "fr", Source: "Save", Target: "Enregistrer", Origin: "app/ui", Category: private},
		{SourceLanguage: "en", TargetLanguage: "fr", Source: "Save", Target: "Enregistrer", Origin: "app/ui", Category: userCategory},
		{SourceLanguage: "en", TargetLanguage: "fr", Source: "Open", Target: "Ouvrir", Origin: "app/ui", Category: private},
		{SourceLanguage: "en", TargetLanguage: "fr", Source: "Open", Target: "Ouvrir", Origin: "app/ui", Category: userCategory},
	}, added)
}

func TestImporter_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		projectID func(f fixture) int64
		userID    func(f fixture) int64
		setup     func(index *mocks.MockIndex)
		wantErr   string
	}{
		{
			name:      "unknown project",
			projectID: func(fixture) int64 { return 999 },
			userID:    func(fixture) int64 { return 0 },
			setup:     func(*mocks.MockIndex) {},
			wantErr:   "failed to load project 999",
		},
		{
			name:      "unknown user",
			projectID: func(f fixture) int64 { return f.project.ID },
			userID:    func(fixture) int64 { return 999 },
			setup:     func(*mocks.MockIndex) {},
			wantErr:   "failed to load user 999",
		},
		{
			name:      "lock exhausted",
			projectID: func(f fixture) int64 { return f.project.ID },
			userID:    func(fixture) int64 { return 0 },
			setup: func(index *mocks.MockIndex) {
				index.EXPECT().Add(gomock.Any(), gomock.Any()).Return(memory.ErrLockRetriesExhausted)
			},
			wantErr: "failed to import memory of app/ui",
		},
		{
			name:      "add failure",
			projectID: func(f fixture) int64 { return f.project.ID },
			userID:    func(fixture) int64 { return 0 },
			setup: func(index *mocks.MockIndex) {
				index.EXPECT().Add(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			wantErr: "failed to import memory of app/ui",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			ctrl := gomock.NewController(t)
			index := mocks.NewMockIndex(ctrl)
			tt.setup(index)

			_, err := memory.NewImporter(f.store, index).ImportProject(context.Background(), tt.projectID(f), tt.userID(f))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImporter_WithBleveIndex(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	index, err := memory.NewInMemory(t.TempDir() + "/memory.lock")
	require.NoError(t, err)
	defer func() { _ = index.Close() }()

	importer := memory.NewImporter(f.store, index)
	_, err = importer.ImportProject(context.Background(), f.project.ID, 0)
	require.NoError(t, err)
	// importing twice does not duplicate records
	_, err = importer.ImportProject(context.Background(), f.project.ID, 0)
	require.NoError(t, err)

	matches, err := index.Lookup(context.Background(), memory.Query{
		SourceLanguage: "en",
		TargetLanguage: "fr",
		Text:           "Save",
		Categories:     memory.ReadCategories(f.project),
		Threshold:      100,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Enregistrer", matches[0].Target)
}

func TestImporter_KeepsRecordsOfEmptiedTranslations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	index, err := memory.NewInMemory(t.TempDir() + "/memory.lock")
	require.NoError(t, err)
	defer func() { _ = index.Close() }()

	importer := memory.NewImporter(f.store, index)
	n, err := importer.ImportComponent(ctx, f.component, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// the translation is recreated empty, as regeneration does
	translations, err := f.store.ListTranslations(ctx, f.component.ID)
	require.NoError(t, err)
	for _, tr := range translations {
		if tr.LanguageCode != "fr" {
			continue
		}
		require.NoError(t, f.store.DeleteTranslation(ctx, tr.ID))
		require.NoError(t, f.store.CreateTranslation(ctx,
			&trans.Translation{ComponentID: f.component.ID, LanguageCode: "fr"},
			[]*trans.Unit{{Source: "Save", State: trans.StateEmpty}},
		))
	}

	n, err = importer.ImportProject(ctx, f.project.ID, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	matches, err := index.Lookup(ctx, memory.Query{
		SourceLanguage: "en",
		TargetLanguage: "fr",
		Text:           "Save",
		Categories:     memory.ReadCategories(f.project),
		Threshold:      100,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Enregistrer", matches[0].Target)
}
