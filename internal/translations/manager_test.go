package translations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/store/inmemory"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/vcs/mocks"
)

const enPo = `msgid "Open"
msgstr ""

msgid "Save"
msgstr ""
`

func setup(t *testing.T) (*inmemory.Store, *trans.Component, *trans.User) {
	t.Helper()
	s := inmemory.New()
	p := s.AddProject(&trans.Project{Slug: "omp"})
	c := s.AddComponent(&trans.Component{
		ProjectID: p.ID, Slug: "app-ui", Name: "App UI",
		Template: "locale/en.po", FileMask: "locale/*.po", FileFormat: "po",
	})
	u := s.AddUser(&trans.User{Username: "weblate-ci"})
	return s, c, u
}

func TestAddNewLanguageFromTemplate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	s, c, actor := setup(t)

	repo.EXPECT().ReadFile(gomock.Any(), c, "locale/en.po").Return([]byte(enPo), nil)

	var signalled []string
	m := NewManager(s, repo, WithAddedListener(func(_ context.Context, _ *trans.Component, tr *trans.Translation) {
		signalled = append(signalled, tr.LanguageCode)
	}))

	tr, err := m.AddNewLanguage(ctx, c, "fr", AddOptions{Actor: actor, SendSignal: false})
	require.NoError(t, err)
	assert.Equal(t, "locale/fr.po", tr.Filename)
	assert.Empty(t, signalled)

	units, err := s.ListUnits(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "Open", units[0].Source)
	assert.Empty(t, units[0].Target)
	assert.Equal(t, trans.StateEmpty, units[0].State)

	changes, err := s.ListChanges(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, trans.ActionNew, changes[0].Action)
	assert.Equal(t, actor.ID, changes[0].UserID)
	assert.Equal(t, "[App UI] Added translation using Weblate (French)\n\n", changes[0].Details)
}

func TestAddNewLanguageSendsSignal(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	s, c, _ := setup(t)
	repo.EXPECT().ReadFile(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(enPo), nil)

	var signalled []string
	m := NewManager(s, repo, WithAddedListener(func(_ context.Context, _ *trans.Component, tr *trans.Translation) {
		signalled = append(signalled, tr.LanguageCode)
	}))

	_, err := m.AddNewLanguage(context.Background(), c, "de", AddOptions{SendSignal: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"de"}, signalled)
}

func TestAddNewLanguageTemplateErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	s, c, _ := setup(t)
	repo.EXPECT().ReadFile(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("file not found"))

	m := NewManager(s, repo)
	_, err := m.AddNewLanguage(context.Background(), c, "fr", AddOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read template")

	list, err := s.ListTranslations(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddNewLanguageWithoutTemplateCopiesSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := inmemory.New()
	p := s.AddProject(&trans.Project{Slug: "omp"})
	c := s.AddComponent(&trans.Component{ProjectID: p.ID, Slug: "docs", FileMask: "*.json"})
	src := &trans.Translation{ComponentID: c.ID, LanguageCode: "en", IsSource: true}
	require.NoError(t, s.CreateTranslation(ctx, src, []*trans.Unit{
		{Context: "title", Source: "Docs", Target: "Docs", State: trans.StateTranslated},
	}))

	m := NewManager(s, nil)
	tr, err := m.AddNewLanguage(ctx, c, "ru", AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ru.json", tr.Filename)

	units, err := s.ListUnits(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "title", units[0].Context)
	assert.Empty(t, units[0].Target)
}

func TestRemoveTranslation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, c, actor := setup(t)
	fr := &trans.Translation{ComponentID: c.ID, LanguageCode: "fr"}
	require.NoError(t, s.CreateTranslation(ctx, fr, nil))

	msgs, err := NewMessages(config.CommitMessagesConfig{Delete: "{{ .ComponentName }} lost {{ .LanguageCode }}"})
	require.NoError(t, err)

	m := NewManager(s, nil, WithMessages(msgs))
	require.NoError(t, m.RemoveTranslation(ctx, fr, actor))

	list, err := m.ListTranslations(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	changes, err := s.ListChanges(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, trans.ActionRemoveTranslation, changes[0].Action)
	assert.Equal(t, "App UI lost fr", changes[0].Details)

	assert.Error(t, m.RemoveTranslation(ctx, fr, actor), "already removed")
}

func TestMessages(t *testing.T) {
	t.Parallel()

	_, err := NewMessages(config.CommitMessagesConfig{Add: "{{ .Broken"})
	require.Error(t, err)

	assert.Equal(t, "Brazilian Portuguese", LanguageName("pt_BR"))
	assert.Equal(t, "German", LanguageName("de"))
	assert.Equal(t, "templates", LanguageName("templates"))
}
