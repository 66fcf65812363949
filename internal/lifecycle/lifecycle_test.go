package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/store/inmemory"
	"github.com/omprussia/weblate-omp/internal/trans"
	"github.com/omprussia/weblate-omp/internal/txn"
	vcsmocks "github.com/omprussia/weblate-omp/internal/vcs/mocks"
)

// traceAddon records the order of the events it receives.
type traceAddon struct {
	events  []string
	failDay bool
}

func (*traceAddon) Name() string { return "trace" }
func (*traceAddon) Metadata() addons.Metadata {
	return addons.Metadata{Name: "trace", Events: []addons.Event{
		addons.EventPreUpdate, addons.EventPostUpdate, addons.EventDaily,
	}}
}
func (*traceAddon) CanInstall(context.Context, *trans.Component, *trans.User) bool { return true }

func (a *traceAddon) OnPreUpdate(ctx context.Context, _ *trans.Addon, c *trans.Component) error {
	a.events = append(a.events, "pre:"+c.Slug)
	txn.OnCommit(ctx, func(context.Context) error {
		a.events = append(a.events, "commit:"+c.Slug)
		return nil
	})
	return nil
}

func (a *traceAddon) OnPostUpdate(_ context.Context, _ *trans.Addon, c *trans.Component, rev string) error {
	a.events = append(a.events, "post:"+c.Slug+"@"+rev)
	return nil
}

func (a *traceAddon) OnDaily(_ context.Context, _ *trans.Addon, c *trans.Component) error {
	a.events = append(a.events, "daily:"+c.Slug)
	if a.failDay && c.Slug == "app-ui" {
		return errors.New("daily failed")
	}
	return nil
}

type env struct {
	store   *inmemory.Store
	repo    *vcsmocks.MockRepository
	addon   *traceAddon
	updater *Updater
	ui      *trans.Component
	docs    *trans.Component
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := inmemory.New()
	p := s.AddProject(&trans.Project{Slug: "web"})
	ui := s.AddComponent(&trans.Component{ProjectID: p.ID, Slug: "app-ui"})
	docs := s.AddComponent(&trans.Component{ProjectID: p.ID, Slug: "docs"})

	a := &traceAddon{}
	registry := addons.NewRegistry(a)
	for _, c := range []*trans.Component{ui, docs} {
		require.NoError(t, s.CreateAddon(context.Background(), &trans.Addon{ComponentID: c.ID, Name: "trace"}))
	}

	repo := vcsmocks.NewMockRepository(ctrl)
	dispatcher := addons.NewDispatcher(registry, s)
	return &env{
		store:   s,
		repo:    repo,
		addon:   a,
		updater: NewUpdater(s, repo, dispatcher, txn.NewMemoryManager()),
		ui:      ui,
		docs:    docs,
	}
}

func TestUpdater_UpdateComponent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.repo.EXPECT().Update(gomock.Any(), e.ui).Return("abc123", nil)

	require.NoError(t, e.updater.UpdateComponent(context.Background(), e.ui))

	assert.Equal(t, []string{"pre:app-ui", "post:app-ui@abc123", "commit:app-ui"}, e.addon.events)
}

func TestUpdater_UpdateBySlug(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return("r1", nil)

	require.NoError(t, e.updater.UpdateBySlug(context.Background(), "web", "docs"))
	assert.Equal(t, []string{"pre:docs", "post:docs@r1", "commit:docs"}, e.addon.events)

	require.Error(t, e.updater.UpdateBySlug(context.Background(), "web", "missing"))
}

func TestUpdater_RepositoryFailureRollsBack(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	pullErr := errors.New("merge conflict")
	e.repo.EXPECT().Update(gomock.Any(), e.ui).Return("", pullErr)

	err := e.updater.UpdateComponent(context.Background(), e.ui)

	require.ErrorIs(t, err, pullErr)
	assert.Equal(t, []string{"pre:app-ui"}, e.addon.events)
}

func TestUpdater_RunDaily(t *testing.T) {
	t.Parallel()

	t.Run("all components", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		require.NoError(t, e.updater.RunDaily(context.Background()))
		assert.Equal(t, []string{"daily:app-ui", "daily:docs"}, e.addon.events)
	})

	t.Run("failures do not stop the run", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.addon.failDay = true
		err := e.updater.RunDaily(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "daily failed")
		assert.Equal(t, []string{"daily:app-ui", "daily:docs"}, e.addon.events)
	})
}

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) RunDaily(context.Context) error {
	r.runs.Add(1)
	return errors.New("ignored")
}

func TestScheduler_TicksUntilStopped(t *testing.T) {
	t.Parallel()
	runner := &countingRunner{}
	s := NewScheduler(runner, 20*time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return runner.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	require.NoError(t, <-errCh)
}

func TestScheduler_StopsWithContext(t *testing.T) {
	t.Parallel()
	s := NewScheduler(&countingRunner{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNextInterval(t *testing.T) {
	t.Parallel()
	base := 24 * time.Hour
	for range 100 {
		got := nextInterval(base)
		assert.GreaterOrEqual(t, got, base-base/20)
		assert.Less(t, got, base+base/20)
	}
	assert.Equal(t, time.Duration(0), nextInterval(0))
}
