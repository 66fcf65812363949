package synchronize_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omprussia/weblate-omp/internal/addons/synchronize"
	"github.com/omprussia/weblate-omp/internal/store"
	storemocks "github.com/omprussia/weblate-omp/internal/store/mocks"
	"github.com/omprussia/weblate-omp/internal/trans"
)

func TestMarkerSet(t *testing.T) {
	t.Parallel()
	m := synchronize.NewMarkerSet()

	assert.False(t, m.Take(1))
	m.Mark(1)
	m.Mark(1)
	assert.True(t, m.Marked(1))
	assert.False(t, m.Marked(2))
	assert.True(t, m.Take(1))
	assert.False(t, m.Take(1))
	assert.False(t, m.Marked(1))
}

func TestActorContext_ResolvesOnce(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	users := storemocks.NewMockUserStore(ctrl)
	bot := &trans.User{ID: 7, Username: "ci-bot"}
	users.EXPECT().GetUserByUsername(gomock.Any(), "ci-bot").Return(bot, nil).Times(1)

	actor := synchronize.NewActorContext(users, "ci-bot")
	for range 3 {
		u, err := actor.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, bot, u)
	}
}

func TestActorContext_FailureIsNotCached(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	users := storemocks.NewMockUserStore(ctrl)
	bot := &trans.User{ID: 7, Username: "ci-bot"}
	gomock.InOrder(
		users.EXPECT().GetUserByUsername(gomock.Any(), "ci-bot").Return(nil, store.ErrUserNotFound),
		users.EXPECT().GetUserByUsername(gomock.Any(), "ci-bot").Return(bot, nil),
	)

	actor := synchronize.NewActorContext(users, "ci-bot")
	_, err := actor.Resolve(context.Background())
	require.ErrorIs(t, err, store.ErrUserNotFound)

	u, err := actor.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
}

func TestActivationStores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store func(t *testing.T) synchronize.ActivationStore
	}{
		{
			name:  "memory",
			store: func(*testing.T) synchronize.ActivationStore { return synchronize.NewMemoryActivationStore() },
		},
		{
			name: "file",
			store: func(t *testing.T) synchronize.ActivationStore {
				return synchronize.NewFileActivationStore(filepath.Join(t.TempDir(), "state", "activations.json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := tt.store(t)
			ctx := context.Background()

			active, err := s.Activated(ctx, 3)
			require.NoError(t, err)
			assert.False(t, active)

			require.NoError(t, s.Activate(ctx, 3))
			require.NoError(t, s.Activate(ctx, 3))

			active, err = s.Activated(ctx, 3)
			require.NoError(t, err)
			assert.True(t, active)

			other, err := s.Activated(ctx, 4)
			require.NoError(t, err)
			assert.False(t, other)
		})
	}
}

func TestFileActivationStore_Persists(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "activations.json")
	ctx := context.Background()

	require.NoError(t, synchronize.NewFileActivationStore(path).Activate(ctx, 12))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"components": [12]}`, string(data))
	assert.NoFileExists(t, path+".tmp")

	reopened := synchronize.NewFileActivationStore(path)
	active, err := reopened.Activated(ctx, 12)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestFileActivationStore_CorruptState(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "activations.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := synchronize.NewFileActivationStore(path).Activated(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse activation state")
}
