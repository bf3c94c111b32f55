package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

func setup(t *testing.T) (*Manager, store.Store) {
	t.Helper()
	st := store.NewMemory()
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	for _, u := range []string{"john", "alex", "current-user"} {
		require.NoError(t, st.PutUser(ctx, &types.User{ID: u, Username: u, DisplayName: u, JoinedAt: time.Now()}))
	}

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for i, app := range []*types.App{
		{ID: "app_1", UserID: "john", Likes: 24, IsPublished: true},
		{ID: "app_2", UserID: "john", Likes: 67, IsPublished: true},
		{ID: "app_3", UserID: "john", Likes: 5, IsPublished: false},
		{ID: "app_4", UserID: "alex", Likes: 156, IsPublished: true},
	} {
		app.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.PutApp(ctx, app))
	}

	feed := apps.NewManager(st, nil, apps.DefaultConfig(), nil)
	return NewManager(st, feed, nil), st
}

func TestGetProfileStats(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	public, err := m.Get(ctx, "john", "alex")
	require.NoError(t, err)
	assert.Equal(t, "john", public.User.ID)
	assert.Equal(t, 2, public.Stats.AppsCreated)
	assert.Equal(t, 91, public.Stats.TotalLikes)
	assert.Equal(t, 45.5, public.Stats.AverageLikes)
	assert.Equal(t, 30.41, public.Stats.LikesStdDev)
	assert.False(t, public.IsFollowing)

	own, err := m.Get(ctx, "john", "john")
	require.NoError(t, err)
	assert.Equal(t, 3, own.Stats.AppsCreated, "owners see their drafts")
	assert.Equal(t, 96, own.Stats.TotalLikes)

	_, err = m.Get(ctx, "nobody", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileSingleApp(t *testing.T) {
	m, _ := setup(t)

	p, err := m.Get(context.Background(), "alex", "")
	require.NoError(t, err)
	assert.Equal(t, 156.0, p.Stats.AverageLikes)
	assert.Equal(t, 0.0, p.Stats.LikesStdDev)
}

func TestToggleFollow(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	state, err := m.ToggleFollow(ctx, "alex", "john")
	require.NoError(t, err)
	assert.Equal(t, types.FollowState{IsFollowing: true, Followers: 1}, state)

	p, err := m.Get(ctx, "john", "alex")
	require.NoError(t, err)
	assert.True(t, p.IsFollowing)
	assert.Equal(t, 1, p.Stats.Followers)

	alex, err := m.Get(ctx, "alex", "john")
	require.NoError(t, err)
	assert.Equal(t, 1, alex.Stats.Following)

	state, err = m.ToggleFollow(ctx, "alex", "john")
	require.NoError(t, err)
	assert.Equal(t, types.FollowState{IsFollowing: false, Followers: 0}, state)
}

func TestToggleFollowRejected(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	_, err := m.ToggleFollow(ctx, "john", "john")
	assert.ErrorIs(t, err, ErrSelfFollow)

	_, err = m.ToggleFollow(ctx, "", "current-user")
	assert.ErrorIs(t, err, ErrSelfFollow, "empty follower is the current user")

	_, err = m.ToggleFollow(ctx, "john", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppsTab(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	page, err := m.Apps(ctx, "john", "alex", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Apps, 2)

	own, err := m.Apps(ctx, "john", "john", 1, 10)
	require.NoError(t, err)
	assert.Len(t, own.Apps, 3)

	_, err = m.Apps(ctx, "ghost", "", 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikedTab(t *testing.T) {
	m, st := setup(t)
	ctx := context.Background()

	_, err := st.SetLike(ctx, "app_4", "john", true)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = st.SetLike(ctx, "app_1", "john", true)
	require.NoError(t, err)
	_, err = st.SetLike(ctx, "app_3", "alex", true)
	require.NoError(t, err)

	page, err := m.LikedApps(ctx, "john", "john", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Apps, 2)
	assert.Equal(t, "app_1", page.Apps[0].ID, "most recently liked first")
	assert.True(t, page.Apps[0].IsLiked)

	alex, err := m.LikedApps(ctx, "alex", "alex", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, alex.Apps, "someone else's draft stays hidden")
}
