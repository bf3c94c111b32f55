package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// backends returns a fresh instance of every Store implementation
func backends(t *testing.T) map[string]Store {
	t.Helper()

	bdg, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdg.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"badger": bdg,
	}
}

func seedBasics(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	for _, u := range []string{"user1", "user2", "current-user"} {
		require.NoError(t, s.PutUser(ctx, &types.User{ID: u, Username: u, DisplayName: u}))
	}

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	apps := []*types.App{
		{ID: "1", Title: "Tip Calculator", UserID: "user1", Likes: 24, IsPublished: true, CreatedAt: base},
		{ID: "2", Title: "Quote Generator", UserID: "user2", Likes: 3, IsPublished: true, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Title: "Draft", UserID: "user1", IsPublished: false, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, a := range apps {
		require.NoError(t, s.PutApp(ctx, a))
	}
}

func TestUsers(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			u, err := s.GetUser(ctx, "user1")
			require.NoError(t, err)
			assert.Equal(t, "user1", u.Username)

			_, err = s.GetUser(ctx, "ghost")
			assert.ErrorIs(t, err, ErrNotFound)

			users, err := s.ListUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, users, 3)
		})
	}
}

func TestListAppsNewestFirst(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			all, err := s.ListApps(ctx, AppFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].ID, all[1].ID, all[2].ID})

			published, err := s.ListApps(ctx, AppFilter{PublishedOnly: true})
			require.NoError(t, err)
			assert.Len(t, published, 2)

			mine, err := s.ListApps(ctx, AppFilter{UserID: "user1", PublishedOnly: true})
			require.NoError(t, err)
			require.Len(t, mine, 1)
			assert.Equal(t, "1", mine[0].ID)
		})
	}
}

func TestGetAppReturnsCopy(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			a, err := s.GetApp(ctx, "1")
			require.NoError(t, err)
			a.Title = "mutated"

			b, err := s.GetApp(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, "Tip Calculator", b.Title)
		})
	}
}

func TestSetLikeIsIdempotent(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			state, err := s.SetLike(ctx, "1", "current-user", true)
			require.NoError(t, err)
			assert.Equal(t, types.LikeState{IsLiked: true, LikeCount: 25}, state)

			// Liking twice does not double count
			state, err = s.SetLike(ctx, "1", "current-user", true)
			require.NoError(t, err)
			assert.Equal(t, 25, state.LikeCount)

			liked, err := s.IsLiked(ctx, "1", "current-user")
			require.NoError(t, err)
			assert.True(t, liked)

			state, err = s.SetLike(ctx, "1", "current-user", false)
			require.NoError(t, err)
			assert.Equal(t, types.LikeState{IsLiked: false, LikeCount: 24}, state)

			state, err = s.SetLike(ctx, "1", "current-user", false)
			require.NoError(t, err)
			assert.Equal(t, 24, state.LikeCount)

			_, err = s.SetLike(ctx, "missing", "current-user", true)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLikedAppIDsOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			_, err := s.SetLike(ctx, "1", "user2", true)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
			_, err = s.SetLike(ctx, "2", "user2", true)
			require.NoError(t, err)

			ids, err := s.LikedAppIDs(ctx, "user2")
			require.NoError(t, err)
			assert.Equal(t, []string{"2", "1"}, ids)

			none, err := s.LikedAppIDs(ctx, "user1")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestFollows(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			state, err := s.SetFollow(ctx, "current-user", "user1", true)
			require.NoError(t, err)
			assert.Equal(t, types.FollowState{IsFollowing: true, Followers: 1}, state)

			state, err = s.SetFollow(ctx, "user2", "user1", true)
			require.NoError(t, err)
			assert.Equal(t, 2, state.Followers)

			// Following again keeps the set size
			state, err = s.SetFollow(ctx, "user2", "user1", true)
			require.NoError(t, err)
			assert.Equal(t, 2, state.Followers)

			followers, following, err := s.FollowCounts(ctx, "user1")
			require.NoError(t, err)
			assert.Equal(t, 2, followers)
			assert.Equal(t, 0, following)

			_, following, err = s.FollowCounts(ctx, "user2")
			require.NoError(t, err)
			assert.Equal(t, 1, following)

			state, err = s.SetFollow(ctx, "user2", "user1", false)
			require.NoError(t, err)
			assert.Equal(t, types.FollowState{IsFollowing: false, Followers: 1}, state)

			ok, err := s.IsFollowing(ctx, "current-user", "user1")
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = s.SetFollow(ctx, "current-user", "ghost", true)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestComments(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			for i, body := range []string{"first", "second", "third"} {
				n, err := s.AddComment(ctx, &types.Comment{
					ID:     id.NewCommentID().String(),
					AppID:  "2",
					UserID: "user1",
					Body:   body,
				})
				require.NoError(t, err)
				assert.Equal(t, i+1, n)
			}

			comments, err := s.ListComments(ctx, "2")
			require.NoError(t, err)
			require.Len(t, comments, 3)
			assert.Equal(t, "first", comments[0].Body)
			assert.Equal(t, "third", comments[2].Body)

			app, err := s.GetApp(ctx, "2")
			require.NoError(t, err)
			assert.Equal(t, 3, app.Comments)

			_, err = s.AddComment(ctx, &types.Comment{ID: id.NewCommentID().String(), AppID: "missing"})
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.ListComments(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDeleteAppCascades(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			_, err := s.SetLike(ctx, "1", "user2", true)
			require.NoError(t, err)
			_, err = s.AddComment(ctx, &types.Comment{ID: id.NewCommentID().String(), AppID: "1", Body: "hi"})
			require.NoError(t, err)

			require.NoError(t, s.DeleteApp(ctx, "1"))

			_, err = s.GetApp(ctx, "1")
			assert.ErrorIs(t, err, ErrNotFound)

			liked, err := s.LikedAppIDs(ctx, "user2")
			require.NoError(t, err)
			assert.Empty(t, liked)

			// Recreating the id starts clean
			require.NoError(t, s.PutApp(ctx, &types.App{ID: "1", UserID: "user1", IsPublished: true}))
			comments, err := s.ListComments(ctx, "1")
			require.NoError(t, err)
			assert.Empty(t, comments)

			assert.ErrorIs(t, s.DeleteApp(ctx, "1-nope"), ErrNotFound)
		})
	}
}

func TestConcurrentLikes(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedBasics(t, s)

			const likers = 20
			var wg sync.WaitGroup
			for i := 0; i < likers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := s.SetLike(ctx, "2", fmt.Sprintf("liker_%d", i), true)
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			app, err := s.GetApp(ctx, "2")
			require.NoError(t, err)
			assert.Equal(t, 3+likers, app.Likes)
		})
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.PutApp(ctx, &types.App{ID: "app_x", Title: "Persisted", IsPublished: true}))
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	app, err := s.GetApp(ctx, "app_x")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", app.Title)
}

func TestMemoryClosedRejectsWrites(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.PutApp(context.Background(), &types.App{ID: "a"}), ErrClosed)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.StorageConfig{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	require.NoError(t, s.Close())

	s, err = Open(config.StorageConfig{Backend: BackendBadger, Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.StorageConfig{Backend: "postgres"}, nil)
	assert.Error(t, err)
}
