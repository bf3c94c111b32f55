// Package store persists users, apps, likes, follows and comments.
//
// Two backends implement Store: an in-memory one (the default, matching the
// mock data the feed started with) and a badger one for data that should
// survive restarts. Like and follow edges are sets; toggling an edge that is
// already in the requested state is a no-op. Like and comment counts are kept
// on the app record so seeded apps can start with historical totals.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

var (
	// ErrNotFound is returned when a user, app or comment does not exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("store closed")
)

// AppFilter narrows ListApps
type AppFilter struct {
	UserID        string
	PublishedOnly bool
}

// Store is the persistence boundary used by the domain managers
type Store interface {
	PutUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	ListUsers(ctx context.Context) ([]*types.User, error)

	PutApp(ctx context.Context, app *types.App) error
	GetApp(ctx context.Context, id string) (*types.App, error)
	// ListApps returns matching apps newest first
	ListApps(ctx context.Context, filter AppFilter) ([]*types.App, error)
	// DeleteApp removes the app together with its likes and comments
	DeleteApp(ctx context.Context, id string) error

	SetLike(ctx context.Context, appID, userID string, liked bool) (types.LikeState, error)
	IsLiked(ctx context.Context, appID, userID string) (bool, error)
	// LikedAppIDs returns app ids the user liked, most recent first
	LikedAppIDs(ctx context.Context, userID string) ([]string, error)

	SetFollow(ctx context.Context, followerID, followeeID string, following bool) (types.FollowState, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowCounts(ctx context.Context, userID string) (followers, following int, err error)

	// AddComment stores the comment and returns the app's new comment count
	AddComment(ctx context.Context, comment *types.Comment) (int, error)
	// ListComments returns the app's comments oldest first
	ListComments(ctx context.Context, appID string) ([]*types.Comment, error)

	Close() error
}

func sortNewestFirst(apps []*types.App) {
	sort.SliceStable(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		}
		return apps[i].ID > apps[j].ID
	})
}

func matches(app *types.App, filter AppFilter) bool {
	if filter.PublishedOnly && !app.IsPublished {
		return false
	}
	if filter.UserID != "" && app.UserID != filter.UserID {
		return false
	}
	return true
}
