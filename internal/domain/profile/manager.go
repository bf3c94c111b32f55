package profile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// Recorder receives social metrics
type Recorder interface {
	RecordFollow(following bool)
}

// Manager serves profile pages and follow edges
type Manager struct {
	store   store.Store
	apps    *apps.Manager
	events  apps.Publisher
	metrics Recorder
	logger  *zap.Logger
}

// NewManager creates a profile manager on top of the feed manager
func NewManager(st store.Store, feed *apps.Manager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: st, apps: feed, logger: logger}
}

// SetPublisher attaches the event sink
func (m *Manager) SetPublisher(p apps.Publisher) { m.events = p }

// SetRecorder attaches the metrics sink
func (m *Manager) SetRecorder(r Recorder) { m.metrics = r }

// Get returns a user's profile as seen by viewer. Drafts count toward the
// stats only when viewers look at their own profile.
func (m *Manager) Get(ctx context.Context, userID, viewer string) (*types.Profile, error) {
	viewer = m.viewer(viewer)
	user, err := m.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	followers, following, err := m.store.FollowCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	owned, err := m.store.ListApps(ctx, store.AppFilter{UserID: userID, PublishedOnly: viewer != userID})
	if err != nil {
		return nil, err
	}

	profile := &types.Profile{
		User:  *user,
		Stats: likeStats(owned),
	}
	profile.Stats.Followers = followers
	profile.Stats.Following = following

	if viewer != userID {
		if profile.IsFollowing, err = m.store.IsFollowing(ctx, viewer, userID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func likeStats(owned []*types.App) types.ProfileStats {
	stats := types.ProfileStats{AppsCreated: len(owned)}
	if len(owned) == 0 {
		return stats
	}

	likes := make([]float64, len(owned))
	for i, app := range owned {
		likes[i] = float64(app.Likes)
		stats.TotalLikes += app.Likes
	}
	stats.AverageLikes = round2(stat.Mean(likes, nil))
	if len(likes) > 1 {
		stats.LikesStdDev = round2(stat.StdDev(likes, nil))
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToggleFollow flips followerID's follow of followeeID
func (m *Manager) ToggleFollow(ctx context.Context, followerID, followeeID string) (types.FollowState, error) {
	followerID = m.viewer(followerID)
	if followerID == followeeID {
		return types.FollowState{}, ErrSelfFollow
	}
	if _, err := m.user(ctx, followeeID); err != nil {
		return types.FollowState{}, err
	}

	following, err := m.store.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return types.FollowState{}, err
	}
	state, err := m.store.SetFollow(ctx, followerID, followeeID, !following)
	if errors.Is(err, store.ErrNotFound) {
		return types.FollowState{}, ErrNotFound
	}
	if err != nil {
		return types.FollowState{}, fmt.Errorf("failed to toggle follow: %w", err)
	}

	if m.metrics != nil {
		m.metrics.RecordFollow(state.IsFollowing)
	}
	if m.events != nil && state.IsFollowing {
		m.events.Publish(types.Event{
			Type:   types.EventUserFollowed,
			UserID: followeeID,
			Data:   map[string]any{"followerId": followerID, "followers": state.Followers},
		})
	}
	m.logger.Debug("follow toggled",
		zap.String("follower", followerID),
		zap.String("followee", followeeID),
		zap.Bool("following", state.IsFollowing))
	return state, nil
}

// Apps returns the "My Apps" tab for userID
func (m *Manager) Apps(ctx context.Context, userID, viewer string, page, limit int) (*apps.Page, error) {
	if _, err := m.user(ctx, userID); err != nil {
		return nil, err
	}
	return m.apps.List(ctx, apps.ListOptions{Page: page, Limit: limit, UserID: userID, Viewer: viewer})
}

// LikedApps returns the "Liked" tab for userID, most recently liked first
func (m *Manager) LikedApps(ctx context.Context, userID, viewer string, page, limit int) (*apps.Page, error) {
	page, limit, err := m.apps.PageParams(page, limit)
	if err != nil {
		return nil, err
	}
	viewer = m.viewer(viewer)
	if _, err := m.user(ctx, userID); err != nil {
		return nil, err
	}

	ids, err := m.store.LikedAppIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	liked := make([]*types.App, 0, len(ids))
	for _, appID := range ids {
		app, err := m.store.GetApp(ctx, appID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !app.IsPublished && app.UserID != viewer {
			continue
		}
		liked = append(liked, app)
	}

	items, pagination := apps.Paginate(liked, page, limit)
	if err := m.apps.Decorate(ctx, items, viewer); err != nil {
		return nil, err
	}
	return &apps.Page{Apps: items, Pagination: pagination}, nil
}

func (m *Manager) user(ctx context.Context, userID string) (*types.User, error) {
	user, err := m.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

func (m *Manager) viewer(v string) string {
	if v == "" {
		return m.apps.Config().CurrentUserID
	}
	return v
}
