package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// Memory is a mutex-protected in-memory Store
type Memory struct {
	mu       sync.RWMutex
	users    map[string]*types.User
	apps     map[string]*types.App
	likes    map[string]map[string]time.Time // app -> user -> liked at
	follows  map[string]map[string]struct{}  // follower -> followees
	comments map[string][]*types.Comment     // app -> comments in insertion order
	closed   bool
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]*types.User),
		apps:     make(map[string]*types.App),
		likes:    make(map[string]map[string]time.Time),
		follows:  make(map[string]map[string]struct{}),
		comments: make(map[string][]*types.Comment),
	}
}

func (m *Memory) PutUser(_ context.Context, user *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*types.User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) PutApp(_ context.Context, app *types.App) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	stored := app.Clone()
	stored.IsLiked = false
	m.apps[stored.ID] = stored
	return nil
}

func (m *Memory) GetApp(_ context.Context, id string) (*types.App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return app.Clone(), nil
}

func (m *Memory) ListApps(_ context.Context, filter AppFilter) ([]*types.App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	apps := make([]*types.App, 0, len(m.apps))
	for _, app := range m.apps {
		if matches(app, filter) {
			apps = append(apps, app.Clone())
		}
	}
	sortNewestFirst(apps)
	return apps, nil
}

func (m *Memory) DeleteApp(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apps[id]; !ok {
		return ErrNotFound
	}
	delete(m.apps, id)
	delete(m.likes, id)
	delete(m.comments, id)
	return nil
}

func (m *Memory) SetLike(_ context.Context, appID, userID string, liked bool) (types.LikeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.apps[appID]
	if !ok {
		return types.LikeState{}, ErrNotFound
	}

	likers := m.likes[appID]
	_, had := likers[userID]

	switch {
	case liked && !had:
		if likers == nil {
			likers = make(map[string]time.Time)
			m.likes[appID] = likers
		}
		likers[userID] = time.Now()
		app.Likes++
	case !liked && had:
		delete(likers, userID)
		if app.Likes > 0 {
			app.Likes--
		}
	}

	return types.LikeState{IsLiked: liked, LikeCount: app.Likes}, nil
}

func (m *Memory) IsLiked(_ context.Context, appID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.likes[appID][userID]
	return ok, nil
}

func (m *Memory) LikedAppIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type liked struct {
		appID string
		at    time.Time
	}
	var all []liked
	for appID, likers := range m.likes {
		if at, ok := likers[userID]; ok {
			all = append(all, liked{appID, at})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].at.Equal(all[j].at) {
			return all[i].at.After(all[j].at)
		}
		return all[i].appID > all[j].appID
	})

	ids := make([]string, len(all))
	for i, l := range all {
		ids[i] = l.appID
	}
	return ids, nil
}

func (m *Memory) SetFollow(_ context.Context, followerID, followeeID string, following bool) (types.FollowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[followeeID]; !ok {
		return types.FollowState{}, ErrNotFound
	}

	if following {
		set := m.follows[followerID]
		if set == nil {
			set = make(map[string]struct{})
			m.follows[followerID] = set
		}
		set[followeeID] = struct{}{}
	} else {
		delete(m.follows[followerID], followeeID)
	}

	return types.FollowState{IsFollowing: following, Followers: m.followersLocked(followeeID)}, nil
}

func (m *Memory) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.follows[followerID][followeeID]
	return ok, nil
}

func (m *Memory) FollowCounts(_ context.Context, userID string) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.followersLocked(userID), len(m.follows[userID]), nil
}

func (m *Memory) followersLocked(userID string) int {
	n := 0
	for _, set := range m.follows {
		if _, ok := set[userID]; ok {
			n++
		}
	}
	return n
}

func (m *Memory) AddComment(_ context.Context, comment *types.Comment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.apps[comment.AppID]
	if !ok {
		return 0, ErrNotFound
	}

	c := *comment
	m.comments[c.AppID] = append(m.comments[c.AppID], &c)
	app.Comments++
	return app.Comments, nil
}

func (m *Memory) ListComments(_ context.Context, appID string) ([]*types.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.apps[appID]; !ok {
		return nil, ErrNotFound
	}

	src := m.comments[appID]
	out := make([]*types.Comment, len(src))
	for i, c := range src {
		cc := *c
		out[i] = &cc
	}
	return out, nil
}

// Close marks the store closed; further writes fail
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
