package apps

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

// CommentPage is one page of an app's comments
type CommentPage struct {
	Comments   []*types.Comment `json:"comments"`
	Pagination types.Pagination `json:"pagination"`
}

// ToggleLike flips userID's like on an app
func (m *Manager) ToggleLike(ctx context.Context, appID, userID string) (types.LikeState, error) {
	userID = m.viewer(userID)
	if _, err := m.visible(ctx, appID, userID); err != nil {
		return types.LikeState{}, err
	}

	lock := m.likeLock(appID, userID)
	lock.Lock()
	liked, err := m.store.IsLiked(ctx, appID, userID)
	if err != nil {
		lock.Unlock()
		return types.LikeState{}, err
	}
	state, err := m.store.SetLike(ctx, appID, userID, !liked)
	lock.Unlock()
	if errors.Is(err, store.ErrNotFound) {
		return types.LikeState{}, ErrNotFound
	}
	if err != nil {
		return types.LikeState{}, fmt.Errorf("failed to toggle like: %w", err)
	}

	if m.metrics != nil {
		m.metrics.RecordLike(state.IsLiked)
	}
	evt := types.EventAppUnliked
	if state.IsLiked {
		evt = types.EventAppLiked
	}
	m.publish(evt, appID, userID, map[string]any{"likeCount": state.LikeCount})

	m.logger.Debug("like toggled",
		zap.String("app_id", appID),
		zap.String("user_id", userID),
		zap.Bool("liked", state.IsLiked),
		zap.Int("likes", state.LikeCount))
	return state, nil
}

// LikeStatus reports userID's like and the app's like count
func (m *Manager) LikeStatus(ctx context.Context, appID, userID string) (types.LikeState, error) {
	userID = m.viewer(userID)
	app, err := m.visible(ctx, appID, userID)
	if err != nil {
		return types.LikeState{}, err
	}
	liked, err := m.store.IsLiked(ctx, appID, userID)
	if err != nil {
		return types.LikeState{}, err
	}
	return types.LikeState{IsLiked: liked, LikeCount: app.Likes}, nil
}

// AddComment stores a sanitized comment and returns it with the new count
func (m *Manager) AddComment(ctx context.Context, appID, userID, body string) (*types.Comment, int, error) {
	userID = m.viewer(userID)
	if _, err := m.visible(ctx, appID, userID); err != nil {
		return nil, 0, err
	}

	body = utils.SanitizeText(body)
	if err := utils.ValidateComment(body); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidComment, err)
	}

	author, err := m.EnsureUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	comment := &types.Comment{
		ID:        id.NewCommentID().String(),
		AppID:     appID,
		UserID:    author.ID,
		User:      author.Summary(),
		Body:      body,
		CreatedAt: m.now().UTC(),
	}
	count, err := m.store.AddComment(ctx, comment)
	if errors.Is(err, store.ErrNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to add comment: %w", err)
	}

	if m.metrics != nil {
		m.metrics.RecordComment()
	}
	m.publish(types.EventCommentAdded, appID, author.ID, map[string]any{
		"commentId": comment.ID,
		"comments":  count,
	})
	return comment, count, nil
}

// ListComments returns a page of an app's comments, oldest first
func (m *Manager) ListComments(ctx context.Context, appID, viewer string, page, limit int) (*CommentPage, error) {
	page, limit, err := m.PageParams(page, limit)
	if err != nil {
		return nil, err
	}
	if _, err := m.visible(ctx, appID, viewer); err != nil {
		return nil, err
	}

	all, err := m.store.ListComments(ctx, appID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, pagination := Paginate(all, page, limit)
	return &CommentPage{Comments: items, Pagination: pagination}, nil
}
