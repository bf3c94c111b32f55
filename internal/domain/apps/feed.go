package apps

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

// ListOptions selects a page of the feed
type ListOptions struct {
	Page   int    // 1-based, 0 means first page
	Limit  int    // 0 means the default page size
	UserID string // only apps by this user
	Viewer string // fills isLiked, and shows the viewer's own drafts
}

// Page is one page of apps
type Page struct {
	Apps       []*types.App     `json:"apps"`
	Pagination types.Pagination `json:"pagination"`
}

// PageParams resolves page and limit against the feed rules. Zero values
// take the defaults, limits above the maximum are capped.
func (m *Manager) PageParams(page, limit int) (int, int, error) {
	if page < 0 || limit < 0 {
		return 0, 0, ErrInvalidPage
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = m.config.DefaultPageSize
	}
	if limit > m.config.MaxPageSize {
		limit = m.config.MaxPageSize
	}
	return page, limit, nil
}

// Paginate slices items for a 1-based page. A page past the end is empty.
// The bound check runs before any multiplication so huge pages cannot wrap.
func Paginate[T any](items []T, page, limit int) ([]T, types.Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	total := len(items)
	p := types.Pagination{Page: page, Limit: limit, Total: total}

	if page-1 > total/limit {
		return []T{}, p
	}
	start := (page - 1) * limit
	if start >= total {
		return []T{}, p
	}
	end := total
	if limit < total-start {
		end = start + limit
	}
	p.HasMore = end < total
	return items[start:end], p
}

// List returns published apps newest first
func (m *Manager) List(ctx context.Context, opts ListOptions) (*Page, error) {
	page, limit, err := m.PageParams(opts.Page, opts.Limit)
	if err != nil {
		return nil, err
	}
	viewer := m.viewer(opts.Viewer)

	filter := store.AppFilter{UserID: opts.UserID, PublishedOnly: true}
	if opts.UserID != "" && opts.UserID == viewer {
		filter.PublishedOnly = false
	}

	all, err := m.store.ListApps(ctx, filter)
	if err != nil {
		return nil, err
	}

	items, pagination := Paginate(all, page, limit)
	if err := m.Decorate(ctx, items, viewer); err != nil {
		return nil, err
	}
	return &Page{Apps: items, Pagination: pagination}, nil
}

// Trending ranks published apps by engagement. Engagement is likes plus
// twice the comments, standardized across the feed, minus log(1+age in days).
func (m *Manager) Trending(ctx context.Context, limit int, viewer string) ([]*types.App, error) {
	_, limit, err := m.PageParams(1, limit)
	if err != nil {
		return nil, err
	}

	all, err := m.store.ListApps(ctx, store.AppFilter{PublishedOnly: true})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return []*types.App{}, nil
	}

	engagement := make([]float64, len(all))
	for i, app := range all {
		engagement[i] = float64(app.Likes + 2*app.Comments)
	}
	mean, std := stat.MeanStdDev(engagement, nil)

	now := m.now()
	scores := make(map[string]float64, len(all))
	for i, app := range all {
		z := 0.0
		if std > 0 && !math.IsNaN(std) {
			z = (engagement[i] - mean) / std
		}
		ageDays := math.Max(0, now.Sub(app.CreatedAt).Hours()/24)
		scores[app.ID] = z - math.Log1p(ageDays)
	}

	// all is newest first, so the stable sort keeps newer apps ahead on ties
	sort.SliceStable(all, func(i, j int) bool {
		return scores[all[i].ID] > scores[all[j].ID]
	})
	if len(all) > limit {
		all = all[:limit]
	}

	if err := m.Decorate(ctx, all, viewer); err != nil {
		return nil, err
	}
	return all, nil
}
