package apps

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

type fixedAnalyzer struct{ score float64 }

func (f fixedAnalyzer) Analyze(ctx context.Context, c safety.Content) (*safety.Report, error) {
	return &safety.Report{Score: f.score}, nil
}

type eventSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *eventSink) Publish(e types.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *eventSink) types() []types.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func newTestManager(t *testing.T, score float64) (*Manager, store.Store, *eventSink) {
	t.Helper()
	st := store.NewMemory()
	t.Cleanup(func() { st.Close() })

	m := NewManager(st, fixedAnalyzer{score: score}, DefaultConfig(), nil)
	sink := &eventSink{}
	m.SetPublisher(sink)
	return m, st, sink
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Tip Calculator",
		HTMLContent: "<div id='app'></div>",
		CSSContent:  "#app{}",
		JSContent:   "console.log('hi')",
	}
}

func TestCreate(t *testing.T) {
	m, _, sink := newTestManager(t, 0.95)
	ctx := context.Background()

	app, report, err := m.Create(ctx, validInput())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, id.HasPrefix(app.ID, id.AppPrefix))
	assert.Equal(t, "current-user", app.UserID)
	assert.Equal(t, "Current User", app.User.DisplayName)
	assert.Equal(t, "", app.Description)
	assert.Equal(t, "", app.PromptUsed)
	assert.Equal(t, 0, app.Likes)
	assert.Equal(t, 0, app.Comments)
	assert.Equal(t, 0.95, app.SafetyScore)
	assert.True(t, app.IsPublished)
	assert.Len(t, app.ContentHash, 64)
	assert.Equal(t, []types.EventType{types.EventAppCreated}, sink.types())
}

func TestCreateMissingFields(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	for _, mutate := range []func(*CreateInput){
		func(in *CreateInput) { in.Title = "" },
		func(in *CreateInput) { in.Title = "   " },
		func(in *CreateInput) { in.HTMLContent = "" },
		func(in *CreateInput) { in.CSSContent = "" },
		func(in *CreateInput) { in.JSContent = "" },
	} {
		in := validInput()
		mutate(&in)
		_, _, err := m.Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrMissingFields)
	}
}

func TestCreateSanitizesText(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	in := validInput()
	in.Title = "<b>Bold</b> Timer"
	in.Description = "<script>x()</script>counts down"
	app, _, err := m.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Bold Timer", app.Title)
	assert.Equal(t, "counts down", app.Description)
}

func TestCreateBelowThresholdIsDraft(t *testing.T) {
	m, _, _ := newTestManager(t, 0.4)
	ctx := context.Background()

	app, _, err := m.Create(ctx, validInput())
	require.NoError(t, err)
	assert.False(t, app.IsPublished)

	page, err := m.List(ctx, ListOptions{Viewer: "someone"})
	require.NoError(t, err)
	assert.Empty(t, page.Apps, "drafts stay out of the feed")

	_, err = m.Get(ctx, app.ID, "someone")
	assert.ErrorIs(t, err, ErrNotFound)

	own, err := m.Get(ctx, app.ID, "current-user")
	require.NoError(t, err)
	assert.Equal(t, app.ID, own.ID)

	mine, err := m.List(ctx, ListOptions{UserID: "current-user", Viewer: "current-user"})
	require.NoError(t, err)
	assert.Len(t, mine.Apps, 1)
}

func TestCreateThresholdIsInclusive(t *testing.T) {
	m, _, _ := newTestManager(t, 0.5)
	app, _, err := m.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.True(t, app.IsPublished)
}

func TestListPagination(t *testing.T) {
	m, st, _ := newTestManager(t, 1)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, st.PutApp(ctx, &types.App{
			ID:          id.NewAppID().String(),
			Title:       "app",
			UserID:      "u1",
			IsPublished: true,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	tests := []struct {
		name      string
		page      int
		limit     int
		wantLen   int
		wantMore  bool
		wantLimit int
	}{
		{"defaults", 0, 0, 10, true, 10},
		{"second page", 2, 10, 10, true, 10},
		{"last partial", 3, 10, 5, false, 10},
		{"past the end", 9, 10, 0, false, 10},
		{"exact fit", 1, 25, 25, false, 25},
		{"capped limit", 1, 500, 25, false, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := m.List(ctx, ListOptions{Page: tt.page, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, page.Apps, tt.wantLen)
			assert.Equal(t, tt.wantMore, page.Pagination.HasMore)
			assert.Equal(t, 25, page.Pagination.Total)
			assert.Equal(t, tt.wantLimit, page.Pagination.Limit)
			assert.NotNil(t, page.Apps)
		})
	}

	first, err := m.List(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.True(t, first.Apps[0].CreatedAt.After(first.Apps[1].CreatedAt), "newest first")

	_, err = m.List(ctx, ListOptions{Page: -1})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestListUserFilter(t *testing.T) {
	m, st, _ := newTestManager(t, 1)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u2", "u1"} {
		require.NoError(t, st.PutApp(ctx, &types.App{ID: id.NewAppID().String(), UserID: owner, IsPublished: true, CreatedAt: time.Now()}))
	}

	page, err := m.List(ctx, ListOptions{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, page.Apps, 2)
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestDelete(t *testing.T) {
	m, _, sink := newTestManager(t, 1)
	ctx := context.Background()

	app, _, err := m.Create(ctx, validInput())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Delete(ctx, app.ID, "intruder"), ErrForbidden)
	require.NoError(t, m.Delete(ctx, app.ID, "current-user"))
	assert.ErrorIs(t, m.Delete(ctx, app.ID, "current-user"), ErrNotFound)

	_, err = m.Get(ctx, app.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, sink.types(), types.EventAppDeleted)
}

func TestEnsureUser(t *testing.T) {
	m, st, _ := newTestManager(t, 1)
	ctx := context.Background()

	u, err := m.EnsureUser(ctx, "new-person")
	require.NoError(t, err)
	assert.Equal(t, "new_person", u.Username)

	stored, err := st.GetUser(ctx, "new-person")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)

	again, err := m.EnsureUser(ctx, "new-person")
	require.NoError(t, err)
	assert.Equal(t, u.JoinedAt, again.JoinedAt)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, got)
	assert.Equal(t, types.Pagination{Page: 2, Limit: 2, Total: 5, HasMore: true}, p)

	got, p = Paginate(items, 3, 2)
	assert.Equal(t, []int{5}, got)
	assert.False(t, p.HasMore)

	got, _ = Paginate(items, 4, 2)
	assert.Empty(t, got)
}
