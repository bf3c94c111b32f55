package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuiltinDataset(t *testing.T) {
	ds, err := Builtin()
	require.NoError(t, err)

	require.Len(t, ds.Users, 4)
	assert.Equal(t, "john_creator", ds.Users[0].Username)
	assert.Equal(t, "John Smith", ds.Users[0].DisplayName)
	assert.Equal(t, "AI enthusiast & app creator. Making useful tools for everyday problems! 🚀", ds.Users[0].Bio)

	titles := make([]string, 0, len(ds.Apps))
	for _, a := range ds.Apps {
		titles = append(titles, a.Title)
		assert.NotEmpty(t, a.HTML, a.Title)
		assert.NotEmpty(t, a.CSS, a.Title)
		assert.NotEmpty(t, a.JS, a.Title)
	}
	assert.Equal(t, []string{"Tip Calculator", "Color Picker Tool", "Simple Timer", "Random Quote Generator"}, titles)
}

func TestLoadBuiltin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	l := NewLoader(st, nil, nil)

	stats, err := l.LoadBuiltin(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 4, Apps: 4, Likes: 2, Follows: 3}, stats)

	tip, err := st.GetApp(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 24, tip.Likes)
	assert.Equal(t, 5, tip.Comments)
	assert.Equal(t, 0.95, tip.SafetyScore)
	assert.True(t, tip.IsPublished)
	assert.Equal(t, "john_creator", tip.User.Username)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), tip.CreatedAt)
	assert.Len(t, tip.ContentHash, 64)

	timer, err := st.GetApp(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 89, timer.Likes, "seeded likers are part of the total")
	liked, err := st.IsLiked(ctx, "3", "current-user")
	require.NoError(t, err)
	assert.True(t, liked)

	followers, _, err := st.FollowCounts(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, followers)

	john, err := st.GetUser(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), john.JoinedAt)
}

func TestLoadBuiltinIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	l := NewLoader(st, nil, nil)

	_, err := l.LoadBuiltin(ctx)
	require.NoError(t, err)

	stats, err := l.LoadBuiltin(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Apps)
	assert.Zero(t, stats.Users)
	assert.Equal(t, 8, stats.Skipped)

	timer, err := st.GetApp(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 89, timer.Likes)
}

func TestLoadRejectsBadData(t *testing.T) {
	ctx := context.Background()
	score := 1.5

	tests := []struct {
		name string
		ds   Dataset
	}{
		{"user without username", Dataset{Users: []UserSpec{{ID: "u"}}}},
		{"short username", Dataset{Users: []UserSpec{{ID: "u", Username: "u"}}}},
		{"username with spaces", Dataset{Users: []UserSpec{{ID: "u", Username: "john creator"}}}},
		{"unknown owner", Dataset{Apps: []AppSpec{{Owner: "ghost", Title: "x", HTML: "<p></p>"}}}},
		{"missing html", Dataset{Users: []UserSpec{{ID: "u", Username: "user_u"}}, Apps: []AppSpec{{Owner: "u", Title: "x"}}}},
		{"score out of range", Dataset{Users: []UserSpec{{ID: "u", Username: "user_u"}}, Apps: []AppSpec{{Owner: "u", Title: "x", HTML: "<p></p>", SafetyScore: &score}}}},
		{"bad time", Dataset{Users: []UserSpec{{ID: "u", Username: "user_u", JoinedAt: "yesterday"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(store.NewMemory(), nil, nil).Load(ctx, &tt.ds, "")
			assert.Error(t, err)
		})
	}
}

func TestFindManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.yaml"), "title: root")
	writeFile(t, filepath.Join(dir, "counter", "app.yml"), "title: c")
	writeFile(t, filepath.Join(dir, "games", "snake", "app.toml"), "title = 's'")
	writeFile(t, filepath.Join(dir, "games", "snake", "index.html"), "<p></p>")
	writeFile(t, filepath.Join(dir, "notes", "app.json"), "{}")
	writeFile(t, filepath.Join(dir, "notes", "myapp.yaml"), "title: n")

	found, err := FindManifests(context.Background(), dir)
	require.NoError(t, err)

	rel := make([]string, 0, len(found))
	for _, p := range found {
		r, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"app.yaml", "counter/app.yml", "games/snake/app.toml"}, rel)
}

func TestLoadDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "counter", "app.yaml"), `
id: counter
owner: user3
title: Click Counter
description: Counts your clicks
likes: 3
likedBy: [current-user, current-user]
createdAt: "2024-02-01T08:00:00Z"
`)
	writeFile(t, filepath.Join(dir, "counter", "index.html"), `<button id="b">0</button>`)
	writeFile(t, filepath.Join(dir, "counter", "style.css"), `button { font-size: 2rem; }`)
	writeFile(t, filepath.Join(dir, "counter", "app.js"), `let n = 0; document.getElementById('b').addEventListener('click', () => {});`)

	writeFile(t, filepath.Join(dir, "hello", "app.toml"), `
owner = "user1"
title = "Hello"
html = "<h1>Hello</h1>"
published = false
safetyScore = 0.4
`)

	st := store.NewMemory()
	l := NewLoader(st, nil, nil)
	_, err := l.LoadBuiltin(ctx)
	require.NoError(t, err)

	stats, err := l.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Apps)
	assert.Equal(t, 1, stats.Likes)

	counter, err := st.GetApp(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, `<button id="b">0</button>`, counter.HTMLContent)
	assert.Equal(t, `button { font-size: 2rem; }`, counter.CSSContent)
	assert.Equal(t, 3, counter.Likes)
	assert.Equal(t, 1.0, counter.SafetyScore)

	drafts, err := st.ListApps(ctx, store.AppFilter{UserID: "user1"})
	require.NoError(t, err)
	var hello bool
	for _, a := range drafts {
		if a.Title == "Hello" {
			hello = true
			assert.False(t, a.IsPublished)
			assert.Equal(t, 0.4, a.SafetyScore)
			assert.Empty(t, a.CSSContent)
		}
	}
	assert.True(t, hello)
}

func TestLoadDirRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "evil", "app.yaml"), `
owner: user1
title: Evil
htmlFile: ../../etc/passwd
`)

	st := store.NewMemory()
	l := NewLoader(st, nil, nil)
	_, err := l.LoadBuiltin(context.Background())
	require.NoError(t, err)

	_, err = l.LoadDir(context.Background(), dir)
	assert.Error(t, err)
}

type stubAnalyzer struct{ score float64 }

func (s stubAnalyzer) Analyze(ctx context.Context, c safety.Content) (*safety.Report, error) {
	return &safety.Report{Score: s.score}, nil
}

func TestLoadScoresUnscoredApps(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	l := NewLoader(st, stubAnalyzer{score: 0.65}, nil)

	ds := &Dataset{
		Users: []UserSpec{{ID: "u", Username: "someone"}},
		Apps:  []AppSpec{{ID: "a", Owner: "u", Title: "Plain", HTML: "<p>hi</p>"}},
	}
	_, err := l.Load(ctx, ds, "")
	require.NoError(t, err)

	app, err := st.GetApp(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0.65, app.SafetyScore)
}
