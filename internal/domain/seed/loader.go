package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

//go:embed data/seed.yaml
var builtin []byte

// ManifestPattern matches app manifests below a seed directory
const ManifestPattern = "**/app.{yaml,yml,toml}"

// Default file names for code that is not inlined
const (
	DefaultHTMLFile = "index.html"
	DefaultCSSFile  = "style.css"
	DefaultJSFile   = "app.js"
)

// ErrInvalidManifest is returned for manifests missing required fields
var ErrInvalidManifest = errors.New("invalid app manifest")

// Analyzer scores apps that come without a safety score
type Analyzer interface {
	Analyze(ctx context.Context, c safety.Content) (*safety.Report, error)
}

// Stats counts what a load wrote
type Stats struct {
	Users   int `json:"users"`
	Apps    int `json:"apps"`
	Likes   int `json:"likes"`
	Follows int `json:"follows"`
	Skipped int `json:"skipped"`
}

// Add accumulates o into s
func (s *Stats) Add(o Stats) {
	s.Users += o.Users
	s.Apps += o.Apps
	s.Likes += o.Likes
	s.Follows += o.Follows
	s.Skipped += o.Skipped
}

// Loader writes seed data into a store
type Loader struct {
	store       store.Store
	analyzer    Analyzer
	fingerprint *utils.ContentFingerprint
	logger      *zap.Logger
	now         func() time.Time
}

// NewLoader creates a loader. analyzer may be nil, in which case apps
// without a score are treated as safe.
func NewLoader(st store.Store, analyzer Analyzer, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:       st,
		analyzer:    analyzer,
		fingerprint: utils.NewContentFingerprint(nil),
		logger:      logger,
		now:         time.Now,
	}
}

// Builtin returns the embedded dataset
func Builtin() (*Dataset, error) {
	return ParseDataset(builtin, FormatYAML)
}

// LoadBuiltin seeds the embedded dataset
func (l *Loader) LoadBuiltin(ctx context.Context) (Stats, error) {
	ds, err := Builtin()
	if err != nil {
		return Stats{}, err
	}
	return l.Load(ctx, ds, "")
}

// Load writes a dataset. baseDir resolves code file references.
func (l *Loader) Load(ctx context.Context, ds *Dataset, baseDir string) (Stats, error) {
	var stats Stats

	for _, u := range ds.Users {
		created, err := l.putUser(ctx, u)
		if err != nil {
			return stats, err
		}
		if created {
			stats.Users++
		} else {
			stats.Skipped++
		}
	}

	for i := range ds.Apps {
		s, err := l.putApp(ctx, &ds.Apps[i], baseDir)
		if err != nil {
			return stats, err
		}
		stats.Add(s)
	}

	for _, f := range ds.Follows {
		if f.Follower == f.Followee {
			continue
		}
		if _, err := l.store.SetFollow(ctx, f.Follower, f.Followee, true); err != nil {
			return stats, fmt.Errorf("seed follow %s -> %s: %w", f.Follower, f.Followee, err)
		}
		stats.Follows++
	}

	l.logger.Info("seed data loaded",
		zap.Int("users", stats.Users),
		zap.Int("apps", stats.Apps),
		zap.Int("likes", stats.Likes),
		zap.Int("follows", stats.Follows),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

func (l *Loader) putUser(ctx context.Context, u UserSpec) (bool, error) {
	if u.ID == "" || u.Username == "" {
		return false, fmt.Errorf("%w: user needs id and username", ErrInvalidManifest)
	}
	if err := utils.ValidateUsername(u.Username); err != nil {
		return false, fmt.Errorf("%w: user %s: %v", ErrInvalidManifest, u.ID, err)
	}
	if _, err := l.store.GetUser(ctx, u.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	joined, err := parseTime(u.JoinedAt, l.now().UTC())
	if err != nil {
		return false, fmt.Errorf("user %s: %w", u.ID, err)
	}
	user := &types.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: utils.SanitizeText(u.DisplayName),
		Bio:         utils.SanitizeText(u.Bio),
		JoinedAt:    joined,
	}
	if user.DisplayName == "" {
		user.DisplayName = u.Username
	}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		user.AvatarURL = &avatar
	}
	return true, l.store.PutUser(ctx, user)
}

func (l *Loader) putApp(ctx context.Context, spec *AppSpec, baseDir string) (Stats, error) {
	var stats Stats

	if spec.ID != "" {
		if _, err := l.store.GetApp(ctx, spec.ID); err == nil {
			stats.Skipped++
			return stats, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return stats, err
		}
	}

	if err := resolveCode(spec, baseDir); err != nil {
		return stats, err
	}
	if spec.Owner == "" || spec.Title == "" || spec.HTML == "" {
		return stats, fmt.Errorf("%w: %q needs owner, title and html", ErrInvalidManifest, spec.Title)
	}
	if err := utils.ValidateCode(spec.HTML, spec.CSS, spec.JS); err != nil {
		return stats, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, spec.Title, err)
	}

	owner, err := l.store.GetUser(ctx, spec.Owner)
	if err != nil {
		return stats, fmt.Errorf("seed app %q owner %s: %w", spec.Title, spec.Owner, err)
	}

	created, err := parseTime(spec.CreatedAt, l.now().UTC())
	if err != nil {
		return stats, fmt.Errorf("app %q: %w", spec.Title, err)
	}

	score, err := l.score(ctx, spec)
	if err != nil {
		return stats, err
	}

	appID := spec.ID
	if appID == "" {
		appID = id.NewAppID().String()
	}
	published := true
	if spec.Published != nil {
		published = *spec.Published
	}

	likers := uniqueLikers(spec.LikedBy)
	baseLikes := spec.Likes - len(likers)
	if baseLikes < 0 {
		baseLikes = 0
	}

	app := &types.App{
		ID:          appID,
		Title:       utils.SanitizeText(spec.Title),
		Description: utils.SanitizeText(spec.Description),
		HTMLContent: spec.HTML,
		CSSContent:  spec.CSS,
		JSContent:   spec.JS,
		PromptUsed:  spec.Prompt,
		UserID:      owner.ID,
		User:        owner.Summary(),
		Likes:       baseLikes,
		Comments:    spec.Comments,
		IsPublished: published,
		SafetyScore: score,
		ContentHash: l.fingerprint.Compute(spec.HTML, spec.CSS, spec.JS),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if err := l.store.PutApp(ctx, app); err != nil {
		return stats, err
	}
	stats.Apps++

	for _, userID := range likers {
		if _, err := l.store.SetLike(ctx, appID, userID, true); err != nil {
			return stats, fmt.Errorf("seed like %s on %s: %w", userID, appID, err)
		}
		stats.Likes++
	}
	return stats, nil
}

func (l *Loader) score(ctx context.Context, spec *AppSpec) (float64, error) {
	if spec.SafetyScore != nil {
		s := *spec.SafetyScore
		if s < 0 || s > 1 {
			return 0, fmt.Errorf("%w: %q safetyScore %v outside [0,1]", ErrInvalidManifest, spec.Title, s)
		}
		return s, nil
	}
	if l.analyzer == nil {
		return 1, nil
	}
	report, err := l.analyzer.Analyze(ctx, safety.Content{HTML: spec.HTML, CSS: spec.CSS, JS: spec.JS})
	if err != nil {
		return 0, fmt.Errorf("analyze seed app %q: %w", spec.Title, err)
	}
	return report.Score, nil
}

func uniqueLikers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, u := range ids {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// resolveCode fills empty code fields from files next to the manifest
func resolveCode(spec *AppSpec, baseDir string) error {
	if baseDir == "" {
		return nil
	}
	parts := []struct {
		field *string
		file  string
		def   string
	}{
		{&spec.HTML, spec.HTMLFile, DefaultHTMLFile},
		{&spec.CSS, spec.CSSFile, DefaultCSSFile},
		{&spec.JS, spec.JSFile, DefaultJSFile},
	}
	for _, p := range parts {
		if *p.field != "" {
			continue
		}
		name, explicit := p.file, true
		if name == "" {
			name, explicit = p.def, false
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %s escapes the app directory", ErrInvalidManifest, name)
		}
		data, err := os.ReadFile(filepath.Join(baseDir, name))
		if err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s: %w", name, err)
		}
		*p.field = string(data)
	}
	return nil
}

// FindManifests returns app manifests below root, sorted by path
func FindManifests(ctx context.Context, root string) ([]string, error) {
	var (
		mu    sync.Mutex
		found []string
	)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(ManifestPattern, filepath.ToSlash(rel)); ok {
			mu.Lock()
			found = append(found, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk seed directory %s: %w", root, err)
	}

	sort.Strings(found)
	return found, nil
}

// LoadDir seeds every app manifest found below dir. Manifest owners must
// already exist, so the built-in dataset usually goes first.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	paths, err := FindManifests(ctx, dir)
	if err != nil {
		return stats, err
	}

	for _, p := range paths {
		format, err := FormatOf(p)
		if err != nil {
			return stats, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return stats, fmt.Errorf("read manifest %s: %w", p, err)
		}
		spec, err := ParseApp(data, format)
		if err != nil {
			return stats, fmt.Errorf("%s: %w", p, err)
		}

		s, err := l.putApp(ctx, spec, filepath.Dir(p))
		if err != nil {
			return stats, fmt.Errorf("%s: %w", p, err)
		}
		stats.Add(s)
	}

	l.logger.Info("seed directory loaded",
		zap.String("dir", dir),
		zap.Int("manifests", len(paths)),
		zap.Int("apps", stats.Apps),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}
