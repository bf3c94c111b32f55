package apps

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/safety"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
	"github.com/GriffinCanCode/AppFeed/backend/internal/store"
)

var (
	ErrNotFound         = errors.New("app not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalid          = errors.New("invalid app")
	ErrInvalidComment   = errors.New("invalid comment")
	ErrInvalidPage      = errors.New("invalid pagination")
	ErrForbidden        = errors.New("not the app owner")
	ErrAnalysisRequired = errors.New("safety analyzer unavailable")
)

// Analyzer scores app code
type Analyzer interface {
	Analyze(ctx context.Context, c safety.Content) (*safety.Report, error)
}

// Publisher receives domain events
type Publisher interface {
	Publish(event types.Event)
}

// Recorder receives feed metrics
type Recorder interface {
	RecordAppCreated(published bool)
	SetAppsPublished(count int)
	RecordLike(liked bool)
	RecordComment()
	ObserveSafetyScore(score float64)
}

// Config holds feed rules
type Config struct {
	DefaultPageSize  int
	MaxPageSize      int
	PublishThreshold float64
	CurrentUserID    string
}

// DefaultConfig returns the feed rules used when none are configured
func DefaultConfig() Config {
	return Config{
		DefaultPageSize:  10,
		MaxPageSize:      50,
		PublishThreshold: 0.5,
		CurrentUserID:    "current-user",
	}
}

const likeStripes = 64

// Manager runs the feed: listing, creation, likes and comments
type Manager struct {
	store       store.Store
	analyzer    Analyzer
	events      Publisher
	metrics     Recorder
	fingerprint *utils.ContentFingerprint
	config      Config
	logger      *zap.Logger
	now         func() time.Time

	// serializes read-then-write toggles per (app, user)
	likeLocks [likeStripes]sync.Mutex
}

// NewManager creates a feed manager
func NewManager(st store.Store, analyzer Analyzer, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = def.DefaultPageSize
	}
	if config.MaxPageSize < config.DefaultPageSize {
		config.MaxPageSize = max(def.MaxPageSize, config.DefaultPageSize)
	}
	if config.CurrentUserID == "" {
		config.CurrentUserID = def.CurrentUserID
	}
	return &Manager{
		store:       st,
		analyzer:    analyzer,
		fingerprint: utils.NewContentFingerprint(nil),
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SetPublisher attaches the event sink
func (m *Manager) SetPublisher(p Publisher) { m.events = p }

// SetRecorder attaches the metrics sink
func (m *Manager) SetRecorder(r Recorder) { m.metrics = r }

// Config returns the feed rules in effect
func (m *Manager) Config() Config { return m.config }

// CreateInput is what a user submits to publish an app
type CreateInput struct {
	Title       string
	Description string
	HTMLContent string
	CSSContent  string
	JSContent   string
	PromptUsed  string
	UserID      string
}

// Create scores and stores a new app. It is published when its safety
// score reaches the publish threshold.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*types.App, *safety.Report, error) {
	if strings.TrimSpace(in.Title) == "" || in.HTMLContent == "" || in.CSSContent == "" || in.JSContent == "" {
		return nil, nil, ErrMissingFields
	}

	title := utils.SanitizeText(in.Title)
	description := utils.SanitizeText(in.Description)
	if err := utils.ValidateTitle(title); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := utils.ValidateDescription(description); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := utils.ValidateCode(in.HTMLContent, in.CSSContent, in.JSContent); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if m.analyzer == nil {
		return nil, nil, ErrAnalysisRequired
	}

	owner, err := m.EnsureUser(ctx, in.UserID)
	if err != nil {
		return nil, nil, err
	}

	report, err := m.analyzer.Analyze(ctx, safety.Content{
		HTML: in.HTMLContent,
		CSS:  in.CSSContent,
		JS:   in.JSContent,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("safety analysis failed: %w", err)
	}

	now := m.now().UTC()
	app := &types.App{
		ID:          id.NewAppID().String(),
		Title:       title,
		Description: description,
		HTMLContent: in.HTMLContent,
		CSSContent:  in.CSSContent,
		JSContent:   in.JSContent,
		PromptUsed:  in.PromptUsed,
		UserID:      owner.ID,
		User:        owner.Summary(),
		IsPublished: report.Score >= m.config.PublishThreshold,
		SafetyScore: report.Score,
		ContentHash: m.fingerprint.Compute(in.HTMLContent, in.CSSContent, in.JSContent),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.store.PutApp(ctx, app); err != nil {
		return nil, nil, fmt.Errorf("failed to save app: %w", err)
	}

	m.logger.Info("app created",
		zap.String("app_id", app.ID),
		zap.String("user_id", app.UserID),
		zap.Float64("safety_score", app.SafetyScore),
		zap.Bool("published", app.IsPublished),
		zap.String("content_hash", m.fingerprint.Short(app.ContentHash)))

	if m.metrics != nil {
		m.metrics.RecordAppCreated(app.IsPublished)
		m.metrics.ObserveSafetyScore(app.SafetyScore)
	}
	m.refreshPublished(ctx)
	m.publish(types.EventAppCreated, app.ID, app.UserID, map[string]any{
		"title":       app.Title,
		"isPublished": app.IsPublished,
		"safetyScore": app.SafetyScore,
	})

	return app, report, nil
}

// EnsureUser returns the user, creating a placeholder profile for ids seen
// for the first time. An empty id means the current user.
func (m *Manager) EnsureUser(ctx context.Context, userID string) (*types.User, error) {
	if userID == "" {
		userID = m.config.CurrentUserID
	}
	user, err := m.store.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username := strings.ReplaceAll(userID, "-", "_")
	display := username
	if userID == m.config.CurrentUserID {
		display = "Current User"
	}
	user = &types.User{
		ID:          userID,
		Username:    username,
		DisplayName: display,
		JoinedAt:    m.now().UTC(),
	}
	if err := m.store.PutUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Get returns an app as seen by viewer. Unpublished apps are only visible
// to their owner.
func (m *Manager) Get(ctx context.Context, appID, viewer string) (*types.App, error) {
	app, err := m.visible(ctx, appID, viewer)
	if err != nil {
		return nil, err
	}
	if err := m.Decorate(ctx, []*types.App{app}, viewer); err != nil {
		return nil, err
	}
	return app, nil
}

func (m *Manager) visible(ctx context.Context, appID, viewer string) (*types.App, error) {
	app, err := m.store.GetApp(ctx, appID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !app.IsPublished && app.UserID != m.viewer(viewer) {
		return nil, ErrNotFound
	}
	return app, nil
}

// Delete removes an app owned by actor
func (m *Manager) Delete(ctx context.Context, appID, actor string) error {
	actor = m.viewer(actor)
	app, err := m.store.GetApp(ctx, appID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if app.UserID != actor {
		return ErrForbidden
	}

	if err := m.store.DeleteApp(ctx, appID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete app: %w", err)
	}

	m.logger.Info("app deleted", zap.String("app_id", appID), zap.String("user_id", actor))
	m.refreshPublished(ctx)
	m.publish(types.EventAppDeleted, appID, actor, nil)
	return nil
}

// Decorate fills viewer-specific fields on apps
func (m *Manager) Decorate(ctx context.Context, apps []*types.App, viewer string) error {
	viewer = m.viewer(viewer)
	for _, app := range apps {
		liked, err := m.store.IsLiked(ctx, app.ID, viewer)
		if err != nil {
			return err
		}
		app.IsLiked = liked
	}
	return nil
}

func (m *Manager) viewer(v string) string {
	if v == "" {
		return m.config.CurrentUserID
	}
	return v
}

func (m *Manager) refreshPublished(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	published, err := m.store.ListApps(ctx, store.AppFilter{PublishedOnly: true})
	if err != nil {
		m.logger.Warn("failed to count published apps", zap.Error(err))
		return
	}
	m.metrics.SetAppsPublished(len(published))
}

func (m *Manager) publish(typ types.EventType, appID, userID string, data map[string]any) {
	if m.events == nil {
		return
	}
	m.events.Publish(types.Event{
		Type:      typ,
		AppID:     appID,
		UserID:    userID,
		Data:      data,
		Timestamp: m.now().UTC(),
	})
}

func (m *Manager) likeLock(appID, userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(appID))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	return &m.likeLocks[h.Sum32()%likeStripes]
}
