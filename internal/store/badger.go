package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

// Key prefixes
const (
	prefixUser     = "user/"
	prefixApp      = "app/"
	prefixLike     = "like/"     // like/<app>/<user>
	prefixLiker    = "liker/"    // liker/<user>/<app>
	prefixFollow   = "follow/"   // follow/<follower>/<followee>
	prefixFollower = "follower/" // follower/<followee>/<follower>
	prefixComment  = "comment/"  // comment/<app>/<comment id>
)

// BadgerConfig configures the badger backend
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit
	SyncWrites bool
	// GCInterval runs value log GC periodically. Zero disables it.
	GCInterval time.Duration
	Logger     *zap.Logger
}

// Badger is a Store backed by an embedded badger database
type Badger struct {
	db      *badger.DB
	logger  *zap.Logger
	writeMu sync.Mutex

	stopGC chan struct{}
	gcDone chan struct{}
	once   sync.Once
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, a ...interface{})   { l.s.Errorf(f, a...) }
func (l badgerLogger) Warningf(f string, a ...interface{}) { l.s.Warnf(f, a...) }
func (l badgerLogger) Infof(f string, a ...interface{})    { l.s.Debugf(f, a...) }
func (l badgerLogger) Debugf(f string, a ...interface{})   { l.s.Debugf(f, a...) }

// OpenBadger opens (creating if needed) a badger-backed store
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{s: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	b := &Badger{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.stopGC = make(chan struct{})
		b.gcDone = make(chan struct{})
		go b.runGC(cfg.GCInterval)
	}
	return b, nil
}

func (b *Badger) runGC(interval time.Duration) {
	defer close(b.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				b.logger.Warn("badger value log GC failed", zap.Error(err))
			}
		}
	}
}

// Close stops GC and closes the database
func (b *Badger) Close() error {
	var err error
	b.once.Do(func() {
		if b.stopGC != nil {
			close(b.stopGC)
			<-b.gcDone
		}
		err = b.db.Close()
	})
	return err
}

// update runs fn in a read-write transaction. Writers are serialised so
// counter read-modify-writes on the app record never conflict.
func (b *Badger) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	return b.db.Update(fn)
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return sonic.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scan calls fn for each key under prefix; values are only loaded when
// withValues is set
func scan(txn *badger.Txn, prefix string, withValues bool, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = withValues

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var val []byte
		if withValues {
			var err error
			if val, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		if err := fn(string(item.KeyCopy(nil)), val); err != nil {
			return err
		}
	}
	return nil
}

func countPrefix(txn *badger.Txn, prefix string) (int, error) {
	n := 0
	err := scan(txn, prefix, false, func(string, []byte) error {
		n++
		return nil
	})
	return n, err
}

func encodeTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeTime(b []byte) time.Time {
	if len(b) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}

func (b *Badger) PutUser(ctx context.Context, user *types.User) error {
	return b.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, prefixUser+user.ID, user)
	})
}

func (b *Badger) GetUser(_ context.Context, id string) (*types.User, error) {
	var user types.User
	err := b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixUser+id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (b *Badger) ListUsers(_ context.Context) ([]*types.User, error) {
	var users []*types.User
	err := b.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefixUser, true, func(_ string, val []byte) error {
			var u types.User
			if err := sonic.Unmarshal(val, &u); err != nil {
				return err
			}
			users = append(users, &u)
			return nil
		})
	})
	return users, err
}

func (b *Badger) PutApp(ctx context.Context, app *types.App) error {
	stored := app.Clone()
	stored.IsLiked = false
	return b.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, prefixApp+stored.ID, stored)
	})
}

func (b *Badger) GetApp(_ context.Context, id string) (*types.App, error) {
	var app types.App
	err := b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixApp+id, &app)
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (b *Badger) ListApps(_ context.Context, filter AppFilter) ([]*types.App, error) {
	var apps []*types.App
	err := b.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefixApp, true, func(_ string, val []byte) error {
			var app types.App
			if err := sonic.Unmarshal(val, &app); err != nil {
				return err
			}
			if matches(&app, filter) {
				apps = append(apps, &app)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(apps)
	return apps, nil
}

func (b *Badger) DeleteApp(ctx context.Context, id string) error {
	return b.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, prefixApp+id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		keys := []string{prefixApp + id}
		err = scan(txn, prefixLike+id+"/", false, func(key string, _ []byte) error {
			userID := strings.TrimPrefix(key, prefixLike+id+"/")
			keys = append(keys, key, prefixLiker+userID+"/"+id)
			return nil
		})
		if err != nil {
			return err
		}
		err = scan(txn, prefixComment+id+"/", false, func(key string, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Badger) SetLike(ctx context.Context, appID, userID string, liked bool) (types.LikeState, error) {
	var state types.LikeState
	err := b.update(ctx, func(txn *badger.Txn) error {
		var app types.App
		if err := getJSON(txn, prefixApp+appID, &app); err != nil {
			return err
		}

		likeKey := prefixLike + appID + "/" + userID
		likerKey := prefixLiker + userID + "/" + appID
		had, err := exists(txn, likeKey)
		if err != nil {
			return err
		}

		switch {
		case liked && !had:
			now := encodeTime(time.Now())
			if err := txn.Set([]byte(likeKey), now); err != nil {
				return err
			}
			if err := txn.Set([]byte(likerKey), now); err != nil {
				return err
			}
			app.Likes++
		case !liked && had:
			if err := txn.Delete([]byte(likeKey)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(likerKey)); err != nil {
				return err
			}
			if app.Likes > 0 {
				app.Likes--
			}
		default:
			state = types.LikeState{IsLiked: liked, LikeCount: app.Likes}
			return nil
		}

		state = types.LikeState{IsLiked: liked, LikeCount: app.Likes}
		return setJSON(txn, prefixApp+appID, &app)
	})
	return state, err
}

func (b *Badger) IsLiked(_ context.Context, appID, userID string) (bool, error) {
	var ok bool
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = exists(txn, prefixLike+appID+"/"+userID)
		return err
	})
	return ok, err
}

func (b *Badger) LikedAppIDs(_ context.Context, userID string) ([]string, error) {
	type liked struct {
		appID string
		at    time.Time
	}
	var all []liked

	prefix := prefixLiker + userID + "/"
	err := b.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix, true, func(key string, val []byte) error {
			all = append(all, liked{strings.TrimPrefix(key, prefix), decodeTime(val)})
			return nil
		})
	})
	if err != nil {
		return nil, err
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

func (b *Badger) SetFollow(ctx context.Context, followerID, followeeID string, following bool) (types.FollowState, error) {
	var state types.FollowState
	err := b.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, prefixUser+followeeID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		fwd := []byte(prefixFollow + followerID + "/" + followeeID)
		rev := []byte(prefixFollower + followeeID + "/" + followerID)
		if following {
			if err := txn.Set(fwd, nil); err != nil {
				return err
			}
			if err := txn.Set(rev, nil); err != nil {
				return err
			}
		} else {
			if err := txn.Delete(fwd); err != nil {
				return err
			}
			if err := txn.Delete(rev); err != nil {
				return err
			}
		}

		n, err := countPrefix(txn, prefixFollower+followeeID+"/")
		if err != nil {
			return err
		}
		state = types.FollowState{IsFollowing: following, Followers: n}
		return nil
	})
	return state, err
}

func (b *Badger) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	var ok bool
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		ok, err = exists(txn, prefixFollow+followerID+"/"+followeeID)
		return err
	})
	return ok, err
}

func (b *Badger) FollowCounts(_ context.Context, userID string) (int, int, error) {
	var followers, following int
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		if followers, err = countPrefix(txn, prefixFollower+userID+"/"); err != nil {
			return err
		}
		following, err = countPrefix(txn, prefixFollow+userID+"/")
		return err
	})
	return followers, following, err
}

func (b *Badger) AddComment(ctx context.Context, comment *types.Comment) (int, error) {
	var count int
	err := b.update(ctx, func(txn *badger.Txn) error {
		var app types.App
		if err := getJSON(txn, prefixApp+comment.AppID, &app); err != nil {
			return err
		}
		if err := setJSON(txn, prefixComment+comment.AppID+"/"+comment.ID, comment); err != nil {
			return err
		}
		app.Comments++
		count = app.Comments
		return setJSON(txn, prefixApp+app.ID, &app)
	})
	return count, err
}

// ListComments relies on comment ids being ULIDs, so key order is
// creation order
func (b *Badger) ListComments(_ context.Context, appID string) ([]*types.Comment, error) {
	comments := []*types.Comment{}
	err := b.db.View(func(txn *badger.Txn) error {
		ok, err := exists(txn, prefixApp+appID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return scan(txn, prefixComment+appID+"/", true, func(_ string, val []byte) error {
			var c types.Comment
			if err := sonic.Unmarshal(val, &c); err != nil {
				return err
			}
			comments = append(comments, &c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}
