// Package service implements the blog's write protocol and cached reads.
//
// Every token-guarded write loads the entity inside a store transaction,
// compares the submitted token with the token of the loaded state, applies
// the change with a strictly newer UpdatedAt and commits. Only then, and
// before returning, the keyspace names affected by the change are
// invalidated. Events go out last and never fail the call.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/async"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/codec"
	"github.com/unkn0wn-root/blogcas/notify"
	"github.com/unkn0wn-root/blogcas/store"
)

// Recorder counts write-path outcomes. *metrics.Metrics implements it.
type Recorder interface {
	Conflict(entity string)
	Mutation(entity, op string)
	Dropped(queue string)
}

type nopRecorder struct{}

func (nopRecorder) Conflict(string)         {}
func (nopRecorder) Mutation(string, string) {}
func (nopRecorder) Dropped(string)          {}

type Deps struct {
	Store store.Store
	Cache blogcas.Cache
	Sink  notify.Sink // nil => notify.Nop

	// Codec encodes cached values; see codec.ByName. MaxDecode rejects
	// larger cached payloads when > 0.
	Codec     string
	MaxDecode int

	Clock   clock.Clock    // nil => wall clock
	Logger  blogcas.Logger // nil => NopLogger
	Metrics Recorder       // nil => no-op

	// Views runs view-count increments. nil => a private queue with
	// ViewWorkers workers and ViewQueue slots.
	Views       *async.Queue
	ViewWorkers int
	ViewQueue   int
}

type Service struct {
	Posts     *Posts
	Comments  *Comments
	Dashboard *Dashboard
	Users     *Users

	ownViews *async.Queue
}

// core is shared by the per-entity services.
type core struct {
	store   store.Store
	cache   blogcas.Cache
	sink    notify.Sink
	clk     clock.Clock
	log     blogcas.Logger
	metrics Recorder
}

func New(d Deps) (*Service, error) {
	if d.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if d.Cache == nil {
		return nil, errors.New("service: cache is required")
	}
	c := &core{store: d.Store, cache: d.Cache, sink: d.Sink, clk: d.Clock, log: d.Logger, metrics: d.Metrics}
	if c.sink == nil {
		c.sink = notify.Nop{}
	}
	if c.clk == nil {
		c.clk = clock.New()
	}
	if c.log == nil {
		c.log = blogcas.NopLogger{}
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}

	s := &Service{}
	views := d.Views
	if views == nil {
		views = async.New(d.ViewWorkers, d.ViewQueue)
		s.ownViews = views
	}

	var err error
	if s.Posts, err = newPosts(c, d.Codec, d.MaxDecode, views); err != nil {
		return nil, err
	}
	if s.Comments, err = newComments(c, d.Codec, d.MaxDecode); err != nil {
		return nil, err
	}
	if s.Dashboard, err = newDashboard(c, d.Codec, d.MaxDecode); err != nil {
		return nil, err
	}
	s.Users = &Users{core: c}
	return s, nil
}

// Close waits for queued view increments when the queue is owned by s.
func (s *Service) Close() {
	if s.ownViews != nil {
		s.ownViews.Close()
	}
}

func loader[V any](c *core, name string, maxDecode int) (blogcas.Loader[V], error) {
	cd, err := codec.ByName[V](name)
	if err != nil {
		return blogcas.Loader[V]{}, err
	}
	return blogcas.NewLoader(c.cache, codec.Limit(cd, maxDecode)), nil
}

// invalidate runs after commit. The write already happened, so a failure
// here is logged and the call still succeeds. The request context may be
// gone by now; the invalidation must run anyway.
func (c *core) invalidate(ctx context.Context, names []string) {
	ctx = context.WithoutCancel(ctx)
	if err := c.cache.InvalidateSet(ctx, names); err != nil {
		c.log.Error("cache_invalidate_failed", blogcas.Fields{"names": names, "err": err})
	}
}

func (c *core) publish(ctx context.Context, e notify.Event) {
	if err := c.sink.Publish(ctx, e); err != nil {
		c.log.Warn("event_publish_failed", blogcas.Fields{"type": e.Type, "post_id": e.PostID, "err": err})
	}
}

func (c *core) snapshot(ctx context.Context) (blog.Snapshot, error) {
	var snap blog.Snapshot
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		snap, err = store.Snapshot(tx)
		return err
	})
	return snap, err
}

// requireUser fails with ErrForbidden unless actor names an existing user.
func requireUser(tx store.Tx, actor int64) (blog.User, error) {
	if actor == 0 {
		return blog.User{}, ErrForbidden
	}
	u, err := tx.User(actor)
	if errors.Is(err, store.ErrNotFound) {
		return blog.User{}, ErrForbidden
	}
	if err != nil {
		return blog.User{}, fmt.Errorf("load user %d: %w", actor, err)
	}
	return u, nil
}

func notFound(entity string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, store.ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", entity, id, err)
}
