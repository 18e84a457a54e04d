package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/async"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/etag"
	"github.com/unkn0wn-root/blogcas/keyspace"
	"github.com/unkn0wn-root/blogcas/notify"
	"github.com/unkn0wn-root/blogcas/store"
)

type PostInput struct {
	Title       string
	Content     string
	Status      blog.Status
	Category    string
	PublishedAt *time.Time
}

// PostPatch changes the non-nil fields. UserID moves the post to another
// user.
type PostPatch struct {
	Title       *string
	Content     *string
	Status      *blog.Status
	Category    *string
	PublishedAt *time.Time
	UserID      *int64
}

type Posts struct {
	*core
	views *async.Queue

	detail     blogcas.Loader[blog.PostDetail]
	pages      blogcas.Loader[blog.Page[blog.PostSummary]]
	categories blogcas.Loader[[]string]
	rows       blogcas.Loader[[]blog.PostSummary]
}

func newPosts(c *core, codecName string, maxDecode int, views *async.Queue) (*Posts, error) {
	p := &Posts{core: c, views: views}
	var err error
	if p.detail, err = loader[blog.PostDetail](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	if p.pages, err = loader[blog.Page[blog.PostSummary]](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	if p.categories, err = loader[[]string](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	if p.rows, err = loader[[]blog.PostSummary](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the post page. Unpublished posts are reported as not found to
// everyone but their owner.
func (s *Posts) Get(ctx context.Context, id, viewer int64) (blog.PostDetail, error) {
	d, err := s.detail.GetOrCompute(ctx, blogcas.K(keyspace.Post(id)), keyspace.PostTTL,
		func(ctx context.Context) (blog.PostDetail, error) {
			var d blog.PostDetail
			err := s.store.View(ctx, func(tx store.Tx) error {
				p, err := tx.Post(id)
				if err != nil {
					return notFound("post", id, err)
				}
				snap, err := store.Snapshot(tx)
				if err != nil {
					return err
				}
				d = snap.Detail(p)
				return nil
			})
			return d, err
		})
	if err != nil {
		return blog.PostDetail{}, err
	}
	if !d.Post.VisibleTo(viewer) {
		return blog.PostDetail{}, fmt.Errorf("post %d: %w", id, store.ErrNotFound)
	}
	return d, nil
}

func (s *Posts) List(ctx context.Context, f blog.PostFilters) (blog.Page[blog.PostSummary], error) {
	f = f.Sanitize()
	return s.pages.GetOrCompute(ctx, keyspace.PostsList(f.Hash()), keyspace.PostsListTTL,
		func(ctx context.Context) (blog.Page[blog.PostSummary], error) {
			snap, err := s.snapshot(ctx)
			if err != nil {
				return blog.Page[blog.PostSummary]{}, err
			}
			return snap.ListPosts(f), nil
		})
}

func (s *Posts) Categories(ctx context.Context) ([]string, error) {
	return s.categories.GetOrCompute(ctx, blogcas.K(keyspace.Categories), keyspace.CategoriesTTL,
		func(ctx context.Context) ([]string, error) {
			snap, err := s.snapshot(ctx)
			if err != nil {
				return nil, err
			}
			return snap.Categories(), nil
		})
}

func (s *Posts) Trending(ctx context.Context) ([]blog.PostSummary, error) {
	return s.rows.GetOrCompute(ctx, blogcas.K(keyspace.Trending), keyspace.TrendingTTL,
		func(ctx context.Context) ([]blog.PostSummary, error) {
			snap, err := s.snapshot(ctx)
			if err != nil {
				return nil, err
			}
			return snap.Trending(s.clk.Now()), nil
		})
}

// applyPublishedAt keeps published_at consistent with the status.
func applyPublishedAt(p *blog.Post, now time.Time) {
	switch {
	case p.Status != blog.StatusPublished:
		p.PublishedAt = nil
	case p.PublishedAt == nil:
		t := now.Truncate(time.Second)
		p.PublishedAt = &t
	}
}

func (s *Posts) Create(ctx context.Context, actor int64, in PostInput) (blog.Post, error) {
	now := s.clk.Now()
	var v validator
	checkTitle(&v, in.Title)
	checkContent(&v, in.Content)
	checkStatus(&v, in.Status)
	checkCategory(&v, in.Category)
	checkPublishedAt(&v, in.PublishedAt, now)
	if err := v.err(); err != nil {
		return blog.Post{}, err
	}

	var p blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := requireUser(tx, actor); err != nil {
			return err
		}
		stamp := etag.Advance(time.Time{}, now)
		p = blog.Post{
			UserID:      actor,
			Title:       in.Title,
			Content:     in.Content,
			Status:      in.Status,
			Category:    in.Category,
			PublishedAt: in.PublishedAt,
			CreatedAt:   stamp,
			UpdatedAt:   stamp,
		}
		applyPublishedAt(&p, now)
		return tx.PutPost(&p)
	})
	if err != nil {
		return blog.Post{}, err
	}

	s.invalidate(ctx, keyspace.PostCreated(p.UserID))
	s.metrics.Mutation("post", "create")
	s.log.Info("post_created", blogcas.Fields{"post_id": p.ID, "user_id": actor, "status": p.Status})

	e := notify.New(notify.PostCreated, p.ID, p.UserID, actor, now)
	e.Title = p.Title
	s.publish(ctx, e)
	return p, nil
}

// guard checks ownership and the submitted token against cur. An empty
// token is accepted only when allowEmpty is set.
func (s *Posts) guard(cur blog.Post, actor int64, token string, allowEmpty bool) error {
	if cur.UserID != actor {
		return ErrForbidden
	}
	if token == "" && allowEmpty {
		return nil
	}
	if !etag.Matches(cur, token) {
		return &ConflictError{Entity: "post", ID: cur.ID, Token: token}
	}
	return nil
}

func (s *Posts) conflict(op string, id, actor int64, err error) {
	if errors.Is(err, ErrConflict) {
		s.metrics.Conflict("post")
		s.log.Warn("post_"+op+"_conflict", blogcas.Fields{"post_id": id, "user_id": actor})
	}
}

// Update applies patch when token matches the post's current version.
func (s *Posts) Update(ctx context.Context, actor, id int64, token string, patch PostPatch) (blog.Post, error) {
	now := s.clk.Now()
	var v validator
	if patch.Title != nil {
		checkTitle(&v, *patch.Title)
	}
	if patch.Content != nil {
		checkContent(&v, *patch.Content)
	}
	if patch.Status != nil {
		checkStatus(&v, *patch.Status)
	}
	if patch.Category != nil {
		checkCategory(&v, *patch.Category)
	}
	checkPublishedAt(&v, patch.PublishedAt, now)
	if err := v.err(); err != nil {
		return blog.Post{}, err
	}

	var before, after blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Post(id)
		if err != nil {
			return notFound("post", id, err)
		}
		if err := s.guard(cur, actor, token, false); err != nil {
			return err
		}
		if patch.UserID != nil && *patch.UserID != cur.UserID {
			if _, err := tx.User(*patch.UserID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return &ValidationError{Fields: map[string][]string{"user_id": {"unknown user"}}}
				}
				return err
			}
		}

		next := cur
		if patch.Title != nil {
			next.Title = *patch.Title
		}
		if patch.Content != nil {
			next.Content = *patch.Content
		}
		if patch.Category != nil {
			next.Category = *patch.Category
		}
		if patch.UserID != nil {
			next.UserID = *patch.UserID
		}
		if patch.PublishedAt != nil {
			next.PublishedAt = patch.PublishedAt
		}
		if patch.Status != nil && *patch.Status != cur.Status {
			next.Status = *patch.Status
			applyPublishedAt(&next, now)
		}
		next.UpdatedAt = etag.Advance(cur.UpdatedAt, now)

		before, after = cur, next
		return tx.PutPost(&next)
	})
	if err != nil {
		s.conflict("update", id, actor, err)
		return blog.Post{}, err
	}

	s.invalidate(ctx, keyspace.PostChanged(id, before.UserID, after.UserID))
	s.metrics.Mutation("post", "update")
	s.log.Info("post_updated", blogcas.Fields{"post_id": id, "user_id": actor})

	e := notify.New(notify.PostUpdated, id, after.UserID, actor, now)
	e.Title = after.Title
	if before.Status != after.Status {
		e.Changes = map[string]notify.Change{"status": {Old: before.Status, New: after.Status}}
	}
	s.publish(ctx, e)
	return after, nil
}

// Delete removes the post and its comments. An empty token deletes
// unconditionally; any other token must match.
func (s *Posts) Delete(ctx context.Context, actor, id int64, token string) error {
	var gone blog.Post
	var removed int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Post(id)
		if err != nil {
			return notFound("post", id, err)
		}
		if err := s.guard(cur, actor, token, true); err != nil {
			return err
		}
		comments, err := tx.Comments(id)
		if err != nil {
			return fmt.Errorf("load comments of post %d: %w", id, err)
		}
		for _, c := range comments {
			if err := tx.DeleteComment(c.ID); err != nil {
				return err
			}
		}
		gone, removed = cur, len(comments)
		return tx.DeletePost(id)
	})
	if err != nil {
		s.conflict("delete", id, actor, err)
		return err
	}

	s.invalidate(ctx, keyspace.PostDeleted(id, gone.UserID))
	s.metrics.Mutation("post", "delete")
	s.log.Info("post_deleted", blogcas.Fields{"post_id": id, "user_id": actor, "comments": removed})

	e := notify.New(notify.PostDeleted, id, gone.UserID, actor, s.clk.Now())
	e.Title = gone.Title
	s.publish(ctx, e)
	return nil
}

// Moderate approves, rejects or flags a post. The token is checked only
// when given.
func (s *Posts) Moderate(ctx context.Context, actor, id int64, action, token, reason string) (blog.Post, error) {
	var status blog.Status
	switch action {
	case blog.ActionApprove:
		status = blog.StatusPublished
	case blog.ActionReject:
		status = blog.StatusRejected
	case blog.ActionFlag:
		status = blog.StatusFlagged
	default:
		return blog.Post{}, &ValidationError{Fields: map[string][]string{"action": {"must be one of approve, reject, flag"}}}
	}

	now := s.clk.Now()
	var before, after blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := requireUser(tx, actor); err != nil {
			return err
		}
		cur, err := tx.Post(id)
		if err != nil {
			return notFound("post", id, err)
		}
		if token != "" && !etag.Matches(cur, token) {
			return &ConflictError{Entity: "post", ID: id, Token: token}
		}
		next := cur
		next.Status = status
		if status == blog.StatusPublished {
			t := now.Truncate(time.Second)
			next.PublishedAt = &t
		}
		next.UpdatedAt = etag.Advance(cur.UpdatedAt, now)
		before, after = cur, next
		return tx.PutPost(&next)
	})
	if err != nil {
		s.conflict("moderate", id, actor, err)
		return blog.Post{}, err
	}

	s.invalidate(ctx, keyspace.PostChanged(id, after.UserID))
	s.metrics.Mutation("post", "moderate")
	s.log.Info("post_moderated", blogcas.Fields{"post_id": id, "action": action, "reason": reason, "moderator_id": actor})

	e := notify.New(notify.PostUpdated, id, after.UserID, actor, now)
	e.Title = after.Title
	e.Changes = map[string]notify.Change{"status": {Old: before.Status, New: after.Status}}
	s.publish(ctx, e)
	return after, nil
}

// RecordView schedules a view-count increment and reports whether it was
// accepted. The increment leaves UpdatedAt, and so the post's token, alone.
func (s *Posts) RecordView(id, viewer int64) bool {
	ok := s.views.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.recordView(ctx, id, viewer)
	})
	if !ok {
		s.metrics.Dropped("views")
		s.log.Warn("post_view_dropped", blogcas.Fields{"post_id": id})
	}
	return ok
}

func (s *Posts) recordView(ctx context.Context, id, viewer int64) {
	var p blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Post(id)
		if err != nil {
			return err
		}
		cur.ViewsCount++
		p = cur
		return tx.PutPost(&cur)
	})
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("post_view_missing", blogcas.Fields{"post_id": id})
		return
	}
	if err != nil {
		s.log.Error("post_view_failed", blogcas.Fields{"post_id": id, "err": err})
		return
	}

	s.invalidate(ctx, keyspace.PostViewed(p.UserID))
	s.log.Debug("post_viewed", blogcas.Fields{"post_id": id, "user_id": viewer, "views": p.ViewsCount})

	e := notify.New(notify.PostViewed, id, p.UserID, viewer, s.clk.Now())
	e.Views = p.ViewsCount
	s.publish(ctx, e)
}
