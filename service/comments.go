package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/etag"
	"github.com/unkn0wn-root/blogcas/keyspace"
	"github.com/unkn0wn-root/blogcas/notify"
	"github.com/unkn0wn-root/blogcas/store"
)

type CommentInput struct {
	Content  string
	ParentID int64
}

// CommentPatch is what a comment's author may change. Status changes go
// through Moderate.
type CommentPatch struct {
	Content *string
}

// EditWindow is how long after creation an author may edit a comment.
const EditWindow = 15 * time.Minute

type Comments struct {
	*core
	lists blogcas.Loader[[]blog.Comment]
}

func newComments(c *core, codecName string, maxDecode int) (*Comments, error) {
	l, err := loader[[]blog.Comment](c, codecName, maxDecode)
	if err != nil {
		return nil, err
	}
	return &Comments{core: c, lists: l}, nil
}

func (s *Comments) loadPost(tx store.Tx, postID int64) (blog.Post, error) {
	p, err := tx.Post(postID)
	if err != nil {
		return blog.Post{}, notFound("post", postID, err)
	}
	return p, nil
}

// List returns every comment of the post matching f, oldest first.
func (s *Comments) List(ctx context.Context, postID int64, f blog.CommentFilters) ([]blog.Comment, error) {
	f = f.Sanitize()
	return s.lists.GetOrCompute(ctx, keyspace.Comments(postID, f.Hash()), keyspace.CommentsTTL,
		func(ctx context.Context) ([]blog.Comment, error) {
			var out []blog.Comment
			err := s.store.View(ctx, func(tx store.Tx) error {
				if _, err := s.loadPost(tx, postID); err != nil {
					return err
				}
				cs, err := tx.Comments(postID)
				if err != nil {
					return err
				}
				out = blog.Snapshot{Comments: cs}.PostComments(postID, f)
				return nil
			})
			return out, err
		})
}

// TopLevel returns approved comments that are not replies, newest first.
func (s *Comments) TopLevel(ctx context.Context, postID int64) ([]blog.Comment, error) {
	return s.lists.GetOrCompute(ctx, blogcas.K(keyspace.TopLevelComments(postID)), keyspace.TopLevelCommentsTTL,
		func(ctx context.Context) ([]blog.Comment, error) {
			var out []blog.Comment
			err := s.store.View(ctx, func(tx store.Tx) error {
				if _, err := s.loadPost(tx, postID); err != nil {
					return err
				}
				cs, err := tx.Comments(postID)
				if err != nil {
					return err
				}
				out = blog.Snapshot{Comments: cs}.TopLevel(postID)
				return nil
			})
			return out, err
		})
}

func (s *Comments) Create(ctx context.Context, actor, postID int64, in CommentInput) (blog.Comment, error) {
	content := strings.TrimSpace(in.Content)
	var v validator
	checkComment(&v, content)
	if err := v.err(); err != nil {
		return blog.Comment{}, err
	}

	now := s.clk.Now()
	var c blog.Comment
	var post blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := requireUser(tx, actor); err != nil {
			return err
		}
		p, err := s.loadPost(tx, postID)
		if err != nil {
			return err
		}
		if !p.VisibleTo(actor) {
			return fmt.Errorf("post %d: %w", postID, store.ErrNotFound)
		}
		if in.ParentID != 0 {
			parent, err := tx.Comment(in.ParentID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err != nil || parent.PostID != postID {
				return &ValidationError{Fields: map[string][]string{"parent_id": {"must be a comment on the same post"}}}
			}
		}
		stamp := etag.Advance(time.Time{}, now)
		c = blog.Comment{
			PostID:    postID,
			UserID:    actor,
			ParentID:  in.ParentID,
			Content:   content,
			Status:    blog.CommentApproved,
			CreatedAt: stamp,
			UpdatedAt: stamp,
		}
		post = p
		return tx.PutComment(&c)
	})
	if err != nil {
		return blog.Comment{}, err
	}

	s.invalidate(ctx, keyspace.CommentChanged(postID, post.UserID))
	s.metrics.Mutation("comment", "create")
	s.log.Info("comment_created", blogcas.Fields{"comment_id": c.ID, "post_id": postID, "user_id": actor})

	e := notify.New(notify.CommentCreated, postID, post.UserID, actor, now)
	e.CommentID = c.ID
	e.Title = post.Title
	s.publish(ctx, e)
	return c, nil
}

func (s *Comments) conflict(op string, id, actor int64, err error) {
	if errors.Is(err, ErrConflict) {
		s.metrics.Conflict("comment")
		s.log.Warn("comment_"+op+"_conflict", blogcas.Fields{"comment_id": id, "user_id": actor})
	}
}

// Update edits the actor's own comment when token matches its current
// version and the comment is at most EditWindow old.
func (s *Comments) Update(ctx context.Context, actor, id int64, token string, patch CommentPatch) (blog.Comment, error) {
	var v validator
	if patch.Content != nil {
		trimmed := strings.TrimSpace(*patch.Content)
		patch.Content = &trimmed
		checkComment(&v, trimmed)
	}
	if err := v.err(); err != nil {
		return blog.Comment{}, err
	}

	now := s.clk.Now()
	var after blog.Comment
	var post blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Comment(id)
		if err != nil {
			return notFound("comment", id, err)
		}
		if cur.UserID != actor {
			return ErrForbidden
		}
		if now.Sub(cur.CreatedAt) > EditWindow {
			return fmt.Errorf("comment %d: edit window closed: %w", id, ErrForbidden)
		}
		if !etag.Matches(cur, token) {
			return &ConflictError{Entity: "comment", ID: id, Token: token}
		}
		if post, err = s.loadPost(tx, cur.PostID); err != nil {
			return err
		}
		next := cur
		if patch.Content != nil {
			next.Content = *patch.Content
		}
		next.UpdatedAt = etag.Advance(cur.UpdatedAt, now)
		after = next
		return tx.PutComment(&next)
	})
	if err != nil {
		s.conflict("update", id, actor, err)
		return blog.Comment{}, err
	}

	s.invalidate(ctx, keyspace.CommentChanged(after.PostID, post.UserID))
	s.metrics.Mutation("comment", "update")
	s.log.Info("comment_updated", blogcas.Fields{"comment_id": id, "post_id": after.PostID})

	e := notify.New(notify.CommentUpdated, after.PostID, post.UserID, actor, now)
	e.CommentID = id
	s.publish(ctx, e)
	return after, nil
}

// Delete removes the comment and every reply below it. The comment's author
// and the post's owner may delete. An empty token deletes unconditionally.
func (s *Comments) Delete(ctx context.Context, actor, id int64, token string) error {
	var cur blog.Comment
	var post blog.Post
	var removed int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if cur, err = tx.Comment(id); err != nil {
			return notFound("comment", id, err)
		}
		if post, err = s.loadPost(tx, cur.PostID); err != nil {
			return err
		}
		if actor == 0 || (cur.UserID != actor && post.UserID != actor) {
			return ErrForbidden
		}
		if token != "" && !etag.Matches(cur, token) {
			return &ConflictError{Entity: "comment", ID: id, Token: token}
		}
		siblings, err := tx.Comments(cur.PostID)
		if err != nil {
			return err
		}
		ids := blog.Subtree(siblings, id)
		for _, cid := range ids {
			if err := tx.DeleteComment(cid); err != nil {
				return err
			}
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		s.conflict("delete", id, actor, err)
		return err
	}

	s.invalidate(ctx, keyspace.CommentChanged(cur.PostID, post.UserID))
	s.metrics.Mutation("comment", "delete")
	s.log.Info("comment_deleted", blogcas.Fields{"comment_id": id, "post_id": cur.PostID, "removed": removed})

	e := notify.New(notify.CommentDeleted, cur.PostID, post.UserID, actor, s.clk.Now())
	e.CommentID = id
	s.publish(ctx, e)
	return nil
}

// Moderate approves, rejects or flags a comment. Only the post's owner may
// moderate. The token is checked only when given.
func (s *Comments) Moderate(ctx context.Context, actor, id int64, action, token, reason string) (blog.Comment, error) {
	var status blog.CommentStatus
	switch action {
	case blog.ActionApprove:
		status = blog.CommentApproved
	case blog.ActionReject:
		status = blog.CommentRejected
	case blog.ActionFlag:
		status = blog.CommentFlagged
	default:
		return blog.Comment{}, &ValidationError{Fields: map[string][]string{"action": {"must be one of approve, reject, flag"}}}
	}

	now := s.clk.Now()
	var before, after blog.Comment
	var post blog.Post
	err := s.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.Comment(id)
		if err != nil {
			return notFound("comment", id, err)
		}
		if post, err = s.loadPost(tx, cur.PostID); err != nil {
			return err
		}
		if actor == 0 || post.UserID != actor {
			return ErrForbidden
		}
		if token != "" && !etag.Matches(cur, token) {
			return &ConflictError{Entity: "comment", ID: id, Token: token}
		}
		next := cur
		next.Status = status
		next.UpdatedAt = etag.Advance(cur.UpdatedAt, now)
		before, after = cur, next
		return tx.PutComment(&next)
	})
	if err != nil {
		s.conflict("moderate", id, actor, err)
		return blog.Comment{}, err
	}

	s.invalidate(ctx, keyspace.CommentChanged(after.PostID, post.UserID))
	s.metrics.Mutation("comment", "moderate")
	s.log.Info("comment_moderated", blogcas.Fields{"comment_id": id, "action": action, "reason": reason, "moderator_id": actor})

	e := notify.New(notify.CommentUpdated, after.PostID, post.UserID, actor, now)
	e.CommentID = id
	e.Changes = map[string]notify.Change{"status": {Old: before.Status, New: after.Status}}
	s.publish(ctx, e)
	return after, nil
}
