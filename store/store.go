// Package store defines the durable, transactional source of truth.
// Cached reads are derived from it; it never reads from the cache.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/blogcas/blog"
)

var ErrNotFound = errors.New("store: not found")

// ConstraintError reports a violated uniqueness rule.
type ConstraintError struct {
	Field string
	Value string
	Err   error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("store: %s %q already taken", e.Field, e.Value)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Store runs transactions. Update transactions on the same entity are
// serialized: a read inside fn observes every previously committed write.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the unit of work. Backends may require every read to happen before
// the first write (Firestore does); callers order their calls that way.
//
// Put* assigns the next id when the entity's ID is zero.
type Tx interface {
	Post(id int64) (blog.Post, error)
	Posts() ([]blog.Post, error)
	PutPost(p *blog.Post) error
	DeletePost(id int64) error

	Comment(id int64) (blog.Comment, error)
	// Comments returns the comments of postID, or all comments when postID is 0.
	Comments(postID int64) ([]blog.Comment, error)
	PutComment(c *blog.Comment) error
	DeleteComment(id int64) error

	User(id int64) (blog.User, error)
	Users() ([]blog.User, error)
	// PutUser fails with *ConstraintError when another user has the same email.
	PutUser(u *blog.User) error
}

// Snapshot loads everything the read-side helpers in package blog need.
func Snapshot(tx Tx) (blog.Snapshot, error) {
	posts, err := tx.Posts()
	if err != nil {
		return blog.Snapshot{}, fmt.Errorf("load posts: %w", err)
	}
	comments, err := tx.Comments(0)
	if err != nil {
		return blog.Snapshot{}, fmt.Errorf("load comments: %w", err)
	}
	users, err := tx.Users()
	if err != nil {
		return blog.Snapshot{}, fmt.Errorf("load users: %w", err)
	}
	return blog.Snapshot{Posts: posts, Comments: comments, Users: users}, nil
}
