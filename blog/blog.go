// Package blog holds the domain types shared by the store, the service and
// the HTTP layer, plus the in-memory query helpers both store backends use.
package blog

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	// set by moderation only
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// Editable reports whether authors may set s directly.
func (s Status) Editable() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type CommentStatus string

const (
	CommentApproved CommentStatus = "approved"
	CommentPending  CommentStatus = "pending"
	CommentRejected CommentStatus = "rejected"
	CommentFlagged  CommentStatus = "flagged"
)

func (s CommentStatus) Valid() bool {
	switch s {
	case CommentApproved, CommentPending, CommentRejected, CommentFlagged:
		return true
	}
	return false
}

// Moderation actions accepted for posts and comments.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionFlag    = "flag"
)

type Post struct {
	ID          int64      `json:"id" firestore:"id"`
	UserID      int64      `json:"user_id" firestore:"user_id"`
	Title       string     `json:"title" firestore:"title"`
	Content     string     `json:"content" firestore:"content"`
	Status      Status     `json:"status" firestore:"status"`
	Category    string     `json:"category,omitempty" firestore:"category"`
	ViewsCount  int64      `json:"views_count" firestore:"views_count"`
	PublishedAt *time.Time `json:"published_at,omitempty" firestore:"published_at"`
	CreatedAt   time.Time  `json:"created_at" firestore:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updated_at"`
}

func (p Post) Identity() int64         { return p.ID }
func (p Post) LastModified() time.Time { return p.UpdatedAt }

// VisibleTo reports whether viewer may read p. Unpublished posts are visible
// to their owner only.
func (p Post) VisibleTo(viewer int64) bool {
	return p.Status == StatusPublished || (viewer != 0 && p.UserID == viewer)
}

type Comment struct {
	ID        int64         `json:"id" firestore:"id"`
	PostID    int64         `json:"post_id" firestore:"post_id"`
	UserID    int64         `json:"user_id" firestore:"user_id"`
	ParentID  int64         `json:"parent_id,omitempty" firestore:"parent_id"`
	Content   string        `json:"content" firestore:"content"`
	Status    CommentStatus `json:"status" firestore:"status"`
	CreatedAt time.Time     `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" firestore:"updated_at"`
}

func (c Comment) Identity() int64         { return c.ID }
func (c Comment) LastModified() time.Time { return c.UpdatedAt }

type User struct {
	ID        int64     `json:"id" firestore:"id"`
	Name      string    `json:"name" firestore:"name"`
	Email     string    `json:"email" firestore:"email"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

func (u User) Identity() int64         { return u.ID }
func (u User) LastModified() time.Time { return u.UpdatedAt }

// Author is the public part of a User.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PostSummary is a listing row.
type PostSummary struct {
	Post
	Author        Author `json:"user"`
	CommentsCount int    `json:"comments_count"`
}

// Thread is an approved top-level comment with its approved replies.
type Thread struct {
	Comment
	Author  Author    `json:"user"`
	Replies []Comment `json:"replies"`
}

// PostDetail is what the post page shows.
type PostDetail struct {
	Post     Post     `json:"post"`
	Author   Author   `json:"user"`
	Comments []Thread `json:"comments"`
}

type Page[T any] struct {
	Items    []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"current_page"`
	PerPage  int `json:"per_page"`
	LastPage int `json:"last_page"`
}

type UserStats struct {
	TotalPosts     int   `json:"total_posts"`
	PublishedPosts int   `json:"published_posts"`
	DraftPosts     int   `json:"draft_posts"`
	TotalViews     int64 `json:"total_views"`
	TotalComments  int   `json:"total_comments"`
}

type SystemStats struct {
	TotalUsers     int   `json:"total_users"`
	TotalPosts     int   `json:"total_posts"`
	PublishedPosts int   `json:"published_posts"`
	TotalViews     int64 `json:"total_views"`
	PostsThisMonth int   `json:"posts_this_month"`
}

type WelcomeStats struct {
	TotalPosts     int   `json:"total_posts"`
	TotalViews     int64 `json:"total_views"`
	PostsThisMonth int   `json:"posts_this_month"`
}
