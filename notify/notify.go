// Package notify delivers domain events after commit. Delivery is
// fire-and-forget: a failing sink is logged and never rolls a write back.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/async"
)

const (
	PostCreated    = "post.created"
	PostUpdated    = "post.updated"
	PostDeleted    = "post.deleted"
	PostViewed     = "post.viewed"
	CommentCreated = "comment.created"
	CommentUpdated = "comment.updated"
	CommentDeleted = "comment.deleted"
)

// Change is one field's before and after value.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	PostID    int64             `json:"post_id"`
	CommentID int64             `json:"comment_id,omitempty"`
	OwnerID   int64             `json:"owner_id"` // author of the post
	ActorID   int64             `json:"actor_id,omitempty"`
	Title     string            `json:"title,omitempty"`
	Views     int64             `json:"views_count,omitempty"`
	Changes   map[string]Change `json:"changes,omitempty"`
	At        time.Time         `json:"at"`
}

// New stamps an event with a fresh id.
func New(typ string, postID, ownerID, actorID int64, at time.Time) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    typ,
		PostID:  postID,
		OwnerID: ownerID,
		ActorID: actorID,
		At:      at,
	}
}

func (e Event) isComment() bool {
	switch e.Type {
	case CommentCreated, CommentUpdated, CommentDeleted:
		return true
	}
	return false
}

// Channels lists the broadcast channels the event belongs on.
func (e Event) Channels() []string {
	post := "post." + strconv.FormatInt(e.PostID, 10)
	switch {
	case e.isComment():
		return []string{"comments", post}
	case e.Type == PostViewed:
		return []string{post}
	default:
		return []string{"posts", post, "user." + strconv.FormatInt(e.OwnerID, 10)}
	}
}

type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// LogSink writes events to a Logger.
type LogSink struct{ Log blogcas.Logger }

func (s LogSink) Publish(_ context.Context, e Event) error {
	s.Log.Info("event_published", blogcas.Fields{
		"event_id": e.ID,
		"type":     e.Type,
		"post_id":  e.PostID,
		"actor_id": e.ActorID,
		"channels": e.Channels(),
	})
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Async publishes on a bounded worker queue so callers never wait on the
// sink.
type Async struct {
	inner   Sink
	q       *async.Queue
	log     blogcas.Logger
	timeout time.Duration
	onDrop  func()
}

type AsyncOptions struct {
	Workers int
	Queue   int
	// Timeout bounds each delivery; 0 means 5s.
	Timeout time.Duration
	Logger  blogcas.Logger
	// OnDrop is called when the queue is full.
	OnDrop func()
}

func NewAsync(inner Sink, opts AsyncOptions) *Async {
	a := &Async{
		inner:   inner,
		q:       async.New(opts.Workers, opts.Queue),
		log:     opts.Logger,
		timeout: opts.Timeout,
		onDrop:  opts.OnDrop,
	}
	if a.log == nil {
		a.log = blogcas.NopLogger{}
	}
	if a.timeout <= 0 {
		a.timeout = 5 * time.Second
	}
	return a
}

// Publish enqueues e and returns immediately. It never fails; a full queue
// drops the event.
func (a *Async) Publish(_ context.Context, e Event) error {
	ok := a.q.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.inner.Publish(ctx, e); err != nil {
			a.log.Warn("event_publish_failed", blogcas.Fields{"event_id": e.ID, "type": e.Type, "err": err})
		}
	})
	if !ok {
		a.log.Warn("event_dropped", blogcas.Fields{"event_id": e.ID, "type": e.Type})
		if a.onDrop != nil {
			a.onDrop()
		}
	}
	return nil
}

// Close drains queued events.
func (a *Async) Close() { a.q.Close() }
