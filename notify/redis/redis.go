// Package redis broadcasts events with PUBLISH, one message per channel.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/blogcas/codec"
	"github.com/unkn0wn-root/blogcas/notify"
)

// NameProtobuf selects a google.protobuf.Struct payload.
const NameProtobuf = "protobuf"

type Sink struct {
	client redis.UniversalClient
	prefix string
	encode func(notify.Event) ([]byte, error)
}

var _ notify.Sink = (*Sink)(nil)

// New returns a sink publishing on prefix+channel. codecName is one of
// json, msgpack, cbor or protobuf.
func New(client redis.UniversalClient, prefix, codecName string) (*Sink, error) {
	s := &Sink{client: client, prefix: prefix}
	if codecName == NameProtobuf {
		pb := codec.NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
		s.encode = func(e notify.Event) ([]byte, error) {
			st, err := toStruct(e)
			if err != nil {
				return nil, err
			}
			return pb.Encode(st)
		}
		return s, nil
	}
	c, err := codec.ByName[notify.Event](codecName)
	if err != nil {
		return nil, err
	}
	s.encode = c.Encode
	return s, nil
}

func (s *Sink) Publish(ctx context.Context, e notify.Event) error {
	payload, err := s.encode(e)
	if err != nil {
		return fmt.Errorf("notify/redis: encode %s: %w", e.Type, err)
	}
	pipe := s.client.Pipeline()
	for _, ch := range e.Channels() {
		pipe.Publish(ctx, s.prefix+ch, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify/redis: publish %s: %w", e.Type, err)
	}
	return nil
}

func toStruct(e notify.Event) (*structpb.Struct, error) {
	m := map[string]any{
		"id":       e.ID,
		"type":     e.Type,
		"post_id":  e.PostID,
		"owner_id": e.OwnerID,
		"at":       e.At.UTC().Format(time.RFC3339Nano),
	}
	if e.CommentID != 0 {
		m["comment_id"] = e.CommentID
	}
	if e.ActorID != 0 {
		m["actor_id"] = e.ActorID
	}
	if e.Title != "" {
		m["title"] = e.Title
	}
	if e.Views != 0 {
		m["views_count"] = e.Views
	}
	if len(e.Changes) > 0 {
		ch := make(map[string]any, len(e.Changes))
		for k, c := range e.Changes {
			ch[k] = map[string]any{"old": fmt.Sprint(c.Old), "new": fmt.Sprint(c.New)}
		}
		m["changes"] = ch
	}
	return structpb.NewStruct(m)
}
