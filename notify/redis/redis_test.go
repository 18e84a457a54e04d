package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/blogcas/notify"
)

func TestUnknownCodec(t *testing.T) {
	_, err := New(nil, "", "xml")
	assert.Error(t, err)
}

func TestProtobufPayload(t *testing.T) {
	s, err := New(nil, "", NameProtobuf)
	require.NoError(t, err)

	e := notify.New(notify.PostUpdated, 4, 9, 9, time.Unix(10, 0))
	e.Changes = map[string]notify.Change{"status": {Old: "draft", New: "published"}}
	b, err := s.encode(e)
	require.NoError(t, err)

	var st structpb.Struct
	require.NoError(t, proto.Unmarshal(b, &st))
	m := st.AsMap()
	assert.Equal(t, "post.updated", m["type"])
	assert.Equal(t, float64(4), m["post_id"])
	assert.Equal(t, "published", m["changes"].(map[string]any)["status"].(map[string]any)["new"])
}

func TestPublishLive(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	sub := client.Subscribe(ctx, "test:posts", "test:user.9")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	s, err := New(client, "test:", "json")
	require.NoError(t, err)
	e := notify.New(notify.PostCreated, 4, 9, 9, time.Now())
	require.NoError(t, s.Publish(ctx, e))

	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var got notify.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, e.ID, got.ID)
	}
}
