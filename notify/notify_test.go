package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/blogcas"
)

func TestChannels(t *testing.T) {
	at := time.Unix(0, 0)
	assert.Equal(t, []string{"posts", "post.4", "user.9"}, New(PostUpdated, 4, 9, 9, at).Channels())
	assert.Equal(t, []string{"comments", "post.4"}, New(CommentCreated, 4, 9, 2, at).Channels())
	assert.Equal(t, []string{"post.4"}, New(PostViewed, 4, 9, 0, at).Channels())
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New(PostCreated, 1, 1, 1, time.Now())
	b := New(PostCreated, 1, 1, 1, time.Now())
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

type recordingSink struct {
	mu   sync.Mutex
	got  []Event
	err  error
	wait chan struct{}
}

func (r *recordingSink) Publish(_ context.Context, e Event) error {
	if r.wait != nil {
		<-r.wait
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
	return r.err
}

type recLogger struct {
	blogcas.NopLogger
	mu    sync.Mutex
	warns []string
}

func (l *recLogger) Warn(msg string, _ blogcas.Fields) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestAsyncDeliversAndLogsFailures(t *testing.T) {
	inner := &recordingSink{err: errors.New("redis down")}
	log := &recLogger{}
	a := NewAsync(inner, AsyncOptions{Workers: 1, Queue: 4, Logger: log})

	require.NoError(t, a.Publish(context.Background(), New(PostCreated, 1, 1, 1, time.Now())))
	a.Close()

	assert.Len(t, inner.got, 1)
	assert.Equal(t, []string{"event_publish_failed"}, log.warns)
}

func TestAsyncDropsWhenFull(t *testing.T) {
	inner := &recordingSink{wait: make(chan struct{})}
	dropped := 0
	a := NewAsync(inner, AsyncOptions{Workers: 1, Queue: 1, OnDrop: func() { dropped++ }})

	// one in flight (blocked), one queued, the rest dropped
	for i := 0; i < 5; i++ {
		require.NoError(t, a.Publish(context.Background(), New(PostViewed, 1, 1, 0, time.Now())))
		if i == 0 {
			time.Sleep(20 * time.Millisecond)
		}
	}
	close(inner.wait)
	a.Close()

	assert.Equal(t, 3, dropped)
	assert.Len(t, inner.got, 2)
}

func TestLogSink(t *testing.T) {
	assert.NoError(t, LogSink{Log: blogcas.NopLogger{}}.Publish(context.Background(), New(PostDeleted, 1, 1, 1, time.Now())))
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
