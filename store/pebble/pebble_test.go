package pebble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/codec"
	"github.com/unkn0wn-root/blogcas/store"
	"github.com/unkn0wn-root/blogcas/store/storetest"
)

func TestConformanceMemory(t *testing.T) {
	for _, name := range []string{codec.NameJSON, codec.NameMsgpack, codec.NameCBOR} {
		t.Run(name, func(t *testing.T) {
			s, err := Open(Options{Codec: name})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			storetest.Run(t, s)
		})
	}
}

func TestReopenOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{Path: dir})
	require.NoError(t, err)
	p := blog.Post{UserID: 3, Title: "persisted"}
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutPost(&p) }))
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		got, err := tx.Post(p.ID)
		require.NoError(t, err)
		assert.Equal(t, "persisted", got.Title)
		return nil
	}))
	next := blog.Post{UserID: 3, Title: "second"}
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutPost(&next) }))
	assert.Greater(t, next.ID, p.ID)
}

func TestViewIsReadOnly(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	err = s.View(context.Background(), func(tx store.Tx) error {
		return tx.PutPost(&blog.Post{Title: "nope"})
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestUnknownCodec(t *testing.T) {
	_, err := Open(Options{Codec: "yaml"})
	assert.Error(t, err)
}

func TestCanceledContext(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = s.Update(ctx, func(store.Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
