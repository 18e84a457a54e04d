// Package storetest is a conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/store"
)

var t0 = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Run exercises s. s must start empty.
func Run(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("PostRoundTrip", func(t *testing.T) {
		var p blog.Post
		err := s.Update(ctx, func(tx store.Tx) error {
			p = blog.Post{UserID: 1, Title: "hello", Content: "first post body", Status: blog.StatusDraft, CreatedAt: t0, UpdatedAt: t0}
			return tx.PutPost(&p)
		})
		require.NoError(t, err)
		require.NotZero(t, p.ID)

		var got blog.Post
		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			var err error
			got, err = tx.Post(p.ID)
			return err
		}))
		assert.Equal(t, p.Title, got.Title)
		assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("IDsIncrease", func(t *testing.T) {
		var a, b blog.Post
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			a = blog.Post{UserID: 1, Title: "a", CreatedAt: t0, UpdatedAt: t0}
			b = blog.Post{UserID: 1, Title: "b", CreatedAt: t0, UpdatedAt: t0}
			if err := tx.PutPost(&a); err != nil {
				return err
			}
			return tx.PutPost(&b)
		}))
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		err := s.View(ctx, func(tx store.Tx) error {
			_, err := tx.Post(987654)
			return err
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("FailedUpdateRollsBack", func(t *testing.T) {
		boom := errors.New("boom")
		var id int64
		err := s.Update(ctx, func(tx store.Tx) error {
			p := blog.Post{UserID: 1, Title: "ghost", CreatedAt: t0, UpdatedAt: t0}
			if err := tx.PutPost(&p); err != nil {
				return err
			}
			id = p.ID
			return boom
		})
		require.ErrorIs(t, err, boom)
		err = s.View(ctx, func(tx store.Tx) error {
			_, err := tx.Post(id)
			return err
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CommentsByPost", func(t *testing.T) {
		var c1, c2 blog.Comment
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
			c1 = blog.Comment{PostID: 100, UserID: 1, Content: "one", Status: blog.CommentApproved, CreatedAt: t0, UpdatedAt: t0}
			c2 = blog.Comment{PostID: 200, UserID: 1, Content: "two", Status: blog.CommentApproved, CreatedAt: t0, UpdatedAt: t0}
			if err := tx.PutComment(&c1); err != nil {
				return err
			}
			return tx.PutComment(&c2)
		}))
		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			got, err := tx.Comments(100)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, c1.ID, got[0].ID)

			all, err := tx.Comments(0)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(all), 2)
			return nil
		}))
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.DeleteComment(c1.ID) }))
		err := s.View(ctx, func(tx store.Tx) error {
			_, err := tx.Comment(c1.ID)
			return err
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("UniqueEmail", func(t *testing.T) {
		u := blog.User{Name: "Ann", Email: "ann@example.com", CreatedAt: t0, UpdatedAt: t0}
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutUser(&u) }))

		dup := blog.User{Name: "Other", Email: "ANN@example.com", CreatedAt: t0, UpdatedAt: t0}
		err := s.Update(ctx, func(tx store.Tx) error { return tx.PutUser(&dup) })
		var ce *store.ConstraintError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "email", ce.Field)

		// re-saving the owner is fine
		u.Name = "Ann B"
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutUser(&u) }))
		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			users, err := tx.Users()
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, "Ann B", users[0].Name)
			return nil
		}))
	})

	t.Run("ConcurrentCounterUpdatesSerialize", func(t *testing.T) {
		p := blog.Post{UserID: 1, Title: "counter", CreatedAt: t0, UpdatedAt: t0}
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutPost(&p) }))

		const n = 8
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Update(ctx, func(tx store.Tx) error {
					cur, err := tx.Post(p.ID)
					if err != nil {
						return err
					}
					cur.ViewsCount++
					return tx.PutPost(&cur)
				}))
			}()
		}
		wg.Wait()

		require.NoError(t, s.View(ctx, func(tx store.Tx) error {
			got, err := tx.Post(p.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(n), got.ViewsCount)
			return nil
		}))
	})

	t.Run("DeletePost", func(t *testing.T) {
		p := blog.Post{UserID: 1, Title: "bye", CreatedAt: t0, UpdatedAt: t0}
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutPost(&p) }))
		require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.DeletePost(p.ID) }))
		err := s.View(ctx, func(tx store.Tx) error {
			_, err := tx.Post(p.ID)
			return err
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
