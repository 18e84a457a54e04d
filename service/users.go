package service

import (
	"context"
	"strings"
	"time"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/etag"
	"github.com/unkn0wn-root/blogcas/keyspace"
	"github.com/unkn0wn-root/blogcas/store"
)

type Users struct{ *core }

type UserInput struct {
	Name  string
	Email string
}

// Create registers a user. A taken email fails with *store.ConstraintError.
func (s *Users) Create(ctx context.Context, in UserInput) (blog.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	var v validator
	checkUser(&v, in.Name, in.Email)
	if err := v.err(); err != nil {
		return blog.User{}, err
	}

	stamp := etag.Advance(time.Time{}, s.clk.Now())
	u := blog.User{Name: strings.TrimSpace(in.Name), Email: in.Email, CreatedAt: stamp, UpdatedAt: stamp}
	if err := s.store.Update(ctx, func(tx store.Tx) error { return tx.PutUser(&u) }); err != nil {
		return blog.User{}, err
	}

	s.invalidate(ctx, keyspace.UserCreated())
	s.metrics.Mutation("user", "create")
	s.log.Info("user_created", blogcas.Fields{"user_id": u.ID})
	return u, nil
}

func (s *Users) Get(ctx context.Context, id int64) (blog.User, error) {
	var u blog.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		if u, err = tx.User(id); err != nil {
			return notFound("user", id, err)
		}
		return nil
	})
	return u, err
}
