package service

import (
	"context"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/keyspace"
)

type Dashboard struct {
	*core
	userStats blogcas.Loader[blog.UserStats]
	sysStats  blogcas.Loader[blog.SystemStats]
	welcome   blogcas.Loader[blog.WelcomeStats]
	rows      blogcas.Loader[[]blog.PostSummary]
}

func newDashboard(c *core, codecName string, maxDecode int) (*Dashboard, error) {
	d := &Dashboard{core: c}
	var err error
	if d.userStats, err = loader[blog.UserStats](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	if d.sysStats, err = loader[blog.SystemStats](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	if d.welcome, err = loader[blog.WelcomeStats](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	if d.rows, err = loader[[]blog.PostSummary](c, codecName, maxDecode); err != nil {
		return nil, err
	}
	return d, nil
}

// fromSnapshot computes a value from a fresh store snapshot.
func fromSnapshot[V any](c *core, f func(blog.Snapshot) V) func(context.Context) (V, error) {
	return func(ctx context.Context) (V, error) {
		snap, err := c.snapshot(ctx)
		if err != nil {
			var zero V
			return zero, err
		}
		return f(snap), nil
	}
}

func (d *Dashboard) UserStats(ctx context.Context, userID int64) (blog.UserStats, error) {
	return d.userStats.GetOrCompute(ctx, blogcas.K(keyspace.UserStats(userID)), keyspace.UserStatsTTL,
		fromSnapshot(d.core, func(s blog.Snapshot) blog.UserStats { return s.UserStats(userID) }))
}

func (d *Dashboard) UserRecentPosts(ctx context.Context, userID int64) ([]blog.PostSummary, error) {
	return d.rows.GetOrCompute(ctx, blogcas.K(keyspace.UserRecentPosts(userID)), keyspace.UserRecentPostsTTL,
		fromSnapshot(d.core, func(s blog.Snapshot) []blog.PostSummary {
			return s.Recent(blog.UserRecentLimit, func(p blog.Post) bool { return p.UserID == userID })
		}))
}

func (d *Dashboard) SystemStats(ctx context.Context) (blog.SystemStats, error) {
	return d.sysStats.GetOrCompute(ctx, blogcas.K(keyspace.SystemStats), keyspace.SystemStatsTTL,
		fromSnapshot(d.core, func(s blog.Snapshot) blog.SystemStats { return s.SystemStats(d.clk.Now()) }))
}

func (d *Dashboard) WelcomeStats(ctx context.Context) (blog.WelcomeStats, error) {
	return d.welcome.GetOrCompute(ctx, blogcas.K(keyspace.WelcomeStats), keyspace.WelcomeStatsTTL,
		fromSnapshot(d.core, func(s blog.Snapshot) blog.WelcomeStats { return s.WelcomeStats(d.clk.Now()) }))
}

func (d *Dashboard) WelcomeRecentPosts(ctx context.Context) ([]blog.PostSummary, error) {
	return d.rows.GetOrCompute(ctx, blogcas.K(keyspace.WelcomeRecent), keyspace.WelcomeRecentTTL,
		fromSnapshot(d.core, func(s blog.Snapshot) []blog.PostSummary {
			return s.Recent(blog.WelcomeRecentSize, func(p blog.Post) bool { return p.Status == blog.StatusPublished })
		}))
}
