// Package keyspace names every cached read and lists, per mutation, the
// names that must be invalidated. Nothing else in the module builds cache
// keys by hand.
package keyspace

import (
	"strconv"
	"time"

	"github.com/unkn0wn-root/blogcas"
)

const (
	PostTTL             = 60 * time.Minute
	PostsListTTL        = 30 * time.Minute
	CategoriesTTL       = 240 * time.Minute
	TrendingTTL         = 60 * time.Minute
	CommentsTTL         = 60 * time.Minute
	TopLevelCommentsTTL = 60 * time.Minute
	UserStatsTTL        = 30 * time.Minute
	UserRecentPostsTTL  = 30 * time.Minute
	SystemStatsTTL      = 120 * time.Minute
	WelcomeStatsTTL     = 60 * time.Minute
	WelcomeRecentTTL    = 60 * time.Minute
)

const (
	PostsListScope = "posts:list"
	Categories     = "posts:categories"
	Trending       = "posts:trending"
	SystemStats    = "system:stats"
	WelcomeStats   = "welcome:stats"
	WelcomeRecent  = "welcome:recent-posts"
)

func id(n int64) string { return strconv.FormatInt(n, 10) }

func Post(postID int64) string { return "post:" + id(postID) }

// PostsList keys one filtered listing page. filterHash comes from
// blog.PostFilters.Hash.
func PostsList(filterHash string) blogcas.Key {
	return blogcas.Scoped(PostsListScope, PostsListScope+":"+filterHash)
}

// CommentsScope groups every comment listing of a post.
func CommentsScope(postID int64) string { return "comments:post:" + id(postID) }

func Comments(postID int64, filterHash string) blogcas.Key {
	scope := CommentsScope(postID)
	return blogcas.Scoped(scope, scope+":"+filterHash)
}

func TopLevelComments(postID int64) string { return "comments:toplevel:post:" + id(postID) }

func UserStats(userID int64) string { return "dashboard:stats:user:" + id(userID) }

func UserRecentPosts(userID int64) string { return "dashboard:recent-posts:user:" + id(userID) }
