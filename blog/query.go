package blog

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Both store backends load whole collections and shape them here; the data
// set of a blog is small enough that this beats maintaining secondary
// indexes in two storage engines.

const (
	TrendingWindow    = 7 * 24 * time.Hour
	TrendingLimit     = 10
	UserRecentLimit   = 5
	WelcomeRecentSize = 6
)

// Snapshot is everything the read-side helpers need.
type Snapshot struct {
	Posts    []Post
	Comments []Comment
	Users    []User
}

func (s Snapshot) authors() map[int64]Author {
	m := make(map[int64]Author, len(s.Users))
	for _, u := range s.Users {
		m[u.ID] = Author{ID: u.ID, Name: u.Name}
	}
	return m
}

// CommentCounts counts comments of every status per post.
func CommentCounts(comments []Comment) map[int64]int {
	m := make(map[int64]int)
	for _, c := range comments {
		m[c.PostID]++
	}
	return m
}

func (s Snapshot) summaries(posts []Post) []PostSummary {
	authors := s.authors()
	counts := CommentCounts(s.Comments)
	out := make([]PostSummary, len(posts))
	for i, p := range posts {
		out[i] = PostSummary{Post: p, Author: authors[p.UserID], CommentsCount: counts[p.ID]}
	}
	return out
}

// ListPosts applies f to s.Posts and returns the requested page.
func (s Snapshot) ListPosts(f PostFilters) Page[PostSummary] {
	f = f.Sanitize()
	needle := strings.ToLower(f.Search)

	var matched []Post
	for _, p := range s.Posts {
		if !p.VisibleTo(f.Viewer) {
			continue
		}
		if f.Owner != 0 && p.UserID != f.Owner {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) {
			continue
		}
		matched = append(matched, p)
	}

	rows := s.summaries(matched)
	sortSummaries(rows, f.Sort, f.Direction == "desc")
	return paginate(rows, f.Page, f.PerPage)
}

func sortSummaries(rows []PostSummary, field string, desc bool) {
	slices.SortStableFunc(rows, func(a, b PostSummary) int {
		var c int
		switch field {
		case "title":
			c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case "views_count":
			c = cmp.Compare(a.ViewsCount, b.ViewsCount)
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case "published_at":
			c = comparePtrTime(a.PublishedAt, b.PublishedAt)
		case "user_name":
			c = cmp.Compare(strings.ToLower(a.Author.Name), strings.ToLower(b.Author.Name))
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}

func comparePtrTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func paginate[T any](rows []T, page, perPage int) Page[T] {
	total := len(rows)
	last := (total + perPage - 1) / perPage
	if last == 0 {
		last = 1
	}
	lo := min((page-1)*perPage, total)
	hi := min(lo+perPage, total)
	items := rows[lo:hi]
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: page, PerPage: perPage, LastPage: last}
}

// Categories returns the distinct non-empty categories, sorted.
func (s Snapshot) Categories() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range s.Posts {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	slices.Sort(out)
	return out
}

// Trending ranks published posts created within the window ending at now by
// views, then by comment count.
func (s Snapshot) Trending(now time.Time) []PostSummary {
	since := now.Add(-TrendingWindow)
	var recent []Post
	for _, p := range s.Posts {
		if p.Status == StatusPublished && !p.CreatedAt.Before(since) {
			recent = append(recent, p)
		}
	}
	rows := s.summaries(recent)
	slices.SortStableFunc(rows, func(a, b PostSummary) int {
		if c := cmp.Compare(b.ViewsCount, a.ViewsCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CommentsCount, a.CommentsCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(rows) > TrendingLimit {
		rows = rows[:TrendingLimit]
	}
	return rows
}

// Recent returns the n newest posts accepted by keep.
func (s Snapshot) Recent(n int, keep func(Post) bool) []PostSummary {
	var picked []Post
	for _, p := range s.Posts {
		if keep(p) {
			picked = append(picked, p)
		}
	}
	rows := s.summaries(picked)
	sortSummaries(rows, "created_at", true)
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (s Snapshot) UserStats(userID int64) UserStats {
	var st UserStats
	mine := make(map[int64]struct{})
	for _, p := range s.Posts {
		if p.UserID != userID {
			continue
		}
		mine[p.ID] = struct{}{}
		st.TotalPosts++
		st.TotalViews += p.ViewsCount
		switch p.Status {
		case StatusPublished:
			st.PublishedPosts++
		case StatusDraft:
			st.DraftPosts++
		}
	}
	for _, c := range s.Comments {
		if _, ok := mine[c.PostID]; ok {
			st.TotalComments++
		}
	}
	return st
}

func (s Snapshot) SystemStats(now time.Time) SystemStats {
	st := SystemStats{TotalUsers: len(s.Users), TotalPosts: len(s.Posts)}
	for _, p := range s.Posts {
		st.TotalViews += p.ViewsCount
		if p.Status == StatusPublished {
			st.PublishedPosts++
		}
		if sameMonth(p.CreatedAt, now) {
			st.PostsThisMonth++
		}
	}
	return st
}

func (s Snapshot) WelcomeStats(now time.Time) WelcomeStats {
	sys := s.SystemStats(now)
	return WelcomeStats{
		TotalPosts:     sys.PublishedPosts,
		TotalViews:     sys.TotalViews,
		PostsThisMonth: sys.PostsThisMonth,
	}
}

// Detail builds the post page: approved top-level comments newest first,
// each with its approved replies oldest first.
func (s Snapshot) Detail(p Post) PostDetail {
	authors := s.authors()
	replies := make(map[int64][]Comment)
	var top []Comment
	for _, c := range s.Comments {
		if c.PostID != p.ID || c.Status != CommentApproved {
			continue
		}
		if c.ParentID == 0 {
			top = append(top, c)
		} else {
			replies[c.ParentID] = append(replies[c.ParentID], c)
		}
	}
	slices.SortStableFunc(top, func(a, b Comment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	threads := make([]Thread, len(top))
	for i, c := range top {
		rs := replies[c.ID]
		slices.SortStableFunc(rs, compareCommentsAsc)
		if rs == nil {
			rs = []Comment{}
		}
		threads[i] = Thread{Comment: c, Author: authors[c.UserID], Replies: rs}
	}
	return PostDetail{Post: p, Author: authors[p.UserID], Comments: threads}
}

func compareCommentsAsc(a, b Comment) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// PostComments lists every comment of postID matching f, oldest first.
func (s Snapshot) PostComments(postID int64, f CommentFilters) []Comment {
	f = f.Sanitize()
	out := []Comment{}
	for _, c := range s.Comments {
		if c.PostID != postID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, compareCommentsAsc)
	return out
}

// TopLevel lists the approved comments of postID that are not replies,
// newest first.
func (s Snapshot) TopLevel(postID int64) []Comment {
	out := []Comment{}
	for _, c := range s.Comments {
		if c.PostID == postID && c.ParentID == 0 && c.Status == CommentApproved {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b Comment) int { return -compareCommentsAsc(a, b) })
	return out
}

// Subtree returns rootID and the ids of every reply below it.
func Subtree(comments []Comment, rootID int64) []int64 {
	children := make(map[int64][]int64)
	for _, c := range comments {
		if c.ParentID != 0 {
			children[c.ParentID] = append(children[c.ParentID], c.ID)
		}
	}
	out := []int64{rootID}
	for i := 0; i < len(out); i++ {
		out = append(out, children[out[i]]...)
	}
	return out
}
