package blog

import (
	"strconv"
	"strings"

	"github.com/unkn0wn-root/blogcas/internal/util"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

var postSorts = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"published_at": true,
	"title":        true,
	"views_count":  true,
	"user_name":    true,
}

// PostFilters select and order a listing. Viewer is the acting user; it
// decides which unpublished posts are visible and is part of the cache key.
type PostFilters struct {
	Search    string
	Category  string
	Status    Status
	Sort      string
	Direction string
	Page      int
	PerPage   int
	Viewer    int64
	// Owner restricts the listing to one user's posts when non-zero.
	Owner int64
}

// Sanitize drops values the listing does not understand and fills defaults.
func (f PostFilters) Sanitize() PostFilters {
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	if f.Status != "" && !f.Status.Editable() {
		f.Status = ""
	}
	if !postSorts[f.Sort] {
		f.Sort = "created_at"
	}
	f.Direction = strings.ToLower(f.Direction)
	if f.Direction != "asc" {
		f.Direction = "desc"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage <= 0:
		f.PerPage = DefaultPerPage
	case f.PerPage > MaxPerPage:
		f.PerPage = MaxPerPage
	}
	return f
}

// Hash is stable for equal sanitized filters.
func (f PostFilters) Hash() string {
	f = f.Sanitize()
	return util.HashParams(map[string]string{
		"search":    f.Search,
		"category":  f.Category,
		"status":    string(f.Status),
		"sort":      f.Sort,
		"direction": f.Direction,
		"page":      strconv.Itoa(f.Page),
		"per_page":  strconv.Itoa(f.PerPage),
		"viewer":    strconv.FormatInt(f.Viewer, 10),
		"owner":     strconv.FormatInt(f.Owner, 10),
	})
}

// CommentFilters select comments of one post.
type CommentFilters struct {
	Status CommentStatus
}

func (f CommentFilters) Sanitize() CommentFilters {
	if f.Status != "" && !f.Status.Valid() {
		f.Status = ""
	}
	return f
}

func (f CommentFilters) Hash() string {
	f = f.Sanitize()
	return util.HashParams(map[string]string{"status": string(f.Status)})
}
