package httpapi

import (
	"net/http"
	"time"

	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/service"
)

type postBody struct {
	Title       *string      `json:"title"`
	Content     *string      `json:"content"`
	Status      *blog.Status `json:"status"`
	Category    *string      `json:"category"`
	PublishedAt *time.Time   `json:"published_at"`
	UserID      *int64       `json:"user_id"`
	ETag        string       `json:"etag"`
}

type moderateBody struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	ETag   string `json:"etag"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	viewer, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := s.svc.Posts.List(r.Context(), blog.PostFilters{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		Status:    blog.Status(q.Get("status")),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
		Page:      queryInt(r, "page"),
		PerPage:   queryInt(r, "per_page"),
		Viewer:    viewer,
		Owner:     int64(queryInt(r, "user_id")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPage(page))
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Posts.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: cats})
}

func (s *Server) trending(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Posts.Trending(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: viewSummaries(rows)})
}

// getPost serves the post with its threads and counts the view. The view is
// recorded after the response body is built so the token served is the
// post's current one; views never change it.
func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	viewer, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := pathID(r)
	d, err := s.svc.Posts.Get(r.Context(), id, viewer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewDetail(d)
	s.svc.Posts.RecordView(id, viewer)
	w.Header().Set("ETag", v.Post.ETag.Quoted())
	writeJSON(w, http.StatusOK, envelope{Data: v})
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b postBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Posts.Create(r.Context(), uid, service.PostInput{
		Title:       deref(b.Title),
		Content:     deref(b.Content),
		Status:      deref(b.Status),
		Category:    deref(b.Category),
		PublishedAt: b.PublishedAt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewPost(p)
	w.Header().Set("ETag", v.ETag.Quoted())
	writeJSON(w, http.StatusCreated, envelope{Data: v})
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b postBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Posts.Update(r.Context(), uid, pathID(r), token(r, b.ETag), service.PostPatch{
		Title:       b.Title,
		Content:     b.Content,
		Status:      b.Status,
		Category:    b.Category,
		PublishedAt: b.PublishedAt,
		UserID:      b.UserID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewPost(p)
	w.Header().Set("ETag", v.ETag.Quoted())
	writeJSON(w, http.StatusOK, envelope{Data: v})
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b struct {
		ETag string `json:"etag"`
	}
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Posts.Delete(r.Context(), uid, pathID(r), token(r, b.ETag)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moderatePost(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b moderateBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Posts.Moderate(r.Context(), uid, pathID(r), b.Action, token(r, b.ETag), b.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewPost(p)
	w.Header().Set("ETag", v.ETag.Quoted())
	writeJSON(w, http.StatusOK, envelope{Data: v})
}
