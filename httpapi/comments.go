package httpapi

import (
	"net/http"

	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/service"
)

type commentBody struct {
	Content  *string `json:"content"`
	ParentID *int64  `json:"parent_id"`
	ETag     string  `json:"etag"`
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.Comments.List(r.Context(), pathID(r), blog.CommentFilters{
		Status: blog.CommentStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: viewComments(cs)})
}

func (s *Server) topLevelComments(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.Comments.TopLevel(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: viewComments(cs)})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b commentBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.svc.Comments.Create(r.Context(), uid, pathID(r), service.CommentInput{
		Content:  deref(b.Content),
		ParentID: deref(b.ParentID),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewComment(c)
	w.Header().Set("ETag", v.ETag.Quoted())
	writeJSON(w, http.StatusCreated, envelope{Data: v})
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b commentBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.svc.Comments.Update(r.Context(), uid, pathID(r), token(r, b.ETag), service.CommentPatch{
		Content: b.Content,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewComment(c)
	w.Header().Set("ETag", v.ETag.Quoted())
	writeJSON(w, http.StatusOK, envelope{Data: v})
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var b commentBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Comments.Delete(r.Context(), uid, pathID(r), token(r, b.ETag)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moderateComment(w http.ResponseWriter, r *http.Request) {
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
	c, err := s.svc.Comments.Moderate(r.Context(), uid, pathID(r), b.Action, token(r, b.ETag), b.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v := viewComment(c)
	w.Header().Set("ETag", v.ETag.Quoted())
	writeJSON(w, http.StatusOK, envelope{Data: v})
}
