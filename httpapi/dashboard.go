package httpapi

import (
	"net/http"

	"github.com/unkn0wn-root/blogcas/blog"
	"github.com/unkn0wn-root/blogcas/service"
)

type dashboardView struct {
	Stats  blog.UserStats `json:"stats"`
	Recent []summaryView  `json:"recent_posts"`
}

type welcomeView struct {
	Stats  blog.WelcomeStats `json:"stats"`
	Recent []summaryView     `json:"recent_posts"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	uid, err := actor(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if uid == 0 {
		s.writeError(w, r, service.ErrForbidden)
		return
	}
	stats, err := s.svc.Dashboard.UserStats(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recent, err := s.svc.Dashboard.UserRecentPosts(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: dashboardView{Stats: stats, Recent: viewSummaries(recent)}})
}

func (s *Server) systemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.SystemStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: stats})
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.WelcomeStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recent, err := s.svc.Dashboard.WelcomeRecentPosts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: welcomeView{Stats: stats, Recent: viewSummaries(recent)}})
}
