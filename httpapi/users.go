package httpapi

import (
	"net/http"

	"github.com/unkn0wn-root/blogcas/service"
)

type userBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var b userBody
	if err := decode(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.svc.Users.Create(r.Context(), service.UserInput{Name: b.Name, Email: b.Email})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: u})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Users.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: u})
}
