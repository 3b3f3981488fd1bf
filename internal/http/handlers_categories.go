package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryJSON(c))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	values, err := DecodeBody(w, r, core.CategorySchema)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	c, err := s.ledger.CreateCategory(r.Context(), values.String("name"))
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toCategoryJSON(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "category")
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	NoContent().Write(w)
}
