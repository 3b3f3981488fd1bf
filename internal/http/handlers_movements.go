package http

import (
	"errors"
	"net/http"
	"strconv"

	"ledger/internal/core"
	"ledger/internal/log"
)

// handleCreateMovement admits a movement. Outflows larger than the account
// balance are rejected with 400 on the amount field.
func (s *Server) handleCreateMovement(w http.ResponseWriter, r *http.Request) {
	values, err := DecodeBody(w, r, core.MovementSchema)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	m, err := s.ledger.CreateMovement(r.Context(),
		values.Int64("account"),
		core.MovementType(values.String("movement_type")),
		values.Decimal("amount"))
	if err != nil {
		var fundsErr *core.InsufficientFundsError
		if errors.As(err, &fundsErr) {
			s.appMetrics.movementsRejected.Add(1)
		}
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	s.appMetrics.movementsAdmitted.Add(1)
	s.structured.LogMovementAdmitted(r.Context(), m.ID, m.AccountID, m.Type.String(), core.FormatAmount(m.Amount))

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/movements/"+strconv.FormatInt(m.ID, 10)).
		JSON(toMovementJSON(m)).
		Write(w)
}

func (s *Server) handleGetMovement(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "movement")
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}

	m, err := s.ledger.GetMovement(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(toMovementJSON(m)).Write(w)
}

// handleDeleteMovement removes a movement; a second delete of the same id
// is a 404.
func (s *Server) handleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "movement")
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.ledger.DeleteMovement(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}

	s.appMetrics.movementsDeleted.Add(1)
	NoContent().Write(w)
}
