package http

import (
	"net/http"
	"strconv"

	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.ledger.ListClients(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}

	out := make([]clientJSON, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientJSON(c))
	}
	NewResponse().JSON(out).Write(w)
}

// handleCreateClient stores a client together with its first account.
func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	values, err := DecodeBody(w, r, core.ClientSchema)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	client, account, err := s.ledger.CreateClient(r.Context(), values.String("name"))
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Client created",
		log.FieldClientID, client.ID,
		log.FieldAccountID, account.ID)

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/clients/"+strconv.FormatInt(client.ID, 10)).
		JSON(toClientJSON(client)).
		Write(w)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "client")
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}

	detail, err := s.ledger.GetClient(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(toClientDetailJSON(detail)).Write(w)
}

func (s *Server) handleRenameClient(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "client")
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	values, err := DecodeBody(w, r, core.ClientSchema)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}

	client, err := s.ledger.RenameClient(r.Context(), id, values.String("name"))
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	NewResponse().JSON(toClientJSON(client)).Write(w)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "client")
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.ledger.DeleteClient(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	NoContent().Write(w)
}

// handleClientBalances lists the balance of every account of the client.
func (s *Server) handleClientBalances(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "client")
	if err != nil {
		s.writeError(w, r, err, log.OpBalance)
		return
	}

	balances, err := s.ledger.ClientBalances(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpBalance)
		return
	}
	NewResponse().JSON(toClientBalanceJSON(balances)).Write(w)
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "client")
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}

	account, err := s.ledger.OpenAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toAccountJSON(account)).Write(w)
}

// handleAssignCategory tags a client with a category. Assigning the same
// pair twice creates two assignments.
func (s *Server) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	values, err := DecodeBody(w, r, core.AssignmentSchema)
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}

	cc, err := s.ledger.AssignCategory(r.Context(), values.Int64("client"), values.Int64("category"))
	if err != nil {
		s.writeError(w, r, err, log.OpAssign)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(toCategoryClientJSON(cc)).Write(w)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "account")
	if err != nil {
		s.writeError(w, r, err, log.OpBalance)
		return
	}

	balance, err := s.ledger.AccountBalance(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, log.OpBalance)
		return
	}
	NewResponse().JSON(toAccountBalanceJSON(balance)).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "account")
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	NoContent().Write(w)
}
