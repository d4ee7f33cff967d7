package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"finplan/internal/core"

	"github.com/google/uuid"
)

type transactionRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Notes    string `json:"notes"`
	Shared   bool   `json:"shared"`
}

type billRequest struct {
	Name             string `json:"name"`
	Amount           string `json:"amount"`
	Category         string `json:"category"`
	Issuer           string `json:"issuer"`
	FirstInstallment string `json:"first_installment"`
	Recurrence       string `json:"recurrence"`
	IntervalDays     int    `json:"interval_days"`
	NumberOfShares   int    `json:"number_of_shares"`
}

type incomeRequest struct {
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Category     string `json:"category"`
	Issuer       string `json:"issuer"`
	FirstPayment string `json:"first_payment"`
	Frequency    string `json:"frequency"`
	IntervalDays int    `json:"interval_days"`
	Timing       string `json:"timing"`
	Notes        string `json:"notes"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "create_transaction"
	userID, ok := s.requireUser(w, r, op)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	t := core.Transaction{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Amount:   p.Amount("amount", req.Amount),
		Category: p.TransactionCategory("category", req.Category),
		Date:     p.Date("date", req.Date),
		Notes:    strings.TrimSpace(req.Notes),
		Shared:   req.Shared,
	}
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	if err := s.ledger.AddTransaction(r.Context(), t); err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.present.transaction(t)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	listEntries(s, w, r, "list_transactions", s.ledger.Transactions, s.present.transaction)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.deleteEntry(w, r, "delete_transaction", s.ledger.DeleteTransaction)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	const op = "create_bill"
	userID, ok := s.requireUser(w, r, op)
	if !ok {
		return
	}
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	shares := req.NumberOfShares
	if shares == 0 {
		shares = 1
	}
	b := core.Bill{
		ID:               uuid.New(),
		UserID:           userID,
		Name:             strings.TrimSpace(req.Name),
		Amount:           p.Amount("amount", req.Amount),
		Category:         p.BillCategory("category", req.Category),
		Issuer:           strings.TrimSpace(req.Issuer),
		FirstInstallment: p.Date("first_installment", req.FirstInstallment),
		Recurrence:       p.Recurrence("recurrence", req.Recurrence),
		IntervalDays:     req.IntervalDays,
		CreatedAt:        time.Now().UTC(),
	}.WithShares(shares)
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	if err := s.ledger.AddBill(r.Context(), b); err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.present.bill(b)).Write(w)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	listEntries(s, w, r, "list_bills", s.ledger.Bills, s.present.bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	s.deleteEntry(w, r, "delete_bill", s.ledger.DeleteBill)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	const op = "create_income"
	userID, ok := s.requireUser(w, r, op)
	if !ok {
		return
	}
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	in := core.Income{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         strings.TrimSpace(req.Name),
		Amount:       p.Amount("amount", req.Amount),
		Category:     strings.TrimSpace(req.Category),
		Issuer:       strings.TrimSpace(req.Issuer),
		FirstPayment: p.Date("first_payment", req.FirstPayment),
		Frequency:    p.Frequency("frequency", req.Frequency),
		IntervalDays: req.IntervalDays,
		Timing:       p.Timing("timing", req.Timing),
		Notes:        strings.TrimSpace(req.Notes),
	}
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	if err := s.ledger.AddIncome(r.Context(), in); err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(s.present.income(in)).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	listEntries(s, w, r, "list_incomes", s.ledger.Incomes, s.present.income)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.deleteEntry(w, r, "delete_income", s.ledger.DeleteIncome)
}

// listEntries loads one kind of ledger entry for the {userID} user and
// renders each with view.
func listEntries[T, V any](s *Server, w http.ResponseWriter, r *http.Request, op string,
	list func(context.Context, uuid.UUID) ([]T, error), view func(T) V) {
	userID, ok := s.requireUser(w, r, op)
	if !ok {
		return
	}
	items, err := list(r.Context(), userID)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	out := make([]V, 0, len(items))
	for _, it := range items {
		out = append(out, view(it))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request, op string, del func(context.Context, uuid.UUID) error) {
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
