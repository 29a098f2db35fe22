package http

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"soldi/internal/core"
)

type transactionJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date.ISO(),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.Format(),
		Kind:        string(t.Kind),
		Primary:     t.Primary,
		Secondary:   t.Secondary,
	}
}

type budgetStatusJSON struct {
	Category         string  `json:"category"`
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	SpentCents       int64   `json:"spent_cents"`
	Spent            string  `json:"spent"`
	LimitCents       int64   `json:"limit_cents"`
	Limit            string  `json:"limit"`
	WarningThreshold float64 `json:"warning_threshold"`
	Status           string  `json:"status"`
	StatusLabel      string  `json:"status_label"`
}

func toBudgetStatusJSON(snap core.BudgetSnapshot) budgetStatusJSON {
	return budgetStatusJSON{
		Category:         snap.Category,
		Year:             snap.Year,
		Month:            snap.Month,
		SpentCents:       snap.Spent.Cents,
		Spent:            snap.Spent.Format(),
		LimitCents:       snap.Limit.Cents,
		Limit:            snap.Limit.Format(),
		WarningThreshold: snap.WarningThreshold,
		Status:           string(snap.Status),
		StatusLabel:      snap.Status.Label(),
	}
}

type createTransactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"` // decimal alternative, e.g. "12,34"
	Kind        string `json:"kind"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary"`
}

type createTransactionResponse struct {
	Transaction transactionJSON   `json:"transaction"`
	Budget      *budgetStatusJSON `json:"budget,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date := core.DateOf(time.Now())
	if req.Date != "" {
		var err error
		date, err = core.ParseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	cents := req.AmountCents
	if cents == 0 && req.Amount != "" {
		var err error
		cents, err = core.ParseDecimalToCents(req.Amount)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
	}

	kind := core.TransactionKind(req.Kind)
	if req.Kind == "" {
		kind = core.Expense
	}

	t := core.Transaction{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
		Primary:     sanitizeInput(req.Primary),
		Secondary:   sanitizeInput(req.Secondary),
	}
	if err := t.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, snap, err := s.transactions.CreateTransaction(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction",
			"error", err, "description", t.Description, "amount_cents", t.Amount.Cents)
		respondError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	t.ID = id
	s.invalidateMonth(date.Year(), date.Month())

	resp := createTransactionResponse{Transaction: toTransactionJSON(t)}
	if snap != nil {
		b := toBudgetStatusJSON(*snap)
		resp.Budget = &b
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := s.cacheKey(year, month)

	items, found := s.txCache.Get(key)
	if !found {
		var err error
		items, err = s.store.ListTransactions(r.Context(), year, month)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list transactions",
				"error", err, "year", year, "month", month)
			respondError(w, http.StatusInternalServerError, "failed to list transactions")
			return
		}
		s.txCache.Set(key, items)
	}

	out := make([]transactionJSON, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionJSON(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.transactions.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	// The deleted row's month is unknown here; invalidate the current
	// month and let TTL age out the rest.
	now := time.Now()
	s.invalidateMonth(now.Year(), int(now.Month()))

	respondJSON(w, http.StatusNoContent, nil)
}
