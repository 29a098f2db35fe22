package http

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"soldi/internal/core"
)

type budgetJSON struct {
	ID               int64   `json:"id"`
	Category         string  `json:"category"`
	LimitCents       int64   `json:"limit_cents"`
	Limit            string  `json:"limit"`
	WarningThreshold float64 `json:"warning_threshold"`
}

func toBudgetJSON(b core.CategoryBudget) budgetJSON {
	return budgetJSON{
		ID:               b.ID,
		Category:         b.Category,
		LimitCents:       b.Limit.Cents,
		Limit:            b.Limit.Format(),
		WarningThreshold: b.WarningThreshold,
	}
}

type budgetRequest struct {
	Category         string  `json:"category"`
	LimitCents       int64   `json:"limit_cents"`
	WarningThreshold float64 `json:"warning_threshold"`
}

func (req budgetRequest) toBudget(id int64) core.CategoryBudget {
	threshold := req.WarningThreshold
	if threshold == 0 {
		threshold = 80
	}
	return core.CategoryBudget{
		ID:               id,
		Category:         sanitizeInput(req.Category),
		Limit:            core.Money{Cents: req.LimitCents},
		WarningThreshold: threshold,
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b := req.toBudget(0)
	if err := b.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.budgets.Create(r.Context(), b)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create budget", "error", err, "category", b.Category)
		respondError(w, http.StatusInternalServerError, "failed to create budget")
		return
	}
	b.ID = id
	respondJSON(w, http.StatusCreated, toBudgetJSON(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list budgets", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list budgets")
		return
	}

	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetJSON(b))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b := req.toBudget(id)
	if err := b.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.budgets.Update(r.Context(), b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "budget not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update budget", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to update budget")
		return
	}
	respondJSON(w, http.StatusOK, toBudgetJSON(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	if err := s.budgets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "budget not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete budget", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to delete budget")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleBudgetStatus classifies one category's budget for a month.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	year, month := parseYearMonth(r)

	snap, err := s.budgets.Snapshot(r.Context(), category, year, month)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "no budget configured for category")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to evaluate budget",
			"error", err, "category", category, "year", year, "month", month)
		respondError(w, http.StatusInternalServerError, "failed to evaluate budget")
		return
	}
	respondJSON(w, http.StatusOK, toBudgetStatusJSON(snap))
}
