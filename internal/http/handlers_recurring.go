package http

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"soldi/internal/core"
)

type templateJSON struct {
	ID              int64  `json:"id"`
	RecurrenceType  string `json:"recurrence_type"`
	RecurrenceDay   *int   `json:"recurrence_day,omitempty"`
	RecurrenceLabel string `json:"recurrence_label"`
	LastExecuted    string `json:"last_executed,omitempty"`
	NextDue         string `json:"next_due,omitempty"`
	IsActive        bool   `json:"is_active"`
	Description     string `json:"description"`
	AmountCents     int64  `json:"amount_cents"`
	Amount          string `json:"amount"`
	Kind            string `json:"kind"`
	Primary         string `json:"primary"`
	Secondary       string `json:"secondary"`
}

func toTemplateJSON(t core.RecurringTemplate) templateJSON {
	out := templateJSON{
		ID:              t.ID,
		RecurrenceType:  string(t.Rule.Type),
		RecurrenceDay:   t.Rule.Day,
		RecurrenceLabel: t.Rule.Type.Label(),
		IsActive:        t.IsActive,
		Description:     t.Description,
		AmountCents:     t.Amount.Cents,
		Amount:          t.Amount.Format(),
		Kind:            string(t.Kind),
		Primary:         t.Primary,
		Secondary:       t.Secondary,
	}
	if !t.LastExecuted.IsZero() {
		out.LastExecuted = t.LastExecuted.ISO()
	}
	if !t.NextDue.IsZero() {
		out.NextDue = t.NextDue.ISO()
	}
	return out
}

type templateRequest struct {
	RecurrenceType string `json:"recurrence_type"`
	RecurrenceDay  *int   `json:"recurrence_day"`
	IsActive       *bool  `json:"is_active"`
	Description    string `json:"description"`
	AmountCents    int64  `json:"amount_cents"`
	Kind           string `json:"kind"`
	Primary        string `json:"primary"`
	Secondary      string `json:"secondary"`
}

func (req templateRequest) toTemplate(id int64) core.RecurringTemplate {
	kind := core.TransactionKind(req.Kind)
	if req.Kind == "" {
		kind = core.Expense
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return core.RecurringTemplate{
		ID: id,
		Rule: core.RecurrenceRule{
			Type: core.RecurrenceType(req.RecurrenceType),
			Day:  req.RecurrenceDay,
		},
		IsActive:    active,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: req.AmountCents},
		Kind:        kind,
		Primary:     sanitizeInput(req.Primary),
		Secondary:   sanitizeInput(req.Secondary),
	}
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := req.toTemplate(0)
	if err := t.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Seed the due-date cache so the template fires without waiting for
	// a worker refresh.
	t.NextDue = core.NextDueDate(t.Rule, core.Date{}, core.DateOf(time.Now()))

	id, err := s.store.CreateTemplate(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create recurring template",
			"error", err, "description", t.Description)
		respondError(w, http.StatusInternalServerError, "failed to create template")
		return
	}
	t.ID = id
	respondJSON(w, http.StatusCreated, toTemplateJSON(t))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring templates", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	out := make([]templateJSON, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateJSON(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	t, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load recurring template", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	respondJSON(w, http.StatusOK, toTemplateJSON(*t))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load recurring template", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}

	t := req.toTemplate(id)
	if err := t.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	t.LastExecuted = existing.LastExecuted
	if ruleChanged(existing.Rule, t.Rule) {
		t.NextDue = core.NextDueDate(t.Rule, t.LastExecuted, core.DateOf(time.Now()))
	} else {
		t.NextDue = existing.NextDue
	}

	if err := s.store.UpdateTemplate(r.Context(), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update recurring template", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to update template")
		return
	}
	respondJSON(w, http.StatusOK, toTemplateJSON(t))
}

func ruleChanged(a, b core.RecurrenceRule) bool {
	if a.Type != b.Type {
		return true
	}
	if (a.Day == nil) != (b.Day == nil) {
		return true
	}
	return a.Day != nil && *a.Day != *b.Day
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	if err := s.store.DeleteTemplate(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete recurring template", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleDueTemplates lists active templates whose next due date has been
// reached.
func (s *Server) handleDueTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListActiveTemplates(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring templates", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	today := core.DateOf(time.Now())
	out := make([]templateJSON, 0)
	for _, t := range templates {
		if t.IsDue(today) {
			out = append(out, toTemplateJSON(t))
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefreshDueDates(w http.ResponseWriter, r *http.Request) {
	refreshed, err := s.recurring.RefreshDueDates(r.Context(), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to refresh due dates", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to refresh due dates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"refreshed": refreshed})
}
