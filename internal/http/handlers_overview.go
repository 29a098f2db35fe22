package http

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"soldi/internal/core"
)

type categoryAmountJSON struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type overviewJSON struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	TotalCents int64                `json:"total_cents"`
	Total      string               `json:"total"`
	ByCategory []categoryAmountJSON `json:"by_category"`
}

func toOverviewJSON(ov core.MonthOverview) overviewJSON {
	out := overviewJSON{
		Year:       ov.Year,
		Month:      ov.Month,
		TotalCents: ov.Total.Cents,
		Total:      ov.Total.Format(),
		ByCategory: make([]categoryAmountJSON, 0, len(ov.ByCategory)),
	}
	for _, c := range ov.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountJSON{
			Name:        c.Name,
			AmountCents: c.Amount.Cents,
			Amount:      c.Amount.Format(),
		})
	}
	return out
}

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := s.cacheKey(year, month)

	ov, found := s.overviewCache.Get(key)
	if !found {
		var err error
		ov, err = s.store.MonthOverview(r.Context(), year, month)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to build month overview",
				"error", err, "year", year, "month", month)
			respondError(w, http.StatusInternalServerError, "failed to build overview")
			return
		}
		s.overviewCache.Set(key, ov)
	}
	respondJSON(w, http.StatusOK, toOverviewJSON(ov))
}

type categoriesJSON struct {
	Primaries   []string `json:"primaries"`
	Secondaries []string `json:"secondaries"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	primaries, secondaries, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, categoriesJSON{
		Primaries:   primaries,
		Secondaries: secondaries,
	})
}

func (s *Server) handleListSecondaries(w http.ResponseWriter, r *http.Request) {
	primary := chi.URLParam(r, "primary")
	secondaries, err := s.store.SecondariesByPrimary(r.Context(), primary)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list secondary categories",
			"error", err, "primary", primary)
		respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, secondaries)
}

type notificationJSON struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := strings.EqualFold(r.URL.Query().Get("unread"), "true")

	notifications, err := s.store.ListNotifications(r.Context(), unreadOnly)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list notifications", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	out := make([]notificationJSON, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationJSON{
			ID:        n.ID,
			Kind:      n.Kind,
			Category:  n.Category,
			Message:   n.Message,
			CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Read:      n.Read,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.store.MarkNotificationRead(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "notification not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to mark notification read", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
