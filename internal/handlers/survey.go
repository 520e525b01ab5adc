package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	mw "sentimeter/internal/middleware"
	"sentimeter/internal/survey"
)

type SurveyHandler struct {
	svc *survey.Service
}

func NewSurveyHandler(svc *survey.Service) *SurveyHandler {
	return &SurveyHandler{svc: svc}
}

// Submit records the weekly mental-health survey. One survey per week; a
// duplicate returns 409.
func (h *SurveyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var sub survey.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	receipt, err := h.svc.Submit(r.Context(), userID, sub)
	if err != nil {
		if errors.Is(err, survey.ErrDuplicateWeek) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(receipt)
}

// List returns past surveys; range=last12 (default) or range=since&date=YYYY-MM-DD.
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	q := r.URL.Query()
	surveys, err := h.svc.List(r.Context(), userID, q.Get("range"), q.Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(surveys)
}
