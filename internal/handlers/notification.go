package handlers

import (
	"encoding/json"
	"net/http"

	mw "sentimeter/internal/middleware"
	"sentimeter/internal/notify"
)

type NotificationHandler struct {
	svc *notify.Service
}

func NewNotificationHandler(svc *notify.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// GetSettings returns the caller's reminder settings, creating defaults on
// first access.
func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	ns, err := h.svc.Settings(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch settings", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ns)
}

// UpdateSettings applies a partial update to the caller's reminder settings.
func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var upd notify.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ns, err := h.svc.UpdateSettings(r.Context(), userID, upd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ns)
}

// SendTest sends a test email to the caller's address.
func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	if err := h.svc.SendTestEmail(r.Context(), userID); err != nil {
		http.Error(w, "could not send test email", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
}

// Prompts returns the journal prompt rotation used in reminder emails.
func (h *NotificationHandler) Prompts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"prompts": h.svc.Prompts()})
}
