package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	mw "sentimeter/internal/middleware"
	"sentimeter/internal/models"
	"sentimeter/internal/services"
)

type UserHandler struct {
	db     *sqlx.DB
	encSvc *services.EncryptionService
}

func NewUserHandler(db *sqlx.DB, encSvc *services.EncryptionService) *UserHandler {
	return &UserHandler{db: db, encSvc: encSvc}
}

// GetMe returns the current user's profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var u models.User
	if err := h.db.Get(&u, `SELECT id, email, email_blind_index, password_hash, name, created_at, is_admin, last_reminded_at FROM users WHERE id=$1`, userID); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := h.encSvc.DecryptUser(&u); err != nil {
		http.Error(w, "could not decrypt user data", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ToUserDTO(u))
}

// UpdateMe updates provided fields on the current user's profile
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if body.Name != nil {
		if _, err := h.db.Exec(`UPDATE users SET name=$1 WHERE id=$2`, *body.Name, userID); err != nil {
			http.Error(w, "could not update", http.StatusInternalServerError)
			return
		}
	}

	if body.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*body.Email))
		if email == "" || !strings.Contains(email, "@") {
			http.Error(w, "invalid email", http.StatusBadRequest)
			return
		}
		// Re-encrypt and re-index so login keeps working with the new address.
		u := models.User{Email: email, EmailBlindIndex: h.encSvc.EmailBlindIndex(email)}
		if err := h.encSvc.EncryptUser(&u); err != nil {
			http.Error(w, "could not encrypt user data", http.StatusInternalServerError)
			return
		}
		if _, err := h.db.Exec(`UPDATE users SET email=$1, email_blind_index=$2 WHERE id=$3`, u.Email, u.EmailBlindIndex, userID); err != nil {
			http.Error(w, "could not update", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
