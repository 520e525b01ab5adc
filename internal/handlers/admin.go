package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"sentimeter/internal/enrich"
	mw "sentimeter/internal/middleware"
	"sentimeter/internal/queue"
	"sentimeter/internal/store"
)

type AdminHandler struct {
	db      *sqlx.DB
	entries *store.JournalStore
	jobs    *queue.Queue
}

func NewAdminHandler(db *sqlx.DB, entries *store.JournalStore, jobs *queue.Queue) *AdminHandler {
	return &AdminHandler{db: db, entries: entries, jobs: jobs}
}

type adminOverview struct {
	TotalUsers          int `json:"total_users"`
	TotalJournalEntries int `json:"total_journal_entries"`
	ActiveUsersThisWeek int `json:"active_users_this_week"`
	EntriesThisWeek     int `json:"entries_this_week"`
	PendingEnrichment   int `json:"pending_enrichment"`
	UrgentSurveys       int `json:"urgent_surveys_this_month"`
}

// mustBeAdmin checks the current user is admin
func (h *AdminHandler) mustBeAdmin(userID int) (bool, error) {
	var isAdmin bool
	if err := h.db.QueryRowx(`SELECT is_admin FROM users WHERE id=$1`, userID).Scan(&isAdmin); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return isAdmin, nil
}

// Overview returns operational counters for the admin console.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	if ok, err := h.mustBeAdmin(userID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var out adminOverview
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM users`).Scan(&out.TotalUsers); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM journal_entries`).Scan(&out.TotalJournalEntries); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(DISTINCT user_id) FROM journal_entries WHERE created_at >= date_trunc('week', CURRENT_DATE)`).Scan(&out.ActiveUsersThisWeek); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM journal_entries WHERE created_at >= date_trunc('week', CURRENT_DATE)`).Scan(&out.EntriesThisWeek); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM journal_entries WHERE processing = true`).Scan(&out.PendingEnrichment); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowx(`SELECT COUNT(*) FROM weekly_surveys WHERE urgent_flag = true AND created_at >= date_trunc('month', CURRENT_DATE)`).Scan(&out.UrgentSurveys); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// RequeueStuck re-queues pending entries older than an hour for enrichment.
func (h *AdminHandler) RequeueStuck(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	if ok, err := h.mustBeAdmin(userID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	cutoff := time.Now().UTC().Add(-time.Hour)
	ids, err := h.entries.StuckPending(r.Context(), cutoff, 500)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	requeued := 0
	for _, id := range ids {
		if _, err := h.jobs.Enqueue(r.Context(), enrich.JobTypeEnrichEntry, enrich.Payload{EntryID: id}); err == nil {
			requeued++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"requeued": requeued})
}
