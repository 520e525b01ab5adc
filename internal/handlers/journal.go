package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sentimeter/internal/enrich"
	mw "sentimeter/internal/middleware"
	"sentimeter/internal/models"
	"sentimeter/internal/queue"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
)

type JournalHandler struct {
	entries *store.JournalStore
	jobs    *queue.Queue
	encSvc  *services.EncryptionService
}

func NewJournalHandler(entries *store.JournalStore, jobs *queue.Queue, encSvc *services.EncryptionService) *JournalHandler {
	return &JournalHandler{entries: entries, jobs: jobs, encSvc: encSvc}
}

type createEntryRequest struct {
	Body      string   `json:"body"`
	Date      string   `json:"date"` // optional ISO timestamp or YYYY-MM-DD
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Create stores a new entry in the pending state and queues it for
// enrichment. The response carries the entry id; enrichment fields fill in
// once the worker finishes.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		http.Error(w, "latitude and longitude must be provided together", http.StatusBadRequest)
		return
	}

	createdAt := time.Now().UTC()
	if req.Date != "" {
		parsed, err := parseEntryDate(req.Date)
		if err != nil {
			http.Error(w, "invalid date; expected RFC 3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		createdAt = parsed
	}

	body, err := h.encSvc.EncryptEntryBody(req.Body)
	if err != nil {
		http.Error(w, "could not encrypt entry", http.StatusInternalServerError)
		return
	}

	entry := &models.JournalEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Body:      body,
		CreatedAt: createdAt,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if ip := clientIP(r); ip != "" {
		entry.IPAddress = &ip
	}
	if err := h.entries.CreatePending(r.Context(), entry); err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}

	if _, err := h.jobs.Enqueue(r.Context(), enrich.JobTypeEnrichEntry, enrich.Payload{EntryID: entry.ID}); err != nil {
		// The entry is saved; the hourly sweep re-queues it if this failed.
		http.Error(w, "could not queue enrichment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"id":         entry.ID,
		"created_at": entry.CreatedAt,
		"processing": true,
	})
}

// Get returns a single entry owned by the caller.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	entry, err := h.entries.GetForUser(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	h.writeEntry(w, *entry)
}

// List returns all of the caller's entries, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	entries, err := h.entries.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	h.writeEntries(w, entries)
}

// Recent returns the latest entries, capped by the limit query param
// (default 10).
func (h *JournalHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.entries.Recent(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	h.writeEntries(w, entries)
}

// Filter returns the caller's entries for a given year and month.
func (h *JournalHandler) Filter(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1970 || year > 9999 {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}
	entries, err := h.entries.ByMonth(r.Context(), userID, year, month)
	if err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	h.writeEntries(w, entries)
}

// ByKeyword returns entries whose extracted keywords include the query term.
func (h *JournalHandler) ByKeyword(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	keyword := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("keyword")))
	if keyword == "" {
		http.Error(w, "keyword required", http.StatusBadRequest)
		return
	}
	entries, err := h.entries.ByKeyword(r.Context(), userID, keyword)
	if err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	h.writeEntries(w, entries)
}

// Delete removes one of the caller's entries.
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	deleted, err := h.entries.Delete(r.Context(), userID, id)
	if err != nil {
		http.Error(w, "could not delete", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *JournalHandler) writeEntry(w http.ResponseWriter, e models.JournalEntry) {
	dto, err := ToEntryDTO(e, h.encSvc)
	if err != nil {
		http.Error(w, "could not decrypt entry", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto)
}

func (h *JournalHandler) writeEntries(w http.ResponseWriter, entries []models.JournalEntry) {
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dto, err := ToEntryDTO(e, h.encSvc)
		if err != nil {
			// Skip entries that fail to decrypt rather than failing the page.
			continue
		}
		out = append(out, dto)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func parseEntryDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
