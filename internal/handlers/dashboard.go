package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sentimeter/internal/insights"
	mw "sentimeter/internal/middleware"
	"sentimeter/internal/store"
)

// DashboardHandler serves the aggregated views over enriched entries:
// sentiment buckets, streaks, activity heatmap, and top keywords.
type DashboardHandler struct {
	entries    *store.JournalStore
	sentiments *insights.SentimentAggregator
	streaks    *insights.StreakCalculator
	search     *insights.SemanticSearch
}

func NewDashboardHandler(entries *store.JournalStore, sentiments *insights.SentimentAggregator, streaks *insights.StreakCalculator, search *insights.SemanticSearch) *DashboardHandler {
	return &DashboardHandler{entries: entries, sentiments: sentiments, streaks: streaks, search: search}
}

// Sentiments returns the week, month, and year sentiment buckets.
func (h *DashboardHandler) Sentiments(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	out, err := h.sentiments.Dashboard(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not aggregate sentiments", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// Streaks returns current and longest writing streaks plus recent activity.
func (h *DashboardHandler) Streaks(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	out, err := h.streaks.Stats(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not compute streaks", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// Heatmap returns per-day entry counts for the last N days (default 365).
func (h *DashboardHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	days := 365
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 3650 {
			http.Error(w, "days must be between 1 and 3650", http.StatusBadRequest)
			return
		}
		days = n
	}
	counts, err := h.entries.DailyCounts(r.Context(), userID, days)
	if err != nil {
		http.Error(w, "could not fetch activity", http.StatusInternalServerError)
		return
	}
	if counts == nil {
		counts = []store.DateCount{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(counts)
}

// TopKeywords returns the most frequent extracted keywords (default 10).
func (h *DashboardHandler) TopKeywords(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	topN := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		topN = n
	}
	keywords, err := h.entries.TopKeywords(r.Context(), userID, topN)
	if err != nil {
		http.Error(w, "could not fetch keywords", http.StatusInternalServerError)
		return
	}
	if keywords == nil {
		keywords = []store.KeywordCount{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keywords)
}

// Search ranks the caller's entries against a free-text query.
func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r.Context())
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "q required", http.StatusBadRequest)
		return
	}
	topK := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 50 {
			http.Error(w, "limit must be between 1 and 50", http.StatusBadRequest)
			return
		}
		topK = n
	}
	results, err := h.search.Search(r.Context(), userID, query, topK)
	if err != nil {
		http.Error(w, "could not search", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []insights.SearchResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}
