package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/suggest"
	"github.com/panchamjain/suvidha/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'q' is required")
		return
	}

	out := s.searcher.Search(r.Context(), query)
	response := SearchResponse{
		Query:   out.Query,
		Results: out.Results,
		Count:   out.Count,
		Source:  out.Source,
	}
	if response.Results == nil {
		response.Results = []search.SearchResult{}
	}
	if out.Err != nil {
		response.RemoteError = out.Err.Error()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// HandleResolve maps an ad-hoc suggestion (url, type, id, title) to its
// navigation target.
func (s *Server) HandleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := search.SearchResult{
		ID:    q.Get("id"),
		Title: q.Get("title"),
		Type:  search.Type(q.Get("type")),
		URL:   q.Get("url"),
		Data:  search.Record{},
	}
	if result.URL == "" && result.ID == "" && result.Title == "" {
		s.writeError(w, http.StatusBadRequest, "Missing parameters", "One of 'url', 'id' or 'title' is required")
		return
	}
	if result.ID != "" {
		result.Data["id"] = result.ID
	}

	s.writeJSON(w, http.StatusOK, ResolveResponse{Target: suggest.Resolve(result)})
}

func (s *Server) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, RecentResponse{Recent: []string{}})
		return
	}

	limit := s.recentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit", "Parameter 'limit' must be a positive integer")
			return
		}
		limit = n
	}

	recent, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list recent searches", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, RecentResponse{Recent: recent, Count: len(recent)})
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	var response StatsResponse
	if s.history != nil {
		stats, err := s.history.Stats(r.Context(), 10)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to get stats", err.Error())
			return
		}
		response.History = stats
	}
	if s.refresher != nil {
		st := s.refresher.Status()
		response.Catalog = &st
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
