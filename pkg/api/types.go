package api

import (
	"time"

	"github.com/panchamjain/suvidha/pkg/refresh"
	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/storage"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SearchResponse struct {
	Query   string                `json:"query"`
	Results []search.SearchResult `json:"results"`
	Count   int                   `json:"count"`
	Source  search.Source         `json:"source"`
	// RemoteError is set when the remote service failed, even if fallback
	// results were returned.
	RemoteError string `json:"remote_error,omitempty"`
}

type ResolveResponse struct {
	Target suggest.Target `json:"target"`
}

type RecentResponse struct {
	Recent []string `json:"recent"`
	Count  int      `json:"count"`
}

type StatsResponse struct {
	History *storage.Stats  `json:"history,omitempty"`
	Catalog *refresh.Status `json:"catalog,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ClientMessage is sent by live suggestion clients.
type ClientMessage struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
	ID    string `json:"id,omitempty"`
}

// ServerMessage is streamed to live suggestion clients.
type ServerMessage struct {
	Type     string            `json:"type"`
	Session  string            `json:"session,omitempty"`
	Snapshot *suggest.Snapshot `json:"snapshot,omitempty"`
	Target   *suggest.Target   `json:"target,omitempty"`
	Recent   []string          `json:"recent,omitempty"`
	Error    string            `json:"error,omitempty"`
}
