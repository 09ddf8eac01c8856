// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/florafind/internal/profile"
)

// maxAPIBody leaves room for a base64 photo of MaxPhotoBytes.
const maxAPIBody = profile.MaxPhotoBytes*4/3 + 64<<10

// APIArticlesResponse is the body of GET /api/articles.
type APIArticlesResponse struct {
	Articles []string `json:"articles"`
}

// APIError is the body of failed API calls.
type APIError struct {
	Error string `json:"error"`
}

type apiScanRequest struct {
	PhotoDataURI string `json:"photoDataUri"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("encoding JSON response")
	}
}

func (s *Server) writeAPIError(w http.ResponseWriter, err error, fallback int) {
	status := statusFor(err, fallback)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Warn("api request failed")
		msg = http.StatusText(status)
	}
	s.writeJSON(w, status, APIError{Error: msg})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxAPIBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// handleAPIArticles always answers 200; a failed lookup is an empty list.
// max defaults to defaultArticles and is capped at maxArticles.
func (s *Server) handleAPIArticles(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	maxResults := defaultArticles
	if v := r.URL.Query().Get("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxResults = min(n, maxArticles)
		}
	}

	articles := s.deps.Articles.Search(r.Context(), term, maxResults)
	if articles == nil {
		articles = []string{}
	}
	s.writeJSON(w, http.StatusOK, APIArticlesResponse{Articles: articles})
}

func (s *Server) handleAPIProfile(w http.ResponseWriter, r *http.Request) {
	var in profile.AggregateInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	prof, err := s.deps.Profiles.Aggregate(r.Context(), in)
	if err != nil {
		s.writeAPIError(w, err, http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, prof)
}

func (s *Server) handleAPIScan(w http.ResponseWriter, r *http.Request) {
	var in apiScanRequest
	if !s.decodeJSON(w, r, &in) {
		return
	}
	result, err := s.deps.Profiles.Scan(r.Context(), in.PhotoDataURI)
	if err != nil {
		s.writeAPIError(w, err, http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
