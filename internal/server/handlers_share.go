package server

import (
	"net/http"
	"strings"

	"github.com/user/vidnest/internal/library"
)

func (s *Server) handleShareMetadata(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Library.ShareMetadata(r.Context(), claims(r).UserID, r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleShareProcess(w http.ResponseWriter, r *http.Request) {
	var in library.ShareInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.deps.Library.ProcessShare(r.Context(), claims(r).UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Video != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	pageURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if pageURL == "" {
		writeError(w, r, &library.ValidationError{Fields: map[string]string{"url": "url is required"}})
		return
	}

	p, err := s.deps.Preview.Fetch(r.Context(), pageURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
