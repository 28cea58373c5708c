package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/sources"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// maxRequestBody caps the size of a /scrape body.
const maxRequestBody = 1 << 20

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string   `json:"error"`
	Field string   `json:"field,omitempty"`
	Hint  string   `json:"hint,omitempty"`
	Trace []string `json:"trace,omitempty"`
}

// SourceInfo describes one supported source.
type SourceInfo struct {
	Source  types.Source `json:"source"`
	Label   string       `json:"label"`
	Origin  string       `json:"origin"`
	Aliases []string     `json:"aliases"`
	Modes   []types.Mode `json:"modes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mode":    types.ModeBrowser,
		"sources": types.Sources,
		"version": config.Version,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	profiles := sources.All()
	out := make([]SourceInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, SourceInfo{
			Source:  p.Source,
			Label:   p.Label,
			Origin:  p.Origin,
			Aliases: p.Aliases,
			Modes:   p.Modes,
		})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req types.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if err := s.confineSnapshot(&req); err != nil {
		s.errorResponse(w, req.Debug, err)
		return
	}

	res, err := s.scraper.Run(r.Context(), req)
	if err != nil {
		s.errorResponse(w, req.Debug, err)
		return
	}

	if s.store != nil {
		loc, err := s.store.Store(r.Context(), res)
		s.metrics.ObserveStore(s.store.Name(), err)
		if err != nil {
			s.logger.Warn("result not stored", "backend", s.store.Name(), "error", err)
		} else {
			w.Header().Set("X-Result-Location", loc)
		}
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	var (
		cfgErr    *types.ConfigurationError
		discErr   *types.DiscoveryError
		remoteErr *types.RemoteServiceError
		envErr    *types.ExtractionEnvironmentError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &discErr):
		return http.StatusNotFound
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	case errors.As(err, &envErr):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) errorResponse(w http.ResponseWriter, debug bool, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error(), Hint: types.Hint(err)}

	var cfgErr *types.ConfigurationError
	if errors.As(err, &cfgErr) {
		body.Field = cfgErr.Field
	}
	if debug {
		body.Trace = types.Chain(err)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("scrape failed", "status", status, "error", err)
	} else {
		s.logger.Info("scrape rejected", "status", status, "error", err)
	}
	s.jsonResponse(w, status, body)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Error("write JSON response failed", "error", err)
	}
}
