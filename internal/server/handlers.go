package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/sqlveil/internal/state"
	"github.com/leapstack-labs/sqlveil/pkg/mask"
)

const maxRequestBytes = 4 << 20

type maskRequest struct {
	SQL  string `json:"sql"`
	Mode string `json:"mode,omitempty"`

	// Mapping seeds the session with an existing mapping table, keeping
	// its synthetic names stable for entities it already covers.
	Mapping []mask.MappingRecord `json:"mapping,omitempty"`
}

type maskResponse struct {
	SessionID string               `json:"session_id"`
	Masked    string               `json:"masked"`
	Domain    string               `json:"domain,omitempty"`
	Mapping   []mask.MappingRecord `json:"mapping"`
}

type unmaskRequest struct {
	Text      string               `json:"text"`
	SessionID string               `json:"session_id,omitempty"`
	Mapping   []mask.MappingRecord `json:"mapping,omitempty"`
}

type unmaskResponse struct {
	SQL      string         `json:"sql"`
	Warnings []mask.Warning `json:"warnings,omitempty"`
}

type sessionSummary struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Domain    string    `json:"domain,omitempty"`
	Mappings  int       `json:"mappings"`
	CreatedAt time.Time `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		s.error(w, http.StatusBadRequest, fmt.Errorf("sql is required"))
		return
	}

	genOpts, err := s.generateOptions(req.Mode)
	if err != nil {
		s.error(w, http.StatusBadRequest, err)
		return
	}

	opts := mask.SessionOptions{
		Classify: s.cfg.ClassifyOptions(),
		Generate: genOpts,
		Logger:   s.logger,
	}
	if len(req.Mapping) > 0 {
		seed := mask.NewStore()
		for _, rec := range req.Mapping {
			if err := seed.Add(rec); err != nil {
				s.error(w, http.StatusBadRequest, fmt.Errorf("invalid mapping: %w", err))
				return
			}
		}
		opts.Mapping = seed
	}

	session, err := mask.NewSession(opts)
	if err != nil {
		s.error(w, http.StatusBadRequest, err)
		return
	}
	if _, err := session.Analyze(req.SQL); err != nil {
		s.error(w, http.StatusUnprocessableEntity, err)
		return
	}
	masked, records, err := session.Mask(r.Context())
	if err != nil {
		s.error(w, http.StatusUnprocessableEntity, err)
		return
	}

	domain := mask.DetectDomain(session.Entities())
	if s.store != nil {
		rec := &state.SessionRecord{
			ID:     session.ID,
			Mode:   string(genOpts.Mode),
			Domain: string(domain),
			Source: session.Source(),
			Masked: masked,
		}
		if err := s.store.SaveSession(rec, records); err != nil {
			s.logger.Warn("failed to persist session", "session_id", session.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, maskResponse{
		SessionID: session.ID,
		Masked:    masked,
		Domain:    string(domain),
		Mapping:   records,
	})
}

func (s *Server) handleUnmask(w http.ResponseWriter, r *http.Request) {
	var req unmaskRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		s.error(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}

	store := mask.NewStore()
	switch {
	case req.SessionID != "":
		if s.store == nil {
			s.error(w, http.StatusBadRequest, fmt.Errorf("session lookup requires a state store"))
			return
		}
		loaded, err := s.store.LoadMappings(req.SessionID)
		if err != nil {
			s.error(w, http.StatusNotFound, err)
			return
		}
		store = loaded
	case len(req.Mapping) > 0:
		for _, rec := range req.Mapping {
			if err := store.Add(rec); err != nil {
				s.error(w, http.StatusBadRequest, fmt.Errorf("invalid mapping: %w", err))
				return
			}
		}
	default:
		s.error(w, http.StatusBadRequest, fmt.Errorf("either session_id or mapping is required"))
		return
	}

	sql, warnings, err := mask.Unmask(req.Text, store, s.cfg.ClassifyOptions())
	if err != nil {
		s.error(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, unmaskResponse{SQL: sql, Warnings: warnings})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("session listing requires a state store"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.error(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(limit)
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]sessionSummary, 0, len(sessions))
	for _, rec := range sessions {
		mappings, err := s.store.LoadMappings(rec.ID)
		if err != nil {
			s.error(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, sessionSummary{
			ID:        rec.ID,
			Mode:      rec.Mode,
			Domain:    rec.Domain,
			Mappings:  mappings.Len(),
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("session lookup requires a state store"))
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.store.GetSession(id)
	if err != nil {
		s.error(w, http.StatusNotFound, err)
		return
	}
	mappings, err := s.store.LoadMappings(id)
	if err != nil {
		s.error(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, maskResponse{
		SessionID: rec.ID,
		Masked:    rec.Masked,
		Domain:    rec.Domain,
		Mapping:   mappings.Records(),
	})
}

// generateOptions resolves the effective naming mode for one request,
// falling back to the configured default when the request is silent.
func (s *Server) generateOptions(modeOverride string) (mask.GenerateOptions, error) {
	raw := modeOverride
	if raw == "" {
		raw = s.cfg.Mode
	}
	mode, err := mask.ParseMode(raw)
	if err != nil {
		return mask.GenerateOptions{}, err
	}
	opts := mask.GenerateOptions{
		Mode:         mode,
		NamerTimeout: s.cfg.Semantic.Timeout,
		Logger:       s.logger,
	}
	if mode == mask.ModeSemantic {
		if s.namer == nil {
			return mask.GenerateOptions{}, fmt.Errorf("semantic mode is not configured on this server")
		}
		opts.Namer = s.namer
	}
	return opts, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.error(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) error(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
