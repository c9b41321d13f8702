package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jonathan/change-scorer/internal/db"
	"github.com/jonathan/change-scorer/internal/schemas"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/types"
)

// handleListConfigs lists scoring configs, optionally filtered by ?type= and
// ?active=true.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	configType := q.Get("type")
	if configType != "" && !validConfigType(configType) {
		s.fail(w, r, &ErrValidation{Field: "type", Message: "unknown config type " + strconv.Quote(configType)})
		return
	}
	activeOnly, _ := strconv.ParseBool(q.Get("active"))

	configs, err := s.store.ListScoringConfigs(r.Context(), configType, activeOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if configs == nil {
		configs = []types.ScoringConfig{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"configs": configs, "count": len(configs)})
}

// handleGetConfig returns one scoring config.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.lookupConfig(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cfg)
}

// handlePutConfig creates or replaces the config addressed by the path.
// An omitted is_active defaults to true.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	configType, name := r.PathValue("type"), r.PathValue("name")
	if !validConfigType(configType) {
		s.fail(w, r, &ErrValidation{Field: "type", Message: "unknown config type " + strconv.Quote(configType)})
		return
	}

	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || body == nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body["config_type"] = configType
	body["name"] = name
	if _, ok := body["is_active"]; !ok {
		body["is_active"] = true
	}

	cfg, err := decodeScoringConfig(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	saved, created, err := s.upsertConfig(r, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.logger.Info("scoring config saved", "type", saved.ConfigType, "name", saved.Name, "active", saved.IsActive)
	s.jsonResponse(w, status, saved)
}

// handleDeleteConfig removes a scoring config.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	configType, name := r.PathValue("type"), r.PathValue("name")
	deleted, err := s.store.DeleteScoringConfig(r.Context(), configType, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !deleted {
		s.fail(w, r, &ErrNotFound{Resource: "scoring config", ID: configType + "/" + name})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvaluateConfig applies a benefit config's fixed formula to a raw
// value and optional timeline.
func (s *Server) handleEvaluateConfig(w http.ResponseWriter, r *http.Request) {
	var req types.EvaluateConfigRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	cfg, err := s.lookupConfig(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !cfg.IsActive {
		s.fail(w, r, &ErrInactiveConfig{ConfigType: cfg.ConfigType, Name: cfg.Name})
		return
	}
	if cfg.ConfigType != types.ConfigTypeBenefit {
		s.fail(w, r, &ErrValidation{Field: "type", Message: "only benefit_type configs can be evaluated"})
		return
	}

	s.jsonResponse(w, http.StatusOK, scoring.ConfigScore(*cfg, req.RawValue, req.RawTimeline))
}

func (s *Server) lookupConfig(r *http.Request) (*types.ScoringConfig, error) {
	configType, name := r.PathValue("type"), r.PathValue("name")
	cfg, err := s.store.GetScoringConfig(r.Context(), configType, name)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &ErrNotFound{Resource: "scoring config", ID: configType + "/" + name}
	}
	return cfg, nil
}

// upsertConfig updates the row when it exists and creates it otherwise.
// Reports whether a row was created.
func (s *Server) upsertConfig(r *http.Request, cfg *types.ScoringConfig) (*types.ScoringConfig, bool, error) {
	ctx := r.Context()
	updated, err := s.store.UpdateScoringConfig(ctx, cfg)
	if err != nil {
		return nil, false, err
	}
	if updated != nil {
		return updated, false, nil
	}

	created, err := s.store.CreateScoringConfig(ctx, cfg)
	if errors.Is(err, db.ErrDuplicate) {
		// Lost a race with a concurrent create
		updated, err = s.store.UpdateScoringConfig(ctx, cfg)
		return updated, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// decodeScoringConfig checks a config document against its schema and the
// struct rules. Effort thresholds must parse as a non-decreasing ladder and
// are stored in canonical form.
func decodeScoringConfig(doc map[string]any) (*types.ScoringConfig, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := schemas.ValidateScoringConfig(raw); err != nil {
		return nil, schemaError(err)
	}

	var cfg types.ScoringConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &ErrValidation{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	if cfg.Thresholds != "" {
		t, err := scoring.ParseThresholds(cfg.Thresholds)
		if err != nil {
			return nil, &ErrValidation{Field: "thresholds", Message: err.Error()}
		}
		cfg.Thresholds = t.String()
	}
	return &cfg, nil
}

func validConfigType(t string) bool {
	return t == types.ConfigTypeBenefit || t == types.ConfigTypeEffort
}
