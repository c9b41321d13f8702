package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/change-scorer/internal/schemas"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/types"
)

// kindAll scores every calculator at once.
const kindAll = "all"

// handleScore scores a raw attribute bag with one calculator, or all of them.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	kindParam := r.PathValue("kind")
	kind, ok := scoring.ParseKind(kindParam)
	if !ok && kindParam != kindAll {
		s.errorResponse(w, http.StatusNotFound, "unknown calculator: "+kindParam)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	attrs, err := decodeAttributes(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	engine, err := s.currentEngine(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if kindParam == kindAll {
		s.jsonResponse(w, http.StatusOK, engine.ScoreAll(attrs))
		return
	}
	result, err := engine.Score(kind, attrs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleScoreFactors scores an explicit factor set, bypassing derivation.
func (s *Server) handleScoreFactors(w http.ResponseWriter, r *http.Request) {
	kind, ok := scoring.ParseKind(r.PathValue("kind"))
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "unknown calculator: "+r.PathValue("kind"))
		return
	}

	var req types.ScoreFactorsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	factors, err := FactorSetFor(kind, req.Factors)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "factors", Message: err.Error()})
		return
	}
	override, err := WeightTableFor(kind, req.Weights)
	if err != nil {
		s.fail(w, r, &ErrValidation{Field: "weights", Message: err.Error()})
		return
	}

	engine, err := s.currentEngine(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := engine.ScoreFactors(kind, factors, override)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleRank scores a batch of requests by priority and returns them ranked.
// Each item supplies either explicit priority factors or an attribute bag.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := schemas.ValidateRankInput(body); err != nil {
		s.fail(w, r, schemaError(err))
		return
	}

	var req types.RankRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	engine, err := s.currentEngine(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ranked, err := engine.Rank(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ranking": ranked})
}

// readBody reads the request body up to maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &ErrValidation{Message: "Invalid request body"}
	}
	return body, nil
}

// decodeAttributes validates an attribute bag against its schema and decodes it.
func decodeAttributes(raw []byte) (*types.Attributes, error) {
	if err := schemas.ValidateAttributes(raw); err != nil {
		return nil, schemaError(err)
	}
	attrs, err := types.ParseAttributes(raw)
	if err != nil {
		return nil, &ErrValidation{Field: "attributes", Message: "must be a JSON object"}
	}
	return attrs, nil
}

// schemaError reports the first schema violation as a validation error.
// Failures to load a schema stay internal errors.
func schemaError(err error) error {
	var loadErr *schemas.SchemaLoadError
	if errors.As(err, &loadErr) {
		return err
	}
	var ve *schemas.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		return &ErrValidation{Field: ve.Errors[0].Field, Message: ve.Errors[0].Message}
	}
	return &ErrValidation{Message: err.Error()}
}
