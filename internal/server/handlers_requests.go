package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/change-scorer/internal/db"
	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/jonathan/change-scorer/internal/server/middleware"
	"github.com/jonathan/change-scorer/internal/types"
)

// maxPageSize caps the limit query parameter.
const maxPageSize = 500

var validStatuses = []string{
	types.StatusDraft, types.StatusSubmitted, types.StatusApproved,
	types.StatusRejected, types.StatusCompleted,
}

// RankingEntry is one row of GET /requests/ranking.
type RankingEntry struct {
	Rank          int           `json:"rank"`
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Status        string        `json:"status"`
	PriorityScore float64       `json:"priority_score"`
	RiskLevel     scoring.Level `json:"risk_level,omitempty"`
	EffortLevel   scoring.Level `json:"effort_level,omitempty"`
	BenefitScore  *float64      `json:"benefit_score,omitempty"`
	Scores        db.ScoreSet   `json:"scores"`
}

// handleCreateRequest stores a new change request and scores it.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req types.CreateChangeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}
	if _, err := decodeAttributes(req.Attributes); err != nil {
		s.fail(w, r, err)
		return
	}

	in := db.NewChangeRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Attributes:  req.Attributes,
	}
	if userID, err := middleware.GetUserID(r); err == nil {
		in.CreatedBy = &userID
	}

	created, err := s.store.CreateChangeRequest(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	scored, err := s.recalculator.One(r.Context(), created.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("change request created", "id", scored.ID, "priority", scored.Scores.Priority.Score)
	s.jsonResponse(w, http.StatusCreated, scored)
}

// handleListRequests lists stored requests, newest first.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	requests, err := s.store.ListChangeRequests(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if requests == nil {
		requests = []db.ChangeRequest{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
}

// handleGetRequest returns one stored request with its scores.
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cr, err := s.store.GetChangeRequest(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cr == nil {
		s.fail(w, r, &ErrNotFound{Resource: "change request", ID: id.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, cr)
}

// handleUpdateRequest applies a partial update. New attributes are re-scored.
func (s *Server) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req types.UpdateChangeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}
	if len(req.Attributes) > 0 {
		if _, err := decodeAttributes(req.Attributes); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	updated, err := s.store.UpdateChangeRequest(r.Context(), id, db.ChangeRequestUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Attributes:  req.Attributes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if updated == nil {
		s.fail(w, r, &ErrNotFound{Resource: "change request", ID: id.String()})
		return
	}

	if len(req.Attributes) > 0 {
		updated, err = s.recalculator.One(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

// handleDeleteRequest removes a stored request.
func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	deleted, err := s.store.DeleteChangeRequest(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !deleted {
		s.fail(w, r, &ErrNotFound{Resource: "change request", ID: id.String()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecalculateRequest re-scores one stored request.
func (s *Server) handleRecalculateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cr, err := s.recalculator.One(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cr)
}

// handleRecalculateAll re-scores every stored request, optionally narrowed by
// ?status=.
func (s *Server) handleRecalculateAll(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	summary, err := s.recalculator.All(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

// handleRequestRanking lists scored requests by stored priority, highest
// first. Requests that were never scored are left out.
func (s *Server) handleRequestRanking(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	requests, err := s.store.ListByPriority(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ranking := make([]RankingEntry, 0, len(requests))
	for _, cr := range requests {
		if cr.Scores.Priority == nil {
			continue
		}
		entry := RankingEntry{
			Rank:          filter.Offset + len(ranking) + 1,
			ID:            cr.ID,
			Title:         cr.Title,
			Status:        cr.Status,
			PriorityScore: cr.Scores.Priority.Score,
			Scores:        cr.Scores,
		}
		if cr.Scores.Risk != nil {
			entry.RiskLevel = cr.Scores.Risk.Level
		}
		if cr.Scores.Effort != nil {
			entry.EffortLevel = cr.Scores.Effort.Level
		}
		if cr.Scores.Benefit != nil {
			entry.BenefitScore = &cr.Scores.Benefit.Score
		}
		ranking = append(ranking, entry)
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"ranking": ranking})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

// parseListFilter reads ?status=, ?limit= and ?offset=.
func parseListFilter(r *http.Request) (db.ListFilter, error) {
	q := r.URL.Query()
	filter := db.ListFilter{Status: q.Get("status")}

	if filter.Status != "" && !slices.Contains(validStatuses, filter.Status) {
		return filter, &ErrValidation{Field: "status", Message: "unknown status " + strconv.Quote(filter.Status)}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return filter, &ErrValidation{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxPageSize)}
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, &ErrValidation{Field: "offset", Message: "must be a non-negative integer"}
		}
		filter.Offset = n
	}
	return filter, nil
}
