// Package server exposes the ingestion, retrieval and decision-support
// operations over HTTP with gin.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/ingest"
	"github.com/antigravity/decision-support/retrieval"
	"github.com/antigravity/decision-support/support"
)

// Server routes API requests to the pipeline, engine and façade.
type Server struct {
	pipeline  *ingest.Pipeline
	retriever *retrieval.Engine
	service   *support.Service
}

// New creates a server over the given components.
func New(pipeline *ingest.Pipeline, retriever *retrieval.Engine, service *support.Service) *Server {
	return &Server{pipeline: pipeline, retriever: retriever, service: service}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(requestID())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/", s.index)
		api.POST("/ingest/case-study", s.ingestCaseStudy)
		api.POST("/memory/retrieve", s.retrieve)
		api.POST("/reasoning/decision-support", s.decisionSupport)
	}
	return r
}

// requestID tags every request so log lines from one call correlate.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "disaster-response decision support",
		"endpoints": []string{
			"POST /api/ingest/case-study",
			"POST /api/memory/retrieve",
			"POST /api/reasoning/decision-support",
			"GET /health",
		},
	})
}

// ingestRequest tolerates the field spellings older clients still send:
// raw_text or text, case_study_id or case_id.
type ingestRequest struct {
	CaseStudyID string `json:"case_study_id"`
	CaseID      string `json:"case_id"`
	RawText     string `json:"raw_text"`
	Text        string `json:"text"`
	SourceID    string `json:"source_id"`
}

func (r *ingestRequest) caseStudyID() string {
	if r.CaseStudyID != "" {
		return r.CaseStudyID
	}
	return r.CaseID
}

func (r *ingestRequest) rawText() string {
	if r.RawText != "" {
		return r.RawText
	}
	return r.Text
}

// ingestCaseStudy handles POST /api/ingest/case-study. The replace=true
// query parameter re-ingests the case from scratch.
func (s *Server) ingestCaseStudy(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, core.Validationf("invalid request body: %v", err))
		return
	}

	var (
		result *ingest.Result
		err    error
	)
	if c.Query("replace") == "true" {
		result, err = s.pipeline.Reingest(c.Request.Context(), req.caseStudyID(), req.rawText(), req.SourceID)
	} else {
		result, err = s.pipeline.Ingest(c.Request.Context(), req.caseStudyID(), req.rawText(), req.SourceID)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            result.Status,
		"case_study_id":     req.caseStudyID(),
		"snapshots_created": result.SnapshotsCreated,
	})
}

type retrieveRequest struct {
	QueryText string `json:"query_text"`
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
}

func (r *retrieveRequest) queryText() string {
	if r.QueryText != "" {
		return r.QueryText
	}
	return r.Query
}

// retrieveEntry flattens the matched snapshot into the response entry, so
// clients get the full snapshot fields alongside the score. The embedding
// never leaves the store.
type retrieveEntry struct {
	CaseStudyID          string   `json:"case_study_id"`
	SimilarityScore      float64  `json:"similarity_score"`
	SourceID             string   `json:"source_id"`
	InferredTimeWindow   string   `json:"inferred_time_window"`
	LocationContext      string   `json:"location_context,omitempty"`
	DecisionContext      string   `json:"decision_context"`
	RisksPerceived       []string `json:"risks_perceived"`
	ActionsConsidered    []string `json:"actions_considered,omitempty"`
	ActionTakenNarrative string   `json:"action_taken_narrative"`
}

// retrieve handles POST /api/memory/retrieve.
func (s *Server) retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, core.Validationf("invalid request body: %v", err))
		return
	}
	if req.TopK == 0 {
		req.TopK = 5
	}

	results, err := s.retriever.Retrieve(c.Request.Context(), req.queryText(), req.TopK)
	if err != nil {
		writeError(c, err)
		return
	}

	entries := make([]retrieveEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, retrieveEntry{
			CaseStudyID:          r.CaseStudyID,
			SimilarityScore:      r.SimilarityScore,
			SourceID:             r.Snapshot.SourceID,
			InferredTimeWindow:   r.Snapshot.InferredTimeWindow,
			LocationContext:      r.Snapshot.LocationContext,
			DecisionContext:      r.Snapshot.DecisionContext,
			RisksPerceived:       r.Snapshot.RisksPerceived,
			ActionsConsidered:    r.Snapshot.ActionsConsidered,
			ActionTakenNarrative: r.Snapshot.ActionTakenNarrative,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": entries, "count": len(entries)})
}

// supportRequest takes current_narrative, tolerating the spellings older
// clients still send.
type supportRequest struct {
	CurrentNarrative   string `json:"current_narrative"`
	SituationNarrative string `json:"situation_narrative"`
	Narrative          string `json:"narrative"`
}

func (r *supportRequest) narrative() string {
	if r.CurrentNarrative != "" {
		return r.CurrentNarrative
	}
	if r.SituationNarrative != "" {
		return r.SituationNarrative
	}
	return r.Narrative
}

// decisionSupport handles POST /api/reasoning/decision-support.
func (s *Server) decisionSupport(c *gin.Context) {
	var req supportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, core.Validationf("invalid request body: %v", err))
		return
	}

	resp, err := s.service.Support(c.Request.Context(), req.narrative())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
		code = "VALIDATION"
	case errors.Is(err, core.ErrRetrievalUnavailable), errors.Is(err, core.ErrIngestionFailed):
		status = http.StatusServiceUnavailable
		code = "UNAVAILABLE"
	case errors.Is(err, core.ErrProvider):
		status = http.StatusBadGateway
		code = "PROVIDER"
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}
