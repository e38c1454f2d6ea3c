package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/middleware"
	"github.com/em-billing-mcp-server/internal/service"
)

// ClassifyMDMRequest accepts either raw tallies or checked criterion ids.
// When Criteria is non-empty the tallies are ignored.
type ClassifyMDMRequest struct {
	ModerateCount int      `json:"moderate_count"`
	HighCount     int      `json:"high_count"`
	Criteria      []string `json:"criteria,omitempty"`
}

// EncounterRequest lists the codes billed for one encounter.
type EncounterRequest struct {
	Codes            []string `json:"codes"`
	ConversionFactor float64  `json:"conversion_factor,omitempty"`
}

// ScoreRequest is a free-form checklist evaluation.
type ScoreRequest struct {
	Criteria  []bool `json:"criteria"`
	Threshold int    `json:"threshold"`
}

// ModifierScoreRequest answers a built-in modifier checklist.
type ModifierScoreRequest struct {
	Answers []bool `json:"answers"`
}

// ModuleView is a course module annotated for the caller.
type ModuleView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Sections   int    `json:"sections"`
	Premium    bool   `json:"premium"`
	Accessible bool   `json:"accessible"`
}

func (s *Server) handleHealth(c *gin.Context) {
	registry := s.calculator.Registry()
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"timestamp":         time.Now().UTC(),
		"version":           Version,
		"code_table_source": registry.SourceName(),
		"code_count":        registry.Snapshot().Len(),
	})
}

func (s *Server) handleListCodes(c *gin.Context) {
	codes := s.calculator.Codes(c.Request.Context(), c.Query("category"))
	c.JSON(http.StatusOK, gin.H{"codes": codes, "count": len(codes)})
}

func (s *Server) handleGetCode(c *gin.Context) {
	code, err := s.calculator.LookupCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

func (s *Server) handleMDMCriteria(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"criteria": service.CriteriaCatalog()})
}

func (s *Server) handleClassifyMDM(c *gin.Context) {
	var req ClassifyMDMRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var (
		verdict domain.ComplexityVerdict
		err     error
	)
	if len(req.Criteria) > 0 {
		verdict, err = s.calculator.ClassifyChecklist(c.Request.Context(), req.Criteria)
	} else {
		verdict, err = s.calculator.ClassifyMDM(c.Request.Context(), req.ModerateCount, req.HighCount)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleAggregate(c *gin.Context) {
	var req service.AggregateRequest
	if !s.bindJSON(c, &req) {
		return
	}
	breakdown, err := s.calculator.Aggregate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (s *Server) handleWellnessDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conversion_factor": s.calculator.ConversionFactor(),
		"add_ons":           service.DefaultWellnessAddOns(),
	})
}

func (s *Server) handleWellness(c *gin.Context) {
	var req service.WellnessProjection
	if !s.bindJSON(c, &req) {
		return
	}
	breakdown, err := s.calculator.ProjectWellnessRevenue(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (s *Server) handleEncounter(c *gin.Context) {
	var req EncounterRequest
	if !s.bindJSON(c, &req) {
		return
	}
	breakdown, err := s.calculator.CalculateEncounter(c.Request.Context(), req.Codes, req.ConversionFactor)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (s *Server) handleListModifiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"checklists": service.Checklists()})
}

func (s *Server) handleScoreModifier(c *gin.Context) {
	var req ModifierScoreRequest
	if !s.bindJSON(c, &req) {
		return
	}
	result, err := s.calculator.ScoreModifier(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScore(c *gin.Context) {
	var req ScoreRequest
	if !s.bindJSON(c, &req) {
		return
	}
	result, err := s.calculator.Score(c.Request.Context(), req.Criteria, req.Threshold)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListModules(c *gin.Context) {
	session := middleware.SessionFrom(c)
	catalog := s.tracker.Catalog()

	modules := catalog.Modules()
	views := make([]ModuleView, 0, len(modules))
	for _, m := range modules {
		views = append(views, ModuleView{
			ID:         m.ID,
			Title:      m.Title,
			Sections:   m.Sections,
			Premium:    m.Premium,
			Accessible: catalog.CanAccess(session, m),
		})
	}
	c.JSON(http.StatusOK, gin.H{"modules": views})
}

func (s *Server) handleGetProgress(c *gin.Context) {
	summary, err := s.tracker.Summary(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCompleteModule(c *gin.Context) {
	completion, err := s.tracker.Complete(c.Request.Context(), middleware.SessionFrom(c), c.Param("module"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

func (s *Server) handleUncompleteModule(c *gin.Context) {
	if err := s.tracker.Uncomplete(c.Request.Context(), middleware.SessionFrom(c), c.Param("module")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReloadCodes(c *gin.Context) {
	n, err := s.calculator.ReloadCodes(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":     s.calculator.Registry().SourceName(),
		"code_count": n,
	})
}
