package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/middleware"
	"github.com/consult-assist-server/internal/roster"
)

// StartConsultationRequest is the body of POST /consultations.
type StartConsultationRequest struct {
	PatientID string `json:"patient_id" binding:"required"`
}

// SubmitTurnRequest is the body of POST /consultations/:id/turns and of WebSocket frames.
type SubmitTurnRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// SelectSuggestionRequest is the body of POST /suggestions/select.
type SelectSuggestionRequest struct {
	Suggestion domain.Suggestion `json:"suggestion"`
}

// SelectSuggestionResponse carries the question to prefill into the next doctor turn.
type SelectSuggestionResponse struct {
	Question string `json:"question"`
}

// statusFor maps a consultation error onto an HTTP status.
func statusFor(err error) int {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeInvalidInput, domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNoActivePatient:
		return http.StatusConflict
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes an APIError body. Internal errors are logged and their details withheld.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	correlationID := c.GetString(middleware.CorrelationIDKey)

	details := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"path":           c.FullPath(),
		}).WithError(err).Error("Request failed")
		details = ""
	}

	message := http.StatusText(status)
	code := domain.ErrorCode(err)
	if status == http.StatusRequestTimeout {
		code = domain.ErrCodeTimeout
		message = "Request timed out before it was applied"
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, correlationID))
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.healthChecks))
	for name, check := range s.healthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":               status,
		"checks":               checks,
		"active_consultations": s.consultations.ActiveConsultations(),
		"timestamp":            time.Now().UTC(),
		"version":              s.configManager.GetConfig().MCP.ServerVersion,
	})
}

func (s *Server) handleListPatients(c *gin.Context) {
	var (
		patients []*domain.PatientProfile
		err      error
	)
	if condition := c.Query("condition"); condition != "" {
		patients, err = roster.ListByCondition(c.Request.Context(), s.directory, condition)
	} else {
		patients, err = s.directory.ListPatients(c.Request.Context())
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients, "count": len(patients)})
}

func (s *Server) handleRiskSummary(c *gin.Context) {
	patients, err := s.directory.ListPatients(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster.RiskSummary(patients))
}

func (s *Server) handleGetPatient(c *gin.Context) {
	patient, err := s.directory.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) handleStartConsultation(c *gin.Context) {
	var req StartConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("patient_id", "patient_id is required", nil))
		return
	}

	handle, err := s.consultations.StartConsultation(c.Request.Context(), req.PatientID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handle)
}

func (s *Server) handleGetConsultation(c *gin.Context) {
	snapshot, err := s.consultations.GetConsultation(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleDiscardConsultation(c *gin.Context) {
	if err := s.consultations.DiscardConsultation(c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSubmitTurn(c *gin.Context) {
	var req SubmitTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", "malformed turn", nil))
		return
	}

	speaker, err := domain.ParseSpeaker(req.Speaker)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.consultations.SubmitTurn(c.Request.Context(), c.Param("id"), speaker, req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEndConsultation(c *gin.Context) {
	summary, err := s.consultations.EndConsultation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleGetSummary(c *gin.Context) {
	summary, err := s.consultations.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleSelectSuggestion(c *gin.Context) {
	var req SelectSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("suggestion", "malformed suggestion", nil))
		return
	}
	c.JSON(http.StatusOK, SelectSuggestionResponse{Question: s.consultations.SelectSuggestion(req.Suggestion)})
}

func (s *Server) handleListRules(c *gin.Context) {
	rules := s.consultations.Rules()
	c.JSON(http.StatusOK, gin.H{"rules": rules, "count": len(rules)})
}
