package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/roster"
	"github.com/consult-assist-server/internal/service"
)

// ListPatientsParams defines parameters for list_patients tool
type ListPatientsParams struct {
	RiskLevel string `json:"risk_level,omitempty" jsonschema:"only list patients with this risk level (low, medium, high)"`
	Condition string `json:"condition,omitempty" jsonschema:"only list patients diagnosed with this condition"`
}

// ListPatientsResult defines the result structure for list_patients tool
type ListPatientsResult struct {
	Patients    []*domain.PatientProfile `json:"patients"`
	RiskSummary roster.RiskCounts        `json:"risk_summary"`
}

// StartConsultationParams defines parameters for start_consultation tool
type StartConsultationParams struct {
	PatientID string `json:"patient_id" jsonschema:"roster id of the patient"`
}

// ConsultationParams identifies a consultation
type ConsultationParams struct {
	ConsultationID string `json:"consultation_id" jsonschema:"id returned by start_consultation"`
}

// SubmitTurnParams defines parameters for submit_turn tool
type SubmitTurnParams struct {
	ConsultationID string `json:"consultation_id" jsonschema:"id returned by start_consultation"`
	Speaker        string `json:"speaker" jsonschema:"Doctor or Patient"`
	Text           string `json:"text" jsonschema:"what was said"`
}

// SelectSuggestionParams defines parameters for select_suggestion tool
type SelectSuggestionParams struct {
	Suggestion domain.Suggestion `json:"suggestion" jsonschema:"a suggestion returned by submit_turn"`
}

// ListRulesParams defines parameters for list_rules tool
type ListRulesParams struct {
	Condition string `json:"condition,omitempty" jsonschema:"only list rules for this condition"`
}

func (s *Server) handleListPatients(ctx context.Context, req *mcp.CallToolRequest, params ListPatientsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_patients").Info("Tool invoked")

	var (
		patients []*domain.PatientProfile
		err      error
	)
	if params.Condition != "" {
		patients, err = roster.ListByCondition(ctx, s.directory, params.Condition)
	} else {
		patients, err = s.directory.ListPatients(ctx)
	}
	if err != nil {
		return s.createErrorResult("Failed to list patients", err), nil, nil
	}

	if params.RiskLevel != "" {
		level := domain.RiskLevel(params.RiskLevel)
		if !level.IsValid() {
			return s.createErrorResult("Invalid parameters", fmt.Errorf("unknown risk level %q", params.RiskLevel)), nil, nil
		}
		filtered := make([]*domain.PatientProfile, 0, len(patients))
		for _, p := range patients {
			if p.RiskLevel == level {
				filtered = append(filtered, p)
			}
		}
		patients = filtered
	}

	return s.createJSONResult(ListPatientsResult{Patients: patients, RiskSummary: roster.RiskSummary(patients)})
}

func (s *Server) handleStartConsultation(ctx context.Context, req *mcp.CallToolRequest, params StartConsultationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "start_consultation").Info("Tool invoked")

	if params.PatientID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("patient_id is required")), nil, nil
	}

	handle, err := s.consultations.StartConsultation(ctx, params.PatientID)
	if err != nil {
		return s.createErrorResult("Failed to start consultation", err), nil, nil
	}
	return s.createJSONResult(handle)
}

func (s *Server) handleSubmitTurn(ctx context.Context, req *mcp.CallToolRequest, params SubmitTurnParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":            "submit_turn",
		"consultation_id": params.ConsultationID,
	}).Info("Tool invoked")

	speaker, err := domain.ParseSpeaker(params.Speaker)
	if err != nil {
		return s.createErrorResult("Invalid parameters", err), nil, nil
	}

	result, err := s.consultations.SubmitTurn(ctx, params.ConsultationID, speaker, params.Text)
	if err != nil {
		return s.createErrorResult("Turn not applied", err), nil, nil
	}
	return s.createJSONResult(result)
}

func (s *Server) handleGetConsultation(ctx context.Context, req *mcp.CallToolRequest, params ConsultationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_consultation").Info("Tool invoked")

	snapshot, err := s.consultations.GetConsultation(params.ConsultationID)
	if err != nil {
		return s.createErrorResult("Failed to get consultation", err), nil, nil
	}
	return s.createJSONResult(snapshot)
}

func (s *Server) handleSelectSuggestion(ctx context.Context, req *mcp.CallToolRequest, params SelectSuggestionParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "select_suggestion").Info("Tool invoked")

	if params.Suggestion.Question == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("suggestion.question is required")), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: s.consultations.SelectSuggestion(params.Suggestion)},
		},
	}, nil, nil
}

func (s *Server) handleEndConsultation(ctx context.Context, req *mcp.CallToolRequest, params ConsultationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "end_consultation").Info("Tool invoked")

	summary, err := s.consultations.EndConsultation(ctx, params.ConsultationID)
	if err != nil {
		return s.createErrorResult("Failed to end consultation", err), nil, nil
	}
	return s.createJSONResult(summary)
}

func (s *Server) handleDiscardConsultation(ctx context.Context, req *mcp.CallToolRequest, params ConsultationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "discard_consultation").Info("Tool invoked")

	if err := s.consultations.DiscardConsultation(params.ConsultationID); err != nil {
		return s.createErrorResult("Failed to discard consultation", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Discarded consultation " + params.ConsultationID}},
	}, nil, nil
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, params ListRulesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_rules").Info("Tool invoked")

	rules := s.consultations.Rules()
	if params.Condition != "" {
		filtered := make([]service.SuggestionRule, 0, len(rules))
		for _, r := range rules {
			if r.Condition == params.Condition {
				filtered = append(filtered, r)
			}
		}
		rules = filtered
	}
	return s.createJSONResult(rules)
}

// createJSONResult renders a value as indented JSON text content.
func (s *Server) createJSONResult(v interface{}) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %s: %v", domain.ErrorCode(err), err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
