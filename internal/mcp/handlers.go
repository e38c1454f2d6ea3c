package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/service"
)

func (s *Server) handleClassifyMDM(ctx context.Context, req *mcp.CallToolRequest, params ClassifyMDMParams) (*mcp.CallToolResult, any, error) {
	var (
		verdict domain.ComplexityVerdict
		err     error
	)
	if len(params.Criteria) > 0 {
		verdict, err = s.calculator.ClassifyChecklist(ctx, params.Criteria)
	} else {
		verdict, err = s.calculator.ClassifyMDM(ctx, params.ModerateCount, params.HighCount)
	}
	if err != nil {
		return s.createErrorResult("MDM classification failed", err), nil, nil
	}
	return s.createJSONResult(verdict)
}

func (s *Server) handleCalculateRevenue(ctx context.Context, req *mcp.CallToolRequest, params CalculateRevenueParams) (*mcp.CallToolResult, any, error) {
	breakdown, err := s.calculator.Aggregate(ctx, service.AggregateRequest{
		PatientCount:     params.PatientCount,
		ConversionFactor: params.ConversionFactor,
		Selections:       params.Selections,
	})
	if err != nil {
		return s.createErrorResult("revenue calculation failed", err), nil, nil
	}
	return s.createJSONResult(breakdown)
}

func (s *Server) handleProjectWellnessRevenue(ctx context.Context, req *mcp.CallToolRequest, params ProjectWellnessParams) (*mcp.CallToolResult, any, error) {
	breakdown, err := s.calculator.ProjectWellnessRevenue(ctx, params)
	if err != nil {
		return s.createErrorResult("wellness projection failed", err), nil, nil
	}
	return s.createJSONResult(breakdown)
}

func (s *Server) handleScoreModifier(ctx context.Context, req *mcp.CallToolRequest, params ScoreModifierParams) (*mcp.CallToolResult, any, error) {
	var (
		result domain.AppropriatenessResult
		err    error
	)
	if params.ChecklistID != "" {
		result, err = s.calculator.ScoreModifier(ctx, params.ChecklistID, params.Answers)
	} else {
		result, err = s.calculator.Score(ctx, params.Answers, params.Threshold)
	}
	if err != nil {
		return s.createErrorResult("modifier scoring failed", err), nil, nil
	}
	return s.createJSONResult(result)
}

func (s *Server) handleLookupCode(ctx context.Context, req *mcp.CallToolRequest, params LookupCodeParams) (*mcp.CallToolResult, any, error) {
	if params.CodeID == "" {
		codes := s.calculator.Codes(ctx, params.Category)
		return s.createJSONResult(map[string]any{"codes": codes, "count": len(codes)})
	}

	code, err := s.calculator.LookupCode(ctx, params.CodeID)
	if err != nil {
		return s.createErrorResult("code lookup failed", err), nil, nil
	}
	return s.createJSONResult(code)
}

// createJSONResult renders v as indented JSON text content.
func (s *Server) createJSONResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
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
