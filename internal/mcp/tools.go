package mcp

import (
	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/service"
)

// ToolKind enumerates the tools the server exposes. The set is closed:
// registration switches over every kind and fails on anything else.
type ToolKind int

const (
	ToolClassifyMDM ToolKind = iota
	ToolCalculateRevenue
	ToolProjectWellnessRevenue
	ToolScoreModifier
	ToolLookupCode

	toolKindCount
)

// AllTools returns every tool kind in registration order.
func AllTools() []ToolKind {
	kinds := make([]ToolKind, 0, toolKindCount)
	for k := ToolKind(0); k < toolKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the MCP tool name.
func (k ToolKind) String() string {
	switch k {
	case ToolClassifyMDM:
		return "classify_mdm"
	case ToolCalculateRevenue:
		return "calculate_revenue"
	case ToolProjectWellnessRevenue:
		return "project_wellness_revenue"
	case ToolScoreModifier:
		return "score_modifier"
	case ToolLookupCode:
		return "lookup_code"
	default:
		return "unknown"
	}
}

// Description is the tool description shown to MCP clients.
func (k ToolKind) Description() string {
	switch k {
	case ToolClassifyMDM:
		return "Classify medical decision making complexity from moderate/high criterion tallies or checked worksheet criterion ids, and suggest the E/M code range."
	case ToolCalculateRevenue:
		return "Aggregate projected revenue for a patient panel from service selections (initial/subsequent base visits and percentage-based add-ons) priced by RVU and conversion factor."
	case ToolProjectWellnessRevenue:
		return "Project annual wellness visit revenue (G0438/G0439) from a patient count and initial visit percentage, with optional add-on services."
	case ToolScoreModifier:
		return "Score a modifier appropriateness checklist (modifier-25, modifier-59) or a free-form list of answers against a threshold."
	case ToolLookupCode:
		return "Look up a billing code's description, RVU and category, or list codes by category."
	default:
		return ""
	}
}

// ClassifyMDMParams are the classify_mdm arguments. Criteria, when present,
// takes precedence over the tallies.
type ClassifyMDMParams struct {
	ModerateCount int      `json:"moderate_count,omitempty"`
	HighCount     int      `json:"high_count,omitempty"`
	Criteria      []string `json:"criteria,omitempty"`
}

// CalculateRevenueParams are the calculate_revenue arguments.
type CalculateRevenueParams struct {
	PatientCount     int                       `json:"patient_count"`
	ConversionFactor float64                   `json:"conversion_factor,omitempty"`
	Selections       []domain.ServiceSelection `json:"selections"`
}

// ProjectWellnessParams are the project_wellness_revenue arguments.
type ProjectWellnessParams = service.WellnessProjection

// ScoreModifierParams are the score_modifier arguments. Without a checklist
// id the answers are scored against Threshold.
type ScoreModifierParams struct {
	ChecklistID string `json:"checklist_id,omitempty"`
	Answers     []bool `json:"answers"`
	Threshold   int    `json:"threshold,omitempty"`
}

// LookupCodeParams are the lookup_code arguments. An empty code id lists
// the table, filtered by Category when set.
type LookupCodeParams struct {
	CodeID   string `json:"code_id,omitempty"`
	Category string `json:"category,omitempty"`
}
