// Package domain contains the core business types for evaluation-and-management (E/M)
// billing calculations: the billing code reference table, medical decision making (MDM)
// verdicts, revenue breakdowns and modifier appropriateness results.
//
// Every value in this package is transient. Values are built fresh for one calculation
// and never mutated afterwards.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ComplexityLevel is the MDM complexity verdict. Levels are ordered:
// Straightforward < Moderate < High.
type ComplexityLevel int

const (
	Straightforward ComplexityLevel = iota
	Moderate
	High
)

// String returns the lower-case level name used in logs and JSON.
func (l ComplexityLevel) String() string {
	switch l {
	case Straightforward:
		return "straightforward"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	default:
		return fmt.Sprintf("ComplexityLevel(%d)", int(l))
	}
}

// IsValid reports whether l is one of the three defined levels.
func (l ComplexityLevel) IsValid() bool {
	return l >= Straightforward && l <= High
}

// ParseComplexityLevel parses a level name, ignoring case.
func ParseComplexityLevel(s string) (ComplexityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "straightforward":
		return Straightforward, nil
	case "moderate":
		return Moderate, nil
	case "high":
		return High, nil
	default:
		return Straightforward, NewValidationError("level", "unknown complexity level", s)
	}
}

// MarshalJSON encodes the level as its name.
func (l ComplexityLevel) MarshalJSON() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("marshal complexity level: %w", ErrInvalidInput)
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name.
func (l *ComplexityLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseComplexityLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// CriterionTier is the complexity tier a checklist criterion counts toward.
type CriterionTier string

const (
	TierModerate CriterionTier = "moderate"
	TierHigh     CriterionTier = "high"
)

// IsValid validates the tier.
func (t CriterionTier) IsValid() bool {
	switch t {
	case TierModerate, TierHigh:
		return true
	default:
		return false
	}
}

// BillingCode is one row of the code/RVU reference table.
type BillingCode struct {
	ID          string  `json:"id" mapstructure:"id"`
	Description string  `json:"description" mapstructure:"description"`
	RVU         float64 `json:"rvu" mapstructure:"rvu"`
	Category    string  `json:"category,omitempty" mapstructure:"category"`
}

// Validate checks the reference-data guarantees: an id and a non-negative RVU.
func (c BillingCode) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return NewValidationError("id", "billing code id is required", c.ID)
	}
	if math.IsNaN(c.RVU) || math.IsInf(c.RVU, 0) || c.RVU < 0 {
		return NewValidationError("rvu", "RVU must be a non-negative number", c.RVU)
	}
	return nil
}

// ComplexityCriterion is one checkbox on the MDM worksheet.
type ComplexityCriterion struct {
	ID      string        `json:"id"`
	Tier    CriterionTier `json:"tier"`
	Label   string        `json:"label"`
	Checked bool          `json:"checked"`
}

// ComplexityVerdict is the output of the MDM classifier.
type ComplexityVerdict struct {
	Level          ComplexityLevel `json:"level"`
	SuggestedRange string          `json:"suggested_range"`
	Description    string          `json:"description"`
	ModerateCount  int             `json:"moderate_count"`
	HighCount      int             `json:"high_count"`
}

// SelectionKind separates the two mutually exclusive base-visit categories from add-ons.
type SelectionKind string

const (
	KindAddOn           SelectionKind = "addon"
	KindInitialVisit    SelectionKind = "initial_visit"
	KindSubsequentVisit SelectionKind = "subsequent_visit"
)

// IsValid accepts the empty kind, which means add-on.
func (k SelectionKind) IsValid() bool {
	switch k {
	case "", KindAddOn, KindInitialVisit, KindSubsequentVisit:
		return true
	default:
		return false
	}
}

// IsBaseVisit reports whether k is one of the partitioned base-visit kinds.
func (k SelectionKind) IsBaseVisit() bool {
	return k == KindInitialVisit || k == KindSubsequentVisit
}

// VolumeBasis names the patient population an add-on percentage applies to.
type VolumeBasis string

const (
	BasisTotal      VolumeBasis = "total"
	BasisInitial    VolumeBasis = "initial"
	BasisSubsequent VolumeBasis = "subsequent"
)

// IsValid accepts the empty basis, which means total.
func (b VolumeBasis) IsValid() bool {
	switch b {
	case "", BasisTotal, BasisInitial, BasisSubsequent:
		return true
	default:
		return false
	}
}

// ServiceSelection is one row of a revenue calculator form.
type ServiceSelection struct {
	CodeID     string        `json:"code_id"`
	Enabled    bool          `json:"enabled"`
	Percentage float64       `json:"percentage"`
	Kind       SelectionKind `json:"kind,omitempty"`
	Basis      VolumeBasis   `json:"basis,omitempty"`
	Label      string        `json:"label,omitempty"`
}

// ServiceLineItem is one emitted row of a revenue breakdown.
// Revenue is always Count * RVU * conversion factor.
type ServiceLineItem struct {
	CodeID      string  `json:"code_id"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	RVU         float64 `json:"rvu"`
	Revenue     float64 `json:"revenue"`
}

// RevenueBreakdown is the aggregated result of a revenue calculation.
type RevenueBreakdown struct {
	PatientCount     int               `json:"patient_count"`
	ConversionFactor float64           `json:"conversion_factor"`
	LineItems        []ServiceLineItem `json:"line_items"`
	TotalRVU         float64           `json:"total_rvu"`
	Total            float64           `json:"total"`
}

// AppropriatenessResult is the verdict of a modifier checklist.
type AppropriatenessResult struct {
	Appropriate    bool     `json:"appropriate"`
	SatisfiedCount int      `json:"satisfied_count"`
	Threshold      int      `json:"threshold"`
	ChecklistID    string   `json:"checklist_id,omitempty"`
	UnmetItems     []string `json:"unmet_items,omitempty"`
}

// Role is the mock subscription role of a session.
type Role string

const (
	RoleFree Role = "free"
	RolePaid Role = "paid"
)

// IsValid validates the role.
func (r Role) IsValid() bool {
	return r == RoleFree || r == RolePaid
}

// Session is the caller identity resolved from a session token.
type Session struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role"`
}

// IsPaid reports whether the session may see premium content.
func (s *Session) IsPaid() bool {
	return s != nil && s.Role == RolePaid
}
