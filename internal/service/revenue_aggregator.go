package service

import (
	"math"
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Annual wellness visit base codes.
const (
	CodeInitialAWV    = "G0438"
	CodeSubsequentAWV = "G0439"
)

// DefaultConversionFactor is the Medicare physician fee schedule conversion factor
// used when a caller does not supply one.
const DefaultConversionFactor = 34.0096

// RoundHalfAwayFromZero rounds v to the nearest integer, halves away from zero.
func RoundHalfAwayFromZero(v float64) int {
	return int(math.Round(v))
}

// RoundCents rounds a monetary amount to cents for display. Totals are never stored rounded.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentOf returns round(base * percentage / 100).
func percentOf(base int, percentage float64) int {
	return RoundHalfAwayFromZero(float64(base) * percentage / 100)
}

// Aggregate prices every enabled selection against the code table.
//
// Base visits partition patientCount: the initial count is rounded from its
// percentage and the subsequent count absorbs the remainder. Add-ons are
// percentages of patientCount unless their basis names one base-visit subset.
// Nothing is returned on failure.
func Aggregate(table domain.CodeTableProvider, patientCount int, conversionFactor float64, selections []domain.ServiceSelection) (*domain.RevenueBreakdown, error) {
	if table == nil {
		return nil, domain.NewValidationError("code_table", "code table is required", nil)
	}
	if err := validateAggregateInput(patientCount, conversionFactor, selections); err != nil {
		return nil, err
	}

	initialCount, subsequentCount := partitionBaseVisits(patientCount, selections)

	breakdown := &domain.RevenueBreakdown{
		PatientCount:     patientCount,
		ConversionFactor: conversionFactor,
		LineItems:        make([]domain.ServiceLineItem, 0, len(selections)),
	}

	for _, sel := range selections {
		if !sel.Enabled {
			continue
		}

		code, ok := table.Lookup(sel.CodeID)
		if !ok {
			return nil, &domain.UnknownCodeError{CodeID: sel.CodeID}
		}
		if code.RVU < 0 {
			return nil, domain.NewValidationError("rvu", "code table returned a negative RVU", code.ID)
		}

		var count int
		switch sel.Kind {
		case domain.KindInitialVisit:
			count = initialCount
		case domain.KindSubsequentVisit:
			count = subsequentCount
		default:
			count = percentOf(basisVolume(sel.Basis, patientCount, initialCount, subsequentCount), sel.Percentage)
		}

		revenue := float64(count) * code.RVU * conversionFactor
		breakdown.LineItems = append(breakdown.LineItems, domain.ServiceLineItem{
			CodeID:      code.ID,
			Description: code.Description,
			Count:       count,
			RVU:         code.RVU,
			Revenue:     revenue,
		})
		breakdown.TotalRVU += float64(count) * code.RVU
		breakdown.Total += revenue
	}

	return breakdown, nil
}

func validateAggregateInput(patientCount int, conversionFactor float64, selections []domain.ServiceSelection) error {
	if patientCount <= 0 {
		return domain.NewValidationError("patient_count", "patient count must be positive", patientCount)
	}
	if err := validateConversionFactor(conversionFactor); err != nil {
		return err
	}

	seenBase := make(map[domain.SelectionKind]bool, 2)
	for _, sel := range selections {
		if !sel.Kind.IsValid() {
			return domain.NewValidationError("kind", "unknown selection kind", string(sel.Kind))
		}
		if !sel.Basis.IsValid() {
			return domain.NewValidationError("basis", "unknown volume basis", string(sel.Basis))
		}
		if !sel.Enabled {
			continue
		}
		if strings.TrimSpace(sel.CodeID) == "" {
			return domain.NewValidationError("code_id", "billing code id is required", sel.CodeID)
		}
		if math.IsNaN(sel.Percentage) || sel.Percentage < 0 || sel.Percentage > 100 {
			return domain.NewValidationError("percentage", "percentage must be between 0 and 100", sel.Percentage)
		}
		if sel.Kind.IsBaseVisit() {
			if sel.Basis != "" && sel.Basis != domain.BasisTotal {
				return domain.NewValidationError("basis", "base visits always apply to the total patient count", string(sel.Basis))
			}
			if seenBase[sel.Kind] {
				return domain.NewValidationError("kind", "base visit category selected more than once", string(sel.Kind))
			}
			seenBase[sel.Kind] = true
		}
	}
	return nil
}

func validateConversionFactor(cf float64) error {
	if math.IsNaN(cf) || math.IsInf(cf, 0) || cf <= 0 {
		return domain.NewValidationError("conversion_factor", "conversion factor must be a positive number", cf)
	}
	return nil
}

// partitionBaseVisits splits patientCount so initial + subsequent == patientCount.
// Without an enabled initial selection every patient is subsequent.
func partitionBaseVisits(patientCount int, selections []domain.ServiceSelection) (initial, subsequent int) {
	for _, sel := range selections {
		if sel.Enabled && sel.Kind == domain.KindInitialVisit {
			initial = percentOf(patientCount, sel.Percentage)
			break
		}
	}
	return initial, patientCount - initial
}

func basisVolume(basis domain.VolumeBasis, total, initial, subsequent int) int {
	switch basis {
	case domain.BasisInitial:
		return initial
	case domain.BasisSubsequent:
		return subsequent
	default:
		return total
	}
}

// WellnessProjection is the input of the annual wellness visit revenue tool.
type WellnessProjection struct {
	PatientCount      int                       `json:"patient_count"`
	InitialPercentage float64                   `json:"initial_percentage"`
	ConversionFactor  float64                   `json:"conversion_factor,omitempty"`
	AddOns            []domain.ServiceSelection `json:"add_ons,omitempty"`
}

// ProjectWellnessRevenue builds the initial/subsequent AWV pair from the initial
// percentage and aggregates it with the add-ons.
func ProjectWellnessRevenue(table domain.CodeTableProvider, p WellnessProjection) (*domain.RevenueBreakdown, error) {
	if math.IsNaN(p.InitialPercentage) || p.InitialPercentage < 0 || p.InitialPercentage > 100 {
		return nil, domain.NewValidationError("initial_percentage", "percentage must be between 0 and 100", p.InitialPercentage)
	}

	selections := make([]domain.ServiceSelection, 0, len(p.AddOns)+2)
	selections = append(selections,
		domain.ServiceSelection{
			CodeID:     CodeInitialAWV,
			Enabled:    true,
			Percentage: p.InitialPercentage,
			Kind:       domain.KindInitialVisit,
			Label:      "Initial annual wellness visit",
		},
		domain.ServiceSelection{
			CodeID:     CodeSubsequentAWV,
			Enabled:    true,
			Percentage: 100 - p.InitialPercentage,
			Kind:       domain.KindSubsequentVisit,
			Label:      "Subsequent annual wellness visit",
		},
	)
	for _, addOn := range p.AddOns {
		if addOn.Kind.IsBaseVisit() {
			return nil, domain.NewValidationError("add_ons", "add-ons cannot be base visits", addOn.CodeID)
		}
		selections = append(selections, addOn)
	}

	return Aggregate(table, p.PatientCount, p.ConversionFactor, selections)
}

// DefaultWellnessAddOns returns the add-on rows of the AWV calculator, all disabled.
// Depression screening is only billable alongside a subsequent visit.
func DefaultWellnessAddOns() []domain.ServiceSelection {
	return []domain.ServiceSelection{
		{CodeID: "99497", Percentage: 30, Basis: domain.BasisTotal, Label: "Advance care planning, first 30 minutes"},
		{CodeID: "G0444", Percentage: 60, Basis: domain.BasisSubsequent, Label: "Annual depression screening"},
		{CodeID: "99406", Percentage: 15, Basis: domain.BasisTotal, Label: "Tobacco cessation counseling, 3-10 minutes"},
		{CodeID: "G0442", Percentage: 40, Basis: domain.BasisTotal, Label: "Annual alcohol misuse screening"},
	}
}

// CalculateEncounterRVU prices the codes billed for one encounter. Repeated codes
// become one line item with a higher count, in first-seen order.
func CalculateEncounterRVU(table domain.CodeTableProvider, codeIDs []string, conversionFactor float64) (*domain.RevenueBreakdown, error) {
	if table == nil {
		return nil, domain.NewValidationError("code_table", "code table is required", nil)
	}
	if len(codeIDs) == 0 {
		return nil, domain.NewValidationError("codes", "at least one billing code is required", nil)
	}
	if err := validateConversionFactor(conversionFactor); err != nil {
		return nil, err
	}

	order := make([]string, 0, len(codeIDs))
	units := make(map[string]int, len(codeIDs))
	codes := make(map[string]domain.BillingCode, len(codeIDs))
	for _, raw := range codeIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, domain.NewValidationError("codes", "billing code id is required", raw)
		}
		if _, seen := units[id]; !seen {
			code, ok := table.Lookup(id)
			if !ok {
				return nil, &domain.UnknownCodeError{CodeID: id}
			}
			codes[id] = code
			order = append(order, id)
		}
		units[id]++
	}

	breakdown := &domain.RevenueBreakdown{
		PatientCount:     1,
		ConversionFactor: conversionFactor,
		LineItems:        make([]domain.ServiceLineItem, 0, len(order)),
	}
	for _, id := range order {
		code := codes[id]
		count := units[id]
		revenue := float64(count) * code.RVU * conversionFactor
		breakdown.LineItems = append(breakdown.LineItems, domain.ServiceLineItem{
			CodeID:      code.ID,
			Description: code.Description,
			Count:       count,
			RVU:         code.RVU,
			Revenue:     revenue,
		})
		breakdown.TotalRVU += float64(count) * code.RVU
		breakdown.Total += revenue
	}
	return breakdown, nil
}
