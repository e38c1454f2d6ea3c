package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/em-billing-mcp-server/internal/codetable"
	"github.com/em-billing-mcp-server/internal/domain"
)

// CalculatorService is the entry point shared by the HTTP API, the MCP server
// and the CLI. Every call resolves codes against one table snapshot.
type CalculatorService struct {
	logger           *logrus.Logger
	registry         *codetable.Registry
	conversionFactor float64
}

// AggregateRequest is the input of a revenue aggregation.
type AggregateRequest struct {
	PatientCount     int                       `json:"patient_count"`
	ConversionFactor float64                   `json:"conversion_factor,omitempty"`
	Selections       []domain.ServiceSelection `json:"selections"`
}

// NewCalculatorService creates a calculator service. A non-positive
// conversionFactor falls back to DefaultConversionFactor.
func NewCalculatorService(logger *logrus.Logger, registry *codetable.Registry, conversionFactor float64) *CalculatorService {
	if conversionFactor <= 0 {
		conversionFactor = DefaultConversionFactor
	}
	return &CalculatorService{
		logger:           logger,
		registry:         registry,
		conversionFactor: conversionFactor,
	}
}

// ConversionFactor returns the default conversion factor.
func (c *CalculatorService) ConversionFactor() float64 {
	return c.conversionFactor
}

// Registry exposes the code table registry.
func (c *CalculatorService) Registry() *codetable.Registry {
	return c.registry
}

func (c *CalculatorService) resolveFactor(cf float64) float64 {
	if cf == 0 {
		return c.conversionFactor
	}
	return cf
}

func (c *CalculatorService) logOutcome(op string, start time.Time, fields logrus.Fields, err error) {
	entry := c.logger.WithFields(fields).WithFields(logrus.Fields{
		"operation": op,
		"duration":  time.Since(start),
	})
	if err != nil {
		entry.WithError(err).WithField("error_code", domain.ErrorCode(err)).Warn("Calculation rejected")
		return
	}
	entry.Info("Calculation completed")
}

// ClassifyMDM classifies satisfied criteria tallies.
func (c *CalculatorService) ClassifyMDM(ctx context.Context, moderateCount, highCount int) (domain.ComplexityVerdict, error) {
	start := time.Now()
	verdict, err := ClassifyMDM(moderateCount, highCount)
	c.logOutcome("classify_mdm", start, logrus.Fields{
		"moderate_count": moderateCount,
		"high_count":     highCount,
		"level":          verdict.Level.String(),
	}, err)
	return verdict, err
}

// ClassifyChecklist classifies a set of checked MDM catalog ids.
func (c *CalculatorService) ClassifyChecklist(ctx context.Context, checkedIDs []string) (domain.ComplexityVerdict, error) {
	start := time.Now()
	verdict, err := ClassifyChecklist(checkedIDs)
	c.logOutcome("classify_checklist", start, logrus.Fields{
		"checked": len(checkedIDs),
		"level":   verdict.Level.String(),
	}, err)
	return verdict, err
}

// Aggregate prices a set of service selections.
func (c *CalculatorService) Aggregate(ctx context.Context, req AggregateRequest) (*domain.RevenueBreakdown, error) {
	start := time.Now()
	cf := c.resolveFactor(req.ConversionFactor)
	breakdown, err := Aggregate(c.registry.Snapshot(), req.PatientCount, cf, req.Selections)
	c.logOutcome("aggregate", start, revenueFields(req.PatientCount, cf, breakdown), err)
	return breakdown, err
}

// ProjectWellnessRevenue runs the annual wellness visit projection.
func (c *CalculatorService) ProjectWellnessRevenue(ctx context.Context, p WellnessProjection) (*domain.RevenueBreakdown, error) {
	start := time.Now()
	p.ConversionFactor = c.resolveFactor(p.ConversionFactor)
	breakdown, err := ProjectWellnessRevenue(c.registry.Snapshot(), p)
	c.logOutcome("project_wellness_revenue", start, revenueFields(p.PatientCount, p.ConversionFactor, breakdown), err)
	return breakdown, err
}

// CalculateEncounter prices the codes billed for one encounter.
func (c *CalculatorService) CalculateEncounter(ctx context.Context, codeIDs []string, conversionFactor float64) (*domain.RevenueBreakdown, error) {
	start := time.Now()
	cf := c.resolveFactor(conversionFactor)
	breakdown, err := CalculateEncounterRVU(c.registry.Snapshot(), codeIDs, cf)
	fields := revenueFields(1, cf, breakdown)
	fields["codes"] = strings.Join(codeIDs, ",")
	c.logOutcome("calculate_encounter", start, fields, err)
	return breakdown, err
}

// Score applies a caller supplied threshold to a list of answers.
func (c *CalculatorService) Score(ctx context.Context, criteria []bool, threshold int) (domain.AppropriatenessResult, error) {
	start := time.Now()
	result, err := Score(criteria, threshold)
	c.logOutcome("score", start, logrus.Fields{
		"criteria":    len(criteria),
		"threshold":   threshold,
		"appropriate": result.Appropriate,
	}, err)
	return result, err
}

// ScoreModifier scores answers against a built-in modifier checklist.
func (c *CalculatorService) ScoreModifier(ctx context.Context, checklistID string, answers []bool) (domain.AppropriatenessResult, error) {
	start := time.Now()
	result, err := ScoreChecklist(checklistID, answers)
	c.logOutcome("score_modifier", start, logrus.Fields{
		"checklist":   checklistID,
		"satisfied":   result.SatisfiedCount,
		"appropriate": result.Appropriate,
	}, err)
	return result, err
}

// LookupCode returns one billing code or an UnknownCodeError.
func (c *CalculatorService) LookupCode(ctx context.Context, codeID string) (domain.BillingCode, error) {
	code, ok := c.registry.Lookup(codeID)
	if !ok {
		return domain.BillingCode{}, &domain.UnknownCodeError{CodeID: strings.TrimSpace(codeID)}
	}
	return code, nil
}

// Codes lists the current table, optionally filtered by category.
func (c *CalculatorService) Codes(ctx context.Context, category string) []domain.BillingCode {
	codes := c.registry.Snapshot().Codes()
	if category == "" {
		return codes
	}
	filtered := codes[:0]
	for _, code := range codes {
		if strings.EqualFold(code.Category, category) {
			filtered = append(filtered, code)
		}
	}
	return filtered
}

// ReloadCodes reloads the code table from its source.
func (c *CalculatorService) ReloadCodes(ctx context.Context) (int, error) {
	if err := c.registry.Reload(ctx); err != nil {
		return c.registry.Snapshot().Len(), err
	}
	return c.registry.Snapshot().Len(), nil
}

func revenueFields(patientCount int, cf float64, breakdown *domain.RevenueBreakdown) logrus.Fields {
	fields := logrus.Fields{
		"patient_count":     patientCount,
		"conversion_factor": cf,
	}
	if breakdown != nil {
		fields["line_items"] = len(breakdown.LineItems)
		fields["total"] = RoundCents(breakdown.Total)
	}
	return fields
}
