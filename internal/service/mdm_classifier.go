package service

import (
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// mdmVerdicts holds the fixed suggested code range and description per level.
// The ranges are not derived from the code table.
var mdmVerdicts = map[domain.ComplexityLevel]struct {
	SuggestedRange string
	Description    string
}{
	domain.Straightforward: {
		SuggestedRange: "Established: 99212-99213 / New: 99202-99203",
		Description:    "Straightforward or low MDM: fewer than two moderate elements documented",
	},
	domain.Moderate: {
		SuggestedRange: "Established: 99214 / New: 99204",
		Description:    "Moderate MDM: two moderate elements, or one moderate and one high element",
	},
	domain.High: {
		SuggestedRange: "Established: 99215 / New: 99205",
		Description:    "High MDM: two or more high complexity elements documented",
	},
}

// ClassifyMDM maps tallies of satisfied moderate and high criteria onto an MDM level.
func ClassifyMDM(moderateCount, highCount int) (domain.ComplexityVerdict, error) {
	if moderateCount < 0 {
		return domain.ComplexityVerdict{}, domain.NewValidationError("moderate_count", "count must not be negative", moderateCount)
	}
	if highCount < 0 {
		return domain.ComplexityVerdict{}, domain.NewValidationError("high_count", "count must not be negative", highCount)
	}

	level := determineComplexity(moderateCount, highCount)
	info := mdmVerdicts[level]

	return domain.ComplexityVerdict{
		Level:          level,
		SuggestedRange: info.SuggestedRange,
		Description:    info.Description,
		ModerateCount:  moderateCount,
		HighCount:      highCount,
	}, nil
}

// determineComplexity checks high before moderate: the combined moderate
// condition also matches every tally that qualifies as high.
func determineComplexity(moderateCount, highCount int) domain.ComplexityLevel {
	if highCount >= 2 {
		return domain.High
	}
	if moderateCount >= 2 || (moderateCount >= 1 && highCount >= 1) {
		return domain.Moderate
	}
	return domain.Straightforward
}

// ClassifyCriteria tallies checked criteria by tier and classifies the tallies.
func ClassifyCriteria(criteria []domain.ComplexityCriterion) (domain.ComplexityVerdict, error) {
	var moderate, high int
	for _, c := range criteria {
		if !c.Tier.IsValid() {
			return domain.ComplexityVerdict{}, domain.NewValidationError("tier", "unknown criterion tier", string(c.Tier))
		}
		if !c.Checked {
			continue
		}
		if c.Tier == domain.TierHigh {
			high++
		} else {
			moderate++
		}
	}
	return ClassifyMDM(moderate, high)
}

// ClassifyChecklist resolves checked catalog ids and classifies them.
// Repeated ids count once.
func ClassifyChecklist(checkedIDs []string) (domain.ComplexityVerdict, error) {
	criteria := CriteriaCatalog()
	index := make(map[string]int, len(criteria))
	for i, c := range criteria {
		index[c.ID] = i
	}

	for _, id := range checkedIDs {
		i, ok := index[strings.TrimSpace(id)]
		if !ok {
			return domain.ComplexityVerdict{}, domain.NewValidationError("criteria", "unknown MDM criterion", id)
		}
		criteria[i].Checked = true
	}
	return ClassifyCriteria(criteria)
}

// CriteriaCatalog returns a fresh copy of the MDM worksheet checkboxes, all unchecked.
func CriteriaCatalog() []domain.ComplexityCriterion {
	return []domain.ComplexityCriterion{
		{ID: "chronic-illness-progression", Tier: domain.TierModerate, Label: "One or more chronic illnesses with exacerbation, progression or treatment side effects"},
		{ID: "two-stable-chronic", Tier: domain.TierModerate, Label: "Two or more stable chronic illnesses"},
		{ID: "undiagnosed-new-problem", Tier: domain.TierModerate, Label: "Undiagnosed new problem with uncertain prognosis"},
		{ID: "acute-illness-systemic", Tier: domain.TierModerate, Label: "Acute illness with systemic symptoms or complicated acute injury"},
		{ID: "data-three-elements", Tier: domain.TierModerate, Label: "Any three of: external notes reviewed, tests reviewed, tests ordered, independent historian"},
		{ID: "independent-interpretation", Tier: domain.TierModerate, Label: "Independent interpretation of a test performed by another physician"},
		{ID: "discussion-external", Tier: domain.TierModerate, Label: "Discussion of management with an external physician or qualified professional"},
		{ID: "prescription-management", Tier: domain.TierModerate, Label: "Prescription drug management"},
		{ID: "minor-surgery-risk", Tier: domain.TierModerate, Label: "Decision regarding minor surgery with identified risk factors"},
		{ID: "social-determinants", Tier: domain.TierModerate, Label: "Diagnosis or treatment significantly limited by social determinants of health"},
		{ID: "severe-exacerbation", Tier: domain.TierHigh, Label: "One or more chronic illnesses with severe exacerbation or progression"},
		{ID: "threat-to-life", Tier: domain.TierHigh, Label: "Acute or chronic illness that poses a threat to life or bodily function"},
		{ID: "extensive-data", Tier: domain.TierHigh, Label: "Extensive data: two of three data categories met"},
		{ID: "intensive-monitoring", Tier: domain.TierHigh, Label: "Drug therapy requiring intensive monitoring for toxicity"},
		{ID: "hospitalization-decision", Tier: domain.TierHigh, Label: "Decision regarding hospitalization or escalation of care"},
		{ID: "major-surgery-risk", Tier: domain.TierHigh, Label: "Decision regarding elective or emergency major surgery with risk factors"},
		{ID: "dnr-deescalation", Tier: domain.TierHigh, Label: "Decision not to resuscitate or to de-escalate care because of poor prognosis"},
	}
}
