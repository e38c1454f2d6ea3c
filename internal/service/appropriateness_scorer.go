package service

import (
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Score counts the true answers and compares them against threshold.
// A threshold above len(criteria) is valid and always yields false.
func Score(criteria []bool, threshold int) (domain.AppropriatenessResult, error) {
	if threshold < 0 {
		return domain.AppropriatenessResult{}, domain.NewValidationError("threshold", "threshold must not be negative", threshold)
	}

	satisfied := 0
	for _, ok := range criteria {
		if ok {
			satisfied++
		}
	}

	return domain.AppropriatenessResult{
		Appropriate:    satisfied >= threshold,
		SatisfiedCount: satisfied,
		Threshold:      threshold,
	}, nil
}

// Checklist is a fixed list of yes/no questions gating a billing modifier.
type Checklist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Modifier  string   `json:"modifier"`
	Items     []string `json:"items"`
	Threshold int      `json:"threshold"`
}

var checklists = []Checklist{
	{
		ID:       "modifier-25",
		Name:     "Significant, separately identifiable E/M service",
		Modifier: "25",
		Items: []string{
			"The E/M service goes beyond the usual pre- and post-procedure work",
			"A separate problem or a significant worsening was addressed",
			"History, exam and MDM are documented separately from the procedure note",
			"The decision for the procedure was made during this visit",
			"The E/M documentation could stand alone as a billable visit",
			"A distinct diagnosis supports the E/M service",
		},
		Threshold: 5,
	},
	{
		ID:       "modifier-59",
		Name:     "Distinct procedural service",
		Modifier: "59",
		Items: []string{
			"Different session or patient encounter",
			"Different procedure or surgery",
			"Different anatomic site or organ system",
			"Separate incision, excision or lesion",
			"No more specific X-modifier (XE, XS, XP, XU) applies",
		},
		Threshold: 3,
	},
}

// Checklists returns copies of the built-in modifier checklists.
func Checklists() []Checklist {
	out := make([]Checklist, len(checklists))
	for i, c := range checklists {
		out[i] = c.clone()
	}
	return out
}

// LookupChecklist returns the checklist with the given id.
func LookupChecklist(id string) (Checklist, bool) {
	id = strings.TrimSpace(id)
	for _, c := range checklists {
		if c.ID == id {
			return c.clone(), true
		}
	}
	return Checklist{}, false
}

// ScoreChecklist scores answers against a built-in checklist.
// Missing trailing answers count as false.
func ScoreChecklist(id string, answers []bool) (domain.AppropriatenessResult, error) {
	checklist, ok := LookupChecklist(id)
	if !ok {
		return domain.AppropriatenessResult{}, domain.NewValidationError("checklist", "unknown modifier checklist", id)
	}
	if len(answers) > len(checklist.Items) {
		return domain.AppropriatenessResult{}, domain.NewValidationError("answers", "more answers than checklist items", len(answers))
	}

	result, err := Score(answers, checklist.Threshold)
	if err != nil {
		return domain.AppropriatenessResult{}, err
	}

	result.ChecklistID = checklist.ID
	for i, item := range checklist.Items {
		if i >= len(answers) || !answers[i] {
			result.UnmetItems = append(result.UnmetItems, item)
		}
	}
	return result, nil
}

func (c Checklist) clone() Checklist {
	c.Items = append([]string(nil), c.Items...)
	return c
}
