package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-billing-mcp-server/internal/domain"
)

func TestClassifyMDMBoundaries(t *testing.T) {
	tests := []struct {
		moderate int
		high     int
		expected domain.ComplexityLevel
	}{
		{0, 0, domain.Straightforward},
		{1, 0, domain.Straightforward},
		{0, 1, domain.Straightforward},
		{2, 0, domain.Moderate},
		{1, 1, domain.Moderate},
		{10, 1, domain.Moderate},
		{0, 2, domain.High},
		{5, 5, domain.High},
		{1, 2, domain.High},
	}

	for _, tt := range tests {
		verdict, err := ClassifyMDM(tt.moderate, tt.high)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, verdict.Level, "classify(%d, %d)", tt.moderate, tt.high)
		assert.Equal(t, tt.moderate, verdict.ModerateCount)
		assert.Equal(t, tt.high, verdict.HighCount)
	}
}

func TestClassifyMDMModerateScenario(t *testing.T) {
	verdict, err := ClassifyMDM(2, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Moderate, verdict.Level)
	assert.Equal(t, "Established: 99214 / New: 99204", verdict.SuggestedRange)
	assert.NotEmpty(t, verdict.Description)
}

func TestClassifyMDMSuggestedRanges(t *testing.T) {
	low, _ := ClassifyMDM(0, 0)
	high, _ := ClassifyMDM(0, 3)
	assert.Equal(t, "Established: 99212-99213 / New: 99202-99203", low.SuggestedRange)
	assert.Equal(t, "Established: 99215 / New: 99205", high.SuggestedRange)
}

func TestClassifyMDMMonotonic(t *testing.T) {
	for m := 0; m <= 6; m++ {
		for h := 0; h < 6; h++ {
			a, err := ClassifyMDM(m, h)
			require.NoError(t, err)
			b, err := ClassifyMDM(m, h+1)
			require.NoError(t, err)
			c, err := ClassifyMDM(m+1, h)
			require.NoError(t, err)

			assert.LessOrEqual(t, a.Level, b.Level, "raising high count lowered level at (%d,%d)", m, h)
			assert.LessOrEqual(t, a.Level, c.Level, "raising moderate count lowered level at (%d,%d)", m, h)
		}
	}
}

func TestClassifyMDMRejectsNegativeCounts(t *testing.T) {
	_, err := ClassifyMDM(-1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ClassifyMDM(0, -3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClassifyCriteria(t *testing.T) {
	criteria := []domain.ComplexityCriterion{
		{ID: "a", Tier: domain.TierModerate, Checked: true},
		{ID: "b", Tier: domain.TierModerate, Checked: false},
		{ID: "c", Tier: domain.TierHigh, Checked: true},
	}
	verdict, err := ClassifyCriteria(criteria)
	require.NoError(t, err)
	assert.Equal(t, domain.Moderate, verdict.Level)
	assert.Equal(t, 1, verdict.ModerateCount)
	assert.Equal(t, 1, verdict.HighCount)

	_, err = ClassifyCriteria([]domain.ComplexityCriterion{{ID: "x", Tier: "extreme", Checked: true}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClassifyChecklist(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		expected domain.ComplexityLevel
		wantErr  bool
	}{
		{"nothing checked", nil, domain.Straightforward, false},
		{"two moderate", []string{"two-stable-chronic", "prescription-management"}, domain.Moderate, false},
		{"duplicates count once", []string{"prescription-management", "prescription-management"}, domain.Straightforward, false},
		{"two high", []string{"threat-to-life", "hospitalization-decision"}, domain.High, false},
		{"unknown id", []string{"not-a-criterion"}, domain.Straightforward, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := ClassifyChecklist(tt.ids)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, verdict.Level)
		})
	}
}

func TestCriteriaCatalog(t *testing.T) {
	catalog := CriteriaCatalog()
	seen := make(map[string]bool)
	var moderate, high int
	for _, c := range catalog {
		assert.False(t, seen[c.ID], "duplicate criterion %s", c.ID)
		seen[c.ID] = true
		assert.False(t, c.Checked)
		switch c.Tier {
		case domain.TierModerate:
			moderate++
		case domain.TierHigh:
			high++
		}
	}
	assert.Equal(t, 10, moderate)
	assert.Equal(t, 7, high)

	catalog[0].Checked = true
	assert.False(t, CriteriaCatalog()[0].Checked, "catalog must be a fresh copy")
}
