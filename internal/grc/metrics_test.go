package grc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScoreIsProductOfLikelihoodAndImpact(t *testing.T) {
	for l := 1; l <= 5; l++ {
		for i := 1; i <= 5; i++ {
			score := Risk{Likelihood: l, Impact: i}.RiskScore()
			assert.Equal(t, l*i, score)
			assert.Equal(t, score, Risk{Likelihood: i, Impact: l}.RiskScore())
			assert.GreaterOrEqual(t, score, 1)
			assert.LessOrEqual(t, score, 25)
		}
	}
}

func TestComplianceStatusBoundary(t *testing.T) {
	cases := map[int]string{
		0:   "Non-Compliant",
		79:  "Non-Compliant",
		80:  "Compliant",
		100: "Compliant",
	}
	for pct, want := range cases {
		assert.Equal(t, want, Risk{CompliancePercentage: pct}.ComplianceStatus(), "pct=%d", pct)
	}
}

func TestComplianceColorClass(t *testing.T) {
	cases := map[int]string{
		0:   "low",
		49:  "low",
		50:  "medium",
		79:  "medium",
		80:  "high",
		100: "high",
	}
	for pct, want := range cases {
		assert.Equal(t, want, Risk{CompliancePercentage: pct}.ComplianceColorClass(), "pct=%d", pct)
	}
}

func TestUpdateComplianceFromEvidence(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	t.Run("uploaded with file", func(t *testing.T) {
		r := Risk{EvidenceUploaded: true, EvidenceFile: "evidence/x.pdf", CompliancePercentage: 40}
		r.UpdateComplianceFromEvidence(now)
		assert.Equal(t, 100, r.CompliancePercentage)
		require.NotNil(t, r.LastEvidenceUpdate)
		assert.True(t, r.LastEvidenceUpdate.Equal(now))

		// Idempotent.
		r.UpdateComplianceFromEvidence(now)
		assert.Equal(t, 100, r.CompliancePercentage)
	})

	others := []struct {
		name     string
		uploaded bool
		file     string
	}{
		{"flag without file", true, ""},
		{"file without flag", false, "evidence/x.pdf"},
		{"neither", false, ""},
	}
	for _, tc := range others {
		t.Run(tc.name, func(t *testing.T) {
			prev := earlier
			r := Risk{EvidenceUploaded: tc.uploaded, EvidenceFile: tc.file, CompliancePercentage: 100, LastEvidenceUpdate: &prev}
			r.UpdateComplianceFromEvidence(now)
			assert.Equal(t, 0, r.CompliancePercentage)
			require.NotNil(t, r.LastEvidenceUpdate)
			assert.True(t, r.LastEvidenceUpdate.Equal(earlier))
		})
	}
}

func TestComplianceRate(t *testing.T) {
	assert.Equal(t, 0.0, ComplianceRate(0, 0))
	assert.Equal(t, 33.3, ComplianceRate(1, 3))
	assert.Equal(t, 66.7, ComplianceRate(2, 3))
	assert.Equal(t, 75.0, ComplianceRate(3, 4))
	assert.Equal(t, 100.0, ComplianceRate(5, 5))
}

func TestIssueIsOverdue(t *testing.T) {
	today := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	sameDay := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, Issue{Status: IssueOpen, DueDate: &yesterday}.IsOverdue(today))
	assert.True(t, Issue{Status: IssueInProgress, DueDate: &yesterday}.IsOverdue(today))
	assert.False(t, Issue{Status: IssueOpen, DueDate: &sameDay}.IsOverdue(today))
	assert.False(t, Issue{Status: IssueResolved, DueDate: &yesterday}.IsOverdue(today))
	assert.False(t, Issue{Status: IssueOpen}.IsOverdue(today))
}

func TestEnumLabels(t *testing.T) {
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("Critical").Valid())
	assert.Equal(t, "Non-Compliant", ControlNonCompliant.Label())
	assert.Equal(t, "Security Audit", AuditSecurity.Label())
	assert.Equal(t, "unknown", ArtifactCategory("unknown").Label())
	assert.Len(t, ArtifactCategoryChoices(), 7)
}
