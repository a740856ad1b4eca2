package grc

import (
	"math"
	"time"
)

const (
	// CompliantThreshold is the lowest percentage reported as compliant.
	CompliantThreshold = 80
	mediumThreshold    = 50
)

// RiskScore is likelihood times impact, in [1,25] for valid risks.
func (r Risk) RiskScore() int {
	return r.Likelihood * r.Impact
}

// ComplianceStatus returns "Compliant" at or above the threshold.
func (r Risk) ComplianceStatus() string {
	if r.CompliancePercentage >= CompliantThreshold {
		return "Compliant"
	}
	return "Non-Compliant"
}

// ComplianceColorClass buckets the percentage into high, medium or low.
func (r Risk) ComplianceColorClass() string {
	switch {
	case r.CompliancePercentage >= CompliantThreshold:
		return "high"
	case r.CompliancePercentage >= mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// UpdateComplianceFromEvidence resets the percentage from the evidence state.
// An uploaded, attached file yields 100 and stamps now; anything else yields 0
// and leaves the last update timestamp untouched.
func (r *Risk) UpdateComplianceFromEvidence(now time.Time) {
	if r.EvidenceUploaded && r.EvidenceFile != "" {
		r.CompliancePercentage = 100
		ts := now
		r.LastEvidenceUpdate = &ts
		return
	}
	r.CompliancePercentage = 0
}

// ComplianceRate is compliant/total as a percentage rounded to one decimal.
// It is 0 when there are no controls.
func ComplianceRate(compliant, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := float64(compliant) / float64(total) * 100
	return math.Round(rate*10) / 10
}
