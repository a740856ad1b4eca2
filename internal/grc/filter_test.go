package grc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIssueFilterPriorityAndStatus(t *testing.T) {
	c := IssueFilter{Priority: PriorityCritical, Status: IssueOpen}.conditions("i")
	assert.Equal(t, " WHERE i.priority = $1 AND i.status = $2", c.where())
	assert.Equal(t, []any{"critical", "open"}, c.args)
}

func TestEmptyFilterHasNoWhereClause(t *testing.T) {
	for _, c := range []conditions{
		RiskFilter{}.conditions("r"),
		ControlFilter{}.conditions("c"),
		AuditFilter{}.conditions("a"),
		IssueFilter{}.conditions("i"),
		ArtifactFilter{}.conditions("a"),
	} {
		assert.Empty(t, c.where())
		assert.Empty(t, c.args)
	}
}

func TestRiskFilterStatusSet(t *testing.T) {
	c := RiskFilter{Severity: SeverityCritical, Statuses: []RiskStatus{RiskOpen, RiskInProgress}, DepartmentID: 4}.conditions("r")
	assert.Equal(t, " WHERE r.severity = $1 AND r.status = ANY($2) AND r.department_id = $3", c.where())
	assert.Equal(t, []any{"critical", []string{"open", "in_progress"}, int64(4)}, c.args)
}

func TestAuditFilterDateBounds(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	c := AuditFilter{Status: AuditPlanned, StartFrom: &from, StartTo: &to}.conditions("a")
	assert.Equal(t, " WHERE a.status = $1 AND a.start_date >= $2 AND a.start_date <= $3", c.where())
	assert.Equal(t, []any{"planned", from, to}, c.args)
}

func TestControlFilterFrameworkAndStatus(t *testing.T) {
	c := ControlFilter{FrameworkID: 2, Status: ControlCompliant}.conditions("c")
	assert.Equal(t, " WHERE c.framework_id = $1 AND c.status = $2", c.where())
}

func TestIssueFilterDueBeforeIsStrict(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := IssueFilter{Statuses: []IssueStatus{IssueOpen, IssueInProgress}, DueBefore: &due}.conditions("i")
	assert.Equal(t, " WHERE i.status = ANY($1) AND i.due_date < $2", c.where())
}
