package grc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo answers dashboard queries from canned values and records the
// filters it was asked for.
type countingRepo struct {
	Repository

	mu             sync.Mutex
	riskFilters    []RiskFilter
	controlFilters []ControlFilter
	auditFilters   []AuditFilter
	issueFilters   []IssueFilter

	controls  int
	compliant int
}

func (c *countingRepo) CountRisks(ctx context.Context, f RiskFilter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.riskFilters = append(c.riskFilters, f)
	return 1, nil
}

func (c *countingRepo) CountControls(ctx context.Context, f ControlFilter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controlFilters = append(c.controlFilters, f)
	switch f.Status {
	case "":
		return c.controls, nil
	case ControlCompliant:
		return c.compliant, nil
	default:
		return 0, nil
	}
}

func (c *countingRepo) CountAudits(ctx context.Context, f AuditFilter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditFilters = append(c.auditFilters, f)
	return 2, nil
}

func (c *countingRepo) CountIssues(ctx context.Context, f IssueFilter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issueFilters = append(c.issueFilters, f)
	return 3, nil
}

func (c *countingRepo) RiskCountsBySeverity(ctx context.Context) ([]GroupCount, error) {
	return []GroupCount{{Key: "critical", Count: 1}}, nil
}

func (c *countingRepo) ControlCountsByStatus(ctx context.Context) ([]GroupCount, error) {
	return []GroupCount{{Key: "compliant", Count: c.compliant}}, nil
}

func (c *countingRepo) RecentRisks(ctx context.Context, limit int) ([]Risk, error) {
	return make([]Risk, limit), nil
}

func (c *countingRepo) RecentAudits(ctx context.Context, limit int) ([]Audit, error) {
	return make([]Audit, limit), nil
}

func (c *countingRepo) RecentIssues(ctx context.Context, limit int) ([]Issue, error) {
	return make([]Issue, limit), nil
}

func TestDashboardWithNoControls(t *testing.T) {
	repo := &countingRepo{}
	svc := newTestService(repo, nil, nil)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.ComplianceRate)
	assert.Equal(t, 0, d.TotalControls)
	assert.Len(t, d.RecentRisks, 5)
	assert.Len(t, d.RecentAudits, 5)
	assert.Len(t, d.RecentIssues, 5)
}

func TestDashboardComplianceRate(t *testing.T) {
	repo := &countingRepo{controls: 3, compliant: 2}
	svc := newTestService(repo, nil, nil)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 66.7, d.ComplianceRate)
	assert.Equal(t, 2, d.CompliantControls)
	require.Len(t, d.RisksBySeverity, 1)
	assert.Equal(t, "Critical", d.RisksBySeverity[0].Label)
	require.Len(t, d.ControlsByStatus, 1)
	assert.Equal(t, "Compliant", d.ControlsByStatus[0].Label)
}

func TestDashboardFilters(t *testing.T) {
	repo := &countingRepo{}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	horizon := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	assert.Contains(t, repo.riskFilters, RiskFilter{Severity: SeverityCritical, Statuses: []RiskStatus{RiskOpen, RiskInProgress}})
	assert.Contains(t, repo.riskFilters, RiskFilter{Status: RiskOpen})
	assert.Contains(t, repo.controlFilters, ControlFilter{Status: ControlNonCompliant})
	assert.Contains(t, repo.auditFilters, AuditFilter{Status: AuditPlanned, StartFrom: &today, StartTo: &horizon})
	assert.Contains(t, repo.auditFilters, AuditFilter{Status: AuditInProgress})
	assert.Contains(t, repo.issueFilters, IssueFilter{Statuses: []IssueStatus{IssueOpen, IssueInProgress}, DueBefore: &today})
	assert.Len(t, repo.riskFilters, 3)
	assert.Len(t, repo.issueFilters, 3)
}
