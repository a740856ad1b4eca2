package grc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	recentLimit        = 5
	upcomingAuditsDays = 30
)

var (
	activeRiskStatuses  = []RiskStatus{RiskOpen, RiskInProgress}
	activeIssueStatuses = []IssueStatus{IssueOpen, IssueInProgress}
)

// Dashboard is the summary shown on the landing page.
type Dashboard struct {
	TotalRisks    int
	CriticalRisks int
	OpenRisks     int

	TotalControls        int
	CompliantControls    int
	NonCompliantControls int
	ComplianceRate       float64

	TotalAudits      int
	UpcomingAudits   int
	InProgressAudits int

	TotalIssues   int
	OpenIssues    int
	OverdueIssues int

	RisksBySeverity  []GroupCount
	ControlsByStatus []GroupCount
	RecentRisks      []Risk
	RecentAudits     []Audit
	RecentIssues     []Issue
}

// Dashboard recomputes every aggregate from current data.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	today := s.today()
	horizon := today.AddDate(0, 0, upcomingAuditsDays)

	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&d.TotalRisks, func(ctx context.Context) (int, error) {
		return s.repo.CountRisks(ctx, RiskFilter{})
	})
	count(&d.CriticalRisks, func(ctx context.Context) (int, error) {
		return s.repo.CountRisks(ctx, RiskFilter{Severity: SeverityCritical, Statuses: activeRiskStatuses})
	})
	count(&d.OpenRisks, func(ctx context.Context) (int, error) {
		return s.repo.CountRisks(ctx, RiskFilter{Status: RiskOpen})
	})
	count(&d.TotalControls, func(ctx context.Context) (int, error) {
		return s.repo.CountControls(ctx, ControlFilter{})
	})
	count(&d.CompliantControls, func(ctx context.Context) (int, error) {
		return s.repo.CountControls(ctx, ControlFilter{Status: ControlCompliant})
	})
	count(&d.NonCompliantControls, func(ctx context.Context) (int, error) {
		return s.repo.CountControls(ctx, ControlFilter{Status: ControlNonCompliant})
	})
	count(&d.TotalAudits, func(ctx context.Context) (int, error) {
		return s.repo.CountAudits(ctx, AuditFilter{})
	})
	count(&d.UpcomingAudits, func(ctx context.Context) (int, error) {
		return s.repo.CountAudits(ctx, AuditFilter{Status: AuditPlanned, StartFrom: &today, StartTo: &horizon})
	})
	count(&d.InProgressAudits, func(ctx context.Context) (int, error) {
		return s.repo.CountAudits(ctx, AuditFilter{Status: AuditInProgress})
	})
	count(&d.TotalIssues, func(ctx context.Context) (int, error) {
		return s.repo.CountIssues(ctx, IssueFilter{})
	})
	count(&d.OpenIssues, func(ctx context.Context) (int, error) {
		return s.repo.CountIssues(ctx, IssueFilter{Statuses: activeIssueStatuses})
	})
	count(&d.OverdueIssues, func(ctx context.Context) (int, error) {
		return s.repo.CountIssues(ctx, IssueFilter{Statuses: activeIssueStatuses, DueBefore: &today})
	})

	g.Go(func() error {
		var err error
		d.RisksBySeverity, err = s.repo.RiskCountsBySeverity(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.ControlsByStatus, err = s.repo.ControlCountsByStatus(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentRisks, err = s.repo.RecentRisks(ctx, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentAudits, err = s.repo.RecentAudits(ctx, recentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentIssues, err = s.repo.RecentIssues(ctx, recentLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("grc: dashboard: %w", err)
	}
	d.ComplianceRate = ComplianceRate(d.CompliantControls, d.TotalControls)
	for i := range d.RisksBySeverity {
		d.RisksBySeverity[i].Label = Severity(d.RisksBySeverity[i].Key).Label()
	}
	for i := range d.ControlsByStatus {
		d.ControlsByStatus[i].Label = ControlStatus(d.ControlsByStatus[i].Key).Label()
	}
	return d, nil
}
