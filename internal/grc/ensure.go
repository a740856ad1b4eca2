package grc

import (
	"context"
	"errors"
)

// The Ensure methods implement get-or-create by natural key. They return the
// existing record untouched when one is found, and report whether a record
// was created.

func (s *Service) EnsureDepartment(ctx context.Context, actor int64, in DepartmentInput) (Department, bool, error) {
	d, err := s.repo.FindDepartmentByName(ctx, in.Name)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Department{}, false, err
	}
	d, err = s.CreateDepartment(ctx, actor, in)
	return d, err == nil, err
}

func (s *Service) EnsureFramework(ctx context.Context, actor int64, in FrameworkInput) (Framework, bool, error) {
	f, err := s.repo.FindFrameworkByName(ctx, in.Name)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Framework{}, false, err
	}
	f, err = s.CreateFramework(ctx, actor, in)
	return f, err == nil, err
}

func (s *Service) EnsureControl(ctx context.Context, actor int64, in ControlInput) (Control, bool, error) {
	c, err := s.repo.FindControl(ctx, in.FrameworkID, in.ControlID)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Control{}, false, err
	}
	c, err = s.CreateControl(ctx, actor, in)
	return c, err == nil, err
}

func (s *Service) EnsureRisk(ctx context.Context, actor int64, in RiskInput) (Risk, bool, error) {
	r, err := s.repo.FindRiskByTitle(ctx, in.Title)
	if err == nil {
		return r, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Risk{}, false, err
	}
	r, err = s.CreateRisk(ctx, actor, in, nil)
	return r, err == nil, err
}

func (s *Service) EnsureAudit(ctx context.Context, actor int64, in AuditInput) (Audit, bool, error) {
	a, err := s.repo.FindAuditByTitle(ctx, in.Title)
	if err == nil {
		return a, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Audit{}, false, err
	}
	a, err = s.CreateAudit(ctx, actor, in)
	return a, err == nil, err
}

func (s *Service) EnsureIssue(ctx context.Context, actor int64, in IssueInput) (Issue, bool, error) {
	i, err := s.repo.FindIssueByTitle(ctx, in.Title)
	if err == nil {
		return i, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Issue{}, false, err
	}
	i, err = s.CreateIssue(ctx, actor, in)
	return i, err == nil, err
}
