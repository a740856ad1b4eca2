package grchttp

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/grcdash/grcdash/internal/grc"
	"github.com/grcdash/grcdash/internal/users"
)

type lookup uint8

const (
	lookupDepartments lookup = 1 << iota
	lookupUsers
	lookupFrameworks
	lookupRisks
	lookupAudits
)

// withLookups loads the select options a form or filter bar needs.
func (h *Handler) withLookups(ctx context.Context, data map[string]any, need lookup) error {
	var (
		departments []grc.Department
		accounts    []users.User
		frameworks  []grc.Framework
		risks       []grc.Risk
		audits      []grc.Audit
	)
	g, ctx := errgroup.WithContext(ctx)
	if need&lookupDepartments != 0 {
		g.Go(func() (err error) {
			departments, err = h.service.ListDepartments(ctx)
			return err
		})
	}
	if need&lookupUsers != 0 {
		g.Go(func() (err error) {
			accounts, err = h.users.ListUsers(ctx)
			return err
		})
	}
	if need&lookupFrameworks != 0 {
		g.Go(func() (err error) {
			frameworks, err = h.service.ListFrameworks(ctx)
			return err
		})
	}
	if need&lookupRisks != 0 {
		g.Go(func() (err error) {
			risks, err = h.service.ListRisks(ctx, grc.RiskFilter{})
			return err
		})
	}
	if need&lookupAudits != 0 {
		g.Go(func() (err error) {
			audits, err = h.service.ListAudits(ctx, grc.AuditFilter{})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	data["Departments"] = departments
	data["Users"] = accounts
	data["Frameworks"] = frameworks
	data["Risks"] = risks
	data["Audits"] = audits
	return nil
}
