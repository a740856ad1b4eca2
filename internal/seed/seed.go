// Package seed loads the sample data set used for demos and local
// development.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grcdash/grcdash/internal/grc"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the decoded sample data. Date fields are day offsets from the
// seed date.
type Fixture struct {
	Departments []Department `yaml:"departments"`
	Frameworks  []Framework  `yaml:"frameworks"`
	Risks       []Risk       `yaml:"risks"`
	Controls    []Control    `yaml:"controls"`
	Audits      []Audit      `yaml:"audits"`
	Issues      []Issue      `yaml:"issues"`
}

type Department struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Framework struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

type Risk struct {
	Title          string         `yaml:"title"`
	Description    string         `yaml:"description"`
	Department     string         `yaml:"department"`
	Severity       grc.Severity   `yaml:"severity"`
	Likelihood     int            `yaml:"likelihood"`
	Impact         int            `yaml:"impact"`
	Status         grc.RiskStatus `yaml:"status"`
	MitigationPlan string         `yaml:"mitigation_plan"`
	Identified     *int           `yaml:"identified"`
	TargetClosure  *int           `yaml:"target_closure"`
}

type Control struct {
	Framework      string            `yaml:"framework"`
	ControlID      string            `yaml:"control_id"`
	Title          string            `yaml:"title"`
	Description    string            `yaml:"description"`
	Department     string            `yaml:"department"`
	Status         grc.ControlStatus `yaml:"status"`
	Evidence       string            `yaml:"evidence"`
	LastAssessment *int              `yaml:"last_assessment"`
	NextAssessment *int              `yaml:"next_assessment"`
}

type Audit struct {
	Title           string          `yaml:"title"`
	Type            grc.AuditType   `yaml:"type"`
	Department      string          `yaml:"department"`
	Status          grc.AuditStatus `yaml:"status"`
	Scope           string          `yaml:"scope"`
	Start           int             `yaml:"start"`
	End             *int            `yaml:"end"`
	Findings        string          `yaml:"findings"`
	Recommendations string          `yaml:"recommendations"`
}

type Issue struct {
	Title           string          `yaml:"title"`
	Description     string          `yaml:"description"`
	Priority        grc.Priority    `yaml:"priority"`
	Status          grc.IssueStatus `yaml:"status"`
	Department      string          `yaml:"department"`
	Due             *int            `yaml:"due"`
	ResolutionNotes string          `yaml:"resolution_notes"`
}

// Parse decodes a fixture document. Unknown keys are rejected.
func Parse(data []byte) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("seed: decode fixture: %w", err)
	}
	return f, nil
}

// Default returns the embedded sample data.
func Default() (Fixture, error) {
	return Parse(defaultFixture)
}

// Store is the get-or-create surface the loader writes through.
type Store interface {
	EnsureDepartment(ctx context.Context, actor int64, in grc.DepartmentInput) (grc.Department, bool, error)
	EnsureFramework(ctx context.Context, actor int64, in grc.FrameworkInput) (grc.Framework, bool, error)
	EnsureControl(ctx context.Context, actor int64, in grc.ControlInput) (grc.Control, bool, error)
	EnsureRisk(ctx context.Context, actor int64, in grc.RiskInput) (grc.Risk, bool, error)
	EnsureAudit(ctx context.Context, actor int64, in grc.AuditInput) (grc.Audit, bool, error)
	EnsureIssue(ctx context.Context, actor int64, in grc.IssueInput) (grc.Issue, bool, error)
}

// Report counts created and already present records per kind.
type Report struct {
	Created  map[string]int
	Existing map[string]int
}

func (r *Report) add(kind string, created bool) {
	if created {
		r.Created[kind]++
		return
	}
	r.Existing[kind]++
}

// Loader applies a Fixture. Owner, when set, becomes the owner, auditor and
// assignee of the seeded records and the actor in the audit trail.
type Loader struct {
	Store  Store
	Owner  *int64
	Today  time.Time
	Logger *slog.Logger
}

// Load writes every fixture record that does not exist yet. Records are keyed
// the same way the application keys them: departments and frameworks by
// name, controls by framework and control id, the rest by title.
func (l Loader) Load(ctx context.Context, f Fixture) (Report, error) {
	report := Report{Created: map[string]int{}, Existing: map[string]int{}}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	today := l.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	day := func(offset *int) *time.Time {
		if offset == nil {
			return nil
		}
		d := today.AddDate(0, 0, *offset)
		return &d
	}
	var actor int64
	if l.Owner != nil {
		actor = *l.Owner
	}

	departments := make(map[string]int64, len(f.Departments))
	for _, d := range f.Departments {
		rec, created, err := l.Store.EnsureDepartment(ctx, actor, grc.DepartmentInput{Name: d.Name, Description: d.Description})
		if err != nil {
			return report, fmt.Errorf("seed: department %q: %w", d.Name, err)
		}
		departments[d.Name] = rec.ID
		report.add("departments", created)
	}
	department := func(name string) (int64, error) {
		id, ok := departments[name]
		if !ok {
			return 0, fmt.Errorf("unknown department %q", name)
		}
		return id, nil
	}

	frameworks := make(map[string]int64, len(f.Frameworks))
	for _, fw := range f.Frameworks {
		rec, created, err := l.Store.EnsureFramework(ctx, actor, grc.FrameworkInput{Name: fw.Name, Description: fw.Description, Version: fw.Version})
		if err != nil {
			return report, fmt.Errorf("seed: framework %q: %w", fw.Name, err)
		}
		frameworks[fw.Name] = rec.ID
		report.add("frameworks", created)
	}

	for _, r := range f.Risks {
		deptID, err := department(r.Department)
		if err != nil {
			return report, fmt.Errorf("seed: risk %q: %w", r.Title, err)
		}
		_, created, err := l.Store.EnsureRisk(ctx, actor, grc.RiskInput{
			Title:             r.Title,
			Description:       r.Description,
			DepartmentID:      deptID,
			Severity:          r.Severity,
			Likelihood:        r.Likelihood,
			Impact:            r.Impact,
			Status:            r.Status,
			OwnerID:           l.Owner,
			MitigationPlan:    r.MitigationPlan,
			IdentifiedDate:    day(r.Identified),
			TargetClosureDate: day(r.TargetClosure),
		})
		if err != nil {
			return report, fmt.Errorf("seed: risk %q: %w", r.Title, err)
		}
		report.add("risks", created)
	}

	for _, c := range f.Controls {
		fwID, ok := frameworks[c.Framework]
		if !ok {
			return report, fmt.Errorf("seed: control %q: unknown framework %q", c.ControlID, c.Framework)
		}
		deptID, err := department(c.Department)
		if err != nil {
			return report, fmt.Errorf("seed: control %q: %w", c.ControlID, err)
		}
		_, created, err := l.Store.EnsureControl(ctx, actor, grc.ControlInput{
			FrameworkID:        fwID,
			ControlID:          c.ControlID,
			Title:              c.Title,
			Description:        c.Description,
			DepartmentID:       deptID,
			Status:             c.Status,
			OwnerID:            l.Owner,
			Evidence:           c.Evidence,
			LastAssessmentDate: day(c.LastAssessment),
			NextAssessmentDate: day(c.NextAssessment),
		})
		if err != nil {
			return report, fmt.Errorf("seed: control %q: %w", c.ControlID, err)
		}
		report.add("controls", created)
	}

	for _, a := range f.Audits {
		deptID, err := department(a.Department)
		if err != nil {
			return report, fmt.Errorf("seed: audit %q: %w", a.Title, err)
		}
		start := today.AddDate(0, 0, a.Start)
		_, created, err := l.Store.EnsureAudit(ctx, actor, grc.AuditInput{
			Title:           a.Title,
			Type:            a.Type,
			DepartmentID:    deptID,
			Status:          a.Status,
			AuditorID:       l.Owner,
			Scope:           a.Scope,
			StartDate:       start,
			EndDate:         day(a.End),
			Findings:        a.Findings,
			Recommendations: a.Recommendations,
		})
		if err != nil {
			return report, fmt.Errorf("seed: audit %q: %w", a.Title, err)
		}
		report.add("audits", created)
	}

	for _, i := range f.Issues {
		deptID, err := department(i.Department)
		if err != nil {
			return report, fmt.Errorf("seed: issue %q: %w", i.Title, err)
		}
		_, created, err := l.Store.EnsureIssue(ctx, actor, grc.IssueInput{
			Title:           i.Title,
			Description:     i.Description,
			Priority:        i.Priority,
			Status:          i.Status,
			DepartmentID:    deptID,
			AssignedTo:      l.Owner,
			DueDate:         day(i.Due),
			ResolutionNotes: i.ResolutionNotes,
		})
		if err != nil {
			return report, fmt.Errorf("seed: issue %q: %w", i.Title, err)
		}
		report.add("issues", created)
	}

	logger.Info("seed applied", slog.Any("created", report.Created), slog.Any("existing", report.Existing))
	return report, nil
}
