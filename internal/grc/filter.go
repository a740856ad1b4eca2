package grc

import (
	"fmt"
	"strings"
	"time"
)

// RiskFilter narrows a risk listing. Zero values are not applied.
type RiskFilter struct {
	Severity     Severity
	Status       RiskStatus
	Statuses     []RiskStatus
	DepartmentID int64
}

// ControlFilter narrows a control listing.
type ControlFilter struct {
	FrameworkID  int64
	Status       ControlStatus
	DepartmentID int64
}

// AuditFilter narrows an audit listing. StartFrom and StartTo are inclusive.
type AuditFilter struct {
	Type         AuditType
	Status       AuditStatus
	DepartmentID int64
	StartFrom    *time.Time
	StartTo      *time.Time
}

// IssueFilter narrows an issue listing. DueBefore is exclusive.
type IssueFilter struct {
	Priority     Priority
	Status       IssueStatus
	Statuses     []IssueStatus
	DepartmentID int64
	DueBefore    *time.Time
}

// ArtifactFilter narrows an artifact listing.
type ArtifactFilter struct {
	Category     ArtifactCategory
	DepartmentID int64
}

// conditions accumulates WHERE clauses with positional arguments.
type conditions struct {
	clauses []string
	args    []any
}

// add appends expr, substituting %d with the next placeholder index.
func (c *conditions) add(expr string, arg any) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(expr, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (f RiskFilter) conditions(alias string) conditions {
	var c conditions
	if f.Severity != "" {
		c.add(alias+".severity = $%d", string(f.Severity))
	}
	if f.Status != "" {
		c.add(alias+".status = $%d", string(f.Status))
	}
	if len(f.Statuses) > 0 {
		c.add(alias+".status = ANY($%d)", stringSlice(f.Statuses))
	}
	if f.DepartmentID > 0 {
		c.add(alias+".department_id = $%d", f.DepartmentID)
	}
	return c
}

func (f ControlFilter) conditions(alias string) conditions {
	var c conditions
	if f.FrameworkID > 0 {
		c.add(alias+".framework_id = $%d", f.FrameworkID)
	}
	if f.Status != "" {
		c.add(alias+".status = $%d", string(f.Status))
	}
	if f.DepartmentID > 0 {
		c.add(alias+".department_id = $%d", f.DepartmentID)
	}
	return c
}

func (f AuditFilter) conditions(alias string) conditions {
	var c conditions
	if f.Type != "" {
		c.add(alias+".audit_type = $%d", string(f.Type))
	}
	if f.Status != "" {
		c.add(alias+".status = $%d", string(f.Status))
	}
	if f.DepartmentID > 0 {
		c.add(alias+".department_id = $%d", f.DepartmentID)
	}
	if f.StartFrom != nil {
		c.add(alias+".start_date >= $%d", *f.StartFrom)
	}
	if f.StartTo != nil {
		c.add(alias+".start_date <= $%d", *f.StartTo)
	}
	return c
}

func (f IssueFilter) conditions(alias string) conditions {
	var c conditions
	if f.Priority != "" {
		c.add(alias+".priority = $%d", string(f.Priority))
	}
	if f.Status != "" {
		c.add(alias+".status = $%d", string(f.Status))
	}
	if len(f.Statuses) > 0 {
		c.add(alias+".status = ANY($%d)", stringSlice(f.Statuses))
	}
	if f.DepartmentID > 0 {
		c.add(alias+".department_id = $%d", f.DepartmentID)
	}
	if f.DueBefore != nil {
		c.add(alias+".due_date < $%d", *f.DueBefore)
	}
	return c
}

func (f ArtifactFilter) conditions(alias string) conditions {
	var c conditions
	if f.Category != "" {
		c.add(alias+".category = $%d", string(f.Category))
	}
	if f.DepartmentID > 0 {
		c.add(alias+".department_id = $%d", f.DepartmentID)
	}
	return c
}

func stringSlice[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
