package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcdash/grcdash/internal/grc"
)

type memoryStore struct {
	nextID      int64
	departments map[string]grc.Department
	frameworks  map[string]grc.Framework
	controls    map[string]grc.ControlInput
	risks       map[string]grc.RiskInput
	audits      map[string]grc.AuditInput
	issues      map[string]grc.IssueInput
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		departments: map[string]grc.Department{},
		frameworks:  map[string]grc.Framework{},
		controls:    map[string]grc.ControlInput{},
		risks:       map[string]grc.RiskInput{},
		audits:      map[string]grc.AuditInput{},
		issues:      map[string]grc.IssueInput{},
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) EnsureDepartment(_ context.Context, _ int64, in grc.DepartmentInput) (grc.Department, bool, error) {
	if d, ok := m.departments[in.Name]; ok {
		return d, false, nil
	}
	d := grc.Department{ID: m.id(), Name: in.Name, Description: in.Description}
	m.departments[in.Name] = d
	return d, true, nil
}

func (m *memoryStore) EnsureFramework(_ context.Context, _ int64, in grc.FrameworkInput) (grc.Framework, bool, error) {
	if f, ok := m.frameworks[in.Name]; ok {
		return f, false, nil
	}
	f := grc.Framework{ID: m.id(), Name: in.Name}
	m.frameworks[in.Name] = f
	return f, true, nil
}

func (m *memoryStore) EnsureControl(_ context.Context, _ int64, in grc.ControlInput) (grc.Control, bool, error) {
	if _, ok := m.controls[in.ControlID]; ok {
		return grc.Control{}, false, nil
	}
	m.controls[in.ControlID] = in
	return grc.Control{ID: m.id()}, true, nil
}

func (m *memoryStore) EnsureRisk(_ context.Context, _ int64, in grc.RiskInput) (grc.Risk, bool, error) {
	if _, ok := m.risks[in.Title]; ok {
		return grc.Risk{}, false, nil
	}
	m.risks[in.Title] = in
	return grc.Risk{ID: m.id()}, true, nil
}

func (m *memoryStore) EnsureAudit(_ context.Context, _ int64, in grc.AuditInput) (grc.Audit, bool, error) {
	if _, ok := m.audits[in.Title]; ok {
		return grc.Audit{}, false, nil
	}
	m.audits[in.Title] = in
	return grc.Audit{ID: m.id()}, true, nil
}

func (m *memoryStore) EnsureIssue(_ context.Context, _ int64, in grc.IssueInput) (grc.Issue, bool, error) {
	if _, ok := m.issues[in.Title]; ok {
		return grc.Issue{}, false, nil
	}
	m.issues[in.Title] = in
	return grc.Issue{ID: m.id()}, true, nil
}

func TestDefaultFixtureIsValid(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	assert.Len(t, f.Departments, 4)
	assert.Len(t, f.Frameworks, 3)
	assert.Len(t, f.Risks, 6)
	assert.Len(t, f.Controls, 4)
	assert.Len(t, f.Audits, 2)
	assert.Len(t, f.Issues, 3)

	for _, r := range f.Risks {
		assert.True(t, r.Severity.Valid(), r.Title)
		assert.True(t, r.Status.Valid(), r.Title)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("departments:\n  - name: IT\n    colour: blue\n"))
	require.Error(t, err)
}

func TestLoadResolvesReferencesAndDates(t *testing.T) {
	store := newMemoryStore()
	owner := int64(7)
	today := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	loader := Loader{Store: store, Owner: &owner, Today: today}

	f, err := Default()
	require.NoError(t, err)
	report, err := loader.Load(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Created["departments"])
	assert.Equal(t, 6, report.Created["risks"])
	assert.Empty(t, report.Existing)

	risk := store.risks["Business Continuity Planning"]
	assert.Equal(t, store.departments["Operations"].ID, risk.DepartmentID)
	require.NotNil(t, risk.TargetClosureDate)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), *risk.TargetClosureDate)
	require.NotNil(t, risk.OwnerID)
	assert.Equal(t, owner, *risk.OwnerID)

	control := store.controls["SOX-404"]
	assert.Equal(t, store.frameworks["SOX"].ID, control.FrameworkID)
	assert.Equal(t, store.departments["Finance"].ID, control.DepartmentID)

	audit := store.audits["Q4 Internal Security Audit"]
	assert.Equal(t, time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), audit.StartDate)

	issue := store.issues["Update firewall ruleset for new application"]
	assert.Empty(t, issue.ResolutionNotes)
	require.NotNil(t, issue.DueDate)
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), *issue.DueDate)
}

func TestLoadTwiceCreatesNothingNew(t *testing.T) {
	store := newMemoryStore()
	loader := Loader{Store: store, Today: time.Now()}
	f, err := Default()
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), f)
	require.NoError(t, err)
	report, err := loader.Load(context.Background(), f)
	require.NoError(t, err)

	assert.Empty(t, report.Created)
	assert.Equal(t, 3, report.Existing["issues"])
	assert.Len(t, store.issues, 3)
}

func TestLoadUnknownDepartment(t *testing.T) {
	f := Fixture{Risks: []Risk{{Title: "Orphan", Department: "Nowhere"}}}
	_, err := Loader{Store: newMemoryStore()}.Load(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown department "Nowhere"`)
}
