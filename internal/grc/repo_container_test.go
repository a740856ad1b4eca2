//go:build container

package grc_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/grcdash/grcdash/internal/auth"
	"github.com/grcdash/grcdash/internal/grc"
	"github.com/grcdash/grcdash/internal/platform/db"
	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/migrations"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "grcdash",
			"POSTGRES_PASSWORD": "grcdash",
			"POSTGRES_DB":       "grcdash",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://grcdash:grcdash@%s:%s/grcdash?sslmode=disable", host, port.Port())
	pool, err := db.New(ctx, dsn, db.Options{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.Migrate(ctx, pool, migrations.Files)
	require.NoError(t, err)
	return pool
}

type fixture struct {
	pool *pgxpool.Pool
	repo *grc.PGRepository
	svc  *grc.Service
	dept grc.Department
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	pool := setupPostgres(t)
	store, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	repo := grc.NewRepository(pool)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := grc.NewService(repo, store, nil, logger, grc.WithClock(func() time.Time { return now }))
	dept, err := svc.CreateDepartment(context.Background(), 0, grc.DepartmentInput{Name: "Security"})
	require.NoError(t, err)
	return fixture{pool: pool, repo: repo, svc: svc, dept: dept}
}

func (f fixture) user(t *testing.T, username string) int64 {
	t.Helper()
	var id int64
	err := f.pool.QueryRow(context.Background(),
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, 'x') RETURNING id`,
		username, username+"@example.com").Scan(&id)
	require.NoError(t, err)
	return id
}

func (f fixture) issue(t *testing.T, title string, p grc.Priority, s grc.IssueStatus, due *time.Time) grc.Issue {
	t.Helper()
	i, err := f.svc.CreateIssue(context.Background(), 0, grc.IssueInput{
		Title:        title,
		Description:  "d",
		Priority:     p,
		Status:       s,
		DepartmentID: f.dept.ID,
		DueDate:      due,
	})
	require.NoError(t, err)
	return i
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func titles(issues []grc.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Title)
	}
	return out
}

func (f fixture) risk(t *testing.T, title string, owner *int64, evidence *grc.Upload) grc.Risk {
	t.Helper()
	r, err := f.svc.CreateRisk(context.Background(), 0, grc.RiskInput{
		Title: title, Description: "d", DepartmentID: f.dept.ID,
		Severity: grc.SeverityHigh, Likelihood: 3, Impact: 4, Status: grc.RiskOpen, OwnerID: owner,
	}, evidence)
	require.NoError(t, err)
	return r
}

func TestDepartmentDeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())

	risk := f.risk(t, "Phishing", nil, &grc.Upload{Filename: "scan.pdf", ContentType: "application/pdf", Body: strings.NewReader("pdf")})
	issue := f.issue(t, "Patch", grc.PriorityHigh, grc.IssueOpen, nil)

	fw, err := f.svc.CreateFramework(ctx, 0, grc.FrameworkInput{Name: "SOX", Description: "d"})
	require.NoError(t, err)
	control, err := f.svc.CreateControl(ctx, 0, grc.ControlInput{
		FrameworkID: fw.ID, ControlID: "SOX-404", Title: "Assessment", Description: "d",
		DepartmentID: f.dept.ID, Status: grc.ControlNotAssessed,
	})
	require.NoError(t, err)
	audit, err := f.svc.CreateAudit(ctx, 0, grc.AuditInput{
		Title: "Q4 review", Type: grc.AuditInternal, DepartmentID: f.dept.ID,
		Status: grc.AuditPlanned, Scope: "policies", StartDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	artifact, err := f.svc.UploadArtifact(ctx, 0, grc.ArtifactInput{
		Title: "Network diagram", Category: grc.CategoryDiagram, DepartmentID: f.dept.ID,
	}, grc.Upload{Filename: "net.png", ContentType: "image/png", Body: strings.NewReader("png")})
	require.NoError(t, err)

	refs, err := f.repo.ReferencedFiles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{risk.EvidenceFile, artifact.File}, refs)

	require.NoError(t, f.svc.DeleteDepartment(ctx, 0, f.dept.ID))

	_, err = f.svc.GetRisk(ctx, risk.ID)
	assert.ErrorIs(t, err, grc.ErrNotFound)
	_, err = f.svc.GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, grc.ErrNotFound)
	_, err = f.svc.GetControl(ctx, control.ID)
	assert.ErrorIs(t, err, grc.ErrNotFound)
	_, err = f.svc.GetAudit(ctx, audit.ID)
	assert.ErrorIs(t, err, grc.ErrNotFound)
	_, err = f.svc.GetArtifact(ctx, artifact.ID)
	assert.ErrorIs(t, err, grc.ErrNotFound)

	_, err = f.svc.GetFramework(ctx, fw.ID)
	require.NoError(t, err)

	refs, err = f.repo.ReferencedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestUserDeleteClearsAssignments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	uid := f.user(t, "sam")

	issue, err := f.svc.CreateIssue(ctx, uid, grc.IssueInput{
		Title: "Rotate keys", Description: "d", Priority: grc.PriorityLow,
		Status: grc.IssueOpen, DepartmentID: f.dept.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, issue.AssignedTo)
	assert.Equal(t, uid, *issue.AssignedTo)

	risk := f.risk(t, "Shared admin account", &uid, nil)
	require.NotNil(t, risk.OwnerID)

	_, err = f.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uid)
	require.NoError(t, err)

	got, err := f.svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedTo)
	assert.Empty(t, got.AssignedToName)

	gotRisk, err := f.svc.GetRisk(ctx, risk.ID)
	require.NoError(t, err)
	assert.Nil(t, gotRisk.OwnerID)
	assert.Empty(t, gotRisk.OwnerName)
}

func TestRiskDeleteClearsRelatedIssue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	risk := f.risk(t, "Unpatched VPN", nil, nil)

	issue, err := f.svc.CreateIssue(ctx, 0, grc.IssueInput{
		Title: "Patch VPN", Description: "d", Priority: grc.PriorityHigh,
		Status: grc.IssueOpen, DepartmentID: f.dept.ID, RelatedRiskID: &risk.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, issue.RelatedRiskID)

	require.NoError(t, f.svc.DeleteRisk(ctx, 0, risk.ID))

	got, err := f.svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RelatedRiskID)
}

func TestSetPasswordResavesProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	uid := f.user(t, "legacy")

	profiles := func() int {
		var n int
		require.NoError(t, f.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_profiles WHERE user_id = $1`, uid).Scan(&n))
		return n
	}
	require.Zero(t, profiles())

	repo := auth.NewRepository(f.pool)
	require.NoError(t, repo.SetPassword(ctx, uid, "hash-1"))
	assert.Equal(t, 1, profiles())
	require.NoError(t, repo.SetPassword(ctx, uid, "hash-2"))
	assert.Equal(t, 1, profiles())

	assert.ErrorIs(t, repo.SetPassword(ctx, uid+1000, "hash"), shared.ErrNotFound)
}

func TestControlUniquePerFramework(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	fw, err := f.svc.CreateFramework(ctx, 0, grc.FrameworkInput{Name: "NIST CSF", Description: "d"})
	require.NoError(t, err)

	in := grc.ControlInput{
		FrameworkID: fw.ID, ControlID: "PR.AC-1", Title: "Access", Description: "d",
		DepartmentID: f.dept.ID, Status: grc.ControlNotAssessed,
	}
	_, err = f.svc.CreateControl(ctx, 0, in)
	require.NoError(t, err)

	_, err = f.svc.CreateControl(ctx, 0, in)
	require.ErrorIs(t, err, grc.ErrDuplicate)
	assert.Contains(t, grc.FieldErrors(err), "control_id")

	other, err := f.svc.CreateFramework(ctx, 0, grc.FrameworkInput{Name: "ISO 27001", Description: "d"})
	require.NoError(t, err)
	in.FrameworkID = other.ID
	_, err = f.svc.CreateControl(ctx, 0, in)
	require.NoError(t, err)
}

func TestIssueFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.issue(t, "late open", grc.PriorityHigh, grc.IssueOpen, day(2025, 6, 1))
	f.issue(t, "late resolved", grc.PriorityHigh, grc.IssueResolved, day(2025, 6, 1))
	f.issue(t, "due today", grc.PriorityLow, grc.IssueInProgress, day(2025, 6, 15))
	f.issue(t, "no date", grc.PriorityCritical, grc.IssueOpen, nil)

	high, err := f.svc.ListIssues(ctx, grc.IssueFilter{Priority: grc.PriorityHigh})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"late open", "late resolved"}, titles(high))

	resolved, err := f.svc.ListIssues(ctx, grc.IssueFilter{Status: grc.IssueResolved, DepartmentID: f.dept.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"late resolved"}, titles(resolved))

	overdue, err := f.svc.OverdueIssues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"late open"}, titles(overdue))

	none, err := f.svc.ListIssues(ctx, grc.IssueFilter{DepartmentID: f.dept.ID + 1000})
	require.NoError(t, err)
	assert.Empty(t, none)
}
