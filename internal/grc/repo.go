package grc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grcdash/grcdash/internal/platform/db"
)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

func notFound(err error, entity string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("grc: get %s: %w", entity, err)
}

// writeError translates constraint failures into field errors.
func writeError(op string, err error) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		if constraint == "compliance_controls_framework_control_key" {
			return duplicateError("control_id", "Compliance control with this Framework and Control id already exists.")
		}
		return duplicateError("__all__", "A record with these values already exists.")
	}
	if constraint, ok := db.ForeignKeyViolation(err); ok {
		return NewValidationError(map[string]string{foreignKeyField(constraint): "Select a valid choice."})
	}
	return fmt.Errorf("grc: %s: %w", op, err)
}

// foreignKeyField maps e.g. risks_department_id_fkey to department.
func foreignKeyField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_fkey")
	for _, table := range []string{"compliance_controls_", "risks_", "audits_", "issues_", "artifacts_"} {
		if strings.HasPrefix(name, table) {
			name = strings.TrimPrefix(name, table)
			break
		}
	}
	return strings.TrimSuffix(name, "_id")
}

func requireAffected(tag interface{ RowsAffected() int64 }, entity string, id int64) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}

// Departments

const departmentColumns = `id, name, description, created_at, updated_at`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *PGRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("grc: list departments: %w", err)
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetDepartment(ctx context.Context, id int64) (Department, error) {
	d, err := scanDepartment(r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id))
	if err != nil {
		return Department{}, notFound(err, "department", id)
	}
	return d, nil
}

func (r *PGRepository) FindDepartmentByName(ctx context.Context, name string) (Department, error) {
	d, err := scanDepartment(r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE name = $1 ORDER BY id LIMIT 1`, name))
	if err != nil {
		return Department{}, notFound(err, "department", name)
	}
	return d, nil
}

func (r *PGRepository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO departments (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		d.Name, d.Description).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Department{}, writeError("create department", err)
	}
	return d, nil
}

func (r *PGRepository) UpdateDepartment(ctx context.Context, d Department) error {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`,
		d.Name, d.Description, d.ID)
	if err != nil {
		return writeError("update department", err)
	}
	return requireAffected(tag, "department", d.ID)
}

func (r *PGRepository) DeleteDepartment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete department: %w", err)
	}
	return requireAffected(tag, "department", id)
}

func (r *PGRepository) DepartmentFiles(ctx context.Context, id int64) ([]string, error) {
	return r.collectStrings(ctx, `SELECT file FROM artifacts WHERE department_id = $1
		UNION SELECT evidence_file FROM risks WHERE department_id = $1 AND evidence_file IS NOT NULL`, id)
}

func (r *PGRepository) collectStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grc: collect files: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Risks

const riskSelect = `SELECT r.id, r.title, r.description, r.department_id, d.name, r.severity, r.likelihood, r.impact,
	r.status, r.owner_id, COALESCE(u.username, ''), r.mitigation_plan, r.identified_date, r.target_closure_date,
	r.compliance_percentage, r.evidence_uploaded, COALESCE(r.evidence_file, ''), r.last_evidence_update,
	r.created_at, r.updated_at
	FROM risks r
	JOIN departments d ON d.id = r.department_id
	LEFT JOIN users u ON u.id = r.owner_id`

func scanRisk(row pgx.Row) (Risk, error) {
	var k Risk
	err := row.Scan(&k.ID, &k.Title, &k.Description, &k.DepartmentID, &k.DepartmentName, &k.Severity, &k.Likelihood,
		&k.Impact, &k.Status, &k.OwnerID, &k.OwnerName, &k.MitigationPlan, &k.IdentifiedDate, &k.TargetClosureDate,
		&k.CompliancePercentage, &k.EvidenceUploaded, &k.EvidenceFile, &k.LastEvidenceUpdate, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

func (r *PGRepository) queryRisks(ctx context.Context, query string, args ...any) ([]Risk, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grc: list risks: %w", err)
	}
	defer rows.Close()
	var out []Risk
	for rows.Next() {
		k, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListRisks(ctx context.Context, f RiskFilter) ([]Risk, error) {
	c := f.conditions("r")
	return r.queryRisks(ctx, riskSelect+c.where()+` ORDER BY r.created_at DESC, r.id DESC`, c.args...)
}

func (r *PGRepository) RecentRisks(ctx context.Context, limit int) ([]Risk, error) {
	return r.queryRisks(ctx, riskSelect+` ORDER BY r.created_at DESC, r.id DESC LIMIT $1`, limit)
}

func (r *PGRepository) GetRisk(ctx context.Context, id int64) (Risk, error) {
	k, err := scanRisk(r.pool.QueryRow(ctx, riskSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return Risk{}, notFound(err, "risk", id)
	}
	return k, nil
}

func (r *PGRepository) FindRiskByTitle(ctx context.Context, title string) (Risk, error) {
	k, err := scanRisk(r.pool.QueryRow(ctx, riskSelect+` WHERE r.title = $1 ORDER BY r.id LIMIT 1`, title))
	if err != nil {
		return Risk{}, notFound(err, "risk", title)
	}
	return k, nil
}

func (r *PGRepository) CreateRisk(ctx context.Context, k Risk) (Risk, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO risks (title, description, department_id, severity, likelihood, impact,
		status, owner_id, mitigation_plan, identified_date, target_closure_date, compliance_percentage,
		evidence_uploaded, evidence_file, last_evidence_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), $15)
		RETURNING id, created_at, updated_at`,
		k.Title, k.Description, k.DepartmentID, string(k.Severity), k.Likelihood, k.Impact, string(k.Status), k.OwnerID,
		k.MitigationPlan, k.IdentifiedDate, k.TargetClosureDate, k.CompliancePercentage, k.EvidenceUploaded,
		k.EvidenceFile, k.LastEvidenceUpdate).Scan(&k.ID, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return Risk{}, writeError("create risk", err)
	}
	return k, nil
}

func (r *PGRepository) UpdateRisk(ctx context.Context, k Risk) error {
	tag, err := r.pool.Exec(ctx, `UPDATE risks SET title = $1, description = $2, department_id = $3, severity = $4,
		likelihood = $5, impact = $6, status = $7, owner_id = $8, mitigation_plan = $9, identified_date = $10,
		target_closure_date = $11, updated_at = NOW()
		WHERE id = $12`,
		k.Title, k.Description, k.DepartmentID, string(k.Severity), k.Likelihood, k.Impact, string(k.Status), k.OwnerID,
		k.MitigationPlan, k.IdentifiedDate, k.TargetClosureDate, k.ID)
	if err != nil {
		return writeError("update risk", err)
	}
	return requireAffected(tag, "risk", k.ID)
}

func (r *PGRepository) SaveRiskEvidence(ctx context.Context, k Risk) error {
	tag, err := r.pool.Exec(ctx, `UPDATE risks SET compliance_percentage = $1, evidence_uploaded = $2,
		evidence_file = NULLIF($3, ''), last_evidence_update = $4, updated_at = NOW()
		WHERE id = $5`,
		k.CompliancePercentage, k.EvidenceUploaded, k.EvidenceFile, k.LastEvidenceUpdate, k.ID)
	if err != nil {
		return writeError("save risk evidence", err)
	}
	return requireAffected(tag, "risk", k.ID)
}

func (r *PGRepository) DeleteRisk(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM risks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete risk: %w", err)
	}
	return requireAffected(tag, "risk", id)
}

func (r *PGRepository) CountRisks(ctx context.Context, f RiskFilter) (int, error) {
	c := f.conditions("r")
	return r.count(ctx, `SELECT COUNT(*) FROM risks r`+c.where(), c.args...)
}

func (r *PGRepository) RiskCountsBySeverity(ctx context.Context) ([]GroupCount, error) {
	return r.groupCounts(ctx, `SELECT severity, COUNT(*) FROM risks GROUP BY severity`)
}

func (r *PGRepository) RiskHeatmap(ctx context.Context) ([]HeatmapPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.title, r.likelihood, r.impact, r.severity, d.name
		FROM risks r JOIN departments d ON d.id = r.department_id
		ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("grc: risk heatmap: %w", err)
	}
	defer rows.Close()
	out := []HeatmapPoint{}
	for rows.Next() {
		var p HeatmapPoint
		if err := rows.Scan(&p.ID, &p.Title, &p.Likelihood, &p.Impact, &p.Severity, &p.Department); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("grc: count: %w", err)
	}
	return n, nil
}

func (r *PGRepository) groupCounts(ctx context.Context, query string) ([]GroupCount, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("grc: group counts: %w", err)
	}
	defer rows.Close()
	var out []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Frameworks

const frameworkSelect = `SELECT f.id, f.name, f.description, f.version,
	(SELECT COUNT(*) FROM compliance_controls c WHERE c.framework_id = f.id), f.created_at, f.updated_at
	FROM compliance_frameworks f`

func scanFramework(row pgx.Row) (Framework, error) {
	var f Framework
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Version, &f.ControlCount, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *PGRepository) ListFrameworks(ctx context.Context) ([]Framework, error) {
	rows, err := r.pool.Query(ctx, frameworkSelect+` ORDER BY f.name, f.id`)
	if err != nil {
		return nil, fmt.Errorf("grc: list frameworks: %w", err)
	}
	defer rows.Close()
	var out []Framework
	for rows.Next() {
		f, err := scanFramework(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetFramework(ctx context.Context, id int64) (Framework, error) {
	f, err := scanFramework(r.pool.QueryRow(ctx, frameworkSelect+` WHERE f.id = $1`, id))
	if err != nil {
		return Framework{}, notFound(err, "framework", id)
	}
	return f, nil
}

func (r *PGRepository) FindFrameworkByName(ctx context.Context, name string) (Framework, error) {
	f, err := scanFramework(r.pool.QueryRow(ctx, frameworkSelect+` WHERE f.name = $1 ORDER BY f.id LIMIT 1`, name))
	if err != nil {
		return Framework{}, notFound(err, "framework", name)
	}
	return f, nil
}

func (r *PGRepository) CreateFramework(ctx context.Context, f Framework) (Framework, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO compliance_frameworks (name, description, version) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`, f.Name, f.Description, f.Version).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return Framework{}, writeError("create framework", err)
	}
	return f, nil
}

func (r *PGRepository) UpdateFramework(ctx context.Context, f Framework) error {
	tag, err := r.pool.Exec(ctx, `UPDATE compliance_frameworks SET name = $1, description = $2, version = $3,
		updated_at = NOW() WHERE id = $4`, f.Name, f.Description, f.Version, f.ID)
	if err != nil {
		return writeError("update framework", err)
	}
	return requireAffected(tag, "framework", f.ID)
}

func (r *PGRepository) DeleteFramework(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM compliance_frameworks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete framework: %w", err)
	}
	return requireAffected(tag, "framework", id)
}

// Controls

const controlSelect = `SELECT c.id, c.framework_id, f.name, c.control_id, c.title, c.description, c.department_id,
	d.name, c.status, c.owner_id, COALESCE(u.username, ''), c.evidence, c.last_assessment_date,
	c.next_assessment_date, c.created_at, c.updated_at
	FROM compliance_controls c
	JOIN compliance_frameworks f ON f.id = c.framework_id
	JOIN departments d ON d.id = c.department_id
	LEFT JOIN users u ON u.id = c.owner_id`

func scanControl(row pgx.Row) (Control, error) {
	var c Control
	err := row.Scan(&c.ID, &c.FrameworkID, &c.FrameworkName, &c.ControlID, &c.Title, &c.Description, &c.DepartmentID,
		&c.DepartmentName, &c.Status, &c.OwnerID, &c.OwnerName, &c.Evidence, &c.LastAssessmentDate,
		&c.NextAssessmentDate, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PGRepository) ListControls(ctx context.Context, f ControlFilter) ([]Control, error) {
	c := f.conditions("c")
	rows, err := r.pool.Query(ctx, controlSelect+c.where()+` ORDER BY f.name, c.control_id, c.id`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("grc: list controls: %w", err)
	}
	defer rows.Close()
	var out []Control
	for rows.Next() {
		ctl, err := scanControl(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ctl)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetControl(ctx context.Context, id int64) (Control, error) {
	c, err := scanControl(r.pool.QueryRow(ctx, controlSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return Control{}, notFound(err, "control", id)
	}
	return c, nil
}

func (r *PGRepository) FindControl(ctx context.Context, frameworkID int64, controlID string) (Control, error) {
	c, err := scanControl(r.pool.QueryRow(ctx, controlSelect+` WHERE c.framework_id = $1 AND c.control_id = $2`,
		frameworkID, controlID))
	if err != nil {
		return Control{}, notFound(err, "control", controlID)
	}
	return c, nil
}

func (r *PGRepository) CreateControl(ctx context.Context, c Control) (Control, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO compliance_controls (framework_id, control_id, title, description,
		department_id, status, owner_id, evidence, last_assessment_date, next_assessment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		c.FrameworkID, c.ControlID, c.Title, c.Description, c.DepartmentID, string(c.Status), c.OwnerID, c.Evidence,
		c.LastAssessmentDate, c.NextAssessmentDate).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Control{}, writeError("create control", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateControl(ctx context.Context, c Control) error {
	tag, err := r.pool.Exec(ctx, `UPDATE compliance_controls SET framework_id = $1, control_id = $2, title = $3,
		description = $4, department_id = $5, status = $6, owner_id = $7, evidence = $8, last_assessment_date = $9,
		next_assessment_date = $10, updated_at = NOW()
		WHERE id = $11`,
		c.FrameworkID, c.ControlID, c.Title, c.Description, c.DepartmentID, string(c.Status), c.OwnerID, c.Evidence,
		c.LastAssessmentDate, c.NextAssessmentDate, c.ID)
	if err != nil {
		return writeError("update control", err)
	}
	return requireAffected(tag, "control", c.ID)
}

func (r *PGRepository) DeleteControl(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM compliance_controls WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete control: %w", err)
	}
	return requireAffected(tag, "control", id)
}

func (r *PGRepository) CountControls(ctx context.Context, f ControlFilter) (int, error) {
	c := f.conditions("c")
	return r.count(ctx, `SELECT COUNT(*) FROM compliance_controls c`+c.where(), c.args...)
}

func (r *PGRepository) ControlCountsByStatus(ctx context.Context) ([]GroupCount, error) {
	return r.groupCounts(ctx, `SELECT status, COUNT(*) FROM compliance_controls GROUP BY status`)
}

// Audits

const auditSelect = `SELECT a.id, a.title, a.audit_type, a.department_id, d.name, a.status, a.auditor_id,
	COALESCE(u.username, ''), a.scope, a.start_date, a.end_date, a.findings, a.recommendations,
	a.created_at, a.updated_at
	FROM audits a
	JOIN departments d ON d.id = a.department_id
	LEFT JOIN users u ON u.id = a.auditor_id`

func scanAudit(row pgx.Row) (Audit, error) {
	var a Audit
	err := row.Scan(&a.ID, &a.Title, &a.Type, &a.DepartmentID, &a.DepartmentName, &a.Status, &a.AuditorID,
		&a.AuditorName, &a.Scope, &a.StartDate, &a.EndDate, &a.Findings, &a.Recommendations, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PGRepository) queryAudits(ctx context.Context, query string, args ...any) ([]Audit, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grc: list audits: %w", err)
	}
	defer rows.Close()
	var out []Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListAudits(ctx context.Context, f AuditFilter) ([]Audit, error) {
	c := f.conditions("a")
	return r.queryAudits(ctx, auditSelect+c.where()+` ORDER BY a.start_date DESC, a.id DESC`, c.args...)
}

func (r *PGRepository) RecentAudits(ctx context.Context, limit int) ([]Audit, error) {
	return r.queryAudits(ctx, auditSelect+` ORDER BY a.created_at DESC, a.id DESC LIMIT $1`, limit)
}

func (r *PGRepository) GetAudit(ctx context.Context, id int64) (Audit, error) {
	a, err := scanAudit(r.pool.QueryRow(ctx, auditSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return Audit{}, notFound(err, "audit", id)
	}
	return a, nil
}

func (r *PGRepository) FindAuditByTitle(ctx context.Context, title string) (Audit, error) {
	a, err := scanAudit(r.pool.QueryRow(ctx, auditSelect+` WHERE a.title = $1 ORDER BY a.id LIMIT 1`, title))
	if err != nil {
		return Audit{}, notFound(err, "audit", title)
	}
	return a, nil
}

func (r *PGRepository) CreateAudit(ctx context.Context, a Audit) (Audit, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO audits (title, audit_type, department_id, status, auditor_id, scope,
		start_date, end_date, findings, recommendations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		a.Title, string(a.Type), a.DepartmentID, string(a.Status), a.AuditorID, a.Scope, a.StartDate, a.EndDate,
		a.Findings, a.Recommendations).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Audit{}, writeError("create audit", err)
	}
	return a, nil
}

func (r *PGRepository) UpdateAudit(ctx context.Context, a Audit) error {
	tag, err := r.pool.Exec(ctx, `UPDATE audits SET title = $1, audit_type = $2, department_id = $3, status = $4,
		auditor_id = $5, scope = $6, start_date = $7, end_date = $8, findings = $9, recommendations = $10,
		updated_at = NOW()
		WHERE id = $11`,
		a.Title, string(a.Type), a.DepartmentID, string(a.Status), a.AuditorID, a.Scope, a.StartDate, a.EndDate,
		a.Findings, a.Recommendations, a.ID)
	if err != nil {
		return writeError("update audit", err)
	}
	return requireAffected(tag, "audit", a.ID)
}

func (r *PGRepository) DeleteAudit(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete audit: %w", err)
	}
	return requireAffected(tag, "audit", id)
}

func (r *PGRepository) CountAudits(ctx context.Context, f AuditFilter) (int, error) {
	c := f.conditions("a")
	return r.count(ctx, `SELECT COUNT(*) FROM audits a`+c.where(), c.args...)
}

// Issues

const issueSelect = `SELECT i.id, i.title, i.description, i.priority, i.status, i.department_id, d.name,
	i.assigned_to, COALESCE(u.username, ''), COALESCE(u.email, ''), i.related_risk_id, i.related_audit_id,
	i.due_date, i.resolution_notes, i.created_at, i.updated_at
	FROM issues i
	JOIN departments d ON d.id = i.department_id
	LEFT JOIN users u ON u.id = i.assigned_to`

func scanIssue(row pgx.Row) (Issue, error) {
	var i Issue
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Priority, &i.Status, &i.DepartmentID, &i.DepartmentName,
		&i.AssignedTo, &i.AssignedToName, &i.AssignedToEmail, &i.RelatedRiskID, &i.RelatedAuditID, &i.DueDate,
		&i.ResolutionNotes, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (r *PGRepository) queryIssues(ctx context.Context, query string, args ...any) ([]Issue, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grc: list issues: %w", err)
	}
	defer rows.Close()
	var out []Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListIssues(ctx context.Context, f IssueFilter) ([]Issue, error) {
	c := f.conditions("i")
	return r.queryIssues(ctx, issueSelect+c.where()+` ORDER BY i.created_at DESC, i.id DESC`, c.args...)
}

func (r *PGRepository) RecentIssues(ctx context.Context, limit int) ([]Issue, error) {
	return r.queryIssues(ctx, issueSelect+` ORDER BY i.created_at DESC, i.id DESC LIMIT $1`, limit)
}

func (r *PGRepository) GetIssue(ctx context.Context, id int64) (Issue, error) {
	i, err := scanIssue(r.pool.QueryRow(ctx, issueSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return Issue{}, notFound(err, "issue", id)
	}
	return i, nil
}

func (r *PGRepository) FindIssueByTitle(ctx context.Context, title string) (Issue, error) {
	i, err := scanIssue(r.pool.QueryRow(ctx, issueSelect+` WHERE i.title = $1 ORDER BY i.id LIMIT 1`, title))
	if err != nil {
		return Issue{}, notFound(err, "issue", title)
	}
	return i, nil
}

func (r *PGRepository) CreateIssue(ctx context.Context, i Issue) (Issue, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO issues (title, description, priority, status, department_id,
		assigned_to, related_risk_id, related_audit_id, due_date, resolution_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		i.Title, i.Description, string(i.Priority), string(i.Status), i.DepartmentID, i.AssignedTo, i.RelatedRiskID,
		i.RelatedAuditID, i.DueDate, i.ResolutionNotes).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return Issue{}, writeError("create issue", err)
	}
	return i, nil
}

func (r *PGRepository) UpdateIssue(ctx context.Context, i Issue) error {
	tag, err := r.pool.Exec(ctx, `UPDATE issues SET title = $1, description = $2, priority = $3, status = $4,
		department_id = $5, assigned_to = $6, related_risk_id = $7, related_audit_id = $8, due_date = $9,
		resolution_notes = $10, updated_at = NOW()
		WHERE id = $11`,
		i.Title, i.Description, string(i.Priority), string(i.Status), i.DepartmentID, i.AssignedTo, i.RelatedRiskID,
		i.RelatedAuditID, i.DueDate, i.ResolutionNotes, i.ID)
	if err != nil {
		return writeError("update issue", err)
	}
	return requireAffected(tag, "issue", i.ID)
}

func (r *PGRepository) DeleteIssue(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete issue: %w", err)
	}
	return requireAffected(tag, "issue", id)
}

func (r *PGRepository) CountIssues(ctx context.Context, f IssueFilter) (int, error) {
	c := f.conditions("i")
	return r.count(ctx, `SELECT COUNT(*) FROM issues i`+c.where(), c.args...)
}

// Artifacts

const artifactSelect = `SELECT a.id, a.title, a.description, a.category, a.department_id, d.name, a.file,
	a.file_name, a.content_type, a.size_bytes, a.uploaded_by, COALESCE(u.username, ''), a.created_at, a.updated_at
	FROM artifacts a
	JOIN departments d ON d.id = a.department_id
	LEFT JOIN users u ON u.id = a.uploaded_by`

func scanArtifact(row pgx.Row) (Artifact, error) {
	var a Artifact
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Category, &a.DepartmentID, &a.DepartmentName, &a.File,
		&a.FileName, &a.ContentType, &a.SizeBytes, &a.UploadedBy, &a.UploadedByName, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PGRepository) ListArtifacts(ctx context.Context, f ArtifactFilter) ([]Artifact, error) {
	c := f.conditions("a")
	rows, err := r.pool.Query(ctx, artifactSelect+c.where()+` ORDER BY a.created_at DESC, a.id DESC`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("grc: list artifacts: %w", err)
	}
	defer rows.Close()
	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetArtifact(ctx context.Context, id int64) (Artifact, error) {
	a, err := scanArtifact(r.pool.QueryRow(ctx, artifactSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return Artifact{}, notFound(err, "artifact", id)
	}
	return a, nil
}

func (r *PGRepository) CreateArtifact(ctx context.Context, a Artifact) (Artifact, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO artifacts (title, description, category, department_id, file, file_name,
		content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		a.Title, a.Description, string(a.Category), a.DepartmentID, a.File, a.FileName, a.ContentType, a.SizeBytes,
		a.UploadedBy).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Artifact{}, writeError("create artifact", err)
	}
	return a, nil
}

func (r *PGRepository) UpdateArtifact(ctx context.Context, a Artifact) error {
	tag, err := r.pool.Exec(ctx, `UPDATE artifacts SET title = $1, description = $2, category = $3,
		department_id = $4, updated_at = NOW() WHERE id = $5`,
		a.Title, a.Description, string(a.Category), a.DepartmentID, a.ID)
	if err != nil {
		return writeError("update artifact", err)
	}
	return requireAffected(tag, "artifact", a.ID)
}

func (r *PGRepository) DeleteArtifact(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("grc: delete artifact: %w", err)
	}
	return requireAffected(tag, "artifact", id)
}

func (r *PGRepository) ReferencedFiles(ctx context.Context) ([]string, error) {
	return r.collectStrings(ctx, `SELECT file FROM artifacts
		UNION SELECT evidence_file FROM risks WHERE evidence_file IS NOT NULL`)
}
