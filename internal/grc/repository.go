package grc

import "context"

// DepartmentRepository persists departments.
type DepartmentRepository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	FindDepartmentByName(ctx context.Context, name string) (Department, error)
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	UpdateDepartment(ctx context.Context, d Department) error
	DeleteDepartment(ctx context.Context, id int64) error
	// DepartmentFiles lists stored file keys owned by records of the department.
	DepartmentFiles(ctx context.Context, id int64) ([]string, error)
}

// RiskRepository persists risks.
type RiskRepository interface {
	ListRisks(ctx context.Context, f RiskFilter) ([]Risk, error)
	RecentRisks(ctx context.Context, limit int) ([]Risk, error)
	GetRisk(ctx context.Context, id int64) (Risk, error)
	FindRiskByTitle(ctx context.Context, title string) (Risk, error)
	CreateRisk(ctx context.Context, r Risk) (Risk, error)
	UpdateRisk(ctx context.Context, r Risk) error
	// SaveRiskEvidence is the only writer of the evidence columns.
	SaveRiskEvidence(ctx context.Context, r Risk) error
	DeleteRisk(ctx context.Context, id int64) error
	CountRisks(ctx context.Context, f RiskFilter) (int, error)
	RiskCountsBySeverity(ctx context.Context) ([]GroupCount, error)
	RiskHeatmap(ctx context.Context) ([]HeatmapPoint, error)
}

// FrameworkRepository persists compliance frameworks.
type FrameworkRepository interface {
	ListFrameworks(ctx context.Context) ([]Framework, error)
	GetFramework(ctx context.Context, id int64) (Framework, error)
	FindFrameworkByName(ctx context.Context, name string) (Framework, error)
	CreateFramework(ctx context.Context, f Framework) (Framework, error)
	UpdateFramework(ctx context.Context, f Framework) error
	DeleteFramework(ctx context.Context, id int64) error
}

// ControlRepository persists compliance controls.
type ControlRepository interface {
	ListControls(ctx context.Context, f ControlFilter) ([]Control, error)
	GetControl(ctx context.Context, id int64) (Control, error)
	FindControl(ctx context.Context, frameworkID int64, controlID string) (Control, error)
	CreateControl(ctx context.Context, c Control) (Control, error)
	UpdateControl(ctx context.Context, c Control) error
	DeleteControl(ctx context.Context, id int64) error
	CountControls(ctx context.Context, f ControlFilter) (int, error)
	ControlCountsByStatus(ctx context.Context) ([]GroupCount, error)
}

// AuditRepository persists audits.
type AuditRepository interface {
	ListAudits(ctx context.Context, f AuditFilter) ([]Audit, error)
	RecentAudits(ctx context.Context, limit int) ([]Audit, error)
	GetAudit(ctx context.Context, id int64) (Audit, error)
	FindAuditByTitle(ctx context.Context, title string) (Audit, error)
	CreateAudit(ctx context.Context, a Audit) (Audit, error)
	UpdateAudit(ctx context.Context, a Audit) error
	DeleteAudit(ctx context.Context, id int64) error
	CountAudits(ctx context.Context, f AuditFilter) (int, error)
}

// IssueRepository persists PO&AMs.
type IssueRepository interface {
	ListIssues(ctx context.Context, f IssueFilter) ([]Issue, error)
	RecentIssues(ctx context.Context, limit int) ([]Issue, error)
	GetIssue(ctx context.Context, id int64) (Issue, error)
	FindIssueByTitle(ctx context.Context, title string) (Issue, error)
	CreateIssue(ctx context.Context, i Issue) (Issue, error)
	UpdateIssue(ctx context.Context, i Issue) error
	DeleteIssue(ctx context.Context, id int64) error
	CountIssues(ctx context.Context, f IssueFilter) (int, error)
}

// ArtifactRepository persists artifact metadata.
type ArtifactRepository interface {
	ListArtifacts(ctx context.Context, f ArtifactFilter) ([]Artifact, error)
	GetArtifact(ctx context.Context, id int64) (Artifact, error)
	CreateArtifact(ctx context.Context, a Artifact) (Artifact, error)
	UpdateArtifact(ctx context.Context, a Artifact) error
	DeleteArtifact(ctx context.Context, id int64) error
	// ReferencedFiles lists every file key still referenced by a record.
	ReferencedFiles(ctx context.Context) ([]string, error)
}

// Repository is the full persistence port of the GRC domain.
type Repository interface {
	DepartmentRepository
	RiskRepository
	FrameworkRepository
	ControlRepository
	AuditRepository
	IssueRepository
	ArtifactRepository
}
