package grc

import "time"

// Department is the organising unit that owns every governed record.
type Department struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Risk is an entry of the risk register.
type Risk struct {
	ID                   int64
	Title                string
	Description          string
	DepartmentID         int64
	DepartmentName       string
	Severity             Severity
	Likelihood           int
	Impact               int
	Status               RiskStatus
	OwnerID              *int64
	OwnerName            string
	MitigationPlan       string
	IdentifiedDate       time.Time
	TargetClosureDate    *time.Time
	CompliancePercentage int
	EvidenceUploaded     bool
	EvidenceFile         string
	LastEvidenceUpdate   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Framework is a named external compliance standard.
type Framework struct {
	ID           int64
	Name         string
	Description  string
	Version      string
	ControlCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Control is one measurable requirement of a framework.
type Control struct {
	ID                 int64
	FrameworkID        int64
	FrameworkName      string
	ControlID          string
	Title              string
	Description        string
	DepartmentID       int64
	DepartmentName     string
	Status             ControlStatus
	OwnerID            *int64
	OwnerName          string
	Evidence           string
	LastAssessmentDate *time.Time
	NextAssessmentDate *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Audit is a planned or executed audit engagement.
type Audit struct {
	ID              int64
	Title           string
	Type            AuditType
	DepartmentID    int64
	DepartmentName  string
	Status          AuditStatus
	AuditorID       *int64
	AuditorName     string
	Scope           string
	StartDate       time.Time
	EndDate         *time.Time
	Findings        string
	Recommendations string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Issue is a PO&AM remediation item.
type Issue struct {
	ID              int64
	Title           string
	Description     string
	Priority        Priority
	Status          IssueStatus
	DepartmentID    int64
	DepartmentName  string
	AssignedTo      *int64
	AssignedToName  string
	AssignedToEmail string
	RelatedRiskID   *int64
	RelatedAuditID  *int64
	DueDate         *time.Time
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOverdue reports whether the issue is still active past its due date.
func (i Issue) IsOverdue(today time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	if i.Status != IssueOpen && i.Status != IssueInProgress {
		return false
	}
	return i.DueDate.Before(truncateDay(today))
}

// Artifact is a stored supporting document.
type Artifact struct {
	ID             int64
	Title          string
	Description    string
	Category       ArtifactCategory
	DepartmentID   int64
	DepartmentName string
	File           string
	FileName       string
	ContentType    string
	SizeBytes      int64
	UploadedBy     *int64
	UploadedByName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HeatmapPoint is the JSON projection of a risk used by the heatmap.
type HeatmapPoint struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Likelihood int      `json:"likelihood"`
	Impact     int      `json:"impact"`
	Severity   Severity `json:"severity"`
	Department string   `json:"department"`
}

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Key   string
	Label string
	Count int
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
