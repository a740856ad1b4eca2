package grc

// Choice is a value/label pair rendered in select inputs and filter bars.
type Choice struct {
	Value string
	Label string
}

// Severity grades a risk.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityChoices = []Choice{
	{string(SeverityCritical), "Critical"},
	{string(SeverityHigh), "High"},
	{string(SeverityMedium), "Medium"},
	{string(SeverityLow), "Low"},
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return hasChoice(severityChoices, string(s)) }

// Label returns the display label.
func (s Severity) Label() string { return labelOf(severityChoices, string(s)) }

// RiskStatus tracks a risk through treatment.
type RiskStatus string

const (
	RiskOpen       RiskStatus = "open"
	RiskInProgress RiskStatus = "in_progress"
	RiskMitigated  RiskStatus = "mitigated"
	RiskAccepted   RiskStatus = "accepted"
	RiskClosed     RiskStatus = "closed"
)

var riskStatusChoices = []Choice{
	{string(RiskOpen), "Open"},
	{string(RiskInProgress), "In Progress"},
	{string(RiskMitigated), "Mitigated"},
	{string(RiskAccepted), "Accepted"},
	{string(RiskClosed), "Closed"},
}

func (s RiskStatus) Valid() bool   { return hasChoice(riskStatusChoices, string(s)) }
func (s RiskStatus) Label() string { return labelOf(riskStatusChoices, string(s)) }

// ControlStatus is the assessed state of a compliance control.
type ControlStatus string

const (
	ControlCompliant    ControlStatus = "compliant"
	ControlNonCompliant ControlStatus = "non_compliant"
	ControlInProgress   ControlStatus = "in_progress"
	ControlNotAssessed  ControlStatus = "not_assessed"
)

var controlStatusChoices = []Choice{
	{string(ControlCompliant), "Compliant"},
	{string(ControlNonCompliant), "Non-Compliant"},
	{string(ControlInProgress), "In Progress"},
	{string(ControlNotAssessed), "Not Assessed"},
}

func (s ControlStatus) Valid() bool   { return hasChoice(controlStatusChoices, string(s)) }
func (s ControlStatus) Label() string { return labelOf(controlStatusChoices, string(s)) }

// AuditType classifies an audit engagement.
type AuditType string

const (
	AuditInternal   AuditType = "internal"
	AuditExternal   AuditType = "external"
	AuditCompliance AuditType = "compliance"
	AuditSecurity   AuditType = "security"
)

var auditTypeChoices = []Choice{
	{string(AuditInternal), "Internal Audit"},
	{string(AuditExternal), "External Audit"},
	{string(AuditCompliance), "Compliance Review"},
	{string(AuditSecurity), "Security Audit"},
}

func (t AuditType) Valid() bool   { return hasChoice(auditTypeChoices, string(t)) }
func (t AuditType) Label() string { return labelOf(auditTypeChoices, string(t)) }

// AuditStatus tracks an audit engagement.
type AuditStatus string

const (
	AuditPlanned    AuditStatus = "planned"
	AuditInProgress AuditStatus = "in_progress"
	AuditCompleted  AuditStatus = "completed"
	AuditCancelled  AuditStatus = "cancelled"
)

var auditStatusChoices = []Choice{
	{string(AuditPlanned), "Planned"},
	{string(AuditInProgress), "In Progress"},
	{string(AuditCompleted), "Completed"},
	{string(AuditCancelled), "Cancelled"},
}

func (s AuditStatus) Valid() bool   { return hasChoice(auditStatusChoices, string(s)) }
func (s AuditStatus) Label() string { return labelOf(auditStatusChoices, string(s)) }

// Priority ranks a PO&AM.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityChoices = []Choice{
	{string(PriorityCritical), "Critical"},
	{string(PriorityHigh), "High"},
	{string(PriorityMedium), "Medium"},
	{string(PriorityLow), "Low"},
}

func (p Priority) Valid() bool   { return hasChoice(priorityChoices, string(p)) }
func (p Priority) Label() string { return labelOf(priorityChoices, string(p)) }

// IssueStatus tracks a PO&AM through remediation.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueClosed     IssueStatus = "closed"
)

var issueStatusChoices = []Choice{
	{string(IssueOpen), "Open"},
	{string(IssueInProgress), "In Progress"},
	{string(IssueResolved), "Resolved"},
	{string(IssueClosed), "Closed"},
}

func (s IssueStatus) Valid() bool   { return hasChoice(issueStatusChoices, string(s)) }
func (s IssueStatus) Label() string { return labelOf(issueStatusChoices, string(s)) }

// ArtifactCategory groups uploaded documents.
type ArtifactCategory string

const (
	CategoryATO           ArtifactCategory = "ato"
	CategoryCertification ArtifactCategory = "certification"
	CategoryDiagram       ArtifactCategory = "diagram"
	CategoryEvidence      ArtifactCategory = "evidence"
	CategoryOther         ArtifactCategory = "other"
	CategoryPolicy        ArtifactCategory = "policy"
	CategoryProcedure     ArtifactCategory = "procedure"
)

var artifactCategoryChoices = []Choice{
	{string(CategoryATO), "ATO"},
	{string(CategoryCertification), "Certification"},
	{string(CategoryDiagram), "Diagram"},
	{string(CategoryEvidence), "Evidence"},
	{string(CategoryOther), "Other"},
	{string(CategoryPolicy), "Policy"},
	{string(CategoryProcedure), "Procedure"},
}

func (c ArtifactCategory) Valid() bool   { return hasChoice(artifactCategoryChoices, string(c)) }
func (c ArtifactCategory) Label() string { return labelOf(artifactCategoryChoices, string(c)) }

// SeverityChoices lists severities in display order.
func SeverityChoices() []Choice { return copyChoices(severityChoices) }

// RiskStatusChoices lists risk statuses in display order.
func RiskStatusChoices() []Choice { return copyChoices(riskStatusChoices) }

// ControlStatusChoices lists control statuses in display order.
func ControlStatusChoices() []Choice { return copyChoices(controlStatusChoices) }

// AuditTypeChoices lists audit types in display order.
func AuditTypeChoices() []Choice { return copyChoices(auditTypeChoices) }

// AuditStatusChoices lists audit statuses in display order.
func AuditStatusChoices() []Choice { return copyChoices(auditStatusChoices) }

// PriorityChoices lists priorities in display order.
func PriorityChoices() []Choice { return copyChoices(priorityChoices) }

// IssueStatusChoices lists issue statuses in display order.
func IssueStatusChoices() []Choice { return copyChoices(issueStatusChoices) }

// ArtifactCategoryChoices lists artifact categories in display order.
func ArtifactCategoryChoices() []Choice { return copyChoices(artifactCategoryChoices) }

func hasChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

func labelOf(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

func copyChoices(choices []Choice) []Choice {
	out := make([]Choice, len(choices))
	copy(out, choices)
	return out
}
