package grc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/shared"
)

const (
	evidencePrefix = "evidence"
	// ArtifactPrefix is the file-store prefix of artifact uploads.
	ArtifactPrefix = "artifacts"
)

// AuditRecorder stores the change trail. *shared.AuditLogger satisfies it.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service implements the GRC use cases on top of the repository and file store.
type Service struct {
	repo   Repository
	files  filestore.Store
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a Service. audit may be nil.
func NewService(repo Repository, files filestore.Store, audit AuditRecorder, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, files: files, audit: audit, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return truncateDay(s.now())
}

func (s *Service) record(ctx context.Context, actor int64, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("entity", entity), slog.Int64("id", id), slog.Any("error", err))
	}
}

// removeFile deletes a stored file; failures leave an orphan and are only logged.
func (s *Service) removeFile(ctx context.Context, key string) {
	if key == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("orphaned file", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) store(ctx context.Context, prefix string, up Upload) (filestore.Object, error) {
	if s.files == nil {
		return filestore.Object{}, errors.New("grc: file store not configured")
	}
	if up.Body == nil || up.Filename == "" {
		return filestore.Object{}, NewValidationError(map[string]string{"file": "This field is required."})
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := s.files.Put(ctx, filestore.NewKey(prefix, up.Filename), up.Body, contentType)
	if err != nil {
		return filestore.Object{}, fmt.Errorf("grc: store file: %w", err)
	}
	return obj, nil
}

// Departments

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *Service) GetDepartment(ctx context.Context, id int64) (Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) CreateDepartment(ctx context.Context, actor int64, in DepartmentInput) (Department, error) {
	if err := Validate(in); err != nil {
		return Department{}, err
	}
	d, err := s.repo.CreateDepartment(ctx, Department{Name: in.Name, Description: in.Description})
	if err != nil {
		return Department{}, err
	}
	s.record(ctx, actor, "create", "department", d.ID, map[string]any{"name": d.Name})
	return d, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, actor, id int64, in DepartmentInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if err := s.repo.UpdateDepartment(ctx, Department{ID: id, Name: in.Name, Description: in.Description}); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "department", id, map[string]any{"name": in.Name})
	return nil
}

// DeleteDepartment removes the department and, through the cascade, every
// record it owns. Files of those records are removed afterwards.
func (s *Service) DeleteDepartment(ctx context.Context, actor, id int64) error {
	files, err := s.repo.DepartmentFiles(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	for _, key := range files {
		s.removeFile(ctx, key)
	}
	s.record(ctx, actor, "delete", "department", id, map[string]any{"files": len(files)})
	return nil
}

// Risks

func (s *Service) ListRisks(ctx context.Context, f RiskFilter) ([]Risk, error) {
	return s.repo.ListRisks(ctx, f)
}

func (s *Service) GetRisk(ctx context.Context, id int64) (Risk, error) {
	return s.repo.GetRisk(ctx, id)
}

func (s *Service) RiskHeatmap(ctx context.Context) ([]HeatmapPoint, error) {
	return s.repo.RiskHeatmap(ctx)
}

func riskFromInput(in RiskInput) Risk {
	r := Risk{
		Title:             in.Title,
		Description:       in.Description,
		DepartmentID:      in.DepartmentID,
		Severity:          in.Severity,
		Likelihood:        in.Likelihood,
		Impact:            in.Impact,
		Status:            in.Status,
		OwnerID:           in.OwnerID,
		MitigationPlan:    in.MitigationPlan,
		TargetClosureDate: in.TargetClosureDate,
	}
	if in.IdentifiedDate != nil {
		r.IdentifiedDate = *in.IdentifiedDate
	}
	return r
}

// CreateRisk validates and stores a new risk. An evidence upload is stored
// first and the compliance rule is applied before the insert.
func (s *Service) CreateRisk(ctx context.Context, actor int64, in RiskInput, evidence *Upload) (Risk, error) {
	if in.Status == "" {
		in.Status = RiskOpen
	}
	if err := Validate(in); err != nil {
		return Risk{}, err
	}
	r := riskFromInput(in)
	if r.IdentifiedDate.IsZero() {
		r.IdentifiedDate = s.today()
	}
	if evidence != nil {
		obj, err := s.store(ctx, evidencePrefix, *evidence)
		if err != nil {
			return Risk{}, err
		}
		r.EvidenceUploaded = true
		r.EvidenceFile = obj.Key
	}
	r.UpdateComplianceFromEvidence(s.now())

	created, err := s.repo.CreateRisk(ctx, r)
	if err != nil {
		s.removeFile(ctx, r.EvidenceFile)
		return Risk{}, err
	}
	s.record(ctx, actor, "create", "risk", created.ID, map[string]any{
		"title":    created.Title,
		"severity": string(created.Severity),
		"evidence": created.EvidenceUploaded,
	})
	return created, nil
}

// UpdateRisk rewrites the editable fields. Evidence state is kept.
func (s *Service) UpdateRisk(ctx context.Context, actor, id int64, in RiskInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	current, err := s.repo.GetRisk(ctx, id)
	if err != nil {
		return err
	}
	r := riskFromInput(in)
	r.ID = id
	if r.IdentifiedDate.IsZero() {
		r.IdentifiedDate = current.IdentifiedDate
	}
	if err := s.repo.UpdateRisk(ctx, r); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "risk", id, map[string]any{"status": string(r.Status)})
	return nil
}

func (s *Service) DeleteRisk(ctx context.Context, actor, id int64) error {
	r, err := s.repo.GetRisk(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRisk(ctx, id); err != nil {
		return err
	}
	s.removeFile(ctx, r.EvidenceFile)
	s.record(ctx, actor, "delete", "risk", id, map[string]any{"title": r.Title})
	return nil
}

// AttachRiskEvidence stores the upload as the risk's evidence and marks the
// risk fully compliant. A replaced file is removed afterwards.
func (s *Service) AttachRiskEvidence(ctx context.Context, actor, riskID int64, up Upload) (Risk, error) {
	r, err := s.repo.GetRisk(ctx, riskID)
	if err != nil {
		return Risk{}, err
	}
	obj, err := s.store(ctx, fmt.Sprintf("%s/risk-%d", evidencePrefix, riskID), up)
	if err != nil {
		return Risk{}, err
	}
	previous := r.EvidenceFile
	r.EvidenceUploaded = true
	r.EvidenceFile = obj.Key
	r.UpdateComplianceFromEvidence(s.now())
	if err := s.repo.SaveRiskEvidence(ctx, r); err != nil {
		s.removeFile(ctx, obj.Key)
		return Risk{}, err
	}
	if previous != "" && previous != obj.Key {
		s.removeFile(ctx, previous)
	}
	s.record(ctx, actor, "attach_evidence", "risk", riskID, map[string]any{"file": obj.Key})
	return r, nil
}

// RemoveRiskEvidence clears the evidence and resets compliance to zero.
func (s *Service) RemoveRiskEvidence(ctx context.Context, actor, riskID int64) (Risk, error) {
	r, err := s.repo.GetRisk(ctx, riskID)
	if err != nil {
		return Risk{}, err
	}
	previous := r.EvidenceFile
	r.EvidenceUploaded = false
	r.EvidenceFile = ""
	r.UpdateComplianceFromEvidence(s.now())
	if err := s.repo.SaveRiskEvidence(ctx, r); err != nil {
		return Risk{}, err
	}
	s.removeFile(ctx, previous)
	s.record(ctx, actor, "remove_evidence", "risk", riskID, nil)
	return r, nil
}

// OpenRiskEvidence streams the stored evidence file of a risk.
func (s *Service) OpenRiskEvidence(ctx context.Context, riskID int64) (io.ReadCloser, filestore.Object, error) {
	r, err := s.repo.GetRisk(ctx, riskID)
	if err != nil {
		return nil, filestore.Object{}, err
	}
	return s.open(ctx, r.EvidenceFile)
}

func (s *Service) open(ctx context.Context, key string) (io.ReadCloser, filestore.Object, error) {
	if key == "" || s.files == nil {
		return nil, filestore.Object{}, fmt.Errorf("file: %w", ErrNotFound)
	}
	rc, obj, err := s.files.Open(ctx, key)
	if errors.Is(err, filestore.ErrNotExist) {
		return nil, filestore.Object{}, fmt.Errorf("file %s: %w", key, ErrNotFound)
	}
	return rc, obj, err
}

// Frameworks

func (s *Service) ListFrameworks(ctx context.Context) ([]Framework, error) {
	return s.repo.ListFrameworks(ctx)
}

func (s *Service) GetFramework(ctx context.Context, id int64) (Framework, error) {
	return s.repo.GetFramework(ctx, id)
}

func (s *Service) CreateFramework(ctx context.Context, actor int64, in FrameworkInput) (Framework, error) {
	if err := Validate(in); err != nil {
		return Framework{}, err
	}
	f, err := s.repo.CreateFramework(ctx, Framework{Name: in.Name, Description: in.Description, Version: in.Version})
	if err != nil {
		return Framework{}, err
	}
	s.record(ctx, actor, "create", "framework", f.ID, map[string]any{"name": f.Name})
	return f, nil
}

func (s *Service) UpdateFramework(ctx context.Context, actor, id int64, in FrameworkInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if err := s.repo.UpdateFramework(ctx, Framework{ID: id, Name: in.Name, Description: in.Description, Version: in.Version}); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "framework", id, map[string]any{"name": in.Name})
	return nil
}

func (s *Service) DeleteFramework(ctx context.Context, actor, id int64) error {
	if err := s.repo.DeleteFramework(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "delete", "framework", id, nil)
	return nil
}

// Controls

func (s *Service) ListControls(ctx context.Context, f ControlFilter) ([]Control, error) {
	return s.repo.ListControls(ctx, f)
}

func (s *Service) GetControl(ctx context.Context, id int64) (Control, error) {
	return s.repo.GetControl(ctx, id)
}

func controlFromInput(in ControlInput) Control {
	return Control{
		FrameworkID:        in.FrameworkID,
		ControlID:          in.ControlID,
		Title:              in.Title,
		Description:        in.Description,
		DepartmentID:       in.DepartmentID,
		Status:             in.Status,
		OwnerID:            in.OwnerID,
		Evidence:           in.Evidence,
		LastAssessmentDate: in.LastAssessmentDate,
		NextAssessmentDate: in.NextAssessmentDate,
	}
}

// CreateControl stores a control. A second control with the same framework
// and control id fails with a duplicate ValidationError.
func (s *Service) CreateControl(ctx context.Context, actor int64, in ControlInput) (Control, error) {
	if in.Status == "" {
		in.Status = ControlNotAssessed
	}
	if err := Validate(in); err != nil {
		return Control{}, err
	}
	c, err := s.repo.CreateControl(ctx, controlFromInput(in))
	if err != nil {
		return Control{}, err
	}
	s.record(ctx, actor, "create", "control", c.ID, map[string]any{"control_id": c.ControlID})
	return c, nil
}

func (s *Service) UpdateControl(ctx context.Context, actor, id int64, in ControlInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	c := controlFromInput(in)
	c.ID = id
	if err := s.repo.UpdateControl(ctx, c); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "control", id, map[string]any{"status": string(c.Status)})
	return nil
}

func (s *Service) DeleteControl(ctx context.Context, actor, id int64) error {
	if err := s.repo.DeleteControl(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "delete", "control", id, nil)
	return nil
}

// Audits

func (s *Service) ListAudits(ctx context.Context, f AuditFilter) ([]Audit, error) {
	return s.repo.ListAudits(ctx, f)
}

func (s *Service) GetAudit(ctx context.Context, id int64) (Audit, error) {
	return s.repo.GetAudit(ctx, id)
}

func auditFromInput(in AuditInput) Audit {
	return Audit{
		Title:           in.Title,
		Type:            in.Type,
		DepartmentID:    in.DepartmentID,
		Status:          in.Status,
		AuditorID:       in.AuditorID,
		Scope:           in.Scope,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Findings:        in.Findings,
		Recommendations: in.Recommendations,
	}
}

func (s *Service) CreateAudit(ctx context.Context, actor int64, in AuditInput) (Audit, error) {
	if in.Status == "" {
		in.Status = AuditPlanned
	}
	if err := Validate(in); err != nil {
		return Audit{}, err
	}
	a, err := s.repo.CreateAudit(ctx, auditFromInput(in))
	if err != nil {
		return Audit{}, err
	}
	s.record(ctx, actor, "create", "audit", a.ID, map[string]any{"title": a.Title})
	return a, nil
}

func (s *Service) UpdateAudit(ctx context.Context, actor, id int64, in AuditInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	a := auditFromInput(in)
	a.ID = id
	if err := s.repo.UpdateAudit(ctx, a); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "audit", id, map[string]any{"status": string(a.Status)})
	return nil
}

func (s *Service) DeleteAudit(ctx context.Context, actor, id int64) error {
	if err := s.repo.DeleteAudit(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "delete", "audit", id, nil)
	return nil
}

// Issues

func (s *Service) ListIssues(ctx context.Context, f IssueFilter) ([]Issue, error) {
	return s.repo.ListIssues(ctx, f)
}

func (s *Service) GetIssue(ctx context.Context, id int64) (Issue, error) {
	return s.repo.GetIssue(ctx, id)
}

// OverdueIssues lists active issues whose due date is before today.
func (s *Service) OverdueIssues(ctx context.Context) ([]Issue, error) {
	today := s.today()
	return s.repo.ListIssues(ctx, IssueFilter{Statuses: activeIssueStatuses, DueBefore: &today})
}

func issueFromInput(in IssueInput) Issue {
	return Issue{
		Title:           in.Title,
		Description:     in.Description,
		Priority:        in.Priority,
		Status:          in.Status,
		DepartmentID:    in.DepartmentID,
		AssignedTo:      in.AssignedTo,
		RelatedRiskID:   in.RelatedRiskID,
		RelatedAuditID:  in.RelatedAuditID,
		DueDate:         in.DueDate,
		ResolutionNotes: in.ResolutionNotes,
	}
}

// CreateIssue stores a PO&AM. It is assigned to the actor when no assignee
// is given.
func (s *Service) CreateIssue(ctx context.Context, actor int64, in IssueInput) (Issue, error) {
	if in.Status == "" {
		in.Status = IssueOpen
	}
	if err := Validate(in); err != nil {
		return Issue{}, err
	}
	i := issueFromInput(in)
	if i.AssignedTo == nil && actor > 0 {
		assignee := actor
		i.AssignedTo = &assignee
	}
	created, err := s.repo.CreateIssue(ctx, i)
	if err != nil {
		return Issue{}, err
	}
	s.record(ctx, actor, "create", "issue", created.ID, map[string]any{"priority": string(created.Priority)})
	return created, nil
}

func (s *Service) UpdateIssue(ctx context.Context, actor, id int64, in IssueInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	i := issueFromInput(in)
	i.ID = id
	if err := s.repo.UpdateIssue(ctx, i); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "issue", id, map[string]any{"status": string(i.Status)})
	return nil
}

func (s *Service) DeleteIssue(ctx context.Context, actor, id int64) error {
	if err := s.repo.DeleteIssue(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "delete", "issue", id, nil)
	return nil
}

// Artifacts

func (s *Service) ListArtifacts(ctx context.Context, f ArtifactFilter) ([]Artifact, error) {
	return s.repo.ListArtifacts(ctx, f)
}

func (s *Service) GetArtifact(ctx context.Context, id int64) (Artifact, error) {
	return s.repo.GetArtifact(ctx, id)
}

// UploadArtifact stores the file and its record, uploaded by actor.
func (s *Service) UploadArtifact(ctx context.Context, actor int64, in ArtifactInput, up Upload) (Artifact, error) {
	if err := Validate(in); err != nil {
		return Artifact{}, err
	}
	obj, err := s.store(ctx, ArtifactPrefix, up)
	if err != nil {
		return Artifact{}, err
	}
	a := Artifact{
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		DepartmentID: in.DepartmentID,
		File:         obj.Key,
		FileName:     filestore.SanitizeName(up.Filename),
		ContentType:  obj.ContentType,
		SizeBytes:    obj.Size,
	}
	if actor > 0 {
		uploader := actor
		a.UploadedBy = &uploader
	}
	created, err := s.repo.CreateArtifact(ctx, a)
	if err != nil {
		s.removeFile(ctx, obj.Key)
		return Artifact{}, err
	}
	s.record(ctx, actor, "create", "artifact", created.ID, map[string]any{"file": created.File})
	return created, nil
}

func (s *Service) UpdateArtifact(ctx context.Context, actor, id int64, in ArtifactInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	a := Artifact{ID: id, Title: in.Title, Description: in.Description, Category: in.Category, DepartmentID: in.DepartmentID}
	if err := s.repo.UpdateArtifact(ctx, a); err != nil {
		return err
	}
	s.record(ctx, actor, "update", "artifact", id, nil)
	return nil
}

// DeleteArtifact removes the record, then its file. A file that cannot be
// removed is left behind for the orphan sweep.
func (s *Service) DeleteArtifact(ctx context.Context, actor, id int64) error {
	a, err := s.repo.GetArtifact(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteArtifact(ctx, id); err != nil {
		return err
	}
	s.removeFile(ctx, a.File)
	s.record(ctx, actor, "delete", "artifact", id, map[string]any{"file": a.File})
	return nil
}

// OpenArtifact streams the stored file of an artifact.
func (s *Service) OpenArtifact(ctx context.Context, id int64) (io.ReadCloser, Artifact, error) {
	a, err := s.repo.GetArtifact(ctx, id)
	if err != nil {
		return nil, Artifact{}, err
	}
	rc, _, err := s.open(ctx, a.File)
	if err != nil {
		return nil, Artifact{}, err
	}
	return rc, a, nil
}
