package grchttp

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grcdash/grcdash/internal/grc"
)

const dateLayout = "2006-01-02"

// formReader converts posted values into typed input, collecting the
// fields that fail to parse.
type formReader struct {
	values url.Values
	errs   map[string]string
}

func newFormReader(values url.Values) *formReader {
	return &formReader{values: values, errs: map[string]string{}}
}

func (f *formReader) str(name string) string {
	return strings.TrimSpace(f.values.Get(name))
}

func (f *formReader) integer(name string) int {
	raw := f.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.errs[name] = "Enter a whole number."
		return 0
	}
	return n
}

// id reads a required foreign key. Empty leaves 0 for the validator.
func (f *formReader) id(name string) int64 {
	raw := f.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		f.errs[name] = "Select a valid choice."
		return 0
	}
	return n
}

func (f *formReader) optionalID(name string) *int64 {
	raw := f.str(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		f.errs[name] = "Select a valid choice."
		return nil
	}
	return &n
}

func (f *formReader) date(name string) *time.Time {
	raw := f.str(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		f.errs[name] = "Enter a valid date."
		return nil
	}
	return &t
}

// finish merges parse failures with validation of the built input.
func (f *formReader) finish(input any) map[string]string {
	if len(f.errs) == 0 {
		return nil
	}
	out := map[string]string{}
	for k, v := range grc.FieldErrors(grc.Validate(input)) {
		out[k] = v
	}
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

func departmentInput(f *formReader) grc.DepartmentInput {
	return grc.DepartmentInput{Name: f.str("name"), Description: f.str("description")}
}

func riskInput(f *formReader) grc.RiskInput {
	return grc.RiskInput{
		Title:             f.str("title"),
		Description:       f.str("description"),
		DepartmentID:      f.id("department"),
		Severity:          grc.Severity(f.str("severity")),
		Likelihood:        f.integer("likelihood"),
		Impact:            f.integer("impact"),
		Status:            grc.RiskStatus(f.str("status")),
		OwnerID:           f.optionalID("owner"),
		MitigationPlan:    f.str("mitigation_plan"),
		IdentifiedDate:    f.date("identified_date"),
		TargetClosureDate: f.date("target_closure_date"),
	}
}

func frameworkInput(f *formReader) grc.FrameworkInput {
	return grc.FrameworkInput{Name: f.str("name"), Description: f.str("description"), Version: f.str("version")}
}

func controlInput(f *formReader) grc.ControlInput {
	return grc.ControlInput{
		FrameworkID:        f.id("framework"),
		ControlID:          f.str("control_id"),
		Title:              f.str("title"),
		Description:        f.str("description"),
		DepartmentID:       f.id("department"),
		Status:             grc.ControlStatus(f.str("status")),
		OwnerID:            f.optionalID("owner"),
		Evidence:           f.str("evidence"),
		LastAssessmentDate: f.date("last_assessment_date"),
		NextAssessmentDate: f.date("next_assessment_date"),
	}
}

func auditInput(f *formReader) grc.AuditInput {
	in := grc.AuditInput{
		Title:           f.str("title"),
		Type:            grc.AuditType(f.str("audit_type")),
		DepartmentID:    f.id("department"),
		Status:          grc.AuditStatus(f.str("status")),
		AuditorID:       f.optionalID("auditor"),
		Scope:           f.str("scope"),
		EndDate:         f.date("end_date"),
		Findings:        f.str("findings"),
		Recommendations: f.str("recommendations"),
	}
	if start := f.date("start_date"); start != nil {
		in.StartDate = *start
	}
	return in
}

func issueInput(f *formReader) grc.IssueInput {
	return grc.IssueInput{
		Title:           f.str("title"),
		Description:     f.str("description"),
		Priority:        grc.Priority(f.str("priority")),
		Status:          grc.IssueStatus(f.str("status")),
		DepartmentID:    f.id("department"),
		AssignedTo:      f.optionalID("assigned_to"),
		RelatedRiskID:   f.optionalID("related_risk"),
		RelatedAuditID:  f.optionalID("related_audit"),
		DueDate:         f.date("due_date"),
		ResolutionNotes: f.str("resolution_notes"),
	}
}

func artifactInput(f *formReader) grc.ArtifactInput {
	return grc.ArtifactInput{
		Title:        f.str("title"),
		Description:  f.str("description"),
		Category:     grc.ArtifactCategory(f.str("category")),
		DepartmentID: f.id("department"),
	}
}

// errUploadTooLarge reports a body beyond the configured upload limit.
var errUploadTooLarge = errors.New("upload too large")

// parseForm reads url-encoded and multipart bodies alike. Calling it after
// the CSRF middleware already parsed the body is a no-op.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.MultipartForm == nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return errUploadTooLarge
			}
			return err
		}
		return nil
	}
	return r.ParseForm()
}

const multipartMemory = 8 << 20

// upload returns the named file part, or nil when none was sent. Parts over
// the upload limit fail with errUploadTooLarge.
func (h *Handler) upload(r *http.Request, field string) (*grc.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	if header.Filename == "" {
		_ = file.Close()
		return nil, func() {}, nil
	}
	if header.Size > h.maxUpload {
		_ = file.Close()
		return nil, func() {}, errUploadTooLarge
	}
	contentType := header.Header.Get("Content-Type")
	return &grc.Upload{Filename: header.Filename, ContentType: contentType, Body: file}, func() { _ = file.Close() }, nil
}
