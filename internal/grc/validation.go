package grc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DepartmentInput is the writable part of a Department.
type DepartmentInput struct {
	Name        string `form:"name" validate:"required,max=100"`
	Description string `form:"description"`
}

// RiskInput is the writable part of a Risk. Evidence columns are absent on
// purpose: they change only through the evidence operations.
type RiskInput struct {
	Title             string     `form:"title" validate:"required,max=200"`
	Description       string     `form:"description" validate:"required"`
	DepartmentID      int64      `form:"department" validate:"required"`
	Severity          Severity   `form:"severity" validate:"required,oneof=critical high medium low"`
	Likelihood        int        `form:"likelihood" validate:"required,min=1,max=5"`
	Impact            int        `form:"impact" validate:"required,min=1,max=5"`
	Status            RiskStatus `form:"status" validate:"required,oneof=open in_progress mitigated accepted closed"`
	OwnerID           *int64     `form:"owner"`
	MitigationPlan    string     `form:"mitigation_plan"`
	IdentifiedDate    *time.Time `form:"identified_date"`
	TargetClosureDate *time.Time `form:"target_closure_date"`
}

// FrameworkInput is the writable part of a Framework.
type FrameworkInput struct {
	Name        string `form:"name" validate:"required,max=100"`
	Description string `form:"description" validate:"required"`
	Version     string `form:"version" validate:"max=50"`
}

// ControlInput is the writable part of a Control.
type ControlInput struct {
	FrameworkID        int64         `form:"framework" validate:"required"`
	ControlID          string        `form:"control_id" validate:"required,max=50"`
	Title              string        `form:"title" validate:"required,max=200"`
	Description        string        `form:"description" validate:"required"`
	DepartmentID       int64         `form:"department" validate:"required"`
	Status             ControlStatus `form:"status" validate:"required,oneof=compliant non_compliant in_progress not_assessed"`
	OwnerID            *int64        `form:"owner"`
	Evidence           string        `form:"evidence"`
	LastAssessmentDate *time.Time    `form:"last_assessment_date"`
	NextAssessmentDate *time.Time    `form:"next_assessment_date"`
}

// AuditInput is the writable part of an Audit.
type AuditInput struct {
	Title           string      `form:"title" validate:"required,max=200"`
	Type            AuditType   `form:"audit_type" validate:"required,oneof=internal external compliance security"`
	DepartmentID    int64       `form:"department" validate:"required"`
	Status          AuditStatus `form:"status" validate:"required,oneof=planned in_progress completed cancelled"`
	AuditorID       *int64      `form:"auditor"`
	Scope           string      `form:"scope" validate:"required"`
	StartDate       time.Time   `form:"start_date" validate:"required"`
	EndDate         *time.Time  `form:"end_date"`
	Findings        string      `form:"findings"`
	Recommendations string      `form:"recommendations"`
}

// IssueInput is the writable part of an Issue.
type IssueInput struct {
	Title           string      `form:"title" validate:"required,max=200"`
	Description     string      `form:"description" validate:"required"`
	Priority        Priority    `form:"priority" validate:"required,oneof=critical high medium low"`
	Status          IssueStatus `form:"status" validate:"required,oneof=open in_progress resolved closed"`
	DepartmentID    int64       `form:"department" validate:"required"`
	AssignedTo      *int64      `form:"assigned_to"`
	RelatedRiskID   *int64      `form:"related_risk"`
	RelatedAuditID  *int64      `form:"related_audit"`
	DueDate         *time.Time  `form:"due_date"`
	ResolutionNotes string      `form:"resolution_notes"`
}

// ArtifactInput is the writable metadata of an Artifact.
type ArtifactInput struct {
	Title        string           `form:"title" validate:"required,max=200"`
	Description  string           `form:"description"`
	Category     ArtifactCategory `form:"category" validate:"required,oneof=ato certification diagram evidence other policy procedure"`
	DepartmentID int64            `form:"department" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks input against its struct tags and returns a
// *ValidationError keyed by form field name.
func Validate(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("grc: validate: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "oneof":
		return "Select a valid choice."
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	default:
		return "Enter a valid value."
	}
}
