package grchttp

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/grcdash/grcdash/internal/grc"
)

var errBadFilter = errors.New("invalid filter")

func badFilter(name, value string) error {
	return fmt.Errorf("%w: %s=%q is not a valid choice", errBadFilter, name, value)
}

type validator interface {
	Valid() bool
}

// enumParam reads an optional enum filter; unknown values are rejected.
func enumParam[T interface {
	~string
	validator
}](q url.Values, name string) (T, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return "", nil
	}
	v := T(raw)
	if !v.Valid() {
		return "", badFilter(name, raw)
	}
	return v, nil
}

func idParam(q url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badFilter(name, raw)
	}
	return id, nil
}

func riskFilterFrom(q url.Values) (f grc.RiskFilter, err error) {
	if f.Severity, err = enumParam[grc.Severity](q, "severity"); err != nil {
		return f, err
	}
	if f.Status, err = enumParam[grc.RiskStatus](q, "status"); err != nil {
		return f, err
	}
	f.DepartmentID, err = idParam(q, "department")
	return f, err
}

func controlFilterFrom(q url.Values) (f grc.ControlFilter, err error) {
	if f.FrameworkID, err = idParam(q, "framework"); err != nil {
		return f, err
	}
	if f.Status, err = enumParam[grc.ControlStatus](q, "status"); err != nil {
		return f, err
	}
	f.DepartmentID, err = idParam(q, "department")
	return f, err
}

func auditFilterFrom(q url.Values) (f grc.AuditFilter, err error) {
	if f.Type, err = enumParam[grc.AuditType](q, "type"); err != nil {
		return f, err
	}
	if f.Status, err = enumParam[grc.AuditStatus](q, "status"); err != nil {
		return f, err
	}
	f.DepartmentID, err = idParam(q, "department")
	return f, err
}

func issueFilterFrom(q url.Values) (f grc.IssueFilter, err error) {
	if f.Priority, err = enumParam[grc.Priority](q, "priority"); err != nil {
		return f, err
	}
	if f.Status, err = enumParam[grc.IssueStatus](q, "status"); err != nil {
		return f, err
	}
	f.DepartmentID, err = idParam(q, "department")
	return f, err
}

func artifactFilterFrom(q url.Values) (f grc.ArtifactFilter, err error) {
	if f.Category, err = enumParam[grc.ArtifactCategory](q, "category"); err != nil {
		return f, err
	}
	f.DepartmentID, err = idParam(q, "department")
	return f, err
}
