package grchttp

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/grcdash/grcdash/internal/grc"
)

func (h *Handler) listIssues(w http.ResponseWriter, r *http.Request) {
	f, err := issueFilterFrom(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	issues, err := h.service.ListIssues(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := map[string]any{
		"Issues":     issues,
		"Filter":     f,
		"Priorities": grc.PriorityChoices(),
		"Statuses":   grc.IssueStatusChoices(),
		"Today":      h.today(),
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/issues.html", "PO&AM Tracking", data, http.StatusOK)
}

func issueToInput(i grc.Issue) grc.IssueInput {
	return grc.IssueInput{
		Title:           i.Title,
		Description:     i.Description,
		Priority:        i.Priority,
		Status:          i.Status,
		DepartmentID:    i.DepartmentID,
		AssignedTo:      i.AssignedTo,
		RelatedRiskID:   i.RelatedRiskID,
		RelatedAuditID:  i.RelatedAuditID,
		DueDate:         i.DueDate,
		ResolutionNotes: i.ResolutionNotes,
	}
}

func (h *Handler) issueForm(w http.ResponseWriter, r *http.Request, in grc.IssueInput, id int64, errs map[string]string, status int) {
	verb, action := "Create", "/issues/new"
	if id > 0 {
		verb, action = "Update", fmt.Sprintf("/issues/%d/edit", id)
	}
	data := map[string]any{
		"Form":       in,
		"Errors":     errs,
		"Verb":       verb,
		"Action":     action,
		"Priorities": grc.PriorityChoices(),
		"Statuses":   grc.IssueStatusChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments|lookupUsers|lookupRisks|lookupAudits); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/issue_form.html", verb+" PO&AM", data, status)
}

func (h *Handler) newIssue(w http.ResponseWriter, r *http.Request) {
	h.issueForm(w, r, grc.IssueInput{Status: grc.IssueOpen}, 0, nil, http.StatusOK)
}

func (h *Handler) createIssue(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := issueInput(form)
	if errs := form.finish(in); errs != nil {
		h.issueForm(w, r, in, 0, errs, http.StatusBadRequest)
		return
	}
	issue, err := h.service.CreateIssue(r.Context(), actorID(r.Context()), in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.issueForm(w, r, in, 0, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("po&am created", slog.Int64("id", issue.ID), slog.Int64("actor", actorID(r.Context())))
	h.redirectWithFlash(w, r, "/issues", "success", "PO&AM created successfully.")
}

func (h *Handler) editIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	issue, err := h.service.GetIssue(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issueForm(w, r, issueToInput(issue), id, nil, http.StatusOK)
}

func (h *Handler) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := issueInput(form)
	if errs := form.finish(in); errs != nil {
		h.issueForm(w, r, in, id, errs, http.StatusBadRequest)
		return
	}
	err := h.service.UpdateIssue(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.issueForm(w, r, in, id, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/issues", "success", "PO&AM updated successfully.")
}

func (h *Handler) confirmDeleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	issue, err := h.service.GetIssue(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.confirmDelete(w, r, "PO&AM", issue.Title, fmt.Sprintf("/issues/%d/delete", id), "/issues")
}

func (h *Handler) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteIssue(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/issues", "success", "PO&AM deleted.")
}
