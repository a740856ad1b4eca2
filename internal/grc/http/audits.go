package grchttp

import (
	"fmt"
	"net/http"

	"github.com/grcdash/grcdash/internal/grc"
)

func (h *Handler) listAudits(w http.ResponseWriter, r *http.Request) {
	f, err := auditFilterFrom(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	audits, err := h.service.ListAudits(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := map[string]any{
		"Audits":   audits,
		"Filter":   f,
		"Types":    grc.AuditTypeChoices(),
		"Statuses": grc.AuditStatusChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/audits.html", "Audit Management", data, http.StatusOK)
}

func auditToInput(a grc.Audit) grc.AuditInput {
	return grc.AuditInput{
		Title:           a.Title,
		Type:            a.Type,
		DepartmentID:    a.DepartmentID,
		Status:          a.Status,
		AuditorID:       a.AuditorID,
		Scope:           a.Scope,
		StartDate:       a.StartDate,
		EndDate:         a.EndDate,
		Findings:        a.Findings,
		Recommendations: a.Recommendations,
	}
}

func (h *Handler) auditForm(w http.ResponseWriter, r *http.Request, in grc.AuditInput, id int64, errs map[string]string, status int) {
	verb, action := "Create", "/audits/new"
	if id > 0 {
		verb, action = "Update", fmt.Sprintf("/audits/%d/edit", id)
	}
	data := map[string]any{
		"Form":     in,
		"Errors":   errs,
		"Verb":     verb,
		"Action":   action,
		"Types":    grc.AuditTypeChoices(),
		"Statuses": grc.AuditStatusChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments|lookupUsers); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/audit_form.html", verb+" Audit", data, status)
}

func (h *Handler) newAudit(w http.ResponseWriter, r *http.Request) {
	h.auditForm(w, r, grc.AuditInput{Status: grc.AuditPlanned}, 0, nil, http.StatusOK)
}

func (h *Handler) createAudit(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := auditInput(form)
	if errs := form.finish(in); errs != nil {
		h.auditForm(w, r, in, 0, errs, http.StatusBadRequest)
		return
	}
	_, err := h.service.CreateAudit(r.Context(), actorID(r.Context()), in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.auditForm(w, r, in, 0, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/audits", "success", "Audit created successfully.")
}

func (h *Handler) editAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetAudit(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.auditForm(w, r, auditToInput(a), id, nil, http.StatusOK)
}

func (h *Handler) updateAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := auditInput(form)
	if errs := form.finish(in); errs != nil {
		h.auditForm(w, r, in, id, errs, http.StatusBadRequest)
		return
	}
	err := h.service.UpdateAudit(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.auditForm(w, r, in, id, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/audits", "success", "Audit updated successfully.")
}

func (h *Handler) confirmDeleteAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetAudit(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.confirmDelete(w, r, "audit", a.Title, fmt.Sprintf("/audits/%d/delete", id), "/audits")
}

func (h *Handler) deleteAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAudit(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/audits", "success", "Audit deleted.")
}
