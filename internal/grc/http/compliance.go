package grchttp

import (
	"fmt"
	"net/http"

	"github.com/grcdash/grcdash/internal/grc"
)

func (h *Handler) listControls(w http.ResponseWriter, r *http.Request) {
	f, err := controlFilterFrom(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	controls, err := h.service.ListControls(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := map[string]any{
		"Controls": controls,
		"Filter":   f,
		"Statuses": grc.ControlStatusChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupFrameworks|lookupDepartments); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/compliance.html", "Compliance Tracking", data, http.StatusOK)
}

func controlToInput(c grc.Control) grc.ControlInput {
	return grc.ControlInput{
		FrameworkID:        c.FrameworkID,
		ControlID:          c.ControlID,
		Title:              c.Title,
		Description:        c.Description,
		DepartmentID:       c.DepartmentID,
		Status:             c.Status,
		OwnerID:            c.OwnerID,
		Evidence:           c.Evidence,
		LastAssessmentDate: c.LastAssessmentDate,
		NextAssessmentDate: c.NextAssessmentDate,
	}
}

func (h *Handler) controlForm(w http.ResponseWriter, r *http.Request, in grc.ControlInput, id int64, errs map[string]string, status int) {
	verb, action := "Create", "/compliance/new"
	if id > 0 {
		verb, action = "Update", fmt.Sprintf("/compliance/%d/edit", id)
	}
	data := map[string]any{
		"Form":     in,
		"Errors":   errs,
		"Verb":     verb,
		"Action":   action,
		"Statuses": grc.ControlStatusChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupFrameworks|lookupDepartments|lookupUsers); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/control_form.html", verb+" Control", data, status)
}

func (h *Handler) newControl(w http.ResponseWriter, r *http.Request) {
	in := grc.ControlInput{Status: grc.ControlNotAssessed}
	if id, err := idParam(r.URL.Query(), "framework"); err == nil {
		in.FrameworkID = id
	}
	h.controlForm(w, r, in, 0, nil, http.StatusOK)
}

func (h *Handler) createControl(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := controlInput(form)
	if errs := form.finish(in); errs != nil {
		h.controlForm(w, r, in, 0, errs, http.StatusBadRequest)
		return
	}
	_, err := h.service.CreateControl(r.Context(), actorID(r.Context()), in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.controlForm(w, r, in, 0, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/compliance", "success", "Compliance control created successfully.")
}

func (h *Handler) editControl(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetControl(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.controlForm(w, r, controlToInput(c), id, nil, http.StatusOK)
}

func (h *Handler) updateControl(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := controlInput(form)
	if errs := form.finish(in); errs != nil {
		h.controlForm(w, r, in, id, errs, http.StatusBadRequest)
		return
	}
	err := h.service.UpdateControl(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.controlForm(w, r, in, id, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/compliance", "success", "Compliance control updated successfully.")
}

func (h *Handler) confirmDeleteControl(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetControl(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.confirmDelete(w, r, "control", c.FrameworkName+" "+c.ControlID+" - "+c.Title, fmt.Sprintf("/compliance/%d/delete", id), "/compliance")
}

func (h *Handler) deleteControl(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteControl(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/compliance", "success", "Compliance control deleted.")
}

func (h *Handler) listFrameworks(w http.ResponseWriter, r *http.Request) {
	frameworks, err := h.service.ListFrameworks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/frameworks.html", "Compliance Frameworks", map[string]any{"Frameworks": frameworks}, http.StatusOK)
}

func (h *Handler) frameworkForm(w http.ResponseWriter, r *http.Request, in grc.FrameworkInput, id int64, errs map[string]string, status int) {
	verb, action := "Create", "/frameworks/new"
	if id > 0 {
		verb, action = "Update", fmt.Sprintf("/frameworks/%d/edit", id)
	}
	h.render(w, r, "pages/framework_form.html", verb+" Framework", map[string]any{
		"Form":   in,
		"Errors": errs,
		"Verb":   verb,
		"Action": action,
	}, status)
}

func (h *Handler) newFramework(w http.ResponseWriter, r *http.Request) {
	h.frameworkForm(w, r, grc.FrameworkInput{}, 0, nil, http.StatusOK)
}

func (h *Handler) createFramework(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	in := frameworkInput(newFormReader(r.PostForm))
	_, err := h.service.CreateFramework(r.Context(), actorID(r.Context()), in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.frameworkForm(w, r, in, 0, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/frameworks", "success", "Framework created successfully.")
}

func (h *Handler) editFramework(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	f, err := h.service.GetFramework(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.frameworkForm(w, r, grc.FrameworkInput{Name: f.Name, Description: f.Description, Version: f.Version}, id, nil, http.StatusOK)
}

func (h *Handler) updateFramework(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	in := frameworkInput(newFormReader(r.PostForm))
	err := h.service.UpdateFramework(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.frameworkForm(w, r, in, id, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/frameworks", "success", "Framework updated successfully.")
}

func (h *Handler) confirmDeleteFramework(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	f, err := h.service.GetFramework(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.confirmDelete(w, r, "framework", f.Name, fmt.Sprintf("/frameworks/%d/delete", id), "/frameworks")
}

func (h *Handler) deleteFramework(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteFramework(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/frameworks", "success", "Framework and its controls deleted.")
}
