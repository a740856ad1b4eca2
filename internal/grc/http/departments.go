package grchttp

import (
	"fmt"
	"net/http"

	"github.com/grcdash/grcdash/internal/grc"
)

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/departments.html", "Departments", map[string]any{"Departments": departments}, http.StatusOK)
}

func (h *Handler) departmentForm(w http.ResponseWriter, r *http.Request, in grc.DepartmentInput, id int64, errs map[string]string, status int) {
	verb, action := "Create", "/departments/new"
	if id > 0 {
		verb, action = "Update", fmt.Sprintf("/departments/%d/edit", id)
	}
	h.render(w, r, "pages/department_form.html", verb+" Department", map[string]any{
		"Form":   in,
		"Errors": errs,
		"Verb":   verb,
		"Action": action,
	}, status)
}

func (h *Handler) newDepartment(w http.ResponseWriter, r *http.Request) {
	h.departmentForm(w, r, grc.DepartmentInput{}, 0, nil, http.StatusOK)
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	in := departmentInput(newFormReader(r.PostForm))
	_, err := h.service.CreateDepartment(r.Context(), actorID(r.Context()), in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.departmentForm(w, r, in, 0, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/departments", "success", "Department created successfully.")
}

func (h *Handler) editDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.departmentForm(w, r, grc.DepartmentInput{Name: d.Name, Description: d.Description}, id, nil, http.StatusOK)
}

func (h *Handler) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	in := departmentInput(newFormReader(r.PostForm))
	err := h.service.UpdateDepartment(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.departmentForm(w, r, in, id, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/departments", "success", "Department updated successfully.")
}

func (h *Handler) confirmDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/confirm_delete.html", "Delete department", map[string]any{
		"Kind":    "department",
		"Name":    d.Name,
		"Action":  fmt.Sprintf("/departments/%d/delete", id),
		"Cancel":  "/departments",
		"Warning": "Every risk, control, audit, PO&AM and artifact of this department is deleted with it.",
	}, http.StatusOK)
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/departments", "success", "Department deleted.")
}
