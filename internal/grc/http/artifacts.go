package grchttp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/grcdash/grcdash/internal/grc"
)

func (h *Handler) listArtifacts(w http.ResponseWriter, r *http.Request) {
	f, err := artifactFilterFrom(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	artifacts, err := h.service.ListArtifacts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := map[string]any{
		"Artifacts":  artifacts,
		"Filter":     f,
		"Categories": grc.ArtifactCategoryChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/artifacts.html", "Artifacts", data, http.StatusOK)
}

func (h *Handler) artifactForm(w http.ResponseWriter, r *http.Request, in grc.ArtifactInput, id int64, errs map[string]string, status int) {
	verb, action := "Upload", "/artifacts/new"
	if id > 0 {
		verb, action = "Update", fmt.Sprintf("/artifacts/%d/edit", id)
	}
	data := map[string]any{
		"Form":       in,
		"Errors":     errs,
		"Verb":       verb,
		"Action":     action,
		"Categories": grc.ArtifactCategoryChoices(),
		"MaxUpload":  h.maxUpload,
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/artifact_form.html", verb+" Artifact", data, status)
}

func (h *Handler) newArtifact(w http.ResponseWriter, r *http.Request) {
	h.artifactForm(w, r, grc.ArtifactInput{Category: grc.CategoryEvidence}, 0, nil, http.StatusOK)
}

func (h *Handler) uploadArtifact(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		if errors.Is(err, errUploadTooLarge) {
			h.artifactForm(w, r, grc.ArtifactInput{}, 0, map[string]string{"file": h.tooLargeMessage()}, http.StatusRequestEntityTooLarge)
			return
		}
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := artifactInput(form)
	if errs := form.finish(in); errs != nil {
		h.artifactForm(w, r, in, 0, errs, http.StatusBadRequest)
		return
	}
	file, closeFile, err := h.upload(r, "file")
	if errors.Is(err, errUploadTooLarge) {
		h.artifactForm(w, r, in, 0, map[string]string{"file": h.tooLargeMessage()}, http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.bodyError(w, r, err)
		return
	}
	defer closeFile()
	if file == nil {
		errs := map[string]string{"file": "This field is required."}
		for k, v := range grc.FieldErrors(grc.Validate(in)) {
			errs[k] = v
		}
		h.artifactForm(w, r, in, 0, errs, http.StatusBadRequest)
		return
	}
	_, err = h.service.UploadArtifact(r.Context(), actorID(r.Context()), in, *file)
	if fields := grc.FieldErrors(err); fields != nil {
		h.artifactForm(w, r, in, 0, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/artifacts", "success", "Artifact uploaded successfully.")
}

func (h *Handler) editArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetArtifact(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := grc.ArtifactInput{Title: a.Title, Description: a.Description, Category: a.Category, DepartmentID: a.DepartmentID}
	h.artifactForm(w, r, in, id, nil, http.StatusOK)
}

func (h *Handler) updateArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := artifactInput(form)
	if errs := form.finish(in); errs != nil {
		h.artifactForm(w, r, in, id, errs, http.StatusBadRequest)
		return
	}
	err := h.service.UpdateArtifact(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.artifactForm(w, r, in, id, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/artifacts", "success", "Artifact updated successfully.")
}

func (h *Handler) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	body, a, err := h.service.OpenArtifact(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer body.Close()
	h.sendFile(w, r, body, a.FileName, a.ContentType, a.SizeBytes)
}

func (h *Handler) confirmDeleteArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetArtifact(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.confirmDelete(w, r, "artifact", a.Title, fmt.Sprintf("/artifacts/%d/delete", id), "/artifacts")
}

func (h *Handler) deleteArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteArtifact(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/artifacts", "success", "Artifact deleted.")
}
