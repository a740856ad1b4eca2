package grchttp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/grcdash/grcdash/internal/grc"
	"github.com/grcdash/grcdash/internal/platform/filestore"
)

var scoreScale = []int{1, 2, 3, 4, 5}

func (h *Handler) listRisks(w http.ResponseWriter, r *http.Request) {
	f, err := riskFilterFrom(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	risks, err := h.service.ListRisks(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := map[string]any{
		"Risks":      risks,
		"Filter":     f,
		"Severities": grc.SeverityChoices(),
		"Statuses":   grc.RiskStatusChoices(),
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/risks.html", "Risk Register", data, http.StatusOK)
}

func riskToInput(risk grc.Risk) grc.RiskInput {
	identified := risk.IdentifiedDate
	return grc.RiskInput{
		Title:             risk.Title,
		Description:       risk.Description,
		DepartmentID:      risk.DepartmentID,
		Severity:          risk.Severity,
		Likelihood:        risk.Likelihood,
		Impact:            risk.Impact,
		Status:            risk.Status,
		OwnerID:           risk.OwnerID,
		MitigationPlan:    risk.MitigationPlan,
		IdentifiedDate:    &identified,
		TargetClosureDate: risk.TargetClosureDate,
	}
}

func (h *Handler) riskForm(w http.ResponseWriter, r *http.Request, in grc.RiskInput, risk *grc.Risk, errs map[string]string, status int) {
	verb, action := "Create", "/risks/new"
	if risk != nil {
		verb, action = "Update", fmt.Sprintf("/risks/%d/edit", risk.ID)
	}
	data := map[string]any{
		"Form":       in,
		"Errors":     errs,
		"Verb":       verb,
		"Action":     action,
		"Risk":       risk,
		"Severities": grc.SeverityChoices(),
		"Statuses":   grc.RiskStatusChoices(),
		"Scale":      scoreScale,
	}
	if err := h.withLookups(r.Context(), data, lookupDepartments|lookupUsers); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/risk_form.html", verb+" Risk", data, status)
}

func (h *Handler) newRisk(w http.ResponseWriter, r *http.Request) {
	h.riskForm(w, r, grc.RiskInput{Status: grc.RiskOpen}, nil, nil, http.StatusOK)
}

func (h *Handler) createRisk(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := riskInput(form)
	if errs := form.finish(in); errs != nil {
		h.riskForm(w, r, in, nil, errs, http.StatusBadRequest)
		return
	}
	evidence, closeFile, err := h.upload(r, "evidence_file")
	if errors.Is(err, errUploadTooLarge) {
		h.riskForm(w, r, in, nil, map[string]string{"evidence_file": h.tooLargeMessage()}, http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.bodyError(w, r, err)
		return
	}
	defer closeFile()

	risk, err := h.service.CreateRisk(r.Context(), actorID(r.Context()), in, evidence)
	if fields := grc.FieldErrors(err); fields != nil {
		h.riskForm(w, r, in, nil, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("risk created", slog.Int64("id", risk.ID), slog.Bool("evidence", risk.EvidenceUploaded))
	h.redirectWithFlash(w, r, "/risks", "success", "Risk created successfully.")
}

func (h *Handler) editRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	risk, err := h.service.GetRisk(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.riskForm(w, r, riskToInput(risk), &risk, nil, http.StatusOK)
}

func (h *Handler) updateRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	risk, err := h.service.GetRisk(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.bodyError(w, r, err)
		return
	}
	form := newFormReader(r.PostForm)
	in := riskInput(form)
	if errs := form.finish(in); errs != nil {
		h.riskForm(w, r, in, &risk, errs, http.StatusBadRequest)
		return
	}
	err = h.service.UpdateRisk(r.Context(), actorID(r.Context()), id, in)
	if fields := grc.FieldErrors(err); fields != nil {
		h.riskForm(w, r, in, &risk, fields, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/risks", "success", "Risk updated successfully.")
}

func (h *Handler) confirmDeleteRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	risk, err := h.service.GetRisk(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.confirmDelete(w, r, "risk", risk.Title, fmt.Sprintf("/risks/%d/delete", id), "/risks")
}

func (h *Handler) deleteRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRisk(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, "/risks", "success", "Risk deleted.")
}

func (h *Handler) attachEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/risks/%d/edit", id)
	if err := h.parseForm(w, r); err != nil {
		if errors.Is(err, errUploadTooLarge) {
			h.redirectWithFlash(w, r, back, "error", h.tooLargeMessage())
			return
		}
		h.bodyError(w, r, err)
		return
	}
	evidence, closeFile, err := h.upload(r, "evidence_file")
	if errors.Is(err, errUploadTooLarge) {
		h.redirectWithFlash(w, r, back, "error", h.tooLargeMessage())
		return
	}
	if err != nil {
		h.bodyError(w, r, err)
		return
	}
	defer closeFile()
	if evidence == nil {
		h.redirectWithFlash(w, r, back, "error", "Choose an evidence file to upload.")
		return
	}
	risk, err := h.service.AttachRiskEvidence(r.Context(), actorID(r.Context()), id, *evidence)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, back, "success", fmt.Sprintf("Evidence uploaded. Compliance is now %d%%.", risk.CompliancePercentage))
}

func (h *Handler) removeEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.RemoveRiskEvidence(r.Context(), actorID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.redirectWithFlash(w, r, fmt.Sprintf("/risks/%d/edit", id), "success", "Evidence removed.")
}

func (h *Handler) downloadEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	body, obj, err := h.service.OpenRiskEvidence(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer body.Close()
	h.sendFile(w, r, body, filestore.DisplayName(obj.Key), obj.ContentType, obj.Size)
}

// sendFile streams a stored file as an attachment.
func (h *Handler) sendFile(w http.ResponseWriter, r *http.Request, body io.Reader, name, contentType string, size int64) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream file", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}

func (h *Handler) confirmDelete(w http.ResponseWriter, r *http.Request, kind, name, action, cancel string) {
	h.render(w, r, "pages/confirm_delete.html", "Delete "+kind, map[string]any{
		"Kind":   kind,
		"Name":   name,
		"Action": action,
		"Cancel": cancel,
	}, http.StatusOK)
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("The file exceeds the %d MB upload limit.", h.maxUpload>>20)
}

// bodyError answers a request whose body could not be read.
func (h *Handler) bodyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errUploadTooLarge) {
		h.errorPage(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return
	}
	h.logger.Warn("read request body", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.errorPage(w, r, http.StatusBadRequest, "The submitted form could not be read.")
}
