package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mpetrov/cardtidy/internal/dedup"
	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/service"
	"github.com/mpetrov/cardtidy/internal/session"
)

// handleUpload accepts either a multipart file upload (field "file") or a
// JSON body {"text": "...", "name": "..."} with pasted VCF text.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var name, content string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file upload required")
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".vcf" && ext != ".vcard" {
			writeError(w, http.StatusBadRequest, "only .vcf files are accepted")
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		name, content = header.Filename, string(data)
	} else {
		var req struct {
			Text string `json:"text"`
			Name string `json:"name"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name, content = req.Name, req.Text
	}

	if !strings.Contains(strings.ToUpper(content), "BEGIN:VCARD") {
		writeError(w, http.StatusBadRequest, "input does not look like vCard data")
		return
	}

	res, err := h.svc.ImportText(r.Context(), claims.SessionID, name, content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, res)
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	contacts, err := h.svc.ListContacts(r.Context(), claims.SessionID,
		r.URL.Query().Get("file"), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]any{"contacts": contacts, "total": len(contacts)})
}

func (h *Handler) handleGetContact(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	c, err := h.svc.GetContact(r.Context(), claims.SessionID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, c)
}

func (h *Handler) handleCreateContact(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var c models.Contact
	if err := decodeBody(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.svc.CreateContact(r.Context(), claims.SessionID, &c)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, created)
}

func (h *Handler) handleUpdateContact(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var upd service.ContactUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.UpdateContact(r.Context(), claims.SessionID, r.PathValue("id"), &upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, updated)
}

func (h *Handler) handleDeleteContacts(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}
	n, err := h.svc.DeleteContacts(r.Context(), claims.SessionID, req.IDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]int{"deleted": n})
}

func (h *Handler) handleMoveContacts(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		IDs          []string `json:"ids"`
		TargetFileID string   `json:"targetFileId"`
	}
	if err := decodeBody(r, &req); err != nil || len(req.IDs) == 0 || req.TargetFileID == "" {
		writeError(w, http.StatusBadRequest, "ids and targetFileId required")
		return
	}
	n, err := h.svc.MoveContacts(r.Context(), claims.SessionID, req.IDs, req.TargetFileID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]int{"moved": n})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		Threshold int `json:"threshold"`
	}
	// An empty body means the default threshold.
	if err := decodeBody(r, &req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Analyze(r.Context(), claims.SessionID, req.Threshold)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, res)
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		IDs       []string        `json:"ids"`
		Preferred *dedup.Preferred `json:"preferred"`
	}
	if err := decodeBody(r, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}
	res, err := h.svc.Merge(r.Context(), claims.SessionID, req.IDs, req.Preferred)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, res)
}

func (h *Handler) handleAutoMerge(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		Groups [][]string `json:"groups"`
	}
	if err := decodeBody(r, &req); err != nil || len(req.Groups) == 0 {
		writeError(w, http.StatusBadRequest, "groups required")
		return
	}
	res, err := h.svc.AutoMerge(r.Context(), claims.SessionID, req.Groups)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, res)
}

// handleExport streams the selected contacts back as a downloadable VCF.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		IDs    []string `json:"ids"`
		FileID string   `json:"fileId"`
	}
	// An empty body means "export everything".
	if err := decodeBody(r, &req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, _, err := h.svc.Export(r.Context(), claims.SessionID, req.IDs, req.FileID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("contacts_export_%s.vcf", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	io.WriteString(w, text)
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	files, err := h.svc.ListFiles(r.Context(), claims.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]any{"files": files})
}

func (h *Handler) handleRenameFile(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.RenameFile(r.Context(), claims.SessionID, r.PathValue("id"), req.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]bool{"renamed": true})
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	if err := h.svc.DeleteFile(r.Context(), claims.SessionID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]bool{"deleted": true})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	history, err := h.svc.History(r.Context(), claims.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]any{"history": history})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request, claims *session.Claims) {
	if err := h.svc.ClearAll(r.Context(), claims.SessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, map[string]bool{"cleared": true})
}
