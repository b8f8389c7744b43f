// Package httpapi exposes the contact operations as a JSON REST API.
//
// Every response uses the same envelope: {"success": true, "data": ...} or
// {"success": false, "error": "..."}. All routes except /api/init require a
// valid session cookie, and mutating routes additionally require the
// session's CSRF token in the X-CSRF-Token header.
package httpapi

import (
	"net/http"

	"github.com/mpetrov/cardtidy/internal/middleware"
	"github.com/mpetrov/cardtidy/internal/service"
	"github.com/mpetrov/cardtidy/internal/session"
)

// Handler holds the API dependencies.
type Handler struct {
	svc           *service.ContactService
	sessions      *session.Manager
	limiter       *middleware.RateLimiter
	maxUploadSize int64
}

// New creates an API handler.
func New(svc *service.ContactService, sessions *session.Manager, limiter *middleware.RateLimiter, maxUploadSize int64) *Handler {
	return &Handler{
		svc:           svc,
		sessions:      sessions,
		limiter:       limiter,
		maxUploadSize: maxUploadSize,
	}
}

// Routes registers all API routes on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/init", h.handleInit)

	mux.Handle("POST /api/upload", h.withSession(middleware.ActionUpload, h.handleUpload))

	mux.Handle("GET /api/contacts", h.withSession("", h.handleListContacts))
	mux.Handle("POST /api/contacts", h.withSession(middleware.ActionModify, h.handleCreateContact))
	mux.Handle("GET /api/contacts/{id}", h.withSession("", h.handleGetContact))
	mux.Handle("PUT /api/contacts/{id}", h.withSession(middleware.ActionModify, h.handleUpdateContact))
	mux.Handle("DELETE /api/contacts", h.withSession(middleware.ActionModify, h.handleDeleteContacts))
	mux.Handle("POST /api/contacts/move", h.withSession(middleware.ActionModify, h.handleMoveContacts))

	mux.Handle("POST /api/analyze", h.withSession(middleware.ActionAnalyze, h.handleAnalyze))
	mux.Handle("POST /api/merge", h.withSession(middleware.ActionMerge, h.handleMerge))
	mux.Handle("POST /api/merge/auto", h.withSession(middleware.ActionMerge, h.handleAutoMerge))
	mux.Handle("POST /api/export", h.withSession("", h.handleExport))

	mux.Handle("GET /api/files", h.withSession("", h.handleListFiles))
	mux.Handle("PUT /api/files/{id}", h.withSession(middleware.ActionModify, h.handleRenameFile))
	mux.Handle("DELETE /api/files/{id}", h.withSession(middleware.ActionModify, h.handleDeleteFile))

	mux.Handle("GET /api/history", h.withSession("", h.handleHistory))
	mux.Handle("POST /api/clear", h.withSession(middleware.ActionModify, h.handleClear))
}
