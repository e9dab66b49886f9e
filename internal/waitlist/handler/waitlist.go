package handler

import (
	"courtbook/internal/waitlist/service"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

type WaitlistHandler struct {
	service service.WaitlistService
	log     *logger.Logger
}

func NewWaitlistHandler(service service.WaitlistService, log *logger.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		log:     log,
	}
}

type joinRequest struct {
	RequestedAt time.Time `json:"requested_at"`
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Join", err)
		return
	}

	var req joinRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeBody(r, &req); err != nil {
			h.writeError(w, "Join", err)
			return
		}
	}

	entry, err := h.service.Join(r.Context(), actor, ps.ByName("id"), req.RequestedAt)
	if err != nil {
		h.writeError(w, "Join", err)
		return
	}

	if err := httputil.WriteCreated(w, entry); err != nil {
		h.log.Error("failed to write created response", "handler", "Join", "operation", "WriteCreated", "error", err)
	}
}

func (h *WaitlistHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entries, err := h.service.List(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WaitlistHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entry, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, entry); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WaitlistHandler) Leave(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Leave", err)
		return
	}

	if err := h.service.Leave(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Leave", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *WaitlistHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	entries, err := h.service.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
	}
}

// ListAll shows every queue to admins.
func (h *WaitlistHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}
	if !actor.IsAdmin() {
		h.writeError(w, "ListAll", apperrors.Forbidden("only admins can list every waiting list"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	entries, total, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, entries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *WaitlistHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *WaitlistHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots/:id/waitlist", h.Join)
	router.GET("/api/v1/slots/:id/waitlist", h.List)
	router.GET("/api/v1/waitlist", h.ListAll)
	router.GET("/api/v1/waitlist/:id", h.GetByID)
	router.DELETE("/api/v1/waitlist/:id", h.Leave)
	router.GET("/api/v1/me/waitlist", h.ListMine)
}
