package handler

import (
	"courtbook/internal/slots/service"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

type generateRequest struct {
	Date string `json:"date"`
}

func (h *SlotHandler) ListSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		h.writeError(w, "ListSlots", apperrors.InvalidInput("date query parameter is required"))
		return
	}

	slots, err := h.service.ListSlots(r.Context(), ps.ByName("id"), date)
	if err != nil {
		h.writeError(w, "ListSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetSlot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSlot", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) DefineSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "DefineSlots", err)
		return
	}

	var def model.SlotDefinition
	if err := httputil.DecodeBody(r, &def); err != nil {
		h.writeError(w, "DefineSlots", err)
		return
	}

	slots, err := h.service.DefineSlots(r.Context(), actor, ps.ByName("id"), &def)
	if err != nil {
		h.writeError(w, "DefineSlots", err)
		return
	}

	if err := httputil.WriteCreated(w, slots); err != nil {
		h.log.Error("failed to write created response", "handler", "DefineSlots", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) GenerateDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "GenerateDay", err)
		return
	}

	var req generateRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "GenerateDay", err)
		return
	}

	slots, err := h.service.GenerateDay(r.Context(), actor, ps.ByName("id"), req.Date)
	if err != nil {
		h.writeError(w, "GenerateDay", err)
		return
	}

	if err := httputil.WriteCreated(w, slots); err != nil {
		h.log.Error("failed to write created response", "handler", "GenerateDay", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/courts/:id/slots", h.ListSlots)
	router.POST("/api/v1/courts/:id/slots", h.DefineSlots)
	router.POST("/api/v1/courts/:id/slots/generate", h.GenerateDay)
	router.GET("/api/v1/slots/:id", h.GetSlot)
}
