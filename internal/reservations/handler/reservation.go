package handler

import (
	"courtbook/internal/reservations/service"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

type confirmRequest struct {
	Token   string              `json:"token"`
	Payment model.PaymentResult `json:"payment"`
}

type checkoutRequest struct {
	Token string `json:"token"`
}

func (h *ReservationHandler) Hold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Hold", err)
		return
	}

	token, err := h.service.Hold(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Hold", err)
		return
	}

	if err := httputil.WriteCreated(w, token); err != nil {
		h.log.Error("failed to write created response", "handler", "Hold", "operation", "WriteCreated", "error", err)
	}
}

// Confirm records a payment taken outside the gateway, such as cash at the
// front desk. Only admins may report an outcome; players go through checkout.
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}
	if !actor.IsAdmin() {
		h.writeError(w, "Confirm", apperrors.Forbidden("only admins can record a payment outcome; use checkout"))
		return
	}

	var req confirmRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}
	if req.Token == "" {
		h.writeError(w, "Confirm", apperrors.InvalidInput("token is required"))
		return
	}

	booking, err := h.service.Confirm(r.Context(), actor, ps.ByName("id"), req.Token, req.Payment)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Confirm", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Checkout", err)
		return
	}

	var req checkoutRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "Checkout", err)
		return
	}
	if req.Token == "" {
		h.writeError(w, "Checkout", apperrors.InvalidInput("token is required"))
		return
	}

	booking, err := h.service.Checkout(r.Context(), actor, ps.ByName("id"), req.Token)
	if err != nil {
		h.writeError(w, "Checkout", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Checkout", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	result, err := h.service.Cancel(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}
	if !actor.IsAdmin() {
		h.writeError(w, "Complete", apperrors.Forbidden("only admins can complete bookings"))
		return
	}

	booking, err := h.service.Complete(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots/:id/hold", h.Hold)
	router.POST("/api/v1/slots/:id/confirm", h.Confirm)
	router.POST("/api/v1/slots/:id/checkout", h.Checkout)
	router.POST("/api/v1/bookings/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/:id/complete", h.Complete)
}
