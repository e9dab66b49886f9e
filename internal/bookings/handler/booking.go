package handler

import (
	"courtbook/internal/bookings/service"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	loc     *time.Location
	log     *logger.Logger
}

// NewBookingHandler resolves date query parameters in loc.
func NewBookingHandler(service service.BookingService, loc *time.Location, log *logger.Logger) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{
		service: service,
		loc:     loc,
		log:     log,
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID {
		h.writeError(w, "GetByID", apperrors.Forbidden("booking belongs to another user"))
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListByUser(r.Context(), actor.UserID, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

// Search finds bookings by reference or by user. Players may look up their
// own references; searching another user's bookings is for admins.
func (h *BookingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	query := r.URL.Query()
	reference, userID := query.Get("reference"), query.Get("user_id")
	switch {
	case reference != "":
		booking, err := h.service.GetByReference(r.Context(), reference)
		if err != nil {
			h.writeError(w, "Search", err)
			return
		}
		if !actor.IsAdmin() && booking.UserID != actor.UserID {
			// Another user's reference looks the same as an unknown one.
			h.writeError(w, "Search", apperrors.NotFound("Booking"))
			return
		}
		if err := httputil.WritePaginated(w, []*model.Booking{booking}, 1, 1, 0); err != nil {
			h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
		}

	case userID != "":
		if !actor.IsAdmin() && userID != actor.UserID {
			h.writeError(w, "Search", apperrors.Forbidden("only admins can search other users' bookings"))
			return
		}
		limit, offset, err := httputil.ExtractLimitOffset(r)
		if err != nil {
			h.writeError(w, "Search", err)
			return
		}
		bookings, total, err := h.service.ListByUser(r.Context(), userID, limit, offset)
		if err != nil {
			h.writeError(w, "Search", err)
			return
		}
		if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
			h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
		}

	default:
		h.writeError(w, "Search", apperrors.InvalidInput("reference or user_id is required"))
	}
}

// ListByCourt serves the admin day sheet. from and to are calendar dates;
// to is inclusive. status and when (today, upcoming, past) narrow it further.
func (h *BookingHandler) ListByCourt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		h.writeError(w, "ListByCourt", err)
		return
	}
	if !actor.IsAdmin() {
		h.writeError(w, "ListByCourt", apperrors.Forbidden("only admins can list court bookings"))
		return
	}

	from, _, err := httputil.ExtractDate(r, "from", h.loc)
	if err != nil {
		h.writeError(w, "ListByCourt", err)
		return
	}
	to, hasTo, err := httputil.ExtractDate(r, "to", h.loc)
	if err != nil {
		h.writeError(w, "ListByCourt", err)
		return
	}
	if hasTo {
		to = to.AddDate(0, 0, 1)
	}

	filter := model.BookingFilter{
		Range:  model.DateRange{From: from, To: to},
		Status: model.BookingStatus(r.URL.Query().Get("status")),
		Period: model.BookingPeriod(r.URL.Query().Get("when")),
	}
	bookings, err := h.service.ListByCourt(r.Context(), ps.ByName("id"), filter)
	if err != nil {
		h.writeError(w, "ListByCourt", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListByCourt", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings", h.Search)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.GET("/api/v1/me/bookings", h.ListMine)
	router.GET("/api/v1/courts/:id/bookings", h.ListByCourt)
}
