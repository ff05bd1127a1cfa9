package slot

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/slot"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

type Handler struct {
	service *slot.Service
	caps    *middleware.CapabilityMiddleware
}

func NewHandler(service *slot.Service, caps *middleware.CapabilityMiddleware) *Handler {
	return &Handler{service: service, caps: caps}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers/:id/slots")
	{
		providers.GET("", h.caps.Require("slots", "view"), h.ListSlots)
		providers.POST("/regenerate", h.caps.Require("slots", "generate"), h.RegenerateSlots)
	}

	slots := r.Group("/slots")
	{
		slots.GET("/:id", h.caps.Require("slots", "view"), h.GetSlot)
		slots.POST("/:id/reserve", h.caps.Require("slots", "book"), h.ReserveSlot)
	}
}

// ListSlots accepts horizon (days), date (yyyy-mm-dd) and available
// (bool) query parameters.
func (h *Handler) ListSlots(c *gin.Context) {
	q := slot.Query{HorizonDays: h.service.DefaultHorizon()}

	if raw := c.Query("horizon"); raw != "" {
		horizon, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("horizon must be an integer", err))
			return
		}
		q.HorizonDays = horizon
	}

	if raw := c.Query("date"); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("date must be formatted yyyy-mm-dd", err))
			return
		}
		q.Date = &date
	}

	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("available must be a boolean", err))
			return
		}
		q.AvailableOnly = available
	}

	slots, err := h.service.ListSlots(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) RegenerateSlots(c *gin.Context) {
	horizon := h.service.DefaultHorizon()
	if raw := c.Query("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("horizon must be an integer", err))
			return
		}
		horizon = n
	}

	slots, err := h.service.GenerateSlots(c.Request.Context(), c.Param("id"), horizon)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"provider_id":     c.Param("id"),
		"horizon_days":    horizon,
		"slot_count":      len(slots),
		"available_count": len(slot.FilterAvailable(slots)),
	})
}

func (h *Handler) GetSlot(c *gin.Context) {
	s, err := h.service.GetSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, s)
}

// ReserveSlot takes an optional contact body; an empty body books
// anonymously.
func (h *Handler) ReserveSlot(c *gin.Context) {
	var contact *model.BookingContact
	if c.Request.ContentLength != 0 {
		var req model.BookingContact
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				// rendered by the validation middleware
				_ = c.Error(err).SetType(gin.ErrorTypeBind)
				return
			}
			httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
			return
		} else if err == nil {
			contact = &req
		}
	}

	s, err := h.service.ReserveSlot(c.Request.Context(), c.Param("id"), contact)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, s)
}
