package provider

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/service/provider"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

type Handler struct {
	service *provider.Service
	caps    *middleware.CapabilityMiddleware
}

func NewHandler(service *provider.Service, caps *middleware.CapabilityMiddleware) *Handler {
	return &Handler{service: service, caps: caps}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	providers.Use(h.caps.Require("providers", "view"))
	{
		providers.GET("", h.ListProviders)
		providers.GET("/:id", h.GetProvider)
	}
}

func (h *Handler) ListProviders(c *gin.Context) {
	providers, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, providers)
}

func (h *Handler) GetProvider(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, p)
}
