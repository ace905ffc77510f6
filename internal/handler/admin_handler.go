package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stashspot/service-booking/internal/application"
	"github.com/stashspot/service-booking/internal/platform/auth"
	"github.com/stashspot/service-booking/internal/platform/middleware"
	"github.com/stashspot/service-booking/internal/platform/response"
)

// AdminHandler serves the admin routes: fleet-wide booking views, stats and
// the pricing rule catalog.
type AdminHandler struct {
	service *application.BookingService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(service *application.BookingService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers the admin routes under /api/v1/admin.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))

	admin.GET("/bookings", h.ListBookings)
	admin.GET("/bookings/stats", h.BookingStats)
	admin.GET("/bookings/number/:number", h.GetByNumber)
	admin.GET("/units/:id/bookings", h.UnitBookings)
	admin.GET("/pricing-rules", h.ListPricingRules)
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// BookingStats handles GET /api/v1/admin/bookings/stats.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// GetByNumber handles GET /api/v1/admin/bookings/number/:number.
func (h *AdminHandler) GetByNumber(c *gin.Context) {
	booking, err := h.service.GetBookingByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, booking)
}

// UnitBookings handles GET /api/v1/admin/units/:id/bookings.
func (h *AdminHandler) UnitBookings(c *gin.Context) {
	unitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}

	page, limit := pageParams(c)
	result, err := h.service.GetUnitBookings(c.Request.Context(), unitID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListPricingRules handles GET /api/v1/admin/pricing-rules.
func (h *AdminHandler) ListPricingRules(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.service.ListPricingRules(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
