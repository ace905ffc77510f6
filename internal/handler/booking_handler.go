// Package handler exposes the booking use cases over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stashspot/service-booking/internal/application"
	"github.com/stashspot/service-booking/internal/config"
	"github.com/stashspot/service-booking/internal/platform/auth"
	"github.com/stashspot/service-booking/internal/platform/middleware"
	"github.com/stashspot/service-booking/internal/platform/response"
	"github.com/stashspot/service-booking/internal/ratelimit"
)

// BookingHandler serves the renter-facing booking routes.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers the renter routes under /api/v1. Quote and reserve
// are throttled per caller; the read routes are not.
func (h *BookingHandler) RegisterRoutes(
	r *gin.RouterGroup,
	jwtManager *auth.JWTManager,
	limiter *ratelimit.FixedWindowLimiter,
	guard *ratelimit.LocalGuard,
	rl config.RateLimitConfig,
) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))

	bookings.POST("/quote",
		middleware.RateLimitMiddleware(limiter, guard, "quote", rl.QuoteMax, rl.QuoteWindow),
		h.Quote)
	bookings.POST("",
		middleware.RateLimitMiddleware(limiter, guard, "reserve", rl.ReserveMax, rl.ReserveWindow),
		h.Reserve)

	bookings.GET("", h.ListMine)
	bookings.GET("/:id", h.Get)
	bookings.POST("/:id/check-in", h.CheckIn)
	bookings.POST("/:id/check-out", h.CheckOut)
	bookings.POST("/:id/extend", h.Extend)
	bookings.POST("/:id/cancel", h.Cancel)

	units := r.Group("/units")
	units.Use(middleware.AuthMiddleware(jwtManager))
	units.GET("/:id/availability", h.Availability)
}

// Quote handles POST /api/v1/bookings/quote.
func (h *BookingHandler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, quote)
}

// Availability handles GET /api/v1/units/:id/availability?start=...&end=...
func (h *BookingHandler) Availability(c *gin.Context) {
	unitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		response.BadRequest(c, "invalid start time, expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		response.BadRequest(c, "invalid end time, expected RFC3339")
		return
	}

	availability, err := h.service.CheckAvailability(c.Request.Context(), unitID, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, availability)
}

// Reserve handles POST /api/v1/bookings.
func (h *BookingHandler) Reserve(c *gin.Context) {
	renterID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req application.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.service.Reserve(c.Request.Context(), renterID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// ListMine handles GET /api/v1/bookings.
func (h *BookingHandler) ListMine(c *gin.Context) {
	renterID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	page, limit := pageParams(c)
	result, err := h.service.GetRenterBookings(c.Request.Context(), renterID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// Get handles GET /api/v1/bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	h.withActor(c, func(actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*application.BookingDTO, error) {
		return h.service.GetBooking(c.Request.Context(), actorID, isAdmin, bookingID)
	})
}

// CheckIn handles POST /api/v1/bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.withActor(c, func(actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*application.BookingDTO, error) {
		return h.service.CheckIn(c.Request.Context(), actorID, isAdmin, bookingID)
	})
}

// CheckOut handles POST /api/v1/bookings/:id/check-out.
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.withActor(c, func(actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*application.BookingDTO, error) {
		return h.service.CheckOut(c.Request.Context(), actorID, isAdmin, bookingID)
	})
}

// Extend handles POST /api/v1/bookings/:id/extend.
func (h *BookingHandler) Extend(c *gin.Context) {
	var req application.ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.withActor(c, func(actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*application.BookingDTO, error) {
		return h.service.Extend(c.Request.Context(), actorID, isAdmin, bookingID, req)
	})
}

// Cancel handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req application.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	h.withActor(c, func(actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*application.BookingDTO, error) {
		return h.service.Cancel(c.Request.Context(), actorID, isAdmin, bookingID, req.Reason)
	})
}

// withActor resolves the caller identity and booking id, runs the operation
// and writes the result.
func (h *BookingHandler) withActor(c *gin.Context, op func(actorID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*application.BookingDTO, error)) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	role, _ := middleware.GetUserRole(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	booking, err := op(actorID, role == auth.RoleAdmin, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, booking)
}

func pageParams(c *gin.Context) (int, int) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)
	return page, limit
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
