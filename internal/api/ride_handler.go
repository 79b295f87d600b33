package api

import (
	"net/http"

	"github.com/jjjimenez100/backend-coding-test/internal/models"
	"github.com/jjjimenez100/backend-coding-test/internal/services"
	"github.com/jjjimenez100/backend-coding-test/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// RideHandler handles ride-related HTTP requests
type RideHandler struct {
	rides  *services.RideService
	tracer tracing.Tracer
}

// NewRideHandler creates a new ride handler
func NewRideHandler(rides *services.RideService, tracer tracing.Tracer) *RideHandler {
	return &RideHandler{
		rides:  rides,
		tracer: tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *RideHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/rides", h.HandleCreateRide)
	router.GET("/rides", h.HandleListRides)
	router.GET("/rides/:id", h.HandleGetRide)
	router.GET("/search/rides", h.HandleSearchRides)
}

// HandleCreateRide stores a ride and responds with it as a one-element array
func (h *RideHandler) HandleCreateRide(c *gin.Context) {
	var req services.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errInvalidBody)
		return
	}

	rides, err := h.rides.CreateRide(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if len(rides) > 0 {
		h.tracer.AddAttribute(nrgin.Transaction(c), "ride_id", rides[0].ID())
	}
	c.JSON(http.StatusOK, nonNil(rides))
}

// HandleListRides responds with one page of rides
func (h *RideHandler) HandleListRides(c *gin.Context) {
	page, err := h.rides.ListRides(c.Request.Context(), c.Query("page"), c.Query("limit"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// HandleGetRide responds with an array holding the ride, or an empty array
// when no ride has the id (including 0). Negative ids are a 400.
func (h *RideHandler) HandleGetRide(c *gin.Context) {
	rides, err := h.rides.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rides))
}

// HandleSearchRides responds with the rides matching q
func (h *RideHandler) HandleSearchRides(c *gin.Context) {
	rides, err := h.rides.SearchRides(c.Request.Context(), c.Query("q"), c.Query("limit"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rides))
}

// fail hands err to ErrorHandler and notes it on the request's transaction
func (h *RideHandler) fail(c *gin.Context, err error) {
	if models.KindOf(err) != models.KindValidation {
		h.tracer.RecordError(nrgin.Transaction(c), err)
	}
	_ = c.Error(err)
}

func nonNil(rides []models.Ride) []models.Ride {
	if rides == nil {
		return []models.Ride{}
	}
	return rides
}
