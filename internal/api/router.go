package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the HTTP surface.
func NewRouter(h *Handlers, logger *zap.Logger, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/availability", h.GetAvailability)
	r.GET("/availability/slots", h.GetSlotsForEdit)
	r.POST("/availability", h.ReconcileSlots)

	r.POST("/rules", h.CreateRules)
	r.DELETE("/rules/:id", h.DeactivateRule)

	r.GET("/bookings", h.ListBookings)
	r.POST("/booking", h.CreateBooking)
	r.POST("/booking/:id/confirm", h.ConfirmBooking)
	r.PATCH("/booking/:id/cancel", h.CancelBooking)

	return r
}
