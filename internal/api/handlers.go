package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/service"
)

// Handlers exposes the scheduling operations over HTTP. Authentication is an
// outer collaborator; identities arrive as explicit IDs.
type Handlers struct {
	availability *service.AvailabilityService
	slots        *service.SlotService
	bookings     *service.BookingService
	logger       *zap.Logger
}

func NewHandlers(
	availability *service.AvailabilityService,
	slots *service.SlotService,
	bookings *service.BookingService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		availability: availability,
		slots:        slots,
		bookings:     bookings,
		logger:       logger,
	}
}

// GetAvailability handles GET /availability?owner_id&from&to.
func (h *Handlers) GetAvailability(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Query("owner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "owner_id is required", Reason: "bad_request"})
		return
	}
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}

	windows, err := h.availability.GetBookableWindows(c.Request.Context(), ownerID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"windows": windows})
}

// GetSlotsForEdit handles GET /availability/slots?owner_id&from&to, returning
// persisted slots with original snapshots for a client edit session.
func (h *Handlers) GetSlotsForEdit(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Query("owner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "owner_id is required", Reason: "bad_request"})
		return
	}
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}

	slots, err := h.availability.GetSlotsForEdit(c.Request.Context(), ownerID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type reconcileRequest struct {
	OwnerID int64                     `json:"owner_id" binding:"required"`
	From    time.Time                 `json:"from" binding:"required"`
	To      time.Time                 `json:"to" binding:"required"`
	Slots   []*model.AvailabilitySlot `json:"slots"`
}

// ReconcileSlots handles POST /availability.
func (h *Handlers) ReconcileSlots(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: "bad_request"})
		return
	}

	ws, err := h.slots.ReconcileSlots(c.Request.Context(), req.OwnerID, req.From, req.To, req.Slots)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created": ws.ToCreate,
		"updated": ws.ToUpdate,
		"deleted": ws.ToDelete,
	})
}

type createRulesRequest struct {
	OwnerID int64              `json:"owner_id" binding:"required"`
	Rules   []service.RuleSpec `json:"rules" binding:"required"`
}

// CreateRules handles POST /rules.
func (h *Handlers) CreateRules(c *gin.Context) {
	var req createRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: "bad_request"})
		return
	}

	rules, err := h.slots.CreateRules(c.Request.Context(), req.OwnerID, req.Rules)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rules": rules})
}

// DeactivateRule handles DELETE /rules/:id?owner_id.
func (h *Handlers) DeactivateRule(c *gin.Context) {
	ruleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid rule id", Reason: "bad_request"})
		return
	}
	ownerID, err := strconv.ParseInt(c.Query("owner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "owner_id is required", Reason: "bad_request"})
		return
	}

	if err := h.slots.DeactivateRule(c.Request.Context(), ruleID, ownerID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type bookingRequest struct {
	SlotID        int64             `json:"slot_id"` // persisted slot, or
	RuleID        int64             `json:"rule_id"` // unmaterialized rule occurrence
	ParticipantID int64             `json:"participant_id" binding:"required"`
	Kind          model.BookingKind `json:"kind" binding:"required"`
	Start         time.Time         `json:"start" binding:"required"`
	End           time.Time         `json:"end" binding:"required"`
}

// CreateBooking handles POST /booking. A window advertised from a persisted
// slot is booked by slot_id; one advertised from a rule occurrence that has
// not been materialized yet is booked by rule_id.
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: "bad_request"})
		return
	}

	var (
		booking *model.Booking
		err     error
	)
	switch {
	case req.SlotID != 0:
		booking, err = h.bookings.Book(c.Request.Context(), req.SlotID, req.ParticipantID, req.Kind, req.Start, req.End)
	case req.RuleID != 0:
		booking, err = h.bookings.BookOccurrence(c.Request.Context(), req.RuleID, req.ParticipantID, req.Kind, req.Start, req.End)
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "slot_id or rule_id is required", Reason: "bad_request"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// ConfirmBooking handles POST /booking/:id/confirm.
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid booking id", Reason: "bad_request"})
		return
	}

	booking, err := h.bookings.Confirm(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

type cancelRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// CancelBooking handles PATCH /booking/:id/cancel.
func (h *Handlers) CancelBooking(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid booking id", Reason: "bad_request"})
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: "bad_request"})
		return
	}

	if err := h.bookings.Cancel(c.Request.Context(), bookingID, req.UserID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListBookings handles GET /bookings?participant_id or ?host_id.
func (h *Handlers) ListBookings(c *gin.Context) {
	var (
		bookings []*model.Booking
		err      error
	)

	switch {
	case c.Query("participant_id") != "":
		participantID, parseErr := strconv.ParseInt(c.Query("participant_id"), 10, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid participant_id", Reason: "bad_request"})
			return
		}
		bookings, err = h.bookings.GetByParticipant(c.Request.Context(), participantID)
	case c.Query("host_id") != "":
		hostID, parseErr := strconv.ParseInt(c.Query("host_id"), 10, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid host_id", Reason: "bad_request"})
			return
		}
		bookings, err = h.bookings.GetByHost(c.Request.Context(), hostID)
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "participant_id or host_id is required", Reason: "bad_request"})
		return
	}

	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "from must be RFC3339", Reason: "bad_request"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "to must be RFC3339", Reason: "bad_request"})
		return time.Time{}, time.Time{}, false
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "to must be after from", Reason: "bad_request"})
		return time.Time{}, time.Time{}, false
	}
	return from.UTC(), to.UTC(), true
}
