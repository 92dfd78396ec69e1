package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tutorhub/scheduler/internal/schedule"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// writeError maps domain errors to specific HTTP statuses and machine
// readable reason codes, so clients can redirect users to a fresh
// availability query instead of showing a generic failure.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	reason := "internal"

	switch {
	case errors.Is(err, schedule.ErrInvalidRule):
		status, reason = http.StatusUnprocessableEntity, "invalid_rule"
	case errors.Is(err, schedule.ErrOverlappingSlots):
		status, reason = http.StatusConflict, "overlapping_slots"
	case errors.Is(err, schedule.ErrSlotInUse):
		status, reason = http.StatusConflict, "slot_in_use"
	case errors.Is(err, schedule.ErrCorruptSlot):
		status, reason = http.StatusInternalServerError, "corrupt_slot"
	case errors.Is(err, schedule.ErrOutOfBounds):
		status, reason = http.StatusBadRequest, "out_of_bounds"
	case errors.Is(err, schedule.ErrTooShort):
		status, reason = http.StatusBadRequest, "too_short"
	case errors.Is(err, schedule.ErrPurposeMismatch):
		status, reason = http.StatusBadRequest, "purpose_mismatch"
	case errors.Is(err, schedule.ErrConflict):
		status, reason = http.StatusConflict, "conflict"
	}

	c.JSON(status, errorResponse{Error: err.Error(), Reason: reason})
}
