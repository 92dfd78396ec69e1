package schedule

import "errors"

// Domain errors returned by the scheduling core. All are surfaced to the
// caller as-is; nothing here is auto-corrected.
var (
	// ErrInvalidRule marks a rule whose time window or active bounds are
	// inconsistent. Rechecked at expansion time, not only at creation.
	ErrInvalidRule = errors.New("invalid availability rule")

	// ErrOverlappingSlots marks two slots in the same client batch that
	// intersect each other.
	ErrOverlappingSlots = errors.New("overlapping slots in edit batch")

	// ErrSlotInUse marks an attempt to delete a slot that still has
	// non-canceled bookings attached.
	ErrSlotInUse = errors.New("slot has active bookings")

	// ErrCorruptSlot marks a slot whose stored bookings overlap each other,
	// which the persistence invariants should have made impossible.
	ErrCorruptSlot = errors.New("slot bookings overlap")

	// ErrOutOfBounds marks a booking request that is not fully contained in
	// one free window of the slot.
	ErrOutOfBounds = errors.New("requested range not available")

	// ErrTooShort marks a booking request below the minimum duration.
	ErrTooShort = errors.New("requested range too short")

	// ErrPurposeMismatch marks a booking whose kind does not match the slot's
	// purpose (interview-only slots take interviews, general slots lessons).
	ErrPurposeMismatch = errors.New("booking kind does not match slot purpose")

	// ErrConflict marks a candidate that intersects an existing commitment of
	// either party, or a lost optimistic-concurrency race on commit.
	ErrConflict = errors.New("conflicts with existing commitment")
)
