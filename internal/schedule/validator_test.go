package schedule

import (
	"errors"
	"testing"

	"github.com/tutorhub/scheduler/internal/model"
)

func TestValidateBooking_NoCommitments(t *testing.T) {
	candidate := booking(t, 1, 9, 0, 10, 0, model.BookingStatusPending)
	if err := ValidateBooking(candidate, nil, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateBooking_HostDoubleBookedAcrossSlots(t *testing.T) {
	candidate := booking(t, 1, 9, 0, 10, 0, model.BookingStatusPending)
	other := booking(t, 2, 9, 30, 10, 30, model.BookingStatusConfirmed)

	err := ValidateBooking(candidate, []*model.Booking{other}, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestValidateBooking_ParticipantDoubleBookedAcrossHosts(t *testing.T) {
	candidate := booking(t, 1, 9, 0, 10, 0, model.BookingStatusPending)
	elsewhere := booking(t, 7, 9, 30, 10, 30, model.BookingStatusConfirmed)
	elsewhere.HostID = 99

	err := ValidateBooking(candidate, nil, []*model.Booking{elsewhere})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestValidateBooking_PendingCommitmentsNotBlocking(t *testing.T) {
	candidate := booking(t, 1, 9, 0, 10, 0, model.BookingStatusPending)
	pending := booking(t, 2, 9, 0, 10, 0, model.BookingStatusPending)

	if err := ValidateBooking(candidate, []*model.Booking{pending}, nil); err != nil {
		t.Fatalf("expected pending commitments to be ignored, got %v", err)
	}
}

func TestValidateBooking_AdjacentRangesDoNotConflict(t *testing.T) {
	candidate := booking(t, 1, 9, 0, 10, 0, model.BookingStatusPending)
	adjacent := booking(t, 2, 10, 0, 11, 0, model.BookingStatusConfirmed)

	if err := ValidateBooking(candidate, []*model.Booking{adjacent}, nil); err != nil {
		t.Fatalf("expected half-open ranges touching at 10:00 to pass, got %v", err)
	}
}

// Conflict detection is order-independent: if A blocks B, then B blocks A.
func TestValidateBooking_Symmetry(t *testing.T) {
	a := booking(t, 1, 9, 0, 10, 0, model.BookingStatusConfirmed)
	b := booking(t, 2, 9, 30, 10, 30, model.BookingStatusConfirmed)

	errAB := ValidateBooking(a, nil, []*model.Booking{b})
	errBA := ValidateBooking(b, nil, []*model.Booking{a})
	if !errors.Is(errAB, ErrConflict) || !errors.Is(errBA, ErrConflict) {
		t.Fatalf("expected symmetric conflicts, got %v and %v", errAB, errBA)
	}
}

func TestValidateSlot_OverlapWithOwnerSlot(t *testing.T) {
	candidate := serverSlot(t, 0, 9, 11)
	existing := []*model.AvailabilitySlot{serverSlot(t, 5, 10, 12)}

	err := ValidateSlot(candidate, existing)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestValidateSlot_SelfExcluded(t *testing.T) {
	candidate := serverSlot(t, 5, 9, 11)
	candidate.End = utc(t, 2025, 1, 6, 12, 0)
	existing := []*model.AvailabilitySlot{serverSlot(t, 5, 9, 11)}

	if err := ValidateSlot(candidate, existing); err != nil {
		t.Fatalf("expected edit of the same slot to pass, got %v", err)
	}
}

func TestValidateSlot_DisjointOK(t *testing.T) {
	candidate := serverSlot(t, 0, 9, 11)
	existing := []*model.AvailabilitySlot{serverSlot(t, 5, 11, 13)}

	if err := ValidateSlot(candidate, existing); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
