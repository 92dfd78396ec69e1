package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/tutorhub/scheduler/internal/model"
)

// AvailableWindows subtracts every pending and confirmed booking from
// [slot.Start, slot.End) and returns the remaining free sub-ranges in
// ascending order. Two active bookings overlapping each other inside one slot
// violate the persistence invariants and are reported as ErrCorruptSlot
// rather than coalesced.
func AvailableWindows(slot *model.AvailabilitySlot, bookings []*model.Booking) ([]model.TimeRange, error) {
	occupied := make([]model.TimeRange, 0, len(bookings))
	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		if !b.Range().Overlaps(slot.Range()) {
			continue
		}
		occupied = append(occupied, clamp(b.Range(), slot.Range()))
	}

	sort.Slice(occupied, func(i, j int) bool { return occupied[i].Start.Before(occupied[j].Start) })

	var free []model.TimeRange
	cursor := slot.Start
	for i, r := range occupied {
		if i > 0 && r.Start.Before(occupied[i-1].End) {
			return nil, fmt.Errorf("%w: slot %d: bookings [%s) and [%s) intersect",
				ErrCorruptSlot, slot.ID,
				occupied[i-1].Start.Format(time.RFC3339), r.Start.Format(time.RFC3339))
		}
		if cursor.Before(r.Start) {
			free = append(free, model.TimeRange{Start: cursor, End: r.Start})
		}
		cursor = r.End
	}
	if cursor.Before(slot.End) {
		free = append(free, model.TimeRange{Start: cursor, End: slot.End})
	}

	return free, nil
}

// ProposeBooking validates a requested sub-range against the slot's free
// windows and returns a new pending booking. Nothing is persisted here; the
// caller owns the commit and its concurrency guard.
func ProposeBooking(
	slot *model.AvailabilitySlot,
	bookings []*model.Booking,
	participantID int64,
	kind model.BookingKind,
	requestedStart, requestedEnd time.Time,
	minDuration time.Duration,
) (*model.Booking, error) {
	if !requestedStart.Before(requestedEnd) {
		return nil, fmt.Errorf("%w: start not before end", ErrOutOfBounds)
	}
	if err := checkPurpose(slot.Purpose, kind); err != nil {
		return nil, err
	}

	windows, err := AvailableWindows(slot, bookings)
	if err != nil {
		return nil, err
	}

	requested := model.TimeRange{Start: requestedStart, End: requestedEnd}
	if !containedInAny(requested, windows) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrOutOfBounds,
			requestedStart.Format(time.RFC3339), requestedEnd.Format(time.RFC3339))
	}
	if requestedEnd.Sub(requestedStart) < minDuration {
		return nil, fmt.Errorf("%w: %s < %s", ErrTooShort, requestedEnd.Sub(requestedStart), minDuration)
	}

	return &model.Booking{
		SlotID:        slot.ID,
		HostID:        slot.OwnerID,
		ParticipantID: participantID,
		Kind:          kind,
		Start:         requestedStart,
		End:           requestedEnd,
		Status:        model.BookingStatusPending,
	}, nil
}

// checkPurpose enforces the slot-purpose boundary: interview-only slots take
// interview bookings, general slots take lessons. Purpose is immutable per
// slot.
func checkPurpose(purpose model.RulePurpose, kind model.BookingKind) error {
	switch purpose {
	case model.PurposeInterview:
		if kind != model.BookingKindInterview {
			return fmt.Errorf("%w: %s booking on interview-only slot", ErrPurposeMismatch, kind)
		}
	default:
		if kind != model.BookingKindLesson {
			return fmt.Errorf("%w: %s booking on general slot", ErrPurposeMismatch, kind)
		}
	}
	return nil
}

func containedInAny(r model.TimeRange, windows []model.TimeRange) bool {
	for _, w := range windows {
		if !r.Start.Before(w.Start) && !r.End.After(w.End) {
			return true
		}
	}
	return false
}

func clamp(r, bounds model.TimeRange) model.TimeRange {
	if r.Start.Before(bounds.Start) {
		r.Start = bounds.Start
	}
	if r.End.After(bounds.End) {
		r.End = bounds.End
	}
	return r
}
