package schedule

import (
	"fmt"
	"time"

	"github.com/tutorhub/scheduler/internal/model"
)

// ValidateBooking cross-checks a candidate booking against the confirmed
// commitments of both parties. A host cannot be double-booked across their
// own slots, and a participant cannot be double-booked across different
// hosts. Detection is order-independent: if A conflicts with B, proposing B
// while A exists fails the same way.
func ValidateBooking(candidate *model.Booking, hostCommitments, participantCommitments []*model.Booking) error {
	if err := checkCommitments(candidate.Range(), candidate.ID, hostCommitments, "host"); err != nil {
		return err
	}
	return checkCommitments(candidate.Range(), candidate.ID, participantCommitments, "participant")
}

// ValidateSlot cross-checks a slot create or edit against the owning tutor's
// other persisted slots. Counter-parties are not checked: nobody is committed
// to a slot until a booking exists.
func ValidateSlot(candidate *model.AvailabilitySlot, ownerSlots []*model.AvailabilitySlot) error {
	for _, s := range ownerSlots {
		if s.ID != 0 && s.ID == candidate.ID {
			continue
		}
		if candidate.Range().Overlaps(s.Range()) {
			return fmt.Errorf("%w: slot overlaps owner slot %d [%s, %s)",
				ErrConflict, s.ID, s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
		}
	}
	return nil
}

func checkCommitments(r model.TimeRange, selfID int64, commitments []*model.Booking, party string) error {
	for _, b := range commitments {
		if b.Status != model.BookingStatusConfirmed {
			continue
		}
		if selfID != 0 && b.ID == selfID {
			continue
		}
		if r.Overlaps(b.Range()) {
			return fmt.Errorf("%w: %s already booked [%s, %s)",
				ErrConflict, party, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
		}
	}
	return nil
}
