package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

type BookingKind string

const (
	BookingKindLesson    BookingKind = "lesson"
	BookingKindInterview BookingKind = "interview"
)

// Booking reserves a sub-range of exactly one AvailabilitySlot. Times are
// never mutated in place; reschedule is cancel-and-recreate.
type Booking struct {
	ID            int64         `json:"id"`
	SlotID        int64         `json:"slot_id"`
	HostID        int64         `json:"host_id"`
	ParticipantID int64         `json:"participant_id"`
	Kind          BookingKind   `json:"kind"`
	Start         time.Time     `json:"start"` // UTC
	End           time.Time     `json:"end"`   // UTC
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// Filled for notifications, not stored.
	Slot *AvailabilitySlot `json:"slot,omitempty"`
}

// Range returns the booked interval.
func (b *Booking) Range() TimeRange {
	return TimeRange{Start: b.Start, End: b.End}
}

// Active reports whether the booking still occupies its window.
func (b *Booking) Active() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
