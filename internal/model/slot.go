package model

import "time"

type SlotEditState string

const (
	SlotEditUnchanged SlotEditState = "unchanged"
	SlotEditUpdated   SlotEditState = "updated"
	SlotEditCreated   SlotEditState = "created"
	SlotEditRemoved   SlotEditState = "removed"
)

// TimeRange is a half-open interval [Start, End) in UTC.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports half-open intersection with other.
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.Start.Before(other.End) && other.Start.Before(t.End)
}

// BookableWindow is a free sub-range together with the identity needed to
// book it: the persisted slot it was carved from, or the rule whose
// occurrence has not been materialized yet (SlotID == 0).
type BookableWindow struct {
	TimeRange
	SlotID int64  `json:"slot_id"`
	RuleID *int64 `json:"rule_id,omitempty"`
}

// AvailabilitySlot is one concrete bookable window. ID == 0 means the slot
// has not been persisted yet. Version backs the optimistic concurrency check
// on booking commits.
type AvailabilitySlot struct {
	ID        int64       `json:"id"`
	OwnerID   int64       `json:"owner_id"`
	RuleID    *int64      `json:"rule_id"` // nil for standalone slots
	Start     time.Time   `json:"start"`   // UTC
	End       time.Time   `json:"end"`     // UTC
	Purpose   RulePurpose `json:"purpose"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"created_at"`

	// Client-side editing augmentation. EditState is advisory UI bookkeeping;
	// the reconciler re-derives the real classification from Original.
	EditState SlotEditState `json:"edit_state,omitempty"`
	Original  *TimeRange    `json:"original,omitempty"`
}

// Range returns the slot's occupied interval.
func (s *AvailabilitySlot) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// Drifted reports whether the slot's times differ from the last
// server-confirmed snapshot.
func (s *AvailabilitySlot) Drifted() bool {
	if s.Original == nil {
		return false
	}
	return !s.Start.Equal(s.Original.Start) || !s.End.Equal(s.Original.End)
}
