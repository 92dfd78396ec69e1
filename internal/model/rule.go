package model

import (
	"time"

	"github.com/google/uuid"
)

type RulePurpose string

const (
	PurposeGeneral   RulePurpose = "general"
	PurposeInterview RulePurpose = "interview"
)

// AvailabilityRule is a tutor-defined recurring weekly window. Times of day
// are stored as minutes from midnight in the owner's timezone; Timezone is a
// snapshot of the owner's IANA zone taken when the rule is created, so a
// later profile change never shifts slots that were generated from it.
type AvailabilityRule struct {
	ID          int64       `json:"id"`
	GroupID     uuid.UUID   `json:"group_id"` // links rules created as one batch
	OwnerID     int64       `json:"owner_id"`
	Weekday     int         `json:"weekday"`      // 0 = Sunday, 6 = Saturday
	StartMinute int         `json:"start_minute"` // minutes from midnight, owner-local
	EndMinute   int         `json:"end_minute"`
	Timezone    string      `json:"timezone"`
	ActiveFrom  *time.Time  `json:"active_from"`  // nil = unbounded
	ActiveUntil *time.Time  `json:"active_until"` // nil = unbounded
	Purpose     RulePurpose `json:"purpose"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Valid reports whether the rule's own invariants hold.
func (r *AvailabilityRule) Valid() bool {
	if r.Weekday < 0 || r.Weekday > 6 {
		return false
	}
	if r.StartMinute < 0 || r.EndMinute > 24*60 || r.StartMinute >= r.EndMinute {
		return false
	}
	if r.ActiveFrom != nil && r.ActiveUntil != nil && r.ActiveFrom.After(*r.ActiveUntil) {
		return false
	}
	return true
}
