package schedule

import (
	"fmt"
	"sort"

	"github.com/tutorhub/scheduler/internal/model"
)

// WriteSet is the minimal set of persistence operations needed to bring the
// server state in line with a client edit batch.
type WriteSet struct {
	ToCreate []*model.AvailabilitySlot
	ToUpdate []*model.AvailabilitySlot
	ToDelete []int64
}

// Empty reports whether applying the write-set would change nothing.
func (w WriteSet) Empty() bool {
	return len(w.ToCreate) == 0 && len(w.ToUpdate) == 0 && len(w.ToDelete) == 0
}

// Reconcile diffs a client-edited slot list against the last known server
// state and produces a write-set. Client edit-state tags are advisory only:
// created/updated/unchanged are re-derived from the server slots themselves,
// the one exception being "removed", which is how a client expresses deletion
// of a slot it still carries. bookingsBySlot supplies the bookings attached
// to each server slot so deletions of slots students already booked fail
// instead of silently dropping them.
func Reconcile(serverSlots, clientSlots []*model.AvailabilitySlot, bookingsBySlot map[int64][]*model.Booking) (WriteSet, error) {
	present := make([]*model.AvailabilitySlot, 0, len(clientSlots))
	for _, cs := range clientSlots {
		if cs.EditState == model.SlotEditRemoved {
			continue
		}
		if !cs.Start.Before(cs.End) {
			return WriteSet{}, fmt.Errorf("%w: slot %d: start not before end", ErrInvalidRule, cs.ID)
		}
		present = append(present, cs)
	}

	// Reject intra-batch overlap before producing any write-set.
	sorted := make([]*model.AvailabilitySlot, len(present))
	copy(sorted, present)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Range().Overlaps(sorted[i].Range()) {
			return WriteSet{}, fmt.Errorf("%w: [%s, %s) and [%s, %s)",
				ErrOverlappingSlots,
				sorted[i-1].Start.Format("2006-01-02T15:04"), sorted[i-1].End.Format("2006-01-02T15:04"),
				sorted[i].Start.Format("2006-01-02T15:04"), sorted[i].End.Format("2006-01-02T15:04"))
		}
	}

	serverByID := make(map[int64]*model.AvailabilitySlot, len(serverSlots))
	for _, ss := range serverSlots {
		serverByID[ss.ID] = ss
	}

	var ws WriteSet
	seen := make(map[int64]bool, len(present))
	for _, cs := range present {
		if cs.ID == 0 {
			ws.ToCreate = append(ws.ToCreate, cs)
			continue
		}
		ss, ok := serverByID[cs.ID]
		if !ok {
			return WriteSet{}, fmt.Errorf("%w: slot %d no longer exists", ErrConflict, cs.ID)
		}
		seen[cs.ID] = true
		if !cs.Start.Equal(ss.Start) || !cs.End.Equal(ss.End) {
			cs.Version = ss.Version
			ws.ToUpdate = append(ws.ToUpdate, cs)
		}
	}

	for _, ss := range serverSlots {
		if seen[ss.ID] {
			continue
		}
		if n := activeBookingCount(bookingsBySlot[ss.ID]); n > 0 {
			return WriteSet{}, fmt.Errorf("%w: slot %d has %d active bookings", ErrSlotInUse, ss.ID, n)
		}
		ws.ToDelete = append(ws.ToDelete, ss.ID)
	}

	return ws, nil
}

func activeBookingCount(bookings []*model.Booking) int {
	n := 0
	for _, b := range bookings {
		if b.Active() {
			n++
		}
	}
	return n
}
