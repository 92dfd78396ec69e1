package service

import (
	"context"
	"testing"
	"time"

	"github.com/tutorhub/scheduler/internal/model"
)

func availabilityFixture(t *testing.T) (*AvailabilityService, *mockRuleStore, *mockSlotStore, *mockBookingStore) {
	t.Helper()

	rules := newMockRuleStore()
	slots := newMockSlotStore()
	bookings := newMockBookingStore(slots)
	svc := NewAvailabilityService(rules, slots, bookings, &mockCache{}, testLogger())

	return svc, rules, slots, bookings
}

func TestGetBookableWindows_PersistedSlotMinusBooking(t *testing.T) {
	svc, _, slots, bookings := availabilityFixture(t)

	slot := slots.add(&model.AvailabilitySlot{
		OwnerID: 10,
		Start:   time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC),
		Purpose: model.PurposeGeneral,
	})
	bookings.add(&model.Booking{
		SlotID:        slot.ID,
		HostID:        10,
		ParticipantID: 20,
		Kind:          model.BookingKindLesson,
		Start:         time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC),
		Status:        model.BookingStatusConfirmed,
	})

	windows, err := svc.GetBookableWindows(context.Background(), 10,
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if !windows[0].Start.Equal(time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected window to start 09:30, got %v", windows[0].Start)
	}
}

func TestGetBookableWindows_RuleCandidatesIncluded(t *testing.T) {
	svc, rules, _, _ := availabilityFixture(t)

	rules.Create(context.Background(), &model.AvailabilityRule{
		OwnerID:     10,
		Weekday:     1,
		StartMinute: 9 * 60,
		EndMinute:   11 * 60,
		Timezone:    "UTC",
		Purpose:     model.PurposeGeneral,
		IsActive:    true,
	})

	windows, err := svc.GetBookableWindows(context.Background(), 10,
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows from rule expansion, got %d", len(windows))
	}
}

func TestGetBookableWindows_MaterializedSlotShadowsCandidate(t *testing.T) {
	svc, rules, slots, bookings := availabilityFixture(t)

	rules.Create(context.Background(), &model.AvailabilityRule{
		OwnerID:     10,
		Weekday:     1,
		StartMinute: 9 * 60,
		EndMinute:   11 * 60,
		Timezone:    "UTC",
		Purpose:     model.PurposeGeneral,
		IsActive:    true,
	})

	// The first Monday occurrence was materialized and half booked; the rule
	// candidate for that Monday must not reappear alongside it.
	ruleID := int64(1)
	slot := slots.add(&model.AvailabilitySlot{
		OwnerID: 10,
		RuleID:  &ruleID,
		Start:   time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC),
		Purpose: model.PurposeGeneral,
	})
	bookings.add(&model.Booking{
		SlotID:        slot.ID,
		HostID:        10,
		ParticipantID: 20,
		Kind:          model.BookingKindLesson,
		Start:         time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
		Status:        model.BookingStatusConfirmed,
	})

	windows, err := svc.GetBookableWindows(context.Background(), 10,
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected only the free remainder of the persisted slot, got %d windows", len(windows))
	}
	if !windows[0].Start.Equal(time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected window to start 10:00, got %v", windows[0].Start)
	}
}

func TestGetSlotsForEdit_FillsOriginal(t *testing.T) {
	svc, _, slots, _ := availabilityFixture(t)

	slots.add(&model.AvailabilitySlot{
		OwnerID: 10,
		Start:   time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC),
		Purpose: model.PurposeGeneral,
	})

	got, err := svc.GetSlotsForEdit(context.Background(), 10,
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(got))
	}
	if got[0].Original == nil || !got[0].Original.Start.Equal(got[0].Start) {
		t.Fatalf("expected original snapshot filled, got %+v", got[0].Original)
	}
	if got[0].EditState != model.SlotEditUnchanged {
		t.Fatalf("expected unchanged edit state, got %s", got[0].EditState)
	}
}

func TestGetBookableWindows_EmptyResultIsCached(t *testing.T) {
	svc, _, slots, bookings := availabilityFixture(t)

	// Fully booked owner: the computed window list is empty, and the second
	// query must be served from the cache rather than recomputed.
	slot := slots.add(&model.AvailabilitySlot{
		OwnerID: 10,
		Start:   time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC),
		Purpose: model.PurposeGeneral,
	})
	bookings.add(&model.Booking{
		SlotID:        slot.ID,
		HostID:        10,
		ParticipantID: 20,
		Kind:          model.BookingKindLesson,
		Start:         slot.Start,
		End:           slot.End,
		Status:        model.BookingStatusConfirmed,
	})

	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		windows, err := svc.GetBookableWindows(context.Background(), 10, from, to)
		if err != nil {
			t.Fatalf("query %d: %v", i+1, err)
		}
		if len(windows) != 0 {
			t.Fatalf("query %d: expected no windows, got %d", i+1, len(windows))
		}
	}
	if slots.ownerReads != 1 {
		t.Fatalf("expected the second query served from cache, got %d slot reads", slots.ownerReads)
	}
}
