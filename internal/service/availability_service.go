package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/schedule"
)

// AvailabilityService answers "when can this tutor be booked" queries: rules
// are expanded into candidate slots, persisted slots have their bookings
// subtracted, and the resulting windows are cached per owner.
type AvailabilityService struct {
	ruleRepo    RuleStore
	slotRepo    SlotStore
	bookingRepo BookingStore
	cache       WindowCache
	logger      *zap.Logger
}

func NewAvailabilityService(
	ruleRepo RuleStore,
	slotRepo SlotStore,
	bookingRepo BookingStore,
	cache WindowCache,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		ruleRepo:    ruleRepo,
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		cache:       cache,
		logger:      logger,
	}
}

// GetBookableWindows computes the owner's free windows in [from, to).
// Persisted slots contribute their un-booked sub-ranges; rule occurrences
// that have not been materialized as persisted slots contribute whole
// windows. Each window carries the slot or rule it can be booked through.
func (s *AvailabilityService) GetBookableWindows(ctx context.Context, ownerID int64, from, to time.Time) ([]model.BookableWindow, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: window end not after start", schedule.ErrInvalidRule)
	}

	if cached, ok := s.cache.Get(ctx, ownerID, from, to); ok {
		return cached, nil
	}

	persisted, err := s.slotRepo.GetByOwner(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	slotIDs := make([]int64, 0, len(persisted))
	for _, slot := range persisted {
		slotIDs = append(slotIDs, slot.ID)
	}
	bookingsBySlot, err := s.bookingRepo.GetBySlots(ctx, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	var windows []model.BookableWindow
	for _, slot := range persisted {
		free, err := schedule.AvailableWindows(slot, bookingsBySlot[slot.ID])
		if err != nil {
			return nil, err
		}
		for _, w := range free {
			windows = append(windows, model.BookableWindow{TimeRange: w, SlotID: slot.ID, RuleID: slot.RuleID})
		}
	}

	rules, err := s.ruleRepo.GetActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	candidates, err := schedule.ExpandAll(rules, from, to)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if overlapsAnySlot(c, persisted) {
			// Already materialized (or superseded) by a persisted slot.
			continue
		}
		windows = append(windows, model.BookableWindow{TimeRange: c.Range(), RuleID: c.RuleID})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].Start.Before(windows[j].Start) })

	s.cache.Set(ctx, ownerID, from, to, windows)

	s.logger.Debug("bookable windows computed",
		zap.Int64("owner_id", ownerID),
		zap.Int("persisted_slots", len(persisted)),
		zap.Int("rule_candidates", len(candidates)),
		zap.Int("windows", len(windows)))

	return windows, nil
}

// GetSlotsForEdit returns the owner's persisted slots with the Original
// snapshot filled in, ready to be handed to a client for an edit session.
func (s *AvailabilityService) GetSlotsForEdit(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.AvailabilitySlot, error) {
	slots, err := s.slotRepo.GetByOwner(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	for _, slot := range slots {
		slot.EditState = model.SlotEditUnchanged
		slot.Original = &model.TimeRange{Start: slot.Start, End: slot.End}
	}

	return slots, nil
}

func overlapsAnySlot(candidate *model.AvailabilitySlot, slots []*model.AvailabilitySlot) bool {
	for _, s := range slots {
		if candidate.Range().Overlaps(s.Range()) {
			return true
		}
	}
	return false
}
