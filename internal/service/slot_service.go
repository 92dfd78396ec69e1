package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/repository"
	"github.com/tutorhub/scheduler/internal/schedule"
)

// SlotService owns the write path for availability rules and slots: rule
// creation with a timezone snapshot, and reconciliation of client slot edits
// into a validated, transactional write-set.
type SlotService struct {
	ruleRepo    RuleStore
	slotRepo    SlotStore
	bookingRepo BookingStore
	userRepo    UserStore
	cache       WindowCache
	logger      *zap.Logger
}

func NewSlotService(
	ruleRepo RuleStore,
	slotRepo SlotStore,
	bookingRepo BookingStore,
	userRepo UserStore,
	cache WindowCache,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		ruleRepo:    ruleRepo,
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		cache:       cache,
		logger:      logger,
	}
}

// RuleSpec describes one recurring window to create.
type RuleSpec struct {
	Weekday     int
	StartMinute int
	EndMinute   int
	ActiveFrom  *time.Time
	ActiveUntil *time.Time
	Purpose     model.RulePurpose
}

// CreateRules creates a batch of recurring rules under one group ID, stamping
// each with the owner's current timezone. The snapshot keeps already
// generated slots stable if the owner later moves timezone.
func (s *SlotService) CreateRules(ctx context.Context, ownerID int64, specs []RuleSpec) ([]*model.AvailabilityRule, error) {
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	if owner == nil {
		return nil, fmt.Errorf("owner not found")
	}
	if !owner.IsTutor {
		return nil, fmt.Errorf("user is not a tutor")
	}

	groupID := uuid.New()
	rules := make([]*model.AvailabilityRule, 0, len(specs))
	for _, spec := range specs {
		purpose := spec.Purpose
		if purpose == "" {
			purpose = model.PurposeGeneral
		}
		rule := &model.AvailabilityRule{
			GroupID:     groupID,
			OwnerID:     ownerID,
			Weekday:     spec.Weekday,
			StartMinute: spec.StartMinute,
			EndMinute:   spec.EndMinute,
			Timezone:    owner.Timezone,
			ActiveFrom:  spec.ActiveFrom,
			ActiveUntil: spec.ActiveUntil,
			Purpose:     purpose,
			IsActive:    true,
		}
		if !rule.Valid() {
			return nil, fmt.Errorf("%w: weekday %d, %d-%d", schedule.ErrInvalidRule, spec.Weekday, spec.StartMinute, spec.EndMinute)
		}
		if err := s.ruleRepo.Create(ctx, rule); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	s.cache.Flush(ctx, ownerID)

	s.logger.Info("Availability rules created",
		zap.String("group_id", groupID.String()),
		zap.Int64("owner_id", ownerID),
		zap.Int("count", len(rules)))

	return rules, nil
}

// DeactivateRule stops future expansion of a rule. Slots already booked
// against it are untouched.
func (s *SlotService) DeactivateRule(ctx context.Context, ruleID, ownerID int64) error {
	if err := s.ruleRepo.Deactivate(ctx, ruleID, ownerID); err != nil {
		return err
	}

	s.cache.Flush(ctx, ownerID)

	s.logger.Info("Availability rule deactivated",
		zap.Int64("rule_id", ruleID),
		zap.Int64("owner_id", ownerID))

	return nil
}

// ReconcileSlots diffs a client edit batch against the server slots in
// [from, to), validates the survivors against the owner's other commitments,
// and applies the write-set in one transaction. The applied write-set is
// returned so the client can resync IDs.
func (s *SlotService) ReconcileSlots(ctx context.Context, ownerID int64, from, to time.Time, clientSlots []*model.AvailabilitySlot) (schedule.WriteSet, error) {
	// Ownership is not client input.
	for _, cs := range clientSlots {
		cs.OwnerID = ownerID
		if cs.Purpose == "" {
			cs.Purpose = model.PurposeGeneral
		}
	}

	serverSlots, err := s.slotRepo.GetByOwner(ctx, ownerID, from, to)
	if err != nil {
		return schedule.WriteSet{}, fmt.Errorf("load slots: %w", err)
	}

	slotIDs := make([]int64, 0, len(serverSlots))
	for _, slot := range serverSlots {
		slotIDs = append(slotIDs, slot.ID)
	}
	bookingsBySlot, err := s.bookingRepo.GetBySlots(ctx, slotIDs)
	if err != nil {
		return schedule.WriteSet{}, fmt.Errorf("load bookings: %w", err)
	}

	ws, err := schedule.Reconcile(serverSlots, clientSlots, bookingsBySlot)
	if err != nil {
		return schedule.WriteSet{}, err
	}
	if ws.Empty() {
		return ws, nil
	}

	if err := s.validateWriteSet(ctx, ownerID, from, to, ws); err != nil {
		return schedule.WriteSet{}, err
	}

	if err := s.slotRepo.ApplyWriteSet(ctx, ws); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return schedule.WriteSet{}, fmt.Errorf("%w: slots edited concurrently", schedule.ErrConflict)
		}
		return schedule.WriteSet{}, err
	}

	s.cache.Flush(ctx, ownerID)

	s.logger.Info("Slots reconciled",
		zap.Int64("owner_id", ownerID),
		zap.Int("created", len(ws.ToCreate)),
		zap.Int("updated", len(ws.ToUpdate)),
		zap.Int("deleted", len(ws.ToDelete)))

	return ws, nil
}

// validateWriteSet runs the conflict validator for every create and update
// against the owner's slots that survive the batch, including slots outside
// the edit window.
func (s *SlotService) validateWriteSet(ctx context.Context, ownerID int64, from, to time.Time, ws schedule.WriteSet) error {
	span := writeSetSpan(ws, from, to)
	neighbors, err := s.slotRepo.GetByOwner(ctx, ownerID, span.Start, span.End)
	if err != nil {
		return fmt.Errorf("load neighbor slots: %w", err)
	}

	excluded := make(map[int64]bool, len(ws.ToDelete)+len(ws.ToUpdate))
	for _, id := range ws.ToDelete {
		excluded[id] = true
	}
	for _, slot := range ws.ToUpdate {
		excluded[slot.ID] = true
	}

	surviving := neighbors[:0]
	for _, slot := range neighbors {
		if !excluded[slot.ID] {
			surviving = append(surviving, slot)
		}
	}

	candidates := make([]*model.AvailabilitySlot, 0, len(ws.ToCreate)+len(ws.ToUpdate))
	candidates = append(candidates, ws.ToCreate...)
	candidates = append(candidates, ws.ToUpdate...)
	for _, candidate := range candidates {
		if err := schedule.ValidateSlot(candidate, surviving); err != nil {
			return err
		}
	}

	return nil
}

// writeSetSpan widens the edit window to cover every candidate range so the
// neighbor query cannot miss a slot a candidate could collide with.
func writeSetSpan(ws schedule.WriteSet, from, to time.Time) model.TimeRange {
	span := model.TimeRange{Start: from, End: to}
	all := append(append([]*model.AvailabilitySlot{}, ws.ToCreate...), ws.ToUpdate...)
	for _, slot := range all {
		if slot.Start.Before(span.Start) {
			span.Start = slot.Start
		}
		if slot.End.After(span.End) {
			span.End = slot.End
		}
	}
	return span
}
