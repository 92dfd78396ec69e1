package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/notify"
	"github.com/tutorhub/scheduler/internal/repository"
	"github.com/tutorhub/scheduler/internal/schedule"
)

// BookingService owns the booking lifecycle: propose+commit under the slot
// version guard, confirm, and idempotent cancel. Bookings against a rule
// occurrence that has no persisted slot yet materialize one first.
type BookingService struct {
	ruleRepo    RuleStore
	slotRepo    SlotStore
	bookingRepo BookingStore
	userRepo    UserStore
	cache       WindowCache
	notifier    notify.Notifier
	clock       Clock
	minDuration time.Duration
	pendingTTL  time.Duration
	logger      *zap.Logger
}

func NewBookingService(
	ruleRepo RuleStore,
	slotRepo SlotStore,
	bookingRepo BookingStore,
	userRepo UserStore,
	cache WindowCache,
	notifier notify.Notifier,
	clock Clock,
	minDuration time.Duration,
	pendingTTL time.Duration,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		ruleRepo:    ruleRepo,
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		cache:       cache,
		notifier:    notifier,
		clock:       clock,
		minDuration: minDuration,
		pendingTTL:  pendingTTL,
		logger:      logger,
	}
}

// Book validates a requested sub-range and commits a pending booking. The
// read-availability / propose / persist sequence runs under an optimistic
// version check on the slot; a lost race is retried once from the re-read
// step, then surfaced as a conflict.
func (s *BookingService) Book(ctx context.Context, slotID, participantID int64, kind model.BookingKind, start, end time.Time) (*model.Booking, error) {
	if start.Before(s.clock.Now()) {
		return nil, fmt.Errorf("%w: booking starts in the past", schedule.ErrOutOfBounds)
	}

	booking, err := s.tryBook(ctx, slotID, participantID, kind, start, end)
	if errors.Is(err, repository.ErrVersionMismatch) {
		s.logger.Info("Booking commit lost a race, retrying",
			zap.Int64("slot_id", slotID),
			zap.Int64("participant_id", participantID))
		booking, err = s.tryBook(ctx, slotID, participantID, kind, start, end)
		if errors.Is(err, repository.ErrVersionMismatch) {
			return nil, fmt.Errorf("%w: concurrent booking on slot %d", schedule.ErrConflict, slotID)
		}
	}
	if err != nil {
		return nil, err
	}

	s.cache.Flush(ctx, booking.HostID)

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", slotID),
		zap.Int64("participant_id", participantID),
		zap.String("kind", string(kind)))

	return booking, nil
}

// BookOccurrence books a sub-range of a rule occurrence that has no persisted
// slot yet. The occurrence is expanded from the rule, validated against the
// owner's persisted slots, and materialized as a slot row; the booking then
// commits against it under the usual version guard. If a racing booking
// already materialized the occurrence, its slot is reused.
func (s *BookingService) BookOccurrence(ctx context.Context, ruleID, participantID int64, kind model.BookingKind, start, end time.Time) (*model.Booking, error) {
	if start.Before(s.clock.Now()) {
		return nil, fmt.Errorf("%w: booking starts in the past", schedule.ErrOutOfBounds)
	}

	slot, err := s.materializeOccurrence(ctx, ruleID, start, end)
	if err != nil {
		return nil, err
	}

	return s.Book(ctx, slot.ID, participantID, kind, start, end)
}

// materializeOccurrence turns the rule occurrence covering [start, end) into
// a persisted slot, or returns the already persisted slot that covers the
// range. The database exclusion constraint on owner slots backstops two
// racing materializations of the same occurrence.
func (s *BookingService) materializeOccurrence(ctx context.Context, ruleID int64, start, end time.Time) (*model.AvailabilitySlot, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	if rule == nil || !rule.IsActive {
		return nil, fmt.Errorf("rule not found")
	}

	// An occurrence spans less than a day, so one covering start must itself
	// start within the preceding 24 hours.
	candidates, err := schedule.Expand(rule, start.Add(-24*time.Hour), end)
	if err != nil {
		return nil, err
	}
	var occurrence *model.AvailabilitySlot
	for _, c := range candidates {
		if !start.Before(c.Start) && !end.After(c.End) {
			occurrence = c
			break
		}
	}
	if occurrence == nil {
		return nil, fmt.Errorf("%w: rule %d has no occurrence covering [%s, %s)",
			schedule.ErrOutOfBounds, ruleID,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	neighbors, err := s.slotRepo.GetByOwner(ctx, rule.OwnerID, occurrence.Start, occurrence.End)
	if err != nil {
		return nil, fmt.Errorf("load neighbor slots: %w", err)
	}
	for _, n := range neighbors {
		if !start.Before(n.Start) && !end.After(n.End) {
			return n, nil
		}
	}
	if err := schedule.ValidateSlot(occurrence, neighbors); err != nil {
		return nil, err
	}

	if err := s.slotRepo.Create(ctx, occurrence); err != nil {
		return nil, fmt.Errorf("materialize slot: %w", err)
	}

	s.logger.Info("Rule occurrence materialized",
		zap.Int64("rule_id", ruleID),
		zap.Int64("slot_id", occurrence.ID),
		zap.Time("start", occurrence.Start))

	return occurrence, nil
}

func (s *BookingService) tryBook(ctx context.Context, slotID, participantID int64, kind model.BookingKind, start, end time.Time) (*model.Booking, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, fmt.Errorf("slot not found")
	}

	bookings, err := s.bookingRepo.GetBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot bookings: %w", err)
	}

	booking, err := schedule.ProposeBooking(slot, bookings, participantID, kind, start, end, s.minDuration)
	if err != nil {
		return nil, err
	}

	hostCommitments, err := s.bookingRepo.GetConfirmedByUser(ctx, booking.HostID)
	if err != nil {
		return nil, fmt.Errorf("get host commitments: %w", err)
	}
	participantCommitments, err := s.bookingRepo.GetConfirmedByUser(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("get participant commitments: %w", err)
	}
	if err := schedule.ValidateBooking(booking, hostCommitments, participantCommitments); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.CommitBooking(ctx, booking, slot.Version); err != nil {
		return nil, err
	}

	booking.Slot = slot
	return booking, nil
}

// Confirm transitions a pending booking to confirmed after re-validating
// both parties' commitments, and notifies them.
func (s *BookingService) Confirm(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking not found")
	}
	if booking.Status == model.BookingStatusConfirmed {
		return booking, nil
	}
	if booking.Status != model.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking %d is %s", schedule.ErrConflict, bookingID, booking.Status)
	}

	hostCommitments, err := s.bookingRepo.GetConfirmedByUser(ctx, booking.HostID)
	if err != nil {
		return nil, fmt.Errorf("get host commitments: %w", err)
	}
	participantCommitments, err := s.bookingRepo.GetConfirmedByUser(ctx, booking.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("get participant commitments: %w", err)
	}
	if err := schedule.ValidateBooking(booking, hostCommitments, participantCommitments); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, model.BookingStatusConfirmed); err != nil {
		return nil, err
	}
	booking.Status = model.BookingStatusConfirmed

	s.cache.Flush(ctx, booking.HostID)
	s.notifyParties(ctx, booking, true)

	s.logger.Info("Booking confirmed", zap.Int64("booking_id", bookingID))

	return booking, nil
}

// Cancel is idempotent: canceling an already-canceled booking is a no-op.
// Either party may cancel; confirmed-to-canceled is never reversed.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("booking not found")
	}

	if booking.HostID != userID && booking.ParticipantID != userID {
		return fmt.Errorf("no permission to cancel this booking")
	}

	if booking.Status == model.BookingStatusCanceled {
		return nil
	}

	wasConfirmed := booking.Status == model.BookingStatusConfirmed
	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, model.BookingStatusCanceled); err != nil {
		return err
	}
	booking.Status = model.BookingStatusCanceled

	s.cache.Flush(ctx, booking.HostID)
	if wasConfirmed {
		s.notifyParties(ctx, booking, false)
	}

	s.logger.Info("Booking canceled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("user_id", userID))

	return nil
}

// GetByParticipant lists a student's bookings in every status.
func (s *BookingService) GetByParticipant(ctx context.Context, participantID int64) ([]*model.Booking, error) {
	return s.bookingRepo.GetByParticipant(ctx, participantID)
}

// GetByHost lists a tutor's bookings in every status.
func (s *BookingService) GetByHost(ctx context.Context, hostID int64) ([]*model.Booking, error) {
	return s.bookingRepo.GetByHost(ctx, hostID)
}

// ExpireStalePending cancels pending bookings older than the configured TTL
// and flushes the availability caches of the affected owners. Run
// periodically by the maintenance scheduler.
func (s *BookingService) ExpireStalePending(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.pendingTTL)

	slotIDs, err := s.bookingRepo.ExpirePending(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(slotIDs) == 0 {
		return nil
	}

	flushed := make(map[int64]bool)
	for _, slotID := range slotIDs {
		slot, err := s.slotRepo.GetByID(ctx, slotID)
		if err != nil || slot == nil {
			continue
		}
		if !flushed[slot.OwnerID] {
			s.cache.Flush(ctx, slot.OwnerID)
			flushed[slot.OwnerID] = true
		}
	}

	s.logger.Info("Stale pending bookings expired",
		zap.Int("count", len(slotIDs)),
		zap.Time("cutoff", cutoff))

	return nil
}

// notifyParties dispatches fire-and-forget notifications; failures never
// roll back the booking.
func (s *BookingService) notifyParties(ctx context.Context, booking *model.Booking, confirmed bool) {
	host, err := s.userRepo.GetByID(ctx, booking.HostID)
	if err != nil {
		s.logger.Warn("Failed to load host for notification", zap.Error(err))
	}
	participant, err := s.userRepo.GetByID(ctx, booking.ParticipantID)
	if err != nil {
		s.logger.Warn("Failed to load participant for notification", zap.Error(err))
	}

	if confirmed {
		s.notifier.BookingConfirmed(ctx, booking, host, participant)
	} else {
		s.notifier.BookingCanceled(ctx, booking, host, participant)
	}
}
