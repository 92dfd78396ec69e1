package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/repository/base"
)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

const bookingColumns = `id, slot_id, host_id, participant_id, kind, start_time, end_time, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	b := &model.Booking{}
	err := row.Scan(
		&b.ID,
		&b.SlotID,
		&b.HostID,
		&b.ParticipantID,
		&b.Kind,
		&b.Start,
		&b.End,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BookingRepository) scanAll(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// CreateTx inserts a booking inside the caller's transaction so the insert
// and the slot version bump commit atomically.
func (r *BookingRepository) CreateTx(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	query := `
		INSERT INTO bookings (slot_id, host_id, participant_id, kind, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(
		ctx, query,
		b.SlotID,
		b.HostID,
		b.ParticipantID,
		b.Kind,
		b.Start,
		b.End,
		b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// CommitBooking atomically inserts the booking and advances the slot version
// iff it still matches slotVersion. This is the serializing guard around the
// read-availability / propose / persist sequence: of two racing bookings
// computed against the same slot version, exactly one commits; the loser gets
// ErrVersionMismatch and must re-read.
func (r *BookingRepository) CommitBooking(ctx context.Context, b *model.Booking, slotVersion int64) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(
		ctx,
		`UPDATE availability_slots SET version = version + 1 WHERE id = $1 AND version = $2`,
		b.SlotID, slotVersion,
	)
	if err != nil {
		return fmt.Errorf("bump slot version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %d: %w", b.SlotID, ErrVersionMismatch)
	}

	if err := r.CreateTx(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return b, nil
}

// GetBySlot returns every booking attached to the slot, canceled included;
// callers filter by status where it matters.
func (r *BookingRepository) GetBySlot(ctx context.Context, slotID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE slot_id = $1 ORDER BY start_time, id`

	rows, err := r.Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by slot: %w", err)
	}

	return r.scanAll(rows)
}

// GetBySlots returns bookings for a set of slots keyed by slot ID.
func (r *BookingRepository) GetBySlots(ctx context.Context, slotIDs []int64) (map[int64][]*model.Booking, error) {
	if len(slotIDs) == 0 {
		return map[int64][]*model.Booking{}, nil
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE slot_id = ANY($1) ORDER BY start_time, id`

	rows, err := r.Query(ctx, query, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("get bookings by slots: %w", err)
	}

	bookings, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}

	bySlot := make(map[int64][]*model.Booking, len(slotIDs))
	for _, b := range bookings {
		bySlot[b.SlotID] = append(bySlot[b.SlotID], b)
	}
	return bySlot, nil
}

// GetConfirmedByUser returns confirmed bookings where the user is either
// host or participant, for conflict validation across both roles.
func (r *BookingRepository) GetConfirmedByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE (host_id = $1 OR participant_id = $1) AND status = 'confirmed'
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get confirmed bookings by user: %w", err)
	}

	return r.scanAll(rows)
}

func (r *BookingRepository) GetByParticipant(ctx context.Context, participantID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE participant_id = $1 ORDER BY start_time, id`

	rows, err := r.Query(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by participant: %w", err)
	}

	return r.scanAll(rows)
}

func (r *BookingRepository) GetByHost(ctx context.Context, hostID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE host_id = $1 ORDER BY start_time, id`

	rows, err := r.Query(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by host: %w", err)
	}

	return r.scanAll(rows)
}

// UpdateStatus moves a booking to the given status. Canceled is terminal:
// the guard keeps a concurrent confirm from resurrecting a canceled booking.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status != 'canceled'
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if affected == 0 {
		// A cancel that lost a race to another cancel already holds the
		// target state; cancellation stays an idempotent no-op.
		if status == model.BookingStatusCanceled {
			return nil
		}
		return fmt.Errorf("booking not found or already canceled")
	}

	return nil
}

// ExpirePending cancels pending bookings created before the cutoff and
// returns the affected slot IDs so their availability caches can be flushed.
func (r *BookingRepository) ExpirePending(ctx context.Context, cutoff time.Time) ([]int64, error) {
	query := `
		UPDATE bookings
		SET status = 'canceled', updated_at = now()
		WHERE status = 'pending' AND created_at < $1
		RETURNING slot_id
	`

	rows, err := r.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expire pending bookings: %w", err)
	}
	defer rows.Close()

	var slotIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired booking: %w", err)
		}
		slotIDs = append(slotIDs, id)
	}

	return slotIDs, nil
}
