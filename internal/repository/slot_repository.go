package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/repository/base"
	"github.com/tutorhub/scheduler/internal/schedule"
)

// ErrVersionMismatch is returned when an optimistic version check loses a
// concurrent race. Callers re-read and retry once, then surface a conflict.
var ErrVersionMismatch = errors.New("slot version mismatch")

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

const slotColumns = `id, owner_id, rule_id, start_time, end_time, purpose, version, created_at`

func scanSlot(row pgx.Row) (*model.AvailabilitySlot, error) {
	slot := &model.AvailabilitySlot{}
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.RuleID,
		&slot.Start,
		&slot.End,
		&slot.Purpose,
		&slot.Version,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (r *SlotRepository) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (owner_id, rule_id, start_time, end_time, purpose, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING id, version, created_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.OwnerID,
		slot.RuleID,
		slot.Start,
		slot.End,
		slot.Purpose,
	).Scan(&slot.ID, &slot.Version, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByOwner returns the owner's persisted slots intersecting [from, to),
// ordered by start time.
func (r *SlotRepository) GetByOwner(ctx context.Context, ownerID int64, from, to time.Time) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE owner_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get slots by owner: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// Update rewrites the slot's times under an optimistic version check. The
// version column is the serializing guard shared with booking commits.
func (r *SlotRepository) Update(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		UPDATE availability_slots
		SET start_time = $1, end_time = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	err := r.QueryRow(ctx, query, slot.Start, slot.End, slot.ID, slot.Version).Scan(&slot.Version)
	if base.IsNotFound(err) {
		return fmt.Errorf("update slot %d: %w", slot.ID, ErrVersionMismatch)
	}
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("slot not found")
	}

	return nil
}

// ApplyWriteSet applies a reconciliation write-set in one transaction.
// Creates fill in IDs on the passed slots. A version mismatch on any update
// aborts the whole batch.
func (r *SlotRepository) ApplyWriteSet(ctx context.Context, ws schedule.WriteSet) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, slot := range ws.ToCreate {
		err := tx.QueryRow(
			ctx,
			`INSERT INTO availability_slots (owner_id, rule_id, start_time, end_time, purpose, version)
			 VALUES ($1, $2, $3, $4, $5, 1)
			 RETURNING id, version, created_at`,
			slot.OwnerID, slot.RuleID, slot.Start, slot.End, slot.Purpose,
		).Scan(&slot.ID, &slot.Version, &slot.CreatedAt)
		if err != nil {
			return fmt.Errorf("create slot: %w", err)
		}
	}

	for _, slot := range ws.ToUpdate {
		tag, err := tx.Exec(
			ctx,
			`UPDATE availability_slots
			 SET start_time = $1, end_time = $2, version = version + 1
			 WHERE id = $3 AND version = $4`,
			slot.Start, slot.End, slot.ID, slot.Version,
		)
		if err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("slot %d: %w", slot.ID, ErrVersionMismatch)
		}
	}

	for _, id := range ws.ToDelete {
		if _, err := tx.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete slot %d: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
