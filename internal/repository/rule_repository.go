package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/repository/base"
)

// RuleRepository manages recurring availability rules.
type RuleRepository struct {
	*base.Repository
}

func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{Repository: base.NewRepository(pool)}
}

const ruleColumns = `id, group_id, owner_id, weekday, start_minute, end_minute, timezone,
	active_from, active_until, purpose, is_active, created_at, updated_at`

func (r *RuleRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	query := `
		INSERT INTO availability_rules
			(group_id, owner_id, weekday, start_minute, end_minute, timezone, active_from, active_until, purpose, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		rule.GroupID,
		rule.OwnerID,
		rule.Weekday,
		rule.StartMinute,
		rule.EndMinute,
		rule.Timezone,
		rule.ActiveFrom,
		rule.ActiveUntil,
		rule.Purpose,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE id = $1`

	rule := &model.AvailabilityRule{}
	err := r.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.GroupID,
		&rule.OwnerID,
		&rule.Weekday,
		&rule.StartMinute,
		&rule.EndMinute,
		&rule.Timezone,
		&rule.ActiveFrom,
		&rule.ActiveUntil,
		&rule.Purpose,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule by id: %w", err)
	}

	return rule, nil
}

// GetActiveByOwner returns the owner's active rules ordered by weekday and
// start time.
func (r *RuleRepository) GetActiveByOwner(ctx context.Context, ownerID int64) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM availability_rules
		WHERE owner_id = $1 AND is_active = true
		ORDER BY weekday, start_minute, id
	`

	rows, err := r.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get rules by owner: %w", err)
	}
	defer rows.Close()

	var rules []*model.AvailabilityRule
	for rows.Next() {
		rule := &model.AvailabilityRule{}
		err := rows.Scan(
			&rule.ID,
			&rule.GroupID,
			&rule.OwnerID,
			&rule.Weekday,
			&rule.StartMinute,
			&rule.EndMinute,
			&rule.Timezone,
			&rule.ActiveFrom,
			&rule.ActiveUntil,
			&rule.Purpose,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *model.AvailabilityRule) error {
	query := `
		UPDATE availability_rules
		SET weekday = $1, start_minute = $2, end_minute = $3, active_from = $4,
			active_until = $5, purpose = $6, is_active = $7, updated_at = now()
		WHERE id = $8
	`

	affected, err := r.ExecAffected(
		ctx, query,
		rule.Weekday,
		rule.StartMinute,
		rule.EndMinute,
		rule.ActiveFrom,
		rule.ActiveUntil,
		rule.Purpose,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

// Deactivate marks a rule inactive. Slots already generated and booked from
// it keep existing; deactivation only stops future expansion.
func (r *RuleRepository) Deactivate(ctx context.Context, id, ownerID int64) error {
	query := `
		UPDATE availability_rules
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND owner_id = $2
	`

	affected, err := r.ExecAffected(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}
