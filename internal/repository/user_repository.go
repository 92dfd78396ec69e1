package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/scheduler/internal/model"
	"github.com/tutorhub/scheduler/internal/repository/base"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, name, timezone, is_tutor)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Name,
		user.Timezone,
		user.IsTutor,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, telegram_id, name, timezone, is_tutor, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Name,
		&user.Timezone,
		&user.IsTutor,
		&user.CreatedAt,
	)

	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// UpdateTimezone changes the user's profile timezone. Existing rules keep
// their own timezone snapshot; only rules created afterwards pick this up.
func (r *UserRepository) UpdateTimezone(ctx context.Context, id int64, timezone string) error {
	affected, err := r.ExecAffected(
		ctx,
		`UPDATE users SET timezone = $1 WHERE id = $2`,
		timezone, id,
	)
	if err != nil {
		return fmt.Errorf("update user timezone: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
