package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"EchoFM/model"
)

// UserRepository defines user data operations. IsEntitled satisfies the
// playback core's entitlement boundary.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	IsEntitled(ctx context.Context, userID int64) (bool, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	DB *sql.DB
}

// NewMySQLUserRepository creates a new instance of mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{DB: db}
}

const userColumns = `id, username, email, password_hash, date_of_birth, phone, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.DateOfBirth, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new user.
func (r *mysqlUserRepository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, date_of_birth, phone, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := r.DB.ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash,
		user.DateOfBirth, user.Phone, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) if not found.
func (r *mysqlUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) if not found.
func (r *mysqlUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by username: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) if not found.
func (r *mysqlUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return u, nil
}

// IsEntitled reports whether the user holds an active subscription to a
// paid plan. The free tier never grants entitlement.
func (r *mysqlUserRepository) IsEntitled(ctx context.Context, userID int64) (bool, error) {
	var entitled bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM subscriptions s
			JOIN subscription_plans p ON p.id = s.plan_id
			WHERE s.user_id = ? AND s.status = 'active' AND p.price > 0
		)`, userID).Scan(&entitled)
	if err != nil {
		return false, fmt.Errorf("failed to query entitlement: %w", err)
	}
	return entitled, nil
}
