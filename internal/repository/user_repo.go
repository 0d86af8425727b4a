package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(u *models.User) error {
	result, err := r.db.Exec(
		"INSERT INTO users (company_id, email, full_name) VALUES (?, ?, ?)",
		u.CompanyID, u.Email, u.FullName,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	u.ID = id
	return nil
}

// GetByID retrieves a user by ID. Returns (nil, nil) when no user
// exists.
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	var u models.User
	var updatedAt sql.NullTime

	err := r.db.QueryRow(
		"SELECT id, company_id, email, full_name, created_at, updated_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.CompanyID, &u.Email, &u.FullName, &u.CreatedAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}

	return &u, nil
}
