package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

// CompanyRepository handles company database operations
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) *CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new company
func (r *CompanyRepository) Create(c *models.Company) error {
	result, err := r.db.Exec(
		"INSERT INTO companies (name, address) VALUES (?, ?)",
		c.Name, c.Address,
	)
	if err != nil {
		r.logger.Error("Failed to create company", zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	return nil
}

// GetByID retrieves a company by ID. Returns (nil, nil) when no company
// exists.
func (r *CompanyRepository) GetByID(id int64) (*models.Company, error) {
	var c models.Company
	var address sql.NullString
	var updatedAt sql.NullTime

	err := r.db.QueryRow(
		"SELECT id, name, address, created_at, updated_at FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &address, &c.CreatedAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	if address.Valid {
		c.Address = address.String
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}

	return &c, nil
}

// List retrieves companies with pagination
func (r *CompanyRepository) List(limit, offset int) ([]*models.Company, error) {
	rows, err := r.db.Query(
		"SELECT id, name, address, created_at, updated_at FROM companies ORDER BY id LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		r.logger.Error("Failed to query companies", zap.Error(err))
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		var c models.Company
		var address sql.NullString
		var updatedAt sql.NullTime

		if err := rows.Scan(&c.ID, &c.Name, &address, &c.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		if address.Valid {
			c.Address = address.String
		}
		if updatedAt.Valid {
			c.UpdatedAt = &updatedAt.Time
		}
		companies = append(companies, &c)
	}

	return companies, rows.Err()
}
