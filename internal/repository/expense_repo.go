package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

// ExpenseRepository handles expense database operations
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `id, company_id, user_id, merchant, amount, date, description,
	category, is_flagged, flag_reason, is_approved, created_at, updated_at`

// Create inserts a new expense record. A nil tx executes against the
// connection pool directly.
func (r *ExpenseRepository) Create(tx *sql.Tx, expense *models.Expense) error {
	query := `
		INSERT INTO expenses (
			company_id, user_id, merchant, amount, date, description,
			category, is_flagged, flag_reason, is_approved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		expense.CompanyID,
		expense.UserID,
		expense.Merchant,
		expense.Amount,
		expense.Date,
		expense.Description,
		expense.Category,
		expense.IsFlagged,
		expense.FlagReason,
		expense.IsApproved,
	}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by ID. Returns (nil, nil) when no
// expense exists.
func (r *ExpenseRepository) GetByID(id int64) (*models.Expense, error) {
	query := fmt.Sprintf("SELECT %s FROM expenses WHERE id = ?", expenseColumns)

	expense, err := r.scanExpense(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// List retrieves expenses with pagination
func (r *ExpenseRepository) List(limit, offset int) ([]*models.Expense, error) {
	query := fmt.Sprintf("SELECT %s FROM expenses ORDER BY id LIMIT ? OFFSET ?", expenseColumns)
	return r.queryExpenses(query, limit, offset)
}

// ListByUser retrieves a user's expenses with pagination
func (r *ExpenseRepository) ListByUser(userID int64, limit, offset int) ([]*models.Expense, error) {
	query := fmt.Sprintf("SELECT %s FROM expenses WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?", expenseColumns)
	return r.queryExpenses(query, userID, limit, offset)
}

// ListFlagged retrieves flagged expenses, optionally filtered by user
func (r *ExpenseRepository) ListFlagged(userID *int64, limit, offset int) ([]*models.Expense, error) {
	if userID != nil {
		query := fmt.Sprintf("SELECT %s FROM expenses WHERE is_flagged = 1 AND user_id = ? ORDER BY id LIMIT ? OFFSET ?", expenseColumns)
		return r.queryExpenses(query, *userID, limit, offset)
	}
	query := fmt.Sprintf("SELECT %s FROM expenses WHERE is_flagged = 1 ORDER BY id LIMIT ? OFFSET ?", expenseColumns)
	return r.queryExpenses(query, limit, offset)
}

// Update applies a partial update field by field. Nil fields are left
// untouched. Returns (nil, nil) when the expense does not exist.
// Updates do not re-run policy evaluation.
func (r *ExpenseRepository) Update(id int64, update models.ExpenseUpdate) (*models.Expense, error) {
	var sets []string
	var args []interface{}

	if update.Merchant != nil {
		sets = append(sets, "merchant = ?")
		args = append(args, *update.Merchant)
	}
	if update.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *update.Amount)
	}
	if update.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *update.Date)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.IsApproved != nil {
		sets = append(sets, "is_approved = ?")
		args = append(args, *update.IsApproved)
	}

	if len(sets) == 0 {
		return r.GetByID(id)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	query := fmt.Sprintf("UPDATE expenses SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(id)
}

// BulkUpdate applies the same partial update to multiple expenses.
// Unknown IDs are skipped.
func (r *ExpenseRepository) BulkUpdate(ids []int64, update models.ExpenseUpdate) ([]*models.Expense, error) {
	updated := make([]*models.Expense, 0, len(ids))
	for _, id := range ids {
		expense, err := r.Update(id, update)
		if err != nil {
			return nil, err
		}
		if expense != nil {
			updated = append(updated, expense)
		}
	}
	return updated, nil
}

// Delete removes an expense. Returns false when no expense exists.
func (r *ExpenseRepository) Delete(id int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete expense", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ExpenseRepository) scanExpense(row rowScanner) (*models.Expense, error) {
	var expense models.Expense
	var flagReason sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&expense.ID,
		&expense.CompanyID,
		&expense.UserID,
		&expense.Merchant,
		&expense.Amount,
		&expense.Date,
		&expense.Description,
		&expense.Category,
		&expense.IsFlagged,
		&flagReason,
		&expense.IsApproved,
		&expense.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if flagReason.Valid {
		expense.FlagReason = &flagReason.String
	}
	if updatedAt.Valid {
		expense.UpdatedAt = &updatedAt.Time
	}

	return &expense, nil
}

func (r *ExpenseRepository) queryExpenses(query string, args ...interface{}) ([]*models.Expense, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to query expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := r.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}
