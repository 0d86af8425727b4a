package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

// PolicyRepository handles policy database operations
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) *PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

const policyColumns = `id, company_id, name, description, category, rule_type,
	rule_value, policy_type, created_at, updated_at`

// Create inserts a new policy
func (r *PolicyRepository) Create(p *models.Policy) error {
	query := `
		INSERT INTO policies (
			company_id, name, description, category, rule_type, rule_value, policy_type
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		p.CompanyID,
		p.Name,
		p.Description,
		p.Category,
		p.RuleType,
		string(p.RuleValue),
		p.PolicyType,
	)
	if err != nil {
		r.logger.Error("Failed to create policy", zap.Error(err))
		return fmt.Errorf("failed to create policy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a policy by ID. Returns (nil, nil) when no policy
// exists.
func (r *PolicyRepository) GetByID(id int64) (*models.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM policies WHERE id = ?", policyColumns)

	p, err := r.scanPolicy(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get policy", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return p, nil
}

// ListActive returns all of a company's policies in insertion order.
// Ordering is significant: the evaluation engine processes policies
// exactly as returned here.
func (r *PolicyRepository) ListActive(companyID int64) ([]*models.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM policies WHERE company_id = ? ORDER BY id", policyColumns)
	return r.queryPolicies(query, companyID)
}

// List retrieves policies with pagination
func (r *PolicyRepository) List(limit, offset int) ([]*models.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM policies ORDER BY id LIMIT ? OFFSET ?", policyColumns)
	return r.queryPolicies(query, limit, offset)
}

// Update applies a partial update field by field. Returns (nil, nil)
// when the policy does not exist.
func (r *PolicyRepository) Update(id int64, update models.PolicyUpdate) (*models.Policy, error) {
	var sets []string
	var args []interface{}

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.RuleType != nil {
		sets = append(sets, "rule_type = ?")
		args = append(args, *update.RuleType)
	}
	if update.RuleValue != nil {
		sets = append(sets, "rule_value = ?")
		args = append(args, string(update.RuleValue))
	}
	if update.PolicyType != nil {
		sets = append(sets, "policy_type = ?")
		args = append(args, *update.PolicyType)
	}

	if len(sets) == 0 {
		return r.GetByID(id)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	query := fmt.Sprintf("UPDATE policies SET %s WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.Error("Failed to update policy", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update policy: %w", err)
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

// Delete removes a policy. Returns false when no policy exists.
func (r *PolicyRepository) Delete(id int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM policies WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete policy", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete policy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PolicyRepository) scanPolicy(row rowScanner) (*models.Policy, error) {
	var p models.Policy
	var description sql.NullString
	var ruleValue string
	var updatedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.CompanyID,
		&p.Name,
		&description,
		&p.Category,
		&p.RuleType,
		&ruleValue,
		&p.PolicyType,
		&p.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		p.Description = description.String
	}
	p.RuleValue = []byte(ruleValue)
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}

	return &p, nil
}

func (r *PolicyRepository) queryPolicies(query string, args ...interface{}) ([]*models.Policy, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to query policies", zap.Error(err))
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		p, err := r.scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}

	return policies, rows.Err()
}
