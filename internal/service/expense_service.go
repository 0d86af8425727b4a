// Package service orchestrates the expense intake sequence shared by
// single submission and batch upload: categorize when no category is
// supplied, evaluate against the company's policy snapshot, then
// persist the record with its derived fields.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/ingest"
	"github.com/expenseguard/expenseguard/internal/models"
	"github.com/expenseguard/expenseguard/internal/policy"
	"github.com/expenseguard/expenseguard/internal/repository"
	"github.com/expenseguard/expenseguard/pkg/database"
	"github.com/expenseguard/expenseguard/pkg/utils"
)

// ErrUnsupportedFormat is returned for upload files that are neither
// CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

// ErrUserNotFound is returned when an upload or submission references
// an unknown user.
var ErrUserNotFound = errors.New("user not found")

// ExpenseService implements expense creation and batch upload.
type ExpenseService struct {
	db          *database.DB
	expenses    *repository.ExpenseRepository
	policies    *repository.PolicyRepository
	users       *repository.UserRepository
	categorizer ingest.Categorizer
	logger      *zap.Logger
}

// NewExpenseService creates an expense service.
func NewExpenseService(
	db *database.DB,
	expenses *repository.ExpenseRepository,
	policies *repository.PolicyRepository,
	users *repository.UserRepository,
	categorizer ingest.Categorizer,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		db:          db,
		expenses:    expenses,
		policies:    policies,
		users:       users,
		categorizer: categorizer,
		logger:      logger,
	}
}

// CreateInput carries a single expense submission. Category is optional;
// when absent the categorizer resolves it.
type CreateInput struct {
	CompanyID   int64
	UserID      int64
	Merchant    string
	Amount      float64
	Date        time.Time
	Description string
	Category    models.Category
}

// Create categorizes (if needed), evaluates, and persists one expense.
// Categorization never blocks creation; a malformed policy rule is
// surfaced as a *policy.MalformedRuleError.
func (s *ExpenseService) Create(ctx context.Context, input CreateInput) (*models.Expense, error) {
	if err := utils.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	// Policy snapshot is fetched once and never re-read mid-evaluation.
	policies, err := s.policies.ListActive(input.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	expense := &models.Expense{
		CompanyID:   input.CompanyID,
		UserID:      input.UserID,
		Merchant:    utils.SanitizeString(input.Merchant),
		Amount:      input.Amount,
		Date:        input.Date,
		Description: utils.SanitizeString(input.Description),
		Category:    input.Category,
	}

	if expense.Category == "" {
		expense.Category = s.categorizer.Categorize(ctx, expense.Merchant, expense.Amount, expense.Description)
	}

	outcome, err := policy.Evaluate(expense, policies)
	if err != nil {
		return nil, err
	}
	policy.ApplyApprovalDefault(&outcome)

	expense.IsFlagged = outcome.IsFlagged
	expense.FlagReason = outcome.FlagReason
	expense.IsApproved = *outcome.IsApproved

	if err := s.expenses.Create(nil, expense); err != nil {
		return nil, err
	}

	s.logger.Info("Expense created",
		zap.Int64("id", expense.ID),
		zap.String("category", string(expense.Category)),
		zap.Bool("is_flagged", expense.IsFlagged),
		zap.Bool("is_approved", expense.IsApproved))

	return expense, nil
}

// Upload ingests a tabular expense file for a user. The policy snapshot
// is fetched once and reused for every row; row failures are isolated
// and counted. All parsed rows are committed in a single transaction.
func (s *ExpenseService) Upload(ctx context.Context, userID int64, filename string, file io.Reader) (models.UploadStats, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return models.UploadStats{}, err
	}
	if user == nil {
		return models.UploadStats{}, ErrUserNotFound
	}

	var rows []ingest.RawRow
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = ingest.ReadCSV(file)
	case ".xlsx":
		rows, err = ingest.ReadXLSX(file)
	default:
		return models.UploadStats{}, ErrUnsupportedFormat
	}
	if err != nil {
		return models.UploadStats{}, fmt.Errorf("failed to read upload: %w", err)
	}

	policies, err := s.policies.ListActive(user.CompanyID)
	if err != nil {
		return models.UploadStats{}, fmt.Errorf("failed to load policies: %w", err)
	}

	writer := &batchWriter{db: s.db, expenses: s.expenses}
	pipeline := ingest.NewPipeline(s.categorizer, writer, s.logger)

	return pipeline.Run(ctx, rows, user.CompanyID, userID, policies)
}

// batchWriter persists a whole batch inside one transaction.
type batchWriter struct {
	db       *database.DB
	expenses *repository.ExpenseRepository
}

func (w *batchWriter) CreateAll(_ context.Context, expenses []*models.Expense) error {
	return w.db.WithTransaction(func(tx *sql.Tx) error {
		for _, e := range expenses {
			if err := w.expenses.Create(tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}
