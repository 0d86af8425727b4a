// Package ingest drives bulk expense imports through categorization and
// policy evaluation, isolating per-row failures so one bad row never
// aborts the batch.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
	"github.com/expenseguard/expenseguard/internal/policy"
)

// Categorizer resolves a category for an expense's free-text fields.
// Implementations must not fail; unresolvable input yields the default
// category.
type Categorizer interface {
	Categorize(ctx context.Context, merchant string, amount float64, description string) models.Category
}

// ExpenseWriter persists a batch of fully-evaluated expenses as a
// single unit.
type ExpenseWriter interface {
	CreateAll(ctx context.Context, expenses []*models.Expense) error
}

// RowResult is the explicit per-row outcome: either a processed expense
// or a typed failure reason. Failures are counted, never re-raised.
type RowResult struct {
	Expense *models.Expense
	Err     error
}

// Failed reports whether the row was dropped.
func (r RowResult) Failed() bool { return r.Err != nil }

// Pipeline ingests raw tabular rows into evaluated expense records.
type Pipeline struct {
	categorizer Categorizer
	writer      ExpenseWriter
	logger      *zap.Logger
}

// NewPipeline creates a batch ingestion pipeline.
func NewPipeline(categorizer Categorizer, writer ExpenseWriter, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		categorizer: categorizer,
		writer:      writer,
		logger:      logger,
	}
}

// Run processes every row against a policy snapshot fetched once by the
// caller and reused across all rows. Row failures (parse error, missing
// date, malformed policy rule) increment Failed and processing
// continues to the end of input.
//
// Durability: accumulated records are persisted in one transaction
// after all rows are processed, so the batch is "all rows attempted"
// rather than atomic per row; a crash mid-batch loses the uncommitted
// batch.
func (p *Pipeline) Run(ctx context.Context, rows []RawRow, companyID, userID int64, policies []*models.Policy) (models.UploadStats, error) {
	var stats models.UploadStats
	expenses := make([]*models.Expense, 0, len(rows))

	for i, row := range rows {
		result := p.processRow(ctx, row, companyID, userID, policies)
		if result.Failed() {
			stats.Failed++
			p.logger.Warn("Skipping import row",
				zap.Int("row", i+1),
				zap.Error(result.Err))
			continue
		}

		expenses = append(expenses, result.Expense)
		stats.TotalProcessed++
		if result.Expense.IsFlagged {
			stats.Flagged++
		} else {
			stats.Successful++
		}
	}

	if len(expenses) > 0 {
		if err := p.writer.CreateAll(ctx, expenses); err != nil {
			return stats, fmt.Errorf("failed to persist batch: %w", err)
		}
	}

	p.logger.Info("Batch ingestion completed",
		zap.Int("total_processed", stats.TotalProcessed),
		zap.Int("successful", stats.Successful),
		zap.Int("flagged", stats.Flagged),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

// processRow coerces, categorizes, and evaluates a single row.
func (p *Pipeline) processRow(ctx context.Context, row RawRow, companyID, userID int64, policies []*models.Policy) RowResult {
	expense, err := coerceRow(row, companyID, userID)
	if err != nil {
		return RowResult{Err: err}
	}

	expense.Category = p.categorizer.Categorize(ctx, expense.Merchant, expense.Amount, expense.Description)

	outcome, err := policy.Evaluate(expense, policies)
	if err != nil {
		return RowResult{Err: fmt.Errorf("policy evaluation failed: %w", err)}
	}
	policy.ApplyApprovalDefault(&outcome)

	expense.IsFlagged = outcome.IsFlagged
	expense.FlagReason = outcome.FlagReason
	expense.IsApproved = *outcome.IsApproved

	return RowResult{Expense: expense}
}

// coerceRow maps a raw row onto the expense shape. Missing text fields
// default to empty, a missing amount defaults to 0, and a missing or
// unparseable date fails the row.
func coerceRow(row RawRow, companyID, userID int64) (*models.Expense, error) {
	amount := 0.0
	if raw := strings.TrimSpace(row["amount"]); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		amount = parsed
	}
	if amount < 0 {
		return nil, fmt.Errorf("amount must be non-negative: %v", amount)
	}

	date, err := time.Parse(DateLayout, strings.TrimSpace(row["date"]))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", row["date"], err)
	}

	return &models.Expense{
		CompanyID:   companyID,
		UserID:      userID,
		Merchant:    row["merchant"],
		Amount:      amount,
		Date:        date,
		Description: row["description"],
	}, nil
}
