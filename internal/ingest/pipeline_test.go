package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
)

type fixedCategorizer struct {
	category models.Category
}

func (f fixedCategorizer) Categorize(ctx context.Context, merchant string, amount float64, description string) models.Category {
	return f.category
}

type captureWriter struct {
	expenses []*models.Expense
	err      error
}

func (w *captureWriter) CreateAll(ctx context.Context, expenses []*models.Expense) error {
	if w.err != nil {
		return w.err
	}
	w.expenses = append(w.expenses, expenses...)
	return nil
}

func travelCap(threshold float64, policyType models.PolicyType) *models.Policy {
	value, _ := json.Marshal(threshold)
	return &models.Policy{
		ID:         1,
		Name:       "travel cap",
		Category:   models.CategoryTravel,
		RuleType:   models.RuleAmountMax,
		RuleValue:  value,
		PolicyType: policyType,
	}
}

func TestRun_CountsAndPersists(t *testing.T) {
	writer := &captureWriter{}
	p := NewPipeline(fixedCategorizer{models.CategoryTravel}, writer, zap.NewNop())

	rows := []RawRow{
		{"merchant": "Delta Airlines", "amount": "1200", "date": "2024-03-01", "description": "flight"},
		{"merchant": "Amtrak", "amount": "90", "date": "2024-03-02"},
		{"merchant": "United", "amount": "450.50", "date": "2024-03-03"},
	}

	stats, err := p.Run(context.Background(), rows, 1, 2, []*models.Policy{travelCap(1000, models.PolicyTypeHard)})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Flagged)
	assert.Equal(t, 0, stats.Failed)

	require.Len(t, writer.expenses, 3)
	flagged := writer.expenses[0]
	assert.True(t, flagged.IsFlagged)
	assert.False(t, flagged.IsApproved)
	require.NotNil(t, flagged.FlagReason)
	assert.Equal(t, "Amount exceeds maximum of 1000", *flagged.FlagReason)
	assert.Equal(t, int64(1), flagged.CompanyID)
	assert.Equal(t, int64(2), flagged.UserID)
}

func TestRun_BadRowIsIsolated(t *testing.T) {
	writer := &captureWriter{}
	p := NewPipeline(fixedCategorizer{models.CategoryGeneral}, writer, zap.NewNop())

	rows := []RawRow{
		{"merchant": "Office Depot", "amount": "12.50", "date": "2024-03-01"},
		{"merchant": "Broken Row", "amount": "twelve", "date": "2024-03-02"},
		{"merchant": "Staples", "amount": "30", "date": "2024-03-03"},
	}

	stats, err := p.Run(context.Background(), rows, 1, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Len(t, writer.expenses, 2)
}

func TestRun_MissingDateFailsRow(t *testing.T) {
	writer := &captureWriter{}
	p := NewPipeline(fixedCategorizer{models.CategoryGeneral}, writer, zap.NewNop())

	rows := []RawRow{
		{"merchant": "No Date Inc", "amount": "10"},
	}

	stats, err := p.Run(context.Background(), rows, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalProcessed)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, writer.expenses)
}

func TestRun_MissingAmountDefaultsToZero(t *testing.T) {
	writer := &captureWriter{}
	p := NewPipeline(fixedCategorizer{models.CategoryGeneral}, writer, zap.NewNop())

	rows := []RawRow{
		{"merchant": "Freebie", "date": "2024-03-01"},
	}

	stats, err := p.Run(context.Background(), rows, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProcessed)
	require.Len(t, writer.expenses, 1)
	assert.Equal(t, 0.0, writer.expenses[0].Amount)
}

func TestRun_MalformedPolicyFailsRowNotBatch(t *testing.T) {
	writer := &captureWriter{}
	p := NewPipeline(fixedCategorizer{models.CategoryTravel}, writer, zap.NewNop())

	broken := &models.Policy{
		ID:         9,
		Name:       "broken",
		Category:   models.CategoryTravel,
		RuleType:   models.RuleAmountMax,
		RuleValue:  json.RawMessage(`"oops"`),
		PolicyType: models.PolicyTypeHard,
	}

	rows := []RawRow{
		{"merchant": "Delta", "amount": "100", "date": "2024-03-01"},
		{"merchant": "United", "amount": "200", "date": "2024-03-02"},
	}

	stats, err := p.Run(context.Background(), rows, 1, 1, []*models.Policy{broken})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalProcessed)
	assert.Equal(t, 2, stats.Failed)
}

func TestRun_EmptyInput(t *testing.T) {
	writer := &captureWriter{}
	p := NewPipeline(fixedCategorizer{models.CategoryGeneral}, writer, zap.NewNop())

	stats, err := p.Run(context.Background(), nil, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStats{}, stats)
	assert.Empty(t, writer.expenses)
}
