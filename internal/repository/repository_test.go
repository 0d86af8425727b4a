package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
	"github.com/expenseguard/expenseguard/pkg/database"
)

// testDB opens an isolated in-memory database with the real schema.
// A single connection keeps every query on the same in-memory store.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	return db
}

func seedCompanyAndUser(t *testing.T, db *database.DB) (int64, int64) {
	t.Helper()

	companies := NewCompanyRepository(db.DB, zap.NewNop())
	users := NewUserRepository(db.DB, zap.NewNop())

	company := &models.Company{Name: "Acme Corp"}
	require.NoError(t, companies.Create(company))

	user := &models.User{CompanyID: company.ID, Email: "pat@acme.example", FullName: "Pat Doe"}
	require.NoError(t, users.Create(user))

	return company.ID, user.ID
}

func TestExpenseRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	companyID, userID := seedCompanyAndUser(t, db)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	reason := "Amount exceeds maximum of 1000"
	expense := &models.Expense{
		CompanyID:  companyID,
		UserID:     userID,
		Merchant:   "Delta Airlines",
		Amount:     1200,
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Category:   models.CategoryTravel,
		IsFlagged:  true,
		FlagReason: &reason,
		IsApproved: false,
	}

	require.NoError(t, repo.Create(nil, expense))
	require.NotZero(t, expense.ID)

	got, err := repo.GetByID(expense.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Delta Airlines", got.Merchant)
	assert.Equal(t, models.CategoryTravel, got.Category)
	assert.True(t, got.IsFlagged)
	require.NotNil(t, got.FlagReason)
	assert.Equal(t, reason, *got.FlagReason)
	assert.False(t, got.IsApproved)
	assert.Nil(t, got.UpdatedAt)
}

func TestExpenseRepository_GetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	got, err := repo.GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpenseRepository_Update(t *testing.T) {
	db := testDB(t)
	companyID, userID := seedCompanyAndUser(t, db)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	expense := &models.Expense{
		CompanyID:  companyID,
		UserID:     userID,
		Merchant:   "Uber",
		Amount:     30,
		Date:       time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Category:   models.CategoryTransportation,
		IsApproved: true,
	}
	require.NoError(t, repo.Create(nil, expense))

	approved := false
	newAmount := 35.0
	got, err := repo.Update(expense.ID, models.ExpenseUpdate{
		Amount:     &newAmount,
		IsApproved: &approved,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 35.0, got.Amount)
	assert.False(t, got.IsApproved)
	// Untouched fields survive a partial update.
	assert.Equal(t, "Uber", got.Merchant)
	assert.NotNil(t, got.UpdatedAt)
}

func TestExpenseRepository_UpdateMissing(t *testing.T) {
	db := testDB(t)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	amount := 10.0
	got, err := repo.Update(12345, models.ExpenseUpdate{Amount: &amount})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpenseRepository_BulkUpdateSkipsUnknownIDs(t *testing.T) {
	db := testDB(t)
	companyID, userID := seedCompanyAndUser(t, db)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	expense := &models.Expense{
		CompanyID: companyID,
		UserID:    userID,
		Merchant:  "Staples",
		Amount:    20,
		Date:      time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		Category:  models.CategorySupplies,
	}
	require.NoError(t, repo.Create(nil, expense))

	approved := true
	updated, err := repo.BulkUpdate([]int64{expense.ID, 9999}, models.ExpenseUpdate{IsApproved: &approved})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.True(t, updated[0].IsApproved)
}

func TestExpenseRepository_ListFlagged(t *testing.T) {
	db := testDB(t)
	companyID, userID := seedCompanyAndUser(t, db)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	reason := "Merchant is blacklisted"
	for _, e := range []*models.Expense{
		{CompanyID: companyID, UserID: userID, Merchant: "Casino", Amount: 50, Date: time.Now(), Category: models.CategoryGeneral, IsFlagged: true, FlagReason: &reason},
		{CompanyID: companyID, UserID: userID, Merchant: "Staples", Amount: 10, Date: time.Now(), Category: models.CategorySupplies, IsApproved: true},
	} {
		require.NoError(t, repo.Create(nil, e))
	}

	flagged, err := repo.ListFlagged(nil, 100, 0)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "Casino", flagged[0].Merchant)

	byUser, err := repo.ListFlagged(&userID, 100, 0)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	other := userID + 100
	none, err := repo.ListFlagged(&other, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExpenseRepository_Delete(t *testing.T) {
	db := testDB(t)
	companyID, userID := seedCompanyAndUser(t, db)
	repo := NewExpenseRepository(db.DB, zap.NewNop())

	expense := &models.Expense{
		CompanyID: companyID,
		UserID:    userID,
		Merchant:  "Uber",
		Amount:    30,
		Date:      time.Now(),
		Category:  models.CategoryTransportation,
	}
	require.NoError(t, repo.Create(nil, expense))

	deleted, err := repo.Delete(expense.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(expense.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPolicyRepository_ListActivePreservesInsertionOrder(t *testing.T) {
	db := testDB(t)
	companyID, _ := seedCompanyAndUser(t, db)
	repo := NewPolicyRepository(db.DB, zap.NewNop())

	first := &models.Policy{
		CompanyID:  companyID,
		Name:       "soft travel cap",
		Category:   models.CategoryTravel,
		RuleType:   models.RuleAmountMax,
		RuleValue:  json.RawMessage(`500`),
		PolicyType: models.PolicyTypeSoft,
	}
	second := &models.Policy{
		CompanyID:  companyID,
		Name:       "hard travel cap",
		Category:   models.CategoryTravel,
		RuleType:   models.RuleAmountMax,
		RuleValue:  json.RawMessage(`1000`),
		PolicyType: models.PolicyTypeHard,
	}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	active, err := repo.ListActive(companyID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "soft travel cap", active[0].Name)
	assert.Equal(t, "hard travel cap", active[1].Name)
	assert.JSONEq(t, `500`, string(active[0].RuleValue))
}

func TestPolicyRepository_Update(t *testing.T) {
	db := testDB(t)
	companyID, _ := seedCompanyAndUser(t, db)
	repo := NewPolicyRepository(db.DB, zap.NewNop())

	p := &models.Policy{
		CompanyID:  companyID,
		Name:       "blacklist",
		Category:   models.CategoryGeneral,
		RuleType:   models.RuleMerchantBlacklist,
		RuleValue:  json.RawMessage(`["casino royale"]`),
		PolicyType: models.PolicyTypeHard,
	}
	require.NoError(t, repo.Create(p))

	soft := models.PolicyTypeSoft
	got, err := repo.Update(p.ID, models.PolicyUpdate{
		PolicyType: &soft,
		RuleValue:  json.RawMessage(`["casino royale", "vape shop"]`),
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.PolicyTypeSoft, got.PolicyType)
	assert.JSONEq(t, `["casino royale", "vape shop"]`, string(got.RuleValue))
	assert.Equal(t, "blacklist", got.Name)
}

func TestUserRepository_GetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db.DB, zap.NewNop())

	got, err := repo.GetByID(42)
	require.NoError(t, err)
	assert.Nil(t, got)
}
