package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expenseguard/expenseguard/internal/models"
	"github.com/expenseguard/expenseguard/internal/policy"
	"github.com/expenseguard/expenseguard/internal/repository"
	"github.com/expenseguard/expenseguard/internal/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService *service.ExpenseService
	expenses       *repository.ExpenseRepository
	policies       *repository.PolicyRepository
	companies      *repository.CompanyRepository
	users          *repository.UserRepository
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService *service.ExpenseService,
	expenses *repository.ExpenseRepository,
	policies *repository.PolicyRepository,
	companies *repository.CompanyRepository,
	users *repository.UserRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		expenseService: expenseService,
		expenses:       expenses,
		policies:       policies,
		companies:      companies,
		users:          users,
		logger:         logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

type createExpenseRequest struct {
	CompanyID   int64    `json:"company_id" binding:"required"`
	UserID      int64    `json:"user_id" binding:"required"`
	Merchant    string   `json:"merchant" binding:"required"`
	Amount      *float64 `json:"amount" binding:"required"`
	Date        string   `json:"date" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	var category models.Category
	if req.Category != "" {
		parsed, ok := models.ParseCategory(req.Category)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
		category = parsed
	}

	expense, err := h.expenseService.Create(c.Request.Context(), service.CreateInput{
		CompanyID:   req.CompanyID,
		UserID:      req.UserID,
		Merchant:    req.Merchant,
		Amount:      *req.Amount,
		Date:        date,
		Description: req.Description,
		Category:    category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	limit, offset := pagination(c)
	expenses, err := h.expenses.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(expenses))
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	expense, err := h.expenses.GetByID(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if expense == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
		return
	}
	c.JSON(http.StatusOK, expense)
}

// ListFlaggedExpenses handles GET /api/expenses/flagged
func (h *Handlers) ListFlaggedExpenses(c *gin.Context) {
	limit, offset := pagination(c)
	expenses, err := h.expenses.ListFlagged(nil, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(expenses))
}

// UpdateExpense handles PATCH /api/expenses/:id. Updates do not
// re-trigger policy evaluation.
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var update models.ExpenseUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.expenses.Update(id, update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if expense == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
		return
	}
	c.JSON(http.StatusOK, expense)
}

type bulkUpdateRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
	models.ExpenseUpdate
}

// BulkUpdateExpenses handles PATCH /api/expenses/bulk
func (h *Handlers) BulkUpdateExpenses(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expenses, err := h.expenses.BulkUpdate(req.IDs, req.ExpenseUpdate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(expenses))
}

// DeleteExpense handles DELETE /api/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.expenses.Delete(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "expense deleted"})
}

// ListUserExpenses handles GET /api/users/:id/expenses
func (h *Handlers) ListUserExpenses(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	expenses, err := h.expenses.ListByUser(id, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(expenses))
}

// ListUserFlaggedExpenses handles GET /api/users/:id/expenses/flagged
func (h *Handlers) ListUserFlaggedExpenses(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	expenses, err := h.expenses.ListFlagged(&id, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(expenses))
}

// UploadExpenses handles POST /api/users/:id/expenses/upload
func (h *Handlers) UploadExpenses(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	stats, err := h.expenseService.Upload(c.Request.Context(), id, fileHeader.Filename, file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

type createPolicyRequest struct {
	CompanyID   int64           `json:"company_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category" binding:"required"`
	RuleType    string          `json:"rule_type" binding:"required"`
	RuleValue   json.RawMessage `json:"rule_value" binding:"required"`
	PolicyType  string          `json:"policy_type" binding:"required,oneof=hard soft"`
}

// CreatePolicy handles POST /api/policies
func (h *Handlers) CreatePolicy(c *gin.Context) {
	var req createPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	p := &models.Policy{
		CompanyID:   req.CompanyID,
		Name:        req.Name,
		Description: req.Description,
		Category:    category,
		RuleType:    req.RuleType,
		RuleValue:   req.RuleValue,
		PolicyType:  models.PolicyType(req.PolicyType),
	}

	if err := h.policies.Create(p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPolicies handles GET /api/policies
func (h *Handlers) ListPolicies(c *gin.Context) {
	limit, offset := pagination(c)
	policies, err := h.policies.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(policies))
}

// GetPolicy handles GET /api/policies/:id
func (h *Handlers) GetPolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.policies.GetByID(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePolicy handles PATCH /api/policies/:id
func (h *Handlers) UpdatePolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var update models.PolicyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if update.Category != nil {
		if _, ok := models.ParseCategory(string(*update.Category)); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
	}

	p, err := h.policies.Update(id, update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePolicy handles DELETE /api/policies/:id
func (h *Handlers) DeletePolicy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	deleted, err := h.policies.Delete(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "policy deleted"})
}

type createCompanyRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// CreateCompany handles POST /api/companies
func (h *Handlers) CreateCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company := &models.Company{Name: req.Name, Address: req.Address}
	if err := h.companies.Create(company); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// ListCompanies handles GET /api/companies
func (h *Handlers) ListCompanies(c *gin.Context) {
	limit, offset := pagination(c)
	companies, err := h.companies.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(companies))
}

// GetCompany handles GET /api/companies/:id
func (h *Handlers) GetCompany(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	company, err := h.companies.GetByID(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if company == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}
	c.JSON(http.StatusOK, company)
}

type createUserRequest struct {
	CompanyID int64  `json:"company_id" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FullName  string `json:"full_name" binding:"required"`
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{CompanyID: req.CompanyID, Email: req.Email, FullName: req.FullName}
	if err := h.users.Create(user); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUser handles GET /api/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// respondError maps service and domain errors to HTTP statuses.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var malformed *policy.MalformedRuleError

	switch {
	case errors.As(err, &malformed):
		// Policy authoring data-integrity problem, not a server fault.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseDate accepts a calendar date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// orEmpty keeps list responses as [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
