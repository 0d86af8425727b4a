package models

import (
	"strings"
	"time"
)

// Category classifies the purpose of an expense and selects which
// policies apply to it.
type Category string

// Valid expense categories.
const (
	CategoryGeneral        Category = "general"
	CategoryTravel         Category = "travel"
	CategoryFood           Category = "food"
	CategoryLodging        Category = "lodging"
	CategoryTransportation Category = "transportation"
	CategorySupplies       Category = "supplies"
	CategoryOther          Category = "other"
)

// DefaultCategory is assigned when categorization cannot resolve a label.
const DefaultCategory = CategoryGeneral

// Categories lists all valid categories in a stable order.
var Categories = []Category{
	CategoryGeneral,
	CategoryTravel,
	CategoryFood,
	CategoryLodging,
	CategoryTransportation,
	CategorySupplies,
	CategoryOther,
}

// ParseCategory normalizes a raw label and reports whether it names a
// valid category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Categories {
		if c == valid {
			return c, true
		}
	}
	return "", false
}

// Expense is a submitted expense record with its derived review fields.
type Expense struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	UserID      int64      `json:"user_id"`
	Merchant    string     `json:"merchant"`
	Amount      float64    `json:"amount"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description,omitempty"`
	Category    Category   `json:"category"`
	IsFlagged   bool       `json:"is_flagged"`
	// FlagReason stays nil when no triggered rule produced a reason.
	FlagReason *string    `json:"flag_reason,omitempty"`
	IsApproved bool       `json:"is_approved"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Outcome is the transient result of evaluating an expense against a
// policy set. IsApproved nil means no hard rule decided approval and the
// caller applies the default (flagged implies not approved).
type Outcome struct {
	IsFlagged  bool
	FlagReason *string
	IsApproved *bool
}

// ExpenseUpdate carries the optional fields of a partial expense update.
// Nil fields are left untouched. Update paths do not re-run policy
// evaluation.
type ExpenseUpdate struct {
	Merchant    *string    `json:"merchant,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	IsApproved  *bool      `json:"is_approved,omitempty"`
}

// UploadStats summarizes a batch ingestion run. TotalProcessed counts
// only rows that parsed and evaluated; rows dropped by per-row isolation
// are counted in Failed.
type UploadStats struct {
	TotalProcessed int `json:"total_processed"`
	Successful     int `json:"successful"`
	Flagged        int `json:"flagged"`
	Failed         int `json:"failed"`
}
