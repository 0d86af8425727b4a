package models

import (
	"encoding/json"
	"time"
)

// PolicyType controls how a rule violation affects approval.
type PolicyType string

const (
	// PolicyTypeHard blocks approval outright and stops further evaluation.
	PolicyTypeHard PolicyType = "hard"
	// PolicyTypeSoft flags the expense for review without forcing rejection.
	PolicyTypeSoft PolicyType = "soft"
)

// Known rule types. Unrecognized rule types are ignored during
// evaluation so new types can be introduced without breaking existing
// policies.
const (
	RuleAmountMax         = "amount_max"
	RuleMerchantBlacklist = "merchant_blacklist"
)

// Policy is a company spending rule applied to expenses of a matching
// category. RuleValue holds the rule payload as JSON: a number for
// amount_max, a list of merchant names for merchant_blacklist.
type Policy struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    Category        `json:"category"`
	RuleType    string          `json:"rule_type"`
	RuleValue   json.RawMessage `json:"rule_value"`
	PolicyType  PolicyType      `json:"policy_type"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// PolicyUpdate carries the optional fields of a partial policy update.
type PolicyUpdate struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Category    *Category       `json:"category,omitempty"`
	RuleType    *string         `json:"rule_type,omitempty"`
	RuleValue   json.RawMessage `json:"rule_value,omitempty"`
	PolicyType  *PolicyType     `json:"policy_type,omitempty"`
}
