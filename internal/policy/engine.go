// Package policy implements evaluation of expenses against company
// spending policies.
//
// Policies are evaluated strictly in the order supplied by the policy
// source. A hard violation is final: it forces rejection and stops
// evaluation immediately. Soft violations flag the expense but keep
// scanning, so a later soft rule may overwrite the flag reason
// (most-recent-wins; reasons are not accumulated).
package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expenseguard/expenseguard/internal/models"
)

// Evaluate checks an expense against an ordered policy list and
// returns the resulting flag status, reason, and approval outcome.
// The expense category must already be resolved. Evaluation is pure:
// the same inputs always produce the same outcome.
func Evaluate(expense *models.Expense, policies []*models.Policy) (models.Outcome, error) {
	var outcome models.Outcome

	for _, p := range policies {
		if p.Category != expense.Category {
			continue
		}

		switch p.RuleType {
		case models.RuleAmountMax:
			threshold, err := amountThreshold(p)
			if err != nil {
				return models.Outcome{}, err
			}
			// Strict inequality: amount == threshold is allowed.
			if expense.Amount > threshold {
				reason := fmt.Sprintf("Amount exceeds maximum of %v", formatThreshold(threshold))
				applyViolation(&outcome, p, reason)
			}

		case models.RuleMerchantBlacklist:
			blacklist, err := merchantBlacklist(p)
			if err != nil {
				return models.Outcome{}, err
			}
			if merchantListed(expense.Merchant, blacklist) {
				applyViolation(&outcome, p, "Merchant is blacklisted")
			}

		default:
			// Unrecognized rule types are a forward-compatible no-op.
		}

		// A hard violation is final; no later policy can change it.
		if outcome.IsFlagged && p.PolicyType == models.PolicyTypeHard {
			break
		}
	}

	return outcome, nil
}

// ApplyApprovalDefault fills in the approval decision when no hard rule
// determined it: a flagged expense defaults to not approved, an
// unflagged one to approved.
func ApplyApprovalDefault(outcome *models.Outcome) {
	if outcome.IsApproved == nil {
		approved := !outcome.IsFlagged
		outcome.IsApproved = &approved
	}
}

// applyViolation records a triggered rule. Soft rules leave any prior
// approval decision in place; hard rules force rejection.
func applyViolation(outcome *models.Outcome, p *models.Policy, reason string) {
	outcome.IsFlagged = true
	outcome.FlagReason = &reason
	if p.PolicyType == models.PolicyTypeHard {
		rejected := false
		outcome.IsApproved = &rejected
	}
}

func amountThreshold(p *models.Policy) (float64, error) {
	var threshold float64
	if err := json.Unmarshal(p.RuleValue, &threshold); err != nil {
		return 0, &MalformedRuleError{
			PolicyID:   p.ID,
			PolicyName: p.Name,
			RuleType:   p.RuleType,
			Reason:     "rule_value is not a number",
		}
	}
	return threshold, nil
}

func merchantBlacklist(p *models.Policy) ([]string, error) {
	var merchants []string
	if err := json.Unmarshal(p.RuleValue, &merchants); err != nil {
		return nil, &MalformedRuleError{
			PolicyID:   p.ID,
			PolicyName: p.Name,
			RuleType:   p.RuleType,
			Reason:     "rule_value is not a list of merchant names",
		}
	}
	return merchants, nil
}

func merchantListed(merchant string, blacklist []string) bool {
	for _, m := range blacklist {
		if strings.EqualFold(merchant, m) {
			return true
		}
	}
	return false
}

// formatThreshold renders a threshold without trailing zeros so the
// flag reason reads "maximum of 1000" rather than "maximum of 1000.00".
func formatThreshold(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
