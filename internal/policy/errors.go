package policy

import "fmt"

// MalformedRuleError reports a policy whose rule_value cannot be
// interpreted for its rule_type. This is a data-integrity problem in
// policy authoring and is surfaced loudly, unlike a clean no-match.
type MalformedRuleError struct {
	PolicyID   int64
	PolicyName string
	RuleType   string
	Reason     string
}

func (e *MalformedRuleError) Error() string {
	return fmt.Sprintf("malformed rule_value for policy %q (id=%d, rule_type=%s): %s",
		e.PolicyName, e.PolicyID, e.RuleType, e.Reason)
}
