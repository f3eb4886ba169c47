package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateType selects which of the three published quotes an alert watches.
type RateType string

const (
	// RateTypeTTS is the telegraphic transfer selling rate.
	RateTypeTTS RateType = "TTS"
	// RateTypeTTB is the telegraphic transfer buying rate.
	RateTypeTTB RateType = "TTB"
	// RateTypeDealBase is the deal base rate.
	RateTypeDealBase RateType = "DEAL_BAS_R"
)

// ParseRateType normalises and validates a rate type value.
func ParseRateType(v string) (RateType, error) {
	switch rt := RateType(strings.ToUpper(strings.TrimSpace(v))); rt {
	case RateTypeTTS, RateTypeTTB, RateTypeDealBase:
		return rt, nil
	default:
		return "", fmt.Errorf("rate type must be TTS, TTB, or DEAL_BAS_R, got %q", v)
	}
}

// Condition is the direction of a threshold alert.
type Condition string

const (
	// ConditionAbove fires when the current rate is at or above the target.
	ConditionAbove Condition = "above"
	// ConditionBelow fires when the current rate is at or below the target.
	ConditionBelow Condition = "below"
)

// ParseCondition normalises and validates a condition value.
func ParseCondition(v string) (Condition, error) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(v))); c {
	case ConditionAbove, ConditionBelow:
		return c, nil
	default:
		return "", fmt.Errorf("condition must be above or below, got %q", v)
	}
}

// Valid reports whether the condition is one of the known values.
func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Satisfied evaluates the boundary-inclusive threshold comparison.
// An exact match fires on both sides. Unknown conditions never fire.
func (c Condition) Satisfied(current, target decimal.Decimal) bool {
	switch c {
	case ConditionAbove:
		return current.GreaterThanOrEqual(target)
	case ConditionBelow:
		return current.LessThanOrEqual(target)
	default:
		return false
	}
}

// Quote is the set of named rates published for one non-base currency.
// A nil field means the provider did not publish that rate.
type Quote struct {
	DisplayName string
	TTS         *decimal.Decimal
	TTB         *decimal.Decimal
	DealBase    *decimal.Decimal
}

// Rate returns the quote value selected by the given rate type.
// The second result is false when the field is absent.
func (q Quote) Rate(rt RateType) (decimal.Decimal, bool) {
	var v *decimal.Decimal
	switch rt {
	case RateTypeTTS:
		v = q.TTS
	case RateTypeTTB:
		v = q.TTB
	case RateTypeDealBase:
		v = q.DealBase
	}
	if v == nil {
		return decimal.Decimal{}, false
	}
	return *v, true
}

// ParseCommaDecimal parses a rate that may carry thousands separators,
// e.g. "1,350.50". Empty input is an error.
func ParseCommaDecimal(v string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty rate value")
	}
	return decimal.NewFromString(cleaned)
}
