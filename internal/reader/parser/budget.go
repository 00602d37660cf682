package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	unknownCurrency = "UNKNOWN"

	// maxBudgetAmount is the largest amount postings.budget_amount holds.
	maxBudgetAmount = 99999999.99
)

var (
	budgetRegexp = regexp.MustCompile(`(?i)Budget:\s*(?:([$€£¥₹])\s*)?([\d,.]+)(?:\s*-\s*(?:[$€£¥₹])?\s*([\d,.]+))?\s*(USD|CAD|INR|AUD|NZD|EUR|GBP|HKD|JPY)?`)

	currencySymbols = map[string]string{
		"$": "USD",
		"€": "EUR",
		"£": "GBP",
		"¥": "JPY",
		"₹": "INR",
	}
)

// ParseBudget extracts a budget like "Budget: $500 - $700 USD" from s. A
// range gives its mean. Currency is taken from the ISO code, from the symbol
// or becomes "UNKNOWN". It returns nils when there's no budget, its numbers
// can't be parsed or the amount is larger than maxBudgetAmount.
func ParseBudget(s string) (*float64, *string) {
	m := budgetRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}

	amount, err := parseAmount(m[2])
	if err != nil {
		return nil, nil
	}

	if m[3] != "" {
		upper, err := parseAmount(m[3])
		if err != nil {
			return nil, nil
		}
		amount = (amount + upper) / 2
	}
	amount = math.Round(amount*100) / 100
	if amount > maxBudgetAmount {
		return nil, nil
	}

	var currency string
	switch {
	case m[4] != "":
		currency = strings.ToUpper(m[4])
	case m[1] != "":
		currency = currencySymbols[m[1]]
	default:
		currency = unknownCurrency
	}
	return &amount, &currency
}

func parseAmount(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	return f, nil
}
