package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/autoledger/internal/taxonomy"
)

// draftFromModelOutput converts the model's raw JSON object into a Draft.
// type, amount, merchant and category are required; date is optional.
// Category is carried over verbatim here; reconciliation happens in
// Normalize.
func draftFromModelOutput(raw map[string]interface{}) (Draft, error) {
	typeStr, err := getStringField(raw, "type", true)
	if err != nil {
		return Draft{}, err
	}
	txType := taxonomy.TransactionType(typeStr)
	if !txType.Valid() {
		return Draft{}, fmt.Errorf("field %q has value %q, want %q or %q", "type", typeStr, taxonomy.Expense, taxonomy.Income)
	}

	amount, err := getNumberField(raw, "amount", true)
	if err != nil {
		return Draft{}, err
	}
	if amount.IsNegative() {
		return Draft{}, fmt.Errorf("field %q is negative: %s", "amount", amount)
	}

	merchant, err := getStringField(raw, "merchant", true)
	if err != nil {
		return Draft{}, err
	}

	category, err := getStringField(raw, "category", true)
	if err != nil {
		return Draft{}, err
	}

	date, err := getStringField(raw, "date", false)
	if err != nil {
		return Draft{}, err
	}

	return Draft{
		Type:     txType,
		Amount:   amount,
		Merchant: strings.TrimSpace(merchant),
		Category: taxonomy.Category(strings.TrimSpace(category)),
		Date:     strings.TrimSpace(date),
	}, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getNumberField(m map[string]interface{}, key string, required bool) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return decimal.Zero, fmt.Errorf("missing required field %q", key)
		}
		return decimal.Zero, nil
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		// Some model snapshots quote numbers; accept a clean decimal string.
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q has value %q, want number", key, val)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

// cleanModelJSON strips Markdown fences and surrounding junk that the model
// sometimes emits despite being told not to, keeping only the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if there is still junk
	// around the object.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
