package services

import (
	"strings"

	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

// Validator admits only well-formed items: a real title and some price evidence.
type Validator struct {
	logger *utils.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *utils.Logger) *Validator {
	return &Validator{logger: logger}
}

// Admit reports whether a single item passes validation.
func (v *Validator) Admit(item *models.ExtractedItem) bool {
	if item == nil {
		return false
	}
	title := strings.TrimSpace(item.Title)
	if title == "" || title == models.UnknownTitle {
		return false
	}
	return item.Price > 0 || item.PriceText != ""
}

// Validate returns the admitted items in their original order. Rejected
// items are dropped without error.
func (v *Validator) Validate(items []*models.ExtractedItem) []*models.ExtractedItem {
	result := make([]*models.ExtractedItem, 0, len(items))
	for _, it := range items {
		if !v.Admit(it) {
			if it != nil {
				v.logger.Debug("[validator] Dropping candidate %d (title %q, price %.2f, price text %q)",
					it.Rank, it.Title, it.Price, it.PriceText)
			}
			continue
		}
		result = append(result, it)
	}

	v.logger.Debug("[validator] Validated %d → %d items (dropped %d)",
		len(items), len(result), len(items)-len(result))
	return result
}
