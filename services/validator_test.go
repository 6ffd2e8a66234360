package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func TestValidatorAdmit(t *testing.T) {
	v := NewValidator(newTestLogger())

	tests := []struct {
		name string
		item *models.ExtractedItem
		want bool
	}{
		{"priced", &models.ExtractedItem{Title: "Oak table", Price: 120}, true},
		{"price text only", &models.ExtractedItem{Title: "Oak table", PriceText: "Reserve"}, true},
		{"no price evidence", &models.ExtractedItem{Title: "Oak table"}, false},
		{"empty title", &models.ExtractedItem{Title: "", Price: 10}, false},
		{"blank title", &models.ExtractedItem{Title: "   ", Price: 10}, false},
		{"sentinel title", &models.ExtractedItem{Title: models.UnknownTitle, Price: 10}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Admit(tt.item))
		})
	}
}

func TestValidatorKeepsOrderAndNeverAdmitsPlaceholders(t *testing.T) {
	v := NewValidator(newTestLogger())
	now := time.Now()
	raw := []*models.ExtractedItem{
		{Rank: 1, Title: "B", Price: 5, ExtractedAt: now},
		{Rank: 2, Title: models.UnknownTitle, Price: 9, ExtractedAt: now},
		nil,
		{Rank: 4, Title: "A", PriceText: "Buy Now", ExtractedAt: now},
		{Rank: 5, Title: "", PriceText: "$4", ExtractedAt: now},
	}

	got := v.Validate(raw)
	if assert.Len(t, got, 2) {
		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, 4, got[1].Rank)
	}
	for _, it := range got {
		assert.NotEmpty(t, it.Title)
		assert.NotEqual(t, models.UnknownTitle, it.Title)
	}
}
