package extractor

import (
	"fmt"
	"time"

	"trademe-analyzer/dom"
	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

// Builder turns candidate nodes into items. A failing field extractor only
// blanks its own field.
type Builder struct {
	fields *Fields
	logger *utils.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder over the given extractors.
func NewBuilder(fields *Fields, logger *utils.Logger, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{fields: fields, logger: logger, now: now}
}

// Build extracts one item. rank is the 1-based candidate position and pageURL
// is the page the candidate came from. Build returns nil only when the
// candidate could not be processed at all.
func (b *Builder) Build(n dom.Node, rank int, pageURL string) (item *models.ExtractedItem) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("[builder] %v", newPartialError("candidate", rank, r))
			item = nil
		}
	}()

	base := b.fields.baseFor(pageURL)
	item = &models.ExtractedItem{
		Rank:        rank,
		Type:        models.TypeListing,
		ExtractedAt: b.now(),
	}

	b.field("title", rank, func() { item.Title = b.fields.Title(n) })
	b.field("price", rank, func() { item.Price = b.fields.Price(n) })
	b.field("price_text", rank, func() { item.PriceText = b.fields.PriceText(n) })
	b.field("link", rank, func() { item.Link = b.fields.Link(n, base) })
	b.field("image", rank, func() { item.Image = b.fields.Image(n, base) })
	b.field("location", rank, func() { item.Location = b.fields.Location(n) })
	b.field("seller", rank, func() { item.Seller = b.fields.Seller(n) })
	b.field("type", rank, func() { item.Type = b.fields.Type(n) })

	return item
}

func (b *Builder) field(name string, rank int, extract func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("[builder] %v", newPartialError(name, rank, r))
		}
	}()
	extract()
}

func newPartialError(field string, rank int, recovered any) *Error {
	return &Error{
		Kind:    KindPartial,
		Message: fmt.Sprintf("%s extractor failed on candidate %d", field, rank),
		Cause:   fmt.Errorf("%v", recovered),
	}
}
