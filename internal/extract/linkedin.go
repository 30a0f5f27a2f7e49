package extract

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// linkedInJS maps every result card to a raw record inside the page. The
// listing id comes from the card's entity URN when present, from the href
// id segment otherwise.
const linkedInJS = `(() => {
	const cards = Array.from(document.querySelectorAll(%s));
	return cards.map((card) => {
		const link = card.querySelector("a");
		const href = link ? link.href : "";
		let id = "";
		const urn = card.getAttribute("data-entity-urn");
		if (urn) {
			id = urn.split(":").pop();
		} else {
			const m = href.match(/-(\d{10,12})(?:[/?]|$)/);
			if (m) id = m[1];
		}
		const text = (sel) => {
			const el = card.querySelector(sel);
			return el ? el.textContent.trim() : "";
		};
		const img = card.querySelector("img");
		const timeEl = card.querySelector("time");
		return {
			id: id,
			title: text("h3"),
			company: text("h4"),
			location: text(".job-search-card__location"),
			url: href,
			imageUrl: img ? (img.getAttribute("data-delayed-url") || img.src || "") : "",
			postingDate: timeEl ? (timeEl.getAttribute("datetime") || "") : "",
			postingTimeRelative: timeEl ? timeEl.textContent.trim() : ""
		};
	});
})()`

// LinkedIn extracts listing cards from a rendered job-search results page.
type LinkedIn struct {
	itemSelector string
}

// NewLinkedIn creates the LinkedIn site extractor over the configured
// result-item selector.
func NewLinkedIn(itemSelector string) *LinkedIn {
	return &LinkedIn{itemSelector: itemSelector}
}

// Extract evaluates the card-mapping script against the live DOM.
func (l *LinkedIn) Extract(ctx context.Context, p scraper.Page) ([]scraper.RawRecord, error) {
	var raws []scraper.RawRecord
	expr := fmt.Sprintf(linkedInJS, strconv.Quote(l.itemSelector))
	if err := p.Evaluate(ctx, expr, &raws); err != nil {
		return nil, fmt.Errorf("evaluate extraction script: %w", err)
	}
	return raws, nil
}
