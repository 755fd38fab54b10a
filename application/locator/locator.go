// Package locator scans candidate elements of a page and selects at most one
// match per pass. A pass that finds nothing reports found=false; errors are
// reserved for failures that invalidate the whole pass.
package locator

import (
	"context"
	"fmt"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"
)

// Match is the element a locator selected
type Match struct {
	Element interfaces.Element
	// Box is the region the click target is computed from
	Box  entities.BoundingBox
	Text string
}

// Target returns the click target of the match
func (m Match) Target() entities.Point {
	return m.Box.Center()
}

// candidates enumerates selector, aborting only when the context is done
func candidates(ctx context.Context, page interfaces.Page, selector string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := page.QueryAll(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %q: %w", selector, err)
	}
	return els, nil
}
