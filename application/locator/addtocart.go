package locator

import (
	"context"
	"regexp"

	"cartbot/application/probe"
	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// clickable-looking candidates; generic containers are included on purpose
const actionSelector = "button, a, div, span"

var addToCartPattern = regexp.MustCompile(`(?i)add\s+to\s+cart`)

// AddToCartLocator finds the "add to cart" control of a product page
type AddToCartLocator struct {
	probe      *probe.Probe
	recognizer interfaces.Recognizer
	logger     *logrus.Logger
}

// NewAddToCartLocator - creates new add-to-cart locator
func NewAddToCartLocator(p *probe.Probe, rec interfaces.Recognizer, logger *logrus.Logger) *AddToCartLocator {
	return &AddToCartLocator{
		probe:      p,
		recognizer: rec,
		logger:     logger,
	}
}

// Locate scans clickable candidates in page order and returns the first one reading "add to cart"
func (l *AddToCartLocator) Locate(ctx context.Context, page interfaces.Page) (Match, bool, error) {
	actions, err := candidates(ctx, page, actionSelector)
	if err != nil {
		return Match{}, false, err
	}

	for i, el := range actions {
		if err := ctx.Err(); err != nil {
			return Match{}, false, err
		}

		box, ok, err := l.probe.Measure(ctx, el, entities.MinClickableAction)
		if err != nil {
			l.logger.Debugf("action %d: %v", i, err)
			continue
		}
		if !ok {
			continue
		}

		res := l.probe.Inspect(ctx, page, el, box, l.recognizer, probe.Options{Label: "action"})
		if res.Err != nil {
			l.logger.Warnf("Error checking element %d: %v", i, res.Err)
			continue
		}
		if IsAddToCart(res.Signal()) {
			return Match{Element: el, Box: box, Text: res.Text}, true, nil
		}
	}
	return Match{}, false, nil
}

// IsAddToCart reports whether text contains the "add to cart" phrase
func IsAddToCart(text string) bool {
	return addToCartPattern.MatchString(text)
}
