package locator

import (
	"context"
	"strings"
	"unicode/utf8"

	"cartbot/application/probe"
	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	productSelector      = "div, li, article, section"
	productImageSelector = "img"
	minProductText       = 20
	currencyGlyphs       = "$€£¥"
)

// ProductMatch is a selected product container
type ProductMatch struct {
	Match
	// FromImage is true when Box is the embedded image's box
	FromImage bool
}

// ProductLocator picks the first result container that reads like a priced product
type ProductLocator struct {
	probe      *probe.Probe
	recognizer interfaces.Recognizer
	logger     *logrus.Logger
}

// NewProductLocator - creates new product locator
func NewProductLocator(p *probe.Probe, rec interfaces.Recognizer, logger *logrus.Logger) *ProductLocator {
	return &ProductLocator{
		probe:      p,
		recognizer: rec,
		logger:     logger,
	}
}

// Locate scans result containers in page order
func (l *ProductLocator) Locate(ctx context.Context, page interfaces.Page) (ProductMatch, bool, error) {
	containers, err := candidates(ctx, page, productSelector)
	if err != nil {
		return ProductMatch{}, false, err
	}

	for i, el := range containers {
		if err := ctx.Err(); err != nil {
			return ProductMatch{}, false, err
		}

		box, ok, err := l.probe.Measure(ctx, el, entities.MinProductContainer)
		if err != nil {
			l.logger.Debugf("container %d: %v", i, err)
			continue
		}
		if !ok {
			continue
		}

		res := l.probe.Inspect(ctx, page, el, box, l.recognizer, probe.Options{Label: "product"})
		if res.Err != nil {
			l.logger.Debugf("container %d: %v", i, res.Err)
		}
		text := res.Signal()
		if !LooksLikeProduct(text) {
			continue
		}

		l.logger.Infof("Detected product: %s", firstLine(text))
		match := ProductMatch{Match: Match{Element: el, Box: box, Text: text}}
		if imgBox, ok := l.imageBox(ctx, el); ok {
			match.Box = imgBox
			match.FromImage = true
		}
		return match, true, nil
	}
	return ProductMatch{}, false, nil
}

// imageBox returns the bounding box of the container's first image, if rendered
func (l *ProductLocator) imageBox(ctx context.Context, el interfaces.Element) (entities.BoundingBox, bool) {
	img, err := el.QueryFirst(ctx, productImageSelector)
	if err != nil {
		l.logger.Debugf("image lookup failed: %v", err)
		return entities.BoundingBox{}, false
	}
	if img == nil {
		return entities.BoundingBox{}, false
	}
	box, err := img.BoundingBox(ctx)
	if err != nil || box == nil {
		return entities.BoundingBox{}, false
	}
	return *box, true
}

// LooksLikeProduct reports whether text is long enough and carries a currency glyph
func LooksLikeProduct(text string) bool {
	if utf8.RuneCountInString(text) < minProductText {
		return false
	}
	return strings.ContainsAny(text, currencyGlyphs)
}
