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

// StructuralSearchSelectors are tried in order before any visual probing
var StructuralSearchSelectors = []string{
	`input[type="search"]`,
	`input[name*=search i]`,
	`input[id*=search i]`,
	`input[placeholder*=search i]`,
	`input[aria-label*=search i]`,
}

const (
	searchInputSelector = "input"
	searchBoxMargin     = 40
	minNearbyText       = 3
)

// SearchBoxLocator finds the shopping search field of a page
type SearchBoxLocator struct {
	probe      *probe.Probe
	recognizer interfaces.Recognizer
	classifier interfaces.Classifier
	logger     *logrus.Logger
}

// NewSearchBoxLocator - creates new search box locator
func NewSearchBoxLocator(p *probe.Probe, rec interfaces.Recognizer, classifier interfaces.Classifier, logger *logrus.Logger) *SearchBoxLocator {
	return &SearchBoxLocator{
		probe:      p,
		recognizer: rec,
		classifier: classifier,
		logger:     logger,
	}
}

// Locate runs the structural phase, then the visual phase
func (l *SearchBoxLocator) Locate(ctx context.Context, page interfaces.Page) (interfaces.Element, bool, error) {
	if el := l.structural(ctx, page); el != nil {
		return el, true, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return l.visual(ctx, page)
}

func (l *SearchBoxLocator) structural(ctx context.Context, page interfaces.Page) interfaces.Element {
	for _, selector := range StructuralSearchSelectors {
		el, err := page.QueryFirst(ctx, selector)
		if err != nil {
			l.logger.Debugf("search selector %s failed: %v", selector, err)
			continue
		}
		if el != nil {
			l.logger.Infof("Search box matched %s", selector)
			return el
		}
	}
	return nil
}

func (l *SearchBoxLocator) visual(ctx context.Context, page interfaces.Page) (interfaces.Element, bool, error) {
	inputs, err := candidates(ctx, page, searchInputSelector)
	if err != nil {
		return nil, false, err
	}

	for i, el := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		box, ok, err := l.probe.Measure(ctx, el, entities.MinSearchInput)
		if err != nil {
			l.logger.Debugf("input %d: %v", i, err)
			continue
		}
		if !ok {
			continue
		}

		res := l.probe.Inspect(ctx, page, el, box, l.recognizer, probe.Options{
			Margin: searchBoxMargin,
			Label:  "input",
		})
		if res.Err != nil {
			l.logger.Debugf("input %d: %v", i, res.Err)
		}
		text := res.Signal()
		if utf8.RuneCountInString(text) < minNearbyText {
			continue
		}

		verdict, err := l.classifier.ClassifySearchField(ctx, text)
		if err != nil {
			l.logger.Warnf("input %d: classification failed: %v", i, err)
			continue
		}
		if IsAffirmative(verdict) {
			l.logger.Infof("Search box found visually (input %d, nearby text %q)", i, firstLine(text))
			return el, true, nil
		}
	}
	return nil, false, nil
}

// IsAffirmative reports whether a classifier verdict begins with "yes"
func IsAffirmative(verdict string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(verdict)), "yes")
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}
