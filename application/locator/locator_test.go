package locator

import (
	"context"
	"io"
	"strings"
	"testing"

	"cartbot/application/probe"
	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestProbe(t *testing.T) *probe.Probe {
	t.Helper()
	p, err := probe.NewProbe(t.TempDir(), newTestLogger())
	require.NoError(t, err)
	return p
}

// stubClassifier answers ClassifySearchField from verdicts keyed by a
// substring of the nearby text
type stubClassifier struct {
	verdicts map[string]string
	err      map[string]error
	asked    []string
}

var _ interfaces.Classifier = (*stubClassifier)(nil)

func (c *stubClassifier) ParseIntent(ctx context.Context, command string) (entities.Intent, error) {
	return entities.Intent{}, nil
}

func (c *stubClassifier) ClassifySearchField(ctx context.Context, text string) (string, error) {
	c.asked = append(c.asked, text)
	for key, err := range c.err {
		if strings.Contains(text, key) {
			return "", err
		}
	}
	for key, verdict := range c.verdicts {
		if strings.Contains(text, key) {
			return verdict, nil
		}
	}
	return "No", nil
}

// row places a box in its own horizontal band so region captures never overlap
func row(i int, width, height float64) entities.BoundingBox {
	return entities.BoundingBox{X: 100, Y: float64(100 + i*300), Width: width, Height: height}
}
