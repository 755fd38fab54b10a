package locator

import (
	"context"
	"testing"

	"cartbot/infrastructure/browser/browsertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBoxLocator_Structural(t *testing.T) {
	byName := browsertest.NewElement("by-name", row(0, 300, 30), "")
	byID := browsertest.NewElement("by-id", row(1, 300, 30), "")
	page := browsertest.NewPage("p1").
		Add(`input[name*=search i]`, byName).
		Add(`input[id*=search i]`, byID).
		Add("input", byName, byID)
	rec := &browsertest.Recognizer{}
	classifier := &stubClassifier{}

	l := NewSearchBoxLocator(newTestProbe(t), rec, classifier, newTestLogger())
	el, found, err := l.Locate(context.Background(), page)

	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, byName, el)
	assert.Zero(t, rec.Calls, "structural matches never probe visually")
	assert.Zero(t, page.RegionShots)
	assert.Empty(t, classifier.asked)
}

func TestSearchBoxLocator_StructuralQueryErrorIsSkipped(t *testing.T) {
	field := browsertest.NewElement("field", row(0, 300, 30), "")
	page := browsertest.NewPage("p1").Add(`input[aria-label*=search i]`, field)
	page.QueryErr[`input[type="search"]`] = browsertest.ErrBroken

	l := NewSearchBoxLocator(newTestProbe(t), &browsertest.Recognizer{}, &stubClassifier{}, newTestLogger())
	el, found, err := l.Locate(context.Background(), page)

	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, field, el)
}

func TestSearchBoxLocator_Visual(t *testing.T) {
	tiny := browsertest.NewElement("tiny", row(0, 40, 20), "Search everything")
	short := browsertest.NewElement("short", row(1, 300, 30), "Go")
	newsletter := browsertest.NewElement("newsletter", row(2, 300, 30), "Subscribe to our newsletter")
	broken := browsertest.NewElement("broken", row(3, 300, 30), "Coupon code")
	search := browsertest.NewElement("search", row(4, 300, 30), "Search Amazon")
	later := browsertest.NewElement("later", row(5, 300, 30), "Search again")
	page := browsertest.NewPage("p1").Add("input", tiny, short, newsletter, broken, search, later)

	rec := &browsertest.Recognizer{}
	classifier := &stubClassifier{
		verdicts: map[string]string{"Search": "  Yes, it is a search bar."},
		err:      map[string]error{"Coupon": browsertest.ErrBroken},
	}

	l := NewSearchBoxLocator(newTestProbe(t), rec, classifier, newTestLogger())
	el, found, err := l.Locate(context.Background(), page)

	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, search, el)

	// tiny is never captured, later is never evaluated
	assert.Equal(t, 4, page.RegionShots)
	assert.Equal(t, []string{"Subscribe to our newsletter", "Coupon code", "Search Amazon"}, classifier.asked)
	assert.Equal(t, row(1, 300, 30).Pad(40), page.Regions[0])
}

func TestSearchBoxLocator_NotFound(t *testing.T) {
	page := browsertest.NewPage("p1").Add("input",
		browsertest.NewElement("email", row(0, 300, 30), "Email address"),
	)

	l := NewSearchBoxLocator(newTestProbe(t), &browsertest.Recognizer{}, &stubClassifier{}, newTestLogger())
	el, found, err := l.Locate(context.Background(), page)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, el)
}

func TestSearchBoxLocator_RecognizerFailureIsNoSignal(t *testing.T) {
	page := browsertest.NewPage("p1").Add("input",
		browsertest.NewElement("a", row(0, 300, 30), "Search shop"),
		browsertest.NewElement("b", row(1, 300, 30), "Search shop"),
	)
	rec := &browsertest.Recognizer{Err: browsertest.ErrBroken}
	classifier := &stubClassifier{verdicts: map[string]string{"Search": "yes"}}

	l := NewSearchBoxLocator(newTestProbe(t), rec, classifier, newTestLogger())
	_, found, err := l.Locate(context.Background(), page)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 2, rec.Calls)
	assert.Empty(t, classifier.asked)
}

func TestSearchBoxLocator_EnumerationFailure(t *testing.T) {
	page := browsertest.NewPage("p1")
	page.QueryErr["input"] = browsertest.ErrBroken

	l := NewSearchBoxLocator(newTestProbe(t), &browsertest.Recognizer{}, &stubClassifier{}, newTestLogger())
	_, found, err := l.Locate(context.Background(), page)

	assert.ErrorIs(t, err, browsertest.ErrBroken)
	assert.False(t, found)
}

func TestSearchBoxLocator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := browsertest.NewPage("p1").Add("input", browsertest.NewElement("a", row(0, 300, 30), "Search"))

	l := NewSearchBoxLocator(newTestProbe(t), &browsertest.Recognizer{}, &stubClassifier{}, newTestLogger())
	_, found, err := l.Locate(ctx, page)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, found)
}

func TestIsAffirmative(t *testing.T) {
	tests := map[string]bool{
		"yes":                 true,
		"Yes.":                true,
		"  YES, it is":        true,
		"No":                  false,
		"I think yes":         false,
		"":                    false,
		"\nyes":               true,
		"Not sure, maybe yes": false,
	}
	for verdict, want := range tests {
		assert.Equal(t, want, IsAffirmative(verdict), "verdict %q", verdict)
	}
}
