package probe

import (
	"context"
	"io"
	"os"
	"testing"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"
	"cartbot/infrastructure/browser/browsertest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProbe(t *testing.T) (*Probe, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	dir := t.TempDir()
	p, err := NewProbe(dir, logger)
	require.NoError(t, err)
	return p, dir
}

func assertNoSamples(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "samples must be removed after recognition")
}

func TestMeasure(t *testing.T) {
	p, _ := newTestProbe(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		el      *browsertest.Element
		wantOK  bool
		wantErr bool
	}{
		{"large enough", browsertest.NewElement("a", entities.BoundingBox{Width: 120, Height: 120}, ""), true, false},
		{"too small", browsertest.NewElement("b", entities.BoundingBox{Width: 99, Height: 300}, ""), false, false},
		{"not rendered", &browsertest.Element{Name: "c"}, false, false},
		{"box query fails", &browsertest.Element{Name: "d", BoxErr: browsertest.ErrBroken}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := p.Measure(ctx, tt.el, entities.MinProductContainer)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr {
				var perr *Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, OpMeasure, perr.Op)
				assert.ErrorIs(t, err, browsertest.ErrBroken)
			} else {
				assert.NoError(t, err)
			}
			assert.Zero(t, tt.el.Screenshots)
		})
	}
}

func TestInspect_ElementCapture(t *testing.T) {
	p, dir := newTestProbe(t)
	page := browsertest.NewPage("p1")
	el := browsertest.NewElement("card", entities.BoundingBox{Width: 200, Height: 200}, "  Mug $12.99  \n")
	rec := &browsertest.Recognizer{}

	res := p.Inspect(context.Background(), page, el, *el.Box, rec, Options{Label: "product"})

	require.NoError(t, res.Err)
	assert.Equal(t, "Mug $12.99", res.Signal())
	assert.Equal(t, 1, el.Screenshots)
	assert.Zero(t, page.RegionShots)
	assertNoSamples(t, dir)
}

func TestInspect_RegionCapture(t *testing.T) {
	p, dir := newTestProbe(t)
	el := browsertest.NewElement("input", entities.BoundingBox{X: 100, Y: 100, Width: 300, Height: 30}, "Search products")
	page := browsertest.NewPage("p1").Add("input", el)

	var seen entities.VisualSample
	rec := interfaces.RecognizerFunc(func(ctx context.Context, sample entities.VisualSample) (string, error) {
		seen = sample
		data, err := os.ReadFile(sample.Path)
		return string(data), err
	})

	res := p.Inspect(context.Background(), page, el, *el.Box, rec, Options{Margin: 40, Label: "input"})

	require.NoError(t, res.Err)
	assert.Equal(t, "Search products", res.Text)
	assert.Equal(t, entities.BoundingBox{X: 60, Y: 60, Width: 380, Height: 110}, seen.Region)
	assert.Equal(t, []entities.BoundingBox{seen.Region}, page.Regions)
	assert.Zero(t, el.Screenshots)
	assertNoSamples(t, dir)
}

func TestInspect_Failures(t *testing.T) {
	tests := []struct {
		name   string
		el     *browsertest.Element
		rec    *browsertest.Recognizer
		wantOp string
	}{
		{
			name:   "capture fails",
			el:     &browsertest.Element{Name: "x", Box: &entities.BoundingBox{Width: 200, Height: 200}, ScreenshotErr: browsertest.ErrBroken},
			rec:    &browsertest.Recognizer{},
			wantOp: OpCapture,
		},
		{
			name:   "recognizer fails",
			el:     browsertest.NewElement("y", entities.BoundingBox{Width: 200, Height: 200}, "text"),
			rec:    &browsertest.Recognizer{Err: browsertest.ErrBroken},
			wantOp: OpRecognize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dir := newTestProbe(t)

			res := p.Inspect(context.Background(), browsertest.NewPage("p1"), tt.el, *tt.el.Box, tt.rec, Options{})

			var perr *Error
			require.ErrorAs(t, res.Err, &perr)
			assert.Equal(t, tt.wantOp, perr.Op)
			assert.ErrorIs(t, res.Err, browsertest.ErrBroken)
			assert.Empty(t, res.Signal())
			assertNoSamples(t, dir)
		})
	}
}

func TestInspect_CanceledContext(t *testing.T) {
	p, _ := newTestProbe(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	el := browsertest.NewElement("card", entities.BoundingBox{Width: 200, Height: 200}, "text")
	rec := &browsertest.Recognizer{}

	res := p.Inspect(ctx, browsertest.NewPage("p1"), el, *el.Box, rec, Options{})

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Zero(t, el.Screenshots)
	assert.Zero(t, rec.Calls)
}
