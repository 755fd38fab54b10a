// Package probe captures candidate elements as images and hands them to a recognizer.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Probe operations reported in Error.Op
const (
	OpMeasure   = "measure"
	OpCapture   = "capture"
	OpRecognize = "recognize"
)

// Error is a per-candidate probe failure. Locators treat it as "no signal".
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is the outcome of probing one candidate
type Result struct {
	Text string
	Err  error
}

// Signal returns the extracted text, or "" when probing failed
func (r Result) Signal() string {
	if r.Err != nil {
		return ""
	}
	return r.Text
}

// Options controls a single capture
type Options struct {
	// Margin pads the element box; a positive margin captures the viewport
	// region around the element instead of the element itself
	Margin float64

	// Label prefixes the temporary sample file name
	Label string
}

// Probe turns candidate elements into recognized text
type Probe struct {
	samplesDir string
	logger     *logrus.Logger
}

// NewProbe - creates new probe writing samples under samplesDir
func NewProbe(samplesDir string, logger *logrus.Logger) (*Probe, error) {
	if samplesDir == "" {
		samplesDir = os.TempDir()
	}
	if err := os.MkdirAll(samplesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create samples directory: %w", err)
	}
	return &Probe{
		samplesDir: samplesDir,
		logger:     logger,
	}, nil
}

// Measure returns the element's box and whether it passes the size filter.
// Candidates that fail here must never be captured.
func (p *Probe) Measure(ctx context.Context, el interfaces.Element, min entities.Size) (entities.BoundingBox, bool, error) {
	box, err := el.BoundingBox(ctx)
	if err != nil {
		return entities.BoundingBox{}, false, &Error{Op: OpMeasure, Err: err}
	}
	if box == nil || box.Below(min) {
		return entities.BoundingBox{}, false, nil
	}
	return *box, true, nil
}

// Inspect captures the candidate and recognizes the sample with rec.
// The sample file is removed before Inspect returns.
func (p *Probe) Inspect(ctx context.Context, page interfaces.Page, el interfaces.Element, box entities.BoundingBox, rec interfaces.Recognizer, opts Options) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: &Error{Op: OpCapture, Err: err}}
	}

	sample := entities.VisualSample{
		Path:   p.samplePath(opts.Label),
		Region: box,
	}
	defer p.discard(sample.Path)

	var err error
	if opts.Margin > 0 {
		sample.Region = box.Pad(opts.Margin)
		err = page.ScreenshotRegion(ctx, sample.Region, sample.Path)
	} else {
		err = el.Screenshot(ctx, sample.Path)
	}
	if err != nil {
		return Result{Err: &Error{Op: OpCapture, Err: err}}
	}

	text, err := rec.Recognize(ctx, sample)
	if err != nil {
		return Result{Err: &Error{Op: OpRecognize, Err: err}}
	}
	return Result{Text: strings.TrimSpace(text)}
}

func (p *Probe) samplePath(label string) string {
	if label == "" {
		label = "sample"
	}
	return filepath.Join(p.samplesDir, fmt.Sprintf("%s-%s.png", label, uuid.NewString()))
}

func (p *Probe) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warnf("failed to remove sample %s: %v", path, err)
	}
}
