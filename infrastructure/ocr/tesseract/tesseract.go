// Package tesseract is the offline recognizer backed by libtesseract.
package tesseract

import (
	"context"
	"strings"
	"sync"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
)

var _ interfaces.Recognizer = (*Recognizer)(nil)

// Recognizer runs Tesseract locally with the English model.
// A gosseract client is not safe for concurrent use, calls are serialized.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *logrus.Logger
}

func NewRecognizer(logger *logrus.Logger) (*Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, err
	}
	return &Recognizer{client: client, logger: logger}, nil
}

// Recognize returns the trimmed text of the sample, or "" when Tesseract fails
func (r *Recognizer) Recognize(ctx context.Context, sample entities.VisualSample) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImage(sample.Path); err != nil {
		r.logger.Warnf("Tesseract OCR error: %v", err)
		return "", nil
	}
	text, err := r.client.Text()
	if err != nil {
		r.logger.Warnf("Tesseract OCR error: %v", err)
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
