package interfaces

import (
	"context"

	"cartbot/domain/entities"
)

// Recognizer extracts plain text from a visual sample.
// An empty string means no text; errors are reserved for transport failures.
type Recognizer interface {
	Recognize(ctx context.Context, sample entities.VisualSample) (string, error)
}

// RecognizerFunc adapts a function to Recognizer
type RecognizerFunc func(ctx context.Context, sample entities.VisualSample) (string, error)

// Recognize calls f
func (f RecognizerFunc) Recognize(ctx context.Context, sample entities.VisualSample) (string, error) {
	return f(ctx, sample)
}
