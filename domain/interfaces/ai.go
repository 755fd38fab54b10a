package interfaces

import (
	"context"

	"cartbot/domain/entities"
)

// Classifier is the text-completion service used by the run
type Classifier interface {
	// ParseIntent turns a free-text command into an Intent
	ParseIntent(ctx context.Context, command string) (entities.Intent, error)

	// ClassifySearchField asks whether text found near an input indicates a
	// shopping search bar and returns the raw verdict
	ClassifySearchField(ctx context.Context, nearbyText string) (string, error)
}
