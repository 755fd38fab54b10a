package interfaces

import (
	"context"
	"errors"
	"time"

	"cartbot/domain/entities"
)

// ErrWaitTimeout is returned by wait primitives whose condition did not hold in time
var ErrWaitTimeout = errors.New("wait timed out")

// LoadState is a page readiness condition
type LoadState string

const (
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateLoad             LoadState = "load"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// Element is a handle to an element of a live page
type Element interface {
	// BoundingBox returns the element's viewport box, or nil when it is not rendered
	BoundingBox(ctx context.Context) (*entities.BoundingBox, error)

	// Screenshot writes a PNG of just this element to path
	Screenshot(ctx context.Context, path string) error

	// QueryFirst returns the first descendant matching selector, or nil
	QueryFirst(ctx context.Context, selector string) (Element, error)

	// Click clicks the element clickCount times
	Click(ctx context.Context, clickCount int) error

	// Type types text into the element key by key
	Type(ctx context.Context, text string) error
}

// Page is a single browser tab
type Page interface {
	// ID identifies the tab for the lifetime of the session
	ID() string

	// Navigate loads url and waits for the given state
	Navigate(ctx context.Context, url string, state LoadState) error

	// WaitForLoad waits for the given state, returning ErrWaitTimeout after timeout
	WaitForLoad(ctx context.Context, state LoadState, timeout time.Duration) error

	// QueryFirst returns the first element matching selector, or nil
	QueryFirst(ctx context.Context, selector string) (Element, error)

	// QueryAll returns every element matching selector in document order
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// ScreenshotRegion writes a PNG of the viewport region to path
	ScreenshotRegion(ctx context.Context, region entities.BoundingBox, path string) error

	// MoveMouse moves the pointer to p
	MoveMouse(ctx context.Context, p entities.Point) error

	// ClickAt clicks at p clickCount times
	ClickAt(ctx context.Context, p entities.Point, clickCount int) error

	// PressKey dispatches a single named key, e.g. "Enter"
	PressKey(ctx context.Context, key string) error

	// PressKeyAndWaitForNavigation arms a navigation wait, dispatches key and
	// waits until the navigation it starts has loaded a new document. It returns
	// ErrWaitTimeout when no navigation completes within timeout; a timeout <= 0
	// dispatches the key without waiting.
	PressKeyAndWaitForNavigation(ctx context.Context, key string, timeout time.Duration) error

	// Highlight draws a transient marker at p
	Highlight(ctx context.Context, p entities.Point) error

	// BringToFront activates the tab
	BringToFront(ctx context.Context) error
}

// Session is a browser session owning a set of tabs
type Session interface {
	// NewPage opens a new tab
	NewPage(ctx context.Context) (Page, error)

	// Pages returns the currently open tabs
	Pages(ctx context.Context) ([]Page, error)

	// Close closes the browser
	Close() error
}
