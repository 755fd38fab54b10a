// Package browsertest provides in-memory implementations of the browser
// interfaces for tests. Screenshots write the element's Text into the sample
// file so that Recognizer can read it back.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"
)

// Element is a fake element
type Element struct {
	Name          string
	Text          string
	Box           *entities.BoundingBox
	BoxErr        error
	ScreenshotErr error
	Children      map[string]*Element

	Screenshots int
	Clicks      []int
	Typed       []string
}

// NewElement - creates element with a box and the text its screenshot carries
func NewElement(name string, box entities.BoundingBox, text string) *Element {
	return &Element{Name: name, Text: text, Box: &box}
}

func (e *Element) BoundingBox(ctx context.Context) (*entities.BoundingBox, error) {
	if e.BoxErr != nil {
		return nil, e.BoxErr
	}
	if e.Box == nil {
		return nil, nil
	}
	box := *e.Box
	return &box, nil
}

func (e *Element) Screenshot(ctx context.Context, path string) error {
	e.Screenshots++
	if e.ScreenshotErr != nil {
		return e.ScreenshotErr
	}
	return os.WriteFile(path, []byte(e.Text), 0644)
}

func (e *Element) QueryFirst(ctx context.Context, selector string) (interfaces.Element, error) {
	child, ok := e.Children[selector]
	if !ok {
		return nil, nil
	}
	return child, nil
}

func (e *Element) Click(ctx context.Context, clickCount int) error {
	e.Clicks = append(e.Clicks, clickCount)
	return nil
}

func (e *Element) Type(ctx context.Context, text string) error {
	e.Typed = append(e.Typed, text)
	return nil
}

// Page is a fake tab. Queries answer from Selectors in insertion order.
// Selectors is the current document; CommitNavigation replaces it.
type Page struct {
	PageID      string
	Selectors   map[string][]*Element
	QueryErr    map[string]error
	NavigateErr error
	WaitErr     error

	// OnClick runs after every ClickAt, e.g. to spawn a tab
	OnClick func(p entities.Point, clickCount int)
	// OnKey runs after every key press, e.g. to start a navigation
	OnKey func(key string)

	Events      []string
	Navigated   []string
	RegionShots int
	Regions     []entities.BoundingBox

	mu        sync.Mutex
	documents int
	committed chan struct{}
}

// NewPage - creates empty page
func NewPage(id string) *Page {
	return &Page{
		PageID:    id,
		Selectors: make(map[string][]*Element),
		QueryErr:  make(map[string]error),
		committed: make(chan struct{}, 1),
	}
}

// Add registers elements answering selector
func (p *Page) Add(selector string, elements ...*Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Selectors[selector] = append(p.Selectors[selector], elements...)
	return p
}

// CommitNavigation replaces the document, as when a navigation commits.
// It may be called from another goroutine.
func (p *Page) CommitNavigation(selectors map[string][]*Element) {
	p.mu.Lock()
	p.Selectors = selectors
	p.documents++
	p.mu.Unlock()
	select {
	case p.committed <- struct{}{}:
	default:
	}
}

func (p *Page) lookup(selector string) ([]*Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.QueryErr[selector]; err != nil {
		return nil, err
	}
	return p.Selectors[selector], nil
}

func (p *Page) documentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.documents
}

func (p *Page) ID() string {
	return p.PageID
}

func (p *Page) Navigate(ctx context.Context, url string, state interfaces.LoadState) error {
	p.Navigated = append(p.Navigated, url)
	p.record("navigate %s", url)
	return p.NavigateErr
}

func (p *Page) WaitForLoad(ctx context.Context, state interfaces.LoadState, timeout time.Duration) error {
	p.record("wait %s", state)
	return p.WaitErr
}

func (p *Page) QueryFirst(ctx context.Context, selector string) (interfaces.Element, error) {
	found, err := p.lookup(selector)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	found, err := p.lookup(selector)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.Element, 0, len(found))
	for _, el := range found {
		out = append(out, el)
	}
	return out, nil
}

// ScreenshotRegion writes the text of the first known element whose center lies in region
func (p *Page) ScreenshotRegion(ctx context.Context, region entities.BoundingBox, path string) error {
	p.RegionShots++
	p.Regions = append(p.Regions, region)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, els := range p.Selectors {
		for _, el := range els {
			if el.Box == nil {
				continue
			}
			c := el.Box.Center()
			if c.X >= region.X && c.X <= region.X+region.Width && c.Y >= region.Y && c.Y <= region.Y+region.Height {
				if el.ScreenshotErr != nil {
					return el.ScreenshotErr
				}
				return os.WriteFile(path, []byte(el.Text), 0644)
			}
		}
	}
	return os.WriteFile(path, nil, 0644)
}

func (p *Page) MoveMouse(ctx context.Context, pt entities.Point) error {
	p.record("move %.0f,%.0f", pt.X, pt.Y)
	return nil
}

func (p *Page) ClickAt(ctx context.Context, pt entities.Point, clickCount int) error {
	p.record("click %.0f,%.0f x%d", pt.X, pt.Y, clickCount)
	if p.OnClick != nil {
		p.OnClick(pt, clickCount)
	}
	return nil
}

func (p *Page) PressKey(ctx context.Context, key string) error {
	p.record("key %s", key)
	if p.OnKey != nil {
		p.OnKey(key)
	}
	return nil
}

// PressKeyAndWaitForNavigation waits for a CommitNavigation issued after the press
func (p *Page) PressKeyAndWaitForNavigation(ctx context.Context, key string, timeout time.Duration) error {
	before := p.documentCount()
	select {
	case <-p.committed:
	default:
	}
	if err := p.PressKey(ctx, key); err != nil {
		return err
	}
	if timeout <= 0 {
		return nil
	}
	p.record("await navigation")

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for p.documentCount() == before {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: no navigation after %s", interfaces.ErrWaitTimeout, key)
		case <-p.committed:
		}
	}
	return nil
}

func (p *Page) Highlight(ctx context.Context, pt entities.Point) error {
	p.record("highlight %.0f,%.0f", pt.X, pt.Y)
	return nil
}

func (p *Page) BringToFront(ctx context.Context) error {
	p.record("front")
	return nil
}

func (p *Page) record(format string, args ...interface{}) {
	p.Events = append(p.Events, fmt.Sprintf(format, args...))
}

// Session is a fake browser session
type Session struct {
	mu     sync.Mutex
	pages  []interfaces.Page
	Closed bool
}

// NewSession - creates session with the given open tabs
func NewSession(pages ...interfaces.Page) *Session {
	return &Session{pages: pages}
}

// Open adds a tab as if the browser spawned it
func (s *Session) Open(p interfaces.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
}

func (s *Session) NewPage(ctx context.Context) (interfaces.Page, error) {
	p := NewPage(fmt.Sprintf("page-%d", len(s.pages)))
	s.Open(p)
	return p, nil
}

func (s *Session) Pages(ctx context.Context) ([]interfaces.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]interfaces.Page, len(s.pages))
	copy(out, s.pages)
	return out, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Recognizer reads back the text written by fake screenshots
type Recognizer struct {
	Calls int
	Err   error
	Seen  []string
}

func (r *Recognizer) Recognize(ctx context.Context, sample entities.VisualSample) (string, error) {
	r.Calls++
	if r.Err != nil {
		return "", r.Err
	}
	data, err := os.ReadFile(sample.Path)
	if err != nil {
		return "", err
	}
	r.Seen = append(r.Seen, string(data))
	return string(data), nil
}

// ErrBroken is a generic failure for tests
var ErrBroken = errors.New("broken")
