package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var _ interfaces.Session = (*PlaywrightSession)(nil)

// PlaywrightSession is a Chromium session driven by playwright
type PlaywrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *logrus.Logger
	opts    Options

	pagesMutex sync.Mutex
	pages      map[playwright.Page]*playwrightPage
}

// NewPlaywrightSession - launches Chromium with one open tab
func NewPlaywrightSession(opts Options, logger *logrus.Logger) (*PlaywrightSession, error) {
	opts.NavigationTimeout = orDefault(opts.NavigationTimeout, 30*time.Second)
	opts.ActionTimeout = orDefault(opts.ActionTimeout, 10*time.Second)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	userAgent := RandomUserAgent()
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		JavaScriptEnabled: playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
		UserAgent:         playwright.String(userAgent),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))
	bctx.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))

	s := &PlaywrightSession{
		pw:      pw,
		browser: browser,
		context: bctx,
		logger:  logger,
		opts:    opts,
		pages:   make(map[playwright.Page]*playwrightPage),
	}

	bctx.OnPage(func(p playwright.Page) {
		p.OnDialog(func(dialog playwright.Dialog) {
			dialog.Accept()
		})
	})

	if _, err := s.NewPage(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	logger.Infof("Browser launched (headless=%t, user agent %q)", opts.Headless, userAgent)
	return s, nil
}

func (s *PlaywrightSession) NewPage(ctx context.Context) (interfaces.Page, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return s.wrap(page), nil
}

// Pages returns the open tabs in creation order
func (s *PlaywrightSession) Pages(ctx context.Context) ([]interfaces.Page, error) {
	open := s.context.Pages()
	out := make([]interfaces.Page, 0, len(open))
	for _, p := range open {
		if p.IsClosed() {
			continue
		}
		out = append(out, s.wrap(p))
	}
	return out, nil
}

// wrap returns the stable wrapper of p so that a tab keeps its ID
func (s *PlaywrightSession) wrap(p playwright.Page) *playwrightPage {
	s.pagesMutex.Lock()
	defer s.pagesMutex.Unlock()

	if wrapped, ok := s.pages[p]; ok {
		return wrapped
	}
	wrapped := &playwrightPage{id: uuid.NewString(), page: p, opts: s.opts}
	s.pages[p] = wrapped
	p.OnClose(func(closed playwright.Page) {
		s.pagesMutex.Lock()
		defer s.pagesMutex.Unlock()
		delete(s.pages, closed)
	})
	return wrapped
}

// Close - closes the context, the browser and the driver
func (s *PlaywrightSession) Close() error {
	var closeErr error
	if s.context != nil {
		if err := s.context.Close(); err != nil && !isClosedErr(err) {
			closeErr = multierr.Append(closeErr, fmt.Errorf("failed to close context: %w", err))
		}
		s.context = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && !isClosedErr(err) {
			closeErr = multierr.Append(closeErr, fmt.Errorf("failed to close browser: %w", err))
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			closeErr = multierr.Append(closeErr, fmt.Errorf("failed to stop playwright: %w", err))
		}
		s.pw = nil
	}
	return closeErr
}

type playwrightPage struct {
	id   string
	page playwright.Page
	opts Options
}

func (p *playwrightPage) ID() string {
	return p.id
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, state interfaces.LoadState) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil(state),
		Timeout:   playwright.Float(millis(p.opts.NavigationTimeout)),
	})
	return err
}

func (p *playwrightPage) WaitForLoad(ctx context.Context, state interfaces.LoadState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		return nil
	}
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState(state),
		Timeout: playwright.Float(millis(timeout)),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s after %s", interfaces.ErrWaitTimeout, state, timeout)
	}
	return err
}

func (p *playwrightPage) QueryFirst(ctx context.Context, selector string) (interfaces.Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle, opts: p.opts}, nil
}

func (p *playwrightPage) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &playwrightElement{handle: h, opts: p.opts})
	}
	return out, nil
}

func (p *playwrightPage) ScreenshotRegion(ctx context.Context, region entities.BoundingBox, path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
		Clip: &playwright.Rect{
			X:      region.X,
			Y:      region.Y,
			Width:  region.Width,
			Height: region.Height,
		},
		Timeout: playwright.Float(millis(p.opts.ActionTimeout)),
	})
	return err
}

func (p *playwrightPage) MoveMouse(ctx context.Context, pt entities.Point) error {
	return p.page.Mouse().Move(pt.X, pt.Y)
}

func (p *playwrightPage) ClickAt(ctx context.Context, pt entities.Point, clickCount int) error {
	return p.page.Mouse().Click(pt.X, pt.Y, playwright.MouseClickOptions{
		ClickCount: playwright.Int(clickCount),
	})
}

func (p *playwrightPage) PressKey(ctx context.Context, key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) PressKeyAndWaitForNavigation(ctx context.Context, key string, timeout time.Duration) error {
	if timeout <= 0 {
		return p.PressKey(ctx, key)
	}
	_, err := p.page.ExpectNavigation(func() error {
		return p.PressKey(ctx, key)
	}, playwright.PageExpectNavigationOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(timeout)),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: no navigation after %s within %s", interfaces.ErrWaitTimeout, key, timeout)
	}
	return err
}

func (p *playwrightPage) Highlight(ctx context.Context, pt entities.Point) error {
	_, err := p.page.Evaluate("({x, y}) => {"+highlightBody+"}", map[string]float64{
		"x": pt.X,
		"y": pt.Y,
	})
	return err
}

func (p *playwrightPage) BringToFront(ctx context.Context) error {
	return p.page.BringToFront()
}

type playwrightElement struct {
	handle playwright.ElementHandle
	opts   Options
}

func (e *playwrightElement) BoundingBox(ctx context.Context) (*entities.BoundingBox, error) {
	rect, err := e.handle.BoundingBox()
	if err != nil {
		return nil, err
	}
	if rect == nil {
		return nil, nil
	}
	return &entities.BoundingBox{
		X:      rect.X,
		Y:      rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
	}, nil
}

func (e *playwrightElement) Screenshot(ctx context.Context, path string) error {
	_, err := e.handle.Screenshot(playwright.ElementHandleScreenshotOptions{
		Path:    playwright.String(path),
		Timeout: playwright.Float(millis(e.opts.ActionTimeout)),
	})
	return err
}

func (e *playwrightElement) QueryFirst(ctx context.Context, selector string) (interfaces.Element, error) {
	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle, opts: e.opts}, nil
}

func (e *playwrightElement) Click(ctx context.Context, clickCount int) error {
	return e.handle.Click(playwright.ElementHandleClickOptions{
		ClickCount: playwright.Int(clickCount),
		Timeout:    playwright.Float(millis(e.opts.ActionTimeout)),
	})
}

func (e *playwrightElement) Type(ctx context.Context, text string) error {
	return e.handle.Type(text, playwright.ElementHandleTypeOptions{
		Timeout: playwright.Float(millis(e.opts.ActionTimeout)),
	})
}

func waitUntil(state interfaces.LoadState) *playwright.WaitUntilState {
	switch state {
	case interfaces.LoadStateLoad:
		return playwright.WaitUntilStateLoad
	case interfaces.LoadStateNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateDomcontentloaded
	}
}

func loadState(state interfaces.LoadState) *playwright.LoadState {
	switch state {
	case interfaces.LoadStateLoad:
		return playwright.LoadStateLoad
	case interfaces.LoadStateNetworkIdle:
		return playwright.LoadStateNetworkidle
	default:
		return playwright.LoadStateDomcontentloaded
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
