package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"go.uber.org/multierr"
)

var _ interfaces.Session = (*SeleniumSession)(nil)

const readyPollInterval = 100 * time.Millisecond

// SeleniumSession is a Chrome session driven through ChromeDriver.
// WebDriver addresses one window at a time, so every page operation first
// focuses the page's window.
type SeleniumSession struct {
	wd      selenium.WebDriver
	service *selenium.Service
	logger  *logrus.Logger
	opts    Options

	mu      sync.Mutex
	current string
	pages   map[string]*seleniumPage
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("chromedriver not found. Please install it or set BROWSER_DRIVER_PATH environment variable")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// NewSeleniumSession - starts ChromeDriver and opens a Chrome window
func NewSeleniumSession(opts Options, logger *logrus.Logger) (*SeleniumSession, error) {
	opts.NavigationTimeout = orDefault(opts.NavigationTimeout, 30*time.Second)
	opts.ActionTimeout = orDefault(opts.ActionTimeout, 10*time.Second)
	if opts.DriverPort == 0 {
		opts.DriverPort = 9515
	}

	driverPath, err := findChromeDriver(opts.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	service, err := selenium.NewChromeDriverService(driverPath, opts.DriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	args := append([]string{"--window-size=1280,720"}, launchArgs...)
	args = append(args, "--user-agent="+RandomUserAgent())
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	chromeCaps := chrome.Capabilities{Args: args}
	if binary := findChromeBinary(opts.ChromeBinary); binary != "" {
		logger.Infof("Using Chrome binary at: %s", binary)
		chromeCaps.Path = binary
	}
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", opts.DriverPort))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found. Please install Google Chrome or set CHROME_BINARY_PATH environment variable. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}
	if err := wd.SetPageLoadTimeout(opts.NavigationTimeout); err != nil {
		logger.Warnf("Failed to set page load timeout: %v", err)
	}

	s := &SeleniumSession{
		wd:      wd,
		service: service,
		logger:  logger,
		opts:    opts,
		pages:   make(map[string]*seleniumPage),
	}
	if s.current, err = wd.CurrentWindowHandle(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to read window handle: %w", err)
	}
	return s, nil
}

func (s *SeleniumSession) NewPage(ctx context.Context) (interfaces.Page, error) {
	before, err := s.wd.WindowHandles()
	if err != nil {
		return nil, err
	}
	if _, err := s.wd.ExecuteScript("window.open('about:blank', '_blank');", nil); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	after, err := s.wd.WindowHandles()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(before))
	for _, h := range before {
		known[h] = true
	}
	for _, h := range after {
		if !known[h] {
			return s.wrap(h), nil
		}
	}
	return nil, fmt.Errorf("failed to create page: no new window")
}

// Pages returns one page per open window
func (s *SeleniumSession) Pages(ctx context.Context) ([]interfaces.Page, error) {
	handles, err := s.wd.WindowHandles()
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.Page, 0, len(handles))
	for _, h := range handles {
		out = append(out, s.wrap(h))
	}
	return out, nil
}

func (s *SeleniumSession) wrap(handle string) *seleniumPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pages[handle]; ok {
		return p
	}
	p := &seleniumPage{handle: handle, session: s}
	s.pages[handle] = p
	return p
}

// focus makes handle the window WebDriver commands apply to
func (s *SeleniumSession) focus(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == handle {
		return nil
	}
	if err := s.wd.SwitchWindow(handle); err != nil {
		return fmt.Errorf("failed to switch to window %s: %w", handle, err)
	}
	s.current = handle
	return nil
}

// Close - closes browser and stops ChromeDriver service
func (s *SeleniumSession) Close() error {
	var closeErr error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil && !isClosedErr(err) {
			closeErr = multierr.Append(closeErr, fmt.Errorf("failed to quit webdriver: %w", err))
		}
		s.wd = nil
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			closeErr = multierr.Append(closeErr, fmt.Errorf("failed to stop chromedriver: %w", err))
		}
		s.service = nil
	}
	return closeErr
}

type seleniumPage struct {
	handle  string
	session *SeleniumSession
}

func (p *seleniumPage) ID() string {
	return p.handle
}

func (p *seleniumPage) wd() (selenium.WebDriver, error) {
	if err := p.session.focus(p.handle); err != nil {
		return nil, err
	}
	return p.session.wd, nil
}

func (p *seleniumPage) Navigate(ctx context.Context, url string, state interfaces.LoadState) error {
	wd, err := p.wd()
	if err != nil {
		return err
	}
	if err := wd.Get(url); err != nil {
		return err
	}
	return p.WaitForLoad(ctx, state, p.session.opts.NavigationTimeout)
}

// WaitForLoad polls document.readyState. Network idle has no WebDriver
// equivalent and is treated as "complete".
func (p *seleniumPage) WaitForLoad(ctx context.Context, state interfaces.LoadState, timeout time.Duration) error {
	if timeout <= 0 {
		return ctx.Err()
	}
	wd, err := p.wd()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		ready, err := wd.ExecuteScript("return document.readyState;", nil)
		if err != nil {
			return err
		}
		if readyFor(state, fmt.Sprint(ready)) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", interfaces.ErrWaitTimeout, state, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

func readyFor(state interfaces.LoadState, readyState string) bool {
	switch readyState {
	case "complete":
		return true
	case "interactive":
		return state == interfaces.LoadStateDOMContentLoaded
	}
	return false
}

func (p *seleniumPage) QueryFirst(ctx context.Context, selector string) (interfaces.Element, error) {
	all, err := p.QueryAll(ctx, selector)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (p *seleniumPage) QueryAll(ctx context.Context, selector string) ([]interfaces.Element, error) {
	wd, err := p.wd()
	if err != nil {
		return nil, err
	}
	found, err := wd.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.Element, 0, len(found))
	for _, el := range found {
		out = append(out, &seleniumElement{el: el, page: p})
	}
	return out, nil
}

// ScreenshotRegion crops a viewport screenshot, scaled by the device pixel ratio
func (p *seleniumPage) ScreenshotRegion(ctx context.Context, region entities.BoundingBox, path string) error {
	wd, err := p.wd()
	if err != nil {
		return err
	}
	shot, err := wd.Screenshot()
	if err != nil {
		return err
	}
	img, err := imaging.Decode(bytes.NewReader(shot))
	if err != nil {
		return fmt.Errorf("failed to decode screenshot: %w", err)
	}

	scale := 1.0
	if ratio, err := wd.ExecuteScript("return window.devicePixelRatio;", nil); err == nil {
		if r, ok := ratio.(float64); ok && r > 0 {
			scale = r
		}
	}
	rect := image.Rect(
		int(math.Floor(region.X*scale)),
		int(math.Floor(region.Y*scale)),
		int(math.Ceil((region.X+region.Width)*scale)),
		int(math.Ceil((region.Y+region.Height)*scale)),
	)
	return imaging.Save(imaging.Crop(img, rect), path)
}

// pointerScript dispatches mouse events to the element under (x, y).
// The WebDriver client has no W3C actions, so the pointer is synthesized in page.
const pointerScript = `
	var x = arguments[0], y = arguments[1], clicks = arguments[2];
	var target = document.elementFromPoint(x, y);
	if (!target) { return false; }
	var fire = function(type, detail) {
		target.dispatchEvent(new MouseEvent(type, {
			bubbles: true, cancelable: true, view: window,
			clientX: x, clientY: y, button: 0, detail: detail
		}));
	};
	fire('mousemove', 0);
	fire('mouseover', 0);
	for (var i = 1; i <= clicks; i++) {
		fire('mousedown', i);
		fire('mouseup', i);
		if (i === 1) { target.click(); } else { fire('click', i); }
	}
	if (clicks >= 2) { fire('dblclick', 2); }
	return true;
`

func (p *seleniumPage) dispatchPointer(pt entities.Point, clickCount int) error {
	wd, err := p.wd()
	if err != nil {
		return err
	}
	hit, err := wd.ExecuteScript(pointerScript, []interface{}{pt.X, pt.Y, clickCount})
	if err != nil {
		return err
	}
	if ok, _ := hit.(bool); !ok {
		return fmt.Errorf("no element at %.0f,%.0f", pt.X, pt.Y)
	}
	return nil
}

func (p *seleniumPage) MoveMouse(ctx context.Context, pt entities.Point) error {
	return p.dispatchPointer(pt, 0)
}

func (p *seleniumPage) ClickAt(ctx context.Context, pt entities.Point, clickCount int) error {
	return p.dispatchPointer(pt, clickCount)
}

var seleniumKeys = map[string]string{
	"Enter":  selenium.EnterKey,
	"Tab":    selenium.TabKey,
	"Escape": selenium.EscapeKey,
}

// PressKey sends the key to the focused element
func (p *seleniumPage) PressKey(ctx context.Context, key string) error {
	wd, err := p.wd()
	if err != nil {
		return err
	}
	code, ok := seleniumKeys[key]
	if !ok {
		code = key
	}
	active, err := wd.ActiveElement()
	if err != nil {
		return fmt.Errorf("no focused element: %w", err)
	}
	return active.SendKeys(code)
}

// documentMarkScript tags the current document; a navigation replaces the
// window's globals, so the tag disappears once a new document has committed
const (
	documentMarkScript  = `window.__cartbotDocument = arguments[0]; return true;`
	documentStateScript = `return [window.__cartbotDocument === arguments[0], document.readyState];`
)

// PressKeyAndWaitForNavigation marks the document, sends key and polls until
// a different document has reached DOMContentLoaded
func (p *seleniumPage) PressKeyAndWaitForNavigation(ctx context.Context, key string, timeout time.Duration) error {
	if timeout <= 0 {
		return p.PressKey(ctx, key)
	}
	wd, err := p.wd()
	if err != nil {
		return err
	}
	mark := uuid.NewString()
	if _, err := wd.ExecuteScript(documentMarkScript, []interface{}{mark}); err != nil {
		return fmt.Errorf("failed to mark document: %w", err)
	}
	if err := p.PressKey(ctx, key); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		// script errors while the old document unloads are expected, keep polling
		if raw, err := wd.ExecuteScript(documentStateScript, []interface{}{mark}); err == nil {
			if state, ok := raw.([]interface{}); ok && len(state) == 2 {
				same, _ := state[0].(bool)
				if !same && readyFor(interfaces.LoadStateDOMContentLoaded, fmt.Sprint(state[1])) {
					return nil
				}
			}
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: no navigation after %s within %s", interfaces.ErrWaitTimeout, key, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

func (p *seleniumPage) Highlight(ctx context.Context, pt entities.Point) error {
	wd, err := p.wd()
	if err != nil {
		return err
	}
	_, err = wd.ExecuteScript("var x = arguments[0], y = arguments[1];"+highlightBody, []interface{}{pt.X, pt.Y})
	return err
}

func (p *seleniumPage) BringToFront(ctx context.Context) error {
	_, err := p.wd()
	return err
}

type seleniumElement struct {
	el   selenium.WebElement
	page *seleniumPage
}

const boundingRectScript = `
	var r = arguments[0].getBoundingClientRect();
	return [r.left, r.top, r.width, r.height];
`

func (e *seleniumElement) BoundingBox(ctx context.Context) (*entities.BoundingBox, error) {
	wd, err := e.page.wd()
	if err != nil {
		return nil, err
	}
	raw, err := wd.ExecuteScript(boundingRectScript, []interface{}{e.el})
	if err != nil {
		return nil, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("unexpected bounding rect %v", raw)
	}
	var f [4]float64
	for i, v := range values {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("unexpected bounding rect value %v", v)
		}
		f[i] = n
	}
	if f[2] == 0 && f[3] == 0 {
		return nil, nil
	}
	return &entities.BoundingBox{X: f[0], Y: f[1], Width: f[2], Height: f[3]}, nil
}

func (e *seleniumElement) Screenshot(ctx context.Context, path string) error {
	if _, err := e.page.wd(); err != nil {
		return err
	}
	data, err := e.el.Screenshot(true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (e *seleniumElement) QueryFirst(ctx context.Context, selector string) (interfaces.Element, error) {
	if _, err := e.page.wd(); err != nil {
		return nil, err
	}
	found, err := e.el.FindElements(selenium.ByCSSSelector, selector)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &seleniumElement{el: found[0], page: e.page}, nil
}

func (e *seleniumElement) Click(ctx context.Context, clickCount int) error {
	if _, err := e.page.wd(); err != nil {
		return err
	}
	for i := 0; i < clickCount; i++ {
		if err := e.el.Click(); err != nil {
			return err
		}
	}
	return nil
}

func (e *seleniumElement) Type(ctx context.Context, text string) error {
	if _, err := e.page.wd(); err != nil {
		return err
	}
	for _, char := range text {
		if err := e.el.SendKeys(string(char)); err != nil {
			return fmt.Errorf("failed to type character: %w", err)
		}
	}
	return nil
}
