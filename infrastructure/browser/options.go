// Package browser implements the browser session on top of playwright-go
// (default) and tebeka/selenium.
package browser

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Options configures a browser session
type Options struct {
	Headless bool

	// NavigationTimeout bounds page loads
	NavigationTimeout time.Duration
	// ActionTimeout bounds element queries, captures and input
	ActionTimeout time.Duration

	// selenium only
	DriverPath   string
	ChromeBinary string
	DriverPort   int
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// RandomUserAgent picks a desktop user agent for the session
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

var launchArgs = []string{
	"--disable-popup-blocking",
	"--disable-blink-features=AutomationControlled",
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--disable-infobars",
	"--disable-notifications",
}

// highlightBody draws a fading red dot at (x, y)
const highlightBody = `
	const dot = document.createElement('div');
	Object.assign(dot.style, {
		position: 'absolute', left: x + 'px', top: y + 'px', width: '20px', height: '20px',
		backgroundColor: 'red', borderRadius: '50%', zIndex: '99999', pointerEvents: 'none',
		transition: 'opacity 1s ease-in-out', opacity: '1'
	});
	document.body.appendChild(dot);
	setTimeout(() => dot.style.opacity = '0', 1000);
`

// isClosedErr - reports errors caused by an already closed target
func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
