package browser

import (
	"errors"
	"testing"
	"time"

	"cartbot/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
)

func TestRandomUserAgent(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Contains(t, userAgents, RandomUserAgent())
	}
}

func TestIsClosedErr(t *testing.T) {
	assert.False(t, isClosedErr(nil))
	assert.True(t, isClosedErr(errors.New("target closed")))
	assert.True(t, isClosedErr(errors.New("browser has been closed")))
	assert.False(t, isClosedErr(errors.New("timeout")))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, time.Second, orDefault(0, time.Second))
	assert.Equal(t, time.Second, orDefault(-5, time.Second))
	assert.Equal(t, 3*time.Second, orDefault(3*time.Second, time.Second))
}

func TestReadyFor(t *testing.T) {
	assert.True(t, readyFor(interfaces.LoadStateDOMContentLoaded, "interactive"))
	assert.False(t, readyFor(interfaces.LoadStateNetworkIdle, "interactive"))
	assert.False(t, readyFor(interfaces.LoadStateLoad, "interactive"))
	assert.True(t, readyFor(interfaces.LoadStateNetworkIdle, "complete"))
	assert.False(t, readyFor(interfaces.LoadStateDOMContentLoaded, "loading"))
}

func TestPlaywrightStates(t *testing.T) {
	assert.Equal(t, playwright.WaitUntilStateDomcontentloaded, waitUntil(interfaces.LoadStateDOMContentLoaded))
	assert.Equal(t, playwright.WaitUntilStateNetworkidle, waitUntil(interfaces.LoadStateNetworkIdle))
	assert.Equal(t, playwright.LoadStateLoad, loadState(interfaces.LoadStateLoad))
	assert.Equal(t, playwright.LoadStateNetworkidle, loadState(interfaces.LoadStateNetworkIdle))
}
