// Package driver runs one shopping command end to end against a browser session.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartbot/application/locator"
	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Timings bounds every wait the driver performs
type Timings struct {
	// NavigationTimeout bounds the wait for a submitted search to load
	NavigationTimeout time.Duration
	// SettleTimeout bounds the network-idle wait after navigation, clicks and tab switches
	SettleTimeout time.Duration
	// TabSpawnTimeout bounds how long a product click may take to open a tab
	TabSpawnTimeout time.Duration
	// TabPollInterval is the delay between two tab-set snapshots
	TabPollInterval time.Duration
	// PointerPause separates the pointer move from the click
	PointerPause time.Duration
}

// DefaultTimings returns the timings used when nothing is configured
func DefaultTimings() Timings {
	return Timings{
		NavigationTimeout: 30 * time.Second,
		SettleTimeout:     5 * time.Second,
		TabSpawnTimeout:   5 * time.Second,
		TabPollInterval:   250 * time.Millisecond,
		PointerPause:      200 * time.Millisecond,
	}
}

// Locators groups the locators a run uses
type Locators struct {
	SearchBox *locator.SearchBoxLocator
	Product   *locator.ProductLocator
	AddToCart *locator.AddToCartLocator
}

const (
	searchFieldClicks = 3
	productClicks     = 2
	addToCartClicks   = 1
	submitKey         = "Enter"
)

type Driver struct {
	browser    interfaces.Session
	classifier interfaces.Classifier
	security   interfaces.SecurityLayer
	locators   Locators
	storage    interfaces.Storage
	logger     *logrus.Logger
	timings    Timings
	now        func() time.Time
}

// NewDriver - creates new driver. storage may be nil.
func NewDriver(browser interfaces.Session, classifier interfaces.Classifier, security interfaces.SecurityLayer, locators Locators, storage interfaces.Storage, logger *logrus.Logger, timings Timings) *Driver {
	return &Driver{
		browser:    browser,
		classifier: classifier,
		security:   security,
		locators:   locators,
		storage:    storage,
		logger:     logger,
		timings:    timings,
		now:        time.Now,
	}
}

// session is the state threaded through one run. active is reassigned when a
// click spawns a tab; exactly one page is active at a time.
type session struct {
	outcome entities.Outcome
	active  interfaces.Page
	log     *logrus.Entry
}

func (s *session) advance(stage entities.Stage) {
	s.outcome.Stage = stage
	s.log = s.log.WithField("stage", stage)
	s.log.Info("Stage reached")
}

func (s *session) notFound(step entities.Step, detail string) entities.Outcome {
	s.outcome.Status = entities.StatusNotFound
	s.outcome.Failed = step
	s.outcome.Detail = detail
	s.log.WithField("step", step).Warn(detail)
	return s.outcome
}

func (s *session) fatal(step entities.Step, err error) entities.Outcome {
	s.outcome.Status = entities.StatusFatal
	s.outcome.Failed = step
	s.outcome.Err = err
	s.outcome.Detail = err.Error()
	s.log.WithField("step", step).WithError(err).Error("Run aborted")
	return s.outcome
}

// Run executes command as a single best-effort attempt and reports how it ended
func (d *Driver) Run(ctx context.Context, command string) entities.Outcome {
	runID := uuid.NewString()
	s := &session{
		outcome: entities.Outcome{RunID: runID, Stage: entities.StageInit},
		log:     d.logger.WithField("run_id", runID),
	}

	outcome := d.run(ctx, s, command)
	d.persist(command, outcome)
	return outcome
}

func (d *Driver) run(ctx context.Context, s *session, command string) entities.Outcome {
	intent, err := d.classifier.ParseIntent(ctx, command)
	if err != nil {
		return s.fatal(entities.StepParseIntent, err)
	}
	if err := d.security.CheckIntent(intent); err != nil {
		return s.fatal(entities.StepParseIntent, fmt.Errorf("%w: %w", entities.ErrIntentParse, err))
	}
	s.outcome.Intent = &intent
	risk := d.security.GetRiskLevel(intent)
	s.log = s.log.WithFields(logrus.Fields{
		"website": intent.Website,
		"search":  intent.Search,
		"risk":    risk,
	})
	if risk == interfaces.RiskHigh {
		s.log.Warn("Website is on the local network")
	}
	s.advance(entities.StageIntentParsed)

	page, err := d.initialPage(ctx)
	if err != nil {
		return s.fatal(entities.StepNavigate, err)
	}
	s.active = page

	if err := s.active.Navigate(ctx, intent.Website, interfaces.LoadStateDOMContentLoaded); err != nil {
		return s.fatal(entities.StepNavigate, fmt.Errorf("failed to navigate to %s: %w", intent.Website, err))
	}
	d.settle(ctx, s, interfaces.LoadStateNetworkIdle, d.timings.SettleTimeout)
	s.advance(entities.StageNavigated)

	searchBox, found, err := d.locators.SearchBox.Locate(ctx, s.active)
	if err != nil {
		return s.fatal(entities.StepLocateSearchBox, err)
	}
	if !found {
		return s.notFound(entities.StepLocateSearchBox, "Search box not found")
	}
	s.advance(entities.StageSearchBoxFound)

	if err := d.submitQuery(ctx, s, searchBox, intent.Search); err != nil {
		return s.fatal(entities.StepSubmitQuery, err)
	}
	s.advance(entities.StageQuerySubmitted)

	product, found, err := d.locators.Product.Locate(ctx, s.active)
	if err != nil {
		return s.fatal(entities.StepLocateProduct, err)
	}
	if !found {
		return s.notFound(entities.StepLocateProduct, "No product found")
	}
	s.advance(entities.StageProductFound)

	before, err := d.browser.Pages(ctx)
	if err != nil {
		return s.fatal(entities.StepClickProduct, fmt.Errorf("failed to list tabs: %w", err))
	}
	if err := d.pointAndClick(ctx, s, product.Target(), productClicks); err != nil {
		return s.fatal(entities.StepClickProduct, err)
	}
	s.advance(entities.StageClicked)

	if err := d.resolveTab(ctx, s, before); err != nil {
		return s.fatal(entities.StepResolveTab, err)
	}
	s.advance(entities.StageTabResolved)

	button, found, err := d.locators.AddToCart.Locate(ctx, s.active)
	if err != nil {
		return s.fatal(entities.StepLocateAddToCart, err)
	}
	if !found {
		return s.notFound(entities.StepLocateAddToCart, `"Add to Cart" button not found`)
	}
	if err := d.pointAndClick(ctx, s, button.Target(), addToCartClicks); err != nil {
		return s.fatal(entities.StepClickAddToCart, err)
	}
	s.advance(entities.StageAddToCartAttempted)

	s.outcome.Status = entities.StatusCompleted
	s.outcome.Detail = "Add to cart clicked"
	s.advance(entities.StageDone)
	return s.outcome
}

// initialPage returns the first open tab, opening one if the session has none
func (d *Driver) initialPage(ctx context.Context) (interfaces.Page, error) {
	pages, err := d.browser.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	if len(pages) > 0 {
		return pages[0], nil
	}
	page, err := d.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return page, nil
}

// submitQuery selects the field's content, types the query verbatim, submits it
// and waits for the navigation the submission starts
func (d *Driver) submitQuery(ctx context.Context, s *session, field interfaces.Element, query string) error {
	if err := field.Click(ctx, searchFieldClicks); err != nil {
		return fmt.Errorf("failed to focus search box: %w", err)
	}
	if err := field.Type(ctx, query); err != nil {
		return fmt.Errorf("failed to type query: %w", err)
	}
	// armed before Enter, so the product scan sees the results document
	err := s.active.PressKeyAndWaitForNavigation(ctx, submitKey, d.timings.NavigationTimeout)
	switch {
	case err == nil:
	case errors.Is(err, interfaces.ErrWaitTimeout):
		s.log.Warnf("no navigation after submitting the query within %s, scanning the current document", d.timings.NavigationTimeout)
	default:
		return fmt.Errorf("failed to submit query: %w", err)
	}
	d.settle(ctx, s, interfaces.LoadStateNetworkIdle, d.timings.SettleTimeout)
	return ctx.Err()
}

// pointAndClick moves the pointer to target, flags it and clicks it
func (d *Driver) pointAndClick(ctx context.Context, s *session, target entities.Point, clickCount int) error {
	if err := s.active.MoveMouse(ctx, target); err != nil {
		return fmt.Errorf("failed to move pointer: %w", err)
	}
	if err := pause(ctx, d.timings.PointerPause); err != nil {
		return err
	}
	if err := s.active.Highlight(ctx, target); err != nil {
		s.log.Debugf("failed to flag target: %v", err)
	}
	s.log.Infof("Clicking at %.0f,%.0f (x%d)", target.X, target.Y, clickCount)
	if err := s.active.ClickAt(ctx, target, clickCount); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}

// settle waits for state on the active page. A timeout is tolerated, the run
// continues as a best-effort attempt.
func (d *Driver) settle(ctx context.Context, s *session, state interfaces.LoadState, timeout time.Duration) {
	err := s.active.WaitForLoad(ctx, state, timeout)
	switch {
	case err == nil:
	case errors.Is(err, interfaces.ErrWaitTimeout):
		s.log.Debugf("page did not reach %s within %s", state, timeout)
	default:
		s.log.Warnf("waiting for %s failed: %v", state, err)
	}
}

func (d *Driver) persist(command string, outcome entities.Outcome) {
	if d.storage == nil {
		return
	}
	if err := d.storage.SaveRun(outcome.Record(command, d.now())); err != nil {
		d.logger.Warnf("failed to save run history: %v", err)
	}
}

// pause - waits for d unless the context ends first
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("run canceled: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}
