package driver

import (
	"context"
	"fmt"
	"time"

	"cartbot/domain/interfaces"

	mapset "github.com/deckarep/golang-set/v2"
)

// addedTabs returns the pages of after that are absent from before, in after's order
func addedTabs(before, after []interfaces.Page) []interfaces.Page {
	known := mapset.NewThreadUnsafeSet[string]()
	for _, p := range before {
		known.Add(p.ID())
	}

	var added []interfaces.Page
	for _, p := range after {
		if !known.Contains(p.ID()) {
			added = append(added, p)
		}
	}
	return added
}

// awaitNewTab polls the tab set until a tab absent from before shows up or
// TabSpawnTimeout passes. Only the diff against the pre-click snapshot is
// used to attribute a tab to the click.
func (d *Driver) awaitNewTab(ctx context.Context, before []interfaces.Page) (interfaces.Page, int, error) {
	deadline := time.Now().Add(d.timings.TabSpawnTimeout)
	for {
		after, err := d.browser.Pages(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list tabs: %w", err)
		}
		if added := addedTabs(before, after); len(added) > 0 {
			return added[0], len(added), nil
		}
		if !time.Now().Before(deadline) {
			return nil, 0, nil
		}
		if err := pause(ctx, d.timings.TabPollInterval); err != nil {
			return nil, 0, err
		}
	}
}

// resolveTab makes the tab spawned by the product click active, if there is one
func (d *Driver) resolveTab(ctx context.Context, s *session, before []interfaces.Page) error {
	spawned, count, err := d.awaitNewTab(ctx, before)
	if err != nil {
		return err
	}
	if spawned == nil {
		s.log.Info("No new tab, staying on current page")
		d.settle(ctx, s, interfaces.LoadStateNetworkIdle, d.timings.SettleTimeout)
		return nil
	}

	if count > 1 {
		s.log.Warnf("%d tabs opened by the click, following the first", count)
	}
	s.log.WithField("tab", spawned.ID()).Info("New tab detected")
	s.active = spawned
	s.outcome.NewTab = true
	if err := s.active.BringToFront(ctx); err != nil {
		return fmt.Errorf("failed to activate new tab: %w", err)
	}
	d.settle(ctx, s, interfaces.LoadStateDOMContentLoaded, d.timings.NavigationTimeout)
	d.settle(ctx, s, interfaces.LoadStateNetworkIdle, d.timings.SettleTimeout)
	return nil
}
