package interceptor

import (
	"context"
	"fmt"

	"github.com/haukened/navguard/internal/guard/domain"
)

// Intercept returns a copy of a held intercept.
func (c *Coordinator) Intercept(id string) (domain.Intercept, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ic, ok := c.intercepts.Peek(id)
	if !ok {
		return domain.Intercept{}, fmt.Errorf("%w: %s", ErrUnknownIntercept, id)
	}
	return ic.Clone(), nil
}

// Proceed records the user's choice to continue past a warning, or past a
// full-page block on a navigation. The override is not counted again.
func (c *Coordinator) Proceed(id string) (Verdict, error) {
	c.mu.Lock()
	ic, ok := c.intercepts.Get(id)
	if !ok {
		c.mu.Unlock()
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownIntercept, id)
	}
	if err := ic.Proceed(c.clock.Now()); err != nil {
		c.mu.Unlock()
		return Verdict{}, err
	}
	out := ic.Clone()
	c.mu.Unlock()

	c.metrics.Intercept(string(out.Kind), string(out.State))
	c.logger.Info(map[string]any{"tab": out.TabID, "intercept": out.ID, "url": out.URL}, "user proceeded")
	return Verdict{Intercept: out, Proceed: true, Evaluated: true}, nil
}

// TrustAndRetry whitelists a blocked intercept's domain and evaluates it
// again. The whitelist write must succeed before anything else changes.
func (c *Coordinator) TrustAndRetry(ctx context.Context, id string) (Verdict, error) {
	c.mu.Lock()
	ic, ok := c.intercepts.Get(id)
	if !ok {
		c.mu.Unlock()
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownIntercept, id)
	}
	if ic.State != domain.StateBlocked {
		state := ic.State
		c.mu.Unlock()
		return Verdict{}, fmt.Errorf("%w: trust from %s", domain.ErrInvalidTransition, state)
	}
	url := ic.URL
	c.mu.Unlock()

	host, err := c.lists.Add(domain.Whitelist, url)
	if err != nil {
		return Verdict{}, fmt.Errorf("trust %s: %w", url, err)
	}
	d := c.engine.Evaluate(ctx, url)

	c.mu.Lock()
	if err := ic.Retry(d, c.clock.Now()); err != nil {
		c.mu.Unlock()
		return Verdict{}, err
	}
	out := ic.Clone()
	if out.Kind == domain.KindNavigation {
		if t, ok := c.tabs[out.TabID]; ok && t.pageURL == url {
			c.decisions.Put(out.TabID, d)
		}
	}
	c.mu.Unlock()

	if err := c.stats.Record(d); err != nil {
		c.logger.Warn(map[string]any{"tab": out.TabID, "error": err}, "could not persist statistics")
	}
	c.metrics.Intercept(string(out.Kind), string(out.State))
	c.logger.Info(map[string]any{"tab": out.TabID, "intercept": out.ID, "domain": host}, "site trusted, retrying")
	return Verdict{Intercept: out, Proceed: true, Evaluated: true}, nil
}

// CurrentDecision returns the latest page-level decision for a tab.
func (c *Coordinator) CurrentDecision(tabID int) (domain.Decision, error) {
	d, ok := c.decisions.Get(tabID)
	if !ok {
		return domain.Decision{}, fmt.Errorf("%w: %d", ErrUnknownTab, tabID)
	}
	return d, nil
}

// CloseTab cancels in-flight work for the tab and forgets it. Late results
// for the tab are discarded.
func (c *Coordinator) CloseTab(tabID int) error {
	c.mu.Lock()
	t, ok := c.tabs[tabID]
	if ok {
		t.cancel()
		delete(c.tabs, tabID)
	}
	c.mu.Unlock()
	c.decisions.Remove(tabID)
	if tc, isCloser := c.presenter.(TabCloser); isCloser {
		tc.CloseTab(tabID)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTab, tabID)
	}
	c.logger.Debug(map[string]any{"tab": tabID}, "tab closed")
	return nil
}
