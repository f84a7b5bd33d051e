package interceptor

import (
	"fmt"

	"github.com/haukened/navguard/internal/guard/domain"
)

// Settings returns the settings in effect.
func (c *Coordinator) Settings() domain.Settings { return c.settings.Get() }

// UpdateSettings applies a partial update. Failures wrap ErrSettingsSave so
// they are reported apart from scan failures.
func (c *Coordinator) UpdateSettings(patch domain.SettingsPatch) (domain.Settings, error) {
	s, err := c.settings.Update(patch)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrSettingsSave, err)
	}
	return s, nil
}

// AddToList puts a domain (or a URL's host) on a list.
func (c *Coordinator) AddToList(kind domain.ListKind, input string) (string, error) {
	d, err := c.lists.Add(kind, input)
	if err != nil {
		return "", err
	}
	c.logger.Info(map[string]any{"list": kind.String(), "domain": d}, "list entry added")
	return d, nil
}

// RemoveFromList deletes a domain from a list and reports whether it was
// present.
func (c *Coordinator) RemoveFromList(kind domain.ListKind, input string) (bool, error) {
	removed, err := c.lists.Remove(kind, input)
	if err != nil {
		return false, err
	}
	if removed {
		c.logger.Info(map[string]any{"list": kind.String(), "domain": input}, "list entry removed")
	}
	return removed, nil
}

// Lists returns both lists.
func (c *Coordinator) Lists() domain.Lists { return c.lists.Snapshot() }

// Statistics returns today's counters.
func (c *Coordinator) Statistics() domain.Statistics { return c.stats.Snapshot() }

// ResetStatistics zeroes today's counters.
func (c *Coordinator) ResetStatistics() error { return c.stats.Reset() }

// ClearCache drops every cached classifier verdict.
func (c *Coordinator) ClearCache() {
	c.cache.Purge()
	c.logger.Info(nil, "threat cache cleared")
}
