package collector

import (
	"context"
	"time"

	"github.com/CivicActions/Drupal-ACR/internal/logging"
)

// criteriaDelay shortens the pause between criteria as the session accumulates
// successful requests, down to a third of the configured delay. A random
// quarter of the delay is added so requests do not arrive on a fixed cadence.
func (c *Collector) criteriaDelay() time.Duration {
	base := c.opts.CriteriaDelay
	if base <= 0 {
		return 0
	}
	floor := base / 3
	delay := base - time.Duration(c.session.Successes())*base/50
	if delay < floor {
		delay = floor
	}
	if rng := c.session.Rand(); rng != nil {
		delay += time.Duration(rng.Int63n(int64(base/4) + 1))
	}
	return delay
}

func (c *Collector) pace(ctx context.Context) error {
	delay := c.criteriaDelay()
	if c.cooldownDue() {
		c.cooledAt = c.collected
		c.logger.Info("cooling down", logging.Duration("cooldown", c.opts.Cooldown), logging.Int("collected", c.collected))
		delay += c.opts.Cooldown
	}
	if delay <= 0 {
		return nil
	}
	return c.session.Sleep(ctx, delay)
}

// cooldownDue reports whether the collected count just reached a multiple of
// CooldownEvery that has not been cooled down for yet.
func (c *Collector) cooldownDue() bool {
	if c.opts.CooldownEvery <= 0 || c.opts.Cooldown <= 0 || c.collected == 0 {
		return false
	}
	return c.collected%c.opts.CooldownEvery == 0 && c.collected != c.cooledAt
}
