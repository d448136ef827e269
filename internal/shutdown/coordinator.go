// Package shutdown turns a termination request into an ordered stop of the
// process's long-running parts.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Step is one thing to stop, in order.
type Step struct {
	Name string
	Stop func(ctx context.Context) error
}

// Coordinator runs its steps exactly once, however many times shutdown is requested.
type Coordinator struct {
	steps   []Step
	timeout time.Duration

	once   sync.Once
	err    error
	logger *log.Logger
}

// New creates a Coordinator. Each step gets its own timeout budget.
func New(timeout time.Duration, steps ...Step) *Coordinator {
	return &Coordinator{
		steps:   steps,
		timeout: timeout,
		logger:  log.WithPrefix("shutdown"),
	}
}

// Wait blocks until ctx is done, then shuts everything down.
func (c *Coordinator) Wait(ctx context.Context) error {
	<-ctx.Done()
	c.logger.Info("termination requested")
	return c.Shutdown()
}

// Shutdown stops every step in order. Concurrent and repeated calls block
// until the first one finishes and then return its result.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		var errs []error
		for _, step := range c.steps {
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			err := step.Stop(ctx)
			cancel()

			if err != nil {
				c.logger.Error("stop failed", "step", step.Name, "err", err)
				errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
				continue
			}
			c.logger.Info("stopped", "step", step.Name)
		}
		c.err = errors.Join(errs...)
	})
	return c.err
}
