// Package loader forces the lazily rendered results table to load every row.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/page"
	"RendaBot/internal/poll"
)

// Options controls the scroll pacing.
type Options struct {
	PageSteps    int           `yaml:"page_steps"`  // window scroll steps from top to bottom
	PagePause    time.Duration `yaml:"page_pause"`  // pause between window steps
	ScrollStep   int           `yaml:"scroll_step"` // pixels per table scroll
	ScrollPause  time.Duration `yaml:"scroll_pause"`
	MaxScrolls   int           `yaml:"max_scrolls"`
	StablePause  time.Duration `yaml:"stable_pause"`  // pause between row-count samples
	StableWindow time.Duration `yaml:"stable_window"` // how long row count may keep changing
}

// DefaultOptions mirrors the brokerage table's loading speed.
func DefaultOptions() Options {
	return Options{
		PageSteps:    5,
		PagePause:    400 * time.Millisecond,
		ScrollStep:   500,
		ScrollPause:  300 * time.Millisecond,
		MaxScrolls:   30,
		StablePause:  800 * time.Millisecond,
		StableWindow: 5 * time.Second,
	}
}

// Loader scrolls a page until its table stops growing.
type Loader struct {
	Page page.Page
	Opts Options
	Log  logrus.FieldLogger
}

func New(p page.Page, opts Options, log logrus.FieldLogger) *Loader {
	return &Loader{Page: p, Opts: opts, Log: log}
}

// Load scrolls the window, then the table, and waits for a stable row count.
// It returns the final row count.
func (l *Loader) Load(ctx context.Context) (int, error) {
	if err := l.scrollPage(ctx); err != nil {
		return 0, err
	}
	if err := l.scrollTable(ctx); err != nil {
		return 0, err
	}
	n, err := poll.Stable(ctx, poll.Target{What: "row count", Timeout: l.Opts.StableWindow, Interval: l.Opts.StablePause},
		func(ctx context.Context) (int, error) { return l.Page.RowCount(ctx) })
	if err != nil {
		return 0, fmt.Errorf("wait for table: %w", err)
	}
	l.Log.WithField("rows", n).Info("table fully loaded")
	return n, nil
}

func (l *Loader) scrollPage(ctx context.Context) error {
	steps := l.Opts.PageSteps
	if steps <= 0 {
		return nil
	}
	for i := 1; i <= steps; i++ {
		if err := l.Page.ScrollPage(ctx, float64(i)/float64(steps)); err != nil {
			return fmt.Errorf("scroll page: %w", err)
		}
		if err := poll.Sleep(ctx, l.Opts.PagePause); err != nil {
			return err
		}
	}
	return l.Page.ScrollPage(ctx, 0)
}

// scrollTable stops once the container offset no longer moves.
func (l *Loader) scrollTable(ctx context.Context) error {
	last := -1
	for i := 0; i < l.Opts.MaxScrolls; i++ {
		pos, err := l.Page.ScrollTable(ctx, l.Opts.ScrollStep)
		if err != nil {
			return fmt.Errorf("scroll table: %w", err)
		}
		if pos == last {
			l.Log.WithField("scrolls", i+1).Debug("table scroll settled")
			return nil
		}
		last = pos
		if err := poll.Sleep(ctx, l.Opts.ScrollPause); err != nil {
			return err
		}
	}
	l.Log.WithField("scrolls", l.Opts.MaxScrolls).Warn("table scroll did not settle")
	return nil
}
