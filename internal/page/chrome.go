package page

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeConfig selects the browser to drive.
type ChromeConfig struct {
	// CDPURL attaches to a running browser (ws://host:9222/...). Empty launches one.
	CDPURL      string        `yaml:"cdp_url"`
	Headless    bool          `yaml:"headless"`
	ProfileDir  string        `yaml:"profile_dir"`
	EvalTimeout time.Duration `yaml:"eval_timeout"`
}

// Chrome is the live Page backed by a chromedp tab.
type Chrome struct {
	tab     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewChrome opens a tab in a launched or remote browser.
func NewChrome(parent context.Context, cfg ChromeConfig) (*Chrome, error) {
	var (
		alloc       context.Context
		allocCancel context.CancelFunc
	)
	if cfg.CDPURL != "" {
		alloc, allocCancel = chromedp.NewRemoteAllocator(parent, cfg.CDPURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.WindowSize(1440, 900),
		)
		if cfg.ProfileDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.ProfileDir))
		}
		alloc, allocCancel = chromedp.NewExecAllocator(parent, opts...)
	}
	tab, tabCancel := chromedp.NewContext(alloc)
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	timeout := cfg.EvalTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Chrome{
		tab:     tab,
		cancel:  func() { tabCancel(); allocCancel() },
		timeout: timeout,
	}, nil
}

// Close closes the tab, and the browser if it was launched here.
func (c *Chrome) Close() error {
	c.cancel()
	return nil
}

// run executes actions on the tab, bounded by the eval timeout and by ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the body.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, 4*c.timeout, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

// expression renders fn(args...) with JSON encoded arguments.
func expression(fn string, args ...any) (string, error) {
	encoded := make([]byte, 0, 64)
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", err
		}
		if i > 0 {
			encoded = append(encoded, ',')
		}
		encoded = append(encoded, b...)
	}
	return fmt.Sprintf("(%s)(%s)", fn, encoded), nil
}

// call evaluates fn(args...) in the page, awaiting a returned promise.
// A nil out discards the result.
func (c *Chrome) call(ctx context.Context, out any, fn string, args ...any) error {
	expr, err := expression(fn, args...)
	if err != nil {
		return err
	}
	await := func(p *runtime.EvaluateParams) *runtime.EvaluateParams { return p.WithAwaitPromise(true) }
	return c.run(ctx, c.timeout, chromedp.Evaluate(expr, out, await))
}

func (c *Chrome) Chip(ctx context.Context, label string) (ChipState, error) {
	var st struct {
		Found    bool `json:"found"`
		Selected bool `json:"selected"`
	}
	err := c.call(ctx, &st, jsChip, label)
	return ChipState{Found: st.Found, Selected: st.Selected}, err
}

func (c *Chrome) ClickChip(ctx context.Context, label string) error {
	var ok bool
	if err := c.call(ctx, &ok, jsClickChip, label); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("soma-chip %q not on page", label)
	}
	return nil
}

func (c *Chrome) RowCount(ctx context.Context) (int, error) {
	var n int
	err := c.call(ctx, &n, `() => document.querySelectorAll("soma-table-body soma-table-row").length`)
	return n, err
}

func (c *Chrome) ScrollTable(ctx context.Context, dy int) (int, error) {
	var pos int
	err := c.call(ctx, &pos, jsScrollTable, dy)
	return pos, err
}

func (c *Chrome) ScrollPage(ctx context.Context, fraction float64) error {
	return c.call(ctx, nil, `(f) => {
		const h = Math.max(document.body.scrollHeight, document.documentElement.scrollHeight);
		window.scrollTo(0, Math.round(h * f));
	}`, fraction)
}

func (c *Chrome) TableHTML(ctx context.Context) (string, error) {
	var html string
	err := c.call(ctx, &html, `() => document.querySelector("soma-table-body")?.outerHTML || ""`)
	return html, err
}

func (c *Chrome) State(ctx context.Context, ctl Control) (ControlState, error) {
	var st struct {
		Present bool `json:"present"`
		Ready   bool `json:"ready"`
		Enabled bool `json:"enabled"`
		Checked bool `json:"checked"`
	}
	if err := c.call(ctx, &st, jsLocate+jsState, int(ctl.Kind), ctl.Label, ctl.Row); err != nil {
		return ControlState{}, err
	}
	return ControlState{Present: st.Present, Ready: st.Ready, Enabled: st.Enabled, Checked: st.Checked}, nil
}

func (c *Chrome) PointerClick(ctx context.Context, ctl Control) error {
	return c.act(ctx, ctl, jsPointerClick)
}

func (c *Chrome) SetValue(ctx context.Context, ctl Control, value string) error {
	return c.act(ctx, ctl, jsSetValue, value)
}

func (c *Chrome) SetChecked(ctx context.Context, ctl Control) error {
	return c.act(ctx, ctl, jsSetChecked)
}

func (c *Chrome) act(ctx context.Context, ctl Control, body string, extra ...any) error {
	var ok bool
	args := append([]any{int(ctl.Kind), ctl.Label, ctl.Row}, extra...)
	if err := c.call(ctx, &ok, jsLocate+body, args...); err != nil {
		return fmt.Errorf("%s: %w", ctl, err)
	}
	if !ok {
		return fmt.Errorf("%s: not interactable", ctl)
	}
	return nil
}

func (c *Chrome) BalanceText(ctx context.Context) (string, error) {
	var text string
	err := c.call(ctx, &text, jsBalance)
	return text, err
}
