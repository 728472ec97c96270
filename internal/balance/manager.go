// Package balance tracks the account balance available for purchases.
package balance

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/extract"
	"RendaBot/internal/model"
	"RendaBot/internal/page"
	"RendaBot/internal/poll"
)

var amountPattern = regexp.MustCompile(`R\$\s*([\d.]+,\d{2})`)

// Parse reads the first pt-BR currency amount in text.
func Parse(text string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	d, err := extract.ParseMoney(m[1])
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Manager holds the balance with concurrency safety and persists it.
type Manager struct {
	mu       sync.Mutex
	state    *model.BalanceState
	filePath string
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewManager creates a Manager, loading state from disk.
func NewManager(filePath string, log logrus.FieldLogger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load balance state: %w", err)
	}
	return &Manager{state: state, filePath: filePath, log: log, now: time.Now}, nil
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() model.BalanceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Available is the balance left for this run.
func (m *Manager) Available() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Available
}

// Capture waits for the page to render a balance and stores it. When the page
// never shows one, a previously cached positive balance is used instead.
func (m *Manager) Capture(ctx context.Context, p page.Page, timeout time.Duration) (float64, error) {
	target := poll.Target{What: "saldo disponível", Timeout: timeout, Interval: 500 * time.Millisecond}
	v, err := poll.Value(ctx, target, func(ctx context.Context) (float64, bool, error) {
		text, err := p.BalanceText(ctx)
		if err != nil {
			return 0, false, err
		}
		v, ok := Parse(text)
		return v, ok, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		cached := m.Available()
		if cached > 0 {
			m.log.WithError(err).WithField("cached", cached).Warn("balance not on page, using cached value")
			return cached, nil
		}
		return 0, fmt.Errorf("capture balance: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Available = v
	m.state.CapturedAt = m.now()
	if err := m.save(); err != nil {
		m.log.WithError(err).Error("failed to save balance state")
	}
	m.log.WithField("balance", v).Info("balance captured")
	return v, nil
}

// Deduct removes a finalized purchase from the available balance.
func (m *Manager) Deduct(amount float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := m.now().Format("2006-01-02")
	if m.state.SpentDate != today {
		m.state.SpentDate = today
		m.state.SpentToday = 0
	}
	m.state.SpentToday += amount
	m.state.Available -= amount
	if m.state.Available < 0 {
		m.state.Available = 0
	}
	if err := m.save(); err != nil {
		m.log.WithError(err).Error("failed to save balance state after purchase")
	}
	return m.state.Available
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
