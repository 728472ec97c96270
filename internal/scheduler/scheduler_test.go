package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"RendaBot/internal/balance"
	"RendaBot/internal/engine"
	"RendaBot/internal/recorder"
)

type stubRunner struct {
	sum *engine.Summary
	err error
}

func (r stubRunner) Run(context.Context) (*engine.Summary, error) { return r.sum, r.err }

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

type lastRunRecorder struct {
	recorder.Recorder
	evt *recorder.RunEvent
}

func (r lastRunRecorder) LastRun() (*recorder.RunEvent, error) { return r.evt, nil }

func newScheduler(t *testing.T, runner Runner, rec recorder.Recorder) (*Scheduler, *captureSender) {
	t.Helper()
	log, _ := test.NewNullLogger()
	bm, err := balance.NewManager("", log)
	if err != nil {
		t.Fatal(err)
	}
	snd := &captureSender{}
	return NewScheduler(context.Background(), runner, bm, snd, rec, log), snd
}

func TestRunNowSendsSummary(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	s, snd := newScheduler(t, stubRunner{sum: &engine.Summary{StartedAt: start, FinishedAt: start, Purchased: 1}}, recorder.NewNoopRecorder())
	s.RunNow()
	if len(snd.sent) != 1 || !strings.Contains(snd.sent[0], "Compradas 1") {
		t.Errorf("sent = %q", snd.sent)
	}
}

func TestRunNowDropsOverlap(t *testing.T) {
	s, snd := newScheduler(t, stubRunner{err: engine.ErrRunInProgress}, recorder.NewNoopRecorder())
	s.RunNow()
	if len(snd.sent) != 0 {
		t.Errorf("overlapping run must not notify, sent %q", snd.sent)
	}
}

func TestHandleCommand(t *testing.T) {
	evt := &recorder.RunEvent{Purchased: 3}
	s, _ := newScheduler(t, stubRunner{}, lastRunRecorder{evt: evt})

	if got := s.HandleCommand(context.Background(), "/status"); !strings.Contains(got, "Compradas 3") {
		t.Errorf("/status = %q", got)
	}
	if got := s.HandleCommand(context.Background(), "/saldo"); !strings.Contains(got, "não capturado") {
		t.Errorf("/saldo = %q", got)
	}
	if got := s.HandleCommand(context.Background(), "oi"); !strings.Contains(got, "/run") {
		t.Errorf("help = %q", got)
	}
}

func TestRegisterRejectsBadCron(t *testing.T) {
	s, _ := newScheduler(t, stubRunner{}, recorder.NewNoopRecorder())
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error")
	}
	if err := s.Register("0 30 10 * * 1-5"); err != nil {
		t.Error(err)
	}
}

type rememberingRunner struct {
	stubRunner
	last *engine.Summary
}

func (r rememberingRunner) Last() *engine.Summary { return r.last }

func TestStatusFallsBackToLastSummary(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	runner := rememberingRunner{last: &engine.Summary{StartedAt: start, FinishedAt: start, Purchased: 2}}
	s, _ := newScheduler(t, runner, recorder.NewNoopRecorder())

	if got := s.HandleCommand(context.Background(), "/status"); !strings.Contains(got, "Compradas 2") {
		t.Errorf("/status = %q", got)
	}

	s, _ = newScheduler(t, rememberingRunner{}, recorder.NewNoopRecorder())
	if got := s.HandleCommand(context.Background(), "/status"); !strings.Contains(got, "Nenhuma") {
		t.Errorf("/status before any run = %q", got)
	}
}
