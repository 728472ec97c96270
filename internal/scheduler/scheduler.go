package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"RendaBot/internal/balance"
	"RendaBot/internal/engine"
	"RendaBot/internal/extract"
	"RendaBot/internal/notifier"
	"RendaBot/internal/recorder"
)

// Runner executes one purchase run.
type Runner interface {
	Run(ctx context.Context) (*engine.Summary, error)
}

// lastRunner also remembers its latest summary in memory.
type lastRunner interface {
	Last() *engine.Summary
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron-driven runs and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Balance  *balance.Manager
	Notifier Sender
	Recorder recorder.Recorder
	Ctx      context.Context
	Log      logrus.FieldLogger
}

// NewScheduler creates a new Scheduler. notifier may be nil.
func NewScheduler(ctx context.Context, runner Runner, bm *balance.Manager, notifier Sender, rec recorder.Recorder, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Balance:  bm,
		Notifier: notifier,
		Recorder: rec,
		Ctx:      ctx,
		Log:      log,
	}
}

// Register schedules the purchase run.
func (s *Scheduler) Register(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, s.RunNow); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunNow executes a run and reports it. An overlapping request is dropped.
func (s *Scheduler) RunNow() {
	s.Log.Info("running purchase task")
	sum, err := s.Runner.Run(s.Ctx)
	if errors.Is(err, engine.ErrRunInProgress) {
		s.Log.Warn("run skipped, previous run still active")
		return
	}
	if sum == nil {
		s.Log.WithError(err).Error("run produced no summary")
		return
	}
	s.trySend(notifier.FormatSummary(sum))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	word := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		word = strings.ToLower(fields[0])
	}
	switch word {
	case "/run", "executar":
		go s.RunNow()
		return "▶️ Execução iniciada."
	case "/status", "status":
		evt, err := s.Recorder.LastRun()
		if err != nil {
			s.Log.WithError(err).Error("read last run")
			return "Não foi possível ler o histórico."
		}
		if evt == nil {
			// nothing journaled, e.g. without SQLite; fall back to this process's last run
			if lr, ok := s.Runner.(lastRunner); ok {
				if sum := lr.Last(); sum != nil {
					return notifier.FormatSummary(sum)
				}
			}
		}
		return notifier.FormatLastRun(evt)
	case "/saldo", "saldo":
		st := s.Balance.GetState()
		if st.CapturedAt.IsZero() {
			return "Saldo ainda não capturado."
		}
		return fmt.Sprintf("💰 Saldo em cache: %s (%s)\nGasto hoje: %s",
			extract.FormatMoney(st.Available), st.CapturedAt.Local().Format("02/01 15:04"),
			extract.FormatMoney(st.SpentToday))
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Log.WithError(err).Error("send notification")
	}
}
