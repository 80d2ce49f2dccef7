package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"AssetKeeper/internal/asset"
	"AssetKeeper/internal/calculator"
	"AssetKeeper/internal/logger"
	"AssetKeeper/internal/notifier"
	"AssetKeeper/internal/recorder"
	"AssetKeeper/internal/telemetry"
)

// Job binds an asset to the request that refreshes it.
type Job struct {
	Asset   *asset.Asset
	Request asset.Request
	// Source labels the origin in the retrieval history: provider name or file path.
	Source string
}

// Report lists asset names by outcome of one refresh pass. Failed entries
// carry the error message.
type Report struct {
	Succeeded []string
	Failed    []string
}

// Scheduler refreshes configured assets on a cron schedule.
type Scheduler struct {
	Cron     *cron.Cron
	Jobs     []Job
	Recorder recorder.Recorder
	Metrics  *telemetry.Metrics
	Notifier notifier.Notifier
	Ctx      context.Context

	log logrus.FieldLogger
	now func() time.Time
	mu  sync.Mutex // serialises refresh passes
	wg  sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Nil recorder, metrics or notifier are allowed.
func NewScheduler(ctx context.Context, jobs []Job, rec recorder.Recorder, m *telemetry.Metrics, n notifier.Notifier) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if n == nil {
		n = notifier.Noop{}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Jobs:     jobs,
		Recorder: rec,
		Metrics:  m,
		Notifier: n,
		Ctx:      ctx,
		log:      logger.WithComponent("scheduler"),
		now:      time.Now,
	}
}

// RegisterAll registers the refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.WithField("jobs", len(s.Jobs)).Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running passes, scheduled
// or started by RunAsync, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// RunNow executes a refresh pass immediately (for manual trigger / run on start).
func (s *Scheduler) RunNow() Report {
	return s.RefreshAll(s.Ctx)
}

// RunAsync starts a refresh pass in the background. Stop waits for it.
func (s *Scheduler) RunAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunNow()
	}()
}

func (s *Scheduler) refreshTask() {
	report := s.RefreshAll(s.Ctx)
	text := notifier.FormatRefreshReport(s.now(), report.Succeeded, report.Failed)
	if err := s.Notifier.Send(s.Ctx, text); err != nil {
		s.log.WithError(err).Error("send refresh report")
	}
}

// RefreshAll retrieves every job in order. A failing asset is recorded and
// skipped; it never stops the pass.
func (s *Scheduler) RefreshAll(ctx context.Context) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report
	for _, job := range s.Jobs {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, job.Asset.Name()+": "+ctx.Err().Error())
			continue
		}
		if err := s.refreshOne(ctx, job); err != nil {
			report.Failed = append(report.Failed, job.Asset.Name()+": "+err.Error())
			continue
		}
		report.Succeeded = append(report.Succeeded, job.Asset.Name())
	}

	if s.Metrics != nil {
		s.Metrics.LastRun.Set(float64(s.now().Unix()))
	}
	s.log.WithFields(logrus.Fields{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
	}).Info("refresh pass complete")
	return report
}

func (s *Scheduler) refreshOne(ctx context.Context, job Job) error {
	a := job.Asset
	backend := job.Request.Backend.String()
	evt := &recorder.RetrievalEvent{
		Asset:   a.Name(),
		Ticker:  a.Ticker(),
		Backend: backend,
		Source:  job.Source,
	}

	df, err := a.Retrieve(ctx, job.Request)
	if err != nil {
		evt.Status = "FAILED"
		evt.ErrorKind = string(asset.KindOf(err))
		evt.Message = err.Error()
		s.record(evt, nil)
		if s.Metrics != nil {
			s.Metrics.ObserveFailure(backend, evt.ErrorKind)
		}
		return err
	}

	evt.Status = "OK"
	evt.Rows = df.Nrow()
	summary := calculator.Summarize(df)
	s.record(evt, &recorder.Snapshot{Asset: a.Name(), Summary: summary})
	if s.Metrics != nil {
		s.Metrics.ObserveSuccess(backend, evt.Rows)
	}
	s.log.WithFields(logrus.Fields{
		"asset": a.Name(),
		"rows":  evt.Rows,
		"last":  summary.Last,
	}).Info("asset refreshed")
	return nil
}

func (s *Scheduler) record(evt *recorder.RetrievalEvent, snap *recorder.Snapshot) {
	if err := s.Recorder.RecordRetrieval(evt); err != nil {
		s.log.WithError(err).Error("record retrieval")
	}
	if snap == nil {
		return
	}
	if err := s.Recorder.RecordSnapshot(snap); err != nil {
		s.log.WithError(err).Error("record snapshot")
	}
}
